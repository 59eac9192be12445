// Tracks per-run exploration statistics such as branch counts, fan-out and
// tape memory.

package sim

import (
	"fmt"
	"io"
)

// RunMetrics aggregates statistics about one run for final reporting.
// Useful for sizing iteration limits and segment budgets.
type RunMetrics struct {
	Rounds            int64 `json:"rounds"`             // Rounds processed
	Branches          int64 `json:"branches"`           // Branches stepped, across all rounds
	DeadBranches      int64 `json:"dead_branches"`      // Branches with no matching transition
	PeakFrontier      int   `json:"peak_frontier"`      // Largest frontier entering a round
	Forks             int64 `json:"forks"`              // Branches with two or more matching transitions
	Shares            int64 `json:"shares"`             // Successors that kept sharing their parent's tape
	TapeClones        int64 `json:"tape_clones"`        // Deep tape copies made
	SegmentsAllocated int   `json:"segments_allocated"` // Segments created by the arena
	PeakLiveSegments  int   `json:"peak_live_segments"` // Highest number of segments alive at once
	Abandoned         int   `json:"abandoned_branches"` // Live branches released when the run concluded
}

// Print writes the metrics in a human-readable block.
func (m *RunMetrics) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Run Metrics ===")
	fmt.Fprintf(w, "Rounds               : %d\n", m.Rounds)
	fmt.Fprintf(w, "Branches Stepped     : %d\n", m.Branches)
	fmt.Fprintf(w, "Dead Branches        : %d\n", m.DeadBranches)
	fmt.Fprintf(w, "Peak Frontier        : %d\n", m.PeakFrontier)
	fmt.Fprintf(w, "Fork Points          : %d\n", m.Forks)
	if m.Branches > 0 {
		fmt.Fprintf(w, "Shared Successors    : %d\n", m.Shares)
		fmt.Fprintf(w, "Tape Clones          : %d\n", m.TapeClones)
	}
	fmt.Fprintf(w, "Segments Allocated   : %d\n", m.SegmentsAllocated)
	fmt.Fprintf(w, "Peak Live Segments   : %d\n", m.PeakLiveSegments)
	if m.Abandoned > 0 {
		fmt.Fprintf(w, "Abandoned Branches   : %d\n", m.Abandoned)
	}
}
