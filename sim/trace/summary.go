package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalRounds   int
	PeakFrontier  int
	TotalBranches int
	DeadBranches  int
	ForkPoints    int
	TotalClones   int
	MeanBranching float64     // successors per stepped branch
	StateVisits   map[int]int // state → number of branch steps taken from it
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		StateVisits: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalRounds = len(st.Rounds)
	spawned := 0
	for _, r := range st.Rounds {
		summary.TotalBranches += r.Frontier
		summary.DeadBranches += r.Died
		summary.ForkPoints += r.Forks
		summary.TotalClones += r.Clones
		spawned += r.Spawned
		if r.Frontier > summary.PeakFrontier {
			summary.PeakFrontier = r.Frontier
		}
	}
	if summary.TotalBranches > 0 {
		summary.MeanBranching = float64(spawned) / float64(summary.TotalBranches)
	}

	for _, b := range st.Branches {
		summary.StateVisits[b.State]++
	}

	return summary
}
