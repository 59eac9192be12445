// sim/simulator.go
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ntm-sim/ntm-sim/sim/trace"
)

// SimConfig groups the per-run parameters of a Simulator.
type SimConfig struct {
	IterationLimit int64 // rounds a path may take before the run is UNDEFINED (must be >= 1)
	StartState     State
	StartCursor    int
	SegmentSize    int // symbols per tape segment (0 = DefaultSegmentSize)
	MaxSegments    int // live segment budget per run (0 = unbounded)
	MaxBranches    int // branches the next frontier may hold (0 = unbounded)
	// Trace, when non-nil, receives round and branch records.
	Trace *trace.SimulationTrace
}

// Simulator is the core object that holds the round counter, the frontiers and
// the tape arena of a run.
//
// A Simulator runs one input at a time; Run may be called repeatedly.
type Simulator struct {
	Table  *Table
	Config SimConfig
	Round  int64
	// Frontier holds the branches alive entering the current round; Next
	// collects their successors and becomes Frontier at the round boundary.
	Frontier *Frontier
	Next     *Frontier
	Arena    *Arena
	Metrics  RunMetrics

	started time.Time
}

// NewSimulator creates a Simulator over a read-only transition table.
func NewSimulator(table *Table, config SimConfig) *Simulator {
	if table == nil {
		panic("NewSimulator: table must not be nil")
	}
	return &Simulator{
		Table:    table,
		Config:   config,
		Frontier: &Frontier{},
		Next:     &Frontier{},
	}
}

// SymbolsOf converts a string into tape symbols, one per byte.
func SymbolsOf(s string) []Symbol {
	out := make([]Symbol, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = Symbol(s[i])
	}
	return out
}

func (sim *Simulator) reset() {
	sim.Round = 0
	sim.Frontier.Reset()
	sim.Next.Reset()
	sim.Arena = NewArena(sim.Config.SegmentSize, sim.Config.MaxSegments)
	sim.Metrics = RunMetrics{}
	sim.started = time.Now()
}

// Run decides whether the machine accepts input.
//
// Every live branch takes exactly one step per round. The run ends with ACCEPT
// the moment any branch enters an accepting state, with REJECT when no branch
// survives a round, and with UNDEFINED once the round counter exceeds the
// iteration limit. The context is checked at round boundaries only.
//
// Whatever the outcome, every tape reference held by a live branch has been
// released when Run returns.
func (sim *Simulator) Run(ctx context.Context, input []Symbol) (*Result, error) {
	if sim.Config.IterationLimit < 1 {
		return nil, fmt.Errorf("iteration limit must be >= 1, got %d", sim.Config.IterationLimit)
	}
	sim.reset()

	tape, err := NewTape(sim.Arena, sim.Table.Blank(), input)
	if err != nil {
		return nil, fmt.Errorf("building input tape: %w", err)
	}
	root := &Branch{
		State:  sim.Config.StartState,
		Cursor: sim.Config.StartCursor,
		Tape:   NewTapeHandle(tape),
		Round:  1,
	}

	// a machine that starts in an accepting state accepts without a step
	if sim.Table.IsAccepting(root.State) {
		root.Tape.Release()
		return sim.conclude(Accept, 0), nil
	}

	sim.Frontier.Enqueue(root)
	sim.Round = 1
	for {
		if v, done := verdictFor(sim.Frontier.Len(), sim.Round, sim.Config.IterationLimit); done {
			return sim.conclude(v, sim.Round-1), nil
		}
		if err := ctx.Err(); err != nil {
			sim.abandon()
			return nil, err
		}

		accepted, err := sim.step()
		if err != nil {
			sim.abandon()
			return nil, fmt.Errorf("round %d: %w", sim.Round, err)
		}
		if accepted {
			return sim.conclude(Accept, sim.Round), nil
		}

		// end of the round
		sim.Frontier, sim.Next = sim.Next, sim.Frontier
		sim.Round++
	}
}

// step advances every branch of the current frontier by one machine step.
func (sim *Simulator) step() (accepted bool, err error) {
	n := sim.Frontier.Len()
	if n > sim.Metrics.PeakFrontier {
		sim.Metrics.PeakFrontier = n
	}
	logrus.Debugf("[round %07d] stepping %d branches", sim.Round, n)

	rec := trace.RoundRecord{Round: sim.Round, Frontier: n}
	clonesBefore := sim.Metrics.TapeClones
	defer func() {
		if sim.Config.Trace.Enabled(trace.TraceLevelRounds) {
			rec.Clones = int(sim.Metrics.TapeClones - clonesBefore)
			sim.Config.Trace.RecordRound(rec)
		}
	}()

	for sim.Frontier.Len() > 0 {
		b := sim.Frontier.Dequeue()
		accepted, err = sim.advance(b, &rec)
		if err != nil || accepted {
			return accepted, err
		}
	}
	return false, nil
}

// advance takes one step on branch b, which the caller has dequeued and whose
// tape reference it now owns. Successors are enqueued on sim.Next in table
// order; the reference is handed to them or released.
func (sim *Simulator) advance(b *Branch, rec *trace.RoundRecord) (bool, error) {
	sym, err := b.Tape.Tape().Read(b.Cursor)
	if err != nil {
		b.Tape.Release()
		return false, err
	}
	matches := sim.Table.Lookup(b.State, sym)
	sim.Metrics.Branches++
	if sim.Config.Trace.Enabled(trace.TraceLevelBranches) {
		sim.Config.Trace.RecordBranch(trace.BranchRecord{
			Round:   sim.Round,
			State:   int(b.State),
			Cursor:  b.Cursor,
			Read:    byte(sym),
			Matches: len(matches),
		})
	}
	logrus.Tracef("[round %07d] branch %v reads %q: %d transitions", sim.Round, b, sym, len(matches))

	if len(matches) == 0 {
		// undefined action: this path halts without accepting
		b.Tape.Release()
		sim.Metrics.DeadBranches++
		rec.Died++
		return false, nil
	}
	if len(matches) > 1 {
		sim.Metrics.Forks++
		rec.Forks++
	}

	views, err := sim.fanOut(b.Tape, sym, matches)
	if err != nil {
		return false, err
	}
	for i, tr := range matches {
		h := views[i]
		if tr.Write != sym {
			// the cell under the head is materialized, so this cannot grow the tape
			if err := h.Tape().Write(b.Cursor, tr.Write); err != nil {
				releaseViews(views[i:])
				return false, err
			}
		}
		if sim.Table.IsAccepting(tr.To) {
			logrus.Debugf("[round %07d] branch %v accepts via %v", sim.Round, b, tr)
			releaseViews(views[i:])
			return true, nil
		}
		if budget := sim.Config.MaxBranches; budget > 0 && sim.Next.Len() >= budget {
			releaseViews(views[i:])
			return false, fmt.Errorf("%w: frontier exceeds %d branches", ErrOutOfMemory, budget)
		}
		sim.Next.Enqueue(&Branch{
			State:  tr.To,
			Cursor: b.Cursor + int(tr.Move),
			Tape:   h,
			Round:  sim.Round + 1,
		})
		rec.Spawned++
	}
	return false, nil
}

// fanOut consumes the caller's reference on h and returns one handle per
// transition, in order. Successors whose transition leaves the symbol under the
// head unchanged keep sharing h; the writers get tapes no one else observes.
func (sim *Simulator) fanOut(h *TapeHandle, sym Symbol, matches []Transition) ([]*TapeHandle, error) {
	views := make([]*TapeHandle, len(matches))
	writers := 0
	for i, tr := range matches {
		if tr.Write == sym {
			views[i] = h.Acquire()
			if len(matches) > 1 {
				sim.Metrics.Shares++
			}
		} else {
			writers++
		}
	}
	if writers == 0 {
		h.Release()
		return views, nil
	}

	clones := writers
	if h.Refs() == 1 {
		clones--
	}
	writable, err := h.MutableView(writers - 1)
	if err != nil {
		for _, v := range views {
			if v != nil {
				v.Release()
			}
		}
		return nil, err
	}
	sim.Metrics.TapeClones += int64(clones)

	for i := range views {
		if views[i] == nil {
			views[i], writable = writable[0], writable[1:]
		}
	}
	return views, nil
}

func releaseViews(views []*TapeHandle) {
	for _, v := range views {
		v.Release()
	}
}

// abandon releases every branch still queued in either frontier.
func (sim *Simulator) abandon() {
	sim.Metrics.Abandoned += sim.Frontier.ReleaseAll()
	sim.Metrics.Abandoned += sim.Next.ReleaseAll()
}

// conclude releases what is still alive and builds the Result.
func (sim *Simulator) conclude(v Verdict, rounds int64) *Result {
	sim.abandon()
	if live := sim.Arena.LiveTapes(); live != 0 {
		panic(fmt.Sprintf("Simulator: %d tapes still live after %v", live, v))
	}
	sim.Metrics.Rounds = rounds
	sim.Metrics.SegmentsAllocated = sim.Arena.Allocated()
	sim.Metrics.PeakLiveSegments = sim.Arena.PeakSegments()
	logrus.Debugf("[round %07d] run ended: %v", rounds, v)
	return &Result{Verdict: v, Rounds: rounds, Metrics: sim.Metrics, Elapsed: time.Since(sim.started)}
}
