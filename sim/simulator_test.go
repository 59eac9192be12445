package sim

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/ntm-sim/ntm-sim/sim/internal/testutil"
	"github.com/ntm-sim/ntm-sim/sim/trace"
)

// TestSimulator_GoldenScenarios runs every golden scenario and checks the
// verdict, the reported round and that no tape outlives the run.
func TestSimulator_GoldenScenarios(t *testing.T) {
	golden := testutil.LoadGoldenScenarios(t)
	for _, sc := range golden.Scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			table := mustTable(t, sc.Transitions, sc.Accepting)
			want, err := ParseVerdict(sc.Verdict)
			if err != nil {
				t.Fatal(err)
			}

			res := runInput(t, table, sc.Limit, sc.Input)

			if res.Verdict != want {
				t.Errorf("verdict = %v, want %v", res.Verdict, want)
			}
			if res.Rounds != sc.Rounds {
				t.Errorf("rounds = %d, want %d", res.Rounds, sc.Rounds)
			}
			if res.Metrics.Rounds != res.Rounds {
				t.Errorf("metrics rounds = %d, result rounds = %d", res.Metrics.Rounds, res.Rounds)
			}
		})
	}
}

func TestSimulator_DivergingWrites_ClonesOnce(t *testing.T) {
	// GIVEN a state that writes two different symbols on the same read
	table := mustTable(t, []string{"0 a x R 1", "0 a y R 2", "1 _ _ L 3", "2 _ _ L 4", "3 y y S 5", "4 y y S 5"}, []int{5})

	// WHEN the input is run
	res := runInput(t, table, 10, "a")

	// THEN the sole owner writes in place and exactly one clone is made
	if res.Verdict != Accept {
		t.Fatalf("verdict = %v, want ACCEPT", res.Verdict)
	}
	if res.Metrics.TapeClones != 1 {
		t.Errorf("TapeClones = %d, want 1", res.Metrics.TapeClones)
	}
	if res.Metrics.Forks != 1 {
		t.Errorf("Forks = %d, want 1", res.Metrics.Forks)
	}
	// the x branch reads its own symbol in round 3 and dies there
	if res.Metrics.DeadBranches != 1 {
		t.Errorf("DeadBranches = %d, want 1", res.Metrics.DeadBranches)
	}
}

func TestSimulator_WriterDoesNotLeakIntoSharingSibling(t *testing.T) {
	// GIVEN a fork where one successor keeps the symbol and the other
	// overwrites it; only the path that still sees 'a' can accept
	table := mustTable(t, []string{"0 a a R 1", "0 a b R 2", "1 _ _ L 3", "2 _ _ L 4", "3 a a S 9"}, []int{9})

	// WHEN the input is run
	res := runInput(t, table, 10, "a")

	// THEN the sibling still reads the original symbol
	if res.Verdict != Accept || res.Rounds != 3 {
		t.Errorf("got %v at round %d, want ACCEPT at round 3", res.Verdict, res.Rounds)
	}
	if res.Metrics.Shares != 1 || res.Metrics.TapeClones != 1 {
		t.Errorf("Shares = %d, TapeClones = %d; want 1, 1", res.Metrics.Shares, res.Metrics.TapeClones)
	}
}

func TestSimulator_NonWritingSiblings_ShareTape(t *testing.T) {
	table := mustTable(t, []string{"0 a a R 1", "0 a a R 2", "1 _ _ S 1", "2 _ _ S 2"}, nil)

	res := runInput(t, table, 4, "a")

	if res.Verdict != Undefined {
		t.Errorf("verdict = %v, want UNDEFINED", res.Verdict)
	}
	if res.Metrics.TapeClones != 0 {
		t.Errorf("TapeClones = %d, want 0", res.Metrics.TapeClones)
	}
	if res.Metrics.Shares != 2 {
		t.Errorf("Shares = %d, want 2", res.Metrics.Shares)
	}
	// both branches are still alive when the budget runs out
	if res.Metrics.Abandoned != 2 {
		t.Errorf("Abandoned = %d, want 2", res.Metrics.Abandoned)
	}
}

func TestSimulator_Accept_AbandonsQueuedSiblings(t *testing.T) {
	// GIVEN a fork whose first successor loops and whose second accepts
	table := mustTable(t, []string{"0 a a S 0", "0 a a S 1"}, []int{1})

	// WHEN run with a budget of one round
	res := runInput(t, table, 1, "a")

	// THEN the run accepts in round 1 and the looping branch is released
	if res.Verdict != Accept || res.Rounds != 1 {
		t.Errorf("got %v at round %d, want ACCEPT at round 1", res.Verdict, res.Rounds)
	}
	if res.Metrics.Abandoned != 1 {
		t.Errorf("Abandoned = %d, want 1", res.Metrics.Abandoned)
	}
}

func TestSimulator_ExponentialFanOut_PeakFrontier(t *testing.T) {
	// GIVEN a machine that doubles its branches on every input symbol
	table := mustTable(t, []string{"0 a a R 0", "0 a a R 0"}, nil)

	// WHEN four symbols are read
	res := runInput(t, table, 10, "aaaa")

	// THEN 16 branches fall off the input in round 5 and the run rejects
	if res.Verdict != Reject || res.Rounds != 5 {
		t.Errorf("got %v at round %d, want REJECT at round 5", res.Verdict, res.Rounds)
	}
	if res.Metrics.PeakFrontier != 16 {
		t.Errorf("PeakFrontier = %d, want 16", res.Metrics.PeakFrontier)
	}
	if res.Metrics.DeadBranches != 16 {
		t.Errorf("DeadBranches = %d, want 16", res.Metrics.DeadBranches)
	}
	if res.Metrics.Branches != 1+2+4+8+16 {
		t.Errorf("Branches = %d, want 31", res.Metrics.Branches)
	}
}

func TestSimulator_OutOfMemory_ReleasesAllTapes(t *testing.T) {
	// GIVEN a machine that walks right forever and a one-segment budget
	table := mustTable(t, []string{"0 a a R 0", "0 _ _ R 0"}, nil)
	sim := NewSimulator(table, SimConfig{IterationLimit: 10, SegmentSize: 2, MaxSegments: 1})

	// WHEN the head leaves the first segment
	res, err := sim.Run(context.Background(), SymbolsOf("a"))

	// THEN the run fails with ErrOutOfMemory and nothing leaks
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("err = %v, want ErrOutOfMemory", err)
	}
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
	if sim.Arena.LiveTapes() != 0 || sim.Arena.LiveSegments() != 0 {
		t.Errorf("leaked: tapes %d, segments %d", sim.Arena.LiveTapes(), sim.Arena.LiveSegments())
	}
}

func TestSimulator_OutOfMemory_DuringFork_ReleasesSharers(t *testing.T) {
	// GIVEN a fork with one sharing successor and two writers, and room for
	// only one clone
	table := mustTable(t, []string{"0 a a S 1", "0 a x S 2", "0 a y S 3"}, nil)
	sim := NewSimulator(table, SimConfig{IterationLimit: 5, MaxSegments: 2})

	// WHEN the second clone cannot be made
	_, err := sim.Run(context.Background(), SymbolsOf("a"))

	// THEN the sharer's reference is unwound along with the clone
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("err = %v, want ErrOutOfMemory", err)
	}
	if sim.Arena.LiveTapes() != 0 || sim.Arena.LiveSegments() != 0 {
		t.Errorf("leaked: tapes %d, segments %d", sim.Arena.LiveTapes(), sim.Arena.LiveSegments())
	}
}

func TestSimulator_BranchBudget_ReturnsOutOfMemory(t *testing.T) {
	// GIVEN two non-writing self-loops, which double the frontier every round
	// while all branches share a single tape segment
	table := mustTable(t, []string{"0 a a S 0", "0 a a S 0"}, nil)
	sim := NewSimulator(table, SimConfig{IterationLimit: 60, MaxBranches: 8})

	// WHEN the next frontier would grow past the budget
	res, err := sim.Run(context.Background(), SymbolsOf("a"))

	// THEN the run fails with ErrOutOfMemory and every branch is released
	if !errors.Is(err, ErrOutOfMemory) {
		t.Fatalf("err = %v, want ErrOutOfMemory", err)
	}
	if res != nil {
		t.Errorf("expected nil result, got %+v", res)
	}
	if sim.Round != 4 {
		t.Errorf("failed in round %d, want 4", sim.Round)
	}
	if sim.Arena.Allocated() != 1 {
		t.Errorf("Allocated() = %d, want 1: sharing successors must not clone", sim.Arena.Allocated())
	}
	if sim.Arena.LiveTapes() != 0 || sim.Arena.LiveSegments() != 0 {
		t.Errorf("leaked: tapes %d, segments %d", sim.Arena.LiveTapes(), sim.Arena.LiveSegments())
	}
}

func TestSimulator_BranchBudget_NotHitWithinBudget(t *testing.T) {
	table := mustTable(t, []string{"0 a a S 0", "0 a a S 0"}, nil)
	res, err := NewSimulator(table, SimConfig{IterationLimit: 3, MaxBranches: 8}).Run(context.Background(), SymbolsOf("a"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Verdict != Undefined || res.Metrics.PeakFrontier != 4 {
		t.Errorf("got %v with peak frontier %d, want UNDEFINED with 4", res.Verdict, res.Metrics.PeakFrontier)
	}
}

func TestSimulator_CanceledContext_ReturnsError(t *testing.T) {
	table := mustTable(t, []string{"0 a a S 0"}, nil)
	sim := NewSimulator(table, SimConfig{IterationLimit: 1000})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Run(ctx, SymbolsOf("a"))

	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if sim.Arena.LiveTapes() != 0 {
		t.Errorf("LiveTapes() = %d, want 0", sim.Arena.LiveTapes())
	}
}

func TestSimulator_InvalidLimit_ReturnsError(t *testing.T) {
	table := mustTable(t, []string{"0 a a S 0"}, nil)
	for _, limit := range []int64{0, -3} {
		if _, err := NewSimulator(table, SimConfig{IterationLimit: limit}).Run(context.Background(), nil); err == nil {
			t.Errorf("limit %d: expected error", limit)
		}
	}
}

func TestSimulator_StartCursorAndState(t *testing.T) {
	// GIVEN a run that starts in state 1 on the second input symbol
	table := mustTable(t, []string{"1 b b S 2"}, []int{2})
	sim := NewSimulator(table, SimConfig{IterationLimit: 1, StartState: 1, StartCursor: 1})

	res, err := sim.Run(context.Background(), SymbolsOf("ab"))

	if err != nil {
		t.Fatal(err)
	}
	if res.Verdict != Accept {
		t.Errorf("verdict = %v, want ACCEPT", res.Verdict)
	}
}

func TestSimulator_RunIsRepeatable(t *testing.T) {
	// GIVEN one simulator reused across inputs
	table := mustTable(t, []string{"0 a a R 0", "0 b b R 1"}, []int{1})
	sim := NewSimulator(table, SimConfig{IterationLimit: 5, SegmentSize: 2})

	// WHEN the same inputs are run twice
	// THEN the results are identical and independent of the earlier runs
	for pass := 0; pass < 2; pass++ {
		for input, want := range map[string]Verdict{"aaab": Accept, "aaa": Reject, "aaaaab": Undefined} {
			res, err := sim.Run(context.Background(), SymbolsOf(input))
			if err != nil {
				t.Fatal(err)
			}
			if res.Verdict != want {
				t.Errorf("pass %d, %q: verdict = %v, want %v", pass, input, res.Verdict, want)
			}
		}
	}
}

func TestSimulator_Trace_IsDeterministic(t *testing.T) {
	// GIVEN a branching machine traced at branch level
	table := mustTable(t, []string{"0 a x R 1", "0 a a R 0", "1 a a R 1", "1 _ _ S 2"}, []int{2})
	runTraced := func() (*Result, *trace.SimulationTrace) {
		st := trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelBranches})
		sim := NewSimulator(table, SimConfig{IterationLimit: 20, Trace: st})
		res, err := sim.Run(context.Background(), SymbolsOf("aaa"))
		if err != nil {
			t.Fatal(err)
		}
		return res, st
	}

	// WHEN the same input is run twice
	res1, st1 := runTraced()
	res2, st2 := runTraced()

	// THEN verdicts, metrics and traces match exactly
	if res1.Verdict != Accept || res1.Verdict != res2.Verdict || res1.Rounds != res2.Rounds || res1.Metrics != res2.Metrics {
		t.Errorf("results differ or not ACCEPT: %+v vs %+v", res1, res2)
	}
	if !reflect.DeepEqual(st1, st2) {
		t.Error("traces differ between identical runs")
	}
	if int64(len(st1.Branches)) != res1.Metrics.Branches {
		t.Errorf("branch records = %d, Metrics.Branches = %d", len(st1.Branches), res1.Metrics.Branches)
	}
	if int64(len(st1.Rounds)) != res1.Rounds {
		t.Errorf("round records = %d, rounds = %d", len(st1.Rounds), res1.Rounds)
	}
	summary := trace.Summarize(st1)
	if summary.PeakFrontier != res1.Metrics.PeakFrontier {
		t.Errorf("summary PeakFrontier = %d, metrics = %d", summary.PeakFrontier, res1.Metrics.PeakFrontier)
	}
	if summary.TotalClones != int(res1.Metrics.TapeClones) {
		t.Errorf("summary TotalClones = %d, metrics = %d", summary.TotalClones, res1.Metrics.TapeClones)
	}
}

func TestNewSimulator_NilTable_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on nil table")
		}
	}()
	NewSimulator(nil, SimConfig{IterationLimit: 1})
}
