package sim

import (
	"context"
	"strconv"
	"strings"
	"testing"
)

// mustTable builds a Table from "from read write move to" lines and a list of
// accepting states, failing the test on any malformed entry.
func mustTable(t *testing.T, transitions []string, accepting []int) *Table {
	t.Helper()
	table := NewTable(TableConfig{})
	for _, line := range transitions {
		f := strings.Fields(line)
		if len(f) != 5 || len(f[1]) != 1 || len(f[2]) != 1 {
			t.Fatalf("bad transition line %q", line)
		}
		from, err := strconv.Atoi(f[0])
		if err != nil {
			t.Fatalf("bad source state in %q: %v", line, err)
		}
		to, err := strconv.Atoi(f[4])
		if err != nil {
			t.Fatalf("bad target state in %q: %v", line, err)
		}
		move, err := ParseMove(f[3])
		if err != nil {
			t.Fatalf("bad move in %q: %v", line, err)
		}
		tr := Transition{From: State(from), Read: Symbol(f[1][0]), Write: Symbol(f[2][0]), Move: move, To: State(to)}
		if err := table.Add(tr); err != nil {
			t.Fatalf("Add(%v): %v", tr, err)
		}
	}
	for _, s := range accepting {
		if err := table.MarkAccepting(State(s)); err != nil {
			t.Fatalf("MarkAccepting(%d): %v", s, err)
		}
	}
	return table
}

// runInput runs input on table with the given limit and a small segment size,
// so that tests exercise segment growth.
func runInput(t *testing.T, table *Table, limit int64, input string) *Result {
	t.Helper()
	sim := NewSimulator(table, SimConfig{IterationLimit: limit, SegmentSize: 4})
	res, err := sim.Run(context.Background(), SymbolsOf(input))
	if err != nil {
		t.Fatalf("Run(%q): unexpected error: %v", input, err)
	}
	if live := sim.Arena.LiveTapes(); live != 0 {
		t.Errorf("Run(%q): %d tapes still live", input, live)
	}
	if seg := sim.Arena.LiveSegments(); seg != 0 {
		t.Errorf("Run(%q): %d segments still live", input, seg)
	}
	return res
}

// newTestTape builds a tape over a fresh arena with the given segment size.
func newTestTape(t *testing.T, segmentSize int, input string) (*Arena, *Tape) {
	t.Helper()
	arena := NewArena(segmentSize, 0)
	tape, err := NewTape(arena, DefaultBlank, SymbolsOf(input))
	if err != nil {
		t.Fatalf("NewTape(%q): %v", input, err)
	}
	return arena, tape
}
