package sim

import (
	"errors"
	"testing"
)

func TestTable_Lookup_PreservesInsertionOrder(t *testing.T) {
	// GIVEN two transitions sharing (state, symbol)
	table := mustTable(t, []string{"0 a b R 1", "0 a c L 2", "0 b b S 0"}, nil)

	// WHEN looking up (0, 'a')
	got := table.Lookup(0, 'a')

	// THEN both come back in the order they were added
	if len(got) != 2 {
		t.Fatalf("Lookup(0, a) returned %d transitions, want 2", len(got))
	}
	if got[0].To != 1 || got[1].To != 2 {
		t.Errorf("Lookup order = %v, want targets [1 2]", got)
	}
	if table.NumTransitions() != 3 {
		t.Errorf("NumTransitions() = %d, want 3", table.NumTransitions())
	}
}

func TestTable_Lookup_Missing_ReturnsEmpty(t *testing.T) {
	table := mustTable(t, []string{"0 a a R 1"}, nil)
	tests := []struct {
		name  string
		state State
		sym   Symbol
	}{
		{"unknown symbol", 0, 'z'},
		{"state without transitions", 1, 'a'},
		{"state beyond the table", 42, 'a'},
		{"negative state", -1, 'a'},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := table.Lookup(tc.state, tc.sym); len(got) != 0 {
				t.Errorf("Lookup(%d, %q) = %v, want empty", tc.state, tc.sym, got)
			}
		})
	}
}

func TestTable_Add_RejectsMalformedEntries(t *testing.T) {
	table := NewTable(TableConfig{MaxStates: 3, Alphabet: NewAlphabet('a', 'b')})
	tests := []struct {
		name string
		tr   Transition
	}{
		{"negative source", Transition{From: -1, Read: 'a', Write: 'a', Move: Right, To: 0}},
		{"target out of bound", Transition{From: 0, Read: 'a', Write: 'a', Move: Right, To: 3}},
		{"read outside alphabet", Transition{From: 0, Read: 'x', Write: 'a', Move: Right, To: 1}},
		{"write outside alphabet", Transition{From: 0, Read: 'a', Write: 'x', Move: Right, To: 1}},
		{"invalid move", Transition{From: 0, Read: 'a', Write: 'a', Move: 2, To: 1}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := table.Add(tc.tr)
			if !errors.Is(err, ErrMalformedSpec) {
				t.Errorf("Add(%v) error = %v, want ErrMalformedSpec", tc.tr, err)
			}
		})
	}
	if table.NumTransitions() != 0 {
		t.Errorf("rejected transitions were stored: %d", table.NumTransitions())
	}
}

func TestTable_Add_BlankAlwaysAllowed(t *testing.T) {
	table := NewTable(TableConfig{Alphabet: NewAlphabet('a')})
	if err := table.Add(Transition{From: 0, Read: DefaultBlank, Write: 'a', Move: Stay, To: 0}); err != nil {
		t.Errorf("blank read rejected: %v", err)
	}
}

func TestTable_MarkAccepting(t *testing.T) {
	table := NewTable(TableConfig{MaxStates: 4})
	for _, s := range []State{3, 1, 3} {
		if err := table.MarkAccepting(s); err != nil {
			t.Fatalf("MarkAccepting(%d): %v", s, err)
		}
	}
	if !table.IsAccepting(1) || !table.IsAccepting(3) || table.IsAccepting(0) || table.IsAccepting(9) {
		t.Errorf("IsAccepting mismatch, accepting = %v", table.Accepting())
	}
	got := table.Accepting()
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("Accepting() = %v, want [1 3]", got)
	}
	if err := table.MarkAccepting(4); !errors.Is(err, ErrMalformedSpec) {
		t.Errorf("MarkAccepting(4) error = %v, want ErrMalformedSpec", err)
	}
	if table.NumStates() != 4 {
		t.Errorf("NumStates() = %d, want 4", table.NumStates())
	}
}

func TestTable_Transitions_SortedByStateThenSymbol(t *testing.T) {
	table := mustTable(t, []string{"2 a a R 0", "0 b b R 1", "0 a x R 1", "0 a y R 2"}, nil)
	got := table.Transitions()
	want := []string{"0 a x R 1", "0 a y R 2", "0 b b R 1", "2 a a R 0"}
	if len(got) != len(want) {
		t.Fatalf("Transitions() returned %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].String() != want[i] {
			t.Errorf("Transitions()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseMove(t *testing.T) {
	tests := []struct {
		in      string
		want    Move
		wantErr bool
	}{
		{"L", Left, false},
		{"S", Stay, false},
		{"R", Right, false},
		{"l", 0, true},
		{"", 0, true},
		{"RR", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseMove(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseMove(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ParseMove(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestAlphabet_ZeroValueAcceptsAll(t *testing.T) {
	var a Alphabet
	if !a.Contains('x') || !a.Contains(0) {
		t.Error("zero Alphabet should accept every symbol")
	}
	p := PrintableASCII()
	if !p.Contains('~') || p.Contains(' ') || p.Contains('\n') {
		t.Error("PrintableASCII bounds wrong")
	}
}

func TestTable_NumStates_CountsTargetOnlyStates(t *testing.T) {
	// GIVEN a state that only ever appears as a transition target
	table := mustTable(t, []string{"0 a a R 5"}, nil)

	// THEN it still counts toward NumStates
	if table.NumStates() != 6 {
		t.Errorf("NumStates() = %d, want 6", table.NumStates())
	}
	if NewTable(TableConfig{}).NumStates() != 0 {
		t.Error("empty table should report 0 states")
	}
}
