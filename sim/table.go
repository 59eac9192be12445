package sim

import (
	"errors"
	"fmt"
	"sort"
)

// ErrMalformedSpec is returned when a transition or accepting state is
// inconsistent with the table's declared bounds.
var ErrMalformedSpec = errors.New("malformed machine spec")

// State identifies a machine state. Valid states are non-negative.
type State int

// Symbol is a single tape symbol.
type Symbol byte

// DefaultBlank is the blank symbol used when a TableConfig leaves Blank unset.
const DefaultBlank Symbol = '_'

// Move is the head movement of a transition.
type Move int8

const (
	Left  Move = -1
	Stay  Move = 0
	Right Move = 1
)

// validMoves maps accepted move letters to moves.
var validMoves = map[byte]Move{'L': Left, 'S': Stay, 'R': Right}

// ParseMove converts a move letter (L, S, R) into a Move.
func ParseMove(s string) (Move, error) {
	if len(s) != 1 {
		return 0, fmt.Errorf("%w: invalid move %q", ErrMalformedSpec, s)
	}
	m, ok := validMoves[s[0]]
	if !ok {
		return 0, fmt.Errorf("%w: invalid move %q", ErrMalformedSpec, s)
	}
	return m, nil
}

// Valid reports whether m is one of Left, Stay, Right.
func (m Move) Valid() bool {
	return m == Left || m == Stay || m == Right
}

func (m Move) String() string {
	switch m {
	case Left:
		return "L"
	case Right:
		return "R"
	case Stay:
		return "S"
	}
	return fmt.Sprintf("Move(%d)", int8(m))
}

// Transition is one entry of the transition relation. Several transitions may
// share (From, Read); that plurality is the machine's non-determinism.
type Transition struct {
	From  State
	Read  Symbol
	Write Symbol
	Move  Move
	To    State
}

func (t Transition) String() string {
	return fmt.Sprintf("%d %c %c %s %d", t.From, t.Read, t.Write, t.Move, t.To)
}

// Alphabet is the set of symbols a table accepts in its transitions, besides
// the blank. The zero value accepts every symbol.
type Alphabet struct {
	set   [256]bool
	bound bool
}

// NewAlphabet builds an Alphabet from the given symbols.
func NewAlphabet(symbols ...Symbol) Alphabet {
	a := Alphabet{bound: true}
	for _, s := range symbols {
		a.set[s] = true
	}
	return a
}

// PrintableASCII returns the alphabet of visible ASCII characters, which is
// what the text description format can express.
func PrintableASCII() Alphabet {
	a := Alphabet{bound: true}
	for c := 0x21; c <= 0x7e; c++ {
		a.set[c] = true
	}
	return a
}

// Contains reports whether s belongs to the alphabet.
func (a Alphabet) Contains(s Symbol) bool {
	return !a.bound || a.set[s]
}

// TableConfig declares the bounds a Table validates transitions against.
type TableConfig struct {
	MaxStates int      // exclusive upper bound on state indices (0 = unbounded)
	Alphabet  Alphabet // allowed read/write symbols besides Blank (zero value = any)
	Blank     Symbol   // blank symbol (0 = DefaultBlank)
}

// stateEntry holds the outgoing transitions of one state, grouped by read symbol.
type stateEntry struct {
	accepting bool
	bySymbol  map[Symbol][]Transition
}

// Table maps (state, symbol) to the ordered set of transitions leaving it.
// It is built once and read-only while simulations run, so a single Table may
// back concurrent runs.
type Table struct {
	config         TableConfig
	states         []stateEntry
	numStates      int // one more than the highest state named so far
	numTransitions int
}

// NewTable creates an empty Table with the given bounds.
func NewTable(config TableConfig) *Table {
	if config.Blank == 0 {
		config.Blank = DefaultBlank
	}
	return &Table{config: config}
}

// Blank returns the table's blank symbol.
func (t *Table) Blank() Symbol {
	return t.config.Blank
}

// Config returns the bounds the table validates against.
func (t *Table) Config() TableConfig {
	return t.config
}

func (t *Table) checkState(s State) error {
	if s < 0 {
		return fmt.Errorf("%w: negative state %d", ErrMalformedSpec, s)
	}
	if t.config.MaxStates > 0 && int(s) >= t.config.MaxStates {
		return fmt.Errorf("%w: state %d exceeds declared bound %d", ErrMalformedSpec, s, t.config.MaxStates)
	}
	return nil
}

func (t *Table) checkSymbol(s Symbol) error {
	if s == t.config.Blank || t.config.Alphabet.Contains(s) {
		return nil
	}
	return fmt.Errorf("%w: symbol %q outside the tape alphabet", ErrMalformedSpec, s)
}

// grow extends state storage so that s is addressable. Existing entries keep
// their transition slices, so lookups taken before growth stay valid.
func (t *Table) grow(s State) {
	if int(s) < len(t.states) {
		return
	}
	n := int(s) + 1
	if c := 2 * len(t.states); c > n {
		n = c
	}
	if t.config.MaxStates > 0 && n > t.config.MaxStates {
		n = t.config.MaxStates
	}
	grown := make([]stateEntry, n)
	copy(grown, t.states)
	t.states = grown
}

// Add inserts a transition. Transitions sharing (From, Read) are kept in
// insertion order, which is the order branches are spawned in.
func (t *Table) Add(tr Transition) error {
	if err := t.checkState(tr.From); err != nil {
		return err
	}
	if err := t.checkState(tr.To); err != nil {
		return err
	}
	if err := t.checkSymbol(tr.Read); err != nil {
		return err
	}
	if err := t.checkSymbol(tr.Write); err != nil {
		return err
	}
	if !tr.Move.Valid() {
		return fmt.Errorf("%w: invalid move %d", ErrMalformedSpec, tr.Move)
	}

	t.grow(max(tr.From, tr.To))
	t.numStates = max(t.numStates, int(tr.From)+1, int(tr.To)+1)
	entry := &t.states[tr.From]
	if entry.bySymbol == nil {
		entry.bySymbol = make(map[Symbol][]Transition)
	}
	entry.bySymbol[tr.Read] = append(entry.bySymbol[tr.Read], tr)
	t.numTransitions++
	return nil
}

// MarkAccepting flags s as accepting. Marking twice is a no-op.
func (t *Table) MarkAccepting(s State) error {
	if err := t.checkState(s); err != nil {
		return err
	}
	t.grow(s)
	t.numStates = max(t.numStates, int(s)+1)
	t.states[s].accepting = true
	return nil
}

// IsAccepting reports whether s is an accepting state.
func (t *Table) IsAccepting(s State) bool {
	if s < 0 || int(s) >= len(t.states) {
		return false
	}
	return t.states[s].accepting
}

// Lookup returns the transitions leaving s on symbol sym, in insertion order.
// The returned slice is the table's storage and MUST NOT be modified.
func (t *Table) Lookup(s State, sym Symbol) []Transition {
	if s < 0 || int(s) >= len(t.states) {
		return nil
	}
	return t.states[s].bySymbol[sym]
}

// NumStates returns one more than the highest state index named so far, as
// a source, a target or an accepting state.
func (t *Table) NumStates() int {
	return t.numStates
}

// NumTransitions returns the number of transitions added.
func (t *Table) NumTransitions() int {
	return t.numTransitions
}

// Accepting returns the accepting states in ascending order.
func (t *Table) Accepting() []State {
	var out []State
	for i := range t.states {
		if t.states[i].accepting {
			out = append(out, State(i))
		}
	}
	return out
}

// Transitions returns every transition ordered by source state, then read
// symbol, then insertion order.
func (t *Table) Transitions() []Transition {
	out := make([]Transition, 0, t.numTransitions)
	for i := range t.states {
		syms := make([]Symbol, 0, len(t.states[i].bySymbol))
		for sym := range t.states[i].bySymbol {
			syms = append(syms, sym)
		}
		sort.Slice(syms, func(a, b int) bool { return syms[a] < syms[b] })
		for _, sym := range syms {
			out = append(out, t.states[i].bySymbol[sym]...)
		}
	}
	return out
}
