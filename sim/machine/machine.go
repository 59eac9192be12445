// Package machine reads and writes machine descriptions: the line-oriented
// text form (tr / acc / max / run sections) and an equivalent YAML form.
// Both produce a Machine, which pairs a read-only sim.Table with the
// iteration limit and the inputs to run.
package machine

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ntm-sim/ntm-sim/sim"
)

// Machine is a parsed description: the transition table with its accepting
// states, the iteration limit and the input strings to decide.
type Machine struct {
	Table     *sim.Table
	Accepting []sim.State
	Limit     int64
	Inputs    []string
}

// Hash identifies the machine independently of its inputs: a hex SHA-256 of
// its blank symbol followed by the text form of its transitions, accepting
// states and limit. Two descriptions that differ only in transition line order
// within a (state, symbol) group hash differently, since that order is
// observable.
func (m *Machine) Hash() string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %d\n", keywordBlank, m.Table.Blank())
	// writes to a bytes.Buffer cannot fail
	_ = formatTable(&buf, m)
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:])
}

// CheckInput rejects an input the table cannot tell apart from blank tape:
// the blank symbol is never a valid input symbol.
func (m *Machine) CheckInput(input string) error {
	if i := strings.IndexByte(input, byte(m.Table.Blank())); i >= 0 {
		return fmt.Errorf("%w: input %q contains the blank symbol %q at position %d",
			sim.ErrMalformedSpec, input, m.Table.Blank(), i)
	}
	return nil
}

// Config returns the run configuration this description implies.
func (m *Machine) Config() sim.SimConfig {
	return sim.SimConfig{IterationLimit: m.Limit}
}
