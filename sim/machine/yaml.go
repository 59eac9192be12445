package machine

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ntm-sim/ntm-sim/sim"
)

// Spec is the YAML form of a machine description.
// Loaded via LoadYAML(path) or DecodeYAML(r); unknown fields are rejected.
type Spec struct {
	Blank       string           `yaml:"blank,omitempty"` // single character; empty means the table default
	Limit       int64            `yaml:"limit"`
	Accepting   []int            `yaml:"accepting"`
	Transitions []TransitionSpec `yaml:"transitions"`
	Inputs      []string         `yaml:"inputs,omitempty"`
}

// TransitionSpec is one transition in the YAML form.
type TransitionSpec struct {
	From  int    `yaml:"from"`
	Read  string `yaml:"read"`
	Write string `yaml:"write"`
	Move  string `yaml:"move"` // L, S or R
	To    int    `yaml:"to"`
}

// LoadYAML reads and builds a YAML description from path.
func LoadYAML(path string, config sim.TableConfig) (*Machine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading machine spec: %w", err)
	}
	return DecodeYAML(bytes.NewReader(data), config)
}

// DecodeYAML parses a YAML description from r and builds it.
func DecodeYAML(r io.Reader, config sim.TableConfig) (*Machine, error) {
	var spec Spec
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&spec); err != nil {
		return nil, fmt.Errorf("parsing machine spec: %w", err)
	}
	return spec.Build(config)
}

// Validate checks the fields that do not depend on table bounds.
func (s *Spec) Validate() error {
	if s.Limit < 1 {
		return fmt.Errorf("%w: limit must be >= 1, got %d", sim.ErrMalformedSpec, s.Limit)
	}
	if len(s.Blank) > 1 {
		return fmt.Errorf("%w: blank must be a single character, got %q", sim.ErrMalformedSpec, s.Blank)
	}
	for i, tr := range s.Transitions {
		prefix := fmt.Sprintf("transitions[%d]", i)
		if len(tr.Read) != 1 {
			return fmt.Errorf("%w: %s: read must be a single character, got %q", sim.ErrMalformedSpec, prefix, tr.Read)
		}
		if len(tr.Write) != 1 {
			return fmt.Errorf("%w: %s: write must be a single character, got %q", sim.ErrMalformedSpec, prefix, tr.Write)
		}
	}
	return nil
}

// Build validates the spec and turns it into a Machine.
func (s *Spec) Build(config sim.TableConfig) (*Machine, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.Blank != "" {
		config.Blank = sim.Symbol(s.Blank[0])
	}
	table := sim.NewTable(config)
	for i, ts := range s.Transitions {
		move, err := sim.ParseMove(ts.Move)
		if err != nil {
			return nil, fmt.Errorf("transitions[%d]: %w", i, err)
		}
		tr := sim.Transition{
			From:  sim.State(ts.From),
			Read:  sim.Symbol(ts.Read[0]),
			Write: sim.Symbol(ts.Write[0]),
			Move:  move,
			To:    sim.State(ts.To),
		}
		if err := table.Add(tr); err != nil {
			return nil, fmt.Errorf("transitions[%d]: %w", i, err)
		}
	}
	for _, st := range s.Accepting {
		if err := table.MarkAccepting(sim.State(st)); err != nil {
			return nil, fmt.Errorf("accepting: %w", err)
		}
	}
	m := &Machine{
		Table:     table,
		Accepting: table.Accepting(),
		Limit:     s.Limit,
		Inputs:    append([]string(nil), s.Inputs...),
	}
	for i, in := range m.Inputs {
		if err := m.CheckInput(in); err != nil {
			return nil, fmt.Errorf("inputs[%d]: %w", i, err)
		}
	}
	return m, nil
}

// ToSpec returns the YAML form of m.
func ToSpec(m *Machine) *Spec {
	spec := &Spec{Limit: m.Limit, Inputs: m.Inputs, Accepting: []int{}}
	if b := m.Table.Blank(); b != sim.DefaultBlank {
		spec.Blank = string(rune(b))
	}
	for _, s := range m.Table.Accepting() {
		spec.Accepting = append(spec.Accepting, int(s))
	}
	for _, tr := range m.Table.Transitions() {
		spec.Transitions = append(spec.Transitions, TransitionSpec{
			From:  int(tr.From),
			Read:  string(rune(tr.Read)),
			Write: string(rune(tr.Write)),
			Move:  tr.Move.String(),
			To:    int(tr.To),
		})
	}
	return spec
}

// EncodeYAML writes m in the YAML form.
func EncodeYAML(w io.Writer, m *Machine) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(ToSpec(m)); err != nil {
		return fmt.Errorf("encoding machine spec: %w", err)
	}
	return enc.Close()
}
