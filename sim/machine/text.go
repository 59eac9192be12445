package machine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ntm-sim/ntm-sim/sim"
)

// ErrSyntax is returned when a text description does not follow the
// tr / acc / max / run layout.
var ErrSyntax = errors.New("machine description syntax error")

// section keywords, in the order they must appear; "blank" is optional
const (
	keywordBlank       = "blank"
	keywordTransitions = "tr"
	keywordAccepting   = "acc"
	keywordLimit       = "max"
	keywordRun         = "run"
)

type token struct {
	text string
	line int
}

// tokenizer yields whitespace-separated words up to and including "run", then
// hands the remaining lines over as raw inputs.
type tokenizer struct {
	sc      *bufio.Scanner
	line    int
	pending []token
}

func (tz *tokenizer) next() (token, error) {
	for len(tz.pending) == 0 {
		if !tz.sc.Scan() {
			if err := tz.sc.Err(); err != nil {
				return token{}, fmt.Errorf("reading machine description: %w", err)
			}
			return token{}, io.EOF
		}
		tz.line++
		for _, w := range strings.Fields(tz.sc.Text()) {
			tz.pending = append(tz.pending, token{text: w, line: tz.line})
		}
	}
	t := tz.pending[0]
	tz.pending = tz.pending[1:]
	return t, nil
}

func (tz *tokenizer) expect(keyword string) error {
	t, err := tz.next()
	if err == io.EOF {
		return fmt.Errorf("%w: unexpected end of input, want %q", ErrSyntax, keyword)
	}
	if err != nil {
		return err
	}
	if t.text != keyword {
		return fmt.Errorf("%w: line %d: got %q, want %q", ErrSyntax, t.line, t.text, keyword)
	}
	return nil
}

// Parse reads a text description from r. Transitions are validated against
// config as they are added.
//
// An optional "blank X" directive before "tr" overrides the table's blank
// symbol. Inputs are the lines following "run". Spaces inside an input line
// are dropped and lines left empty are skipped, so an input is never empty;
// use the YAML form to run the empty input. An input containing the blank
// symbol is an error.
func Parse(r io.Reader, config sim.TableConfig) (*Machine, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	tz := &tokenizer{sc: sc}

	first, err := tz.next()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: unexpected end of input, want %q", ErrSyntax, keywordTransitions)
	}
	if err != nil {
		return nil, err
	}
	if first.text == keywordBlank {
		t, err := tz.next()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: line %d: missing blank symbol", ErrSyntax, first.line)
		}
		if err != nil {
			return nil, err
		}
		if config.Blank, err = parseSymbol(t); err != nil {
			return nil, err
		}
		if err := tz.expect(keywordTransitions); err != nil {
			return nil, err
		}
	} else if first.text != keywordTransitions {
		return nil, fmt.Errorf("%w: line %d: got %q, want %q", ErrSyntax, first.line, first.text, keywordTransitions)
	}
	table := sim.NewTable(config)
	m := &Machine{Table: table}

	// transitions: groups of five words until "acc"
	for {
		t, err := tz.next()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: unexpected end of input, want %q", ErrSyntax, keywordAccepting)
		}
		if err != nil {
			return nil, err
		}
		if t.text == keywordAccepting {
			break
		}
		fields := []token{t}
		for len(fields) < 5 {
			f, err := tz.next()
			if err == io.EOF {
				return nil, fmt.Errorf("%w: line %d: truncated transition", ErrSyntax, t.line)
			}
			if err != nil {
				return nil, err
			}
			fields = append(fields, f)
		}
		tr, err := parseTransition(fields)
		if err != nil {
			return nil, err
		}
		if err := table.Add(tr); err != nil {
			return nil, fmt.Errorf("line %d: %w", t.line, err)
		}
	}

	// accepting states until "max"
	for {
		t, err := tz.next()
		if err == io.EOF {
			return nil, fmt.Errorf("%w: unexpected end of input, want %q", ErrSyntax, keywordLimit)
		}
		if err != nil {
			return nil, err
		}
		if t.text == keywordLimit {
			break
		}
		s, err := parseState(t)
		if err != nil {
			return nil, err
		}
		if err := table.MarkAccepting(s); err != nil {
			return nil, fmt.Errorf("line %d: %w", t.line, err)
		}
	}
	m.Accepting = table.Accepting()

	t, err := tz.next()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing iteration limit", ErrSyntax)
	}
	if err != nil {
		return nil, err
	}
	m.Limit, err = strconv.ParseInt(t.text, 10, 64)
	if err != nil || m.Limit < 1 {
		return nil, fmt.Errorf("%w: line %d: iteration limit must be a positive integer, got %q", ErrSyntax, t.line, t.text)
	}

	if err := tz.expect(keywordRun); err != nil {
		return nil, err
	}
	if len(tz.pending) > 0 {
		return nil, fmt.Errorf("%w: line %d: unexpected %q after %q", ErrSyntax, tz.pending[0].line, tz.pending[0].text, keywordRun)
	}

	line := tz.line
	for sc.Scan() {
		line++
		input := strings.Map(func(r rune) rune {
			if r == ' ' || r == '\t' || r == '\r' {
				return -1
			}
			return r
		}, sc.Text())
		if input == "" {
			continue
		}
		if err := m.CheckInput(input); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		m.Inputs = append(m.Inputs, input)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading machine inputs: %w", err)
	}
	return m, nil
}

func parseState(t token) (sim.State, error) {
	n, err := strconv.Atoi(t.text)
	if err != nil {
		return 0, fmt.Errorf("%w: line %d: invalid state %q", ErrSyntax, t.line, t.text)
	}
	return sim.State(n), nil
}

func parseSymbol(t token) (sim.Symbol, error) {
	if len(t.text) != 1 {
		return 0, fmt.Errorf("%w: line %d: symbol must be a single character, got %q", ErrSyntax, t.line, t.text)
	}
	return sim.Symbol(t.text[0]), nil
}

func parseTransition(f []token) (sim.Transition, error) {
	var tr sim.Transition
	var err error
	if tr.From, err = parseState(f[0]); err != nil {
		return tr, err
	}
	if tr.Read, err = parseSymbol(f[1]); err != nil {
		return tr, err
	}
	if tr.Write, err = parseSymbol(f[2]); err != nil {
		return tr, err
	}
	if tr.Move, err = sim.ParseMove(f[3].text); err != nil {
		return tr, fmt.Errorf("line %d: %w", f[3].line, err)
	}
	if tr.To, err = parseState(f[4]); err != nil {
		return tr, err
	}
	return tr, nil
}

// Format writes m in the text form Parse reads. Transitions are emitted in
// Table.Transitions order, so formatting a parsed description preserves the
// order of transitions sharing a (state, symbol) pair. A non-default blank is
// written as a "blank" directive.
//
// Descriptions the text form cannot carry are refused: a whitespace blank, an
// empty input, or an input containing whitespace.
func Format(w io.Writer, m *Machine) error {
	blank := m.Table.Blank()
	if isSpace(byte(blank)) {
		return fmt.Errorf("%w: blank %q cannot be written in the text form", ErrSyntax, blank)
	}
	for i, in := range m.Inputs {
		if in == "" || strings.ContainsAny(in, spaceChars) {
			return fmt.Errorf("%w: input %d %q cannot be written in the text form", ErrSyntax, i, in)
		}
	}

	bw := bufio.NewWriter(w)
	if blank != sim.DefaultBlank {
		fmt.Fprintf(bw, "%s %c\n", keywordBlank, byte(blank))
	}
	formatTable(bw, m)
	fmt.Fprintln(bw, keywordRun)
	for _, in := range m.Inputs {
		fmt.Fprintln(bw, in)
	}
	return bw.Flush()
}

// formatTable writes the tr, acc and max sections.
func formatTable(w io.Writer, m *Machine) error {
	fmt.Fprintln(w, keywordTransitions)
	for _, tr := range m.Table.Transitions() {
		fmt.Fprintln(w, tr.String())
	}
	fmt.Fprintln(w, keywordAccepting)
	for _, s := range m.Table.Accepting() {
		fmt.Fprintln(w, int(s))
	}
	fmt.Fprintln(w, keywordLimit)
	_, err := fmt.Fprintln(w, m.Limit)
	return err
}

const spaceChars = " \t\r\n\v\f"

func isSpace(b byte) bool {
	return strings.IndexByte(spaceChars, b) >= 0
}
