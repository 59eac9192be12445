package sim

import (
	"fmt"
	"time"
)

// Verdict is the terminal classification of a run.
type Verdict int

const (
	Reject Verdict = iota
	Accept
	Undefined
)

var verdictNames = map[Verdict]string{
	Accept:    "ACCEPT",
	Reject:    "REJECT",
	Undefined: "UNDEFINED",
}

// verdictCodes are the single-character codes printed per input line.
var verdictCodes = map[Verdict]byte{
	Accept:    '1',
	Reject:    '0',
	Undefined: 'U',
}

func (v Verdict) String() string {
	if s, ok := verdictNames[v]; ok {
		return s
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

// Code returns the one-character verdict code: '1', '0' or 'U'.
func (v Verdict) Code() byte {
	return verdictCodes[v]
}

// ParseVerdict converts a verdict name or code back into a Verdict.
func ParseVerdict(s string) (Verdict, error) {
	for v, name := range verdictNames {
		if s == name || (len(s) == 1 && s[0] == verdictCodes[v]) {
			return v, nil
		}
	}
	return 0, fmt.Errorf("unknown verdict %q", s)
}

// Result is the outcome of one run.
type Result struct {
	Verdict Verdict
	// Rounds is the number of rounds processed: the round an accepting state
	// was entered, the last round with live branches, or the iteration limit.
	Rounds  int64
	Metrics RunMetrics
	Elapsed time.Duration // wall-clock time of the run
}

// verdictFor applies the aggregation rule at a round boundary. ACCEPT is
// decided inside a round and never reaches here.
func verdictFor(frontierLen int, round, limit int64) (Verdict, bool) {
	if frontierLen == 0 {
		return Reject, true
	}
	if round > limit {
		return Undefined, true
	}
	return 0, false
}
