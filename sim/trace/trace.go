package trace

// TraceLevel controls the verbosity of run tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelRounds captures one record per round.
	TraceLevelRounds TraceLevel = "rounds"
	// TraceLevelBranches captures round records plus one record per stepped branch.
	TraceLevelBranches TraceLevel = "branches"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:     true,
	TraceLevelRounds:   true,
	TraceLevelBranches: true,
	"":                 true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// TraceConfig controls trace collection behavior.
type TraceConfig struct {
	Level     TraceLevel
	MaxRounds int // stop recording after this many rounds (0 = no cap)
}

// SimulationTrace collects records during a single run.
type SimulationTrace struct {
	Config   TraceConfig
	Rounds   []RoundRecord
	Branches []BranchRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(config TraceConfig) *SimulationTrace {
	return &SimulationTrace{
		Config:   config,
		Rounds:   make([]RoundRecord, 0),
		Branches: make([]BranchRecord, 0),
	}
}

// Enabled reports whether records at the given level should be collected.
// Safe on a nil trace.
func (st *SimulationTrace) Enabled(level TraceLevel) bool {
	if st == nil {
		return false
	}
	if st.Config.MaxRounds > 0 && len(st.Rounds) >= st.Config.MaxRounds {
		return false
	}
	switch level {
	case TraceLevelRounds:
		return st.Config.Level == TraceLevelRounds || st.Config.Level == TraceLevelBranches
	case TraceLevelBranches:
		return st.Config.Level == TraceLevelBranches
	}
	return false
}

// RecordRound appends a round record.
func (st *SimulationTrace) RecordRound(record RoundRecord) {
	st.Rounds = append(st.Rounds, record)
}

// RecordBranch appends a branch record.
func (st *SimulationTrace) RecordBranch(record BranchRecord) {
	st.Branches = append(st.Branches, record)
}
