// Package history persists run outcomes so they can be listed and compared
// across invocations of the CLI and the HTTP server.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ntm-sim/ntm-sim/sim"
)

// ErrNotFound is returned when a run is not found.
var ErrNotFound = errors.New("run not found")

// Run is one decided input.
type Run struct {
	ID          string         `json:"id"`
	MachineHash string         `json:"machine_hash"`
	Input       string         `json:"input"`
	Verdict     string         `json:"verdict"`
	Rounds      int64          `json:"rounds"`
	Metrics     sim.RunMetrics `json:"metrics"`
	DurationUS  int64          `json:"duration_us"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewRun builds a Run from a result, with a fresh ID and the current time.
func NewRun(machineHash, input string, res *sim.Result) *Run {
	return &Run{
		ID:          NewID(),
		MachineHash: machineHash,
		Input:       input,
		Verdict:     res.Verdict.String(),
		Rounds:      res.Rounds,
		Metrics:     res.Metrics,
		DurationUS:  res.Elapsed.Microseconds(),
		CreatedAt:   time.Now().UTC(),
	}
}

// NewID generates a new ULID string. ULIDs sort by creation time.
func NewID() string {
	return ulid.Make().String()
}

// Stats holds aggregate run statistics.
type Stats struct {
	Total          int            `json:"total"`
	Machines       int            `json:"machines"`
	CountByVerdict map[string]int `json:"count_by_verdict"`
	AvgRounds      float64        `json:"avg_rounds"`
	MaxRounds      int64          `json:"max_rounds"`
}

// Store defines the persistence operations for runs.
type Store interface {
	RecordRun(ctx context.Context, r *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, int, error)
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}
