// Package config holds the settings shared by the ntm-sim commands: engine
// bounds for runs, the HTTP server and the run history store.
package config

import (
	"fmt"
	"time"

	"github.com/ntm-sim/ntm-sim/sim/trace"
)

// Config is the root configuration.
type Config struct {
	Log     string        `koanf:"log"` // logrus level name
	Run     RunConfig     `koanf:"run"`
	Server  ServerConfig  `koanf:"server"`
	History HistoryConfig `koanf:"history"`
}

// RunConfig bounds a single run.
type RunConfig struct {
	Limit       int64  `koanf:"limit"`        // overrides the description's max when > 0
	StartState  int    `koanf:"start_state"`
	SegmentSize int    `koanf:"segment_size"` // symbols per tape segment
	MaxSegments int    `koanf:"max_segments"` // live segment budget per run (0 = unbounded)
	MaxBranches int    `koanf:"max_branches"` // frontier budget per run
	MaxStates   int    `koanf:"max_states"`   // reject descriptions using states >= this (0 = unbounded)
	Workers     int    `koanf:"workers"`      // inputs run concurrently
	Trace       string `koanf:"trace"`        // none, rounds or branches
	// TraceMaxRounds stops trace recording after this many rounds (0 = no cap).
	TraceMaxRounds int `koanf:"trace_max_rounds"`
}

// ServerConfig configures `ntm-sim serve`.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
	MaxInputs       int           `koanf:"max_inputs"` // inputs accepted per request
	MaxLimit        int64         `koanf:"max_limit"`  // iteration limits above this are clamped
	CORSOrigins     []string      `koanf:"cors_origins"`
}

// HistoryConfig locates the run history database. An empty path disables it.
type HistoryConfig struct {
	Path string `koanf:"path"`
}

// Validate checks value ranges after defaults have been applied.
func (c *Config) Validate() error {
	if c.Run.Limit < 0 {
		return fmt.Errorf("run.limit must be >= 0, got %d", c.Run.Limit)
	}
	if c.Run.StartState < 0 {
		return fmt.Errorf("run.start_state must be >= 0, got %d", c.Run.StartState)
	}
	if c.Run.SegmentSize <= 0 {
		return fmt.Errorf("run.segment_size must be positive, got %d", c.Run.SegmentSize)
	}
	if c.Run.MaxSegments < 0 {
		return fmt.Errorf("run.max_segments must be >= 0, got %d", c.Run.MaxSegments)
	}
	if c.Run.MaxBranches <= 0 {
		return fmt.Errorf("run.max_branches must be positive, got %d", c.Run.MaxBranches)
	}
	if c.Run.TraceMaxRounds < 0 {
		return fmt.Errorf("run.trace_max_rounds must be >= 0, got %d", c.Run.TraceMaxRounds)
	}
	if c.Run.MaxStates < 0 {
		return fmt.Errorf("run.max_states must be >= 0, got %d", c.Run.MaxStates)
	}
	if c.Run.Workers <= 0 {
		return fmt.Errorf("run.workers must be positive, got %d", c.Run.Workers)
	}
	if !trace.IsValidTraceLevel(c.Run.Trace) {
		return fmt.Errorf("run.trace: unknown level %q; valid: none, rounds, branches", c.Run.Trace)
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes)
	}
	if c.Server.MaxLimit <= 0 {
		return fmt.Errorf("server.max_limit must be positive, got %d", c.Server.MaxLimit)
	}
	if c.Server.MaxInputs <= 0 {
		return fmt.Errorf("server.max_inputs must be positive, got %d", c.Server.MaxInputs)
	}
	return nil
}
