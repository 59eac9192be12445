package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/ntm-sim/ntm-sim/sim"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix marks the environment variables Load reads.
	EnvPrefix = "NTM_"

	// DefaultMaxBranches bounds the frontier of a run. Branches that share a
	// tape cost no segments, so the segment budget alone cannot stop a
	// frontier that doubles every round.
	DefaultMaxBranches = 1 << 20

	// DefaultServerMaxLimit caps the iteration limit of runs requested over HTTP.
	DefaultServerMaxLimit = 100_000
)

// Load reads configuration from an optional YAML file, then overrides it with
// environment variables.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (NTM_RUN_SEGMENT_SIZE, NTM_SERVER_ADDR, ...)
//  2. YAML config file at path (skipped when path is empty)
//  3. Hardcoded defaults
//
// Command-line flags sit above all three; the commands apply them to the
// returned Config.
//
// Environment variables drop the prefix, are lowercased and split on the first
// underscore into section and field:
//
//	NTM_RUN_SEGMENT_SIZE -> run.segment_size
//	NTM_HISTORY_PATH     -> history.path
//	NTM_LOG              -> log
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps NTM_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("config file %s is not a regular file", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s too large: %d bytes (max %d)", path, info.Size(), maxConfigFileSize)
	}
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Log == "" {
		cfg.Log = "error"
	}
	if cfg.Run.SegmentSize == 0 {
		cfg.Run.SegmentSize = sim.DefaultSegmentSize
	}
	if cfg.Run.MaxBranches == 0 {
		cfg.Run.MaxBranches = DefaultMaxBranches
	}
	if cfg.Run.Workers == 0 {
		cfg.Run.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Run.Trace == "" {
		cfg.Run.Trace = "none"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 4 << 20
	}
	if cfg.Server.MaxLimit == 0 {
		cfg.Server.MaxLimit = DefaultServerMaxLimit
	}
	if cfg.Server.MaxInputs == 0 {
		cfg.Server.MaxInputs = 1024
	}
}

// SimConfig returns the engine configuration for a description whose own
// iteration limit is limit; a positive Run.Limit overrides it.
func (c *Config) SimConfig(limit int64) sim.SimConfig {
	if c.Run.Limit > 0 {
		limit = c.Run.Limit
	}
	return sim.SimConfig{
		IterationLimit: limit,
		StartState:     sim.State(c.Run.StartState),
		SegmentSize:    c.Run.SegmentSize,
		MaxSegments:    c.Run.MaxSegments,
		MaxBranches:    c.Run.MaxBranches,
	}
}

// TableConfig returns the bounds descriptions are validated against.
func (c *Config) TableConfig() sim.TableConfig {
	return sim.TableConfig{MaxStates: c.Run.MaxStates, Alphabet: sim.PrintableASCII()}
}
