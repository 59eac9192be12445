package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ntm-sim/ntm-sim/internal/config"
	"github.com/ntm-sim/ntm-sim/internal/history"
)

// flagOverrides copies the flags a command owns into cfg when the user set them.
type flagOverrides func(cmd *cobra.Command, cfg *config.Config)

// loadConfig layers the global flags, then the command's own flags, over the
// config file and NTM_* environment, then re-validates. Commands only see
// their own flags, so flags sharing a name across commands cannot collide.
func loadConfig(cmd *cobra.Command, apply flagOverrides) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("log") {
		cfg.Log = logLevel
	}
	if flags.Changed("history") {
		cfg.History.Path = historyDB
	}
	if apply != nil {
		apply(cmd, cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runFlagOverrides applies the flags of the run command.
func runFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("limit") {
		cfg.Run.Limit = limit
	}
	if flags.Changed("start") {
		cfg.Run.StartState = startState
	}
	if flags.Changed("segment-size") {
		cfg.Run.SegmentSize = segmentSize
	}
	if flags.Changed("max-segments") {
		cfg.Run.MaxSegments = maxSegments
	}
	if flags.Changed("max-branches") {
		cfg.Run.MaxBranches = maxBranches
	}
	if flags.Changed("max-states") {
		cfg.Run.MaxStates = maxStates
	}
	if flags.Changed("workers") && workers > 0 {
		cfg.Run.Workers = workers
	}
	if flags.Changed("trace") {
		cfg.Run.Trace = traceLevel
	}
	if flags.Changed("trace-max-rounds") {
		cfg.Run.TraceMaxRounds = traceMaxRounds
	}
}

// serveFlagOverrides applies the flags of the serve command.
func serveFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
	}
}

// mustLoadConfig loads the configuration and sets the log level, exiting on error.
func mustLoadConfig(cmd *cobra.Command, apply flagOverrides) *config.Config {
	cfg, err := loadConfig(cmd, apply)
	if err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}
	level, err := logrus.ParseLevel(cfg.Log)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", cfg.Log)
	}
	logrus.SetLevel(level)
	return cfg
}

// openHistory opens the configured run history, or returns nil when disabled.
func openHistory(cfg *config.Config) *history.SQLiteStore {
	if cfg.History.Path == "" {
		return nil
	}
	store, err := history.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		logrus.Fatalf("Unable to open run history %s: %v", cfg.History.Path, err)
	}
	return store
}
