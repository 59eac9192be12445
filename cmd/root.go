package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ntm-sim/ntm-sim/internal/config"
	"github.com/ntm-sim/ntm-sim/internal/history"
	"github.com/ntm-sim/ntm-sim/sim"
	"github.com/ntm-sim/ntm-sim/sim/machine"
	"github.com/ntm-sim/ntm-sim/sim/trace"
)

var (
	// global flags
	configPath string // YAML config file (NTM_* env vars override it)
	logLevel   string // Log verbosity level
	historyDB  string // SQLite run history path ("" = disabled)

	// CLI flags for the run command
	machinePath    string // Machine description file ("-" = stdin)
	machineFormat  string // text, yaml, or "" to pick by file extension
	limit          int64  // Overrides the description's iteration limit
	startState     int    // State every run starts in
	segmentSize    int    // Symbols per tape segment
	maxSegments    int    // Live tape segment budget per run
	maxBranches    int    // Frontier budget per run
	maxStates      int    // Reject descriptions using states >= this
	workers        int    // Inputs decided concurrently
	traceLevel     string // none, rounds or branches
	traceMaxRounds int    // Stop trace recording after this many rounds
	printMetrics   bool   // Print per-input run metrics to stderr
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "ntm-sim",
	Short: "Non-deterministic Turing machine simulator",
}

// runCmd decides every input of a machine description
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a machine description and print one verdict per input",
	Long: "Reads a machine description (tr / acc / max / run sections, or YAML) and prints\n" +
		"one line per input: 1 for ACCEPT, 0 for REJECT, U for UNDEFINED.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd, runFlagOverrides)

		m, err := readMachine(cmd.InOrStdin(), machinePath, machineFormat, cfg.TableConfig())
		if err != nil {
			logrus.Fatalf("Unable to read machine description: %v", err)
		}
		logrus.Infof("Machine %s: %d transitions, %d accepting states, limit %d, %d inputs",
			m.Hash()[:12], m.Table.NumTransitions(), len(m.Accepting), m.Limit, len(m.Inputs))

		var store history.Store
		if s := openHistory(cfg); s != nil {
			defer s.Close()
			store = s
		}

		if err := runMachine(cmd.Context(), cfg, m, store, cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
			logrus.Fatalf("Run failed: %v", err)
		}
		logrus.Info("Run complete.")
	},
}

// runMachine decides every input of m, writing one verdict code per line to
// out. Metrics and trace summaries go to diag. Each run is stored when store
// is non-nil.
func runMachine(ctx context.Context, cfg *config.Config, m *machine.Machine, store history.Store, out, diag io.Writer) error {
	simCfg := cfg.SimConfig(m.Limit)
	results, err := decide(ctx, cfg, m, simCfg, diag)
	if err != nil {
		return err
	}

	hash := m.Hash()
	for i, res := range results {
		if _, err := fmt.Fprintf(out, "%c\n", res.Verdict.Code()); err != nil {
			return err
		}
		logrus.Debugf("input %d %q: %v after %d rounds", i, m.Inputs[i], res.Verdict, res.Rounds)
		if printMetrics {
			fmt.Fprintf(diag, "--- input %d: %s (%v) ---\n", i, m.Inputs[i], res.Verdict)
			res.Metrics.Print(diag)
		}
		if store != nil {
			if err := store.RecordRun(ctx, history.NewRun(hash, m.Inputs[i], res)); err != nil {
				logrus.Warnf("Unable to record run of input %d: %v", i, err)
			}
		}
	}
	return nil
}

// decide runs the inputs concurrently, or one at a time when tracing, since
// traces are recorded per run.
func decide(ctx context.Context, cfg *config.Config, m *machine.Machine, simCfg sim.SimConfig, diag io.Writer) ([]*sim.Result, error) {
	inputs := make([][]sim.Symbol, len(m.Inputs))
	for i, in := range m.Inputs {
		inputs[i] = sim.SymbolsOf(in)
	}

	level := trace.TraceLevel(cfg.Run.Trace)
	if level == "" || level == trace.TraceLevelNone {
		return sim.RunBatch(ctx, m.Table, simCfg, inputs, cfg.Run.Workers)
	}

	results := make([]*sim.Result, len(inputs))
	for i, input := range inputs {
		st := trace.NewSimulationTrace(trace.TraceConfig{Level: level, MaxRounds: cfg.Run.TraceMaxRounds})
		simCfg.Trace = st
		res, err := sim.NewSimulator(m.Table, simCfg).Run(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		results[i] = res
		printTraceSummary(diag, i, m.Inputs[i], trace.Summarize(st))
	}
	return results, nil
}

// printTraceSummary writes the aggregate of one run's trace.
func printTraceSummary(w io.Writer, idx int, input string, s *trace.TraceSummary) {
	fmt.Fprintf(w, "=== Trace Summary: input %d (%s) ===\n", idx, input)
	fmt.Fprintf(w, "Rounds Traced        : %d\n", s.TotalRounds)
	fmt.Fprintf(w, "Peak Frontier        : %d\n", s.PeakFrontier)
	fmt.Fprintf(w, "Branches Stepped     : %d\n", s.TotalBranches)
	fmt.Fprintf(w, "Dead Branches        : %d\n", s.DeadBranches)
	fmt.Fprintf(w, "Fork Points          : %d\n", s.ForkPoints)
	fmt.Fprintf(w, "Tape Clones          : %d\n", s.TotalClones)
	fmt.Fprintf(w, "Mean Branching       : %.3f\n", s.MeanBranching)
	if len(s.StateVisits) > 0 {
		fmt.Fprintf(w, "States Visited       : %d\n", len(s.StateVisits))
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	rootCmd.PersistentFlags().StringVar(&historyDB, "history", "", "SQLite run history database (empty = disabled)")

	runCmd.Flags().StringVar(&machinePath, "machine", "-", "Machine description file (- for stdin)")
	runCmd.Flags().StringVar(&machineFormat, "format", "", "Description format: text or yaml (default: by file extension)")
	runCmd.Flags().Int64Var(&limit, "limit", 0, "Override the description's iteration limit")
	runCmd.Flags().IntVar(&startState, "start", 0, "Start state")
	runCmd.Flags().IntVar(&segmentSize, "segment-size", sim.DefaultSegmentSize, "Symbols per tape segment")
	runCmd.Flags().IntVar(&maxSegments, "max-segments", 0, "Live tape segment budget per run (0 = unbounded)")
	runCmd.Flags().IntVar(&maxBranches, "max-branches", config.DefaultMaxBranches, "Frontier budget per run")
	runCmd.Flags().IntVar(&maxStates, "max-states", 0, "Reject descriptions using states >= this (0 = unbounded)")
	runCmd.Flags().IntVar(&workers, "workers", 0, "Inputs decided concurrently (0 = GOMAXPROCS)")
	runCmd.Flags().StringVar(&traceLevel, "trace", "none", "Trace level (none, rounds, branches)")
	runCmd.Flags().IntVar(&traceMaxRounds, "trace-max-rounds", 0, "Stop trace recording after this many rounds (0 = no cap)")
	runCmd.Flags().BoolVar(&printMetrics, "metrics", false, "Print per-input run metrics to stderr")

	// Attach subcommands to `root`
	rootCmd.AddCommand(runCmd)
}
