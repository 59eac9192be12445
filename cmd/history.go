package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ntm-sim/ntm-sim/internal/history"
)

var (
	historyLimit  int
	historyOffset int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs, newest first",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd, nil)
		store := openHistory(cfg)
		if store == nil {
			logrus.Fatalf("No run history configured; set --history or history.path")
		}
		defer store.Close()

		if err := listHistory(cmd, store, cmd.OutOrStdout()); err != nil {
			logrus.Fatalf("Unable to list runs: %v", err)
		}
	},
}

func listHistory(cmd *cobra.Command, store history.Store, w io.Writer) error {
	runs, total, err := store.ListRuns(cmd.Context(), historyLimit, historyOffset)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMACHINE\tINPUT\tVERDICT\tROUNDS\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.ID, shortHash(r.MachineHash), r.Input, r.Verdict, r.Rounds, r.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(tw, "(%d of %d runs)\n", len(runs), total)
	return tw.Flush()
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum runs to list")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "Runs to skip")
	rootCmd.AddCommand(historyCmd)
}
