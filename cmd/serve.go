package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ntm-sim/ntm-sim/internal/history"
	"github.com/ntm-sim/ntm-sim/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve machine runs, run history and metrics over HTTP",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig(cmd, serveFlagOverrides)

		var store history.Store
		if s := openHistory(cfg); s != nil {
			defer s.Close()
			store = s
		} else {
			logrus.Warn("No run history configured; /v1/runs will not record runs")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := server.NewServer(cfg, store, logrus.StandardLogger()).Run(ctx); err != nil {
			logrus.Fatalf("Server failed: %v", err)
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}
