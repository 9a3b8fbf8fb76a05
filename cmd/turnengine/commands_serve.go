package main

import (
	"github.com/spf13/cobra"
)

// buildServeCmd creates the "serve" command that runs the engine as a
// long-lived process: the Session Manager's background sweeper stays
// active and a Prometheus metrics endpoint is exposed for scraping.
func buildServeCmd() *cobra.Command {
	var metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the engine as a long-lived process",
		Long: `Run the turn processing engine as a long-lived process.

This starts the Session Manager's background TTL sweeper and exposes
Prometheus metrics for scraping. Graceful shutdown is handled on
SIGINT/SIGTERM.`,
		Example: `  # Start with defaults
  turnengine serve

  # Expose metrics on a custom address
  turnengine serve --metrics-addr :9464`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), metricsAddr)
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9464", "Address to serve Prometheus metrics on")
	return cmd
}
