// Package main provides the CLI entry point for the turn processing engine.
//
// turnengine cleans live conversational transcripts turn-by-turn and
// extracts structured function calls against a mutable customer profile,
// persisting both to a durable store and publishing them to an event sink.
//
// # Basic Usage
//
// Run the long-lived engine (session manager + background sweeper):
//
//	turnengine serve
//
// Drive one evaluation from the command line for local testing:
//
//	turnengine evaluate create --conversation-id conv-1 --cleaner-template cleaner-v1
//	turnengine evaluate register-turn --conversation-id conv-1 --turn-id t1 --speaker User --text "..."
//	turnengine evaluate process-turn --evaluation-id <id> --turn-id t1
//	turnengine evaluate state --evaluation-id <id>
//
// # Environment Variables
//
// Configuration is read entirely from the process environment (optionally
// via a .env file in the working directory); see internal/config for the
// full list. At minimum:
//
//   - LLM_MODEL_NAME, LLM_INPUT_COST_PER_MTOKEN, LLM_OUTPUT_COST_PER_MTOKEN
//   - GEMINI_API_KEY or ANTHROPIC_API_KEY
//   - DATABASE_URL (omit to run against an in-memory store)
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumenvoice/turnengine/internal/observability"
)

// Build information - populated by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := observability.NewLogger(observability.LogConfig{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
		Output: os.Stderr,
	})
	slog.SetDefault(logger.Slog())

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() so tests can exercise the command tree directly.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "turnengine",
		Short:   "turnengine - real-time conversational transcript cleaning and function extraction",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		// SilenceUsage prevents printing usage on every error.
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildEvaluateCmd(),
	)

	return rootCmd
}
