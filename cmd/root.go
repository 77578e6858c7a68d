// Package cmd provides the queryloom CLI.
//
// Commands:
//   - ask: one-shot question→SQL generation (optionally executed)
//   - train: load DDL, documentation, and examples into the knowledge store
//   - serve: HTTP API server
//   - version: build and configuration information
package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/queryloom/queryloom/internal/log"
)

// logger is the process logger, initialized once in Execute. Logs go to
// stderr so stdout stays parseable.
var logger = log.NewNop()

var rootCmd = &cobra.Command{
	Use:   "queryloom",
	Short: "Ask your PostgreSQL database questions in plain language",
	Long: `queryloom turns natural-language questions into PostgreSQL statements.

It grounds generation in a local knowledge store of schema DDL,
documentation, and example question-SQL pairs. Train it once with
"queryloom train", then ask away.`,
	SilenceUsage: true,
}

// Execute is the main entry point for the queryloom CLI.
func Execute() error {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	logger = log.NewWithWriter(os.Stderr, cfg)

	return rootCmd.Execute()
}
