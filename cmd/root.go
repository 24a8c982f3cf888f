// Package cmd provides CLI commands for salesdesk.
//
// Commands:
//   - serve: HTTP API server (auth, chat, conversations)
//   - migrate: apply pending database migrations
//   - version: show version information
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/salesdesk/salesdesk/internal/config"
	"github.com/salesdesk/salesdesk/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "salesdesk",
	Short: "salesdesk - retrieval-augmented sales assistant API",
	Long: `salesdesk serves a retrieval-augmented chat API over a flat-file
knowledge base. Answers are grounded in corpus chunks filtered by the
caller's role, tenant and tag grants, and conversations are persisted
in PostgreSQL.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger from the loaded configuration.
func newLogger(cfg *config.Config) log.Logger {
	return log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
}
