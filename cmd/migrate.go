package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/salesdesk/salesdesk/db"
	"github.com/salesdesk/salesdesk/internal/config"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	Long: `Applies all pending schema migrations to the configured PostgreSQL
database. The serve command runs migrations on startup as well; this
command exists for running them separately, e.g. in a deploy step.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMigrate()
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := newLogger(cfg)
	if err := db.Migrate(cfg.PostgresURL(), logger.With("component", "migrate")); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}
