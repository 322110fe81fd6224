package main

import (
	"github.com/spf13/cobra"

	"github.com/matthewbaird/backoffice/internal/migrations"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return migrations.Up(cmd.Context(), cfg.Database.Driver, cfg.Database.DSN, logger)
	},
}
