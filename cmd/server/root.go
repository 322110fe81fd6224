package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"entgo.io/ent/dialect"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/backoffice/internal/config"
	"github.com/matthewbaird/backoffice/internal/logging"
)

var (
	configPath string

	cfg        *config.Config
	logger     *slog.Logger
	closeLogFn = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "backoffice",
	Short: "Per-category product field configuration service",
	Long: `Serves the product field catalog, the per-category field settings
editor and the dynamic product form layout of the back-office.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return err
		}
		logger, closeLogFn, err = logging.Setup(logging.Options{
			Level:    cfg.Log.Level,
			JSONFile: cfg.Log.JSONFile,
		}, slog.String("service", "backoffice"))
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLogFn()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a config file (default ./config.yaml if present)")
	rootCmd.AddCommand(serveCmd, migrateCmd, catalogCmd)
}

// openDB opens the configured database and returns the matching Ent dialect name.
func openDB(ctx context.Context, c config.DatabaseConfig) (*sql.DB, string, error) {
	var dialectName string
	switch c.Driver {
	case config.DriverSQLite:
		dialectName = dialect.SQLite
	case config.DriverPostgres:
		dialectName = dialect.Postgres
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}

	db, err := sql.Open(c.Driver, c.DSN)
	if err != nil {
		return nil, "", fmt.Errorf("opening database: %w", err)
	}
	if c.Driver == config.DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, "", fmt.Errorf("connecting to database: %w", err)
	}
	return db, dialectName, nil
}
