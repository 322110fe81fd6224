package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matthewbaird/backoffice/internal/activity"
	"github.com/matthewbaird/backoffice/internal/fieldconfig"
	"github.com/matthewbaird/backoffice/internal/fieldstore"
	"github.com/matthewbaird/backoffice/internal/migrations"
	"github.com/matthewbaird/backoffice/internal/server"
)

var migrateOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	serveCmd.Flags().BoolVar(&migrateOnStart, "migrate", true, "apply pending migrations before serving")
}

func serve(ctx context.Context) error {
	tenant, err := cfg.Tenant()
	if err != nil {
		return err
	}
	if migrateOnStart {
		if err := migrations.Up(ctx, cfg.Database.Driver, cfg.Database.DSN, logger); err != nil {
			return err
		}
	}
	db, dialectName, err := openDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	store := fieldstore.NewSQLStore(db, dialectName)
	history := activity.NewSQLStore(db, dialectName)

	resolver := fieldconfig.NewResolver(store, tenant, cfg.Cache.TTL,
		fieldconfig.WithLogger(logger),
		fieldconfig.WithTimeout(cfg.Store.Timeout))

	logger.Info("field configuration ready",
		slog.String("driver", cfg.Database.Driver),
		slog.Duration("cache_ttl", cfg.Cache.TTL),
		slog.Duration("store_timeout", cfg.Store.Timeout))

	return server.Run(ctx, server.Config{
		Port:         cfg.Port,
		TenantID:     tenant,
		Store:        store,
		History:      history,
		Resolver:     resolver,
		StoreTimeout: cfg.Store.Timeout,
		Logger:       logger,
	})
}
