// Package migrations holds the versioned schema of the field settings
// database and applies it with golang-migrate.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed sqlite/*.sql postgres/*.sql
var migrationFiles embed.FS

// MigrationsTable records the applied schema version.
const MigrationsTable = "gomigrate_backoffice"

// Database driver names, as registered with database/sql.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

func sourceFor(driverName string) (source.Driver, error) {
	var dir string
	switch driverName {
	case DriverSQLite:
		dir = "sqlite"
	case DriverPostgres:
		dir = "postgres"
	default:
		return nil, fmt.Errorf("no migrations for driver %q", driverName)
	}
	src, err := iofs.New(migrationFiles, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs driver: %w", err)
	}
	return src, nil
}

// LatestVersion returns the highest migration version shipped for driverName.
func LatestVersion(driverName string) (uint, error) {
	src, err := sourceFor(driverName)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	v, err := src.First()
	if err != nil {
		return 0, err
	}
	for {
		next, err := src.Next(v)
		if errors.Is(err, fs.ErrNotExist) {
			return v, nil
		}
		if err != nil {
			return 0, err
		}
		v = next
	}
}

// Up applies every pending up migration. It opens its own connection
// because the migrate drivers close the handle they are given.
func Up(ctx context.Context, driverName, dsn string, logger *slog.Logger) error {
	src, err := sourceFor(driverName)
	if err != nil {
		return err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	var dbDriver database.Driver
	switch driverName {
	case DriverSQLite:
		dbDriver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{MigrationsTable: MigrationsTable})
	case DriverPostgres:
		dbDriver, err = migratepgx.WithInstance(db, &migratepgx.Config{MigrationsTable: MigrationsTable})
	}
	if err != nil {
		return fmt.Errorf("failed to create %s driver: %w", driverName, err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driverName, dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	defer m.Close()

	stop := context.AfterFunc(ctx, func() {
		select {
		case m.GracefulStop <- true:
		default:
		}
	})
	defer stop()

	before, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to get current version: %w", err)
	}
	if dirty {
		return fmt.Errorf("migration %d is dirty, fix it before proceeding", before)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			logger.Info("database schema up to date", slog.Uint64("version", uint64(before)))
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	after, _, err := m.Version()
	if err != nil {
		return fmt.Errorf("failed to get migrated version: %w", err)
	}
	logger.Info("database migrated",
		slog.String("driver", driverName),
		slog.Uint64("from_version", uint64(before)),
		slog.Uint64("to_version", uint64(after)))
	return nil
}
