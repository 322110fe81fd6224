// Package fieldstore persists per-category field setting overrides.
//
// The settings editor is the only writer; the config resolver reads through
// the narrower Lister interface.
package fieldstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/sqlgraph"
	"github.com/google/uuid"

	"github.com/matthewbaird/backoffice/internal/types"
)

var (
	// ErrNotFound is returned when an update targets a setting id that does not exist.
	ErrNotFound = errors.New("field setting not found")
	// ErrDuplicate is returned when an insert would create a second row for
	// the same (tenant, category, field name).
	ErrDuplicate = errors.New("field setting already exists")
)

// Lister reads the override rows of one category.
type Lister interface {
	ListFieldSettings(ctx context.Context, tenantID uuid.UUID, category string) ([]types.FieldSetting, error)
}

// Store is the persistence interface for field settings.
type Store interface {
	Lister

	// InsertFieldSetting stores a new row and returns its id. The id on the
	// argument is ignored.
	InsertFieldSetting(ctx context.Context, s types.FieldSetting) (uuid.UUID, error)

	// UpdateFieldSetting replaces the mutable attributes of an existing row.
	UpdateFieldSetting(ctx context.Context, id uuid.UUID, state types.FieldState) error

	// DeleteFieldSettings removes every row for (tenant, category).
	DeleteFieldSettings(ctx context.Context, tenantID uuid.UUID, category string) error
}

const tableName = "product_field_settings"

var settingColumns = []string{"id", "tenant_id", "category", "field_name", "visible", "disabled", "tab"}

// SQLStore implements Store on a database/sql handle. Queries are built with
// the Ent SQL builder so the same code serves SQLite and Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect string
	now     func() time.Time
}

// NewSQLStore creates a new SQLStore. dialectName is one of the
// entgo.io/ent/dialect constants (dialect.SQLite, dialect.Postgres).
func NewSQLStore(db *sql.DB, dialectName string) *SQLStore {
	return &SQLStore{db: db, dialect: dialectName, now: time.Now}
}

// CreateTable creates the product_field_settings table and its unique index.
// Deployed databases get the same schema from the migrations package.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	ts := "TIMESTAMP"
	if s.dialect == dialect.Postgres {
		ts = "TIMESTAMPTZ"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id         TEXT PRIMARY KEY,
			tenant_id  TEXT NOT NULL,
			category   TEXT NOT NULL,
			field_name TEXT NOT NULL,
			visible    BOOLEAN NOT NULL DEFAULT TRUE,
			disabled   BOOLEAN NOT NULL DEFAULT FALSE,
			tab        TEXT NOT NULL,
			updated_at %s NOT NULL
		)`, tableName, ts),
		fmt.Sprintf(`CREATE UNIQUE INDEX IF NOT EXISTS idx_field_settings_key
			ON %s (tenant_id, category, field_name)`, tableName),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating %s: %w", tableName, err)
		}
	}
	return nil
}

func (s *SQLStore) builder() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

func scopeOf(tenantID uuid.UUID, category string) *entsql.Predicate {
	return entsql.And(
		entsql.EQ("tenant_id", tenantID.String()),
		entsql.EQ("category", category),
	)
}

// ListFieldSettings returns the rows for (tenant, category) ordered by field name.
func (s *SQLStore) ListFieldSettings(ctx context.Context, tenantID uuid.UUID, category string) ([]types.FieldSetting, error) {
	b := s.builder()
	query, args := b.Select(settingColumns...).
		From(b.Table(tableName)).
		Where(scopeOf(tenantID, category)).
		OrderBy("field_name").
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying field settings: %w", err)
	}
	defer rows.Close()

	var settings []types.FieldSetting
	for rows.Next() {
		var (
			fs           types.FieldSetting
			id, tenantID string
		)
		if err := rows.Scan(&id, &tenantID, &fs.Category, &fs.FieldName, &fs.Visible, &fs.Disabled, &fs.Tab); err != nil {
			return nil, fmt.Errorf("scanning field setting: %w", err)
		}
		if fs.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("field setting id %q: %w", id, err)
		}
		if fs.TenantID, err = uuid.Parse(tenantID); err != nil {
			return nil, fmt.Errorf("field setting tenant %q: %w", tenantID, err)
		}
		settings = append(settings, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading field settings: %w", err)
	}
	return settings, nil
}

// InsertFieldSetting inserts a new row with a freshly generated id.
func (s *SQLStore) InsertFieldSetting(ctx context.Context, fs types.FieldSetting) (uuid.UUID, error) {
	id := uuid.New()
	query, args := s.builder().Insert(tableName).
		Columns(append(settingColumns, "updated_at")...).
		Values(id.String(), fs.TenantID.String(), fs.Category, fs.FieldName, fs.Visible, fs.Disabled, fs.Tab, s.now().UTC()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		if sqlgraph.IsUniqueConstraintError(err) {
			return uuid.Nil, fmt.Errorf("inserting field setting %s/%s: %w", fs.Category, fs.FieldName, ErrDuplicate)
		}
		return uuid.Nil, fmt.Errorf("inserting field setting %s/%s: %w", fs.Category, fs.FieldName, err)
	}
	return id, nil
}

// UpdateFieldSetting updates visible, disabled and tab of the row with the given id.
func (s *SQLStore) UpdateFieldSetting(ctx context.Context, id uuid.UUID, state types.FieldState) error {
	query, args := s.builder().Update(tableName).
		Set("visible", state.Visible).
		Set("disabled", state.Disabled).
		Set("tab", state.Tab).
		Set("updated_at", s.now().UTC()).
		Where(entsql.EQ("id", id.String())).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating field setting %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating field setting %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("updating field setting %s: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteFieldSettings deletes every row for (tenant, category).
func (s *SQLStore) DeleteFieldSettings(ctx context.Context, tenantID uuid.UUID, category string) error {
	query, args := s.builder().Delete(tableName).
		Where(scopeOf(tenantID, category)).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting field settings for %q: %w", category, err)
	}
	return nil
}
