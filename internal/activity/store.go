package activity

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
)

// Store is the interface for reading and writing history entries.
type Store interface {
	// WriteEntries writes one or more entries. Entries whose event id is
	// already stored are ignored.
	WriteEntries(ctx context.Context, entries []Entry) error

	// QueryByCategory returns the entries of one category, newest first.
	QueryByCategory(ctx context.Context, tenantID uuid.UUID, category string, opts QueryOptions) (entries []Entry, nextCursor string, totalCount int, err error)
}

const tableName = "field_settings_activity"

var entryColumns = []string{"event_id", "event_type", "occurred_at", "tenant_id", "category", "summary", "saved", "failed"}

// SQLStore implements Store on a database/sql handle. occurred_at is kept
// as Unix nanoseconds so ordering is identical on SQLite and Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// NewSQLStore creates a new SQLStore for the given entgo.io/ent/dialect name.
func NewSQLStore(db *sql.DB, dialectName string) *SQLStore {
	return &SQLStore{db: db, dialect: dialectName}
}

// CreateTable creates the field_settings_activity table.
// Deployed databases get the same schema from the migrations package.
func (s *SQLStore) CreateTable(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			event_id    TEXT PRIMARY KEY,
			event_type  TEXT NOT NULL,
			occurred_at BIGINT NOT NULL,
			tenant_id   TEXT NOT NULL,
			category    TEXT NOT NULL,
			summary     TEXT NOT NULL,
			saved       INTEGER NOT NULL DEFAULT 0,
			failed      INTEGER NOT NULL DEFAULT 0
		)`, tableName),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_field_settings_activity_category_time
			ON %s (tenant_id, category, occurred_at DESC)`, tableName),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating %s: %w", tableName, err)
		}
	}
	return nil
}

// WriteEntries inserts entries in one statement.
func (s *SQLStore) WriteEntries(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ins := entsql.Dialect(s.dialect).Insert(tableName).Columns(entryColumns...)
	for _, e := range entries {
		ins.Values(e.EventID, e.EventType, e.OccurredAt.UnixNano(), e.TenantID.String(),
			e.Category, e.Summary, e.Saved, e.Failed)
	}
	ins.OnConflict(entsql.DoNothing())
	query, args := ins.Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("writing activity entries: %w", err)
	}
	return nil
}

func (s *SQLStore) where(tenantID uuid.UUID, category string, opts QueryOptions) *entsql.Predicate {
	preds := []*entsql.Predicate{
		entsql.EQ("tenant_id", tenantID.String()),
		entsql.EQ("category", category),
	}
	if opts.Since != nil {
		preds = append(preds, entsql.GTE("occurred_at", opts.Since.UnixNano()))
	}
	if opts.Until != nil {
		preds = append(preds, entsql.LTE("occurred_at", opts.Until.UnixNano()))
	}
	if len(opts.EventTypes) > 0 {
		types := make([]any, len(opts.EventTypes))
		for i, t := range opts.EventTypes {
			types[i] = t
		}
		preds = append(preds, entsql.In("event_type", types...))
	}
	return entsql.And(preds...)
}

// QueryByCategory returns history entries for a category with filtering and pagination.
func (s *SQLStore) QueryByCategory(ctx context.Context, tenantID uuid.UUID, category string, opts QueryOptions) ([]Entry, string, int, error) {
	limit := opts.limit()
	b := entsql.Dialect(s.dialect)

	var totalCount int
	countQuery, countArgs := b.Select(entsql.Count("*")).
		From(b.Table(tableName)).
		Where(s.where(tenantID, category, opts)).
		Query()
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&totalCount); err != nil {
		return nil, "", 0, fmt.Errorf("counting activity entries: %w", err)
	}

	pred := s.where(tenantID, category, opts)
	if cur, ok := opts.parseCursor(); ok {
		pred = entsql.And(pred, entsql.Or(
			entsql.LT("occurred_at", cur.at),
			entsql.And(entsql.EQ("occurred_at", cur.at), entsql.LT("event_id", cur.eventID)),
		))
	}
	query, args := b.Select(entryColumns...).
		From(b.Table(tableName)).
		Where(pred).
		OrderBy(entsql.Desc("occurred_at"), entsql.Desc("event_id")).
		Limit(limit + 1). // fetch one extra for cursor
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, "", 0, fmt.Errorf("querying activity entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			nanos    int64
			tenantID string
		)
		if err := rows.Scan(&e.EventID, &e.EventType, &nanos, &tenantID, &e.Category, &e.Summary, &e.Saved, &e.Failed); err != nil {
			return nil, "", 0, fmt.Errorf("scanning activity entry: %w", err)
		}
		e.OccurredAt = time.Unix(0, nanos).UTC()
		if e.TenantID, err = uuid.Parse(tenantID); err != nil {
			return nil, "", 0, fmt.Errorf("activity entry tenant %q: %w", tenantID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", 0, fmt.Errorf("reading activity entries: %w", err)
	}

	entries, next := page(entries, limit)
	return entries, next, totalCount, nil
}
