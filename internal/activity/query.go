// Package activity records the change history of field settings: one entry
// per save or reset of a category, written from the settings-changed events.
package activity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Entry is one recorded change of a category's field settings.
type Entry struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	TenantID   uuid.UUID `json:"tenant_id"`
	Category   string    `json:"category"`
	Summary    string    `json:"summary"`
	Saved      int       `json:"saved"`
	Failed     int       `json:"failed"`
}

const (
	defaultLimit = 50
	maxLimit     = 500
)

// QueryOptions controls filtering and pagination for history queries.
type QueryOptions struct {
	Since      *time.Time // inclusive
	Until      *time.Time // inclusive
	EventTypes []string   // filter to specific event types
	Limit      int        // max results (default: 50, max: 500)
	Cursor     string     // position after the last entry of the previous page
}

// DefaultQueryOptions returns QueryOptions with sensible defaults.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Limit: defaultLimit}
}

func (o QueryOptions) limit() int {
	if o.Limit <= 0 || o.Limit > maxLimit {
		return defaultLimit
	}
	return o.Limit
}

// cursor is a position in the (occurred_at DESC, event_id DESC) order.
// Entries sharing a timestamp are told apart by their event id.
type cursor struct {
	at      int64 // Unix nanoseconds
	eventID string
}

func cursorOf(e Entry) string {
	return e.OccurredAt.UTC().Format(time.RFC3339Nano) + "|" + e.EventID
}

// parseCursor parses the pagination cursor. An unparsable cursor is ignored.
func (o QueryOptions) parseCursor() (cursor, bool) {
	if o.Cursor == "" {
		return cursor{}, false
	}
	ts, id, _ := strings.Cut(o.Cursor, "|")
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return cursor{}, false
	}
	return cursor{at: t.UnixNano(), eventID: id}, true
}

// after reports whether e comes after c in newest-first order.
func (c cursor) after(e Entry) bool {
	at := e.OccurredAt.UnixNano()
	return at < c.at || (at == c.at && e.EventID < c.eventID)
}

// newer orders entries newest first, then by event id descending.
func newer(a, b Entry) bool {
	at, bt := a.OccurredAt.UnixNano(), b.OccurredAt.UnixNano()
	if at != bt {
		return at > bt
	}
	return a.EventID > b.EventID
}

// page trims entries, already sorted newest first, to limit and returns the
// cursor for the following page.
func page(entries []Entry, limit int) ([]Entry, string) {
	if len(entries) <= limit {
		return entries, ""
	}
	entries = entries[:limit]
	return entries, cursorOf(entries[len(entries)-1])
}
