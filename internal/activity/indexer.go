package activity

import (
	"context"
	"fmt"

	"github.com/matthewbaird/backoffice/internal/event"
)

// Indexer consumes settings-changed events from the event bus and writes
// them to the history store.
type Indexer struct {
	store Store
}

// NewIndexer creates a new history indexer.
func NewIndexer(store Store) *Indexer {
	return &Indexer{store: store}
}

// EntryFromEvent converts a domain event into a history entry.
func EntryFromEvent(evt event.DomainEvent) Entry {
	return Entry{
		EventID:    evt.ID,
		EventType:  evt.EventType,
		OccurredAt: evt.OccurredAt.UTC(),
		TenantID:   evt.TenantID,
		Category:   evt.Category,
		Summary:    evt.Summary,
		Saved:      evt.Saved,
		Failed:     evt.Failed,
	}
}

// HandleEvent writes evt as a history entry.
func (idx *Indexer) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	if evt.Category == "" {
		return nil
	}
	if err := idx.store.WriteEntries(ctx, []Entry{EntryFromEvent(evt)}); err != nil {
		return fmt.Errorf("indexing %s for %q: %w", evt.EventType, evt.Category, err)
	}
	return nil
}
