// Package event defines the domain events emitted when field settings change.
// Events are published to the in-process event bus after the store writes
// have completed.
package event

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeFieldSettingsSaved = "field_settings_saved"
	TypeFieldSettingsReset = "field_settings_reset"
)

// DomainEvent carries the canonical shape of every domain event.
type DomainEvent struct {
	ID         string    `json:"id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	TenantID   uuid.UUID `json:"tenant_id"`
	Category   string    `json:"category"`
	Summary    string    `json:"summary"`
	Saved      int       `json:"saved,omitempty"`
	Failed     int       `json:"failed,omitempty"`
}

// Partial reports whether the event describes a save where some rows failed.
func (e DomainEvent) Partial() bool {
	return e.Failed > 0 && e.Saved > 0
}

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

func newID() string { return uuid.New().String() }

// NewFieldSettingsSaved reports a completed save of a category. failed is
// non-zero when the save only partially succeeded.
func NewFieldSettingsSaved(tenantID uuid.UUID, category string, saved, failed int) DomainEvent {
	summary := fmt.Sprintf("Saved %d field settings for %s", saved, category)
	if failed > 0 {
		summary = fmt.Sprintf("Saved %d of %d field settings for %s", saved, saved+failed, category)
	}
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeFieldSettingsSaved,
		OccurredAt: time.Now(),
		TenantID:   tenantID,
		Category:   category,
		Summary:    summary,
		Saved:      saved,
		Failed:     failed,
	}
}

// NewFieldSettingsReset reports that every override of a category was removed.
func NewFieldSettingsReset(tenantID uuid.UUID, category string) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  TypeFieldSettingsReset,
		OccurredAt: time.Now(),
		TenantID:   tenantID,
		Category:   category,
		Summary:    fmt.Sprintf("Reset field settings for %s to catalog defaults", category),
	}
}
