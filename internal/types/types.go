// Package types provides the Go structs shared by the field catalog, the
// field setting store, the config resolver and the settings editor.
package types

import "github.com/google/uuid"

// FieldKind selects the input widget used for a product attribute.
type FieldKind string

const (
	KindText      FieldKind = "text"
	KindNumber    FieldKind = "number"
	KindMultiline FieldKind = "multiline"
	KindBoolean   FieldKind = "boolean"
)

// Valid reports whether k is one of the known kinds.
func (k FieldKind) Valid() bool {
	switch k {
	case KindText, KindNumber, KindMultiline, KindBoolean:
		return true
	default:
		return false
	}
}

// FieldDefinition describes one product attribute in the catalog.
// Definitions are compiled into the program and never change at runtime.
type FieldDefinition struct {
	Name       string    `json:"name"`
	Label      string    `json:"label"`
	Kind       FieldKind `json:"kind"`
	DefaultTab string    `json:"default_tab"`
	Step       *float64  `json:"step,omitempty"` // increment hint for number inputs
}

// FieldState is the mutable part of a field setting: whether the field is
// shown, whether its input is disabled, and which tab it lives on.
type FieldState struct {
	Visible  bool   `json:"visible"`
	Disabled bool   `json:"disabled"`
	Tab      string `json:"tab"`
}

// DefaultState returns the state a field has when no override exists.
func DefaultState(def FieldDefinition) FieldState {
	return FieldState{Visible: true, Disabled: false, Tab: def.DefaultTab}
}

// FieldSetting is a persisted override for one field in one category.
// ID is uuid.Nil until the row has been saved for the first time.
type FieldSetting struct {
	ID        uuid.UUID `json:"id"`
	TenantID  uuid.UUID `json:"tenant_id"`
	Category  string    `json:"category"`
	FieldName string    `json:"field_name"`
	FieldState
}

// Persisted reports whether the setting has been stored before.
func (s FieldSetting) Persisted() bool {
	return s.ID != uuid.Nil
}
