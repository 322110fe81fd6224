// Package editor implements the administrative surface that views and
// mutates the field setting overrides of one product category at a time.
//
// An Editor always presents the complete catalog: rows with a stored
// override carry its values and id, every other field gets a synthesized
// default row that is inserted on the first save.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/backoffice/internal/catalog"
	"github.com/matthewbaird/backoffice/internal/event"
	"github.com/matthewbaird/backoffice/internal/fieldconfig"
	"github.com/matthewbaird/backoffice/internal/fieldstore"
	"github.com/matthewbaird/backoffice/internal/types"
)

var (
	ErrNotLoaded         = errors.New("no category loaded")
	ErrEmptyCategory     = errors.New("category is required")
	ErrUnknownField      = errors.New("unknown field")
	ErrInvalidValue      = errors.New("invalid value")
	ErrResetNotConfirmed = errors.New("reset not confirmed")
)

// State is the lifecycle state of an editor view.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateEditing
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	default:
		return "unknown"
	}
}

// Attribute names a mutable part of a working row.
type Attribute string

const (
	AttrVisible  Attribute = "visible"
	AttrDisabled Attribute = "disabled"
	AttrTab      Attribute = "tab"
)

// Row is one working row: a field setting plus the catalog metadata the
// operator needs to recognise it.
type Row struct {
	types.FieldSetting
	Label      string          `json:"label"`
	Kind       types.FieldKind `json:"kind"`
	DefaultTab string          `json:"default_tab"`
}

// Invalidator refreshes the resolver's cached configuration for a category.
type Invalidator interface {
	Invalidate(ctx context.Context, category string) *fieldconfig.Config
}

// ConfirmFunc asks the operator to confirm an irreversible action on category.
type ConfirmFunc func(category string) bool

// Editor is one operator's view of one category. Its methods are safe for
// concurrent use but are serialised; it is not meant to be shared between
// operators.
type Editor struct {
	mu sync.Mutex

	store     fieldstore.Store
	resolver  Invalidator
	tenantID  uuid.UUID
	catalog   *catalog.Catalog
	timeout   time.Duration
	publisher event.Publisher
	logger    *slog.Logger

	category string
	rows     []Row
	index    map[string]int
	state    State
	lastErr  error
}

// Option configures an Editor.
type Option func(*Editor)

// WithCatalog replaces the product catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Editor) { e.catalog = c }
}

// WithTimeout bounds every individual store call.
func WithTimeout(d time.Duration) Option {
	return func(e *Editor) { e.timeout = d }
}

// WithPublisher publishes settings-changed events after saves and resets.
func WithPublisher(p event.Publisher) Option {
	return func(e *Editor) { e.publisher = p }
}

// WithLogger sets the editor's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

// New creates an idle Editor for tenantID.
func New(store fieldstore.Store, resolver Invalidator, tenantID uuid.UUID, opts ...Option) *Editor {
	e := &Editor{
		store:    store,
		resolver: resolver,
		tenantID: tenantID,
		catalog:  catalog.Products,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// State returns the current lifecycle state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Category returns the loaded category, or "" before the first load.
func (e *Editor) Category() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.category
}

// LastError returns the error of the most recent failed operation, cleared
// by the next successful one.
func (e *Editor) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Rows returns a copy of the working rows in catalog order.
func (e *Editor) Rows() []Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Row, len(e.rows))
	copy(out, e.rows)
	return out
}

// Row returns the working row for fieldName.
func (e *Editor) Row(fieldName string) (Row, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	i, ok := e.index[fieldName]
	if !ok {
		return Row{}, false
	}
	return e.rows[i], true
}

func (e *Editor) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.timeout > 0 {
		return context.WithTimeout(ctx, e.timeout)
	}
	return context.WithCancel(ctx)
}

// settle leaves a transitional state. Without rows the view falls back to idle.
func (e *Editor) settle(err error) {
	e.lastErr = err
	if e.rows == nil {
		e.state = StateIdle
		return
	}
	e.state = StateLoaded
}

// LoadCategory reads the overrides of category and builds one working row
// per catalog field. On failure the previous rows are kept.
func (e *Editor) LoadCategory(ctx context.Context, category string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if category == "" {
		return ErrEmptyCategory
	}
	e.state = StateLoading
	if err := e.load(ctx, category); err != nil {
		e.settle(err)
		return err
	}
	e.settle(nil)
	return nil
}

func (e *Editor) load(ctx context.Context, category string) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	settings, err := e.store.ListFieldSettings(ctx, e.tenantID, category)
	if err != nil {
		return fmt.Errorf("loading field settings for %q: %w", category, err)
	}

	stored := make(map[string]types.FieldSetting, len(settings))
	for _, s := range settings {
		if _, dup := stored[s.FieldName]; dup {
			e.logger.Warn("duplicate field setting ignored",
				slog.String("category", category),
				slog.String("field", s.FieldName),
				slog.String("id", s.ID.String()))
			continue
		}
		stored[s.FieldName] = s
	}

	rows := make([]Row, 0, e.catalog.Len())
	index := make(map[string]int, e.catalog.Len())
	for _, def := range e.catalog.Fields() {
		setting, ok := stored[def.Name]
		if !ok {
			setting = types.FieldSetting{
				TenantID:   e.tenantID,
				Category:   category,
				FieldName:  def.Name,
				FieldState: types.DefaultState(def),
			}
		}
		if setting.Tab == "" {
			setting.Tab = def.DefaultTab
		}
		index[def.Name] = len(rows)
		rows = append(rows, Row{
			FieldSetting: setting,
			Label:        def.Label,
			Kind:         def.Kind,
			DefaultTab:   def.DefaultTab,
		})
	}

	e.category = category
	e.rows = rows
	e.index = index
	return nil
}

// SetField changes one attribute of one working row. visible and disabled
// take a bool, tab takes a non-empty string. Any tab identifier is accepted.
func (e *Editor) SetField(fieldName string, attr Attribute, value any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateLoaded && e.state != StateEditing {
		return ErrNotLoaded
	}
	i, ok := e.index[fieldName]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, fieldName)
	}
	row := &e.rows[i]

	switch attr {
	case AttrVisible, AttrDisabled:
		b, ok := value.(bool)
		if !ok {
			return fmt.Errorf("%w: %s must be a boolean, got %T", ErrInvalidValue, attr, value)
		}
		if attr == AttrVisible {
			row.Visible = b
		} else {
			row.Disabled = b
		}
	case AttrTab:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("%w: tab must be a string, got %T", ErrInvalidValue, value)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return fmt.Errorf("%w: tab must not be empty", ErrInvalidValue)
		}
		row.Tab = s
	default:
		return fmt.Errorf("%w: unknown attribute %q", ErrInvalidValue, attr)
	}
	e.state = StateEditing
	return nil
}

// Save writes every working row in catalog order: an update for rows that
// were stored before, an insert for the rest. Writes are not transactional
// and stop at the first failing row. The returned error is then a
// *PartialSaveError whose result lists the committed, failed and skipped
// rows. In every case the category is reloaded afterwards and the
// resolver's cache invalidated.
func (e *Editor) Save(ctx context.Context) (SaveResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var result SaveResult
	if e.state != StateLoaded && e.state != StateEditing {
		return result, ErrNotLoaded
	}
	e.state = StateSaving

	for i := range e.rows {
		row := &e.rows[i]
		if len(result.Failed) > 0 {
			result.Skipped = append(result.Skipped, row.FieldName)
			continue
		}
		id, err := e.saveRow(ctx, row.FieldSetting)
		if err != nil {
			result.Failed = append(result.Failed, RowFailure{FieldName: row.FieldName, ID: row.ID, Err: err})
			continue
		}
		row.ID = id
		result.Succeeded = append(result.Succeeded, RowResult{FieldName: row.FieldName, ID: id})
	}

	var err error
	if len(result.Failed) > 0 {
		err = &PartialSaveError{Category: e.category, Result: result}
		e.logger.Warn("field settings save incomplete",
			slog.String("category", e.category),
			slog.Int("saved", len(result.Succeeded)),
			slog.Int("failed", len(result.Failed)),
			slog.Int("skipped", len(result.Skipped)),
			slog.Any("error", result.Err()))
	}

	if loadErr := e.load(ctx, e.category); loadErr != nil {
		err = errors.Join(err, loadErr)
	}
	e.resolver.Invalidate(ctx, e.category)
	e.publish(ctx, event.NewFieldSettingsSaved(e.tenantID, e.category, len(result.Succeeded), len(result.Failed)+len(result.Skipped)))

	e.settle(err)
	return result, err
}

func (e *Editor) saveRow(ctx context.Context, s types.FieldSetting) (uuid.UUID, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if s.Persisted() {
		if err := e.store.UpdateFieldSetting(ctx, s.ID, s.FieldState); err != nil {
			return uuid.Nil, err
		}
		return s.ID, nil
	}
	return e.store.InsertFieldSetting(ctx, types.FieldSetting{
		TenantID:   e.tenantID,
		Category:   e.category,
		FieldName:  s.FieldName,
		FieldState: s.FieldState,
	})
}

// ResetCategory deletes every override of the loaded category after confirm
// approves it, then reloads so all rows show catalog defaults. On a delete
// failure the working rows are left untouched.
func (e *Editor) ResetCategory(ctx context.Context, confirm ConfirmFunc) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state != StateLoaded && e.state != StateEditing {
		return ErrNotLoaded
	}
	if confirm == nil || !confirm(e.category) {
		return ErrResetNotConfirmed
	}
	e.state = StateLoading

	delCtx, cancel := e.withTimeout(ctx)
	err := e.store.DeleteFieldSettings(delCtx, e.tenantID, e.category)
	cancel()
	if err != nil {
		err = fmt.Errorf("resetting field settings for %q: %w", e.category, err)
		e.settle(err)
		return err
	}

	loadErr := e.load(ctx, e.category)
	if loadErr != nil {
		// The stored rows are gone; the next save must insert them again.
		for i := range e.rows {
			e.rows[i].ID = uuid.Nil
		}
	}
	e.resolver.Invalidate(ctx, e.category)
	e.publish(ctx, event.NewFieldSettingsReset(e.tenantID, e.category))
	e.settle(loadErr)
	return loadErr
}

func (e *Editor) publish(ctx context.Context, evt event.DomainEvent) {
	if e.publisher == nil {
		return
	}
	e.publisher.Publish(ctx, evt)
}
