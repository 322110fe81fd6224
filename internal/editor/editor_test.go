package editor

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/backoffice/internal/catalog"
	"github.com/matthewbaird/backoffice/internal/event"
	"github.com/matthewbaird/backoffice/internal/fieldconfig"
	"github.com/matthewbaird/backoffice/internal/fieldstore"
	"github.com/matthewbaird/backoffice/internal/types"
)

var errWriteFailed = errors.New("write rejected")

// flakyStore wraps a MemoryStore and fails selected calls.
type flakyStore struct {
	*fieldstore.MemoryStore

	mu          sync.Mutex
	writes      int
	failOnWrite int // 1-based; 0 never fails
	listErr     error
	deleteErr   error
}

func newFlakyStore() *flakyStore {
	return &flakyStore{MemoryStore: fieldstore.NewMemoryStore()}
}

func (s *flakyStore) nextWriteFails() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	return s.failOnWrite > 0 && s.writes == s.failOnWrite
}

func (s *flakyStore) ListFieldSettings(ctx context.Context, tenantID uuid.UUID, category string) ([]types.FieldSetting, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.MemoryStore.ListFieldSettings(ctx, tenantID, category)
}

func (s *flakyStore) InsertFieldSetting(ctx context.Context, fs types.FieldSetting) (uuid.UUID, error) {
	if s.nextWriteFails() {
		return uuid.Nil, errWriteFailed
	}
	return s.MemoryStore.InsertFieldSetting(ctx, fs)
}

func (s *flakyStore) UpdateFieldSetting(ctx context.Context, id uuid.UUID, state types.FieldState) error {
	if s.nextWriteFails() {
		return errWriteFailed
	}
	return s.MemoryStore.UpdateFieldSetting(ctx, id, state)
}

func (s *flakyStore) DeleteFieldSettings(ctx context.Context, tenantID uuid.UUID, category string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	return s.MemoryStore.DeleteFieldSettings(ctx, tenantID, category)
}

type capturePublisher struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, evt event.DomainEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
}

// fiveFields is a small catalog for save-order scenarios.
var fiveFields = catalog.MustNew(
	types.FieldDefinition{Name: "naam", Label: "Naam", Kind: types.KindText, DefaultTab: "algemeen"},
	types.FieldDefinition{Name: "kostprijs", Label: "Kostprijs", Kind: types.KindNumber, DefaultTab: "inkoop"},
	types.FieldDefinition{Name: "verkoopprijs", Label: "Verkoopprijs", Kind: types.KindNumber, DefaultTab: "verkoop"},
	types.FieldDefinition{Name: "abv", Label: "Alcohol", Kind: types.KindNumber, DefaultTab: "dranken"},
	types.FieldDefinition{Name: "gekoeld", Label: "Gekoeld", Kind: types.KindBoolean, DefaultTab: "logistiek"},
)

type fixture struct {
	store    *flakyStore
	resolver *fieldconfig.Resolver
	pub      *capturePublisher
	tenant   uuid.UUID
	ed       *Editor
	logs     *bytes.Buffer
}

func newFixture(t *testing.T, c *catalog.Catalog) *fixture {
	t.Helper()
	f := &fixture{
		store:  newFlakyStore(),
		pub:    &capturePublisher{},
		tenant: uuid.New(),
		logs:   &bytes.Buffer{},
	}
	logger := slog.New(slog.NewTextHandler(f.logs, nil))
	f.resolver = fieldconfig.NewResolver(f.store, f.tenant, time.Hour,
		fieldconfig.WithCatalog(c), fieldconfig.WithLogger(logger))
	f.ed = New(f.store, f.resolver, f.tenant,
		WithCatalog(c), WithPublisher(f.pub), WithLogger(logger), WithTimeout(time.Second))
	return f
}

func confirmed(string) bool { return true }

func TestLoadCategory_SynthesizesFullCatalog(t *testing.T) {
	f := newFixture(t, catalog.Products)
	require.NoError(t, f.ed.LoadCategory(context.Background(), "Wijnen"))

	rows := f.ed.Rows()
	require.Len(t, rows, catalog.Products.Len())
	for i, def := range catalog.Products.Fields() {
		assert.Equal(t, def.Name, rows[i].FieldName)
		assert.Equal(t, def.Label, rows[i].Label)
		assert.Equal(t, uuid.Nil, rows[i].ID, "%s should have no id", def.Name)
		assert.Equal(t, types.DefaultState(def), rows[i].FieldState)
		assert.Equal(t, "Wijnen", rows[i].Category)
	}
	assert.Equal(t, StateLoaded, f.ed.State())
	assert.Equal(t, "Wijnen", f.ed.Category())
}

func TestLoadCategory_UsesStoredOverrides(t *testing.T) {
	f := newFixture(t, fiveFields)
	id, err := f.store.MemoryStore.InsertFieldSetting(context.Background(), types.FieldSetting{
		TenantID: f.tenant, Category: "Bieren", FieldName: "abv",
		FieldState: types.FieldState{Visible: false, Tab: "algemeen"},
	})
	require.NoError(t, err)

	require.NoError(t, f.ed.LoadCategory(context.Background(), "Bieren"))
	row, ok := f.ed.Row("abv")
	require.True(t, ok)
	assert.Equal(t, id, row.ID)
	assert.False(t, row.Visible)
	assert.Equal(t, "algemeen", row.Tab)
	assert.Equal(t, "dranken", row.DefaultTab)
}

func TestLoadCategory_Empty(t *testing.T) {
	f := newFixture(t, fiveFields)
	assert.ErrorIs(t, f.ed.LoadCategory(context.Background(), ""), ErrEmptyCategory)
	assert.Equal(t, StateIdle, f.ed.State())
}

func TestLoadCategory_FailureKeepsRows(t *testing.T) {
	f := newFixture(t, fiveFields)
	ctx := context.Background()
	require.NoError(t, f.ed.LoadCategory(ctx, "Bieren"))
	require.NoError(t, f.ed.SetField("abv", AttrVisible, false))

	f.store.listErr = errors.New("timeout")
	err := f.ed.LoadCategory(ctx, "Bieren")
	require.Error(t, err)
	assert.Equal(t, StateLoaded, f.ed.State())
	assert.Equal(t, err, f.ed.LastError())

	row, _ := f.ed.Row("abv")
	assert.False(t, row.Visible, "operator edits survive a failed reload")
}

func TestLoadCategory_FailureBeforeFirstLoadIsIdle(t *testing.T) {
	f := newFixture(t, fiveFields)
	f.store.listErr = errors.New("timeout")
	require.Error(t, f.ed.LoadCategory(context.Background(), "Bieren"))
	assert.Equal(t, StateIdle, f.ed.State())
	assert.Empty(t, f.ed.Rows())
}

func TestSetField(t *testing.T) {
	f := newFixture(t, fiveFields)
	require.NoError(t, f.ed.LoadCategory(context.Background(), "Bieren"))

	require.NoError(t, f.ed.SetField("kostprijs", AttrDisabled, true))
	require.NoError(t, f.ed.SetField("kostprijs", AttrTab, " verkoop "))
	require.NoError(t, f.ed.SetField("abv", AttrVisible, false))
	assert.Equal(t, StateEditing, f.ed.State())

	row, _ := f.ed.Row("kostprijs")
	assert.True(t, row.Disabled)
	assert.Equal(t, "verkoop", row.Tab)

	// No I/O happened.
	assert.Equal(t, 0, f.store.Len())
}

func TestSetField_Errors(t *testing.T) {
	f := newFixture(t, fiveFields)
	assert.ErrorIs(t, f.ed.SetField("abv", AttrVisible, false), ErrNotLoaded)

	require.NoError(t, f.ed.LoadCategory(context.Background(), "Bieren"))
	tests := []struct {
		name  string
		field string
		attr  Attribute
		value any
		want  error
	}{
		{"unknown field", "bestaat_niet", AttrVisible, true, ErrUnknownField},
		{"visible not bool", "abv", AttrVisible, "ja", ErrInvalidValue},
		{"disabled not bool", "abv", AttrDisabled, 1, ErrInvalidValue},
		{"tab not string", "abv", AttrTab, true, ErrInvalidValue},
		{"empty tab", "abv", AttrTab, "  ", ErrInvalidValue},
		{"unknown attribute", "abv", Attribute("label"), "x", ErrInvalidValue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, f.ed.SetField(tt.field, tt.attr, tt.value), tt.want)
		})
	}
	assert.Equal(t, StateLoaded, f.ed.State())
}

func TestSetField_AcceptsAdHocTab(t *testing.T) {
	f := newFixture(t, fiveFields)
	require.NoError(t, f.ed.LoadCategory(context.Background(), "Bieren"))
	require.NoError(t, f.ed.SetField("abv", AttrTab, "zomeractie"))

	_, err := f.ed.Save(context.Background())
	require.NoError(t, err)
	cfg := f.resolver.Resolve(context.Background(), "Bieren")
	assert.Equal(t, "zomeractie", cfg.TabOf("abv", "dranken"))
	assert.Contains(t, cfg.AvailableTabs(), "zomeractie")
}

func TestSave_InsertsThenUpdates(t *testing.T) {
	f := newFixture(t, fiveFields)
	ctx := context.Background()
	require.NoError(t, f.ed.LoadCategory(ctx, "Bieren"))

	res, err := f.ed.Save(ctx)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.Len(t, res.Succeeded, 5)
	assert.Equal(t, 5, f.store.Len())
	for _, row := range f.ed.Rows() {
		assert.NotEqual(t, uuid.Nil, row.ID, row.FieldName)
	}

	// A second save updates the same rows instead of inserting new ones.
	require.NoError(t, f.ed.SetField("abv", AttrVisible, false))
	_, err = f.ed.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, f.store.Len())
	assert.Equal(t, StateLoaded, f.ed.State())
	assert.NoError(t, f.ed.LastError())
}

func TestSave_SecondEditorDoesNotDuplicate(t *testing.T) {
	f := newFixture(t, fiveFields)
	ctx := context.Background()
	require.NoError(t, f.ed.LoadCategory(ctx, "Bieren"))
	_, err := f.ed.Save(ctx)
	require.NoError(t, err)

	other := New(f.store, f.resolver, f.tenant, WithCatalog(fiveFields))
	require.NoError(t, other.LoadCategory(ctx, "Bieren"))
	require.NoError(t, other.SetField("naam", AttrDisabled, true))
	_, err = other.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, f.store.Len())
}

func TestSave_NotLoaded(t *testing.T) {
	f := newFixture(t, fiveFields)
	_, err := f.ed.Save(context.Background())
	assert.ErrorIs(t, err, ErrNotLoaded)
}

func TestSave_UpsertRoundTrip(t *testing.T) {
	f := newFixture(t, catalog.Products)
	ctx := context.Background()
	require.NoError(t, f.ed.LoadCategory(ctx, "Bieren"))
	// Warm the cache so the test proves the editor invalidates it.
	require.True(t, f.resolver.Resolve(ctx, "Bieren").IsVisible("abv"))

	require.NoError(t, f.ed.SetField("abv", AttrVisible, false))
	_, err := f.ed.Save(ctx)
	require.NoError(t, err)
	assert.False(t, f.resolver.Resolve(ctx, "Bieren").IsVisible("abv"))

	require.NoError(t, f.ed.SetField("abv", AttrVisible, true))
	_, err = f.ed.Save(ctx)
	require.NoError(t, err)
	assert.True(t, f.resolver.Resolve(ctx, "Bieren").IsVisible("abv"))
}

func TestSave_KostprijsScenario(t *testing.T) {
	f := newFixture(t, catalog.Products)
	ctx := context.Background()
	require.NoError(t, f.ed.LoadCategory(ctx, "Bieren"))
	require.NoError(t, f.ed.SetField("kostprijs", AttrDisabled, true))
	require.NoError(t, f.ed.SetField("kostprijs", AttrTab, "verkoop"))
	_, err := f.ed.Save(ctx)
	require.NoError(t, err)

	cfg := f.resolver.Resolve(ctx, "Bieren")
	assert.True(t, cfg.IsDisabled("kostprijs"))
	assert.Equal(t, "verkoop", cfg.TabOf("kostprijs", "inkoop"))
	for _, def := range catalog.Products.Fields() {
		if def.Name == "kostprijs" {
			continue
		}
		assert.True(t, cfg.IsVisible(def.Name), def.Name)
		assert.False(t, cfg.IsDisabled(def.Name), def.Name)
		assert.Equal(t, def.DefaultTab, cfg.TabOf(def.Name, def.DefaultTab), def.Name)
	}

	// Other categories are untouched.
	assert.Empty(t, f.resolver.Resolve(ctx, "Wijnen").Overrides())
}

func TestSave_PartialFailureOnThirdOfFive(t *testing.T) {
	f := newFixture(t, fiveFields)
	ctx := context.Background()

	// Persist the starting state: every field visible on its default tab.
	require.NoError(t, f.ed.LoadCategory(ctx, "Bieren"))
	_, err := f.ed.Save(ctx)
	require.NoError(t, err)
	f.pub.events = nil

	for _, name := range fiveFields.Names() {
		require.NoError(t, f.ed.SetField(name, AttrDisabled, true))
	}
	f.store.mu.Lock()
	f.store.writes = 0
	f.store.failOnWrite = 3
	f.store.mu.Unlock()

	res, err := f.ed.Save(ctx)
	require.Error(t, err)

	var partial *PartialSaveError
	require.ErrorAs(t, err, &partial)
	assert.True(t, partial.Partial())
	assert.ErrorIs(t, err, errWriteFailed)
	assert.Contains(t, err.Error(), "2 of 5 rows saved")

	assert.Equal(t, []string{"naam", "kostprijs"}, []string{res.Succeeded[0].FieldName, res.Succeeded[1].FieldName})
	require.Len(t, res.Failed, 1)
	assert.Equal(t, "verkoopprijs", res.Failed[0].FieldName)
	assert.Equal(t, []string{"abv", "gekoeld"}, res.Skipped)

	// The view was reloaded: it shows what is actually stored.
	rows := f.ed.Rows()
	assert.True(t, rows[0].Disabled)
	assert.True(t, rows[1].Disabled)
	assert.False(t, rows[2].Disabled)
	assert.False(t, rows[3].Disabled)
	assert.False(t, rows[4].Disabled)
	assert.Equal(t, StateLoaded, f.ed.State())
	assert.Equal(t, err, f.ed.LastError())

	cfg := f.resolver.Resolve(ctx, "Bieren")
	assert.True(t, cfg.IsDisabled("kostprijs"))
	assert.False(t, cfg.IsDisabled("verkoopprijs"))

	require.Len(t, f.pub.events, 1)
	assert.True(t, f.pub.events[0].Partial())
	assert.Contains(t, f.logs.String(), "field settings save incomplete")
}

func TestSave_FirstRowFailsIsNotPartial(t *testing.T) {
	f := newFixture(t, fiveFields)
	require.NoError(t, f.ed.LoadCategory(context.Background(), "Bieren"))
	f.store.failOnWrite = 1

	res, err := f.ed.Save(context.Background())
	var partial *PartialSaveError
	require.ErrorAs(t, err, &partial)
	assert.False(t, partial.Partial())
	assert.Empty(t, res.Succeeded)
	assert.Len(t, res.Skipped, 4)
	assert.Equal(t, 0, f.store.Len())
}

func TestSave_ReloadFailureKeepsEdits(t *testing.T) {
	f := newFixture(t, fiveFields)
	ctx := context.Background()
	require.NoError(t, f.ed.LoadCategory(ctx, "Bieren"))
	require.NoError(t, f.ed.SetField("abv", AttrVisible, false))
	f.store.failOnWrite = 1
	f.store.listErr = errors.New("connection reset")

	_, err := f.ed.Save(ctx)
	require.Error(t, err)
	var partial *PartialSaveError
	assert.ErrorAs(t, err, &partial)
	assert.Contains(t, err.Error(), "connection reset")

	row, _ := f.ed.Row("abv")
	assert.False(t, row.Visible)
	assert.Equal(t, StateLoaded, f.ed.State())
}

func TestResetCategory(t *testing.T) {
	f := newFixture(t, fiveFields)
	ctx := context.Background()
	require.NoError(t, f.ed.LoadCategory(ctx, "Bieren"))
	require.NoError(t, f.ed.SetField("abv", AttrVisible, false))
	_, err := f.ed.Save(ctx)
	require.NoError(t, err)
	require.False(t, f.resolver.Resolve(ctx, "Bieren").IsVisible("abv"))

	var asked string
	require.NoError(t, f.ed.ResetCategory(ctx, func(category string) bool {
		asked = category
		return true
	}))
	assert.Equal(t, "Bieren", asked)
	assert.Equal(t, 0, f.store.Len())

	for i, def := range fiveFields.Fields() {
		row := f.ed.Rows()[i]
		assert.Equal(t, uuid.Nil, row.ID)
		assert.Equal(t, types.DefaultState(def), row.FieldState)
	}
	assert.True(t, f.resolver.Resolve(ctx, "Bieren").IsVisible("abv"))
	assert.Equal(t, event.TypeFieldSettingsReset, f.pub.events[len(f.pub.events)-1].EventType)
}

func TestResetCategory_Idempotent(t *testing.T) {
	f := newFixture(t, fiveFields)
	ctx := context.Background()
	require.NoError(t, f.ed.LoadCategory(ctx, "Bieren"))
	require.NoError(t, f.ed.SetField("naam", AttrTab, "inkoop"))
	_, err := f.ed.Save(ctx)
	require.NoError(t, err)

	require.NoError(t, f.ed.ResetCategory(ctx, confirmed))
	once := f.resolver.Resolve(ctx, "Bieren").Effective()
	require.NoError(t, f.ed.ResetCategory(ctx, confirmed))
	twice := f.resolver.Resolve(ctx, "Bieren")

	assert.Equal(t, once, twice.Effective())
	assert.Empty(t, twice.Overrides())
}

func TestResetCategory_RequiresConfirmation(t *testing.T) {
	f := newFixture(t, fiveFields)
	ctx := context.Background()
	require.NoError(t, f.ed.LoadCategory(ctx, "Bieren"))
	_, err := f.ed.Save(ctx)
	require.NoError(t, err)

	assert.ErrorIs(t, f.ed.ResetCategory(ctx, nil), ErrResetNotConfirmed)
	assert.ErrorIs(t, f.ed.ResetCategory(ctx, func(string) bool { return false }), ErrResetNotConfirmed)
	assert.Equal(t, 5, f.store.Len())
}

func TestResetCategory_NotLoaded(t *testing.T) {
	f := newFixture(t, fiveFields)
	assert.ErrorIs(t, f.ed.ResetCategory(context.Background(), confirmed), ErrNotLoaded)
}

func TestResetCategory_DeleteFailureKeepsRows(t *testing.T) {
	f := newFixture(t, fiveFields)
	ctx := context.Background()
	require.NoError(t, f.ed.LoadCategory(ctx, "Bieren"))
	require.NoError(t, f.ed.SetField("abv", AttrVisible, false))
	f.store.deleteErr = errors.New("permission denied")

	err := f.ed.ResetCategory(ctx, confirmed)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Equal(t, StateLoaded, f.ed.State())
	assert.Equal(t, err, f.ed.LastError())

	row, _ := f.ed.Row("abv")
	assert.False(t, row.Visible)
}

func TestResetCategory_ReloadFailureClearsIDs(t *testing.T) {
	f := newFixture(t, fiveFields)
	ctx := context.Background()
	require.NoError(t, f.ed.LoadCategory(ctx, "Bieren"))
	_, err := f.ed.Save(ctx)
	require.NoError(t, err)

	f.store.listErr = errors.New("connection reset")
	require.Error(t, f.ed.ResetCategory(ctx, confirmed))
	for _, row := range f.ed.Rows() {
		assert.Equal(t, uuid.Nil, row.ID, row.FieldName)
	}

	f.store.listErr = nil
	_, err = f.ed.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, f.store.Len())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "saving", StateSaving.String())
	assert.Equal(t, "unknown", State(42).String())
}
