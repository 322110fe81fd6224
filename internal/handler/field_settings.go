package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/backoffice/internal/catalog"
	"github.com/matthewbaird/backoffice/internal/editor"
	"github.com/matthewbaird/backoffice/internal/event"
	"github.com/matthewbaird/backoffice/internal/fieldconfig"
	"github.com/matthewbaird/backoffice/internal/fieldstore"
	"github.com/matthewbaird/backoffice/internal/types"
)

// FieldSettingsConfig holds the dependencies of a FieldSettingsHandler.
type FieldSettingsConfig struct {
	Store        fieldstore.Store
	Resolver     *fieldconfig.Resolver
	TenantID     uuid.UUID
	Publisher    event.Publisher
	StoreTimeout time.Duration
	Logger       *slog.Logger
}

// FieldSettingsHandler implements the catalog, field-config and
// field-settings endpoints.
type FieldSettingsHandler struct {
	store     fieldstore.Store
	resolver  *fieldconfig.Resolver
	catalog   *catalog.Catalog
	tenantID  uuid.UUID
	publisher event.Publisher
	timeout   time.Duration
	logger    *slog.Logger
}

// NewFieldSettingsHandler creates a new FieldSettingsHandler.
func NewFieldSettingsHandler(cfg FieldSettingsConfig) *FieldSettingsHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FieldSettingsHandler{
		store:     cfg.Store,
		resolver:  cfg.Resolver,
		catalog:   cfg.Resolver.Catalog(),
		tenantID:  cfg.TenantID,
		publisher: cfg.Publisher,
		timeout:   cfg.StoreTimeout,
		logger:    logger,
	}
}

// newEditor returns a fresh editor view; one request is one operator session.
func (h *FieldSettingsHandler) newEditor() *editor.Editor {
	opts := []editor.Option{
		editor.WithCatalog(h.catalog),
		editor.WithTimeout(h.timeout),
		editor.WithLogger(h.logger),
	}
	if h.publisher != nil {
		opts = append(opts, editor.WithPublisher(h.publisher))
	}
	return editor.New(h.store, h.resolver, h.tenantID, opts...)
}

type fieldConfigResponse struct {
	Category  string                      `json:"category"`
	Overrides map[string]types.FieldState `json:"overrides"`
	Effective map[string]types.FieldState `json:"effective"`
	Tabs      []string                    `json:"tabs"`
}

type settingsResponse struct {
	Category string       `json:"category"`
	State    string       `json:"state"`
	Rows     []editor.Row `json:"rows"`
}

type saveResponse struct {
	settingsResponse
	Result editor.SaveResult `json:"result"`
	Error  string            `json:"error,omitempty"`
	Code   string            `json:"code,omitempty"`
}

// FieldChange is one attribute update in a PUT request. Nil attributes are left alone.
type FieldChange struct {
	Field    string  `json:"field"`
	Visible  *bool   `json:"visible,omitempty"`
	Disabled *bool   `json:"disabled,omitempty"`
	Tab      *string `json:"tab,omitempty"`
}

type updateSettingsRequest struct {
	Changes []FieldChange `json:"changes"`
}

func viewOf(ed *editor.Editor) settingsResponse {
	return settingsResponse{
		Category: ed.Category(),
		State:    ed.State().String(),
		Rows:     ed.Rows(),
	}
}

// GetCatalog returns the field catalog.
// GET /v1/catalog
func (h *FieldSettingsHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.catalog.Document())
}

// GetFieldConfig returns the effective configuration of a category as the
// form renderer sees it.
// GET /v1/field-config/{category}
func (h *FieldSettingsHandler) GetFieldConfig(w http.ResponseWriter, r *http.Request) {
	category, ok := parseCategory(w, r)
	if !ok {
		return
	}
	cfg := h.resolver.Resolve(r.Context(), category)
	writeJSON(w, http.StatusOK, fieldConfigResponse{
		Category:  category,
		Overrides: cfg.Overrides(),
		Effective: cfg.Effective(),
		Tabs:      cfg.AvailableTabs(),
	})
}

// ListFieldSettings returns one working row per catalog field.
// GET /v1/field-settings/{category}
func (h *FieldSettingsHandler) ListFieldSettings(w http.ResponseWriter, r *http.Request) {
	category, ok := parseCategory(w, r)
	if !ok {
		return
	}
	ed := h.newEditor()
	if err := ed.LoadCategory(r.Context(), category); err != nil {
		storeErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ed))
}

// UpdateFieldSettings applies the posted changes and saves every row of the
// category. A save that stops part way answers 207 with the per-row result.
// PUT /v1/field-settings/{category}
func (h *FieldSettingsHandler) UpdateFieldSettings(w http.ResponseWriter, r *http.Request) {
	category, ok := parseCategory(w, r)
	if !ok {
		return
	}
	var req updateSettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}

	ed := h.newEditor()
	if err := ed.LoadCategory(r.Context(), category); err != nil {
		storeErrorToHTTP(w, h.logger, err)
		return
	}
	for _, c := range req.Changes {
		if err := applyChange(ed, c); err != nil {
			storeErrorToHTTP(w, h.logger, err)
			return
		}
	}

	result, err := ed.Save(r.Context())
	resp := saveResponse{settingsResponse: viewOf(ed), Result: result}
	if err == nil {
		writeJSON(w, http.StatusOK, resp)
		return
	}

	var partial *editor.PartialSaveError
	if !errors.As(err, &partial) {
		storeErrorToHTTP(w, h.logger, err)
		return
	}
	resp.Error = err.Error()
	if partial.Partial() {
		writeJSON(w, http.StatusMultiStatus, resp)
		return
	}
	if errors.Is(err, fieldstore.ErrDuplicate) {
		// Another editor inserted the same row since this one loaded.
		resp.Code = "CONFLICT"
		writeJSON(w, http.StatusConflict, resp)
		return
	}
	h.logger.Error("field settings save failed",
		slog.String("category", category),
		slog.Any("error", err))
	writeJSON(w, http.StatusInternalServerError, resp)
}

func applyChange(ed *editor.Editor, c FieldChange) error {
	if c.Visible != nil {
		if err := ed.SetField(c.Field, editor.AttrVisible, *c.Visible); err != nil {
			return err
		}
	}
	if c.Disabled != nil {
		if err := ed.SetField(c.Field, editor.AttrDisabled, *c.Disabled); err != nil {
			return err
		}
	}
	if c.Tab != nil {
		if err := ed.SetField(c.Field, editor.AttrTab, *c.Tab); err != nil {
			return err
		}
	}
	return nil
}

// ResetFieldSettings deletes every override of a category. The request must
// carry confirm=true.
// DELETE /v1/field-settings/{category}
func (h *FieldSettingsHandler) ResetFieldSettings(w http.ResponseWriter, r *http.Request) {
	category, ok := parseCategory(w, r)
	if !ok {
		return
	}
	confirmed := parseBoolQuery(r, "confirm")

	ed := h.newEditor()
	if err := ed.LoadCategory(r.Context(), category); err != nil {
		storeErrorToHTTP(w, h.logger, err)
		return
	}
	err := ed.ResetCategory(r.Context(), func(string) bool { return confirmed })
	if err != nil {
		storeErrorToHTTP(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(ed))
}
