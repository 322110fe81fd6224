package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/backoffice/internal/activity"
)

// ActivityHandler serves the change history of field settings.
type ActivityHandler struct {
	store    activity.Store
	tenantID uuid.UUID
	logger   *slog.Logger
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(store activity.Store, tenantID uuid.UUID, logger *slog.Logger) *ActivityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ActivityHandler{store: store, tenantID: tenantID, logger: logger}
}

// GetCategoryActivity returns the saves and resets of a category, newest first.
// GET /v1/field-settings/{category}/activity
func (h *ActivityHandler) GetCategoryActivity(w http.ResponseWriter, r *http.Request) {
	category, ok := parseCategory(w, r)
	if !ok {
		return
	}

	opts := activity.DefaultQueryOptions()
	q := r.URL.Query()
	if s := q.Get("since"); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			opts.Since = &t
		}
	}
	if u := q.Get("until"); u != "" {
		if t, err := time.Parse(time.RFC3339, u); err == nil {
			opts.Until = &t
		}
	}
	if types := q.Get("event_types"); types != "" {
		opts.EventTypes = strings.Split(types, ",")
	}
	if l := q.Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	opts.Cursor = q.Get("cursor")

	entries, nextCursor, totalCount, err := h.store.QueryByCategory(r.Context(), h.tenantID, category, opts)
	if err != nil {
		h.logger.Error("querying field settings activity",
			slog.String("category", category),
			slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", "could not read activity")
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}

	writeJSON(w, http.StatusOK, struct {
		Category   string           `json:"category"`
		Activities []activity.Entry `json:"activities"`
		NextCursor string           `json:"next_cursor,omitempty"`
		TotalCount int              `json:"total_count"`
	}{
		Category:   category,
		Activities: entries,
		NextCursor: nextCursor,
		TotalCount: totalCount,
	})
}
