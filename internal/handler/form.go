package handler

import (
	"net/http"

	"github.com/matthewbaird/backoffice/internal/form"
)

// FormHandler renders product form layouts.
type FormHandler struct {
	renderer *form.Renderer
}

// NewFormHandler creates a new FormHandler.
func NewFormHandler(renderer *form.Renderer) *FormHandler {
	return &FormHandler{renderer: renderer}
}

type renderFormRequest struct {
	Values map[string]any `json:"values"`
}

// RenderForm lays out the edit form of a product in category, filled with
// the posted values.
// POST /v1/forms/{category}
func (h *FormHandler) RenderForm(w http.ResponseWriter, r *http.Request) {
	category, ok := parseCategory(w, r)
	if !ok {
		return
	}
	var req renderFormRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.renderer.Render(r.Context(), category, req.Values))
}
