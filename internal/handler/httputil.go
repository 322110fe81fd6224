package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/matthewbaird/backoffice/internal/editor"
	"github.com/matthewbaird/backoffice/internal/fieldstore"
)

// writeJSON marshals v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("writeJSON encode error", slog.Any("error", err))
	}
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
		"code":  code,
	})
}

// decodeJSON decodes the request body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// parseCategory extracts the category path parameter.
func parseCategory(w http.ResponseWriter, r *http.Request) (string, bool) {
	category := strings.TrimSpace(chi.URLParam(r, "category"))
	if category == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", "category is required")
		return "", false
	}
	return category, true
}

// parseBoolQuery reads a boolean query parameter; absent or malformed values are false.
func parseBoolQuery(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

// storeErrorToHTTP maps editor and store errors to appropriate HTTP responses.
func storeErrorToHTTP(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, editor.ErrUnknownField):
		writeError(w, http.StatusBadRequest, "UNKNOWN_FIELD", err.Error())
	case errors.Is(err, editor.ErrInvalidValue):
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, editor.ErrEmptyCategory):
		writeError(w, http.StatusBadRequest, "MISSING_PARAMS", err.Error())
	case errors.Is(err, editor.ErrResetNotConfirmed):
		writeError(w, http.StatusBadRequest, "CONFIRMATION_REQUIRED", "reset requires confirm=true")
	case errors.Is(err, fieldstore.ErrNotFound):
		writeError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, fieldstore.ErrDuplicate):
		writeError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("store call timed out", slog.Any("error", err))
		writeError(w, http.StatusGatewayTimeout, "STORE_TIMEOUT", "field setting store did not respond in time")
	default:
		logger.Error("internal error", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
	}
}
