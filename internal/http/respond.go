package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"dops/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// respondError maps domain errors onto HTTP statuses. Validation failures
// surface their message; anything unexpected stays a generic 500 so storage
// details never leak to clients.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch status := errorStatus(err); status {
	case http.StatusInternalServerError:
		slog.ErrorContext(r.Context(), "Request failed", "method", r.Method, "url", r.URL.Path, "error", err)
		writeError(w, status, "internal error")
	default:
		writeError(w, status, err.Error())
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrClientInUse):
		return http.StatusConflict
	case errors.Is(err, core.ErrInvalidDuration),
		errors.Is(err, core.ErrInvalidRate),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrMissingField),
		errors.Is(err, core.ErrInvalidCategory),
		errors.Is(err, core.ErrInvalidStatus),
		errors.Is(err, core.ErrNoParticipants),
		errors.Is(err, core.ErrNoContributors),
		errors.Is(err, core.ErrUnbalanced):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
