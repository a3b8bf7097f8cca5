package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oficina-virtual/apiserver/internal/services"
	"github.com/rs/zerolog"
)

// ErrorResponse is the error payload. Details is only set for validation
// failures.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Details []FieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeValidationError(w http.ResponseWriter, errs ValidationErrors) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: errs.Error(), Details: errs})
}

// writeServiceError maps service errors to status codes. Anything not
// modeled is logged and hidden behind fallback.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error, fallback string) {
	var notFound *services.NotFoundError
	var conflict *services.ConflictError
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, conflict.Error())
	default:
		log.Error().Err(err).Msg(fallback)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
