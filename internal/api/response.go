// ABOUTME: JSON response envelope and domain error to HTTP status mapping.
// ABOUTME: Every API response is {success, data, error}.

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/harper/marknote/internal/db"
	"github.com/harper/marknote/internal/metadata"
	"github.com/harper/marknote/internal/notes"
	"go.uber.org/zap"
)

// Envelope provides a consistent JSON response structure.
type Envelope struct {
	Success bool              `json:"success"`
	Data    any               `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env Envelope, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		logger.Error("failed to encode response", zap.Error(err))
	}
}

func success(w http.ResponseWriter, status int, data any, logger *zap.Logger) {
	writeJSON(w, status, Envelope{Success: true, Data: data}, logger)
}

func failure(w http.ResponseWriter, status int, message string, logger *zap.Logger) {
	writeJSON(w, status, Envelope{Error: message}, logger)
}

// statusFor maps domain errors to HTTP status codes. Anything unrecognised
// is a 500.
func statusFor(err error) int {
	var httpErr *metadata.HTTPError
	switch {
	case errors.Is(err, notes.ErrMissingUser):
		return http.StatusUnauthorized
	case errors.Is(err, notes.ErrValidation),
		errors.Is(err, db.ErrEmptyTagName),
		errors.Is(err, db.ErrPrefixTooShort),
		errors.Is(err, db.ErrAmbiguousPrefix),
		errors.Is(err, metadata.ErrInvalidURL):
		return http.StatusBadRequest
	case errors.Is(err, db.ErrNoteNotFound), errors.Is(err, db.ErrTagNotFound):
		return http.StatusNotFound
	case errors.Is(err, db.ErrTagExists):
		return http.StatusConflict
	case errors.Is(err, notes.ErrFetchDisabled):
		return http.StatusServiceUnavailable
	case errors.Is(err, metadata.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &httpErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func handleError(w http.ResponseWriter, err error, logger *zap.Logger) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("unhandled error", zap.Error(err))
		failure(w, status, "internal server error", logger)
		return
	}

	env := Envelope{Error: err.Error()}
	var verr *notes.ValidationError
	if errors.As(err, &verr) {
		env.Error = notes.ErrValidation.Error()
		env.Details = verr.Fields
	}
	writeJSON(w, status, env, logger)
}
