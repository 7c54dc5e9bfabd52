// Package respond writes JSON responses and maps service errors to status codes.
package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/NickArm/Invoice-System-sub001/internal/apperror"
)

// MaxBodySize bounds JSON request bodies.
const MaxBodySize = 1 << 20

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Error writes err with the status its kind maps to. Unknown errors are
// logged and hidden behind a generic message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var ve *apperror.ValidationError
	if errors.As(err, &ve) {
		JSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Fields: ve.Fields})
		return
	}

	status := Status(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		JSON(w, status, errorResponse{Error: "internal error"})

		return
	}

	JSON(w, status, errorResponse{Error: err.Error()})
}

// Status returns the HTTP status for err.
func Status(err error) int {
	var ve *apperror.ValidationError

	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

// BadRequest wraps a malformed-input message so Error answers 400.
func BadRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// Decode reads a JSON body into v, rejecting unknown fields and trailing data.
func Decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodySize))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return BadRequest("invalid request body: %v", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return BadRequest("invalid request body: unexpected data after JSON object")
	}

	return nil
}

// ID parses the named URL parameter as a UUID.
func ID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, BadRequest("invalid %s", name)
	}

	return id, nil
}

// QueryID parses an optional UUID query parameter.
func QueryID(r *http.Request, name string) (*uuid.UUID, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}

	id, err := uuid.Parse(s)
	if err != nil {
		return nil, apperror.NewValidationError(name, "must be a valid UUID")
	}

	return &id, nil
}

// QueryDate parses an optional YYYY-MM-DD query parameter.
func QueryDate(r *http.Request, name string) (*time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return nil, nil
	}

	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, apperror.NewValidationError(name, "must be a date formatted as "+time.DateOnly)
	}

	return &t, nil
}
