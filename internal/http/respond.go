package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"fintrack/internal/core"
)

// Envelope is the uniform JSON response shape. Success responses carry
// Data; failures carry Error, which is either a reason string or a list
// of field errors.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   any    `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func respond(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, Envelope{Success: true, Data: data})
}

func respondMessage(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// writeError maps domain errors onto the HTTP taxonomy. Unknown errors
// become a generic 500; the underlying cause is logged and only exposed
// in the body when devMode is on.
func writeError(ctx context.Context, w http.ResponseWriter, err error, devMode bool) {
	if ve, ok := core.AsValidation(err); ok {
		writeJSON(w, http.StatusBadRequest, Envelope{
			Success: false,
			Message: "validation failed",
			Error:   ve.Fields,
		})
		return
	}

	switch {
	case errors.Is(err, core.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, Envelope{
			Success: false,
			Message: "invalid credentials",
			Error:   "unauthorized",
		})
	case errors.Is(err, core.ErrForbidden):
		writeJSON(w, http.StatusForbidden, Envelope{
			Success: false,
			Message: "you do not have access to this resource",
			Error:   "forbidden",
		})
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, Envelope{
			Success: false,
			Message: "resource not found",
			Error:   "not_found",
		})
	case errors.Is(err, core.ErrConflict):
		writeJSON(w, http.StatusConflict, Envelope{
			Success: false,
			Message: "resource already exists",
			Error:   "conflict",
		})
	default:
		slog.ErrorContext(ctx, "Request failed", "error", err)
		env := Envelope{
			Success: false,
			Message: "internal server error",
			Error:   "internal",
		}
		if devMode {
			env.Error = err.Error()
		}
		writeJSON(w, http.StatusInternalServerError, env)
	}
}

// badRequest reports a malformed request body or parameter.
func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, Envelope{
		Success: false,
		Message: message,
		Error:   "bad_request",
	})
}

// decodeBody parses a JSON request body into dst, rejecting unknown
// fields so typos fail loudly instead of silently dropping data.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
