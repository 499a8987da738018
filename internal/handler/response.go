package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
//   writeJSON(w, http.StatusOK, data)
//   writeError(w, err)
//
// ERROR BODIES:
// Client errors (bad JSON) get a small JSON body:
//   {"error": "validation_error", "message": "request body must be a JSON object"}
//
// Server errors get the bare status text and nothing else. Storage errors
// carry SQL, file paths and driver messages, none of which belong in a
// response. The detail goes to the log instead.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/userbook/internal/apperror"
)

// ErrorResponse is the error format for 4xx responses.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "validation_error")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set before the body. Once Encode calls
// w.Write, the headers are on the wire and later changes are ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status code and sends it.
//
// errors.As walks the wrap chain, so an AppError wrapped by the service
// ("getting or creating user: %w") is still found.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) && errors.Is(err, apperror.ErrValidation) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: appErr.Message,
		})
		return
	}

	// Everything else, ErrNotFound included, is an opaque 500. No endpoint
	// looks anything up by a client-supplied key, so a NotFound reaching
	// this point is a storage inconsistency.
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}
