// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// envelope is the JSON response body shared by all endpoints.
type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// writeEnvelope writes an envelope with the given HTTP status. The body
// code may differ from the HTTP status (registration reports 204 in the
// body of a 201 response).
func writeEnvelope(w http.ResponseWriter, status, bodyCode int, message string, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{
		Code:    bodyCode,
		Message: message,
		Data:    data,
	}); err != nil {
		slog.Debug("response write failed", "error", err)
	}
}

// writeOK writes a 200 envelope.
func writeOK(w http.ResponseWriter, message string, data any) {
	writeEnvelope(w, http.StatusOK, http.StatusOK, message, data)
}

// statusForError maps error taxonomy codes onto HTTP statuses:
// validation and authentication failures are 401, conflicts 400,
// missing or disabled resources 404, everything else 500.
func statusForError(err error) int {
	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return http.StatusInternalServerError
	}
	code, _ := oopsErr.Code().(string)
	switch {
	case strings.HasPrefix(code, "VALIDATION_"):
		return http.StatusUnauthorized
	case strings.HasPrefix(code, "CONFLICT_"):
		return http.StatusBadRequest
	case strings.HasPrefix(code, "AUTH_"):
		return http.StatusUnauthorized
	case strings.HasPrefix(code, "NOT_FOUND"):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps err onto the envelope convention. Internal failures
// are logged with context but reported to the client without detail.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := statusForError(err)

	message := "authentication failed"
	switch status {
	case http.StatusBadRequest:
		message = "conflict"
	case http.StatusNotFound:
		message = "not found"
	case http.StatusInternalServerError:
		message = "internal error"
	}

	if status == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	} else {
		logger.DebugContext(r.Context(), "request rejected",
			"method", r.Method, "path", r.URL.Path, "status", status, "error", err)
	}

	writeEnvelope(w, status, status, message, nil)
}
