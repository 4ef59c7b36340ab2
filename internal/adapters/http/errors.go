package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"vitebridge/internal/adapters/http/middleware"
	"vitebridge/internal/adapters/storage"
	"vitebridge/internal/application/listutil"
	"vitebridge/internal/domain/item"
)

// Error codes carried in the "error" field of the JSON envelope.
const (
	codeNotFound            = "not_found"
	codeMethodNotAllowed    = "method_not_allowed"
	codeInvalidJSON         = "invalid_json"
	codeValidationFailed    = "validation_failed"
	codePayloadTooLarge     = "payload_too_large"
	codeStoreUnavailable    = "store_unavailable"
	codeUpstreamUnavailable = "upstream_unavailable"
	codeForbidden           = "forbidden"
	codeInternal            = "internal_error"
)

type jsonError struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeError writes the JSON error envelope.
func writeError(w http.ResponseWriter, status int, code, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Del("Content-Length")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(jsonError{Error: code, Details: details})
}

// writeJSON writes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("encode_response_failed", "error", err)
	}
}

// internalError logs the real error and returns a generic message to the client.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("internal_error",
		"request_id", middleware.RequestIDFromContext(r.Context()),
		"path", r.URL.Path,
		"error", err.Error(),
	)
	writeError(w, http.StatusInternalServerError, codeInternal, "internal server error")
}

// storeError maps a store failure onto a response.
// Anything other than a missing row is reported as the store being unavailable.
func storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, item.ErrNotFound) {
		writeError(w, http.StatusNotFound, codeNotFound, err.Error())
		return
	}
	slog.Error("store_error",
		"request_id", middleware.RequestIDFromContext(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"unavailable", errors.Is(err, storage.ErrUnavailable),
		"error", err.Error(),
	)
	writeError(w, http.StatusServiceUnavailable, codeStoreUnavailable, "database is not available")
}

// validationError reports a malformed query or path value as 422.
func validationError(w http.ResponseWriter, err error) {
	var pe *listutil.ParamError
	if errors.As(err, &pe) {
		writeError(w, http.StatusUnprocessableEntity, codeValidationFailed, pe.Error())
		return
	}
	writeError(w, http.StatusUnprocessableEntity, codeValidationFailed, err.Error())
}

// notFoundf writes a 404 with a formatted detail.
func notFoundf(w http.ResponseWriter, format string, args ...any) {
	writeError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf(format, args...))
}

// WriteJSONError writes the API error envelope for callers outside this package.
func WriteJSONError(w http.ResponseWriter, status int, code, details string) {
	writeError(w, status, code, details)
}
