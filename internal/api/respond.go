// Package api exposes the engine's HTTP surface: subscription management,
// on-demand evaluation, health, and metrics.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"pestwatch/internal/types"
)

// maxRequestBodySize is the maximum allowed size of a request body (64 KB);
// subscription payloads are tiny.
const maxRequestBodySize = 64 << 10

// errorResponse is the standard envelope for error responses.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(errorResponse{Error: errorDetail{
			Code:    string(types.ErrCodeInternalUnexpected),
			Message: "failed to marshal response",
		}})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeError maps the error chain onto the standard envelope. AppErrors carry
// their own status; anything else becomes an opaque 500 so internals never
// leak to clients.
func writeError(w http.ResponseWriter, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.HTTPStatus(), errorResponse{Error: errorDetail{
			Code:    string(appErr.Code),
			Message: appErr.Message,
			Details: appErr.Details,
		}})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorDetail{
		Code:    string(types.ErrCodeInternalUnexpected),
		Message: "an unexpected error occurred",
	}})
}

// decodeJSON reads the request body into dst with a size cap and strict field
// checking. All decode failures map to a 400 validation error.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		msg := "invalid JSON body"
		switch {
		case errors.Is(err, io.EOF):
			msg = "request body is empty"
		case strings.Contains(err.Error(), "unknown field"):
			msg = "request body contains an unknown field"
		}
		return types.NewAppError(types.ErrCodeValidationMissingField, msg, err)
	}
	if dec.More() {
		return types.NewAppError(types.ErrCodeValidationMissingField,
			"request body must contain a single JSON object", nil)
	}
	return nil
}
