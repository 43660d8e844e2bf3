package httputil

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/platinummonkey/campusauth/pkg/auth"
)

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// MessageResponse is the body of responses that only carry a message.
type MessageResponse struct {
	Message string `json:"message"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteMessage writes 200 OK with a message body
func WriteMessage(w http.ResponseWriter, message string) error {
	return WriteJSON(w, http.StatusOK, MessageResponse{Message: message})
}

// WriteErrorCode writes an error body with a machine-readable code and a
// client-safe message
func WriteErrorCode(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{Error: code, Message: message})
}

// WriteBadRequest writes a validation error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteErrorCode(w, http.StatusBadRequest, "validation_error", message)
}

// WriteMethodNotAllowed writes 405 with an Allow header
func WriteMethodNotAllowed(w http.ResponseWriter, allow string) {
	if allow != "" {
		w.Header().Set("Allow", allow)
	}
	WriteErrorCode(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
}

// WriteNotFound writes 404
func WriteNotFound(w http.ResponseWriter) {
	WriteErrorCode(w, http.StatusNotFound, "not_found", "Not found")
}

// WriteInternalError writes a generic 500. The cause is never included.
func WriteInternalError(w http.ResponseWriter) {
	WriteErrorCode(w, http.StatusInternalServerError, "server_error", "Internal server error")
}

// WriteAuthError writes err as an auth error response. Errors that are not
// *auth.Error become a generic 500. Rate-limit errors carry Retry-After.
func WriteAuthError(w http.ResponseWriter, err error, retryAfterSeconds int) {
	e := auth.AsError(err)
	if e.Code == auth.CodeRateLimited && retryAfterSeconds > 0 {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfterSeconds))
	}
	if e.Status == http.StatusUnauthorized && e.Code == auth.CodeUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="portal"`)
	}
	WriteErrorCode(w, e.Status, e.Code, e.Message)
}
