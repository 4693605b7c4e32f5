package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse represents a standard error response
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// MessageResponse is the body of plain acknowledgements
type MessageResponse struct {
	Message string `json:"message"`
}

// RespondJSON sends a JSON response with the given status code.
// Logs encoding errors to avoid silent failures.
func RespondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// RespondMessage sends {"message": msg}
func RespondMessage(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, MessageResponse{Message: message}, statusCode)
}

// RespondError sends a JSON error response with the given message and status code.
func RespondError(w http.ResponseWriter, message string, statusCode int) {
	RespondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// RespondErrorWithCode sends a JSON error response with a machine-readable error code.
func RespondErrorWithCode(w http.ResponseWriter, message string, code string, statusCode int) {
	RespondJSON(w, ErrorResponse{Error: message, Code: code}, statusCode)
}

// RespondInternalError sends the fixed 500 body. Details belong in the logs only.
func RespondInternalError(w http.ResponseWriter) {
	RespondErrorWithCode(w, "internal server error", CodeInternalError, http.StatusInternalServerError)
}
