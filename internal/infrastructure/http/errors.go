package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorResponse is the standardized error body for non-validation failures.
type ErrorResponse struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors,omitempty"`
}

// ValidationErrorResponse maps each failing request field to its
// error messages. All failing fields are reported at once; the
// validator never stops at the first error.
type ValidationErrorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors"`
}

// WriteError writes a standardized JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message string, errors []string, log *slog.Logger) {
	response := ErrorResponse{
		Message: message,
		Errors:  errors,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		// Status code already sent; nothing else to do but log.
		if log != nil {
			log.Error("failed to encode error response", "error", err)
		}
	}
}

// WriteValidationError writes a per-field validation error response
// with HTTP 422.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string][]string, log *slog.Logger) {
	response := ValidationErrorResponse{
		Message: "The given data was invalid.",
		Errors:  fieldErrors,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnprocessableEntity)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		if log != nil {
			log.Error("failed to encode validation error response", "error", err)
		}
	}
}
