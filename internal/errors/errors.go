package errors

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/render"
)

// APIError represents a structured API error response
type APIError struct {
	StatusCode int         `json:"status_code"`
	ErrorCode  string      `json:"error_code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return e.Message
}

// Render implements the render.Renderer interface for chi/render
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

// ValidationError describes one rejected input field.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors groups several field errors.
type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

// New creates a new APIError with the given parameters
func New(statusCode int, errorCode, message string) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
	}
}

// NewWithDetails creates a new APIError with additional details
func NewWithDetails(statusCode int, errorCode, message string, details interface{}) *APIError {
	return &APIError{
		StatusCode: statusCode,
		ErrorCode:  errorCode,
		Message:    message,
		Details:    details,
	}
}

// Error codes
const (
	CodeInvalidRequest   = "INVALID_REQUEST"
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeUnknownField     = "UNKNOWN_FIELD"
	CodeNotFound         = "NOT_FOUND"
	CodeEmptyView        = "EMPTY_VIEW"
	CodeTooManyRows      = "TOO_MANY_ROWS"
	CodeRateLimited      = "RATE_LIMIT_EXCEEDED"
	CodeExportFailed     = "EXPORT_FAILED"
	CodeInternal         = "INTERNAL_SERVER_ERROR"
	CodeUnavailable      = "SERVICE_UNAVAILABLE"
)

// Predefined errors
var (
	ErrEmptyView         = New(http.StatusUnprocessableEntity, CodeEmptyView, "No rows match the current filters; nothing to render")
	ErrRateLimitExceeded = New(http.StatusTooManyRequests, CodeRateLimited, "Rate limit exceeded")
)

// InvalidRequestWithError creates an invalid request error with details
func InvalidRequestWithError(err error) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeInvalidRequest, "Invalid request format", err.Error())
}

// NewValidationErrors creates validation errors from multiple fields
func NewValidationErrors(errs []ValidationError) *APIError {
	return NewWithDetails(http.StatusBadRequest, CodeValidationFailed, "Request validation failed", ValidationErrors{Errors: errs})
}

// UnknownField reports a filter key that is not in the catalog.
func UnknownField(key string) *APIError {
	return NewWithDetails(http.StatusNotFound, CodeUnknownField, fmt.Sprintf("unknown filter field %q", key), key)
}

// ExportFailed wraps a failure while producing a download.
func ExportFailed(format string, err error) *APIError {
	return NewWithDetails(http.StatusInternalServerError, CodeExportFailed, fmt.Sprintf("%s export failed", format), err.Error())
}

// WriteError writes err as a plain JSON body, for code paths that run
// outside a chi render context.
func WriteError(w http.ResponseWriter, err *APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.StatusCode)
	_ = json.NewEncoder(w).Encode(err)
}
