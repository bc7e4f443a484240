package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/NIKPRIN6598/Cleaner-Selector/internal/dataset"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/exporter"
	"github.com/NIKPRIN6598/Cleaner-Selector/internal/filter"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("error", err.Error()),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem.WithExtension("trace_id", reqID)
	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	problem.Write(w)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	switch {
	case errors.Is(err, filter.ErrUnknownField):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeUnknownField,
			"Unknown Filter Field",
			err.Error(),
			r.URL.Path,
		).WithExtension("error_code", CodeUnknownField)

	case errors.Is(err, filter.ErrUnknownValue),
		errors.Is(err, filter.ErrInvalidRange),
		errors.Is(err, filter.ErrNotNumeric),
		errors.Is(err, filter.ErrNotCategorical),
		errors.Is(err, filter.ErrNoBounds),
		errors.Is(err, filter.ErrUnknownPolicy):
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeValidation,
			"Validation Failed",
			err.Error(),
			r.URL.Path,
		).WithExtension("error_code", CodeValidationFailed)

	case errors.Is(err, exporter.ErrEmptyView):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeEmptyView,
			"Nothing To Export",
			err.Error(),
			r.URL.Path,
		).WithExtension("error_code", CodeEmptyView)

	case errors.Is(err, exporter.ErrTooManyRows):
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeTooManyRows,
			"Too Many Rows For An Image",
			err.Error()+"; narrow the filters or download the CSV",
			r.URL.Path,
		).WithExtension("error_code", CodeTooManyRows)

	case errors.Is(err, exporter.ErrUnsupportedFormat):
		return NewProblemDetails(
			http.StatusNotFound,
			TypeNotFound,
			"Resource Not Found",
			err.Error(),
			r.URL.Path,
		).WithExtension("error_code", CodeNotFound)

	case errors.Is(err, dataset.ErrMissingColumns),
		errors.Is(err, dataset.ErrEmptySheet):
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeServiceDown,
			"Dataset Unavailable",
			err.Error(),
			r.URL.Path,
		).WithExtension("error_code", CodeUnavailable)
	}

	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Type == ErrTypeExport && appErr.Cause != nil {
		return h.apiErrorToProblem(ExportFailed(appErr.Message, appErr.Cause), r)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case CodeValidationFailed, CodeInvalidRequest:
		problemType = TypeValidation
	case CodeUnknownField:
		problemType = TypeUnknownField
	case CodeNotFound:
		problemType = TypeNotFound
	case CodeEmptyView:
		problemType = TypeEmptyView
	case CodeTooManyRows:
		problemType = TypeTooManyRows
	case CodeExportFailed:
		problemType = TypeExport
	case CodeRateLimited:
		problemType = TypeRateLimit
	case CodeUnavailable:
		problemType = TypeServiceDown
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// HandlePanic recovers from panics and returns RFC 7807 error
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := middleware.GetReqID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}

	problem.Write(w)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context())).Write(w)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethod,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context())).Write(w)
}

// Recoverer turns panics in downstream handlers into problem responses.
func (h *ErrorHandler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				h.HandlePanic(w, r, rec)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
