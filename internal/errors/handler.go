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
	"github.com/go-chi/render"

	"issuepulse/internal/dataprocessing"
)

// Common error types following RFC 7807
const (
	TypeValidation      = "/errors/validation"
	TypeNotFound        = "/errors/not-found"
	TypeMethodNotAllow  = "/errors/method-not-allowed"
	TypeRateLimit       = "/errors/rate-limit"
	TypeInternal        = "/errors/internal"
	TypeTimeout         = "/errors/timeout"
	TypeConflict        = "/errors/conflict"
	TypePayloadTooLarge = "/errors/payload-too-large"
)

// Upload error types
const (
	TypeUnsupportedFormat = "/errors/upload/unsupported-format"
	TypeMissingColumns    = "/errors/upload/missing-columns"
	TypeMalformedFile     = "/errors/upload/malformed"
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
		slog.String("remote_addr", r.RemoteAddr),
	)

	problem.WithExtension("trace_id", reqID)
	if h.includeStack && problem.Status >= http.StatusInternalServerError {
		problem.WithExtension("stack", getStackTrace())
	}

	render.Render(w, r, problem)
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

	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return NewProblemDetails(
			http.StatusRequestEntityTooLarge,
			TypePayloadTooLarge,
			"Payload Too Large",
			fmt.Sprintf("The upload exceeds the limit of %d bytes", maxBytesErr.Limit),
			r.URL.Path,
		).WithExtension("limit_bytes", maxBytesErr.Limit)
	}

	if problem := uploadErrorToProblem(err, r); problem != nil {
		return problem
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return h.apiErrorToProblem(apiErr, r)
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErrorToProblem(appErr, r)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

// uploadErrorToProblem maps ingestion failures, or returns nil
func uploadErrorToProblem(err error, r *http.Request) *ProblemDetails {
	var formatErr *dataprocessing.FormatError
	if errors.As(err, &formatErr) {
		return NewProblemDetails(
			http.StatusUnsupportedMediaType,
			TypeUnsupportedFormat,
			"Unsupported File Format",
			formatErr.Error(),
			r.URL.Path,
		).WithExtension("extension", formatErr.Extension)
	}

	var schemaErr *dataprocessing.SchemaError
	if errors.As(err, &schemaErr) {
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeMissingColumns,
			"Missing Required Columns",
			schemaErr.Error(),
			r.URL.Path,
		).WithExtension("missing", schemaErr.Missing)
	}

	var parseErr *dataprocessing.ParseError
	if errors.As(err, &parseErr) {
		problem := NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeMalformedFile,
			"Malformed File",
			parseErr.Error(),
			r.URL.Path,
		).WithExtension("format", string(parseErr.Format))
		if parseErr.Row > 0 {
			problem.WithExtension("row", parseErr.Row)
		}
		if parseErr.Column != "" {
			problem.WithExtension("column", parseErr.Column)
		}
		return problem
	}

	return nil
}

// apiErrorToProblem converts APIError to ProblemDetails
func (h *ErrorHandler) apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST", "MISSING_FILE":
		problemType = TypeValidation
	case "NOT_FOUND":
		problemType = TypeNotFound
	case "CONFLICT":
		problemType = TypeConflict
	case "PAYLOAD_TOO_LARGE":
		problemType = TypePayloadTooLarge
	case "UNSUPPORTED_MEDIA_TYPE":
		problemType = TypeUnsupportedFormat
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
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

// appErrorToProblem converts AppError to ProblemDetails by its type
func appErrorToProblem(appErr *AppError, r *http.Request) *ProblemDetails {
	switch appErr.Type {
	case ErrTypeNotFound:
		return NewProblemDetails(http.StatusNotFound, TypeNotFound, "Resource Not Found", appErr.Message, r.URL.Path)
	case ErrTypeConflict:
		return NewProblemDetails(http.StatusConflict, TypeConflict, "Conflict", appErr.Message, r.URL.Path)
	case ErrTypeValidation:
		return NewProblemDetails(http.StatusBadRequest, TypeValidation, "Validation Failed", appErr.Message, r.URL.Path)
	default:
		return NewProblemDetails(
			http.StatusInternalServerError,
			TypeInternal,
			"Internal Server Error",
			"An unexpected error occurred while processing your request",
			r.URL.Path,
		)
	}
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

	render.Render(w, r, problem)
}

// NotFound returns a standard 404 error
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 error
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllow,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", middleware.GetReqID(r.Context()))

	render.Render(w, r, problem)
}

// getStackTrace returns the current stack trace
func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
