package errors

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// maxLoggedBody caps the request body kept for logging failed JSON requests
const maxLoggedBody = 64 * 1024

// ErrorMiddleware logs every request and recovers panics as problem details
type ErrorMiddleware struct {
	handler *ErrorHandler
	logger  *slog.Logger
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(handler *ErrorHandler, logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		handler: handler,
		logger:  logger.With(slog.String("component", "error_middleware")),
	}
}

// Handler returns the middleware handler function
func (m *ErrorMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		// Uploads are multipart and can be large; only small JSON bodies are kept.
		var requestBody []byte
		if isJSON(r) && r.Body != nil && r.ContentLength > 0 && r.ContentLength <= maxLoggedBody {
			requestBody, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(requestBody))
		}

		start := time.Now()

		defer func() {
			if err := recover(); err != nil {
				m.handler.HandlePanic(ww, r, err)
			}
			m.logRequest(r, ww, time.Since(start), requestBody)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (m *ErrorMiddleware) logRequest(r *http.Request, ww middleware.WrapResponseWriter, duration time.Duration, requestBody []byte) {
	status := ww.Status()
	if status == 0 {
		status = http.StatusOK
	}

	logLevel := slog.LevelInfo
	if status >= 400 && status < 500 {
		logLevel = slog.LevelWarn
	} else if status >= 500 {
		logLevel = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Duration("duration", duration),
		slog.Int("bytes", ww.BytesWritten()),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("user_agent", r.UserAgent()),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	}

	if r.URL.RawQuery != "" {
		attrs = append(attrs, slog.String("query", r.URL.RawQuery))
	}

	if status >= 400 && len(requestBody) > 0 {
		bodyStr := sanitizeRequestBody(string(requestBody))
		if len(bodyStr) > 500 {
			bodyStr = bodyStr[:500] + "..."
		}
		attrs = append(attrs, slog.String("request_body", bodyStr))
	}

	m.logger.LogAttrs(r.Context(), logLevel, "http request", attrs...)
}

func isJSON(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// sanitizeRequestBody redacts credential-like fields before logging
func sanitizeRequestBody(body string) string {
	var data map[string]interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return body
	}

	sensitiveFields := []string{
		"password", "token", "secret", "api_key", "apiKey", "authorization",
	}
	for _, field := range sensitiveFields {
		if _, exists := data[field]; exists {
			data[field] = "[REDACTED]"
		}
	}

	sanitized, _ := json.Marshal(data)
	return string(sanitized)
}
