package http

import (
	"log/slog"
	"net/http"

	apierrors "issuepulse/internal/errors"
	"issuepulse/internal/middleware"
)

// ClientLogHandler relays browser-side log entries into the server log
type ClientLogHandler struct {
	validation   *middleware.ValidationMiddleware
	errorHandler *apierrors.ErrorHandler
	logger       *slog.Logger
}

// NewClientLogHandler creates a new client log handler
func NewClientLogHandler(validation *middleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ClientLogHandler {
	return &ClientLogHandler{
		validation:   validation,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "client_log")),
	}
}

// LogRequest represents a client log entry
type LogRequest struct {
	Level     string                 `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message   string                 `json:"message" validate:"required,max=2000"`
	SessionID string                 `json:"session_id,omitempty" validate:"omitempty,uuid"`
	Source    string                 `json:"source,omitempty" validate:"max=200"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

var clientLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// Handle processes POST /api/client-logs
func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if err := h.validation.DecodeAndValidate(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	level, ok := clientLogLevels[req.Level]
	if !ok {
		level = slog.LevelInfo
	}

	attrs := []slog.Attr{slog.String("client_source", req.Source)}
	if req.SessionID != "" {
		attrs = append(attrs, slog.String("session_id", req.SessionID))
	}
	if req.Data != nil {
		attrs = append(attrs, slog.Any("data", req.Data))
	}

	h.logger.LogAttrs(r.Context(), level, req.Message, attrs...)
	w.WriteHeader(http.StatusNoContent)
}
