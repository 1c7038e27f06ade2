package websocket

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel/trace"

	"issuepulse/internal/config"
	"issuepulse/internal/infrastructure"
	"issuepulse/pkg/contracts/events"
)

// Config holds live channel limits and timings
type Config struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageBytes int64
	PingPeriod      time.Duration // Must be less than PongWait
	PongWait        time.Duration
	WriteWait       time.Duration
	SendBuffer      int
	AllowedOrigins  []string // Empty keeps the same-origin check, "*" allows any
}

// DefaultConfig returns the standard live channel settings
func DefaultConfig() Config {
	return Config{
		ReadBufferSize:  config.WebSocketReadBufferSize,
		WriteBufferSize: config.WebSocketWriteBufferSize,
		MaxMessageBytes: config.WebSocketMaxMessageBytes,
		PingPeriod:      config.WebSocketPingPeriod,
		PongWait:        config.WebSocketPongWait,
		WriteWait:       config.WebSocketWriteWait,
		SendBuffer:      16,
	}
}

// ConfigFrom builds the live channel settings from application config
func ConfigFrom(ws config.WebSocketConfig, allowedOrigins []string) Config {
	cfg := DefaultConfig()
	if ws.ReadBufferSize > 0 {
		cfg.ReadBufferSize = ws.ReadBufferSize
	}
	if ws.WriteBufferSize > 0 {
		cfg.WriteBufferSize = ws.WriteBufferSize
	}
	if ws.MaxMessageBytes > 0 {
		cfg.MaxMessageBytes = ws.MaxMessageBytes
	}
	if ws.PingPeriod > 0 {
		cfg.PingPeriod = ws.PingPeriod
	}
	if ws.PongWait > 0 {
		cfg.PongWait = ws.PongWait
	}
	if ws.WriteWait > 0 {
		cfg.WriteWait = ws.WriteWait
	}
	cfg.AllowedOrigins = allowedOrigins
	return cfg
}

// Handler upgrades HTTP requests into live dashboard connections
type Handler struct {
	upgrader  websocket.Upgrader
	hub       *Hub
	source    DashboardSource
	validator StructValidator
	cfg       Config
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger
}

// NewHandler creates a live channel handler. metrics may be nil.
func NewHandler(hub *Hub, source DashboardSource, validator StructValidator, cfg Config, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = DefaultConfig().SendBuffer
	}

	return &Handler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		hub:       hub,
		source:    source,
		validator: validator,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "websocket.handler")),
	}
}

// originChecker returns nil to keep gorilla's same-origin check
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

// Serve upgrades the request and starts the live loop for sessionID.
// Errors returned happen before the upgrade and are for the caller to render;
// afterwards problems are reported on the socket.
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request, sessionID string) error {
	if _, err := h.source.Session(r.Context(), sessionID); err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		h.logger.WarnContext(r.Context(), "WebSocket upgrade failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		return nil
	}

	// The request context ends with this handler; keep only its correlation ids.
	ctx := infrastructure.WithTraceID(context.Background(), infrastructure.GetTraceID(r.Context()))
	ctx = trace.ContextWithSpanContext(ctx, trace.SpanContextFromContext(r.Context()))

	client := newClient(ctx, h, conn, sessionID)
	if !h.hub.Register(client) {
		conn.Close()
		return nil
	}

	client.queue(events.NewMessage(events.MessageTypeConnect, sessionID, events.ConnectData{
		Protocol:     events.ProtocolVersion,
		MaxMessage:   h.cfg.MaxMessageBytes,
		PingInterval: int(h.cfg.PingPeriod / time.Second),
	}))
	client.pushDashboard(nil)

	if !h.hub.start(client) {
		client.close()
		conn.Close()
	}
	return nil
}
