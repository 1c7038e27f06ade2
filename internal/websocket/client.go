package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	apierrors "issuepulse/internal/errors"
	"issuepulse/internal/infrastructure"
	api "issuepulse/pkg/contracts/api/v1"
	"issuepulse/pkg/contracts/events"
)

// Client is one live dashboard connection bound to a session
type Client struct {
	hub  *Hub
	conn Connection

	// Buffered channel of outbound messages
	send chan []byte

	// Closed once the client must stop; the write pump then drains send
	done      chan struct{}
	closeOnce sync.Once

	id          string
	sessionID   string
	remoteAddr  string
	connectedAt time.Time
	ctx         context.Context

	cfg       Config
	source    DashboardSource
	validator StructValidator
	metrics   *infrastructure.BusinessMetrics
	logger    *slog.Logger

	messagesReceived int64
	messagesSent     int64
}

func newClient(ctx context.Context, h *Handler, conn Connection, sessionID string) *Client {
	id := uuid.NewString()
	remote := ""
	if addr := conn.RemoteAddr(); addr != nil {
		remote = addr.String()
	}

	return &Client{
		hub:         h.hub,
		conn:        conn,
		send:        make(chan []byte, h.cfg.SendBuffer),
		done:        make(chan struct{}),
		id:          id,
		sessionID:   sessionID,
		remoteAddr:  remote,
		connectedAt: time.Now(),
		ctx:         ctx,
		cfg:         h.cfg,
		source:      h.source,
		validator:   h.validator,
		metrics:     h.metrics,
		logger: h.logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
			slog.String("session_id", sessionID),
		),
	}
}

// close stops the client; safe to call more than once
func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// queue hands a message to the write pump without blocking. A client whose
// buffer is full is too slow to keep up and gets disconnected.
func (c *Client) queue(msg events.WebSocketMessage) bool {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.TraceID = infrastructure.GetTraceID(c.ctx)

	data, err := json.Marshal(msg)
	if err != nil {
		c.logger.ErrorContext(c.ctx, "Failed to encode live message",
			slog.String("type", string(msg.Type)),
			slog.String("error", err.Error()))
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		infrastructure.RecordLiveMessage(c.ctx, c.metrics, "out", string(msg.Type))
		return true
	case <-c.done:
		return false
	default:
		c.logger.WarnContext(c.ctx, "Send buffer full, closing client",
			slog.Int("buffer", cap(c.send)))
		c.close()
		return false
	}
}

func (c *Client) sendError(code, message string, fatal bool) {
	c.queue(events.NewErrorMessage(c.sessionID, code, message, fatal))
}

// ReadPump reads client messages until the connection fails or a fatal error
// is reported. It owns the read side of the connection.
func (c *Client) ReadPump() {
	defer func() {
		c.logger.InfoContext(c.ctx, "Live client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)),
			slog.Int64("messages_received", c.messagesReceived))
		c.hub.Unregister(c)
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageBytes)
	c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			switch {
			case errors.Is(err, websocket.ErrReadLimit):
				c.logger.WarnContext(c.ctx, "Live message exceeds read limit",
					slog.Int64("limit", c.cfg.MaxMessageBytes))
			case websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure):
				c.logger.WarnContext(c.ctx, "Unexpected WebSocket close error",
					slog.String("error", err.Error()))
			}
			return
		}

		c.messagesReceived++
		if !c.handle(message) {
			return
		}
	}
}

// handle answers one client message. It reports false when the client must
// be disconnected.
func (c *Client) handle(message []byte) bool {
	var req api.LiveRequest
	if err := json.Unmarshal(message, &req); err != nil {
		infrastructure.RecordLiveMessage(c.ctx, c.metrics, "in", "invalid")
		c.sendError(events.ErrCodeInvalidMessage, "message is not valid JSON", false)
		return true
	}
	if req.Type == "" {
		req.Type = string(events.MessageTypeFilters)
	}
	infrastructure.RecordLiveMessage(c.ctx, c.metrics, "in", req.Type)

	if err := c.validator.ValidateStruct(&req); err != nil {
		msg := events.NewErrorMessage(c.sessionID, events.ErrCodeInvalidFilters, err.Error(), false)
		var apiErr *apierrors.APIError
		if errors.As(err, &apiErr) {
			data := msg.Data.(events.ErrorData)
			data.Details = apiErr.Details
			msg.Data = data
		}
		c.queue(msg)
		return true
	}

	if events.MessageType(req.Type) == events.MessageTypePing {
		return c.queue(events.NewMessage(events.MessageTypePong, c.sessionID, nil))
	}
	return c.pushDashboard(req.Filters)
}

// pushDashboard recomputes the dashboard for filters; nil filters use the
// default selection.
func (c *Client) pushDashboard(filters api.Filters) bool {
	sel := c.source.DefaultSelection()
	if filters != nil {
		sel = filters.Selection()
	}

	dashboard, err := c.source.Dashboard(c.ctx, c.sessionID, sel)
	if err != nil {
		var appErr *apierrors.AppError
		if errors.As(err, &appErr) && appErr.Type == apierrors.ErrTypeNotFound {
			c.sendError(events.ErrCodeSessionNotFound, "session not found", true)
			return false
		}
		c.logger.ErrorContext(c.ctx, "Dashboard computation failed",
			slog.String("error", err.Error()))
		c.sendError(events.ErrCodeServerError, "dashboard could not be computed", false)
		return true
	}

	return c.queue(events.NewMessage(events.MessageTypeDashboard, c.sessionID, dashboard))
}

// WritePump writes queued messages and keepalive pings. It owns the write
// side of the connection and closes it on exit.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.logger.DebugContext(c.ctx, "WebSocket write pump stopped",
			slog.Int64("messages_sent", c.messagesSent))
	}()

	for {
		select {
		case message := <-c.send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				c.logger.WarnContext(c.ctx, "Error writing message to WebSocket",
					slog.String("error", err.Error()))
				c.close()
				return
			}

		case <-c.done:
			c.drain()
			c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logger.DebugContext(c.ctx, "Failed to send ping message",
					slog.String("error", err.Error()))
				c.close()
				return
			}
		}
	}
}

// drain flushes messages queued before the client was closed
func (c *Client) drain() {
	for {
		select {
		case message := <-c.send:
			if err := c.write(websocket.TextMessage, message); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
	if err := c.conn.WriteMessage(messageType, data); err != nil {
		return err
	}
	if messageType == websocket.TextMessage {
		c.messagesSent++
	}
	return nil
}
