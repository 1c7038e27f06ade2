package websocket

import (
	"context"
	"log/slog"
	"sync"

	"issuepulse/internal/infrastructure"
	"issuepulse/pkg/contracts/events"
)

// Hub tracks the live connections of every session so a closed or expired
// session can drop its clients.
type Hub struct {
	// Registered clients grouped by session id
	sessions map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client

	mu       sync.RWMutex
	count    int
	stopping bool
	pumps    sync.WaitGroup
	done     chan struct{}
	metrics  *infrastructure.BusinessMetrics
	logger   *slog.Logger
}

// NewHub creates a new Hub. metrics may be nil.
func NewHub(metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	return &Hub{
		sessions:   make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		metrics:    metrics,
		logger:     logger.With(slog.String("component", "websocket.hub")),
	}
}

// Run is the hub's main loop. It returns when ctx is cancelled, after closing
// every client.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			h.stopping = true
			for _, clients := range h.sessions {
				for c := range clients {
					c.close()
				}
			}
			closed := h.count
			h.sessions = make(map[string]map[*Client]struct{})
			h.count = 0
			h.mu.Unlock()

			infrastructure.RecordLiveConnection(context.Background(), h.metrics, -int64(closed))

			h.logger.Info("Hub shutting down")
			return nil

		case c := <-h.register:
			h.mu.Lock()
			clients, ok := h.sessions[c.sessionID]
			if !ok {
				clients = make(map[*Client]struct{})
				h.sessions[c.sessionID] = clients
			}
			clients[c] = struct{}{}
			h.count++
			count := h.count
			h.mu.Unlock()

			infrastructure.RecordLiveConnection(c.ctx, h.metrics, 1)
			h.logger.InfoContext(c.ctx, "Client registered",
				slog.String("client_id", c.id),
				slog.String("session_id", c.sessionID),
				slog.String("remote_addr", c.remoteAddr),
				slog.Int("total_clients", count))

		case c := <-h.unregister:
			if h.remove(c) {
				infrastructure.RecordLiveConnection(c.ctx, h.metrics, -1)
				h.logger.InfoContext(c.ctx, "Client unregistered",
					slog.String("client_id", c.id),
					slog.String("session_id", c.sessionID))
			}
			c.close()
		}
	}
}

func (h *Hub) remove(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.sessions[c.sessionID]
	if !ok {
		return false
	}
	if _, ok := clients[c]; !ok {
		return false
	}
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.sessions, c.sessionID)
	}
	h.count--
	return true
}

// start runs the client's pumps unless the hub is shutting down
func (h *Hub) start(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.stopping {
		return false
	}

	h.pumps.Add(2)
	go func() {
		defer h.pumps.Done()
		c.WritePump()
	}()
	go func() {
		defer h.pumps.Done()
		c.ReadPump()
	}()
	return true
}

// Wait blocks until Run has returned and every client pump has stopped.
func (h *Hub) Wait() {
	<-h.done
	h.pumps.Wait()
}

// Register adds a client. It reports false once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and closes it.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
		c.close()
	}
}

// CloseSession disconnects every client of a session. It does not wait for
// Run, so it is safe to call whether or not the hub loop is running.
func (h *Hub) CloseSession(id string) {
	h.mu.Lock()
	clients := h.sessions[id]
	delete(h.sessions, id)
	h.count -= len(clients)
	h.mu.Unlock()

	for c := range clients {
		c.sendError(events.ErrCodeSessionNotFound, "session closed", true)
		c.close()
	}
	if len(clients) > 0 {
		infrastructure.RecordLiveConnection(context.Background(), h.metrics, -int64(len(clients)))
		h.logger.Info("Session clients closed",
			slog.String("session_id", id),
			slog.Int("clients", len(clients)))
	}
}

// ClientCount returns the number of registered clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// SessionClientCount returns the number of clients watching one session
func (h *Hub) SessionClientCount(id string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[id])
}
