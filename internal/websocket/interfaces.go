package websocket

import (
	"context"
	"net"
	"time"

	"issuepulse/pkg/contracts/domain"
)

// Connection is the subset of *websocket.Conn the live loop uses.
// It allows the pumps to run against a fake in tests.
type Connection interface {
	// WriteMessage writes a message with the given message type and payload
	WriteMessage(messageType int, data []byte) error

	// ReadMessage reads a message from the connection
	ReadMessage() (messageType int, p []byte, err error)

	Close() error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetReadLimit(limit int64)
	SetPongHandler(h func(string) error)
	RemoteAddr() net.Addr
}

// DashboardSource computes dashboards for a session
type DashboardSource interface {
	Session(ctx context.Context, id string) (domain.SessionInfo, error)
	Dashboard(ctx context.Context, id string, sel domain.FilterSelection) (*domain.Dashboard, error)
	DefaultSelection() domain.FilterSelection
}

// StructValidator validates decoded client messages
type StructValidator interface {
	ValidateStruct(v interface{}) error
}
