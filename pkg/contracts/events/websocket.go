// Package events contains the message contracts of the live dashboard channel.
package events

import (
	"time"
)

// ProtocolVersion is sent in the connect message
const ProtocolVersion = "1.0"

// MessageType defines the type of a live channel message
type MessageType string

const (
	// Server to client
	MessageTypeConnect   MessageType = "connect"
	MessageTypeDashboard MessageType = "dashboard"
	MessageTypeError     MessageType = "error"
	MessageTypePong      MessageType = "pong"

	// Client to server
	MessageTypeFilters MessageType = "filters"
	MessageTypePing    MessageType = "ping"
)

// Error codes carried by error messages
const (
	ErrCodeInvalidMessage  = "INVALID_MESSAGE"
	ErrCodeInvalidFilters  = "INVALID_FILTERS"
	ErrCodeSessionNotFound = "SESSION_NOT_FOUND"
	ErrCodeServerError     = "SERVER_ERROR"
)

// BaseMessage carries the fields shared by every server message
type BaseMessage struct {
	ID        string      `json:"id,omitempty"`
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// WebSocketMessage is a server message with its payload
type WebSocketMessage struct {
	BaseMessage
	SessionID string      `json:"session_id,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// ConnectData is the payload of the connect message
type ConnectData struct {
	Protocol     string `json:"protocol"`
	MaxMessage   int64  `json:"max_message_bytes"`
	PingInterval int    `json:"ping_interval_seconds"`
}

// ErrorData is the payload of an error message
type ErrorData struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	Fatal   bool        `json:"fatal"`
}

// NewMessage stamps a server message
func NewMessage(msgType MessageType, sessionID string, data interface{}) WebSocketMessage {
	return WebSocketMessage{
		BaseMessage: BaseMessage{
			Type:      msgType,
			Timestamp: time.Now().UTC(),
		},
		SessionID: sessionID,
		Data:      data,
	}
}

// NewErrorMessage builds an error message
func NewErrorMessage(sessionID, code, message string, fatal bool) WebSocketMessage {
	return NewMessage(MessageTypeError, sessionID, ErrorData{
		Code:    code,
		Message: message,
		Fatal:   fatal,
	})
}
