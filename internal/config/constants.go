package config

import "time"

// Application constants
const (
	// Application Info
	AppName    = "issuepulse"
	AppVersion = "1.0.0"
	RepoURL    = "https://github.com/issuepulse/issuepulse"

	// Rate Limiting
	DefaultRateLimit = 100 // requests per second
	DefaultBurstSize = 50

	// Network Timeouts
	DefaultRequestTimeout = 60 * time.Second

	// WebSocket
	WebSocketPingPeriod      = 30 * time.Second
	WebSocketPongWait        = 60 * time.Second
	WebSocketWriteWait       = 10 * time.Second
	WebSocketReadBufferSize  = 1024
	WebSocketWriteBufferSize = 1024
	WebSocketMaxMessageBytes = 64 * 1024

	// File Paths (relative to the base directory)
	DefaultDataDir = "data"
	DefaultLogsDir = "logs"

	// Dashboard
	DefaultMaxUploadBytes = 32 << 20 // 32MB
	DefaultSessionTTL     = 2 * time.Hour
	DefaultSweepInterval  = 5 * time.Minute
	DefaultIdlePrompt     = "Please upload a file to proceed."

	// Log Settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	// API
	APIBasePath     = "/api"
	HealthEndpoint  = "/health"
	MetricsEndpoint = "/metrics"
)
