package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"issuepulse/internal/config"
	"issuepulse/pkg/contracts"
)

// SessionCounter reports the number of live sessions
type SessionCounter interface {
	ActiveSessions() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	paths     *config.Paths
	sessions  SessionCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Services  map[string]interface{} `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Uptime  string `json:"uptime,omitempty"`
}

// NewHealthService creates a new health service. paths and sessions may be nil
// in tests; the matching readiness checks then report not_ready.
func NewHealthService(version, buildTime string, paths *config.Paths, sessions SessionCounter, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "health_service"))

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		paths:     paths,
		sessions:  sessions,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}

	hs.logger.DebugContext(ctx, "health check completed",
		slog.String("status", status.Status),
		slog.String("uptime", time.Since(hs.startTime).String()))

	return status
}

// ReadinessCheck returns readiness status
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]interface{}{
			"data":     hs.checkDataHealth(),
			"sessions": hs.checkSessionHealth(),
		},
	}

	for name, service := range status.Services {
		if sh, ok := service.(ServiceHealth); ok && sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "readiness check failed",
				slog.String("service", name),
				slog.String("message", sh.Message))
		}
	}

	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":      hs.version,
		"git_commit":   contracts.GitCommit,
		"api_version":  contracts.APIVersion,
		"data_format":  contracts.DataFormatVersion,
		"go_version":   runtime.Version(),
		"os":           runtime.GOOS,
		"arch":         runtime.GOARCH,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}

	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}

	return result
}

// checkDataHealth verifies the data directory exists and the bundled dataset,
// when configured, is present
func (hs *HealthService) checkDataHealth() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: "not_ready", Message: "paths not configured"}
	}

	info, err := os.Stat(hs.paths.DataDir)
	if err != nil || !info.IsDir() {
		return ServiceHealth{
			Status:  "not_ready",
			Message: fmt.Sprintf("Data directory not found: %s", hs.paths.DataDir),
		}
	}

	if hs.paths.DefaultDataset != "" && !hs.paths.HasDefaultDataset() {
		return ServiceHealth{
			Status:  "ready",
			Message: "Default dataset missing; uploads only",
		}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: "Data directory is accessible",
	}
}

// checkSessionHealth reports the session store
func (hs *HealthService) checkSessionHealth() ServiceHealth {
	if hs.sessions == nil {
		return ServiceHealth{Status: "not_ready", Message: "session store not initialized"}
	}

	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("%d active sessions", hs.sessions.ActiveSessions()),
		Uptime:  time.Since(hs.startTime).String(),
	}
}
