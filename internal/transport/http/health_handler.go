package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"issuepulse/internal/services"
)

// HealthServiceInterface defines the checks served by the health endpoints
type HealthServiceInterface interface {
	HealthCheck(ctx context.Context) services.HealthStatus
	ReadinessCheck(ctx context.Context) services.HealthStatus
	LivenessCheck(ctx context.Context) services.HealthStatus
	Version() map[string]interface{}
}

// HealthHandler handles health-related HTTP requests
type HealthHandler struct {
	service HealthServiceInterface
	logger  *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(service HealthServiceInterface, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "health")),
	}
}

// Routes returns the health routes, mounted at /api
func (h *HealthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/health", h.HealthCheck)
	r.Get("/health/live", h.LivenessCheck)
	r.Get("/health/ready", h.ReadinessCheck)
	r.Get("/version", h.Version)
	return r
}

// HealthCheck handles GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.HealthCheck(r.Context()))
}

// ReadinessCheck handles GET /api/health/ready. It answers 503 until every
// dependency reports ready.
func (h *HealthHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := h.service.ReadinessCheck(r.Context())
	if status.Status != "ready" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, status)
}

// LivenessCheck handles GET /api/health/live
func (h *HealthHandler) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.LivenessCheck(r.Context()))
}

// Version handles GET /api/version
func (h *HealthHandler) Version(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Version())
}
