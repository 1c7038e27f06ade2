package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"issuepulse/internal/config"
	apierrors "issuepulse/internal/errors"
	"issuepulse/internal/infrastructure"
	customMiddleware "issuepulse/internal/middleware"
	"issuepulse/internal/services"
	"issuepulse/internal/session"
	handlers "issuepulse/internal/transport/http"
	ws "issuepulse/internal/websocket"
	"issuepulse/pkg/contracts"
)

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Paths         *config.Paths
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	OTelProviders *infrastructure.OTelProviders
	Metrics       *infrastructure.BusinessMetrics

	Dashboard *services.DashboardService
	Health    *services.HealthService
	LiveHub   *ws.Hub
}

// NewApplication loads the configuration and wires every component
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return NewApplicationWith(cfg, logger)
}

// NewApplicationWith wires the application from an already loaded config
func NewApplicationWith(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", contracts.Version))

	paths, err := cfg.ResolvePaths()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to ensure directories: %w", err)
	}
	paths.LogPathResolution(logger)

	otelProviders, err := infrastructure.InitializeOTel(otelConfig(cfg.Telemetry), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	metrics, err := infrastructure.CreateBusinessMetrics(otelProviders.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create business metrics: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Paths:         paths,
		Logger:        logger,
		OTelProviders: otelProviders,
		Metrics:       metrics,
	}

	app.initializeServices()
	app.setupRouter()
	app.createServer()

	return app, nil
}

func otelConfig(t config.TelemetryConfig) *infrastructure.OTelConfig {
	cfg := infrastructure.DefaultOTelConfig()
	if t.ServiceName != "" {
		cfg.ServiceName = t.ServiceName
	}
	cfg.ServiceVersion = contracts.Version
	cfg.TraceExporter = t.TraceExporter
	if !t.MetricsEnabled {
		cfg.MetricExporter = "none"
	}
	return cfg
}

// initializeServices creates the session store, services and live hub
func (a *Application) initializeServices() {
	store := session.NewMemoryStore(a.Config.Dashboard.SessionTTL)

	a.Dashboard = services.NewDashboardService(store, services.DashboardConfig{
		SelectAllDefault: a.Config.Dashboard.SelectAllDefault,
		MaxUploadBytes:   a.Config.Dashboard.MaxUploadBytes,
		DefaultDataset:   a.Paths.DefaultDataset,
		IdlePrompt:       a.Config.Dashboard.IdlePrompt,
	}, a.Metrics, a.Logger)
	a.Dashboard.SetTracer(a.OTelProviders.Tracer)

	a.LiveHub = ws.NewHub(a.Metrics, a.Logger)
	a.Dashboard.OnSessionClosed(a.LiveHub.CloseSession)

	a.Health = services.NewHealthService(contracts.Version, contracts.BuildTime, a.Paths, a.Dashboard, a.Logger)
}

// setupRouter configures the HTTP router with all routes.
// Order: RequestID → RealIP → OTel → errors/recovery → headers → CORS → rate limit.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	errorHandler := apierrors.NewErrorHandler(a.Logger, a.Config.Logging.Development)
	validation := customMiddleware.NewValidationMiddleware(a.Logger, errorHandler)

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)
	r.Use(customMiddleware.NewOTelMiddleware(a.OTelProviders.Tracer, a.Metrics, a.Logger).Handler)
	r.Use(apierrors.NewErrorMiddleware(errorHandler, a.Logger).Handler)
	r.Use(customMiddleware.DefaultSecureHeaders().Handler)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.corsConfig()))
	}
	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
		).Handler)
	}

	// Set before mounting so sub-routers inherit them
	r.NotFound(errorHandler.NotFound)
	r.MethodNotAllowed(errorHandler.MethodNotAllowed)

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	live := ws.NewHandler(
		a.LiveHub,
		a.Dashboard,
		validation,
		ws.ConfigFrom(a.Config.WebSocket, a.Config.Security.AllowedOrigins),
		a.Metrics,
		a.Logger,
	)
	dashboardHandler := handlers.NewDashboardHandler(a.Dashboard, live, validation, errorHandler, a.Logger)
	healthHandler := handlers.NewHealthHandler(a.Health, a.Logger)
	clientLogHandler := handlers.NewClientLogHandler(validation, errorHandler, a.Logger)

	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout))
		r.Use(customMiddleware.Compress(5, "application/json", "application/problem+json", "text/csv"))

		r.Mount("/", healthHandler.Routes())

		r.Route("/sessions", func(r chi.Router) {
			r.Use(customMiddleware.AuditLog(a.Logger))
			r.Mount("/", dashboardHandler.Routes())
		})
		r.With(validation.ValidateRequest).Post("/client-logs", clientLogHandler.Handle)
	})

	a.Router = r
}

// corsConfig returns the CORS settings for the dashboard API
func (a *Application) corsConfig() customMiddleware.CORSConfig {
	return customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			customMiddleware.RequestIDHeader,
		},
		ExposedHeaders: []string{
			customMiddleware.RequestIDHeader,
			"Content-Disposition",
			"X-Export-Rows",
			"Location",
		},
		MaxAge: 300,
		Logger: a.Logger,
	}
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Run listens on the configured port and serves until ctx is cancelled
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	return a.Serve(ctx, ln)
}

// Serve runs the HTTP server, the live hub and the session sweeper on ln.
// It returns after ctx is cancelled or any of them fails, once everything
// has shut down.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := a.LiveHub.Run(gctx)
		a.LiveHub.Wait()
		return err
	})

	g.Go(func() error {
		return a.Dashboard.RunSweeper(gctx, a.Config.Dashboard.SweepInterval)
	})

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "HTTP server listening",
			slog.String("address", ln.Addr().String()),
			slog.String("level", a.Config.Logging.Level))

		if err := a.Server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		return a.shutdown()
	})

	return g.Wait()
}

// shutdown stops the server and flushes telemetry
func (a *Application) shutdown() error {
	a.Logger.Info("Shutting down application")

	ctx, cancel := context.WithTimeout(context.Background(), a.Config.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.Server.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("server shutdown error: %w", err))
	}

	if err := a.OTelProviders.Shutdown(ctx); err != nil {
		a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
	}

	if err := infrastructure.CloseLogFile(); err != nil && !errors.Is(err, os.ErrClosed) {
		errs = append(errs, fmt.Errorf("failed to close log file: %w", err))
	}

	a.Logger.Info("Application shutdown complete",
		slog.Int("active_sessions", a.Dashboard.ActiveSessions()))
	return errors.Join(errs...)
}
