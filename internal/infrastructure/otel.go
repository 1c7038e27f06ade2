package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "issuepulse"
	ServiceVersion = "1.0.0"
	MeterName      = "issuepulse"
)

// OTelConfig holds OpenTelemetry configuration
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "none",
		MetricExporter: "prometheus",
		SampleRatio:    1.0,
	}
}

// InitializeOTel sets up tracing and metrics. Disabled signals fall back to
// no-op implementations so callers never need nil checks.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.String("trace_exporter", cfg.TraceExporter),
		slog.String("metric_exporter", cfg.MetricExporter))

	res := createResource(cfg)

	providers := &OTelProviders{
		Tracer: otel.Tracer(MeterName),
		Meter:  noop.NewMeterProvider().Meter(MeterName),
		Logger: logger,
	}

	if err := initializeTracing(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}

	if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	// Set up global propagators for trace context
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

// createResource creates the OpenTelemetry resource
func createResource(cfg *OTelConfig) *resource.Resource {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	)
}

// initializeTracing sets up OpenTelemetry tracing
func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))
	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

// initializeMetrics sets up OpenTelemetry metrics on a dedicated Prometheus
// registry that also carries the Go runtime and process collectors.
func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
	case "none", "":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	providers.MeterProvider = mp
	providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))
	providers.PrometheusHTTP = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	otel.SetMeterProvider(mp)

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// BusinessMetrics holds all application-specific metrics
type BusinessMetrics struct {
	// HTTP metrics
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	// Ingestion metrics
	UploadsTotal      metric.Int64Counter
	UploadFailures    metric.Int64Counter
	RowsIngested      metric.Int64Counter
	DuplicatesDropped metric.Int64Counter
	IngestDuration    metric.Float64Histogram

	// Dashboard metrics
	DashboardsComputed metric.Int64Counter
	DashboardDuration  metric.Float64Histogram
	ExportsTotal       metric.Int64Counter

	// Session metrics
	ActiveSessions  metric.Int64UpDownCounter
	SessionsExpired metric.Int64Counter

	// Live channel metrics
	LiveConnections metric.Int64UpDownCounter
	LiveMessages    metric.Int64Counter
}

// CreateBusinessMetrics creates application-specific metrics
func CreateBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	var (
		m    BusinessMetrics
		errs []error
	)

	counter := func(name, desc string, opts ...metric.Int64CounterOption) metric.Int64Counter {
		c, err := meter.Int64Counter(name, append([]metric.Int64CounterOption{metric.WithDescription(desc)}, opts...)...)
		errs = append(errs, err)
		return c
	}
	histogram := func(name, desc string) metric.Float64Histogram {
		h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
		errs = append(errs, err)
		return h
	}
	gauge := func(name, desc string) metric.Int64UpDownCounter {
		g, err := meter.Int64UpDownCounter(name, metric.WithDescription(desc))
		errs = append(errs, err)
		return g
	}

	m.HTTPRequestsTotal = counter("http_requests_total", "Total number of HTTP requests")
	m.HTTPRequestDuration = histogram("http_request_duration_seconds", "HTTP request duration in seconds")
	m.HTTPActiveRequests = gauge("http_active_requests", "Number of active HTTP requests")

	m.UploadsTotal = counter("uploads_total", "Total number of uploaded files accepted")
	m.UploadFailures = counter("upload_failures_total", "Total number of rejected uploads by error kind")
	m.RowsIngested = counter("rows_ingested_total", "Total number of issue rows ingested")
	m.DuplicatesDropped = counter("duplicates_dropped_total", "Total number of rows dropped as duplicate issue keys")
	m.IngestDuration = histogram("ingest_duration_seconds", "Upload parse duration in seconds")

	m.DashboardsComputed = counter("dashboards_computed_total", "Total number of dashboards computed")
	m.DashboardDuration = histogram("dashboard_duration_seconds", "Dashboard computation duration in seconds")
	m.ExportsTotal = counter("exports_total", "Total number of filtered table exports")

	m.ActiveSessions = gauge("active_sessions", "Number of live dashboard sessions")
	m.SessionsExpired = counter("sessions_expired_total", "Total number of sessions removed after idling")

	m.LiveConnections = gauge("live_connections", "Number of open live dashboard connections")
	m.LiveMessages = counter("live_messages_total", "Total number of live channel messages by direction and type")

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return &m, nil
}

// Shutdown gracefully shuts down OpenTelemetry providers
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %w", errors.Join(errs...))
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

// generateInstanceID generates a unique instance identifier
func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts trace ID from context for logging correlation
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// RecordUpload records an accepted upload
func RecordUpload(ctx context.Context, metrics *BusinessMetrics, format string, rows, dropped int, duration time.Duration) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("format", format))
	metrics.UploadsTotal.Add(ctx, 1, attrs)
	metrics.RowsIngested.Add(ctx, int64(rows), attrs)
	metrics.DuplicatesDropped.Add(ctx, int64(dropped), attrs)
	metrics.IngestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordUploadFailure records a rejected upload by error kind
func RecordUploadFailure(ctx context.Context, metrics *BusinessMetrics, kind string) {
	if metrics == nil {
		return
	}
	metrics.UploadFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("error.kind", kind)))
}

// RecordDashboard records one dashboard computation
func RecordDashboard(ctx context.Context, metrics *BusinessMetrics, state string, duration time.Duration) {
	if metrics == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("state", state))
	metrics.DashboardsComputed.Add(ctx, 1, attrs)
	metrics.DashboardDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordExport records a filtered table export
func RecordExport(ctx context.Context, metrics *BusinessMetrics, format string) {
	if metrics == nil {
		return
	}
	metrics.ExportsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("format", format)))
}

// RecordSessionChange records sessions being opened (positive delta) or closed
func RecordSessionChange(ctx context.Context, metrics *BusinessMetrics, delta int64) {
	if metrics == nil {
		return
	}
	metrics.ActiveSessions.Add(ctx, delta)
}

// RecordSessionsExpired records sessions removed by the sweeper
func RecordSessionsExpired(ctx context.Context, metrics *BusinessMetrics, count int) {
	if metrics == nil || count == 0 {
		return
	}
	metrics.SessionsExpired.Add(ctx, int64(count))
	metrics.ActiveSessions.Add(ctx, -int64(count))
}

// RecordLiveConnection records a live connection opening (positive delta) or closing
func RecordLiveConnection(ctx context.Context, metrics *BusinessMetrics, delta int64) {
	if metrics == nil {
		return
	}
	metrics.LiveConnections.Add(ctx, delta)
}

// RecordLiveMessage records one live channel message
func RecordLiveMessage(ctx context.Context, metrics *BusinessMetrics, direction, msgType string) {
	if metrics == nil {
		return
	}
	metrics.LiveMessages.Add(ctx, 1, metric.WithAttributes(
		attribute.String("direction", direction),
		attribute.String("type", msgType),
	))
}
