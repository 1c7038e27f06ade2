package infrastructure

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func shutdown(t *testing.T, p *OTelProviders) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, p.Shutdown(ctx))
}

// TestOTelInitialization tests OpenTelemetry initialization with defaults
func TestOTelInitialization(t *testing.T) {
	providers, err := InitializeOTel(nil, discardLogger())
	require.NoError(t, err)
	require.NotNil(t, providers)

	// Default config exports metrics but not traces
	assert.Nil(t, providers.TracerProvider)
	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.MeterProvider)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.PrometheusHTTP)

	shutdown(t, providers)
}

// TestTraceCorrelation tests trace ID correlation with the stdout exporter
func TestTraceCorrelation(t *testing.T) {
	cfg := DefaultOTelConfig()
	cfg.TraceExporter = "stdout"
	providers, err := InitializeOTel(cfg, discardLogger())
	require.NoError(t, err)
	defer shutdown(t, providers)

	ctx, span := providers.Tracer.Start(context.Background(), "test-operation")
	defer span.End()

	traceID := TraceIDFromContext(ctx)
	assert.NotEmpty(t, traceID)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)

	RecordError(ctx, assert.AnError)
	assert.True(t, span.IsRecording())

	assert.Empty(t, TraceIDFromContext(context.Background()))
}

func TestOTelConfiguration_Invalid(t *testing.T) {
	_, err := InitializeOTel(&OTelConfig{TraceExporter: "zipkin"}, discardLogger())
	assert.ErrorContains(t, err, "unsupported trace exporter")

	_, err = InitializeOTel(&OTelConfig{MetricExporter: "statsd"}, discardLogger())
	assert.ErrorContains(t, err, "unsupported metric exporter")
}

// TestBusinessMetrics records every dashboard metric and scrapes the endpoint
func TestBusinessMetrics(t *testing.T) {
	providers, err := InitializeOTel(DefaultOTelConfig(), discardLogger())
	require.NoError(t, err)
	defer shutdown(t, providers)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)

	ctx := context.Background()
	RecordUpload(ctx, metrics, "csv", 12, 2, 30*time.Millisecond)
	RecordUploadFailure(ctx, metrics, "schema")
	RecordDashboard(ctx, metrics, "ready", time.Millisecond)
	RecordExport(ctx, metrics, "xlsx")
	RecordSessionChange(ctx, metrics, 2)
	RecordSessionsExpired(ctx, metrics, 1)
	RecordLiveConnection(ctx, metrics, 1)
	RecordLiveMessage(ctx, metrics, "in", "filters")

	server := httptest.NewServer(providers.PrometheusHTTP)
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)

	for _, name := range []string{
		"uploads_total",
		"upload_failures_total",
		"rows_ingested_total",
		"duplicates_dropped_total",
		"dashboards_computed_total",
		"exports_total",
		"sessions_expired_total",
		"live_connections",
		`live_messages_total{direction="in"`,
		"go_goroutines",
	} {
		assert.Contains(t, text, name)
	}
}

func TestRecordHelpers_NilMetrics(t *testing.T) {
	ctx := context.Background()
	assert.NotPanics(t, func() {
		RecordUpload(ctx, nil, "csv", 1, 0, time.Second)
		RecordUploadFailure(ctx, nil, "parse")
		RecordDashboard(ctx, nil, "idle", time.Second)
		RecordExport(ctx, nil, "csv")
		RecordSessionChange(ctx, nil, 1)
		RecordSessionsExpired(ctx, nil, 3)
		RecordLiveConnection(ctx, nil, -1)
		RecordLiveMessage(ctx, nil, "out", "dashboard")
	})
}

func TestCreateBusinessMetrics_NoopMeter(t *testing.T) {
	providers, err := InitializeOTel(&OTelConfig{TraceExporter: "none", MetricExporter: "none"}, discardLogger())
	require.NoError(t, err)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		RecordUpload(context.Background(), metrics, "json", 3, 0, time.Millisecond)
	})
	assert.Nil(t, providers.PrometheusHTTP)
	shutdown(t, providers)
}
