package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuepulse/internal/config"
	"issuepulse/internal/shared/testutil"
	"issuepulse/pkg/contracts/domain"
	"issuepulse/pkg/contracts/events"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = 0
	cfg.Server.ShutdownTimeout = 5 * time.Second
	cfg.Paths.BaseDir = t.TempDir()
	cfg.Paths.DefaultDataset = "issues.csv"
	cfg.Security.RateLimit.Enabled = false
	cfg.Security.AllowedOrigins = []string{"http://localhost:3000"}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *Application {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	app, err := NewApplicationWith(cfg, logger)
	require.NoError(t, err)
	return app
}

func request(t *testing.T, h http.Handler, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := request(t, h, http.MethodPost, "/api/sessions", nil, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var info domain.SessionInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	return info.ID
}

func TestNewApplication_Wiring(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	assert.NotNil(t, app.Router)
	assert.NotNil(t, app.Server)
	assert.NotNil(t, app.Dashboard)
	assert.NotNil(t, app.Health)
	assert.NotNil(t, app.LiveHub)
	assert.NotNil(t, app.OTelProviders.PrometheusHTTP)
	assert.DirExists(t, app.Paths.DataDir)
	assert.DirExists(t, app.Paths.ExportsDir)
	assert.Equal(t, ":0", app.Server.Addr)
}

func TestRouter_DashboardFlow(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	h := app.Router
	id := createSession(t, h)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "sample.csv")
	require.NoError(t, err)
	_, err = io.WriteString(part, testutil.SampleCSV)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := request(t, h, http.MethodPut, "/api/sessions/"+id+"/file", &body, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = request(t, h, http.MethodPost, "/api/sessions/"+id+"/dashboard",
		strings.NewReader(`{"filters":{"Assignee":["ana"]}}`), "application/json")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var dash domain.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, testutil.SampleRows, dash.TotalIssues)
	assert.Equal(t, 2, dash.FilteredIssues)

	rec = request(t, h, http.MethodGet, "/metrics", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "uploads_total")
	assert.Contains(t, rec.Body.String(), "dashboards_computed_total")
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRouter_DefaultDataset(t *testing.T) {
	cfg := testConfig(t)
	app := newTestApp(t, cfg)
	testutil.WriteFile(t, app.Paths.DataDir, "issues.csv", testutil.SampleCSV)

	id := createSession(t, app.Router)
	rec := request(t, app.Router, http.MethodPost, "/api/sessions/"+id+"/default", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = request(t, app.Router, http.MethodGet, "/api/sessions/"+id+"/options", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_CloseSessionWithoutLiveLoop(t *testing.T) {
	app := newTestApp(t, testConfig(t))
	id := createSession(t, app.Router)

	done := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		done <- request(t, app.Router, http.MethodDelete, "/api/sessions/"+id, nil, "")
	}()

	select {
	case rec := <-done:
		assert.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())
	case <-time.After(5 * time.Second):
		t.Fatal("closing a session waited for the live hub loop")
	}

	rec := request(t, app.Router, http.MethodGet, "/api/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_Errors(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"unknown route", http.MethodGet, "/api/nope", http.StatusNotFound},
		{"unknown session", http.MethodGet, "/api/sessions/6f1c2a51-0c3e-4a58-9a43-2b1f4b7e8d10", http.StatusNotFound},
		{"wrong method", http.MethodPatch, "/api/health", http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := request(t, app.Router, tt.method, tt.path, nil, "")
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Header().Get("Content-Type"), "json")
		})
	}
}

func TestRouter_Middleware(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	t.Run("request id echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("X-Request-ID", "req-123")
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
		assert.NotEmpty(t, rec.Header().Get("X-Content-Type-Options"))
	})

	t.Run("cors preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "X-Export-Rows")
	})

	t.Run("gzip json", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set("Accept-Encoding", "gzip")
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))
	})

	t.Run("readiness", func(t *testing.T) {
		rec := request(t, app.Router, http.MethodGet, "/api/health/ready", nil, "")
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	})
}

func TestRouter_MetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Telemetry.MetricsEnabled = false
	app := newTestApp(t, cfg)

	assert.Nil(t, app.OTelProviders.PrometheusHTTP)
	rec := request(t, app.Router, http.MethodGet, "/metrics", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestApplication_ServeAndShutdown(t *testing.T) {
	app := newTestApp(t, testConfig(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	resp, err := http.Post(base+"/api/sessions", "application/json", nil)
	require.NoError(t, err)
	var info domain.SessionInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	resp.Body.Close()

	conn, wsResp, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/api/sessions/"+info.ID+"/live", nil)
	require.NoError(t, err)
	wsResp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg events.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeConnect, msg.Type)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeDashboard, msg.Type)

	// Closing the session drops its live clients
	req, err := http.NewRequest(http.MethodDelete, base+"/api/sessions/"+info.ID, nil)
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, events.MessageTypeError, msg.Type)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("application did not shut down")
	}
}

func TestOTelConfig(t *testing.T) {
	cfg := otelConfig(config.TelemetryConfig{ServiceName: "svc", TraceExporter: "none", MetricsEnabled: false})
	assert.Equal(t, "svc", cfg.ServiceName)
	assert.Equal(t, "none", cfg.MetricExporter)

	cfg = otelConfig(config.TelemetryConfig{MetricsEnabled: true})
	assert.Equal(t, "prometheus", cfg.MetricExporter)
	assert.NotEmpty(t, cfg.ServiceName)
}
