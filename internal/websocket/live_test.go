package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuepulse/internal/config"
	"issuepulse/internal/middleware"
	"issuepulse/internal/services"
	"issuepulse/internal/session"
	"issuepulse/internal/shared/testutil"
	"issuepulse/pkg/contracts/domain"
	"issuepulse/pkg/contracts/events"
)

// serverMessage mirrors events.WebSocketMessage with a raw payload
type serverMessage struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Data      json.RawMessage `json:"data"`
}

type liveFixture struct {
	svc    *services.DashboardService
	hub    *Hub
	server *httptest.Server
	cancel context.CancelFunc
}

func newLiveFixture(t *testing.T, cfg Config) *liveFixture {
	t.Helper()

	logger, _ := testutil.NewTestLogger(t)
	svc := services.NewDashboardService(session.NewMemoryStore(time.Hour), services.DashboardConfig{SelectAllDefault: true}, nil, logger)
	hub := NewHub(nil, logger)
	svc.OnSessionClosed(hub.CloseSession)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()

	validation := middleware.NewValidationMiddleware(logger, nil)
	handler := NewHandler(hub, svc, validation, cfg, nil, logger)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := handler.Serve(w, r, r.URL.Query().Get("session")); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
		}
	}))

	f := &liveFixture{svc: svc, hub: hub, server: server, cancel: cancel}
	t.Cleanup(func() {
		cancel()
		hub.Wait()
		server.Close()
	})
	return f
}

func (f *liveFixture) sampleSession(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	id := f.svc.CreateSession(ctx).ID
	_, err := f.svc.Upload(ctx, id, "sample.csv", strings.NewReader(testutil.SampleCSV))
	require.NoError(t, err)
	return id
}

func (f *liveFixture) dial(t *testing.T, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?session=" + sessionID
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) serverMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg serverMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func readDashboard(t *testing.T, conn *websocket.Conn) domain.Dashboard {
	t.Helper()
	msg := readMessage(t, conn)
	require.Equal(t, string(events.MessageTypeDashboard), msg.Type, "payload: %s", msg.Data)
	var dash domain.Dashboard
	require.NoError(t, json.Unmarshal(msg.Data, &dash))
	return dash
}

func readError(t *testing.T, conn *websocket.Conn) events.ErrorData {
	t.Helper()
	msg := readMessage(t, conn)
	require.Equal(t, string(events.MessageTypeError), msg.Type)
	var data events.ErrorData
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	return data
}

func TestLive_ConnectAndInitialDashboard(t *testing.T) {
	f := newLiveFixture(t, DefaultConfig())
	id := f.sampleSession(t)
	conn := f.dial(t, id)

	connect := readMessage(t, conn)
	assert.Equal(t, string(events.MessageTypeConnect), connect.Type)
	assert.Equal(t, id, connect.SessionID)
	assert.NotEmpty(t, connect.ID)

	var data events.ConnectData
	require.NoError(t, json.Unmarshal(connect.Data, &data))
	assert.Equal(t, events.ProtocolVersion, data.Protocol)
	assert.Equal(t, DefaultConfig().MaxMessageBytes, data.MaxMessage)

	dash := readDashboard(t, conn)
	assert.Equal(t, domain.DashboardReady, dash.State)
	assert.Equal(t, testutil.SampleRows, dash.FilteredIssues)

	assert.Eventually(t, func() bool { return f.hub.SessionClientCount(id) == 1 }, time.Second, 10*time.Millisecond)
}

func TestLive_FiltersRecomputeDashboard(t *testing.T) {
	f := newLiveFixture(t, DefaultConfig())
	conn := f.dial(t, f.sampleSession(t))
	readMessage(t, conn)
	readDashboard(t, conn)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"filters": map[string][]string{"Assignee": {"ana"}},
	}))
	dash := readDashboard(t, conn)
	assert.Equal(t, 5, dash.TotalIssues)
	assert.Equal(t, 2, dash.FilteredIssues)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":    "filters",
		"filters": map[string][]string{"Status": {}},
	}))
	dash = readDashboard(t, conn)
	assert.Equal(t, 0, dash.FilteredIssues)
	assert.False(t, dash.FilteredMeanResolutionDays.Available)
}

func TestLive_IdleSession(t *testing.T) {
	f := newLiveFixture(t, DefaultConfig())
	conn := f.dial(t, f.svc.CreateSession(context.Background()).ID)
	readMessage(t, conn)

	dash := readDashboard(t, conn)
	assert.Equal(t, domain.DashboardIdle, dash.State)
	assert.NotEmpty(t, dash.Prompt)
}

func TestLive_Ping(t *testing.T) {
	f := newLiveFixture(t, DefaultConfig())
	conn := f.dial(t, f.sampleSession(t))
	readMessage(t, conn)
	readDashboard(t, conn)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)))
	assert.Equal(t, string(events.MessageTypePong), readMessage(t, conn).Type)
}

func TestLive_InvalidMessages(t *testing.T) {
	f := newLiveFixture(t, DefaultConfig())
	conn := f.dial(t, f.sampleSession(t))
	readMessage(t, conn)
	readDashboard(t, conn)

	tests := []struct {
		name    string
		payload string
		code    string
	}{
		{"not json", `{filters`, events.ErrCodeInvalidMessage},
		{"unknown column", `{"filters":{"Reporter":["x"]}}`, events.ErrCodeInvalidFilters},
		{"unknown type", `{"type":"subscribe"}`, events.ErrCodeInvalidFilters},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.payload)))
			data := readError(t, conn)
			assert.Equal(t, tt.code, data.Code)
			assert.False(t, data.Fatal)
		})
	}

	// The connection survives bad input
	require.NoError(t, conn.WriteJSON(map[string]any{"filters": nil}))
	assert.Equal(t, 5, readDashboard(t, conn).FilteredIssues)
}

func TestLive_UnknownSessionRejectedBeforeUpgrade(t *testing.T) {
	f := newLiveFixture(t, DefaultConfig())

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?session=missing"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLive_SessionClosedDisconnectsClients(t *testing.T) {
	f := newLiveFixture(t, DefaultConfig())
	id := f.sampleSession(t)
	conn := f.dial(t, id)
	readMessage(t, conn)
	readDashboard(t, conn)
	require.Eventually(t, func() bool { return f.hub.SessionClientCount(id) == 1 }, time.Second, 10*time.Millisecond)

	require.NoError(t, f.svc.CloseSession(context.Background(), id))

	data := readError(t, conn)
	assert.Equal(t, events.ErrCodeSessionNotFound, data.Code)
	assert.True(t, data.Fatal)

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
	assert.Eventually(t, func() bool { return f.hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
}

func TestLive_ReadLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMessageBytes = 64
	f := newLiveFixture(t, cfg)
	conn := f.dial(t, f.sampleSession(t))
	readMessage(t, conn)
	readDashboard(t, conn)

	big := `{"filters":{"Assignee":["` + strings.Repeat("a", 200) + `"]}}`
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(big)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

func TestLive_HubShutdownClosesClients(t *testing.T) {
	f := newLiveFixture(t, DefaultConfig())
	conn := f.dial(t, f.sampleSession(t))
	readMessage(t, conn)
	readDashboard(t, conn)

	f.cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestHub_CloseSessionWithoutRun(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	hub := NewHub(nil, logger)

	done := make(chan struct{})
	go func() {
		hub.CloseSession("6f1c2a51-0c3e-4a58-9a43-2b1f4b7e8d10")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("CloseSession blocked without a running hub")
	}
	assert.Zero(t, hub.ClientCount())
}

func TestHub_WaitReturnsAfterShutdown(t *testing.T) {
	f := newLiveFixture(t, DefaultConfig())
	conn := f.dial(t, f.sampleSession(t))
	readMessage(t, conn)
	readDashboard(t, conn)
	require.Eventually(t, func() bool { return f.hub.ClientCount() == 1 }, 5*time.Second, 10*time.Millisecond)

	f.cancel()

	waited := make(chan struct{})
	go func() {
		f.hub.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(10 * time.Second):
		t.Fatal("client pumps still running after hub shutdown")
	}
	assert.Zero(t, f.hub.ClientCount())
}

func TestOriginChecker(t *testing.T) {
	assert.Nil(t, originChecker(nil))

	allowAll := originChecker([]string{"*"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example")
	assert.True(t, allowAll(req))

	listed := originChecker([]string{"http://localhost:8080"})
	assert.False(t, listed(req))
	req.Header.Set("Origin", "http://localhost:8080")
	assert.True(t, listed(req))
	req.Header.Del("Origin")
	assert.True(t, listed(req))
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.WebSocketConfig{PingPeriod: 5 * time.Second}, []string{"*"})
	assert.Equal(t, 5*time.Second, cfg.PingPeriod)
	assert.Equal(t, DefaultConfig().PongWait, cfg.PongWait)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
}

func TestNewHandler_NilLogger(t *testing.T) {
	h := NewHandler(NewHub(nil, slog.Default()), nil, nil, Config{}, nil, nil)
	assert.Equal(t, DefaultConfig().SendBuffer, h.cfg.SendBuffer)
}
