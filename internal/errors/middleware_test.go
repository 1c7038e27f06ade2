package errors

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuepulse/internal/shared/testutil"
)

func TestErrorMiddleware_Handler(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		wantCode  int
		wantLevel slog.Level
	}{
		{
			name:      "success logs at info",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) },
			wantCode:  http.StatusOK,
			wantLevel: slog.LevelInfo,
		},
		{
			name:      "implicit 200",
			handler:   func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) },
			wantCode:  http.StatusOK,
			wantLevel: slog.LevelInfo,
		},
		{
			name:      "client error logs at warn",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusUnprocessableEntity) },
			wantCode:  http.StatusUnprocessableEntity,
			wantLevel: slog.LevelWarn,
		},
		{
			name:      "server error logs at error",
			handler:   func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			wantCode:  http.StatusInternalServerError,
			wantLevel: slog.LevelError,
		},
		{
			name:      "panic becomes problem details",
			handler:   func(w http.ResponseWriter, r *http.Request) { panic("boom") },
			wantCode:  http.StatusInternalServerError,
			wantLevel: slog.LevelError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			mw := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

			w := httptest.NewRecorder()
			mw.Handler(tt.handler).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/sessions?x=1", nil))

			assert.Equal(t, tt.wantCode, w.Code)
			testutil.AssertLogContains(t, logs, tt.wantLevel, "http request")
			testutil.AssertLogAttr(t, logs, "query", "x=1")
		})
	}
}

func TestErrorMiddleware_BodyCapture(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		status      int
		wantBody    string
	}{
		{
			name:        "failed json body is logged redacted",
			contentType: "application/json",
			body:        `{"format":"pdf","token":"s3cret"}`,
			status:      http.StatusBadRequest,
			wantBody:    `{"format":"pdf","token":"[REDACTED]"}`,
		},
		{
			name:        "successful request body is not logged",
			contentType: "application/json",
			body:        `{"format":"csv"}`,
			status:      http.StatusOK,
		},
		{
			name:        "multipart body is never captured",
			contentType: "multipart/form-data; boundary=x",
			body:        "--x\r\n",
			status:      http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, logs := testutil.NewTestLogger(t)
			mw := NewErrorMiddleware(NewErrorHandler(logger, false), logger)

			var seen string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				data, err := io.ReadAll(r.Body)
				require.NoError(t, err)
				seen = string(data)
				w.WriteHeader(tt.status)
			})

			r := httptest.NewRequest(http.MethodPost, "/api/sessions/x/export", strings.NewReader(tt.body))
			r.Header.Set("Content-Type", tt.contentType)
			mw.Handler(next).ServeHTTP(httptest.NewRecorder(), r)

			assert.Equal(t, tt.body, seen, "downstream handlers still read the full body")

			records := logs.GetRecords()
			require.NotEmpty(t, records)
			got, ok := records[len(records)-1].Attrs["request_body"]
			if tt.wantBody == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.JSONEq(t, tt.wantBody, got.(string))
		})
	}
}

func TestSanitizeRequestBody(t *testing.T) {
	assert.Equal(t, "not json", sanitizeRequestBody("not json"))
	assert.JSONEq(t, `{"password":"[REDACTED]","filters":{}}`, sanitizeRequestBody(`{"password":"x","filters":{}}`))
}

func TestErrorMiddleware_Concurrent(t *testing.T) {
	logger, logs := testutil.NewTestLogger(nil)
	mw := NewErrorMiddleware(NewErrorHandler(logger, false), logger)
	h := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		}()
	}
	wg.Wait()

	assert.Equal(t, 20, logs.Count())
}
