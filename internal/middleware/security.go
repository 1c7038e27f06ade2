package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// SecureHeaders provides configurable security headers
type SecureHeaders struct {
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool

	ContentSecurityPolicy string
	XFrameOptions         string
	XContentTypeOptions   string
	ReferrerPolicy        string
	PermissionsPolicy     string
}

// DefaultSecureHeaders returns headers suited to a JSON API consumed by a separate front end
func DefaultSecureHeaders() *SecureHeaders {
	return &SecureHeaders{
		HSTSMaxAge:            63072000,
		HSTSIncludeSubdomains: true,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'",
		XFrameOptions:         "DENY",
		XContentTypeOptions:   "nosniff",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		PermissionsPolicy:     strings.Join([]string{"camera=()", "geolocation=()", "microphone=()", "payment=()", "usb=()"}, ", "),
	}
}

// Handler returns the middleware handler
func (sh *SecureHeaders) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// WebSocket upgrades carry their own handshake headers
		if strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		if sh.HSTSMaxAge > 0 && r.TLS != nil {
			hsts := fmt.Sprintf("max-age=%d", sh.HSTSMaxAge)
			if sh.HSTSIncludeSubdomains {
				hsts += "; includeSubDomains"
			}
			h.Set("Strict-Transport-Security", hsts)
		}
		setIfNotEmpty(h, "Content-Security-Policy", sh.ContentSecurityPolicy)
		setIfNotEmpty(h, "X-Frame-Options", sh.XFrameOptions)
		setIfNotEmpty(h, "X-Content-Type-Options", sh.XContentTypeOptions)
		setIfNotEmpty(h, "Referrer-Policy", sh.ReferrerPolicy)
		setIfNotEmpty(h, "Permissions-Policy", sh.PermissionsPolicy)

		next.ServeHTTP(w, r)
	})
}

func setIfNotEmpty(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

// AuditLog records every state-changing request against a session:
// uploads, default dataset loads, deletions and exports.
// Mount it inside the /sessions/{id} route so the id is resolved.
func AuditLog(logger *slog.Logger) func(next http.Handler) http.Handler {
	logger = logger.With(slog.String("component", "audit"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.InfoContext(r.Context(), "audit log",
				slog.String("event_type", "session_mutation"),
				slog.String("session_id", chi.URLParam(r, "id")),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.String("remote_addr", r.RemoteAddr),
				slog.String("request_id", GetReqID(r.Context())),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
