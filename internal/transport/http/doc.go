// Package http implements the REST handlers of the issue dashboard.
// Handlers are thin: they decode and validate requests, call the dashboard
// service, and render JSON. Every failure goes through the shared
// ErrorHandler so clients always receive RFC 7807 problem details.
//
// # Routes
//
// DashboardHandler.Routes is mounted at /api/sessions:
//
//	POST   /                  create an idle session
//	GET    /{id}              session summary
//	DELETE /{id}              close the session
//	PUT    /{id}/file         multipart upload, field "file"
//	POST   /{id}/default      load the bundled dataset
//	GET    /{id}/rows         raw table, paged with limit and offset
//	GET    /{id}/options      filter widgets
//	POST   /{id}/dashboard    dashboard for {"filters": {...}}
//	POST   /{id}/export       filtered table as csv or xlsx
//	GET    /{id}/live         websocket upgrade
//
// HealthHandler.Routes is mounted at /api and serves /health, /health/live,
// /health/ready and /version.
//
// # Errors
//
// Ingestion failures keep their types up to the error handler, which maps
// them to 415 (unsupported format), 422 (missing columns or malformed file)
// and 413 (oversized upload). Unknown or malformed session ids answer 404.
package http
