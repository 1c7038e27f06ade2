// Package services implements the business logic between the HTTP and
// websocket transports and the data processing packages.
//
// DashboardService owns the session lifecycle: it ingests uploads into the
// session store, builds dashboards and option lists, and exports filtered
// tables. HealthService reports liveness, readiness and build information.
//
// Errors returned to callers are either ingestion errors from dataprocessing
// or one of the sentinels in errors.go, checked with errors.Is:
//
//	dash, err := svc.Dashboard(ctx, id, sel)
//	if errors.Is(err, services.ErrSessionNotFound) {
//		// unknown or expired session
//	}
package services
