package http

import (
	"context"
	"io"
	"net/http"

	"issuepulse/pkg/contracts/domain"
)

// DashboardServiceInterface defines the session operations the dashboard API serves
type DashboardServiceInterface interface {
	CreateSession(ctx context.Context) domain.SessionInfo
	Session(ctx context.Context, id string) (domain.SessionInfo, error)
	CloseSession(ctx context.Context, id string) error

	Upload(ctx context.Context, id, filename string, r io.Reader) (domain.SessionInfo, error)
	LoadDefault(ctx context.Context, id string) (domain.SessionInfo, error)

	Rows(ctx context.Context, id string) (*domain.IssueTable, error)
	FilteredRows(ctx context.Context, id string, sel domain.FilterSelection) (*domain.IssueTable, int, error)
	Options(ctx context.Context, id string) ([]domain.FilterOption, error)
	Dashboard(ctx context.Context, id string, sel domain.FilterSelection) (*domain.Dashboard, error)
	Export(ctx context.Context, id string, sel domain.FilterSelection, format string, w io.Writer) (int, error)

	MaxUploadBytes() int64
	DefaultSelection() domain.FilterSelection
}

// LiveServer upgrades a request into a live dashboard connection
type LiveServer interface {
	Serve(w http.ResponseWriter, r *http.Request, sessionID string) error
}
