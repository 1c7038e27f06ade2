package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"issuepulse/internal/dataprocessing"
	"issuepulse/internal/exporter"
	"issuepulse/internal/infrastructure"
	"issuepulse/internal/session"
	"issuepulse/pkg/contracts/domain"
)

// DefaultMaxUploadBytes bounds uploads when no limit is configured
const DefaultMaxUploadBytes int64 = 32 << 20

// DashboardConfig holds the dashboard service settings
type DashboardConfig struct {
	SelectAllDefault bool   // Filter panels start with every value selected
	MaxUploadBytes   int64  // Largest accepted upload
	DefaultDataset   string // Bundled dataset path, empty when none
	IdlePrompt       string // Prompt shown while no dataset is loaded
}

// DashboardService owns the session lifecycle and turns session tables into
// dashboards, option lists and exports.
type DashboardService struct {
	store      *session.MemoryStore
	config     DashboardConfig
	summarizer *dataprocessing.Summarizer
	metrics    *infrastructure.BusinessMetrics
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time

	mu       sync.RWMutex
	onClosed []func(id string)
}

// NewDashboardService creates the dashboard service. metrics may be nil.
func NewDashboardService(store *session.MemoryStore, cfg DashboardConfig, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DashboardService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	logger = logger.With(slog.String("component", "dashboard_service"))

	summarizerCfg := dataprocessing.DefaultSummarizerConfig()
	if cfg.IdlePrompt != "" {
		summarizerCfg.IdlePrompt = cfg.IdlePrompt
	}

	logger.Info("DashboardService initialized",
		slog.Bool("select_all_default", cfg.SelectAllDefault),
		slog.Int64("max_upload_bytes", cfg.MaxUploadBytes),
		slog.String("default_dataset", cfg.DefaultDataset))

	return &DashboardService{
		store:      store,
		config:     cfg,
		summarizer: dataprocessing.NewSummarizer(logger, summarizerCfg),
		metrics:    metrics,
		tracer:     otel.Tracer("issuepulse/services"),
		logger:     logger,
		now:        time.Now,
	}
}

// SetTracer replaces the tracer used for service spans.
func (s *DashboardService) SetTracer(tracer trace.Tracer) {
	if tracer != nil {
		s.tracer = tracer
	}
}

// OnSessionClosed registers fn to run for every session closed or expired.
func (s *DashboardService) OnSessionClosed(fn func(id string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onClosed = append(s.onClosed, fn)
}

func (s *DashboardService) notifyClosed(ids ...string) {
	s.mu.RLock()
	hooks := s.onClosed
	s.mu.RUnlock()

	for _, id := range ids {
		for _, fn := range hooks {
			fn(id)
		}
	}
}

// MaxUploadBytes returns the configured upload limit.
func (s *DashboardService) MaxUploadBytes() int64 {
	return s.config.MaxUploadBytes
}

// DefaultSelection is the selection used when a client sends no filters.
func (s *DashboardService) DefaultSelection() domain.FilterSelection {
	return dataprocessing.DefaultSelection(s.config.SelectAllDefault)
}

// CreateSession opens a new idle session.
func (s *DashboardService) CreateSession(ctx context.Context) domain.SessionInfo {
	sess := s.store.Create()
	infrastructure.RecordSessionChange(ctx, s.metrics, 1)

	s.logger.InfoContext(ctx, "session created", slog.String("session_id", sess.ID))
	return sess.Info()
}

// Session returns the summary of a session.
func (s *DashboardService) Session(ctx context.Context, id string) (domain.SessionInfo, error) {
	sess, err := s.get(id)
	if err != nil {
		return domain.SessionInfo{}, err
	}
	return sess.Info(), nil
}

// CloseSession ends a session and discards its table.
func (s *DashboardService) CloseSession(ctx context.Context, id string) error {
	if err := s.store.Delete(id); err != nil {
		return s.storeError(id, err)
	}
	infrastructure.RecordSessionChange(ctx, s.metrics, -1)
	s.notifyClosed(id)

	s.logger.InfoContext(ctx, "session closed", slog.String("session_id", id))
	return nil
}

// ActiveSessions returns the number of live sessions.
func (s *DashboardService) ActiveSessions() int {
	return s.store.Len()
}

// Upload parses r as the named file and makes it the session's table.
// Any failure discards the previous table and records the error on the
// session, so no dashboard is served until a valid file arrives.
func (s *DashboardService) Upload(ctx context.Context, id, filename string, r io.Reader) (domain.SessionInfo, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.upload", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("upload.filename", filename),
	))
	defer span.End()

	if _, err := s.get(id); err != nil {
		return domain.SessionInfo{}, err
	}

	start := s.now()
	table, err := s.parse(r, filename)
	if err != nil {
		return domain.SessionInfo{}, s.rejectUpload(ctx, id, filename, err)
	}

	sess, err := s.store.SetTable(id, filename, table)
	if err != nil {
		return domain.SessionInfo{}, s.storeError(id, err)
	}

	format, _ := dataprocessing.DetectFormat(filename)
	infrastructure.RecordUpload(ctx, s.metrics, string(format), table.Len(), table.DuplicatesDropped, s.now().Sub(start))
	span.SetAttributes(
		attribute.Int("upload.rows", table.Len()),
		attribute.Int("upload.duplicates_dropped", table.DuplicatesDropped),
	)

	s.logger.InfoContext(ctx, "upload accepted",
		slog.String("session_id", id),
		slog.String("filename", filename),
		slog.String("format", string(format)),
		slog.Int("rows", table.Len()),
		slog.Int("duplicates_dropped", table.DuplicatesDropped))

	return sess.Info(), nil
}

// parse reads at most MaxUploadBytes and hands the bytes to the ingestion adapter
func (s *DashboardService) parse(r io.Reader, filename string) (*domain.IssueTable, error) {
	if _, err := dataprocessing.DetectFormat(filename); err != nil {
		return nil, err
	}

	limit := s.config.MaxUploadBytes
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, &http.MaxBytesError{Limit: limit}
	}

	return dataprocessing.ParseUpload(bytes.NewReader(data), filename)
}

func (s *DashboardService) rejectUpload(ctx context.Context, id, filename string, cause error) error {
	if _, err := s.store.SetError(id, filename, cause); err != nil {
		return s.storeError(id, err)
	}

	kind := uploadFailureKind(cause)
	infrastructure.RecordUploadFailure(ctx, s.metrics, kind)
	infrastructure.RecordError(ctx, cause)

	s.logger.WarnContext(ctx, "upload rejected",
		slog.String("session_id", id),
		slog.String("filename", filename),
		slog.String("kind", kind),
		slog.String("error", cause.Error()))
	return cause
}

// uploadFailureKind labels a rejected upload for metrics
func uploadFailureKind(err error) string {
	var (
		formatErr *dataprocessing.FormatError
		schemaErr *dataprocessing.SchemaError
		parseErr  *dataprocessing.ParseError
		sizeErr   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &formatErr):
		return "format"
	case errors.As(err, &schemaErr):
		return "schema"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &sizeErr):
		return "too_large"
	default:
		return "read"
	}
}

// LoadDefault loads the bundled dataset into the session.
func (s *DashboardService) LoadDefault(ctx context.Context, id string) (domain.SessionInfo, error) {
	path := s.config.DefaultDataset
	if path == "" {
		return domain.SessionInfo{}, ErrDefaultDatasetUnavailable
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.SessionInfo{}, fmt.Errorf("%w: %s", ErrDefaultDatasetUnavailable, filepath.Base(path))
		}
		return domain.SessionInfo{}, fmt.Errorf("failed to open default dataset: %w", err)
	}
	defer f.Close()

	return s.Upload(ctx, id, filepath.Base(path), f)
}

// Rows returns the session's full table.
func (s *DashboardService) Rows(ctx context.Context, id string) (*domain.IssueTable, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	if sess.Table == nil {
		return nil, ErrNoDataset
	}
	return sess.Table, nil
}

// FilteredRows returns the session's table narrowed by sel along with the
// size of the full table.
func (s *DashboardService) FilteredRows(ctx context.Context, id string, sel domain.FilterSelection) (*domain.IssueTable, int, error) {
	table, err := s.Rows(ctx, id)
	if err != nil {
		return nil, 0, err
	}
	return dataprocessing.Filter(table, sel), table.Len(), nil
}

// Options lists the filterable columns with their distinct values and the
// configured default selection.
func (s *DashboardService) Options(ctx context.Context, id string) ([]domain.FilterOption, error) {
	table, err := s.Rows(ctx, id)
	if err != nil {
		return nil, err
	}
	return dataprocessing.FilterOptions(table, s.config.SelectAllDefault), nil
}

// Dashboard computes the dashboard for the session under sel. An idle session
// yields an idle dashboard with the upload prompt.
func (s *DashboardService) Dashboard(ctx context.Context, id string, sel domain.FilterSelection) (*domain.Dashboard, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.compute", trace.WithAttributes(
		attribute.String("session.id", id),
	))
	defer span.End()

	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}

	start := s.now()
	dashboard := s.summarizer.Build(ctx, sess.Table, sel)
	infrastructure.RecordDashboard(ctx, s.metrics, string(dashboard.State), s.now().Sub(start))

	span.SetAttributes(
		attribute.String("dashboard.state", string(dashboard.State)),
		attribute.Int("dashboard.filtered_issues", dashboard.FilteredIssues),
	)
	return dashboard, nil
}

// Export writes the session's table narrowed by sel to w and returns the
// number of rows written.
func (s *DashboardService) Export(ctx context.Context, id string, sel domain.FilterSelection, format string, w io.Writer) (int, error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.export", trace.WithAttributes(
		attribute.String("session.id", id),
		attribute.String("export.format", format),
	))
	defer span.End()

	exportFormat, err := exporter.ParseFormat(format)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedExportFormat, format)
	}

	table, err := s.Rows(ctx, id)
	if err != nil {
		return 0, err
	}

	filtered := dataprocessing.Filter(table, sel)
	if err := exporter.Write(w, filtered, exportFormat); err != nil {
		infrastructure.RecordError(ctx, err)
		return 0, fmt.Errorf("failed to export table: %w", err)
	}
	infrastructure.RecordExport(ctx, s.metrics, string(exportFormat))

	s.logger.InfoContext(ctx, "table exported",
		slog.String("session_id", id),
		slog.String("format", string(exportFormat)),
		slog.Int("rows", filtered.Len()))
	return filtered.Len(), nil
}

// SweepExpired removes sessions idle past the TTL and returns their ids.
func (s *DashboardService) SweepExpired(ctx context.Context, now time.Time) []string {
	expired := s.store.Sweep(now)
	if len(expired) == 0 {
		return nil
	}
	infrastructure.RecordSessionsExpired(ctx, s.metrics, len(expired))
	s.notifyClosed(expired...)

	s.logger.InfoContext(ctx, "expired sessions removed",
		slog.Int("count", len(expired)),
		slog.Int("remaining", s.store.Len()))
	return expired
}

// RunSweeper calls SweepExpired every interval until ctx is cancelled.
func (s *DashboardService) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case t := <-ticker.C:
			s.SweepExpired(ctx, t)
		}
	}
}

func (s *DashboardService) get(id string) (*session.Session, error) {
	sess, err := s.store.Get(id)
	if err != nil {
		return nil, s.storeError(id, err)
	}
	return sess, nil
}

func (s *DashboardService) storeError(id string, err error) error {
	if errors.Is(err, session.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return err
}
