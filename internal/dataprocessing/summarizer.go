package dataprocessing

import (
	"context"
	"log/slog"
	"time"

	"issuepulse/pkg/contracts/domain"
)

// DefaultIdlePrompt is shown while a session has no dataset loaded.
const DefaultIdlePrompt = "Please upload a file to proceed."

// chartSpec describes one categorical chart computed over the filtered table
type chartSpec struct {
	title  string
	kind   domain.ChartKind
	column domain.FilterColumn
}

var dashboardCharts = []chartSpec{
	{"Issues by Status", domain.ChartPie, domain.FilterStatus},
	{"Issues by Assignee", domain.ChartBar, domain.FilterAssignee},
	{"Issues by Priority", domain.ChartPie, domain.FilterPriority},
	{"Issues by Issue Type", domain.ChartBar, domain.FilterIssueType},
}

// Summarizer assembles Dashboard payloads from a table and a selection.
type Summarizer struct {
	logger     *slog.Logger
	idlePrompt string
	now        func() time.Time
}

// SummarizerConfig holds configuration options for the Summarizer.
type SummarizerConfig struct {
	IdlePrompt string           // Prompt returned while no dataset is loaded
	Now        func() time.Time // Clock for GeneratedAt, defaults to time.Now
}

// DefaultSummarizerConfig returns the standard configuration.
func DefaultSummarizerConfig() SummarizerConfig {
	return SummarizerConfig{IdlePrompt: DefaultIdlePrompt}
}

// NewSummarizer creates a dashboard summarizer.
func NewSummarizer(logger *slog.Logger, config SummarizerConfig) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.IdlePrompt == "" {
		config.IdlePrompt = DefaultIdlePrompt
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Summarizer{
		logger:     logger.With(slog.String("component", "summarizer")),
		idlePrompt: config.IdlePrompt,
		now:        config.Now,
	}
}

// Build computes the dashboard for table narrowed by sel. A nil table yields
// an idle dashboard carrying the upload prompt.
func (s *Summarizer) Build(ctx context.Context, table *domain.IssueTable, sel domain.FilterSelection) *domain.Dashboard {
	generated := s.now().UTC()
	if table == nil {
		return &domain.Dashboard{
			State:       domain.DashboardIdle,
			Prompt:      s.idlePrompt,
			GeneratedAt: generated,
		}
	}

	filtered := Filter(table, sel)

	charts := make([]domain.ChartSeries, 0, len(dashboardCharts))
	for _, c := range dashboardCharts {
		charts = append(charts, domain.ChartSeries{
			Title:  c.title,
			Kind:   c.kind,
			Column: string(c.column),
			Counts: ValueCounts(filtered, c.column),
		})
	}

	dash := &domain.Dashboard{
		State:                      domain.DashboardReady,
		Source:                     table.Source,
		TotalIssues:                Count(table),
		FilteredIssues:             Count(filtered),
		MeanResolutionDays:         MeanResolutionDays(table),
		FilteredMeanResolutionDays: MeanResolutionDays(filtered),
		StatusCounts:               ValueCounts(table, domain.FilterStatus),
		Charts:                     charts,
		ResolutionByAssignee:       MeanResolutionByGroup(filtered, domain.FilterAssignee),
		Completion:                 CompletionBreakdown(filtered),
		GeneratedAt:                generated,
	}

	s.logger.DebugContext(ctx, "dashboard computed",
		slog.String("source", table.Source),
		slog.Int("total", dash.TotalIssues),
		slog.Int("filtered", dash.FilteredIssues),
		slog.Int("constrained_columns", len(sel.Columns())))

	return dash
}

// BuildDashboard computes a dashboard with the default summarizer.
func BuildDashboard(table *domain.IssueTable, sel domain.FilterSelection) *domain.Dashboard {
	return NewSummarizer(nil, DefaultSummarizerConfig()).Build(context.Background(), table, sel)
}
