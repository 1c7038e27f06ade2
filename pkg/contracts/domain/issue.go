package domain

import (
	"math"
	"time"
)

// Column names every uploaded export must carry
const (
	ColumnIssueKey  = "Issue key"
	ColumnStatus    = "Status"
	ColumnAssignee  = "Assignee"
	ColumnIssueType = "Issue Type"
	ColumnPriority  = "Priority"
	ColumnCreated   = "Created"
	ColumnUpdated   = "Updated"
	ColumnDueDate   = "Due date"
)

// Derived column names added to exports
const (
	ColumnResolutionDays   = "Resolution Time (days)"
	ColumnCompletionStatus = "Completion Status"
)

// RequiredColumns lists the schema validated at ingestion, in canonical order.
var RequiredColumns = []string{
	ColumnIssueKey,
	ColumnStatus,
	ColumnAssignee,
	ColumnIssueType,
	ColumnPriority,
	ColumnCreated,
	ColumnUpdated,
	ColumnDueDate,
}

// TimestampColumns are parsed into time values rather than kept as text.
var TimestampColumns = []string{ColumnCreated, ColumnUpdated, ColumnDueDate}

// FilterColumn identifies one of the categorical columns a user can filter on
type FilterColumn string

const (
	FilterStatus    FilterColumn = ColumnStatus
	FilterAssignee  FilterColumn = ColumnAssignee
	FilterIssueType FilterColumn = ColumnIssueType
	FilterPriority  FilterColumn = ColumnPriority
)

// FilterColumns is the fixed order in which filters are presented.
var FilterColumns = []FilterColumn{FilterStatus, FilterAssignee, FilterIssueType, FilterPriority}

// IsFilterColumn reports whether name is one of the filterable columns.
func IsFilterColumn(name string) bool {
	for _, c := range FilterColumns {
		if string(c) == name {
			return true
		}
	}
	return false
}

// CompletionStatus classifies an issue against its due date
type CompletionStatus string

const (
	CompletionNoDeadline     CompletionStatus = "No Deadline"
	CompletionBeforeDeadline CompletionStatus = "Before Deadline"
	CompletionAfterDeadline  CompletionStatus = "After Deadline"
)

// CompletionStatuses is the fixed bucket order used in breakdowns.
var CompletionStatuses = []CompletionStatus{
	CompletionNoDeadline,
	CompletionBeforeDeadline,
	CompletionAfterDeadline,
}

// Issue is one typed row of an issue-tracker export
type Issue struct {
	Key       string     `json:"issue_key"`
	Status    string     `json:"status"`
	Assignee  string     `json:"assignee"`
	IssueType string     `json:"issue_type"`
	Priority  string     `json:"priority"`
	Created   *time.Time `json:"created"`
	Updated   *time.Time `json:"updated"`
	DueDate   *time.Time `json:"due_date"`

	// Extra holds every non-required column by header name.
	Extra map[string]string `json:"extra,omitempty"`
}

// Value returns the issue's value for a filterable column.
func (i Issue) Value(col FilterColumn) string {
	switch col {
	case FilterStatus:
		return i.Status
	case FilterAssignee:
		return i.Assignee
	case FilterIssueType:
		return i.IssueType
	case FilterPriority:
		return i.Priority
	}
	return ""
}

// ResolutionDays returns the whole-day span between Created and Updated.
// The second result is false when either timestamp is missing.
func (i Issue) ResolutionDays() (int, bool) {
	if i.Created == nil || i.Updated == nil {
		return 0, false
	}
	days := math.Floor(i.Updated.Sub(*i.Created).Hours() / 24)
	return int(days), true
}

// IssueRow is an issue together with its derived columns.
// ResolutionDays is nil when either timestamp is missing.
type IssueRow struct {
	Issue
	ResolutionDays   *int             `json:"resolution_time_days"`
	CompletionStatus CompletionStatus `json:"completion_status"`
}

// IssueTable is the in-memory table built from one uploaded file
type IssueTable struct {
	Source            string   `json:"source"`
	Columns           []string `json:"columns"`
	Issues            []Issue  `json:"issues"`
	DuplicatesDropped int      `json:"duplicates_dropped"`
}

// Len returns the number of rows, treating a nil table as empty.
func (t *IssueTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Issues)
}

// WithIssues returns a shallow copy of the table holding the given rows.
func (t *IssueTable) WithIssues(issues []Issue) *IssueTable {
	return &IssueTable{
		Source:            t.Source,
		Columns:           t.Columns,
		Issues:            issues,
		DuplicatesDropped: t.DuplicatesDropped,
	}
}

// ExtraColumns returns header columns that are not part of the required schema,
// in file order.
func (t *IssueTable) ExtraColumns() []string {
	required := make(map[string]bool, len(RequiredColumns))
	for _, c := range RequiredColumns {
		required[c] = true
	}
	var extra []string
	for _, c := range t.Columns {
		if !required[c] {
			extra = append(extra, c)
		}
	}
	return extra
}
