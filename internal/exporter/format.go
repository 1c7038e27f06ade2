package exporter

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"issuepulse/internal/dataprocessing"
	"issuepulse/pkg/contracts/domain"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat resolves a format name or file extension.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(name, ".")) {
	case "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported export format %q", name)
}

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// ContentType returns the MIME type served for a format.
func ContentType(format Format) string {
	switch format {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv; charset=utf-8"
	}
}

// FileName derives the download name from the uploaded source name.
func FileName(source string, format Format) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." || base == string(filepath.Separator) {
		base = "issues"
	}
	return base + "-filtered." + string(format)
}

// Write encodes table in the given format.
func Write(w io.Writer, table *domain.IssueTable, format Format) error {
	switch format {
	case FormatCSV:
		return WriteCSV(w, table)
	case FormatXLSX:
		return WriteXLSX(w, table)
	}
	return fmt.Errorf("unsupported export format %q", format)
}

// Header returns the original columns followed by the derived ones.
func Header(table *domain.IssueTable) []string {
	header := make([]string, 0, len(table.Columns)+2)
	header = append(header, table.Columns...)
	return append(header, domain.ColumnResolutionDays, domain.ColumnCompletionStatus)
}

// cell is one exported value; times stay typed so XLSX can store dates.
type cell struct {
	text string
	time *time.Time
	num  *int
}

func (c cell) String() string {
	switch {
	case c.time != nil:
		return formatTime(c.time)
	case c.num != nil:
		return strconv.Itoa(*c.num)
	}
	return c.text
}

func cells(issue domain.Issue, columns []string) []cell {
	derived := dataprocessing.DeriveRow(issue)
	row := make([]cell, 0, len(columns)+2)
	for _, col := range columns {
		row = append(row, columnCell(issue, col))
	}
	row = append(row, cell{num: derived.ResolutionDays})
	return append(row, cell{text: string(derived.CompletionStatus)})
}

func columnCell(issue domain.Issue, col string) cell {
	switch col {
	case domain.ColumnIssueKey:
		return cell{text: issue.Key}
	case domain.ColumnStatus:
		return cell{text: issue.Status}
	case domain.ColumnAssignee:
		return cell{text: issue.Assignee}
	case domain.ColumnIssueType:
		return cell{text: issue.IssueType}
	case domain.ColumnPriority:
		return cell{text: issue.Priority}
	case domain.ColumnCreated:
		return cell{time: issue.Created}
	case domain.ColumnUpdated:
		return cell{time: issue.Updated}
	case domain.ColumnDueDate:
		return cell{time: issue.DueDate}
	}
	return cell{text: issue.Extra[col]}
}

// formatTime renders a timestamp as RFC 3339, empty when missing
func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
