// Package api contains the request and response contracts of the dashboard HTTP API.
package api

import (
	"issuepulse/pkg/contracts/domain"
)

// Export formats accepted by the export endpoint and the report command
const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"
)

// Filters maps a filterable column name to its permitted values.
// A column left out (or null) is unconstrained; an empty list permits nothing.
type Filters map[string][]string

// Selection converts the wire form into a domain selection.
// Callers validate column names first; unknown names are ignored here.
func (f Filters) Selection() domain.FilterSelection {
	values := make(map[domain.FilterColumn][]string, len(f))
	for name, vals := range f {
		if !domain.IsFilterColumn(name) {
			continue
		}
		values[domain.FilterColumn(name)] = vals
	}
	return domain.NewFilterSelection(values)
}

// FiltersFromSelection renders a selection back to its wire form
func FiltersFromSelection(sel domain.FilterSelection) Filters {
	f := Filters{}
	for _, col := range sel.Columns() {
		f[string(col)] = sel.Values(col)
	}
	return f
}

// DashboardRequest asks for the dashboard of the current table under a selection
type DashboardRequest struct {
	Filters Filters `json:"filters" validate:"omitempty,dive,keys,filtercolumn,endkeys"`
}

// ExportRequest asks for the filtered table in a downloadable format
type ExportRequest struct {
	Format  string  `json:"format" validate:"required,oneof=csv xlsx"`
	Filters Filters `json:"filters" validate:"omitempty,dive,keys,filtercolumn,endkeys"`
}

// LiveRequest is one message sent by a client on the live channel
type LiveRequest struct {
	Type    string  `json:"type" validate:"omitempty,oneof=filters ping"`
	Filters Filters `json:"filters" validate:"omitempty,dive,keys,filtercolumn,endkeys"`
}

// RowsResponse is the raw table of a session
type RowsResponse struct {
	Source            string         `json:"source"`
	Columns           []string       `json:"columns"`
	Rows              int            `json:"rows"`
	DuplicatesDropped int            `json:"duplicates_dropped"`
	Issues            []domain.Issue `json:"issues"`
}

// RowsRequest asks for one page of the table narrowed by filters.
// A zero limit returns every row from offset on.
type RowsRequest struct {
	Filters Filters `json:"filters" validate:"omitempty,dive,keys,filtercolumn,endkeys"`
	Limit   int     `json:"limit" validate:"min=0,max=10000"`
	Offset  int     `json:"offset" validate:"min=0"`
}

// FilteredRowsResponse is one page of the filtered table with the derived
// resolution time and completion status of every row
type FilteredRowsResponse struct {
	Source       string            `json:"source"`
	Columns      []string          `json:"columns"`
	TotalRows    int               `json:"total_rows"`
	FilteredRows int               `json:"filtered_rows"`
	Offset       int               `json:"offset"`
	Limit        int               `json:"limit"`
	Issues       []domain.IssueRow `json:"issues"`
}

// OptionsResponse lists the filter widgets for a session
type OptionsResponse struct {
	SessionID string                `json:"session_id"`
	Options   []domain.FilterOption `json:"options"`
}
