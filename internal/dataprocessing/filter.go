package dataprocessing

import "issuepulse/pkg/contracts/domain"

// Filter returns the rows whose values are permitted by every constrained
// column of sel. Row order is preserved and the input table is not modified.
func Filter(table *domain.IssueTable, sel domain.FilterSelection) *domain.IssueTable {
	if table == nil {
		return nil
	}

	cols := sel.Columns()
	if len(cols) == 0 {
		return table.WithIssues(append([]domain.Issue(nil), table.Issues...))
	}

	kept := make([]domain.Issue, 0, len(table.Issues))
	for _, issue := range table.Issues {
		if matches(issue, sel, cols) {
			kept = append(kept, issue)
		}
	}
	return table.WithIssues(kept)
}

func matches(issue domain.Issue, sel domain.FilterSelection, cols []domain.FilterColumn) bool {
	for _, col := range cols {
		if !sel.Permits(col, issue.Value(col)) {
			return false
		}
	}
	return true
}

// DistinctValues returns the distinct values of col in first-seen order.
func DistinctValues(table *domain.IssueTable, col domain.FilterColumn) []string {
	var values []string
	seen := make(map[string]bool)
	if table == nil {
		return values
	}
	for _, issue := range table.Issues {
		v := issue.Value(col)
		if !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	return values
}

// FilterOptions lists every filterable column with its distinct values and the
// default selection: all values when selectAll is set, none otherwise.
func FilterOptions(table *domain.IssueTable, selectAll bool) []domain.FilterOption {
	options := make([]domain.FilterOption, 0, len(domain.FilterColumns))
	for _, col := range domain.FilterColumns {
		values := DistinctValues(table, col)
		if values == nil {
			values = []string{}
		}
		selected := []string{}
		if selectAll {
			selected = append(selected, values...)
		}
		options = append(options, domain.FilterOption{
			Column:   col,
			Values:   values,
			Selected: selected,
		})
	}
	return options
}

// DefaultSelection is the selection a fresh filter panel starts with.
// With selectAll every column permits all of its values, which is
// equivalent to no constraint; otherwise every column permits nothing.
func DefaultSelection(selectAll bool) domain.FilterSelection {
	sel := domain.FilterSelection{}
	if selectAll {
		return sel
	}
	for _, col := range domain.FilterColumns {
		sel = sel.With(col)
	}
	return sel
}
