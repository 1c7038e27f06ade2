package domain

import "sort"

// FilterSelection maps filterable columns to the set of values a row may hold.
// A column with no entry is unconstrained. The zero value permits everything.
// Selections are values: With returns a new selection and never mutates the receiver.
type FilterSelection struct {
	sets map[FilterColumn]map[string]struct{}
}

// NewFilterSelection builds a selection from plain value lists.
// A nil slice leaves the column unconstrained; an empty non-nil slice permits nothing.
func NewFilterSelection(values map[FilterColumn][]string) FilterSelection {
	sel := FilterSelection{}
	for col, vals := range values {
		if vals == nil {
			continue
		}
		sel = sel.With(col, vals...)
	}
	return sel
}

// With returns a copy of the selection with col restricted to values.
// Calling With with no values restricts the column to the empty set.
func (s FilterSelection) With(col FilterColumn, values ...string) FilterSelection {
	next := make(map[FilterColumn]map[string]struct{}, len(s.sets)+1)
	for c, set := range s.sets {
		next[c] = set
	}
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	next[col] = set
	return FilterSelection{sets: next}
}

// Constrained reports whether col has a permitted set.
func (s FilterSelection) Constrained(col FilterColumn) bool {
	_, ok := s.sets[col]
	return ok
}

// Permits reports whether value passes the selection for col.
func (s FilterSelection) Permits(col FilterColumn, value string) bool {
	set, ok := s.sets[col]
	if !ok {
		return true
	}
	_, ok = set[value]
	return ok
}

// Columns returns the constrained columns in FilterColumns order.
func (s FilterSelection) Columns() []FilterColumn {
	var cols []FilterColumn
	for _, c := range FilterColumns {
		if s.Constrained(c) {
			cols = append(cols, c)
		}
	}
	return cols
}

// Values returns the sorted permitted values for col, or nil when unconstrained.
func (s FilterSelection) Values(col FilterColumn) []string {
	set, ok := s.sets[col]
	if !ok {
		return nil
	}
	vals := make([]string, 0, len(set))
	for v := range set {
		vals = append(vals, v)
	}
	sort.Strings(vals)
	return vals
}

// FilterOption describes one filter widget: its distinct values and default selection
type FilterOption struct {
	Column   FilterColumn `json:"column"`
	Values   []string     `json:"values"`
	Selected []string     `json:"selected"`
}
