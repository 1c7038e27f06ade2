package domain

import (
	"encoding/json"
	"time"
)

// ValueCount is the occurrence count of one distinct column value
type ValueCount struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// GroupMean is the mean resolution time for one group value
type GroupMean struct {
	Group    string  `json:"group"`
	MeanDays float64 `json:"mean_days"`
	Issues   int     `json:"issues"`
}

// OptionalFloat carries a number that may be unavailable.
// It marshals to null instead of leaking NaN to clients.
type OptionalFloat struct {
	Value     float64
	Available bool
}

// Some wraps an available value.
func Some(v float64) OptionalFloat {
	return OptionalFloat{Value: v, Available: true}
}

// MarshalJSON implements json.Marshaler
func (o OptionalFloat) MarshalJSON() ([]byte, error) {
	if !o.Available {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// UnmarshalJSON implements json.Unmarshaler
func (o *OptionalFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = OptionalFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*o = Some(v)
	return nil
}

// ChartKind hints the presentation layer how to draw a series
type ChartKind string

const (
	ChartPie ChartKind = "pie"
	ChartBar ChartKind = "bar"
)

// ChartSeries is a rendering-agnostic categorical series
type ChartSeries struct {
	Title  string       `json:"title"`
	Kind   ChartKind    `json:"kind"`
	Column string       `json:"column"`
	Counts []ValueCount `json:"counts"`
}

// DashboardState tells the client whether data is loaded
type DashboardState string

const (
	DashboardIdle  DashboardState = "idle"
	DashboardReady DashboardState = "ready"
)

// Dashboard is everything the presentation layer needs for one interaction
type Dashboard struct {
	State  DashboardState `json:"state"`
	Prompt string         `json:"prompt,omitempty"`
	Source string         `json:"source,omitempty"`

	TotalIssues    int `json:"total_issues"`
	FilteredIssues int `json:"filtered_issues"`

	MeanResolutionDays         OptionalFloat `json:"mean_resolution_days"`
	FilteredMeanResolutionDays OptionalFloat `json:"filtered_mean_resolution_days"`

	StatusCounts         []ValueCount  `json:"status_counts,omitempty"`
	Charts               []ChartSeries `json:"charts,omitempty"`
	ResolutionByAssignee []GroupMean   `json:"resolution_by_assignee,omitempty"`
	Completion           []ValueCount  `json:"completion,omitempty"`

	GeneratedAt time.Time `json:"generated_at"`
}

// SessionInfo summarises a dashboard session for clients
type SessionInfo struct {
	ID                string         `json:"id"`
	State             DashboardState `json:"state"`
	Filename          string         `json:"filename,omitempty"`
	Rows              int            `json:"rows"`
	DuplicatesDropped int            `json:"duplicates_dropped"`
	Columns           []string       `json:"columns,omitempty"`
	LastError         string         `json:"last_error,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UploadedAt        *time.Time     `json:"uploaded_at,omitempty"`
}
