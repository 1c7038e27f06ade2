package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuepulse/internal/shared/testutil"
	"issuepulse/pkg/contracts/domain"
)

func TestSplitList(t *testing.T) {
	assert.Nil(t, splitList(""))
	assert.Equal(t, []string{"Open", "In Progress"}, splitList(" Open, In Progress ,,"))
}

func TestFilterColumn(t *testing.T) {
	tests := map[string]domain.FilterColumn{
		"status":     domain.FilterStatus,
		"Assignee":   domain.FilterAssignee,
		"type":       domain.FilterIssueType,
		"Issue Type": domain.FilterIssueType,
		"PRIORITY":   domain.FilterPriority,
	}
	for name, want := range tests {
		got, err := filterColumn(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}

	_, err := filterColumn("Summary")
	assert.Error(t, err)
}

func TestBuildSelection(t *testing.T) {
	t.Run("no flags leaves every column unconstrained", func(t *testing.T) {
		sel, err := buildSelection(map[domain.FilterColumn]string{}, "")
		require.NoError(t, err)
		assert.Empty(t, sel.Columns())
	})

	t.Run("values constrain their column", func(t *testing.T) {
		sel, err := buildSelection(map[domain.FilterColumn]string{
			domain.FilterStatus: "Open,Closed",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, []domain.FilterColumn{domain.FilterStatus}, sel.Columns())
		assert.True(t, sel.Permits(domain.FilterStatus, "Open"))
		assert.False(t, sel.Permits(domain.FilterStatus, "In Progress"))
	})

	t.Run("none selected permits nothing", func(t *testing.T) {
		sel, err := buildSelection(map[domain.FilterColumn]string{}, "priority")
		require.NoError(t, err)
		assert.True(t, sel.Constrained(domain.FilterPriority))
		assert.False(t, sel.Permits(domain.FilterPriority, "High"))
	})

	t.Run("conflicting flags", func(t *testing.T) {
		_, err := buildSelection(map[domain.FilterColumn]string{
			domain.FilterPriority: "High",
		}, "Priority")
		assert.Error(t, err)
	})

	t.Run("unknown column", func(t *testing.T) {
		_, err := buildSelection(map[domain.FilterColumn]string{}, "Summary")
		assert.Error(t, err)
	})
}

func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer

	_, err := parseFlags([]string{}, &stderr)
	assert.Error(t, err)

	_, err = parseFlags([]string{"-h"}, &stderr)
	assert.ErrorIs(t, err, flag.ErrHelp)

	opts, err := parseFlags([]string{"-file", "x.csv", "-assignee", "ana", "-json"}, &stderr)
	require.NoError(t, err)
	assert.Equal(t, "x.csv", opts.file)
	assert.Equal(t, "ana", opts.filters[domain.FilterAssignee])
	assert.True(t, opts.json)
}

func TestRun_Version(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"-version"}, &stdout, &stderr))
	assert.True(t, strings.HasPrefix(stdout.String(), "issuepulse v"))
}

func TestRun_JSON(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "sample.csv", testutil.SampleCSV)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-file", path, "-priority", "High", "-json"}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	var dash domain.Dashboard
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &dash))
	assert.Equal(t, domain.DashboardReady, dash.State)
	assert.Equal(t, "sample.csv", dash.Source)
	assert.Equal(t, testutil.SampleRows, dash.TotalIssues)
	assert.Equal(t, 2, dash.FilteredIssues)
	require.True(t, dash.FilteredMeanResolutionDays.Available)
	assert.InDelta(t, 3.0, dash.FilteredMeanResolutionDays.Value, 1e-9)
}

func TestRun_Text(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "sample.csv", testutil.SampleCSV)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-file", path, "-assignee", "ana"}, &stdout, &stderr)
	require.NoError(t, err, stderr.String())

	out := stdout.String()
	assert.Contains(t, out, "Issues:          2 of 5")
	assert.Contains(t, out, "Resolution by assignee")
	assert.Contains(t, out, "Issues by Priority")
	assert.Contains(t, out, "Completion")
}

func TestRun_NoneSelected(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "sample.csv", testutil.SampleCSV)

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"-file", path, "-none-selected", "Status", "-json"}, &stdout, &stderr)
	require.NoError(t, err)

	var dash domain.Dashboard
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &dash))
	assert.Equal(t, 0, dash.FilteredIssues)
	assert.False(t, dash.FilteredMeanResolutionDays.Available)
	assert.True(t, dash.MeanResolutionDays.Available)
}

func TestRun_Export(t *testing.T) {
	dir := t.TempDir()
	path := testutil.WriteFile(t, dir, "sample.csv", testutil.SampleCSV)

	for _, name := range []string{"filtered.csv", "filtered.xlsx"} {
		t.Run(name, func(t *testing.T) {
			out := filepath.Join(dir, name)
			var stdout, stderr bytes.Buffer
			err := run(context.Background(), []string{"-file", path, "-assignee", "ana", "-out", out}, &stdout, &stderr)
			require.NoError(t, err, stderr.String())

			info, err := os.Stat(out)
			require.NoError(t, err)
			assert.Positive(t, info.Size())
			assert.Contains(t, stderr.String(), "exported 2 rows")
		})
	}

	t.Run("csv content", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(dir, "filtered.csv"))
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		assert.Len(t, lines, 3)
	})
}

func TestRun_Errors(t *testing.T) {
	dir := t.TempDir()
	good := testutil.WriteFile(t, dir, "sample.csv", testutil.SampleCSV)
	missing := testutil.WriteFile(t, dir, "missing.csv", testutil.MissingColumnCSV)
	unsupported := testutil.WriteFile(t, dir, "notes.txt", "hello")

	tests := []struct {
		name string
		args []string
	}{
		{"missing file flag", []string{}},
		{"file not found", []string{"-file", filepath.Join(dir, "nope.csv")}},
		{"unsupported format", []string{"-file", unsupported}},
		{"missing columns", []string{"-file", missing}},
		{"bad export extension", []string{"-file", good, "-out", filepath.Join(dir, "out.pdf")}},
		{"bad none-selected", []string{"-file", good, "-none-selected", "Summary"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			assert.Error(t, run(context.Background(), tt.args, &stdout, &stderr))
		})
	}
}
