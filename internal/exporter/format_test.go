package exporter

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"issuepulse/internal/dataprocessing"
	"issuepulse/internal/shared/testutil"
	"issuepulse/pkg/contracts/domain"
)

func sampleTable(t *testing.T) *domain.IssueTable {
	t.Helper()
	table, err := dataprocessing.ParseUpload(strings.NewReader(testutil.SampleCSV), "sample.csv")
	require.NoError(t, err)
	require.Equal(t, testutil.SampleRows, table.Len())
	return table
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name    string
		want    Format
		wantErr bool
	}{
		{"csv", FormatCSV, false},
		{".CSV", FormatCSV, false},
		{"xlsx", FormatXLSX, false},
		{".xlsx", FormatXLSX, false},
		{"json", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFormat(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("/tmp/out/report.xlsx")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	_, err = FormatFromPath("report")
	assert.Error(t, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/csv; charset=utf-8", ContentType(FormatCSV))
	assert.Contains(t, ContentType(FormatXLSX), "spreadsheetml")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "jira-filtered.csv", FileName("jira.xlsx", FormatCSV))
	assert.Equal(t, "export.2024-filtered.xlsx", FileName("/uploads/export.2024.csv", FormatXLSX))
	assert.Equal(t, "issues-filtered.csv", FileName("", FormatCSV))
}

func TestHeader(t *testing.T) {
	table := sampleTable(t)

	header := Header(table)
	assert.Equal(t, append(append([]string{}, table.Columns...),
		domain.ColumnResolutionDays, domain.ColumnCompletionStatus), header)
	assert.Equal(t, "Summary", header[1])
}

func TestWrite_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	err := Write(&buf, sampleTable(t), Format("pdf"))
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestCells(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)
	issue := domain.Issue{
		Key:     "X-1",
		Status:  "Open",
		Created: &created,
		Updated: &updated,
		Extra:   map[string]string{"Summary": "hello"},
	}

	row := cells(issue, []string{domain.ColumnIssueKey, "Summary", domain.ColumnCreated, domain.ColumnDueDate})
	require.Len(t, row, 6)

	got := make([]string, len(row))
	for i, c := range row {
		got[i] = c.String()
	}
	assert.Equal(t, []string{"X-1", "hello", "2024-01-01T00:00:00Z", "", "2", "No Deadline"}, got)
}
