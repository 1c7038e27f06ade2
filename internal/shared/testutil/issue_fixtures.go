package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleCSV is a small Jira-style export.
// Parsed it yields 5 issues (P-2 appears twice, the first row wins), one
// extra column "Summary", status counts Open 2 / Closed 2 / In Progress 1,
// a mean resolution of 3 days over P-1, P-2 and P-3, and completion buckets
// No Deadline 2 / Before Deadline 2 / After Deadline 1.
const SampleCSV = "Issue key,Summary,Status,Assignee,Issue Type,Priority,Created,Updated,Due date\n" +
	"P-1,Login fails,Open,ana,Bug,High,2024-01-01 00:00,2024-01-04 00:00,2024-01-10 00:00\n" +
	"P-2,Write docs,Closed,ben,Task,Low,2024-01-01 00:00,2024-01-06 00:00,2024-01-03 00:00\n" +
	"P-3,Onboarding,Open,ana,Story,Low,2024-01-02 00:00,2024-01-03 00:00,\n" +
	"P-2,Write docs again,Open,cid,Task,High,2024-02-01 00:00,2024-02-02 00:00,\n" +
	"P-4,Crash on save,In Progress,,Bug,High,2024-01-02 00:00,,2024-01-05 00:00\n" +
	"P-5,Legacy import,Closed,cid,Bug,Medium,,,\n"

// SampleRows is the number of issues SampleCSV yields after deduplication
const SampleRows = 5

// MissingColumnCSV lacks the Priority and Due date columns
const MissingColumnCSV = "Issue key,Status,Assignee,Issue Type,Created,Updated\n" +
	"P-1,Open,ana,Bug,2024-01-01,2024-01-02\n"

// WriteFile writes content under dir and returns its path
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create fixture dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}
