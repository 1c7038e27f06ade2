package dataprocessing

import (
	"sort"

	"issuepulse/pkg/contracts/domain"
)

// Count returns the number of rows in the table.
func Count(table *domain.IssueTable) int {
	return table.Len()
}

// ValueCounts tallies the values of col, most frequent first. Ties keep the
// order in which values first appear. The counts always sum to Count(table).
func ValueCounts(table *domain.IssueTable, col domain.FilterColumn) []domain.ValueCount {
	if table == nil {
		return []domain.ValueCount{}
	}
	return tally(table.Issues, func(issue domain.Issue) string { return issue.Value(col) })
}

func tally(issues []domain.Issue, key func(domain.Issue) string) []domain.ValueCount {
	index := make(map[string]int)
	counts := []domain.ValueCount{}
	for _, issue := range issues {
		v := key(issue)
		if i, ok := index[v]; ok {
			counts[i].Count++
			continue
		}
		index[v] = len(counts)
		counts = append(counts, domain.ValueCount{Value: v, Count: 1})
	}
	sort.SliceStable(counts, func(i, j int) bool { return counts[i].Count > counts[j].Count })
	return counts
}

// MeanResolutionDays averages ResolutionDays over rows that have both
// timestamps. The result is unavailable when no row qualifies.
func MeanResolutionDays(table *domain.IssueTable) domain.OptionalFloat {
	if table == nil {
		return domain.OptionalFloat{}
	}
	var sum, n int
	for _, issue := range table.Issues {
		if days, ok := issue.ResolutionDays(); ok {
			sum += days
			n++
		}
	}
	if n == 0 {
		return domain.OptionalFloat{}
	}
	return domain.Some(float64(sum) / float64(n))
}

// MeanResolutionByGroup averages ResolutionDays per value of col. Groups with
// no eligible rows are omitted; the rest are sorted by group value.
func MeanResolutionByGroup(table *domain.IssueTable, col domain.FilterColumn) []domain.GroupMean {
	groups := []domain.GroupMean{}
	if table == nil {
		return groups
	}

	type acc struct{ sum, n int }
	accs := make(map[string]*acc)
	for _, issue := range table.Issues {
		days, ok := issue.ResolutionDays()
		if !ok {
			continue
		}
		g := issue.Value(col)
		a := accs[g]
		if a == nil {
			a = &acc{}
			accs[g] = a
		}
		a.sum += days
		a.n++
	}

	for g, a := range accs {
		groups = append(groups, domain.GroupMean{
			Group:    g,
			MeanDays: float64(a.sum) / float64(a.n),
			Issues:   a.n,
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Group < groups[j].Group })
	return groups
}

// CompletionBucket classifies an issue against its due date. An issue with a
// due date but no Updated timestamp has not been late yet.
func CompletionBucket(issue domain.Issue) domain.CompletionStatus {
	switch {
	case issue.DueDate == nil:
		return domain.CompletionNoDeadline
	case issue.Updated == nil, !issue.Updated.After(*issue.DueDate):
		return domain.CompletionBeforeDeadline
	default:
		return domain.CompletionAfterDeadline
	}
}

// DeriveRow adds the resolution time and completion status to an issue.
func DeriveRow(issue domain.Issue) domain.IssueRow {
	row := domain.IssueRow{Issue: issue, CompletionStatus: CompletionBucket(issue)}
	if days, ok := issue.ResolutionDays(); ok {
		row.ResolutionDays = &days
	}
	return row
}

// DeriveRows applies DeriveRow to every issue, keeping order.
func DeriveRows(issues []domain.Issue) []domain.IssueRow {
	rows := make([]domain.IssueRow, len(issues))
	for i, issue := range issues {
		rows[i] = DeriveRow(issue)
	}
	return rows
}

// CompletionBreakdown counts issues per completion bucket in the fixed
// bucket order. Every bucket is present, possibly with a zero count.
func CompletionBreakdown(table *domain.IssueTable) []domain.ValueCount {
	counts := make(map[domain.CompletionStatus]int, len(domain.CompletionStatuses))
	if table != nil {
		for _, issue := range table.Issues {
			counts[CompletionBucket(issue)]++
		}
	}
	out := make([]domain.ValueCount, 0, len(domain.CompletionStatuses))
	for _, status := range domain.CompletionStatuses {
		out = append(out, domain.ValueCount{Value: string(status), Count: counts[status]})
	}
	return out
}
