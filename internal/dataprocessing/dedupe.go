package dataprocessing

import "issuepulse/pkg/contracts/domain"

// Dedupe keeps the first issue for each Issue key in input order and reports
// how many later rows were dropped. Rows with an empty key are deduplicated
// like any other value. Dedupe is idempotent.
func Dedupe(issues []domain.Issue) ([]domain.Issue, int) {
	seen := make(map[string]struct{}, len(issues))
	kept := make([]domain.Issue, 0, len(issues))
	for _, issue := range issues {
		if _, dup := seen[issue.Key]; dup {
			continue
		}
		seen[issue.Key] = struct{}{}
		kept = append(kept, issue)
	}
	return kept, len(issues) - len(kept)
}
