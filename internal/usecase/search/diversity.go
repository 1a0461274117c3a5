package search

import (
	"github.com/talent-cloud/jobdex/internal/domain/search/result"
)

// diversify trims a score-sorted match list to n entries while bounding
// repetition. The top match is always kept. A match is skipped when its
// job id was already chosen, or when its normalized title or company has
// already hit its cap among chosen results. An input that already fits in n
// passes through untouched.
func diversify(matches []result.Match, n, maxPerTitle, maxPerCompany int) []result.Match {
	if len(matches) <= n {
		return matches
	}

	selected := make([]result.Match, 0, n)
	seenJobs := make(map[string]struct{})
	titleCount := make(map[string]int)
	companyCount := make(map[string]int)

	admit := func(m result.Match) {
		selected = append(selected, m)
		seenJobs[m.Job().JobID] = struct{}{}
		titleCount[m.Job().TitleNormalized]++
		companyCount[m.Job().CompanyName]++
	}

	admit(matches[0])

	for _, m := range matches[1:] {
		if len(selected) >= n {
			break
		}
		if _, dup := seenJobs[m.Job().JobID]; dup {
			continue
		}
		if titleCount[m.Job().TitleNormalized] >= maxPerTitle {
			continue
		}
		if companyCount[m.Job().CompanyName] >= maxPerCompany {
			continue
		}
		admit(m)
	}

	return selected
}
