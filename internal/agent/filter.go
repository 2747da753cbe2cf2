package agent

import (
	"strings"

	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
)

// Narrow keeps the results whose metadata matches every non-"all" selector,
// case-insensitively. If filtering would leave nothing, the unfiltered input
// comes back instead: users get broader context rather than an empty answer.
// That fallback can surface documents outside the requested segment when the
// segment has no data at all; it is deliberate and kept.
func Narrow(results []domain.SearchResult, insuranceType, region string) []domain.SearchResult {
	allTypes := strings.EqualFold(insuranceType, domain.FilterAll)
	allRegions := strings.EqualFold(region, domain.FilterAll)
	if allTypes && allRegions {
		return results
	}

	filtered := make([]domain.SearchResult, 0, len(results))
	for _, r := range results {
		if !allTypes && !strings.EqualFold(r.Metadata[domain.MetaInsuranceType], insuranceType) {
			continue
		}
		if !allRegions && !strings.EqualFold(r.Metadata[domain.MetaState], region) {
			continue
		}
		filtered = append(filtered, r)
	}

	if len(filtered) == 0 {
		return results
	}
	return filtered
}
