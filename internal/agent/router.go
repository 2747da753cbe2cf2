package agent

import (
	"strings"
	"unicode"

	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
)

// Default route arguments.
const (
	DefaultTimePeriod     = "12 months"
	DefaultMarketPosition = "mid-market"
)

// Keyword sets tested in fixed priority order; first match wins. A keyword
// matches a whole query word or its inflection ("rates", "trends"), never a
// fragment inside an unrelated word ("strategy" does not hit "rate").
var (
	benchmarkKeywords = []string{
		"benchmark", "compare", "rate", "cheapest", "lowest", "provider", "price", "premium",
	}
	trendKeywords = []string{
		"trend", "pattern", "claim", "change", "increase", "decrease",
	}
)

// Route classifies a free-text query into exactly one skill. Pure function
// of the query text: same query, same decision, every time. Queries matching
// neither keyword set fall through to the recommendation skill.
func Route(query, insuranceType, region string) domain.RouteDecision {
	words := queryWords(query)

	if containsAny(words, benchmarkKeywords) {
		return domain.RouteDecision{
			Skill: domain.SkillBenchmarkRates,
			Args: map[string]string{
				domain.ArgInsuranceType: insuranceType,
				domain.ArgRegion:        region,
			},
		}
	}

	if containsAny(words, trendKeywords) {
		return domain.RouteDecision{
			Skill: domain.SkillAnalyzeTrends,
			Args: map[string]string{
				domain.ArgTimePeriod: DefaultTimePeriod,
			},
		}
	}

	return domain.RouteDecision{
		Skill: domain.SkillRecommend,
		Args: map[string]string{
			domain.ArgCurrentPosition: DefaultMarketPosition,
		},
	}
}

func queryWords(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r)
	})
}

func containsAny(words []string, keywords []string) bool {
	for _, w := range words {
		for _, kw := range keywords {
			if strings.HasPrefix(w, kw) {
				return true
			}
		}
	}
	return false
}
