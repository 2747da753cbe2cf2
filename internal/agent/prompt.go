package agent

import (
	"fmt"
	"strings"

	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
)

// DefaultContextDocs bounds how many retrieved documents are embedded into a
// prompt. The assembler itself never truncates; callers slice before
// assembly.
const DefaultContextDocs = 5

// DefaultSearchK is how many candidates the index is asked for before
// filtering narrows them down to DefaultContextDocs.
const DefaultSearchK = 10

// AssemblePrompt renders the template for the routed skill with the
// retrieved context. The skill set is closed; the switch is exhaustive over
// it, so there is no runtime name lookup to fail.
func AssemblePrompt(decision domain.RouteDecision, data string) string {
	switch decision.Skill {
	case domain.SkillAnalyzeTrends:
		return trendsPrompt(data, decision.Args[domain.ArgTimePeriod])
	case domain.SkillRecommend:
		return recommendPrompt(data, decision.Args[domain.ArgCurrentPosition])
	case domain.SkillBenchmarkRates:
		fallthrough
	default:
		return benchmarkPrompt(data,
			decision.Args[domain.ArgInsuranceType], decision.Args[domain.ArgRegion])
	}
}

// ContextBlock joins the top result texts into the prompt's data section.
func ContextBlock(results []domain.SearchResult, limit int) string {
	if limit > len(results) {
		limit = len(results)
	}
	texts := make([]string, 0, limit)
	for _, r := range results[:limit] {
		texts = append(texts, r.Text)
	}
	return strings.Join(texts, "\n")
}

func benchmarkPrompt(data, insuranceType, region string) string {
	insTypeTxt := insuranceType
	if strings.EqualFold(insuranceType, domain.FilterAll) {
		insTypeTxt = "all insurance types"
	}
	regionTxt := region
	if strings.EqualFold(region, domain.FilterAll) {
		regionTxt = "all states"
	}

	return fmt.Sprintf(`You are an expert insurance market analyst.

Insurance Type: %s
Region: %s

Data:
%s

Answer the user's query with a concise, easy-to-understand summary.
Include key stats, top providers and rates if relevant.
If the data spans multiple regions or products, mention any notable trends or differences.
Avoid rigid bullet formatting unless listing providers/rates is most relevant.

Example:
"The average auto insurance premium in California is $195. The three cheapest providers are Progressive ($185), Geico ($190), and StateFarm ($200). Progressive's rate is currently the lowest in the market."
`, insTypeTxt, regionTxt, data)
}

func trendsPrompt(data, timePeriod string) string {
	return fmt.Sprintf(`You are analyzing insurance market trends.

Historical Data:
%s

Summarize key claim or premium trends for the past %s in a concise and business-friendly manner.
Highlight only the most significant changes, actionable insights, or shifts.
Use percentages or numbers where possible, and keep each point clear and brief.

Example:
"Claims volume rose 12%% in the last 12 months, with a spike in Q2. Average premiums increased by 7%%. Progressive gained 2%% market share while losses rose for small providers."
`, data, timePeriod)
}

func recommendPrompt(data, currentPosition string) string {
	return fmt.Sprintf(`You are a pricing strategy advisor for insurance.

Market Data:
%s

Current market position: %s

Give 3-5 actionable recommendations for pricing strategy, each as a short and clear statement.
No lengthy rationale, just the action and a brief reason. Use numbers/targets if possible.

Example:
- Lower rates 5%% for low-risk zip codes to boost competitiveness.
- Increase premiums for high claim segments by 8%% to improve profitability.
- Add young driver discounts to expand market share.
`, data, currentPosition)
}
