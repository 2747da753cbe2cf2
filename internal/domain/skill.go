package domain

// Skill is one of the fixed prompt-construction strategies the router
// dispatches to. Closed set: adding a skill means extending the switch in
// the prompt assembler, which the compiler enforces via String().
type Skill int

const (
	// SkillBenchmarkRates compares rates across providers.
	SkillBenchmarkRates Skill = iota
	// SkillAnalyzeTrends summarizes claim and premium movements.
	SkillAnalyzeTrends
	// SkillRecommend produces pricing strategy recommendations.
	SkillRecommend
)

// String returns the stable wire name of the skill.
func (s Skill) String() string {
	switch s {
	case SkillBenchmarkRates:
		return "benchmark_rates"
	case SkillAnalyzeTrends:
		return "analyze_trends"
	case SkillRecommend:
		return "generate_recommendations"
	default:
		return "unknown"
	}
}

// Argument names carried by RouteDecision.
const (
	ArgInsuranceType   = "insurance_type"
	ArgRegion          = "region"
	ArgTimePeriod      = "time_period"
	ArgCurrentPosition = "current_position"
)

// RouteDecision is the router's verdict for one query: which skill renders
// the prompt and with which parameters. Derived purely from the query text.
type RouteDecision struct {
	Skill Skill
	Args  map[string]string
}
