// Package prepare turns raw market data tables into the ordered sequence of
// short natural-language documents the semantic index is built from. One
// document per aggregation group, each carrying insurance_type/state
// metadata for query-time filtering.
//
// Output order is deterministic: group keys are sorted lexicographically and
// every displayed number is rounded to two decimals, so identical input
// tables always produce byte-identical document sequences.
package prepare

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
)

// RateRecord is one row of the insurance rate table.
type RateRecord struct {
	Provider       string
	State          string
	InsuranceType  string
	MonthlyRate    float64
	Deductible     float64
	CoverageAmount float64
}

// ClaimRecord is one row of the claims table.
type ClaimRecord struct {
	Provider       string
	State          string
	InsuranceType  string
	ClaimAmount    float64
	SettlementDays float64
}

// RegulatoryFiling is one regulatory filing record.
type RegulatoryFiling struct {
	FilingID      string `json:"filing_id"`
	State         string `json:"state"`
	FilingDate    string `json:"filing_date"`
	EffectiveDate string `json:"effective_date"`
	FilingType    string `json:"filing_type"`
	Description   string `json:"description"`
	Impact        string `json:"impact"`
	Provider      string `json:"provider"`
}

// MultipleProviders is the sentinel provider value on filings that are not
// attributable to a single provider; the provider clause is omitted for it.
const MultipleProviders = "Multiple"

// groupKey identifies one (provider, state, insurance_type) aggregation group.
type groupKey struct {
	provider string
	state    string
	insType  string
}

func (k groupKey) less(o groupKey) bool {
	if k.provider != o.provider {
		return k.provider < o.provider
	}
	if k.state != o.state {
		return k.state < o.state
	}
	return k.insType < o.insType
}

// Documents renders all three data sources into retrievable text units:
// one per rate group, one per claims group, one market overview per
// (state, insurance_type) pair in the rate table, and one per filing.
func Documents(rates []RateRecord, claims []ClaimRecord, filings []RegulatoryFiling) []domain.Document {
	docs := make([]domain.Document, 0, len(rates)+len(claims)+len(filings))
	docs = append(docs, rateDocuments(rates)...)
	docs = append(docs, claimDocuments(claims)...)
	docs = append(docs, overviewDocuments(rates)...)
	docs = append(docs, filingDocuments(filings)...)
	return docs
}

type rateAgg struct {
	count         int
	sumRate       float64
	minRate       float64
	maxRate       float64
	sumDeductible float64
	sumCoverage   float64
}

func rateDocuments(rates []RateRecord) []domain.Document {
	groups := make(map[groupKey]*rateAgg)
	for _, r := range rates {
		key := groupKey{r.Provider, r.State, r.InsuranceType}
		agg, ok := groups[key]
		if !ok {
			agg = &rateAgg{minRate: r.MonthlyRate, maxRate: r.MonthlyRate}
			groups[key] = agg
		}
		agg.count++
		agg.sumRate += r.MonthlyRate
		agg.minRate = math.Min(agg.minRate, r.MonthlyRate)
		agg.maxRate = math.Max(agg.maxRate, r.MonthlyRate)
		agg.sumDeductible += r.Deductible
		agg.sumCoverage += r.CoverageAmount
	}

	docs := make([]domain.Document, 0, len(groups))
	for _, key := range sortedKeys(groups) {
		agg := groups[key]
		n := float64(agg.count)
		text := fmt.Sprintf(
			"%s offers %s insurance in %s with average monthly rate $%s, ranging from $%s to $%s. "+
				"Based on %d policies. Average deductible is $%s, average coverage amount is $%s.",
			key.provider, key.insType, key.state,
			money(agg.sumRate/n), money(agg.minRate), money(agg.maxRate),
			agg.count, money(agg.sumDeductible/n), money(agg.sumCoverage/n),
		)
		docs = append(docs, doc(text, key.insType, key.state))
	}
	return docs
}

type claimAgg struct {
	count         int
	sumAmount     float64
	maxAmount     float64
	sumSettlement float64
}

func claimDocuments(claims []ClaimRecord) []domain.Document {
	groups := make(map[groupKey]*claimAgg)
	for _, c := range claims {
		key := groupKey{c.Provider, c.State, c.InsuranceType}
		agg, ok := groups[key]
		if !ok {
			agg = &claimAgg{maxAmount: c.ClaimAmount}
			groups[key] = agg
		}
		agg.count++
		agg.sumAmount += c.ClaimAmount
		agg.maxAmount = math.Max(agg.maxAmount, c.ClaimAmount)
		agg.sumSettlement += c.SettlementDays
	}

	docs := make([]domain.Document, 0, len(groups))
	for _, key := range sortedKeys(groups) {
		agg := groups[key]
		n := float64(agg.count)
		text := fmt.Sprintf(
			"%s in %s for %s insurance has processed %d claims with average amount $%s. "+
				"Total claims value: $%s, largest claim: $%s. Average settlement time: %s days.",
			key.provider, key.state, key.insType,
			agg.count, money(agg.sumAmount/n),
			money(agg.sumAmount), money(agg.maxAmount), money(agg.sumSettlement/n),
		)
		docs = append(docs, doc(text, key.insType, key.state))
	}
	return docs
}

type overviewAgg struct {
	count     int
	sumRate   float64
	minRate   float64
	maxRate   float64
	providers map[string]struct{}
}

func overviewDocuments(rates []RateRecord) []domain.Document {
	type stateType struct{ state, insType string }
	groups := make(map[stateType]*overviewAgg)
	for _, r := range rates {
		key := stateType{r.State, r.InsuranceType}
		agg, ok := groups[key]
		if !ok {
			agg = &overviewAgg{
				minRate:   r.MonthlyRate,
				maxRate:   r.MonthlyRate,
				providers: make(map[string]struct{}),
			}
			groups[key] = agg
		}
		agg.count++
		agg.sumRate += r.MonthlyRate
		agg.minRate = math.Min(agg.minRate, r.MonthlyRate)
		agg.maxRate = math.Max(agg.maxRate, r.MonthlyRate)
		agg.providers[r.Provider] = struct{}{}
	}

	keys := make([]stateType, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].state != keys[j].state {
			return keys[i].state < keys[j].state
		}
		return keys[i].insType < keys[j].insType
	})

	docs := make([]domain.Document, 0, len(keys))
	for _, key := range keys {
		agg := groups[key]
		text := fmt.Sprintf(
			"In %s, %s insurance market has %d providers with average monthly rate of $%.2f. "+
				"Rates range from $%s to $%s.",
			key.state, key.insType, len(agg.providers),
			agg.sumRate/float64(agg.count), money(agg.minRate), money(agg.maxRate),
		)
		docs = append(docs, doc(text, key.insType, key.state))
	}
	return docs
}

func filingDocuments(filings []RegulatoryFiling) []domain.Document {
	docs := make([]domain.Document, 0, len(filings))
	for _, f := range filings {
		text := fmt.Sprintf(
			"Regulatory filing %s in %s: %s Filed on %s, effective %s. Impact: %s.",
			f.FilingID, f.State, f.Description, f.FilingDate, f.EffectiveDate, f.Impact,
		)
		if f.Provider != MultipleProviders {
			text += fmt.Sprintf(" Filed by %s.", f.Provider)
		}
		docs = append(docs, domain.Document{
			Text:     text,
			Metadata: map[string]string{domain.MetaState: f.State},
		})
	}
	return docs
}

func doc(text, insType, state string) domain.Document {
	return domain.Document{
		Text: text,
		Metadata: map[string]string{
			domain.MetaInsuranceType: insType,
			domain.MetaState:         state,
		},
	}
}

func sortedKeys[V any](m map[groupKey]V) []groupKey {
	keys := make([]groupKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

// money renders a dollar amount rounded to two decimals with trailing zeros
// trimmed ($187.5, not $187.50), matching the upstream data presentation.
func money(v float64) string {
	return strconv.FormatFloat(round2(v), 'f', -1, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
