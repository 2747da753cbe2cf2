package domain

// Metadata keys attached by the document preparer. The model tolerates
// arbitrary or missing keys; these are the ones filtering understands.
const (
	MetaInsuranceType = "insurance_type"
	MetaState         = "state"
)

// FilterAll is the selector sentinel meaning "no restriction".
const FilterAll = "all"

// Document is one retrievable text unit with optional structured metadata.
// Immutable once indexed; its position in the corpus is its identity.
type Document struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchResult is a single ranked hit. Ephemeral, produced per query.
type SearchResult struct {
	Text     string            `json:"text"`
	Score    float64           `json:"score"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Rank     int               `json:"rank"` // 1-based position in the returned ordering
}
