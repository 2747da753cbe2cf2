// Package agent routes market intelligence queries to prompt-construction
// skills and orchestrates retrieval, prompt assembly and text generation.
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
	"github.com/cvk03/-Market-intelligence-agent/internal/metrics"
)

// NoDataAnswer is returned when retrieval produced nothing to analyze; the
// generation gateway is not called in that case.
const NoDataAnswer = "No relevant data found. Try a different question or selection."

// Searcher is the retrieval contract the service consumes.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error)
}

// Options configures the analysis pipeline.
type Options struct {
	SearchK     int // candidates fetched from the index per query
	ContextDocs int // top results embedded into the prompt
}

// DefaultOptions returns the default pipeline bounds.
func DefaultOptions() Options {
	return Options{SearchK: DefaultSearchK, ContextDocs: DefaultContextDocs}
}

// Analysis is the outcome of one analyzed query.
type Analysis struct {
	Skill   domain.Skill `json:"-"`
	Query   string       `json:"query"`
	Answer  string       `json:"answer"`
	Sources int          `json:"sources"` // documents embedded into the prompt
}

// Service wires the semantic index, the query router and the generation
// gateway into the query-time pipeline.
type Service struct {
	search Searcher
	gen    domain.Generator
	opts   Options
	logger *zap.Logger
}

// New creates the analysis service. Zero-valued opts fields fall back to the
// defaults.
func New(search Searcher, gen domain.Generator, opts Options, logger *zap.Logger) *Service {
	if opts.SearchK <= 0 {
		opts.SearchK = DefaultSearchK
	}
	if opts.ContextDocs <= 0 {
		opts.ContextDocs = DefaultContextDocs
	}
	return &Service{search: search, gen: gen, opts: opts, logger: logger}
}

// Analyze retrieves relevant documents for the query, narrows them by the
// selectors, assembles the routed skill's prompt and calls the generation
// gateway. Gateway failures come back as *domain.GenerationError for the
// transport boundary to translate; they never panic.
func (s *Service) Analyze(ctx context.Context, query, insuranceType, region string) (Analysis, error) {
	decision := Route(query, insuranceType, region)
	metrics.QueriesTotal.WithLabelValues(decision.Skill.String()).Inc()

	results, err := s.search.Search(ctx, query, s.opts.SearchK)
	if err != nil {
		return Analysis{}, fmt.Errorf("retrieve context: %w", err)
	}

	narrowed := Narrow(results, insuranceType, region)
	if len(narrowed) == 0 {
		s.logger.Info("No retrieval results for query",
			zap.String("skill", decision.Skill.String()),
			zap.String("insurance_type", insuranceType),
			zap.String("region", region),
		)
		return Analysis{Skill: decision.Skill, Query: query, Answer: NoDataAnswer}, nil
	}

	contextDocs := s.opts.ContextDocs
	if contextDocs > len(narrowed) {
		contextDocs = len(narrowed)
	}
	prompt := AssemblePrompt(decision, ContextBlock(narrowed, contextDocs))

	answer, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return Analysis{}, fmt.Errorf("generate analysis: %w", err)
	}

	s.logger.Info("Query analyzed",
		zap.String("skill", decision.Skill.String()),
		zap.Int("retrieved", len(results)),
		zap.Int("context_docs", contextDocs),
	)

	return Analysis{
		Skill:   decision.Skill,
		Query:   query,
		Answer:  answer,
		Sources: contextDocs,
	}, nil
}
