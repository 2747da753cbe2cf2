package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
)

func TestAnalyze_FullPipeline(t *testing.T) {
	search := &mockSearcher{results: resultsOf("doc1", "doc2", "doc3")}
	gen := &mockGenerator{answer: "the analysis"}
	svc := newTestService(t, search, gen)

	analysis, err := svc.Analyze(context.Background(), "Compare auto insurance rates", "auto", "CA")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if analysis.Skill != domain.SkillBenchmarkRates {
		t.Errorf("expected benchmark skill, got %s", analysis.Skill)
	}
	if analysis.Answer != "the analysis" {
		t.Errorf("unexpected answer %q", analysis.Answer)
	}
	if analysis.Sources != 3 {
		t.Errorf("expected 3 context documents, got %d", analysis.Sources)
	}
	if search.lastK != DefaultSearchK {
		t.Errorf("expected search k=%d, got %d", DefaultSearchK, search.lastK)
	}
	if !strings.Contains(gen.lastPrompt, "doc1") || !strings.Contains(gen.lastPrompt, "doc3") {
		t.Errorf("prompt missing retrieved context:\n%s", gen.lastPrompt)
	}
}

func TestAnalyze_ContextBoundedByOptions(t *testing.T) {
	search := &mockSearcher{results: resultsOf("a", "b", "c", "d", "e", "f", "g")}
	gen := &mockGenerator{answer: "ok"}
	svc := newTestService(t, search, gen)

	analysis, err := svc.Analyze(context.Background(), "compare rates", "all", "all")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if analysis.Sources != DefaultContextDocs {
		t.Errorf("expected %d context documents, got %d", DefaultContextDocs, analysis.Sources)
	}
	if strings.Contains(gen.lastPrompt, "\nf\n") || strings.Contains(gen.lastPrompt, "\ng\n") {
		t.Errorf("prompt must only embed the top %d results:\n%s", DefaultContextDocs, gen.lastPrompt)
	}
}

func TestAnalyze_NoResultsSkipsGeneration(t *testing.T) {
	search := &mockSearcher{}
	gen := &mockGenerator{answer: "should not be called"}
	svc := newTestService(t, search, gen)

	analysis, err := svc.Analyze(context.Background(), "compare rates", "auto", "CA")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if gen.called {
		t.Error("gateway must not be called without retrieved context")
	}
	if analysis.Answer != NoDataAnswer {
		t.Errorf("expected the no-data answer, got %q", analysis.Answer)
	}
}

func TestAnalyze_SearchFailure(t *testing.T) {
	search := &mockSearcher{err: domain.ErrDimensionMismatch}
	gen := &mockGenerator{}
	svc := newTestService(t, search, gen)

	_, err := svc.Analyze(context.Background(), "compare rates", "auto", "CA")
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected dimension mismatch to propagate, got %v", err)
	}
	if gen.called {
		t.Error("gateway must not be called after a failed search")
	}
}

func TestAnalyze_GatewayFailurePropagatesTyped(t *testing.T) {
	search := &mockSearcher{results: resultsOf("doc")}
	gen := &mockGenerator{
		err: domain.NewGenerationError(domain.GenerationRejected, errors.New("content filtered")),
	}
	svc := newTestService(t, search, gen)

	_, err := svc.Analyze(context.Background(), "compare rates", "all", "all")
	if !errors.Is(err, domain.ErrGeneration) {
		t.Fatalf("expected typed generation error, got %v", err)
	}

	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected *GenerationError in chain, got %v", err)
	}
	if genErr.Kind != domain.GenerationRejected || genErr.Retryable() {
		t.Errorf("expected non-retryable rejection, got kind=%s", genErr.Kind)
	}
}

func TestAnalyze_FilterFallbackStillAnswers(t *testing.T) {
	// Retrieved documents are all outside the requested segment; the filter
	// falls back to them and the pipeline proceeds.
	search := &mockSearcher{results: []domain.SearchResult{
		{Text: "auto doc", Metadata: map[string]string{domain.MetaInsuranceType: "auto", domain.MetaState: "CA"}, Rank: 1},
	}}
	gen := &mockGenerator{answer: "broad answer"}
	svc := newTestService(t, search, gen)

	analysis, err := svc.Analyze(context.Background(), "compare rates", "life", "all")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if analysis.Answer != "broad answer" {
		t.Errorf("expected generated answer despite fallback, got %q", analysis.Answer)
	}
	if !strings.Contains(gen.lastPrompt, "auto doc") {
		t.Errorf("fallback context missing from prompt:\n%s", gen.lastPrompt)
	}
}
