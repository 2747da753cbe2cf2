package agent

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
)

// --- Mocks ---

type mockSearcher struct {
	results []domain.SearchResult
	err     error
	lastK   int
	called  bool
}

func (m *mockSearcher) Search(_ context.Context, _ string, k int) ([]domain.SearchResult, error) {
	m.called = true
	m.lastK = k
	return m.results, m.err
}

type mockGenerator struct {
	answer     string
	err        error
	lastPrompt string
	called     bool
}

func (m *mockGenerator) Generate(_ context.Context, prompt string) (string, error) {
	m.called = true
	m.lastPrompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.answer, nil
}

func newTestService(t *testing.T, search *mockSearcher, gen *mockGenerator) *Service {
	t.Helper()
	return New(search, gen, DefaultOptions(), zap.NewNop())
}

func resultsOf(texts ...string) []domain.SearchResult {
	results := make([]domain.SearchResult, len(texts))
	for i, text := range texts {
		results[i] = domain.SearchResult{Text: text, Rank: i + 1}
	}
	return results
}
