package http

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/cvk03/-Market-intelligence-agent/internal/agent"
	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
)

type mockAnalyzer struct {
	analysis agent.Analysis
	err      error
	lastType string
	lastReg  string
}

func (m *mockAnalyzer) Analyze(_ context.Context, query, insuranceType, region string) (agent.Analysis, error) {
	m.lastType = insuranceType
	m.lastReg = region
	if m.err != nil {
		return agent.Analysis{}, m.err
	}
	a := m.analysis
	a.Query = query
	return a, nil
}

type mockRetriever struct {
	results []domain.SearchResult
	err     error
	size    int
	lastK   int
}

func (m *mockRetriever) Search(_ context.Context, _ string, k int) ([]domain.SearchResult, error) {
	m.lastK = k
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockRetriever) Size() int { return m.size }

func newTestServer(t *testing.T, analyzer *mockAnalyzer, retriever *mockRetriever) *Server {
	t.Helper()
	return NewServer(analyzer, retriever, 10, zap.NewNop())
}
