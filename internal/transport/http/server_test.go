package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/cvk03/-Market-intelligence-agent/internal/agent"
	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
	"github.com/cvk03/-Market-intelligence-agent/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.Register()
	os.Exit(m.Run())
}

func doRequest(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleQuery(t *testing.T) {
	analyzer := &mockAnalyzer{analysis: agent.Analysis{
		Skill:   domain.SkillBenchmarkRates,
		Answer:  "Rates look competitive.",
		Sources: 3,
	}}
	s := newTestServer(t, analyzer, &mockRetriever{size: 5})

	rec := doRequest(t, s, http.MethodPost, "/v1/query",
		`{"query":"compare auto rates","insurance_type":"auto","state":"CA"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp queryResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Skill != "benchmark_rates" {
		t.Errorf("unexpected skill: %q", resp.Skill)
	}
	if resp.Answer != "Rates look competitive." {
		t.Errorf("unexpected answer: %q", resp.Answer)
	}
	if resp.Sources != 3 {
		t.Errorf("unexpected sources: %d", resp.Sources)
	}
	if analyzer.lastType != "auto" || analyzer.lastReg != "CA" {
		t.Errorf("selectors not forwarded: %q %q", analyzer.lastType, analyzer.lastReg)
	}
}

func TestHandleQuery_EmptySelectorsMeanAll(t *testing.T) {
	analyzer := &mockAnalyzer{analysis: agent.Analysis{Skill: domain.SkillRecommend}}
	s := newTestServer(t, analyzer, &mockRetriever{})

	rec := doRequest(t, s, http.MethodPost, "/v1/query", `{"query":"what should we do"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if analyzer.lastType != domain.FilterAll || analyzer.lastReg != domain.FilterAll {
		t.Errorf("expected all sentinels, got %q %q", analyzer.lastType, analyzer.lastReg)
	}
}

func TestHandleQuery_MissingQuery(t *testing.T) {
	s := newTestServer(t, &mockAnalyzer{}, &mockRetriever{})

	rec := doRequest(t, s, http.MethodPost, "/v1/query", `{"insurance_type":"auto"}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleQuery_InvalidBody(t *testing.T) {
	s := newTestServer(t, &mockAnalyzer{}, &mockRetriever{})

	rec := doRequest(t, s, http.MethodPost, "/v1/query", `{not json`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandleQuery_GenerationRejected(t *testing.T) {
	analyzer := &mockAnalyzer{
		err: domain.NewGenerationError(domain.GenerationRejected, errors.New("blocked")),
	}
	s := newTestServer(t, analyzer, &mockRetriever{})

	rec := doRequest(t, s, http.MethodPost, "/v1/query", `{"query":"q"}`)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Code != "generation_rejected" {
		t.Errorf("unexpected code: %q", resp.Code)
	}
}

func TestHandleQuery_GenerationTransient(t *testing.T) {
	analyzer := &mockAnalyzer{
		err: domain.NewGenerationError(domain.GenerationTransient, errors.New("timeout")),
	}
	s := newTestServer(t, analyzer, &mockRetriever{})

	rec := doRequest(t, s, http.MethodPost, "/v1/query", `{"query":"q"}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestHandleQuery_EmbeddingProviderError(t *testing.T) {
	analyzer := &mockAnalyzer{
		err: fmt.Errorf("retrieve context: %w", domain.ErrEmbeddingProvider),
	}
	s := newTestServer(t, analyzer, &mockRetriever{})

	rec := doRequest(t, s, http.MethodPost, "/v1/query", `{"query":"q"}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestHandleQuery_UnknownErrorIsInternal(t *testing.T) {
	analyzer := &mockAnalyzer{err: errors.New("disk on fire")}
	s := newTestServer(t, analyzer, &mockRetriever{})

	rec := doRequest(t, s, http.MethodPost, "/v1/query", `{"query":"q"}`)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}

	var resp errorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if strings.Contains(resp.Message, "disk") {
		t.Errorf("internal detail leaked to client: %q", resp.Message)
	}
}

func TestHandleSearch(t *testing.T) {
	retriever := &mockRetriever{results: []domain.SearchResult{
		{Text: "doc a", Score: 0.9, Rank: 1,
			Metadata: map[string]string{domain.MetaInsuranceType: "auto", domain.MetaState: "CA"}},
		{Text: "doc b", Score: 0.8, Rank: 2,
			Metadata: map[string]string{domain.MetaInsuranceType: "home", domain.MetaState: "NY"}},
	}}
	s := newTestServer(t, &mockAnalyzer{}, retriever)

	rec := doRequest(t, s, http.MethodPost, "/v1/search",
		`{"query":"rates","k":2,"insurance_type":"auto","state":"CA"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if retriever.lastK != 2 {
		t.Errorf("expected k=2 forwarded, got %d", retriever.lastK)
	}

	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || resp.Items[0].Text != "doc a" {
		t.Errorf("expected narrowed results, got %+v", resp)
	}
}

func TestHandleSearch_DefaultK(t *testing.T) {
	retriever := &mockRetriever{}
	s := newTestServer(t, &mockAnalyzer{}, retriever)

	rec := doRequest(t, s, http.MethodPost, "/v1/search", `{"query":"rates"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if retriever.lastK != 10 {
		t.Errorf("expected configured k=10, got %d", retriever.lastK)
	}

	var resp searchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Items == nil {
		t.Error("items must serialize as an empty array, not null")
	}
}

func TestHandleSearch_RetrievalFailure(t *testing.T) {
	retriever := &mockRetriever{
		err: fmt.Errorf("embed query: %w", domain.ErrEmbeddingProvider),
	}
	s := newTestServer(t, &mockAnalyzer{}, retriever)

	rec := doRequest(t, s, http.MethodPost, "/v1/search", `{"query":"rates"}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, &mockAnalyzer{}, &mockRetriever{size: 42})

	rec := doRequest(t, s, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp healthResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != "ok" || resp.Documents != 42 {
		t.Errorf("unexpected health report: %+v", resp)
	}
}

func TestHandleHealth_EmptyIndexIsDegraded(t *testing.T) {
	s := newTestServer(t, &mockAnalyzer{}, &mockRetriever{size: 0})

	rec := doRequest(t, s, http.MethodGet, "/healthz", "")

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRouter_RequestIDHeader(t *testing.T) {
	s := newTestServer(t, &mockAnalyzer{}, &mockRetriever{size: 1})

	rec := doRequest(t, s, http.MethodGet, "/healthz", "")

	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID response header")
	}
}
