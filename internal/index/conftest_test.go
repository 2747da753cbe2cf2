package index

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
)

// stubEmbedder returns fixed vectors per text. Deterministic for identical
// input, like a real provider.
type stubEmbedder struct {
	vecs     map[string][]float32
	fallback []float32
	err      error
	calls    int
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	s.calls++
	if s.err != nil {
		return domain.EmbeddingResult{}, s.err
	}
	if vec, ok := s.vecs[text]; ok {
		return domain.EmbeddingResult{Embedding: vec, TotalTokens: 1}, nil
	}
	return domain.EmbeddingResult{Embedding: s.fallback, TotalTokens: 1}, nil
}

func newStubEmbedder() *stubEmbedder {
	return &stubEmbedder{
		vecs:     make(map[string][]float32),
		fallback: []float32{0, 0, 1},
	}
}

func newTestIndex(t *testing.T) (*Index, *stubEmbedder) {
	t.Helper()
	emb := newStubEmbedder()
	return New(emb, zap.NewNop()), emb
}

func docsOf(texts ...string) []domain.Document {
	docs := make([]domain.Document, len(texts))
	for i, text := range texts {
		docs[i] = domain.Document{Text: text}
	}
	return docs
}
