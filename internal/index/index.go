// Package index implements the in-memory semantic retrieval index: documents
// paired 1:1 with L2-normalized embeddings, exact brute-force inner-product
// search, and two-artifact persistence. Linear scan keeps similarity exact;
// the corpus here is a few hundred aggregated documents, so no approximate
// index is warranted.
package index

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cvk03/-Market-intelligence-agent/internal/domain"
	"github.com/cvk03/-Market-intelligence-agent/internal/index/codec"
)

// Artifact names inside the persisted index directory. Both are required to
// reload.
const (
	VectorsFile   = "vectors.bin"
	DocumentsFile = "documents.db"
)

// Index holds the corpus and its normalized embeddings. Many concurrent
// Search calls are safe; Build and Load take the write lock and replace all
// state atomically.
type Index struct {
	embed  domain.Embedder
	logger *zap.Logger

	mu      sync.RWMutex
	dim     int
	vectors [][]float32
	docs    []domain.Document
}

// New creates an empty index bound to an embedding provider.
func New(embed domain.Embedder, logger *zap.Logger) *Index {
	return &Index{embed: embed, logger: logger}
}

// Size returns the current corpus size.
func (ix *Index) Size() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// Dim returns the embedding dimension, 0 for an empty index.
func (ix *Index) Dim() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Build encodes every document text, L2-normalizes the vectors and replaces
// any previously indexed corpus atomically. An empty document set fails with
// domain.ErrEmptyCorpus; provider output with inconsistent dimensions fails
// with domain.ErrDimensionMismatch.
func (ix *Index) Build(ctx context.Context, docs []domain.Document) error {
	if len(docs) == 0 {
		return domain.ErrEmptyCorpus
	}

	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Text
	}

	result, err := ix.embedAll(ctx, texts)
	if err != nil {
		return fmt.Errorf("encode corpus: %w", err)
	}
	if len(result.Embeddings) != len(docs) {
		return fmt.Errorf("provider returned %d vectors for %d texts: %w",
			len(result.Embeddings), len(docs), domain.ErrEmbeddingProvider)
	}

	dim := len(result.Embeddings[0])
	vectors := make([][]float32, len(result.Embeddings))
	for i, vec := range result.Embeddings {
		if len(vec) != dim {
			return fmt.Errorf("vector %d has dim %d, expected %d: %w",
				i, len(vec), dim, domain.ErrDimensionMismatch)
		}
		vectors[i] = normalize(vec)
	}

	stored := make([]domain.Document, len(docs))
	copy(stored, docs)

	ix.mu.Lock()
	ix.dim = dim
	ix.vectors = vectors
	ix.docs = stored
	ix.mu.Unlock()

	ix.logger.Info("Index built",
		zap.Int("documents", len(stored)),
		zap.Int("dim", dim),
		zap.Int("tokens", result.TotalTokens),
	)
	return nil
}

// Search encodes the query and returns the top k documents by cosine
// similarity (inner product of unit vectors), descending. Ties break toward
// the lower insertion index, k is clamped to the corpus size and each result
// carries its 1-based rank. An empty index yields an empty result set, not
// an error.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if ix.Size() == 0 || k <= 0 {
		return nil, nil
	}

	res, err := ix.embed.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}
	qvec := normalize(res.Embedding)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.docs) == 0 {
		return nil, nil
	}
	if len(qvec) != ix.dim {
		return nil, fmt.Errorf("query dim %d, index dim %d: %w",
			len(qvec), ix.dim, domain.ErrDimensionMismatch)
	}

	order := make([]int, len(ix.vectors))
	scores := make([]float64, len(ix.vectors))
	for i, vec := range ix.vectors {
		order[i] = i
		scores[i] = dot(qvec, vec)
	}
	sort.Slice(order, func(a, b int) bool {
		if scores[order[a]] != scores[order[b]] {
			return scores[order[a]] > scores[order[b]]
		}
		return order[a] < order[b]
	})

	if k > len(order) {
		k = len(order)
	}

	results := make([]domain.SearchResult, k)
	for rank, idx := range order[:k] {
		results[rank] = domain.SearchResult{
			Text:     ix.docs[idx].Text,
			Score:    scores[idx],
			Metadata: ix.docs[idx].Metadata,
			Rank:     rank + 1,
		}
	}
	return results, nil
}

// Save persists the vectors and the document bundle into dir. The two
// artifacts form one logical unit; Load refuses to restore from a partial
// or disagreeing pair.
func (ix *Index) Save(dir string) error {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if len(ix.docs) == 0 {
		return domain.ErrEmptyCorpus
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	if err := codec.WriteVectors(filepath.Join(dir, VectorsFile), ix.dim, ix.vectors); err != nil {
		return fmt.Errorf("save index: %w", err)
	}
	if err := codec.WriteDocuments(filepath.Join(dir, DocumentsFile), ix.dim, ix.docs); err != nil {
		return fmt.Errorf("save index: %w", err)
	}

	ix.logger.Info("Index saved", zap.String("dir", dir), zap.Int("documents", len(ix.docs)))
	return nil
}

// Load restores a persisted index into this instance, replacing any current
// state. The restored corpus serves Search without re-encoding. Missing
// artifacts fail with domain.ErrNotFound, artifacts that disagree on corpus
// size or dimension with domain.ErrCorruptIndex.
func (ix *Index) Load(dir string) error {
	dim, vectors, err := codec.ReadVectors(filepath.Join(dir, VectorsFile))
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	docDim, docs, err := codec.ReadDocuments(filepath.Join(dir, DocumentsFile))
	if err != nil {
		return fmt.Errorf("load index: %w", err)
	}

	if len(docs) != len(vectors) {
		return fmt.Errorf("load index: %d documents for %d vectors: %w",
			len(docs), len(vectors), domain.ErrCorruptIndex)
	}
	if docDim != dim {
		return fmt.Errorf("load index: bundle dim %d, vector dim %d: %w",
			docDim, dim, domain.ErrCorruptIndex)
	}

	ix.mu.Lock()
	ix.dim = dim
	ix.vectors = vectors
	ix.docs = docs
	ix.mu.Unlock()

	ix.logger.Info("Index loaded", zap.String("dir", dir), zap.Int("documents", len(docs)))
	return nil
}

func (ix *Index) embedAll(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if batch, ok := ix.embed.(domain.BatchEmbedder); ok {
		return batch.BatchEmbed(ctx, texts)
	}
	return domain.BatchFallback(ctx, ix.embed, texts)
}

// normalize returns the L2-normalized copy of v. A zero vector is returned
// unchanged rather than divided by zero.
func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
