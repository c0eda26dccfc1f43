package document

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Embedder computes embedding vectors for a batch of texts.
// Implemented by providers.OpenAIEmbedder; tests use a local stub.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// ScoredChunk is a search hit with the raw similarity score reported by
// the index. No ordering guarantee beyond "higher is more similar".
type ScoredChunk struct {
	Chunk Chunk
	Score float64
}

// Searcher is the narrow vector-search contract the retrieval gateway
// depends on. The in-memory Index satisfies it; a remote vector store
// could be substituted without touching the gateway.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]ScoredChunk, error)
}

// Index is a brute-force cosine-similarity vector index over document
// chunks. Vectors are L2-normalized at insert so search is a dot product.
type Index struct {
	embedder Embedder

	mu      sync.RWMutex
	chunks  []Chunk
	vectors [][]float64
}

// NewIndex creates an empty index backed by the given embedder.
func NewIndex(embedder Embedder) *Index {
	return &Index{embedder: embedder}
}

// Add embeds and stores the given chunks.
func (ix *Index) Add(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed %d chunks: %w", len(chunks), err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	for i := range vectors {
		normalizeVec(vectors[i])
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.chunks = append(ix.chunks, chunks...)
	ix.vectors = append(ix.vectors, vectors...)
	return nil
}

// Replace atomically swaps the index contents for the given chunks.
// On embedding failure the previous contents are kept.
func (ix *Index) Replace(ctx context.Context, chunks []Chunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	var vectors [][]float64
	if len(chunks) > 0 {
		var err error
		vectors, err = ix.embedder.Embed(ctx, texts)
		if err != nil {
			return fmt.Errorf("failed to embed %d chunks: %w", len(chunks), err)
		}
		if len(vectors) != len(chunks) {
			return fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
		}
		for i := range vectors {
			normalizeVec(vectors[i])
		}
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.chunks = append([]Chunk(nil), chunks...)
	ix.vectors = vectors
	return nil
}

// Search returns the top-k chunks by cosine similarity to the query.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		k = 5
	}
	qvs, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	qv := qvs[0]
	normalizeVec(qv)

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	hits := make([]ScoredChunk, 0, len(ix.chunks))
	for i := range ix.chunks {
		hits = append(hits, ScoredChunk{Chunk: ix.chunks[i], Score: dot(ix.vectors[i], qv)})
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.chunks)
}

// Clear drops all indexed chunks.
func (ix *Index) Clear() {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.chunks = nil
	ix.vectors = nil
}

func dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

func normalizeVec(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] *= inv
	}
}

var _ Searcher = (*Index)(nil)
