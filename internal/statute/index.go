package statute

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
)

// Embedder computes embedding vectors for a batch of texts.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// ScoredArticle is a search hit with its raw cosine similarity.
type ScoredArticle struct {
	Article Article
	Score   float64
}

// Index is a brute-force cosine-similarity index over statute articles.
// It grows as laws are fetched; articles are never evicted within a
// process, matching the cache.
type Index struct {
	embedder Embedder

	mu       sync.RWMutex
	articles []Article
	vectors  [][]float64
	seen     map[string]bool
}

// NewIndex creates an empty statute index backed by the given embedder.
func NewIndex(embedder Embedder) *Index {
	return &Index{embedder: embedder, seen: make(map[string]bool)}
}

// Add embeds and indexes articles, skipping any already indexed.
func (ix *Index) Add(ctx context.Context, articles []Article) error {
	ix.mu.RLock()
	fresh := make([]Article, 0, len(articles))
	for _, a := range articles {
		if !ix.seen[a.Key()] {
			fresh = append(fresh, a)
		}
	}
	ix.mu.RUnlock()
	if len(fresh) == 0 {
		return nil
	}

	texts := make([]string, len(fresh))
	for i, a := range fresh {
		texts[i] = a.Title + "\n" + a.Text
	}
	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed %d articles: %w", len(fresh), err)
	}
	if len(vectors) != len(fresh) {
		return fmt.Errorf("embedder returned %d vectors for %d articles", len(vectors), len(fresh))
	}
	for i := range vectors {
		normalizeVec(vectors[i])
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()
	for i, a := range fresh {
		if ix.seen[a.Key()] {
			continue
		}
		ix.seen[a.Key()] = true
		ix.articles = append(ix.articles, a)
		ix.vectors = append(ix.vectors, vectors[i])
	}
	return nil
}

// Search returns the top-k articles by cosine similarity to the query.
func (ix *Index) Search(ctx context.Context, query string, k int) ([]ScoredArticle, error) {
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

	hits := make([]ScoredArticle, 0, len(ix.articles))
	for i := range ix.articles {
		hits = append(hits, ScoredArticle{Article: ix.articles[i], Score: dot(ix.vectors[i], qv)})
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].Score > hits[b].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed articles.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.articles)
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
