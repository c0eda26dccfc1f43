package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/yaktalk/yaktalk/internal/document"
	"github.com/yaktalk/yaktalk/internal/statute"
	"github.com/yaktalk/yaktalk/internal/textnorm"
)

const (
	// DefaultTopK is how many hits each source query keeps.
	DefaultTopK = 5

	// DefaultFallbackThreshold: when a statute search returns fewer hits
	// clearing the relevance floor than this, the gateway fetches the
	// relevant laws from the API and searches again.
	DefaultFallbackThreshold = 2

	// DefaultMinScore is the relevance floor: statute hits scoring below
	// it neither count toward the fallback gate nor enter the evidence.
	DefaultMinScore = 0.25

	// DefaultDedupeThreshold: hits whose normalized text similarity
	// exceeds this are collapsed, keeping the higher-scoring one.
	DefaultDedupeThreshold = 0.95
)

// StatuteSource fetches statute articles on cache miss. Implemented by
// statute.Client.
type StatuteSource interface {
	FetchArticles(ctx context.Context, lawName string) ([]statute.Article, error)
}

// GatewayConfig tunes the gateway; zero values take the defaults above.
type GatewayConfig struct {
	TopK              int
	FallbackThreshold int
	MinScore          float64
	DedupeThreshold   float64
	// DefaultLaws are fetched when a statute query names no law and none
	// is recognized in the query text.
	DefaultLaws []string
	Logger      *slog.Logger
}

// Gateway serves evidence queries over session documents and the
// process-wide statute corpus. Document stores are per session, so the
// searcher is passed per query.
type Gateway struct {
	statuteIndex *statute.Index
	cache        *statute.Cache
	laws         StatuteSource

	topK              int
	fallbackThreshold int
	minScore          float64
	dedupeThreshold   float64
	defaultLaws       []string
	logger            *slog.Logger
}

// NewGateway wires a gateway over the given sources. laws may be nil, in
// which case statute queries serve from the cache and index only.
func NewGateway(statuteIndex *statute.Index, cache *statute.Cache, laws StatuteSource, cfg GatewayConfig) *Gateway {
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	fallback := cfg.FallbackThreshold
	if fallback <= 0 {
		fallback = DefaultFallbackThreshold
	}
	minScore := cfg.MinScore
	if minScore <= 0 || minScore > 1 {
		minScore = DefaultMinScore
	}
	dedupe := cfg.DedupeThreshold
	if dedupe <= 0 || dedupe > 1 {
		dedupe = DefaultDedupeThreshold
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defaultLaws := cfg.DefaultLaws
	if len(defaultLaws) == 0 {
		defaultLaws = []string{"민법"}
	}
	return &Gateway{
		statuteIndex:      statuteIndex,
		cache:             cache,
		laws:              laws,
		topK:              topK,
		fallbackThreshold: fallback,
		minScore:          minScore,
		dedupeThreshold:   dedupe,
		defaultLaws:       defaultLaws,
		logger:            logger,
	}
}

// QueryDocument searches a session's document through its searcher.
// Returns deduplicated, rescaled evidence ordered by score.
func (g *Gateway) QueryDocument(ctx context.Context, docs document.Searcher, query string) ([]EvidenceItem, error) {
	if docs == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	hits, err := docs.Search(ctx, query, g.topK)
	if err != nil {
		return nil, fmt.Errorf("document search: %w", err)
	}
	items := make([]EvidenceItem, 0, len(hits))
	for i := range hits {
		chunk := hits[i].Chunk
		items = append(items, EvidenceItem{
			Kind:     KindDocument,
			RawScore: hits[i].Score,
			Chunk:    &chunk,
		})
	}
	items = g.dedupe(items)
	rescale(items)
	return items, nil
}

// QueryStatutes searches the statute index. When fewer hits clear the
// relevance floor than the fallback threshold, the gateway resolves
// which laws the query concerns, fetches their articles through the API
// into the cache and index, and searches again. Articles the query
// references explicitly (제N조) are resolved from the cache and pinned
// ahead of the semantic hits. A fetch failure degrades to whatever the
// index already holds.
func (g *Gateway) QueryStatutes(ctx context.Context, query string, lawHints []string) ([]EvidenceItem, error) {
	names := resolveLawNames(query, lawHints, g.defaultLaws)

	hits, err := g.statuteIndex.Search(ctx, query, g.topK)
	if err != nil {
		return nil, fmt.Errorf("statute search: %w", err)
	}

	if g.countStrong(hits) < g.fallbackThreshold && g.laws != nil {
		if fetched := g.fetchMissingLaws(ctx, names); fetched {
			hits, err = g.statuteIndex.Search(ctx, query, g.topK)
			if err != nil {
				return nil, fmt.Errorf("statute re-search: %w", err)
			}
		}
	}

	// Hits below the floor are noise top-k let through; rescale would
	// inflate them, so they are dropped.
	maxRaw := 0.0
	strong := hits[:0]
	for _, h := range hits {
		if h.Score < g.minScore {
			continue
		}
		if h.Score > maxRaw {
			maxRaw = h.Score
		}
		strong = append(strong, h)
	}

	items := make([]EvidenceItem, 0, len(strong)+1)
	for _, a := range g.pinnedArticles(query, names) {
		article := a
		items = append(items, EvidenceItem{
			Kind:     KindStatute,
			RawScore: maxRaw + 1,
			Article:  &article,
		})
	}
	for i := range strong {
		article := strong[i].Article
		items = append(items, EvidenceItem{
			Kind:     KindStatute,
			RawScore: strong[i].Score,
			Article:  &article,
		})
	}
	items = g.dedupe(items)
	rescale(items)
	return items, nil
}

// countStrong counts hits clearing the relevance floor; only those
// satisfy the fallback gate.
func (g *Gateway) countStrong(hits []statute.ScoredArticle) int {
	n := 0
	for _, h := range hits {
		if h.Score >= g.minScore {
			n++
		}
	}
	return n
}

// pinnedArticles resolves article references written in the query
// (e.g. "민법 제750조") against the cached laws. A referenced article
// enters the evidence regardless of its semantic similarity.
func (g *Gateway) pinnedArticles(query string, names []string) []statute.Article {
	refs := statute.ParseArticleRefs(query)
	if len(refs) == 0 {
		return nil
	}
	seen := make(map[string]bool)
	var pinned []statute.Article
	for _, ref := range refs {
		for _, name := range names {
			a, ok := g.cache.Article(name, ref.ArticleNumber())
			if !ok {
				continue
			}
			if !seen[a.Key()] {
				seen[a.Key()] = true
				pinned = append(pinned, a)
			}
			break
		}
	}
	return pinned
}

// fetchMissingLaws fetches the named laws that are not yet cached.
// Reports whether anything new landed in the index.
func (g *Gateway) fetchMissingLaws(ctx context.Context, names []string) bool {
	fetched := false
	for _, name := range names {
		if _, ok := g.cache.Get(name); ok {
			continue
		}
		articles, err := g.laws.FetchArticles(ctx, name)
		if err != nil {
			g.logger.Warn("statute fetch failed", "law", name, "error", err)
			continue
		}
		g.cache.Put(name, articles)
		if err := g.statuteIndex.Add(ctx, articles); err != nil {
			g.logger.Warn("statute indexing failed", "law", name, "error", err)
			continue
		}
		fetched = true
	}
	return fetched
}

// knownLaws are codes recognized directly in query text, checked in
// order so the more specific names win their substrings.
var knownLaws = []string{
	"상가건물 임대차보호법",
	"주택임대차보호법",
	"근로기준법",
	"민사소송법",
	"형사소송법",
	"민사집행법",
	"부동산등기법",
	"상법",
	"형법",
	"민법",
}

func resolveLawNames(query string, hints, defaults []string) []string {
	var names []string
	seen := make(map[string]bool)
	add := func(name string) {
		name = strings.TrimSpace(name)
		if name != "" && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, h := range hints {
		add(h)
	}
	for _, law := range knownLaws {
		if strings.Contains(query, law) {
			add(law)
		}
	}
	if len(names) == 0 {
		for _, d := range defaults {
			add(d)
		}
	}
	return names
}

// dedupe collapses near-identical passages, keeping the higher raw
// score. Quadratic over at most topK items.
func (g *Gateway) dedupe(items []EvidenceItem) []EvidenceItem {
	kept := items[:0]
	for _, item := range items {
		dup := false
		for k := range kept {
			if textnorm.Similarity(item.Text(), kept[k].Text()) > g.dedupeThreshold {
				if item.RawScore > kept[k].RawScore {
					kept[k] = item
				}
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, item)
		}
	}
	return kept
}

// rescale min-max normalizes scores within one source's result list.
// A single hit, or hits with no variance, all map to 1.0.
func rescale(items []EvidenceItem) {
	if len(items) == 0 {
		return
	}
	lo, hi := items[0].RawScore, items[0].RawScore
	for _, item := range items[1:] {
		if item.RawScore < lo {
			lo = item.RawScore
		}
		if item.RawScore > hi {
			hi = item.RawScore
		}
	}
	if hi == lo {
		for i := range items {
			items[i].Score = 1.0
		}
		return
	}
	for i := range items {
		items[i].Score = (items[i].RawScore - lo) / (hi - lo)
	}
}
