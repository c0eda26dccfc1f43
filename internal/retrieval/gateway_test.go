package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/yaktalk/yaktalk/internal/document"
	"github.com/yaktalk/yaktalk/internal/statute"
)

type keywordEmbedder struct {
	keywords []string
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		v := make([]float64, len(e.keywords))
		for j, kw := range e.keywords {
			v[j] = float64(strings.Count(text, kw))
		}
		out[i] = v
	}
	return out, nil
}

type stubLaws struct {
	articles map[string][]statute.Article
	calls    []string
	err      error
}

func (s *stubLaws) FetchArticles(_ context.Context, lawName string) ([]statute.Article, error) {
	s.calls = append(s.calls, lawName)
	if s.err != nil {
		return nil, s.err
	}
	return s.articles[lawName], nil
}

func newDocSearcher(t *testing.T, chunks []document.Chunk) document.Searcher {
	t.Helper()
	ix := document.NewIndex(&keywordEmbedder{keywords: []string{"이자", "보증금", "해지", "차임"}})
	if err := ix.Add(context.Background(), chunks); err != nil {
		t.Fatal(err)
	}
	return ix
}

func TestQueryDocumentRescale(t *testing.T) {
	docs := newDocSearcher(t, []document.Chunk{
		{ID: "a", Text: "연 5.5%의 이자를 가산한다 이자"},
		{ID: "b", Text: "보증금은 반환한다"},
		{ID: "c", Text: "계약 해지 사유"},
	})
	g := NewGateway(statute.NewIndex(&keywordEmbedder{keywords: []string{"x"}}), statute.NewCache(), nil, GatewayConfig{})

	items, err := g.QueryDocument(context.Background(), docs, "이자 지급")
	if err != nil {
		t.Fatalf("QueryDocument: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("no evidence")
	}
	if items[0].Chunk.ID != "a" || items[0].Score != 1.0 {
		t.Errorf("best hit = %s score %f, want a at 1.0", items[0].Chunk.ID, items[0].Score)
	}
	last := items[len(items)-1]
	if last.Score != 0.0 {
		t.Errorf("worst hit score = %f, want 0.0 after min-max rescale", last.Score)
	}
	for _, item := range items {
		if item.Kind != KindDocument {
			t.Errorf("kind = %s", item.Kind)
		}
	}
}

func TestQueryDocumentSingleHitScoresOne(t *testing.T) {
	docs := newDocSearcher(t, []document.Chunk{{ID: "a", Text: "이자"}})
	g := NewGateway(statute.NewIndex(&keywordEmbedder{keywords: []string{"x"}}), statute.NewCache(), nil, GatewayConfig{})

	items, err := g.QueryDocument(context.Background(), docs, "이자")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Score != 1.0 {
		t.Errorf("items = %+v", items)
	}
}

func TestQueryDocumentDedupe(t *testing.T) {
	// Two chunks with essentially the same text (overlap region) plus one
	// distinct chunk.
	docs := newDocSearcher(t, []document.Chunk{
		{ID: "a", Text: "연 5.5%의 이자를 가산하여 지급한다 이자 이자"},
		{ID: "b", Text: "연 5.5%의  이자를 가산하여 지급한다 이자 이자"},
		{ID: "c", Text: "보증금은 반환한다"},
	})
	g := NewGateway(statute.NewIndex(&keywordEmbedder{keywords: []string{"x"}}), statute.NewCache(), nil, GatewayConfig{})

	items, err := g.QueryDocument(context.Background(), docs, "이자")
	if err != nil {
		t.Fatal(err)
	}
	ids := make(map[string]bool)
	for _, item := range items {
		ids[item.Chunk.ID] = true
	}
	if ids["a"] && ids["b"] {
		t.Errorf("near-duplicate chunks both kept: %v", ids)
	}
}

func TestQueryStatutesFallbackFetch(t *testing.T) {
	emb := &keywordEmbedder{keywords: []string{"임대차", "해지", "차임"}}
	cache := statute.NewCache()
	ix := statute.NewIndex(emb)
	laws := &stubLaws{articles: map[string][]statute.Article{
		"민법": {
			{Code: "민법", Number: "제618조", Text: "임대차는 당사자 일방이 차임을 지급할 것을 약정"},
			{Code: "민법", Number: "제635조", Text: "임대차 계약해지의 통고 해지"},
		},
	}}
	g := NewGateway(ix, cache, laws, GatewayConfig{})

	items, err := g.QueryStatutes(context.Background(), "임대차 해지 통고는 어떻게 하나요", nil)
	if err != nil {
		t.Fatalf("QueryStatutes: %v", err)
	}
	if len(laws.calls) != 1 || laws.calls[0] != "민법" {
		t.Fatalf("fetch calls = %v", laws.calls)
	}
	if len(items) == 0 {
		t.Fatal("no statute evidence after fallback fetch")
	}
	if items[0].Article.Number != "제635조" {
		t.Errorf("best hit = %s", items[0].Article.Number)
	}
	if _, ok := cache.Get("민법"); !ok {
		t.Error("fetched law not cached")
	}

	// Second query must serve from the index without refetching.
	if _, err := g.QueryStatutes(context.Background(), "임대차 차임", nil); err != nil {
		t.Fatal(err)
	}
	if len(laws.calls) != 1 {
		t.Errorf("cached law refetched: %v", laws.calls)
	}
}

func TestQueryStatutesNamedLawInQuery(t *testing.T) {
	emb := &keywordEmbedder{keywords: []string{"임대차", "보증금"}}
	laws := &stubLaws{articles: map[string][]statute.Article{
		"주택임대차보호법": {{Code: "주택임대차보호법", Number: "제3조", Text: "임대차 보증금 대항력"}},
	}}
	g := NewGateway(statute.NewIndex(emb), statute.NewCache(), laws, GatewayConfig{})

	items, err := g.QueryStatutes(context.Background(), "주택임대차보호법상 보증금의 대항력", nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(laws.calls) != 1 || laws.calls[0] != "주택임대차보호법" {
		t.Errorf("fetch calls = %v, want the law named in the query", laws.calls)
	}
	if len(items) == 0 {
		t.Error("no evidence for named law")
	}
}

func TestQueryStatutesIrrelevantHitsTriggerFetch(t *testing.T) {
	// A populated index must not satisfy the fallback gate with hits
	// that are merely present; only hits clearing the relevance floor
	// count, and hits below it stay out of the evidence.
	emb := &keywordEmbedder{keywords: []string{"해고", "임대차"}}
	ix := statute.NewIndex(emb)
	filler := make([]statute.Article, 0, 5)
	for i := 0; i < 5; i++ {
		filler = append(filler, statute.Article{
			Code:   "민법",
			Number: fmt.Sprintf("제%d조", 618+i),
			Text:   fmt.Sprintf("임대차에 관한 조문 %d", i),
		})
	}
	if err := ix.Add(context.Background(), filler); err != nil {
		t.Fatal(err)
	}
	laws := &stubLaws{articles: map[string][]statute.Article{
		"근로기준법": {{Code: "근로기준법", Number: "제23조", Text: "사용자는 정당한 이유 없이 해고하지 못한다"}},
	}}
	g := NewGateway(ix, statute.NewCache(), laws, GatewayConfig{})

	items, err := g.QueryStatutes(context.Background(), "근로기준법상 해고 제한은?", nil)
	if err != nil {
		t.Fatalf("QueryStatutes: %v", err)
	}
	if len(laws.calls) != 1 || laws.calls[0] != "근로기준법" {
		t.Fatalf("fetch calls = %v, want the uncached law despite indexed filler", laws.calls)
	}
	if len(items) != 1 {
		t.Fatalf("items = %+v, want the relevant article only", items)
	}
	if items[0].Article.Number != "제23조" {
		t.Errorf("best hit = %s", items[0].Article.Number)
	}
}

func TestQueryStatutesExplicitArticleRef(t *testing.T) {
	// The referenced article shares no terms with the query embedding,
	// so only the reference lookup can surface it.
	emb := &keywordEmbedder{keywords: []string{"임대차"}}
	cache := statute.NewCache()
	cache.Put("민법", []statute.Article{
		{Code: "민법", Number: "제750조", Text: "고의 또는 과실로 인한 위법행위로 타인에게 손해를 가한 자는 그 손해를 배상할 책임이 있다"},
	})
	g := NewGateway(statute.NewIndex(emb), cache, nil, GatewayConfig{})

	items, err := g.QueryStatutes(context.Background(), "민법 제750조의 내용을 알려줘", nil)
	if err != nil {
		t.Fatalf("QueryStatutes: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %+v", items)
	}
	if items[0].Article.Number != "제750조" || items[0].Score != 1.0 {
		t.Errorf("pinned article = %+v", items[0])
	}
}

func TestQueryStatutesFetchFailureDegrades(t *testing.T) {
	emb := &keywordEmbedder{keywords: []string{"임대차"}}
	ix := statute.NewIndex(emb)
	// Seed the index with one article so degraded results are non-empty.
	seed := statute.Article{Code: "민법", Number: "제618조", Text: "임대차는"}
	if err := ix.Add(context.Background(), []statute.Article{seed}); err != nil {
		t.Fatal(err)
	}
	laws := &stubLaws{err: errors.New("api down")}
	g := NewGateway(ix, statute.NewCache(), laws, GatewayConfig{})

	items, err := g.QueryStatutes(context.Background(), "임대차", nil)
	if err != nil {
		t.Fatalf("fetch failure must degrade, not fail: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected the seeded article, got %d items", len(items))
	}
}

func TestResolveLawNames(t *testing.T) {
	names := resolveLawNames("상가건물 임대차보호법과 민법의 관계", nil, []string{"형법"})
	if len(names) != 2 || names[0] != "상가건물 임대차보호법" || names[1] != "민법" {
		t.Errorf("names = %v", names)
	}

	names = resolveLawNames("계약이란 무엇인가", nil, []string{"민법"})
	if len(names) != 1 || names[0] != "민법" {
		t.Errorf("defaults not applied: %v", names)
	}

	names = resolveLawNames("계약이란", []string{"근로기준법", "근로기준법"}, []string{"민법"})
	if len(names) != 1 || names[0] != "근로기준법" {
		t.Errorf("hints not deduplicated: %v", names)
	}
}
