package statute

import (
	"context"
	"strings"
	"testing"
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

func TestIndexAddAndSearch(t *testing.T) {
	ix := NewIndex(&keywordEmbedder{keywords: []string{"임대차", "해지", "차임"}})
	articles := []Article{
		{Code: "민법", Number: "제618조", Text: "임대차는 당사자 일방이 ... 차임을 지급할 것을 약정"},
		{Code: "민법", Number: "제635조", Text: "임대차기간의 약정이 없는 때에는 계약해지의 통고를 할 수 있다 해지"},
	}
	if err := ix.Add(context.Background(), articles); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if ix.Len() != 2 {
		t.Fatalf("Len = %d", ix.Len())
	}

	hits, err := ix.Search(context.Background(), "계약 해지 통고", 1)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].Article.Number != "제635조" {
		t.Errorf("hits = %+v", hits)
	}
}

func TestIndexAddDeduplicates(t *testing.T) {
	ix := NewIndex(&keywordEmbedder{keywords: []string{"임대차"}})
	a := Article{Code: "민법", Number: "제618조", Text: "임대차"}
	if err := ix.Add(context.Background(), []Article{a}); err != nil {
		t.Fatal(err)
	}
	if err := ix.Add(context.Background(), []Article{a}); err != nil {
		t.Fatal(err)
	}
	if ix.Len() != 1 {
		t.Errorf("duplicate article indexed twice: Len = %d", ix.Len())
	}
}
