package document

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// keywordEmbedder maps each text to a fixed-dimension vector where each
// dimension counts occurrences of one keyword. Deterministic and good
// enough to exercise ranking.
type keywordEmbedder struct {
	keywords []string
	failNext bool
}

func (e *keywordEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	if e.failNext {
		e.failNext = false
		return nil, errors.New("embedding backend unavailable")
	}
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

func testEmbedder() *keywordEmbedder {
	return &keywordEmbedder{keywords: []string{"이자", "보증금", "해지", "손해배상"}}
}

func TestIndexSearchRanking(t *testing.T) {
	ix := NewIndex(testEmbedder())
	chunks := []Chunk{
		{ID: "a", PageNumber: 1, Text: "보증금은 계약 종료 시 반환한다"},
		{ID: "b", PageNumber: 2, Text: "연 5.5%의 이자를 가산한다 이자 지급일은 말일이다"},
		{ID: "c", PageNumber: 3, Text: "계약 해지 사유"},
	}
	if err := ix.Add(context.Background(), chunks); err != nil {
		t.Fatalf("Add: %v", err)
	}

	hits, err := ix.Search(context.Background(), "이자 지급", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].Chunk.ID != "b" {
		t.Errorf("expected chunk b first, got %s", hits[0].Chunk.ID)
	}
	if hits[0].Score < hits[1].Score {
		t.Errorf("hits not sorted: %f < %f", hits[0].Score, hits[1].Score)
	}
}

func TestIndexReplaceKeepsContentsOnFailure(t *testing.T) {
	emb := testEmbedder()
	ix := NewIndex(emb)
	if err := ix.Replace(context.Background(), []Chunk{{ID: "a", Text: "보증금"}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if ix.Len() != 1 {
		t.Fatalf("expected 1 chunk indexed, got %d", ix.Len())
	}

	emb.failNext = true
	err := ix.Replace(context.Background(), []Chunk{{ID: "b", Text: "해지"}})
	if err == nil {
		t.Fatal("expected embedding failure")
	}
	if ix.Len() != 1 {
		t.Errorf("failed Replace mutated the index: len=%d", ix.Len())
	}
	hits, err := ix.Search(context.Background(), "보증금", 1)
	if err != nil {
		t.Fatalf("Search after failed Replace: %v", err)
	}
	if len(hits) != 1 || hits[0].Chunk.ID != "a" {
		t.Errorf("previous contents not searchable after failed Replace: %+v", hits)
	}
}

func TestIndexSearchEmpty(t *testing.T) {
	ix := NewIndex(testEmbedder())
	hits, err := ix.Search(context.Background(), "이자", 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits from empty index, got %d", len(hits))
	}
}
