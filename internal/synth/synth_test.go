package synth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/yaktalk/yaktalk/internal/document"
	"github.com/yaktalk/yaktalk/internal/providers"
	"github.com/yaktalk/yaktalk/internal/retrieval"
	"github.com/yaktalk/yaktalk/internal/session"
	"github.com/yaktalk/yaktalk/internal/statute"
)

func sampleEvidence() []retrieval.EvidenceItem {
	return []retrieval.EvidenceItem{
		{
			Kind:  retrieval.KindDocument,
			Score: 1.0,
			Chunk: &document.Chunk{ID: "c1", PageNumber: 3, Text: "연 5.5%의 이자를 가산하여 지급한다."},
		},
		{
			Kind:    retrieval.KindStatute,
			Score:   0.8,
			Article: &statute.Article{Code: "민법", Number: "제618조", Text: "임대차는 ..."},
		},
	}
}

func TestSynthesizeResolvesCitations(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "지체 시 연 5.5%의 이자가 가산됩니다 [1]. 임대차의 의의는 민법이 정합니다 [2]."
	s := New(mock, Config{})

	answer, err := s.Synthesize(context.Background(), "이자는 얼마인가요?", nil, sampleEvidence())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if len(answer.Citations) != 2 {
		t.Fatalf("citations = %d", len(answer.Citations))
	}
	if answer.Citations[0].Index != 1 || answer.Citations[0].Item.Kind != retrieval.KindDocument {
		t.Errorf("citation 1 = %+v", answer.Citations[0])
	}
	if answer.Citations[1].Item.Citation() != "민법 제618조" {
		t.Errorf("citation 2 label = %q", answer.Citations[1].Item.Citation())
	}
	if answer.Ungrounded {
		t.Error("cited answer flagged ungrounded")
	}
}

func TestSynthesizeUngroundedFlag(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "자료를 인용하지 않은 답변입니다."
	s := New(mock, Config{})

	answer, err := s.Synthesize(context.Background(), "질문", nil, sampleEvidence())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !answer.Ungrounded {
		t.Error("uncited answer with evidence present not flagged")
	}
	if len(answer.Citations) != 0 {
		t.Errorf("citations = %v", answer.Citations)
	}
}

func TestSynthesizeNoEvidenceNotUngrounded(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "제공된 자료가 없어 확인할 수 없습니다."
	s := New(mock, Config{})

	answer, err := s.Synthesize(context.Background(), "질문", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if answer.Ungrounded {
		t.Error("answer without any evidence flagged ungrounded")
	}
}

func TestSynthesizeRepairsInvalidMarkers(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Responses = []string{
		"근거는 [7]에 있습니다.",
		"근거는 [1]에 있습니다.",
	}
	s := New(mock, Config{})

	answer, err := s.Synthesize(context.Background(), "질문", nil, sampleEvidence())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("expected one repair round-trip, got %d calls", mock.RequestCount())
	}
	if len(answer.Citations) != 1 || answer.Citations[0].Index != 1 {
		t.Errorf("citations = %+v", answer.Citations)
	}
}

func TestSynthesizeRepairFailureDegrades(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "근거는 [9]에 있습니다."
	s := New(mock, Config{})

	answer, err := s.Synthesize(context.Background(), "질문", nil, sampleEvidence())
	if err != nil {
		t.Fatalf("repair failure must degrade, not fail: %v", err)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("expected one repair round-trip, got %d calls", mock.RequestCount())
	}
	if !answer.Ungrounded {
		t.Error("degraded answer not flagged ungrounded")
	}
	if strings.Contains(answer.Text, "[9]") {
		t.Errorf("unverifiable marker kept: %q", answer.Text)
	}
	if !strings.Contains(answer.Text, ungroundedNotice) {
		t.Errorf("disclaimer missing: %q", answer.Text)
	}
	if len(answer.Citations) != 0 {
		t.Errorf("citations = %+v", answer.Citations)
	}
}

func TestSynthesizeRepairFailureKeepsValidCitations(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "근거는 [1]과 [9]에 있습니다."
	s := New(mock, Config{})

	answer, err := s.Synthesize(context.Background(), "질문", nil, sampleEvidence())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if !answer.Ungrounded {
		t.Error("partially unverifiable answer not flagged ungrounded")
	}
	if len(answer.Citations) != 1 || answer.Citations[0].Index != 1 {
		t.Errorf("citations = %+v", answer.Citations)
	}
	if strings.Contains(answer.Text, "[9]") || !strings.Contains(answer.Text, "[1]") {
		t.Errorf("text = %q", answer.Text)
	}
}

func TestSynthesizeGenerationError(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ShouldFail = true
	s := New(mock, Config{})

	_, err := s.Synthesize(context.Background(), "질문", nil, sampleEvidence())
	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %v", err)
	}
	if mock.RequestCount() != 2 {
		t.Errorf("expected 2 attempts, got %d", mock.RequestCount())
	}
}

func TestHistoryWindow(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "답변 [1]"
	s := New(mock, Config{HistoryWindow: 2})

	history := []session.Turn{
		{Role: "user", Content: "q1"},
		{Role: "assistant", Content: "a1"},
		{Role: "user", Content: "q2"},
		{Role: "assistant", Content: "a2"},
	}
	if _, err := s.Synthesize(context.Background(), "q3", history, sampleEvidence()); err != nil {
		t.Fatal(err)
	}

	req := mock.Requests()[0]
	// system + 2 windowed history turns + question.
	if len(req.Messages) != 4 {
		t.Fatalf("messages = %d", len(req.Messages))
	}
	if req.Messages[1].Content != "q2" {
		t.Errorf("oldest turns not dropped: %q", req.Messages[1].Content)
	}
}

func TestExtractMarkers(t *testing.T) {
	markers := extractMarkers("본문 [2] 그리고 [1] 다시 [2] 끝")
	if len(markers) != 2 || markers[0] != 2 || markers[1] != 1 {
		t.Errorf("markers = %v", markers)
	}
	if got := extractMarkers("마커 없음"); got != nil {
		t.Errorf("markers = %v", got)
	}
}
