// Package synth turns retrieved evidence into a grounded answer. The
// model is instructed to cite evidence with [n] markers; the synthesizer
// resolves the markers back to evidence items and enforces that every
// marker points at a provided source.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/avast/retry-go/v4"

	"github.com/yaktalk/yaktalk/internal/providers"
	"github.com/yaktalk/yaktalk/internal/retrieval"
	"github.com/yaktalk/yaktalk/internal/session"
)

// DefaultHistoryWindow bounds how many prior turns enter the prompt.
const DefaultHistoryWindow = 6

// systemPrompt frames the assistant. Answers must come from the provided
// sources and carry [n] markers so citations stay checkable.
const systemPrompt = `당신은 법률 문서 분석과 법령 검색을 돕는 법률 상담 어시스턴트입니다.

규칙:
1. 반드시 아래에 제공된 근거 자료만을 바탕으로 답변하십시오.
2. 근거 자료의 내용을 인용할 때는 해당 자료 번호를 [1], [2] 형식으로 문장 끝에 표시하십시오.
3. 제공된 자료에 없는 내용은 추측하지 말고, 자료에서 확인할 수 없다고 답하십시오.
4. 법률 용어는 정확하게 사용하되, 일반인이 이해할 수 있도록 풀어서 설명하십시오.
5. 답변은 법률 정보 제공이며 법률 자문이 아님을 전제로 합니다.`

// GenerationError means the model failed to produce an answer after
// retries. The turn fails; session state is preserved.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("answer generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ungroundedNotice is appended when the repair round-trip still cites
// unknown sources and the markers were stripped from the answer.
const ungroundedNotice = "※ 위 답변의 일부 내용은 제공된 근거 자료에서 확인되지 않았습니다."

// Citation resolves one [n] marker to its evidence item.
type Citation struct {
	Index int                    `json:"index"` // 1-based marker value
	Item  retrieval.EvidenceItem `json:"item"`
}

// Answer is a synthesized, citation-checked answer.
type Answer struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
	// Ungrounded marks an answer whose grounding could not be verified:
	// either it cites nothing despite evidence being available, or its
	// unverifiable citations were stripped after a failed repair. The
	// answer is still served; clients may flag it.
	Ungrounded bool `json:"ungrounded"`
}

// Config tunes the synthesizer; zero values take defaults.
type Config struct {
	Model         string
	Temperature   float64
	MaxTokens     int
	HistoryWindow int
	Logger        *slog.Logger
}

// Synthesizer generates grounded answers through an LLM.
type Synthesizer struct {
	llm           providers.LLMClient
	model         string
	temperature   float64
	maxTokens     int
	historyWindow int
	logger        *slog.Logger
}

// New creates a synthesizer over the given chat client.
func New(llm providers.LLMClient, cfg Config) *Synthesizer {
	window := cfg.HistoryWindow
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		llm:           llm,
		model:         cfg.Model,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		historyWindow: window,
		logger:        logger,
	}
}

// Synthesize answers the question from the evidence. Markers are
// validated against the evidence list; an answer citing unknown sources
// gets one repair round-trip. When the repair still cites unknown
// sources, the unverifiable markers are stripped, a disclaimer is
// appended, and the answer is served flagged Ungrounded. Only
// generation failures end the turn.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, history []session.Turn, evidence []retrieval.EvidenceItem) (*Answer, error) {
	messages := s.buildMessages(question, history, evidence)

	text, err := s.chat(ctx, messages)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	degraded := false
	markers := extractMarkers(text)
	invalid := invalidMarkers(markers, len(evidence))
	if len(invalid) > 0 {
		s.logger.Warn("answer cites unknown sources, requesting repair", "markers", invalid)
		messages = append(messages,
			providers.Message{Role: "assistant", Content: text},
			providers.Message{Role: "user", Content: repairPrompt(len(evidence), invalid)},
		)
		text, err = s.chat(ctx, messages)
		if err != nil {
			return nil, &GenerationError{Err: err}
		}
		markers = extractMarkers(text)
		if invalid = invalidMarkers(markers, len(evidence)); len(invalid) > 0 {
			s.logger.Warn("repair still cites unknown sources, serving with disclaimer", "markers", invalid)
			text = stripMarkers(text, invalid) + "\n\n" + ungroundedNotice
			markers = extractMarkers(text)
			degraded = true
		}
	}

	answer := &Answer{Text: text}
	for _, n := range markers {
		answer.Citations = append(answer.Citations, Citation{Index: n, Item: evidence[n-1]})
	}
	answer.Ungrounded = degraded || (len(evidence) > 0 && len(markers) == 0)
	return answer, nil
}

// stripMarkers removes the given [n] markers from the text.
func stripMarkers(text string, markers []int) string {
	for _, n := range markers {
		text = strings.ReplaceAll(text, fmt.Sprintf("[%d]", n), "")
	}
	return strings.TrimSpace(text)
}

func (s *Synthesizer) chat(ctx context.Context, messages []providers.Message) (string, error) {
	return retry.DoWithData(
		func() (string, error) {
			result, err := s.llm.Chat(ctx, &providers.ChatRequest{
				Messages:    messages,
				Model:       s.model,
				Temperature: s.temperature,
				MaxTokens:   s.maxTokens,
			})
			if err != nil {
				return "", err
			}
			if strings.TrimSpace(result.Content) == "" {
				return "", fmt.Errorf("empty answer")
			}
			return result.Content, nil
		},
		retry.Attempts(2),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
}

func (s *Synthesizer) buildMessages(question string, history []session.Turn, evidence []retrieval.EvidenceItem) []providers.Message {
	messages := []providers.Message{{Role: "system", Content: systemPrompt}}

	if len(history) > s.historyWindow {
		history = history[len(history)-s.historyWindow:]
	}
	for _, turn := range history {
		role := turn.Role
		if role != "assistant" {
			role = "user"
		}
		messages = append(messages, providers.Message{Role: role, Content: turn.Content})
	}

	var b strings.Builder
	if len(evidence) > 0 {
		b.WriteString("근거 자료:\n")
		for i, item := range evidence {
			fmt.Fprintf(&b, "[%d] (%s) %s\n", i+1, item.Citation(), item.Text())
		}
		b.WriteString("\n")
	} else {
		b.WriteString("근거 자료: 없음. 자료 없이 확실히 답할 수 없는 내용은 답하지 마십시오.\n\n")
	}
	b.WriteString("질문: ")
	b.WriteString(question)

	messages = append(messages, providers.Message{Role: "user", Content: b.String()})
	return messages
}

var markerPattern = regexp.MustCompile(`\[(\d+)\]`)

// extractMarkers returns the distinct citation markers in order of first
// appearance.
func extractMarkers(text string) []int {
	matches := markerPattern.FindAllStringSubmatch(text, -1)
	seen := make(map[int]bool)
	var markers []int
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || seen[n] {
			continue
		}
		seen[n] = true
		markers = append(markers, n)
	}
	return markers
}

func invalidMarkers(markers []int, evidenceCount int) []int {
	var invalid []int
	for _, n := range markers {
		if n < 1 || n > evidenceCount {
			invalid = append(invalid, n)
		}
	}
	return invalid
}

func repairPrompt(evidenceCount int, invalid []int) string {
	return fmt.Sprintf(
		"답변에 제공되지 않은 자료 번호 %v가 인용되었습니다. 제공된 근거 자료는 [1]부터 [%d]까지입니다. 제공된 자료만 인용하여 답변을 다시 작성하십시오.",
		invalid, evidenceCount)
}
