// Package router runs one conversation turn end to end: decide which
// evidence sources the question needs, query them concurrently, hand the
// evidence to the synthesizer, and localize cited document passages for
// highlighting. Each turn walks an explicit state sequence; failures
// leave the session state untouched.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yaktalk/yaktalk/internal/locate"
	"github.com/yaktalk/yaktalk/internal/providers"
	"github.com/yaktalk/yaktalk/internal/retrieval"
	"github.com/yaktalk/yaktalk/internal/session"
	"github.com/yaktalk/yaktalk/internal/synth"
)

// State names one step of turn processing.
type State string

const (
	StateAwaitingQuery       State = "AWAITING_QUERY"
	StateRouting             State = "ROUTING"
	StateRetrievingDocument  State = "RETRIEVING_DOCUMENT"
	StateRetrievingLaw       State = "RETRIEVING_LAW"
	StateSynthesizing        State = "SYNTHESIZING"
	StateResponding          State = "RESPONDING"
	StateError               State = "ERROR"
)

// DefaultRetrievalTimeout bounds each evidence source query per turn.
const DefaultRetrievalTimeout = 10 * time.Second

// Highlight is the localization outcome for one cited document passage.
// Located false means the passage could not be mapped to page
// coordinates; the citation itself still stands.
type Highlight struct {
	CitationIndex int            `json:"citation_index"`
	Located       bool           `json:"located"`
	Region        *locate.Region `json:"region,omitempty"`
}

// TurnResult is the outcome of one processed turn.
type TurnResult struct {
	Answer     *synth.Answer             `json:"answer"`
	Evidence   []retrieval.EvidenceItem  `json:"evidence"`
	Highlights []Highlight               `json:"highlights,omitempty"`
	// LawUnavailable is set when statute retrieval failed or timed out
	// and the answer was synthesized without statute evidence.
	LawUnavailable bool `json:"law_unavailable,omitempty"`
	// DocumentUnavailable is the same for the document source.
	DocumentUnavailable bool    `json:"document_unavailable,omitempty"`
	States              []State `json:"states"`
}

// routingSchema constrains the routing decision to two booleans.
const routingSchema = `{
  "name": "routing_decision",
  "strict": true,
  "schema": {
    "type": "object",
    "properties": {
      "needs_document": {
        "type": "boolean",
        "description": "true when the question concerns the uploaded document's content"
      },
      "needs_law": {
        "type": "boolean",
        "description": "true when the question requires statutory law"
      }
    },
    "required": ["needs_document", "needs_law"],
    "additionalProperties": false
  }
}`

const routingPrompt = `사용자 질문이 어떤 자료를 필요로 하는지 판단하십시오.
- needs_document: 업로드된 문서(계약서 등)의 내용에 관한 질문이면 true
- needs_law: 법령(법조문)의 내용 확인이 필요한 질문이면 true
둘 다 해당할 수 있습니다.

질문: %s`

type routingDecision struct {
	NeedsDocument bool `json:"needs_document"`
	NeedsLaw      bool `json:"needs_law"`
}

// Config tunes the router; zero values take defaults.
type Config struct {
	Model            string
	RetrievalTimeout time.Duration
	Logger           *slog.Logger
}

// Router processes turns for all sessions. Stateless across turns except
// for the collaborators it holds.
type Router struct {
	llm              providers.LLMClient
	gateway          *retrieval.Gateway
	synthesizer      *synth.Synthesizer
	locator          *locate.Locator
	model            string
	retrievalTimeout time.Duration
	logger           *slog.Logger
}

// New wires a router over its collaborators.
func New(llm providers.LLMClient, gateway *retrieval.Gateway, synthesizer *synth.Synthesizer, locator *locate.Locator, cfg Config) *Router {
	timeout := cfg.RetrievalTimeout
	if timeout <= 0 {
		timeout = DefaultRetrievalTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		llm:              llm,
		gateway:          gateway,
		synthesizer:      synthesizer,
		locator:          locator,
		model:            cfg.Model,
		retrievalTimeout: timeout,
		logger:           logger,
	}
}

// ProcessTurn runs one question through the full pipeline. Turns on the
// same session are serialized; each evidence source is queried at most
// once per turn. On error the conversation history is left as it was.
func (r *Router) ProcessTurn(ctx context.Context, sess *session.Session, question string) (*TurnResult, error) {
	release := sess.AcquireTurn()
	defer release()

	result := &TurnResult{States: []State{StateAwaitingQuery, StateRouting}}
	hasDoc := sess.Store().HasDocument()

	decision := r.route(ctx, question, hasDoc)
	r.logger.Debug("routing decision",
		"session", sess.ID,
		"needs_document", decision.NeedsDocument,
		"needs_law", decision.NeedsLaw)

	docEvidence, lawEvidence := r.retrieve(ctx, sess, question, decision, result)

	// Document evidence first so marker numbering favors the user's own
	// document.
	result.Evidence = append(result.Evidence, docEvidence...)
	result.Evidence = append(result.Evidence, lawEvidence...)

	result.States = append(result.States, StateSynthesizing)
	answer, err := r.synthesizer.Synthesize(ctx, question, sess.Snapshot().Turns, result.Evidence)
	if err != nil {
		result.States = append(result.States, StateError)
		r.logger.Error("synthesis failed", "session", sess.ID, "states", result.States, "error", err)
		return nil, fmt.Errorf("turn failed: %w", err)
	}
	result.Answer = answer

	result.Highlights = r.localize(sess, answer)

	result.States = append(result.States, StateResponding)
	sess.AppendExchange(question, answer.Text)
	return result, nil
}

// route asks the model which sources the question needs. A routing
// failure falls back to querying everything available rather than
// failing the turn.
func (r *Router) route(ctx context.Context, question string, hasDoc bool) routingDecision {
	fallback := routingDecision{NeedsDocument: hasDoc, NeedsLaw: true}

	res, err := r.llm.Chat(ctx, &providers.ChatRequest{
		Model: r.model,
		Messages: []providers.Message{
			{Role: "user", Content: fmt.Sprintf(routingPrompt, question)},
		},
		ResponseFormat: &providers.ResponseFormat{
			Type:       "json_schema",
			JSONSchema: json.RawMessage(routingSchema),
		},
	})
	if err != nil {
		r.logger.Warn("routing decision failed, querying all sources", "error", err)
		return fallback
	}
	var decision routingDecision
	if err := json.Unmarshal(res.ParsedJSON, &decision); err != nil {
		r.logger.Warn("routing decision undecodable, querying all sources", "error", err)
		return fallback
	}
	// No document loaded: a document route cannot be served.
	decision.NeedsDocument = decision.NeedsDocument && hasDoc
	return decision
}

// retrieve queries the routed sources concurrently, each under its own
// timeout. A failed or timed-out source yields empty evidence and sets
// the corresponding unavailability flag; it never fails the turn.
func (r *Router) retrieve(ctx context.Context, sess *session.Session, question string, decision routingDecision, result *TurnResult) (docEvidence, lawEvidence []retrieval.EvidenceItem) {
	g, gctx := errgroup.WithContext(ctx)

	if decision.NeedsDocument {
		result.States = append(result.States, StateRetrievingDocument)
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(gctx, r.retrievalTimeout)
			defer cancel()
			items, err := r.gateway.QueryDocument(qctx, sess.Store().Searcher(), question)
			if err != nil {
				r.logger.Warn("document retrieval failed", "session", sess.ID, "error", err)
				result.DocumentUnavailable = true
				return nil
			}
			docEvidence = items
			return nil
		})
	}
	if decision.NeedsLaw {
		result.States = append(result.States, StateRetrievingLaw)
		g.Go(func() error {
			qctx, cancel := context.WithTimeout(gctx, r.retrievalTimeout)
			defer cancel()
			items, err := r.gateway.QueryStatutes(qctx, question, nil)
			if err != nil {
				r.logger.Warn("statute retrieval failed", "session", sess.ID, "error", err)
				result.LawUnavailable = true
				return nil
			}
			lawEvidence = items
			return nil
		})
	}

	// Workers swallow their errors; Wait only joins them.
	_ = g.Wait()
	return docEvidence, lawEvidence
}

// localize maps every cited document passage to page coordinates. Every
// cited document chunk yields a Highlight; a miss is reported with
// Located false, never dropped.
func (r *Router) localize(sess *session.Session, answer *synth.Answer) []Highlight {
	doc := sess.Store().Active()
	if doc == nil {
		return nil
	}
	var highlights []Highlight
	for _, citation := range answer.Citations {
		if citation.Item.Kind != retrieval.KindDocument || citation.Item.Chunk == nil {
			continue
		}
		chunk := citation.Item.Chunk
		region, err := r.locator.LocateInDocument(doc, chunk.Text, chunk.PageNumber)
		if err != nil {
			if !errors.Is(err, locate.ErrNotLocated) {
				r.logger.Warn("localization error", "chunk", chunk.ID, "error", err)
			} else {
				r.logger.Debug("passage not located", "chunk", chunk.ID)
			}
			highlights = append(highlights, Highlight{CitationIndex: citation.Index})
			continue
		}
		highlights = append(highlights, Highlight{CitationIndex: citation.Index, Located: true, Region: region})
	}
	return highlights
}
