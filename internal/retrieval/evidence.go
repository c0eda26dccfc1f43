// Package retrieval fronts the two evidence sources behind one gateway:
// semantic search over the session's document and over cached statute
// articles, with near-duplicate collapse and per-source score rescaling
// so results from different indexes are comparable.
package retrieval

import (
	"fmt"

	"github.com/yaktalk/yaktalk/internal/document"
	"github.com/yaktalk/yaktalk/internal/statute"
)

// Kind discriminates evidence sources.
type Kind string

const (
	KindDocument Kind = "DOCUMENT"
	KindStatute  Kind = "STATUTE"
)

// EvidenceItem is one retrieved passage, from either source. Score is
// rescaled to [0,1] within its source; RawScore keeps the index's
// original similarity for tie-breaking and logging.
type EvidenceItem struct {
	Kind     Kind    `json:"kind"`
	Score    float64 `json:"score"`
	RawScore float64 `json:"raw_score"`

	Chunk   *document.Chunk  `json:"chunk,omitempty"`   // set when Kind == KindDocument
	Article *statute.Article `json:"article,omitempty"` // set when Kind == KindStatute
}

// Text returns the passage text of the item.
func (e EvidenceItem) Text() string {
	switch e.Kind {
	case KindDocument:
		if e.Chunk != nil {
			return e.Chunk.Text
		}
	case KindStatute:
		if e.Article != nil {
			return e.Article.Text
		}
	}
	return ""
}

// Citation returns the human-readable source label used in answers,
// e.g. "문서 3쪽" or "민법 제618조".
func (e EvidenceItem) Citation() string {
	switch e.Kind {
	case KindDocument:
		if e.Chunk != nil {
			return fmt.Sprintf("문서 %d쪽", e.Chunk.PageNumber)
		}
	case KindStatute:
		if e.Article != nil {
			return e.Article.Ref()
		}
	}
	return ""
}
