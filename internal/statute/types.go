// Package statute retrieves and caches statutory law articles from the
// national law information API. Articles are cached per law and indexed
// for semantic search so repeat questions never refetch.
package statute

import (
	"fmt"
	"regexp"
	"strings"
)

// Article is one statutory article as served by the law API.
type Article struct {
	Code      string `json:"code"`       // law name, e.g. "민법"
	LawID     string `json:"law_id"`     // API identifier of the law
	Number    string `json:"number"`     // article label, e.g. "제618조"
	Title     string `json:"title"`      // article heading, may be empty
	Text      string `json:"text"`       // full article body including clauses
	SourceURL string `json:"source_url"` // canonical link for citation display
}

// Key identifies the article within its law for cache lookups.
func (a Article) Key() string {
	return a.Code + "/" + a.Number
}

// Ref formats the article as a citation reference, e.g. "민법 제618조".
func (a Article) Ref() string {
	if a.Code == "" {
		return a.Number
	}
	return a.Code + " " + a.Number
}

// ArticleRef is a parsed reference to an article and optionally a clause
// (항) and item (호) within it.
type ArticleRef struct {
	Jo   int // article number, 제N조
	Sub  int // sub-article, 제N조의M (0 when absent)
	Hang int // clause, 제N항 (0 when absent)
	Ho   int // item, 제N호 (0 when absent)
}

// ArticleNumber returns the 조-level label matching Article.Number,
// e.g. "제618조" or "제10조의2". Clause and item are lookup refinements
// within the article, not part of the label.
func (r ArticleRef) ArticleNumber() string {
	if r.Sub > 0 {
		return fmt.Sprintf("제%d조의%d", r.Jo, r.Sub)
	}
	return fmt.Sprintf("제%d조", r.Jo)
}

// String renders the reference back to its Korean label.
func (r ArticleRef) String() string {
	var b strings.Builder
	b.WriteString(r.ArticleNumber())
	if r.Hang > 0 {
		fmt.Fprintf(&b, " 제%d항", r.Hang)
	}
	if r.Ho > 0 {
		fmt.Fprintf(&b, " 제%d호", r.Ho)
	}
	return b.String()
}

var articleRefPattern = regexp.MustCompile(`제\s*(\d+)\s*조(?:의\s*(\d+))?(?:\s*제\s*(\d+)\s*항)?(?:\s*제\s*(\d+)\s*호)?`)

// ParseArticleRefs extracts every article reference from free text, in
// order of appearance. Returns nil when none are present.
func ParseArticleRefs(text string) []ArticleRef {
	matches := articleRefPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]ArticleRef, 0, len(matches))
	for _, m := range matches {
		ref := ArticleRef{Jo: atoi(m[1]), Sub: atoi(m[2]), Hang: atoi(m[3]), Ho: atoi(m[4])}
		refs = append(refs, ref)
	}
	return refs
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
