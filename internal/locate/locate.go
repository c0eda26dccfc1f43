// Package locate maps a cited passage back to page coordinates so the
// client can draw highlights. Matching runs over normalized text and is
// tolerant of the whitespace, hyphenation, and casing drift that a
// language model introduces when quoting extracted text.
package locate

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yaktalk/yaktalk/internal/document"
	"github.com/yaktalk/yaktalk/internal/textnorm"
)

// DefaultThreshold is the minimum fuzzy match score accepted as a hit.
const DefaultThreshold = 0.6

// ErrNotLocated means no region on the page scored above the threshold.
// The citation it belongs to stays valid; only the highlight is absent.
var ErrNotLocated = errors.New("passage not located")

// Region is a located passage: the page, the merged highlight boxes, the
// exact original text matched, and the match confidence in [0,1].
type Region struct {
	PageNumber  int             `json:"page_number"`
	Boxes       []document.Rect `json:"boxes"`
	MatchedText string          `json:"matched_text"`
	Confidence  float64         `json:"confidence"`
}

// Locator finds passages on pages. The zero value is not usable; use New.
type Locator struct {
	threshold float64
}

// New creates a locator with the default acceptance threshold.
func New() *Locator {
	return &Locator{threshold: DefaultThreshold}
}

// NewWithThreshold creates a locator with a custom threshold in (0,1].
func NewWithThreshold(threshold float64) *Locator {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &Locator{threshold: threshold}
}

// Locate finds the passage on the given page. Exact normalized matches
// win with confidence 1.0; otherwise a windowed fuzzy scan runs and the
// best window above the threshold is returned. ErrNotLocated is wrapped
// with the best score seen when nothing qualifies.
func (l *Locator) Locate(page *document.Page, passage string) (*Region, error) {
	normPage := textnorm.Normalize(page.Text)
	normPassage := textnorm.Normalize(passage)
	if normPassage.Text == "" || normPage.Text == "" {
		return nil, ErrNotLocated
	}

	if byteIdx := strings.Index(normPage.Text, normPassage.Text); byteIdx >= 0 {
		start := utf8.RuneCountInString(normPage.Text[:byteIdx])
		end := start + utf8.RuneCountInString(normPassage.Text)
		return l.regionFor(page, normPage, start, end, 1.0)
	}

	start, end, score := bestWindow(normPage, normPassage)
	if score < l.threshold {
		return nil, fmt.Errorf("best score %.2f below threshold %.2f: %w", score, l.threshold, ErrNotLocated)
	}
	return l.regionFor(page, normPage, start, end, score)
}

// LocateInDocument tries the preferred page first, then the rest of the
// document in order. Pass 0 to scan from the first page.
func (l *Locator) LocateInDocument(doc *document.Document, passage string, preferredPage int) (*Region, error) {
	if p := doc.PageByNumber(preferredPage); p != nil {
		if region, err := l.Locate(p, passage); err == nil {
			return region, nil
		}
	}
	var lastErr error = ErrNotLocated
	for i := range doc.Pages {
		if doc.Pages[i].Number == preferredPage {
			continue
		}
		region, err := l.Locate(&doc.Pages[i], passage)
		if err == nil {
			return region, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// regionFor maps a normalized-text span back to original offsets and
// builds the merged highlight boxes.
func (l *Locator) regionFor(page *document.Page, normPage textnorm.Result, start, end int, confidence float64) (*Region, error) {
	o0, o1 := normPage.OrigSpan(start, end)
	if o0 < 0 || o1 <= o0 {
		return nil, ErrNotLocated
	}
	pageRunes := []rune(page.Text)
	if o1 > len(pageRunes) {
		o1 = len(pageRunes)
	}

	var boxes []document.Rect
	if o1 <= len(page.CharBoxes) {
		boxes = mergeBoxes(page.CharBoxes[o0:o1])
	}
	return &Region{
		PageNumber:  page.Number,
		Boxes:       boxes,
		MatchedText: string(pageRunes[o0:o1]),
		Confidence:  confidence,
	}, nil
}

// bestWindow slides windows of roughly the passage length over the page
// and returns the best-scoring span. Three window sizes absorb text the
// model shortened or padded while quoting.
func bestWindow(normPage, normPassage textnorm.Result) (start, end int, score float64) {
	pageRunes := normPage.Runes()
	passRunes := normPassage.Runes()
	passTokens := textnorm.Tokens(normPassage.Text)
	n := len(pageRunes)
	passLen := len(passRunes)

	sizes := []int{passLen * 3 / 4, passLen, passLen * 5 / 4}
	step := passLen / 4
	if step < 1 {
		step = 1
	}

	best := -1.0
	bestStart, bestEnd := 0, 0
	for _, size := range sizes {
		if size < 1 {
			continue
		}
		// The last window clamps to the page end so a passage at the
		// tail is always scored at full alignment.
		for i := 0; ; i += step {
			j := i + size
			if j > n {
				j = n
			}
			if j <= i {
				break
			}
			window := string(pageRunes[i:j])
			s := windowScore(window, passRunes, passTokens)
			if s > best {
				best = s
				bestStart, bestEnd = i, j
			}
			if j == n {
				break
			}
		}
	}
	return bestStart, bestEnd, best
}

// windowScore blends token overlap with character-level edit similarity.
// Token Jaccard is robust to reordering; edit distance anchors ordering
// and catches near-verbatim quotes with sparse token sets.
func windowScore(window string, passRunes []rune, passTokens []string) float64 {
	tokenScore := textnorm.Jaccard(textnorm.Tokens(window), passTokens)
	windowRunes := []rune(window)
	maxLen := len(windowRunes)
	if len(passRunes) > maxLen {
		maxLen = len(passRunes)
	}
	editScore := 0.0
	if maxLen > 0 {
		editScore = 1 - float64(editDistance(windowRunes, passRunes))/float64(maxLen)
	}
	return 0.5*tokenScore + 0.5*editScore
}

// editDistance is the Levenshtein distance over runes, two-row DP.
func editDistance(a, b []rune) int {
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

// mergeBoxes folds per-character boxes into one box per text line. Boxes
// are on the same line when their vertical extents overlap. Zero boxes
// (whitespace without geometry) are skipped.
func mergeBoxes(charBoxes []document.Rect) []document.Rect {
	var merged []document.Rect
	var cur document.Rect
	have := false
	for _, b := range charBoxes {
		if b.IsZero() {
			continue
		}
		if !have {
			cur = b
			have = true
			continue
		}
		if sameLine(cur, b) {
			if b.X0 < cur.X0 {
				cur.X0 = b.X0
			}
			if b.X1 > cur.X1 {
				cur.X1 = b.X1
			}
			if b.Y0 < cur.Y0 {
				cur.Y0 = b.Y0
			}
			if b.Y1 > cur.Y1 {
				cur.Y1 = b.Y1
			}
		} else {
			merged = append(merged, cur)
			cur = b
		}
	}
	if have {
		merged = append(merged, cur)
	}
	return merged
}

func sameLine(a, b document.Rect) bool {
	return a.Y0 < b.Y1 && b.Y0 < a.Y1
}
