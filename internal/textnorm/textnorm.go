// Package textnorm canonicalizes text for robust substring and fuzzy
// comparison. Every normalization keeps an offset map back to the original
// text so that match locations can be cited against the source exactly.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const softHyphen = '\u00ad'

// Result is normalized text plus the mapping back to the original.
// Map[i] is the rune index in the original text that produced normalized
// rune i. For composed characters (e.g. Hangul jamo composition) all runes
// of the composition map to the start of their source span.
type Result struct {
	Text string
	Map  []int
}

// Runes returns the normalized text as runes, aligned with Map.
func (r Result) Runes() []rune {
	return []rune(r.Text)
}

// OrigSpan translates a normalized rune span [start, end) back to a rune
// span in the original text. The returned end is exclusive and points just
// past the last original rune covered by the normalized span.
func (r Result) OrigSpan(start, end int) (int, int) {
	if len(r.Map) == 0 || start >= end {
		return 0, 0
	}
	if start < 0 {
		start = 0
	}
	if end > len(r.Map) {
		end = len(r.Map)
	}
	return r.Map[start], r.Map[end-1] + 1
}

// Normalize canonicalizes text in four passes: NFKC recomposition,
// soft-hyphenation repair at line breaks, whitespace run collapsing, and
// case folding for non-ideographic scripts. The offset map is maintained
// through every pass.
func Normalize(text string) Result {
	runes, srcIdx := recompose(text)

	out := make([]rune, 0, len(runes))
	idx := make([]int, 0, len(runes))

	pendingSpace := false
	spaceIdx := 0
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		// Soft hyphen is never meaningful in extracted layout text.
		if r == softHyphen {
			continue
		}

		// A hyphen directly before a line break is a hyphenation artifact:
		// drop both and join the word halves.
		if r == '-' && nextIsLineBreak(runes, i+1) {
			for i+1 < len(runes) && isLineBreak(runes[i+1]) {
				i++
			}
			continue
		}

		if unicode.IsSpace(r) {
			if !pendingSpace {
				pendingSpace = true
				spaceIdx = srcIdx[i]
			}
			continue
		}

		if pendingSpace {
			if len(out) > 0 { // no leading space
				out = append(out, ' ')
				idx = append(idx, spaceIdx)
			}
			pendingSpace = false
		}

		out = append(out, unicode.ToLower(r))
		idx = append(idx, srcIdx[i])
	}

	return Result{Text: string(out), Map: idx}
}

// recompose applies NFKC and returns the resulting runes together with the
// original rune index each normalized rune came from.
func recompose(text string) ([]rune, []int) {
	// Byte offset -> original rune index.
	byteToRune := make(map[int]int, len(text))
	runeIdx := 0
	for byteOff := range text {
		byteToRune[byteOff] = runeIdx
		runeIdx++
	}

	var runes []rune
	var srcIdx []int

	var it norm.Iter
	it.InitString(norm.NFKC, text)
	pos := it.Pos()
	for !it.Done() {
		segStart := pos
		seg := it.Next()
		pos = it.Pos()

		origin := byteToRune[segStart]
		for _, r := range string(seg) {
			runes = append(runes, r)
			srcIdx = append(srcIdx, origin)
		}
	}
	return runes, srcIdx
}

func isLineBreak(r rune) bool {
	return r == '\n' || r == '\r'
}

func nextIsLineBreak(runes []rune, i int) bool {
	return i < len(runes) && isLineBreak(runes[i])
}

// Tokens splits normalized text into comparison tokens. Ideographic and
// Hangul runs are split into single-rune tokens so that token-set overlap
// works for unsegmented scripts too.
func Tokens(normalized string) []string {
	var tokens []string
	var word strings.Builder

	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, word.String())
			word.Reset()
		}
	}

	for _, r := range normalized {
		switch {
		case unicode.IsSpace(r):
			flush()
		case unicode.Is(unicode.Hangul, r) || unicode.Is(unicode.Han, r) ||
			unicode.Is(unicode.Hiragana, r) || unicode.Is(unicode.Katakana, r):
			flush()
			tokens = append(tokens, string(r))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			// Punctuation separates tokens but is not itself a token.
			flush()
		}
	}
	flush()
	return tokens
}

// Jaccard computes token-set Jaccard similarity of two token slices.
// Two empty slices are considered identical.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}
	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	inter := 0
	for t := range setA {
		if _, ok := setB[t]; ok {
			inter++
		}
	}
	union := len(setA) + len(setB) - inter
	return float64(inter) / float64(union)
}

// Similarity is the token-level similarity of two raw (unnormalized) texts.
// Used by retrieval deduplication.
func Similarity(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)
	if na.Text == nb.Text {
		return 1.0
	}
	return Jaccard(Tokens(na.Text), Tokens(nb.Text))
}
