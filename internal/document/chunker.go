package document

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"
)

// ChunkOptions control how page text is split into retrieval chunks.
type ChunkOptions struct {
	Size    int // target chunk size in runes
	Overlap int // rune overlap between consecutive chunks
}

// DefaultChunkOptions mirror the ingestion defaults of the upstream loader.
func DefaultChunkOptions() ChunkOptions {
	return ChunkOptions{Size: 1024, Overlap: 100}
}

// SplitPages chunks every page of a document, preferring paragraph and
// sentence boundaries and falling back to hard rune cuts. Offsets recorded
// on each chunk are rune offsets into the page's raw text.
func SplitPages(pages []Page, opts ChunkOptions) []Chunk {
	if opts.Size <= 0 {
		opts = DefaultChunkOptions()
	}
	if opts.Overlap >= opts.Size {
		opts.Overlap = opts.Size / 4
	}

	var chunks []Chunk
	for _, p := range pages {
		for _, span := range splitSpans([]rune(p.Text), opts) {
			text := strings.TrimSpace(string([]rune(p.Text)[span.start:span.end]))
			if text == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				ID:         fmt.Sprintf("%s-p%d-%d", uuid.New().String()[:8], p.Number, span.start),
				PageNumber: p.Number,
				Text:       string([]rune(p.Text)[span.start:span.end]),
				CharStart:  span.start,
				CharEnd:    span.end,
			})
		}
	}
	return chunks
}

type span struct{ start, end int }

// splitSpans walks the rune slice producing overlapping spans of at most
// opts.Size runes, cutting at the best boundary inside the tail of each
// window (paragraph > sentence > whitespace > hard cut).
func splitSpans(runes []rune, opts ChunkOptions) []span {
	var spans []span
	n := len(runes)
	start := 0
	for start < n {
		end := start + opts.Size
		if end >= n {
			spans = append(spans, span{start, n})
			break
		}
		cut := boundaryBefore(runes, start+opts.Size/2, end)
		spans = append(spans, span{start, cut})

		next := cut - opts.Overlap
		if next <= start {
			next = cut
		}
		start = next
	}
	return spans
}

// boundaryBefore finds the best split point in (lo, hi], scanning backwards.
func boundaryBefore(runes []rune, lo, hi int) int {
	bestWS := -1
	bestSentence := -1
	for i := hi; i > lo; i-- {
		r := runes[i-1]
		if r == '\n' {
			// Paragraph break wins immediately.
			if i >= 2 && runes[i-2] == '\n' {
				return i
			}
			if bestSentence < 0 {
				bestSentence = i
			}
		}
		if (r == '.' || r == '。') && bestSentence < 0 {
			bestSentence = i
		}
		if unicode.IsSpace(r) && bestWS < 0 {
			bestWS = i
		}
	}
	if bestSentence > 0 {
		return bestSentence
	}
	if bestWS > 0 {
		return bestWS
	}
	return hi
}
