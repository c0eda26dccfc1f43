// Package document holds the session-scoped document model: extracted
// pages with their character layout, derived chunks, and the in-memory
// vector index used for semantic search over a single uploaded document.
package document

// Rect is an axis-aligned rectangle in page coordinate space (points,
// origin top-left, as produced by the layout extractor).
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// IsZero reports whether the rectangle carries no geometry.
func (r Rect) IsZero() bool {
	return r.X0 == 0 && r.Y0 == 0 && r.X1 == 0 && r.Y1 == 0
}

// Page is the raw extracted text of one document page plus its
// character-to-box layout index. CharBoxes[i] is the bounding box of rune i
// of Text; extractors may leave boxes zero for whitespace.
type Page struct {
	Number    int    `json:"page_number"` // 1-indexed
	Text      string `json:"text"`
	CharBoxes []Rect `json:"-"`
}

// Chunk is an immutable retrieval unit produced at ingestion.
// Character offsets are rune offsets into the owning page's raw Text.
type Chunk struct {
	ID         string `json:"id"`
	PageNumber int    `json:"page_number"`
	Text       string `json:"text"`
	CharStart  int    `json:"char_offset_start"`
	CharEnd    int    `json:"char_offset_end"`
}

// Document is one ingested upload: its pages and derived chunks.
type Document struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Pages     []Page  `json:"-"`
	Chunks    []Chunk `json:"-"`
	PageCount int     `json:"page_count"`
}

// PageByNumber returns the page with the given 1-indexed number, or nil.
func (d *Document) PageByNumber(n int) *Page {
	for i := range d.Pages {
		if d.Pages[i].Number == n {
			return &d.Pages[i]
		}
	}
	return nil
}
