// Package extract turns PDF files into positioned page text. Each page
// comes back as its reading-order text plus one bounding box per rune,
// which is what passage localization needs to draw highlights.
package extract

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/yaktalk/yaktalk/internal/document"
)

// PDFLoader extracts text and character layout from PDF files.
type PDFLoader struct{}

var _ document.Loader = (*PDFLoader)(nil)

// NewPDFLoader creates a loader. It is stateless and safe for
// concurrent use.
func NewPDFLoader() *PDFLoader {
	return &PDFLoader{}
}

// Load extracts every page of the PDF at path. Pages without
// extractable text are skipped; page numbers stay aligned with the
// source document.
func (l *PDFLoader) Load(ctx context.Context, path string) (pages []document.Page, err error) {
	// The parser panics on some malformed font tables instead of
	// returning an error.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("pdf parsing panicked: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	for i := 1; i <= reader.NumPage(); i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		p := reader.Page(i)
		if p.V.IsNull() {
			continue
		}
		page := buildPage(i, pageHeight(p), p.Content().Text)
		if strings.TrimSpace(page.Text) == "" {
			continue
		}
		pages = append(pages, page)
	}
	return pages, nil
}

// pageHeight reads the MediaBox height so glyph coordinates can be
// flipped from PDF bottom-left origin to top-left.
func pageHeight(p pdf.Page) float64 {
	box := p.V.Key("MediaBox")
	if box.Len() != 4 {
		return 0
	}
	return box.Index(3).Float64() - box.Index(1).Float64()
}

// buildPage assembles one page from raw text runs: sort into reading
// order, group into lines, and emit one box per rune. Spaces inserted
// at word gaps and line breaks carry zero boxes.
func buildPage(number int, height float64, runs []pdf.Text) document.Page {
	kept := make([]pdf.Text, 0, len(runs))
	for _, t := range runs {
		if t.S != "" {
			kept = append(kept, t)
		}
	}
	// Reading order: top of the page first (larger PDF Y), then left
	// to right.
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Y != kept[j].Y {
			return kept[i].Y > kept[j].Y
		}
		return kept[i].X < kept[j].X
	})

	var (
		text  strings.Builder
		boxes []document.Rect
		prev  *pdf.Text
	)
	for i := range kept {
		t := &kept[i]
		if prev != nil {
			lineTol := t.FontSize / 2
			if lineTol <= 0 {
				lineTol = 1
			}
			switch {
			case prev.Y-t.Y > lineTol:
				text.WriteByte('\n')
				boxes = append(boxes, document.Rect{})
			case t.X-(prev.X+prev.W) > t.FontSize/4:
				text.WriteByte(' ')
				boxes = append(boxes, document.Rect{})
			}
		}

		y0, y1 := t.Y, t.Y+t.FontSize
		if height > 0 {
			y0, y1 = height-t.Y-t.FontSize, height-t.Y
		}
		// A run's width is reported for the whole string; spread it
		// evenly over the runes.
		rs := []rune(t.S)
		perRune := t.W / float64(len(rs))
		for j, r := range rs {
			text.WriteRune(r)
			boxes = append(boxes, document.Rect{
				X0: t.X + float64(j)*perRune,
				Y0: y0,
				X1: t.X + float64(j+1)*perRune,
				Y1: y1,
			})
		}
		prev = t
	}

	return document.Page{Number: number, Text: text.String(), CharBoxes: boxes}
}
