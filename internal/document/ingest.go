package document

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
)

// DefaultMaxUploadBytes is the default upload size ceiling (50MB).
const DefaultMaxUploadBytes = 50 << 20

// IngestionError means an upload could not be accepted. It is fatal to
// that upload only; the session continues with its previous document.
type IngestionError struct {
	Path   string
	Reason string
	Err    error
}

func (e *IngestionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("ingestion failed for %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("ingestion failed for %s: %s", e.Path, e.Reason)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// Loader extracts per-page text and character layout from a document file.
// The extraction engine is an external collaborator; this package only
// validates the upload and owns the resulting model.
type Loader interface {
	Load(ctx context.Context, path string) ([]Page, error)
}

// IngestRequest carries the parameters for ingesting one upload.
type IngestRequest struct {
	Path     string
	Name     string // display name (derived from path if empty)
	MaxBytes int64  // size ceiling (DefaultMaxUploadBytes if zero)
	Chunking ChunkOptions
	Logger   *slog.Logger
}

// Ingest validates the uploaded PDF, extracts its pages through the
// loader, chunks them, and registers the document in the store. All
// failures are returned as *IngestionError and leave the store untouched.
func Ingest(ctx context.Context, store *Store, loader Loader, req IngestRequest) (*Document, error) {
	log := req.Logger
	if log == nil {
		log = slog.Default()
	}
	maxBytes := req.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}

	info, err := os.Stat(req.Path)
	if err != nil {
		return nil, &IngestionError{Path: req.Path, Reason: "file not readable", Err: err}
	}
	if info.Size() > maxBytes {
		return nil, &IngestionError{
			Path:   req.Path,
			Reason: fmt.Sprintf("file size %d exceeds ceiling %d", info.Size(), maxBytes),
		}
	}

	// Structural validation and page count come from pdfcpu before we pay
	// for extraction.
	if err := pdfapi.ValidateFile(req.Path, nil); err != nil {
		return nil, &IngestionError{Path: req.Path, Reason: "not a valid PDF", Err: err}
	}
	pageCount, err := pdfapi.PageCountFile(req.Path)
	if err != nil {
		return nil, &IngestionError{Path: req.Path, Reason: "failed to count pages", Err: err}
	}

	pages, err := loader.Load(ctx, req.Path)
	if err != nil {
		return nil, &IngestionError{Path: req.Path, Reason: "text extraction failed", Err: err}
	}
	if len(pages) == 0 {
		return nil, &IngestionError{Path: req.Path, Reason: "document has no extractable text"}
	}

	doc := &Document{
		ID:        uuid.New().String(),
		Name:      deriveName(req.Path, req.Name),
		Pages:     pages,
		Chunks:    SplitPages(pages, req.Chunking),
		PageCount: pageCount,
	}

	if err := store.Put(ctx, doc); err != nil {
		return nil, &IngestionError{Path: req.Path, Reason: "indexing failed", Err: err}
	}

	log.Info("document ingested",
		"document_id", doc.ID,
		"name", doc.Name,
		"pages", doc.PageCount,
		"chunks", len(doc.Chunks))
	return doc, nil
}

func deriveName(path, name string) string {
	if name != "" {
		return name
	}
	base := path
	if i := strings.LastIndexAny(base, "/\\"); i >= 0 {
		base = base[i+1:]
	}
	return base
}
