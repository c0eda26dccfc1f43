package document

import (
	"context"
	"sync"
)

// Store owns one session's documents and their vector index. The active
// document is the target of retrieval and localization; previous documents
// stay selectable so a failed upload never loses the working document.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]*Document
	activeID string
	index    *Index
}

// NewStore creates an empty session store backed by the given index.
func NewStore(index *Index) *Store {
	return &Store{
		docs:  make(map[string]*Document),
		index: index,
	}
}

// Put registers a document, indexes its chunks, and makes it active.
// If indexing fails the store and index are left unchanged, so the
// previous document stays searchable.
func (s *Store) Put(ctx context.Context, doc *Document) error {
	// The index serves only the active document; Replace swaps contents
	// atomically and keeps the old contents on embedding failure.
	if err := s.index.Replace(ctx, doc.Chunks); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = doc
	s.activeID = doc.ID
	return nil
}

// Active returns the active document, or nil when none is loaded.
func (s *Store) Active() *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.activeID == "" {
		return nil
	}
	return s.docs[s.activeID]
}

// Get returns a document by ID, or nil.
func (s *Store) Get(id string) *Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[id]
}

// Searcher returns the vector index serving the active document.
func (s *Store) Searcher() Searcher {
	return s.index
}

// HasDocument reports whether a document is loaded and searchable.
func (s *Store) HasDocument() bool {
	return s.Active() != nil
}
