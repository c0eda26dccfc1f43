// Package session tracks per-conversation state: the turn history, the
// session's document store, and the turn lock that serializes question
// processing within one conversation.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yaktalk/yaktalk/internal/document"
)

// Turn is one exchange entry in the conversation history.
type Turn struct {
	Role    string    `json:"role"` // "user" or "assistant"
	Content string    `json:"content"`
	At      time.Time `json:"at"`
}

// State is the conversation state visible to the router and synthesizer.
type State struct {
	Turns          []Turn `json:"turns"`
	LastDocumentID string `json:"last_document_id,omitempty"`
}

// Session is one conversation. Its mutex serializes turns: a second
// question on the same session waits for the first to finish.
type Session struct {
	ID        string
	CreatedAt time.Time

	turnMu sync.Mutex

	mu    sync.RWMutex
	state State
	store *document.Store
}

// Store returns the session's document store.
func (s *Session) Store() *document.Store {
	return s.store
}

// AcquireTurn takes the turn lock and returns its release func.
func (s *Session) AcquireTurn() func() {
	s.turnMu.Lock()
	return s.turnMu.Unlock
}

// Snapshot returns a copy of the conversation state.
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Turns = append([]Turn(nil), s.state.Turns...)
	return st
}

// AppendExchange records a completed user/assistant exchange.
func (s *Session) AppendExchange(question, answer string) {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Turns = append(s.state.Turns,
		Turn{Role: "user", Content: question, At: now},
		Turn{Role: "assistant", Content: answer, At: now},
	)
	if doc := s.store.Active(); doc != nil {
		s.state.LastDocumentID = doc.ID
	}
}

// Manager owns the live sessions of one process.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	newStore func() *document.Store
}

// NewManager creates a session manager. newStore builds the document
// store for each new session.
func NewManager(newStore func() *document.Store) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		newStore: newStore,
	}
}

// Create starts a new session.
func (m *Manager) Create() *Session {
	s := &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now(),
		store:     m.newStore(),
	}
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the session by ID.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("unknown session %q", id)
	}
	return s, nil
}

// Delete removes a session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
