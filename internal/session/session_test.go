package session

import (
	"context"
	"sync"
	"testing"

	"github.com/yaktalk/yaktalk/internal/document"
)

type zeroEmbedder struct{}

func (zeroEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i := range out {
		out[i] = []float64{1}
	}
	return out, nil
}

func newManager() *Manager {
	return NewManager(func() *document.Store {
		return document.NewStore(document.NewIndex(zeroEmbedder{}))
	})
}

func TestManagerLifecycle(t *testing.T) {
	m := newManager()
	s := m.Create()
	if s.ID == "" {
		t.Fatal("session has no ID")
	}
	if s.Store() == nil {
		t.Fatal("session has no store")
	}

	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Fatalf("Get = %v, %v", got, err)
	}
	if _, err := m.Get("missing"); err == nil {
		t.Error("Get of unknown session succeeded")
	}

	if m.Len() != 1 {
		t.Errorf("Len = %d", m.Len())
	}
	m.Delete(s.ID)
	if m.Len() != 0 {
		t.Errorf("Len after Delete = %d", m.Len())
	}
}

func TestAppendExchange(t *testing.T) {
	s := newManager().Create()
	s.AppendExchange("보증금은 언제 돌려받나요?", "계약 종료 시 반환됩니다 [1].")

	st := s.Snapshot()
	if len(st.Turns) != 2 {
		t.Fatalf("turns = %d", len(st.Turns))
	}
	if st.Turns[0].Role != "user" || st.Turns[1].Role != "assistant" {
		t.Errorf("roles = %s, %s", st.Turns[0].Role, st.Turns[1].Role)
	}

	// Snapshot is a copy.
	st.Turns[0].Content = "mutated"
	if s.Snapshot().Turns[0].Content == "mutated" {
		t.Error("snapshot shares state with the session")
	}
}

func TestTurnLockSerializes(t *testing.T) {
	s := newManager().Create()

	inTurn := 0
	var maxConcurrent int
	var obs sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := s.AcquireTurn()
			defer release()
			obs.Lock()
			inTurn++
			if inTurn > maxConcurrent {
				maxConcurrent = inTurn
			}
			obs.Unlock()
			obs.Lock()
			inTurn--
			obs.Unlock()
		}()
	}
	wg.Wait()
	if maxConcurrent != 1 {
		t.Errorf("turn lock admitted %d concurrent turns", maxConcurrent)
	}
}
