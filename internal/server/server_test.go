package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yaktalk/yaktalk/internal/config"
	"github.com/yaktalk/yaktalk/internal/home"
)

func newDegradedServer(t *testing.T) *Server {
	t.Helper()
	// No LLM key: the server must come up with the conversation
	// pipeline disabled.
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("LAW_API_OC", "")

	cfgMgr, err := config.NewManager("")
	if err != nil {
		t.Fatal(err)
	}
	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	srv, err := New(Config{ConfigManager: cfgMgr, Home: h})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return srv
}

func TestNewRequiresConfigManager(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without config manager")
	}
}

func TestDegradedServerHealth(t *testing.T) {
	srv := newDegradedServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}
}

func TestDegradedServerGatesConversationEndpoints(t *testing.T) {
	srv := newDegradedServer(t)

	for _, tc := range []struct{ method, path string }{
		{"POST", "/api/sessions"},
		{"POST", "/api/sessions/x/ask"},
		{"GET", "/api/statutes/cache"},
	} {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s = %d, want 503", tc.method, tc.path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready: %d", rec.Code)
	}
	var resp struct {
		Status string `json:"status"`
		LLM    string `json:"llm"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "degraded" {
		t.Errorf("status = %s", resp.Status)
	}
}

func TestServerAddrFromConfig(t *testing.T) {
	srv := newDegradedServer(t)
	if srv.Addr() != "127.0.0.1:8080" {
		t.Errorf("addr = %s", srv.Addr())
	}
}
