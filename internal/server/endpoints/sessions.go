package endpoints

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/yaktalk/yaktalk/internal/api"
	"github.com/yaktalk/yaktalk/internal/session"
	"github.com/yaktalk/yaktalk/internal/svcctx"
)

// SessionResponse describes one conversation session.
type SessionResponse struct {
	ID         string         `json:"id"`
	CreatedAt  time.Time      `json:"created_at"`
	Turns      []session.Turn `json:"turns,omitempty"`
	DocumentID string         `json:"document_id,omitempty"`
	Document   string         `json:"document,omitempty"`
}

func sessionResponse(s *session.Session) SessionResponse {
	state := s.Snapshot()
	resp := SessionResponse{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		Turns:     state.Turns,
	}
	if doc := s.Store().Active(); doc != nil {
		resp.DocumentID = doc.ID
		resp.Document = doc.Name
	}
	return resp
}

// CreateSessionEndpoint handles POST /api/sessions.
type CreateSessionEndpoint struct{}

var _ api.Endpoint = (*CreateSessionEndpoint)(nil)

func (e *CreateSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions", e.handler
}

func (e *CreateSessionEndpoint) RequiresInit() bool { return true }

func (e *CreateSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sessions := svcctx.SessionsFrom(r.Context())
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session manager not initialized")
		return
	}

	s := sessions.Create()
	if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
		logger.Info("session created", "session", s.ID)
	}
	writeJSON(w, http.StatusCreated, sessionResponse(s))
}

func (e *CreateSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Start a new conversation session",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Post(cmd.Context(), "/api/sessions", nil, &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			fmt.Printf("Session: %s\n", resp.ID)
			return nil
		},
	}
}

// GetSessionEndpoint handles GET /api/sessions/{id}.
type GetSessionEndpoint struct{}

var _ api.Endpoint = (*GetSessionEndpoint)(nil)

func (e *GetSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}", e.handler
}

func (e *GetSessionEndpoint) RequiresInit() bool { return true }

func (e *GetSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sessions := svcctx.SessionsFrom(r.Context())
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session manager not initialized")
		return
	}

	s, err := sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s))
}

func (e *GetSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <session-id>",
		Short: "Show a session's conversation history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Get(cmd.Context(), "/api/sessions/"+args[0], &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			fmt.Printf("Session:  %s\n", resp.ID)
			if resp.Document != "" {
				fmt.Printf("Document: %s\n", resp.Document)
			}
			for _, turn := range resp.Turns {
				fmt.Printf("[%s] %s\n", turn.Role, turn.Content)
			}
			return nil
		},
	}
}

// DeleteSessionEndpoint handles DELETE /api/sessions/{id}.
type DeleteSessionEndpoint struct{}

var _ api.Endpoint = (*DeleteSessionEndpoint)(nil)

func (e *DeleteSessionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/sessions/{id}", e.handler
}

func (e *DeleteSessionEndpoint) RequiresInit() bool { return true }

func (e *DeleteSessionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sessions := svcctx.SessionsFrom(r.Context())
	if sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "session manager not initialized")
		return
	}

	id := r.PathValue("id")
	if _, err := sessions.Get(id); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	sessions.Delete(id)
	if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
		logger.Info("session deleted", "session", id)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteSessionEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "End a conversation session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/sessions/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted session %s\n", args[0])
			return nil
		},
	}
}
