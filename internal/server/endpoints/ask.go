package endpoints

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yaktalk/yaktalk/internal/api"
	"github.com/yaktalk/yaktalk/internal/router"
	"github.com/yaktalk/yaktalk/internal/svcctx"
	"github.com/yaktalk/yaktalk/internal/synth"
)

// AskRequest carries one question for a session.
type AskRequest struct {
	Question string `json:"question"`
}

// AskEndpoint handles POST /api/sessions/{id}/ask: one full
// conversation turn.
type AskEndpoint struct{}

var _ api.Endpoint = (*AskEndpoint)(nil)

func (e *AskEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/ask", e.handler
}

func (e *AskEndpoint) RequiresInit() bool { return true }

func (e *AskEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	sessions := svcctx.SessionsFrom(r.Context())
	turnRouter := svcctx.RouterFrom(r.Context())
	if sessions == nil || turnRouter == nil {
		writeError(w, http.StatusServiceUnavailable, "conversation pipeline not initialized")
		return
	}

	sess, err := sessions.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	result, err := turnRouter.ProcessTurn(r.Context(), sess, req.Question)
	if err != nil {
		var genErr *synth.GenerationError
		if errors.As(err, &genErr) {
			writeError(w, http.StatusBadGateway, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (e *AskEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <session-id> <question>",
		Short: "Ask a question in a session",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			question := strings.Join(args[1:], " ")
			var resp router.TurnResult
			path := "/api/sessions/" + args[0] + "/ask"
			if err := client.Post(cmd.Context(), path, AskRequest{Question: question}, &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			if resp.Answer != nil {
				fmt.Println(resp.Answer.Text)
				for _, c := range resp.Answer.Citations {
					fmt.Printf("  [%d] %s\n", c.Index, c.Item.Citation())
				}
				if resp.Answer.Ungrounded {
					fmt.Println("(답변이 제공된 자료를 인용하지 않았습니다)")
				}
			}
			if resp.LawUnavailable {
				fmt.Println("(법령 검색을 사용할 수 없어 일부 근거가 빠졌습니다)")
			}
			if resp.DocumentUnavailable {
				fmt.Println("(문서 검색을 사용할 수 없어 일부 근거가 빠졌습니다)")
			}
			return nil
		},
	}
}
