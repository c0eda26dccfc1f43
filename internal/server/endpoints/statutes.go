package endpoints

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/yaktalk/yaktalk/internal/api"
	"github.com/yaktalk/yaktalk/internal/svcctx"
)

// CachedLaw summarizes one cached law.
type CachedLaw struct {
	Name     string `json:"name"`
	Articles int    `json:"articles"`
}

// StatuteCacheResponse lists the laws held by the statute cache.
type StatuteCacheResponse struct {
	Laws []CachedLaw `json:"laws"`
}

// ListStatuteCacheEndpoint handles GET /api/statutes/cache.
type ListStatuteCacheEndpoint struct{}

var _ api.Endpoint = (*ListStatuteCacheEndpoint)(nil)

func (e *ListStatuteCacheEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/statutes/cache", e.handler
}

func (e *ListStatuteCacheEndpoint) RequiresInit() bool { return true }

func (e *ListStatuteCacheEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	cache := svcctx.StatuteCacheFrom(r.Context())
	if cache == nil {
		writeError(w, http.StatusServiceUnavailable, "statute cache not initialized")
		return
	}

	resp := StatuteCacheResponse{Laws: []CachedLaw{}}
	for _, name := range cache.Laws() {
		articles, _ := cache.Get(name)
		resp.Laws = append(resp.Laws, CachedLaw{Name: name, Articles: len(articles)})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListStatuteCacheEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached laws",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp StatuteCacheResponse
			if err := client.Get(cmd.Context(), "/api/statutes/cache", &resp); err != nil {
				return err
			}
			if api.IsStructuredOutput() {
				return api.Output(resp)
			}
			if len(resp.Laws) == 0 {
				fmt.Println("No laws cached")
				return nil
			}
			for _, law := range resp.Laws {
				fmt.Printf("%s (%d articles)\n", law.Name, law.Articles)
			}
			return nil
		},
	}
}

// ClearStatuteCacheEndpoint handles DELETE /api/statutes/cache.
type ClearStatuteCacheEndpoint struct{}

var _ api.Endpoint = (*ClearStatuteCacheEndpoint)(nil)

func (e *ClearStatuteCacheEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/statutes/cache", e.handler
}

func (e *ClearStatuteCacheEndpoint) RequiresInit() bool { return true }

func (e *ClearStatuteCacheEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	cache := svcctx.StatuteCacheFrom(r.Context())
	if cache == nil {
		writeError(w, http.StatusServiceUnavailable, "statute cache not initialized")
		return
	}

	cache.Clear()
	if logger := svcctx.LoggerFrom(r.Context()); logger != nil {
		logger.Info("statute cache cleared")
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *ClearStatuteCacheEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the statute cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/statutes/cache"); err != nil {
				return err
			}
			fmt.Println("Statute cache cleared")
			return nil
		},
	}
}
