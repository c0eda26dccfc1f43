package main

import (
	"github.com/spf13/cobra"

	"github.com/yaktalk/yaktalk/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running yaktalk server via HTTP.

These commands require a running server (yaktalk serve).
Use --server to specify a custom server URL.

Examples:
  yaktalk api health                          # Check server health
  yaktalk api sessions create                 # Start a conversation
  yaktalk api sessions upload <id> lease.pdf  # Upload a document
  yaktalk api ask <id> "보증금 반환 조건은?"   # Ask a question`,
}

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Conversation session commands",
}

var statutesCmd = &cobra.Command{
	Use:   "statutes",
	Short: "Statute cache commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	// Asking is the main operation; keep it at top level
	apiCmd.AddCommand((&endpoints.AskEndpoint{}).Command(getServerURL))

	// Sessions as subcommand group
	for _, ep := range endpoints.SessionCommands() {
		if cmd := ep.Command(getServerURL); cmd != nil {
			sessionsCmd.AddCommand(cmd)
		}
	}

	// Statute cache as subcommand group
	for _, ep := range endpoints.StatuteCommands() {
		if cmd := ep.Command(getServerURL); cmd != nil {
			statutesCmd.AddCommand(cmd)
		}
	}

	apiCmd.AddCommand(sessionsCmd)
	apiCmd.AddCommand(statutesCmd)
	rootCmd.AddCommand(apiCmd)
}
