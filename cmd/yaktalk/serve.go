package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/yaktalk/yaktalk/internal/config"
	"github.com/yaktalk/yaktalk/internal/home"
	"github.com/yaktalk/yaktalk/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the yaktalk server",
	Long: `Start the yaktalk HTTP server.

The server needs an OpenAI API key (llm.api_key in the config, or
OPENAI_API_KEY) and optionally a law API credential (law_api.oc, or
LAW_API_OC) for statute retrieval.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes LLM provider status)
  - /api/*  - Session, document, and question endpoints

Examples:
  yaktalk serve                    # Start on default port 8080
  yaktalk serve --port 3000        # Start on custom port
  yaktalk serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		}))

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		cfgPath := cfgFile
		if cfgPath == "" && h.ConfigExists() {
			cfgPath = h.ConfigPath()
		}
		cfgMgr, err := config.NewManager(cfgPath)
		if err != nil {
			return err
		}
		cfgMgr.WatchConfig()

		srv, err := server.New(server.Config{
			Host:          serveHost,
			Port:          servePort,
			ConfigManager: cfgMgr,
			Home:          h,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Host to bind to (default from config)")
	serveCmd.Flags().StringVar(&servePort, "port", "", "Port to listen on (default from config)")

	rootCmd.AddCommand(serveCmd)
}
