// Package server assembles the yaktalk HTTP server: it builds the
// provider clients, the statute corpus, the session manager, and the
// turn router from configuration, and serves the registered endpoints.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/yaktalk/yaktalk/internal/api"
	"github.com/yaktalk/yaktalk/internal/config"
	"github.com/yaktalk/yaktalk/internal/document"
	"github.com/yaktalk/yaktalk/internal/extract"
	"github.com/yaktalk/yaktalk/internal/home"
	"github.com/yaktalk/yaktalk/internal/locate"
	"github.com/yaktalk/yaktalk/internal/providers"
	"github.com/yaktalk/yaktalk/internal/retrieval"
	"github.com/yaktalk/yaktalk/internal/router"
	"github.com/yaktalk/yaktalk/internal/server/endpoints"
	"github.com/yaktalk/yaktalk/internal/session"
	"github.com/yaktalk/yaktalk/internal/statute"
	"github.com/yaktalk/yaktalk/internal/svcctx"
	"github.com/yaktalk/yaktalk/internal/synth"
)

// Server is the yaktalk HTTP server.
type Server struct {
	httpServer *http.Server
	configMgr  *config.Manager
	logger     *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server construction parameters. Tunables come from the
// config manager; only process-level collaborators are passed here.
type Config struct {
	// Host overrides the configured bind address when non-empty
	Host string
	// Port overrides the configured port when non-empty
	Port string
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Home is the home directory layout (uploads land under it)
	Home *home.Dir
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New builds a server from configuration. When no LLM API key is
// configured the server still starts: health endpoints respond and the
// conversation endpoints return 503 until a key is provided.
func New(cfg Config) (*Server, error) {
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}
	if cfg.Home == nil {
		return nil, errors.New("home directory is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.ConfigManager.Get()

	s := &Server{
		configMgr: cfg.ConfigManager,
		logger:    logger,
		services: &svcctx.Services{
			Config: cfg.ConfigManager,
			Logger: logger,
			Home:   cfg.Home,
		},
	}

	if err := s.buildPipeline(appCfg); err != nil {
		return nil, err
	}

	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{Loader: extract.NewPDFLoader()}) {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	host := cfg.Host
	if host == "" {
		host = appCfg.Server.Host
	}
	if host == "" {
		host = "127.0.0.1"
	}
	port := cfg.Port
	if port == "" && appCfg.Server.Port != 0 {
		port = strconv.Itoa(appCfg.Server.Port)
	}
	if port == "" {
		port = "8080"
	}
	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(host, port),
		Handler:      s.withServices(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// buildPipeline wires the conversation pipeline from configuration:
// provider clients, statute corpus, session manager, gateway,
// synthesizer, locator, and router.
func (s *Server) buildPipeline(appCfg *config.Config) error {
	apiKey := config.ResolveEnvVars(appCfg.LLM.APIKey)
	if apiKey == "" {
		s.logger.Warn("no LLM API key configured, conversation endpoints disabled")
		return nil
	}

	llm, err := providers.NewOpenAIClient(providers.OpenAIConfig{
		APIKey:       apiKey,
		BaseURL:      appCfg.LLM.BaseURL,
		DefaultModel: appCfg.LLM.ChatModel,
		MaxRetries:   appCfg.LLM.MaxRetries,
		Timeout:      time.Duration(appCfg.LLM.TimeoutSeconds) * time.Second,
		Logger:       s.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create chat client: %w", err)
	}
	embedder, err := providers.NewOpenAIEmbedder(providers.EmbedConfig{
		APIKey:     apiKey,
		BaseURL:    appCfg.LLM.BaseURL,
		Model:      appCfg.LLM.EmbeddingModel,
		MaxRetries: appCfg.LLM.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	statuteCache := statute.NewCache()
	statuteIndex := statute.NewIndex(embedder)

	// The law API is optional: without a credential, statute queries
	// serve from whatever is already cached and indexed.
	var laws retrieval.StatuteSource
	if oc := config.ResolveEnvVars(appCfg.LawAPI.OC); oc != "" {
		client, err := statute.NewClient(statute.ClientConfig{
			BaseURL:     appCfg.LawAPI.BaseURL,
			OC:          oc,
			Timeout:     time.Duration(appCfg.LawAPI.TimeoutSeconds) * time.Second,
			MaxArticles: appCfg.LawAPI.MaxArticles,
			Logger:      s.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create law API client: %w", err)
		}
		laws = client
	} else {
		s.logger.Warn("no law API credential configured, statute fetching disabled")
	}

	gateway := retrieval.NewGateway(statuteIndex, statuteCache, laws, retrieval.GatewayConfig{
		TopK:              appCfg.Retrieval.TopK,
		FallbackThreshold: appCfg.Retrieval.FallbackThreshold,
		MinScore:          appCfg.Retrieval.MinScore,
		DefaultLaws:       appCfg.Retrieval.DefaultLaws,
		Logger:            s.logger,
	})

	synthesizer := synth.New(llm, synth.Config{
		Model:         appCfg.LLM.ChatModel,
		Temperature:   appCfg.Synth.Temperature,
		MaxTokens:     appCfg.Synth.MaxTokens,
		HistoryWindow: appCfg.Synth.HistoryWindow,
		Logger:        s.logger,
	})

	turnRouter := router.New(llm, gateway, synthesizer, locate.NewWithThreshold(appCfg.Locator.Threshold), router.Config{
		Model:            appCfg.LLM.ChatModel,
		RetrievalTimeout: time.Duration(appCfg.Retrieval.TimeoutSeconds) * time.Second,
		Logger:           s.logger,
	})

	s.services.Sessions = session.NewManager(func() *document.Store {
		return document.NewStore(document.NewIndex(embedder))
	})
	s.services.Router = turnRouter
	s.services.Embedder = embedder
	s.services.StatuteCache = statuteCache
	return nil
}

// Start runs the server until the context is cancelled or the listener
// fails, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			s.setNotRunning()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// shutdown performs graceful shutdown of the HTTP server.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the fully wired HTTP handler. Useful for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := svcctx.WithServices(r.Context(), s.services)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware gating endpoints that need the conversation
// pipeline. Returns 503 when no LLM provider is configured.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.services.Router == nil || s.services.Sessions == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"no LLM provider configured"}`))
			return
		}
		next(w, r)
	}
}
