// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/yaktalk/yaktalk/internal/config"
	"github.com/yaktalk/yaktalk/internal/home"
	"github.com/yaktalk/yaktalk/internal/providers"
	"github.com/yaktalk/yaktalk/internal/router"
	"github.com/yaktalk/yaktalk/internal/session"
	"github.com/yaktalk/yaktalk/internal/statute"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Sessions     *session.Manager
	Router       *router.Router
	Embedder     providers.Embedder
	StatuteCache *statute.Cache
	Config       *config.Manager
	Logger       *slog.Logger
	Home         *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// SessionsFrom extracts the session manager from context.
func SessionsFrom(ctx context.Context) *session.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Sessions
	}
	return nil
}

// RouterFrom extracts the turn router from context.
func RouterFrom(ctx context.Context) *router.Router {
	if s := ServicesFrom(ctx); s != nil {
		return s.Router
	}
	return nil
}

// StatuteCacheFrom extracts the statute cache from context.
func StatuteCacheFrom(ctx context.Context) *statute.Cache {
	if s := ServicesFrom(ctx); s != nil {
		return s.StatuteCache
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
