package endpoints

import (
	"github.com/yaktalk/yaktalk/internal/api"
	"github.com/yaktalk/yaktalk/internal/document"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// Loader extracts text and layout from uploaded PDFs.
	Loader document.Loader
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{},

		// Session endpoints
		&CreateSessionEndpoint{},
		&GetSessionEndpoint{},
		&DeleteSessionEndpoint{},

		// Document and conversation endpoints
		&UploadDocumentEndpoint{Loader: cfg.Loader},
		&AskEndpoint{},

		// Statute cache endpoints
		&ListStatuteCacheEndpoint{},
		&ClearStatuteCacheEndpoint{},
	}
}

// SessionCommands returns endpoints grouped under the "sessions" CLI
// subcommand.
func SessionCommands() []api.Endpoint {
	return []api.Endpoint{
		&CreateSessionEndpoint{},
		&GetSessionEndpoint{},
		&DeleteSessionEndpoint{},
		&UploadDocumentEndpoint{},
	}
}

// StatuteCommands returns endpoints grouped under the "statutes" CLI
// subcommand.
func StatuteCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListStatuteCacheEndpoint{},
		&ClearStatuteCacheEndpoint{},
	}
}
