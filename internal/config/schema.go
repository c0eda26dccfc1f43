package config

// Config holds yaktalk configuration.
// Stored at: {home}/config.yaml
type Config struct {
	Server    ServerCfg    `mapstructure:"server" yaml:"server"`
	Upload    UploadCfg    `mapstructure:"upload" yaml:"upload"`
	Chunking  ChunkingCfg  `mapstructure:"chunking" yaml:"chunking"`
	Retrieval RetrievalCfg `mapstructure:"retrieval" yaml:"retrieval"`
	Locator   LocatorCfg   `mapstructure:"locator" yaml:"locator"`
	LawAPI    LawAPICfg    `mapstructure:"law_api" yaml:"law_api"`
	LLM       LLMCfg       `mapstructure:"llm" yaml:"llm"`
	Synth     SynthCfg     `mapstructure:"synth" yaml:"synth"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// UploadCfg bounds document uploads.
type UploadCfg struct {
	MaxBytes int64 `mapstructure:"max_bytes" yaml:"max_bytes"`
}

// ChunkingCfg controls how page text is split for indexing.
type ChunkingCfg struct {
	Size    int `mapstructure:"size" yaml:"size"`       // target chunk size in runes
	Overlap int `mapstructure:"overlap" yaml:"overlap"` // rune overlap between chunks
}

// RetrievalCfg tunes the evidence gateway.
type RetrievalCfg struct {
	TopK              int      `mapstructure:"top_k" yaml:"top_k"`
	FallbackThreshold int      `mapstructure:"fallback_threshold" yaml:"fallback_threshold"`
	MinScore          float64  `mapstructure:"min_score" yaml:"min_score"` // statute relevance floor
	TimeoutSeconds    int      `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	DefaultLaws       []string `mapstructure:"default_laws" yaml:"default_laws"`
}

// LocatorCfg tunes passage localization.
type LocatorCfg struct {
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
}

// LawAPICfg configures the law information API client.
type LawAPICfg struct {
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	OC             string `mapstructure:"oc" yaml:"oc"` // credential (supports ${ENV_VAR} syntax)
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	MaxArticles    int    `mapstructure:"max_articles" yaml:"max_articles"`
}

// LLMCfg configures the chat and embedding providers.
type LLMCfg struct {
	APIKey         string `mapstructure:"api_key" yaml:"api_key"` // supports ${ENV_VAR} syntax
	BaseURL        string `mapstructure:"base_url" yaml:"base_url"`
	ChatModel      string `mapstructure:"chat_model" yaml:"chat_model"`
	EmbeddingModel string `mapstructure:"embedding_model" yaml:"embedding_model"`
	MaxRetries     int    `mapstructure:"max_retries" yaml:"max_retries"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// SynthCfg tunes answer synthesis.
type SynthCfg struct {
	Temperature   float64 `mapstructure:"temperature" yaml:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	HistoryWindow int     `mapstructure:"history_window" yaml:"history_window"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Upload: UploadCfg{
			MaxBytes: 50 << 20,
		},
		Chunking: ChunkingCfg{
			Size:    1024,
			Overlap: 100,
		},
		Retrieval: RetrievalCfg{
			TopK:              5,
			FallbackThreshold: 2,
			MinScore:          0.25,
			TimeoutSeconds:    10,
			DefaultLaws:       []string{"민법"},
		},
		Locator: LocatorCfg{
			Threshold: 0.6,
		},
		LawAPI: LawAPICfg{
			BaseURL:        "https://www.law.go.kr/DRF",
			OC:             "${LAW_API_OC}",
			TimeoutSeconds: 10,
			MaxArticles:    50,
		},
		LLM: LLMCfg{
			APIKey:         "${OPENAI_API_KEY}",
			ChatModel:      "gpt-4o-mini",
			EmbeddingModel: "text-embedding-3-small",
			MaxRetries:     2,
			TimeoutSeconds: 60,
		},
		Synth: SynthCfg{
			Temperature:   0.2,
			MaxTokens:     1024,
			HistoryWindow: 6,
		},
	}
}
