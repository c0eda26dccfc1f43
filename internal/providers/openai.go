package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const OpenAIClientName = "openai"

// OpenAIConfig configures the OpenAI chat client.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string // optional override for compatible gateways
	DefaultModel string
	MaxRetries   int
	Timeout      time.Duration
	Logger       *slog.Logger
}

// OpenAIClient is an LLMClient backed by the OpenAI chat completions API.
type OpenAIClient struct {
	client       openai.Client
	defaultModel string
	timeout      time.Duration
	logger       *slog.Logger
}

// NewOpenAIClient creates a chat client, filling unset config with defaults.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	model := cfg.DefaultModel
	if model == "" {
		model = "gpt-4o-mini"
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 2
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(maxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	return &OpenAIClient{
		client:       openai.NewClient(opts...),
		defaultModel: model,
		timeout:      timeout,
		logger:       logger,
	}, nil
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIClientName
}

// Chat sends a chat completion request. When req.ResponseFormat is set
// the response is parsed and validated locally against the schema, with
// bounded repair round-trips on parse or validation failure.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()[:8]
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.timeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := toOpenAIMessages(req.Messages)
	result := &ChatResult{
		Provider:  OpenAIClientName,
		RequestID: requestID,
	}

	attempts := 1
	if req.ResponseFormat != nil {
		attempts += maxStructuredRepairAttempts
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		result.Attempts = attempt
		content, usage, model, err := c.complete(ctx, req, messages)
		if err != nil {
			return nil, fmt.Errorf("chat completion failed (request %s): %w", requestID, err)
		}
		result.Content = content
		result.PromptTokens += usage.prompt
		result.CompletionTokens += usage.completion
		result.TotalTokens = result.PromptTokens + result.CompletionTokens
		result.ModelUsed = model

		if req.ResponseFormat == nil {
			result.ExecutionTime = time.Since(start)
			return result, nil
		}

		parsed, err := parseStructuredJSON(content)
		if err == nil {
			err = validateStructuredJSON(req.ResponseFormat.JSONSchema, parsed)
		}
		if err == nil {
			result.ParsedJSON = parsed
			result.ExecutionTime = time.Since(start)
			return result, nil
		}
		lastErr = err

		c.logger.Warn("structured output invalid, requesting repair",
			"request_id", requestID,
			"attempt", attempt,
			"error", err)
		messages = append(messages,
			openai.AssistantMessage(content),
			openai.UserMessage(structuredRepairPrompt(req.ResponseFormat.JSONSchema, content, err)),
		)
	}
	return nil, fmt.Errorf("structured output invalid after %d attempts (request %s): %w", attempts, requestID, lastErr)
}

type tokenUsage struct {
	prompt     int
	completion int
}

func (c *OpenAIClient) complete(ctx context.Context, req *ChatRequest, messages []openai.ChatCompletionMessageParamUnion) (string, tokenUsage, string, error) {
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxTokens))
	}
	if rf := req.ResponseFormat; rf != nil && len(rf.JSONSchema) > 0 {
		schemaParam, err := toJSONSchemaParam(rf.JSONSchema)
		if err != nil {
			return "", tokenUsage{}, "", err
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: schemaParam,
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", tokenUsage{}, "", err
	}
	if len(resp.Choices) == 0 {
		return "", tokenUsage{}, "", fmt.Errorf("no choices in response")
	}
	usage := tokenUsage{
		prompt:     int(resp.Usage.PromptTokens),
		completion: int(resp.Usage.CompletionTokens),
	}
	return resp.Choices[0].Message.Content, usage, resp.Model, nil
}

// toJSONSchemaParam converts the canonical wrapper into the SDK's
// response format parameter.
func toJSONSchemaParam(schemaRaw json.RawMessage) (*openai.ResponseFormatJSONSchemaParam, error) {
	var wrapper struct {
		Name   string          `json:"name"`
		Strict bool            `json:"strict"`
		Schema json.RawMessage `json:"schema"`
	}
	if err := json.Unmarshal(schemaRaw, &wrapper); err != nil {
		return nil, fmt.Errorf("invalid response format schema: %w", err)
	}
	name := wrapper.Name
	if name == "" {
		name = "response"
	}
	inner := wrapper.Schema
	if len(inner) == 0 {
		inner = schemaRaw
	}
	var schemaDoc any
	if err := json.Unmarshal(inner, &schemaDoc); err != nil {
		return nil, fmt.Errorf("invalid response format schema body: %w", err)
	}
	return &openai.ResponseFormatJSONSchemaParam{
		JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   name,
			Strict: openai.Bool(true),
			Schema: schemaDoc,
		},
	}, nil
}

func toOpenAIMessages(messages []Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			out = append(out, openai.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// Verify interface
var _ LLMClient = (*OpenAIClient)(nil)
