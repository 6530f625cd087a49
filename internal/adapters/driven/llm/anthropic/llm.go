// Package anthropic provides an LLM service adapter using the Anthropic
// Messages API.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/ragline/internal/adapters/driven/apierr"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"
)

// Config holds configuration for the Anthropic LLM service.
type Config struct {
	// APIKey is the Anthropic API key (required).
	APIKey string

	// BaseURL is the API base URL (default: https://api.anthropic.com).
	BaseURL string

	// Model is the LLM model to use (default: claude-3-5-sonnet-latest).
	Model string

	// Timeout is the request timeout (default: 120s).
	Timeout time.Duration
}

// LLMService provides LLM operations using the Anthropic API.
type LLMService struct {
	api   *apierr.Client
	model string
}

// Message is one Messages API turn. The bedrock adapter reuses the
// request and response shapes.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the Messages API request body.
type Request struct {
	AnthropicVersion string    `json:"anthropic_version,omitempty"`
	Model            string    `json:"model,omitempty"`
	Messages         []Message `json:"messages"`
	MaxTokens        int       `json:"max_tokens"`
	System           string    `json:"system,omitempty"`
	Temperature      float64   `json:"temperature,omitempty"`
	StopSequences    []string  `json:"stop_sequences,omitempty"`
}

// Response is the Messages API response body.
type Response struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Text concatenates the text blocks of a response.
func (r Response) Text() (string, error) {
	var b strings.Builder
	for _, block := range r.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("no text content returned (stop reason %q)", r.StopReason)
	}
	return b.String(), nil
}

// BuildRequest splits system messages out of the conversation, since the
// Messages API takes the system prompt as a separate field.
func BuildRequest(messages []driven.ChatMessage, opts driven.ChatOptions) Request {
	req := Request{MaxTokens: opts.MaxTokens, Temperature: opts.Temperature}
	if req.MaxTokens == 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	var system []string
	for _, m := range messages {
		if m.Role == "system" {
			system = append(system, m.Content)
			continue
		}
		req.Messages = append(req.Messages, Message{Role: m.Role, Content: m.Content})
	}
	req.System = strings.Join(system, "\n\n")
	return req
}

// NewLLMService creates a new Anthropic LLM service.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic: API key is required", domain.ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMService{
		api: &apierr.Client{
			HTTP:    &http.Client{Timeout: cfg.Timeout},
			BaseURL: cfg.BaseURL,
			Headers: map[string]string{
				"x-api-key":         cfg.APIKey,
				"anthropic-version": anthropicVersion,
			},
			Kind: domain.ErrGenerationService,
		},
		model: cfg.Model,
	}, nil
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := BuildRequest([]driven.ChatMessage{{Role: "user", Content: prompt}},
		driven.ChatOptions{MaxTokens: opts.MaxTokens, Temperature: opts.Temperature})
	req.StopSequences = opts.StopWords
	return s.send(ctx, "generate", req)
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := BuildRequest(messages, opts)
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("%w: no user messages", domain.ErrInvalidInput)
	}
	return s.send(ctx, "chat", req)
}

func (s *LLMService) send(ctx context.Context, op string, req Request) (string, error) {
	req.Model = s.model
	var resp Response
	if err := s.api.PostJSON(ctx, op, "/v1/messages", req, &resp); err != nil {
		return "", err
	}
	text, err := resp.Text()
	if err != nil {
		return "", domain.NewServiceError(domain.ErrGenerationService, op, false, err)
	}
	return text, nil
}

// ModelName returns the name of the LLM model being used.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which validates the key without running inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "ping", "/v1/models", nil)
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
