// Package bedrock provides an LLM service adapter for Anthropic Claude
// models hosted on AWS Bedrock.
package bedrock

import (
	"context"
	"fmt"

	"github.com/custodia-labs/ragline/internal/adapters/driven/awsbedrock"
	"github.com/custodia-labs/ragline/internal/adapters/driven/llm/anthropic"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// Default configuration values.
const (
	DefaultModel = "anthropic.claude-3-5-sonnet-20240620-v1:0"

	bedrockAnthropicVersion = "bedrock-2023-05-31"
)

// Config holds configuration for the Bedrock LLM service.
type Config struct {
	// Region is the AWS region (default: us-east-1).
	Region string

	// Model is the Bedrock model ID.
	Model string
}

// LLMService generates answers through Bedrock InvokeModel using the
// Anthropic messages body.
type LLMService struct {
	api   awsbedrock.InvokeAPI
	model string
}

// NewLLMService loads AWS credentials and creates the service.
func NewLLMService(ctx context.Context, cfg Config) (*LLMService, error) {
	api, err := awsbedrock.NewRuntime(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	return NewWithAPI(api, cfg), nil
}

// NewWithAPI creates the service over an existing runtime client.
func NewWithAPI(api awsbedrock.InvokeAPI, cfg Config) *LLMService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &LLMService{api: api, model: cfg.Model}
}

// Generate produces text completion from a prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := anthropic.BuildRequest([]driven.ChatMessage{{Role: "user", Content: prompt}},
		driven.ChatOptions{MaxTokens: opts.MaxTokens, Temperature: opts.Temperature})
	req.StopSequences = opts.StopWords
	return s.invoke(ctx, "generate", req)
}

// Chat conducts a multi-turn conversation.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	req := anthropic.BuildRequest(messages, opts)
	if len(req.Messages) == 0 {
		return "", fmt.Errorf("%w: no user messages", domain.ErrInvalidInput)
	}
	return s.invoke(ctx, "chat", req)
}

func (s *LLMService) invoke(ctx context.Context, op string, req anthropic.Request) (string, error) {
	// The model travels as the ModelId parameter, not in the body.
	req.Model = ""
	req.AnthropicVersion = bedrockAnthropicVersion

	var resp anthropic.Response
	if err := awsbedrock.Invoke(ctx, s.api, s.model, domain.ErrGenerationService, op, req, &resp); err != nil {
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

// Ping runs a one-token completion. The runtime API has no cheaper
// liveness call.
func (s *LLMService) Ping(ctx context.Context) error {
	_, err := s.Chat(ctx, []driven.ChatMessage{{Role: "user", Content: "ping"}}, driven.ChatOptions{MaxTokens: 1})
	return err
}

// Close releases resources.
func (s *LLMService) Close() error {
	return nil
}
