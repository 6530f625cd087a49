package ratelimit

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Ensure decorators implement the interfaces.
var (
	_ driven.EmbeddingService = (*EmbeddingService)(nil)
	_ driven.LLMService       = (*LLMService)(nil)
)

// EmbeddingService throttles an embedding service. Ping is not throttled.
type EmbeddingService struct {
	driven.EmbeddingService
	limiter *Limiter
}

// WrapEmbedding returns next unchanged when cfg is disabled.
func WrapEmbedding(next driven.EmbeddingService, cfg Config) driven.EmbeddingService {
	if !cfg.Enabled() {
		return next
	}
	return &EmbeddingService{EmbeddingService: next, limiter: NewLimiter(cfg)}
}

// Embed waits for a token, then embeds.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	v, err := s.EmbeddingService.Embed(ctx, text)
	s.limiter.Observe(err)
	return v, err
}

// EmbedBatch spends one token per upstream call.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	v, err := s.EmbeddingService.EmbedBatch(ctx, texts)
	s.limiter.Observe(err)
	return v, err
}

// LLMService throttles a generation service. Ping is not throttled.
type LLMService struct {
	driven.LLMService
	limiter *Limiter
}

// WrapLLM returns next unchanged when cfg is disabled.
func WrapLLM(next driven.LLMService, cfg Config) driven.LLMService {
	if !cfg.Enabled() {
		return next
	}
	return &LLMService{LLMService: next, limiter: NewLimiter(cfg)}
}

// Generate waits for a token, then generates.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	out, err := s.LLMService.Generate(ctx, prompt, opts)
	s.limiter.Observe(err)
	return out, err
}

// Chat waits for a token, then chats.
func (s *LLMService) Chat(ctx context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	out, err := s.LLMService.Chat(ctx, messages, opts)
	s.limiter.Observe(err)
	return out, err
}
