// Package ai provides factory functions that build the driven adapters
// from application settings.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	bedrockembed "github.com/custodia-labs/ragline/internal/adapters/driven/embedding/bedrock"
	ollamaembed "github.com/custodia-labs/ragline/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/ragline/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/ragline/internal/adapters/driven/llm/anthropic"
	bedrockllm "github.com/custodia-labs/ragline/internal/adapters/driven/llm/bedrock"
	ollamallm "github.com/custodia-labs/ragline/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/ragline/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/ragline/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/postgres"
	redisstore "github.com/custodia-labs/ragline/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Components holds the driven adapters for one run.
type Components struct {
	Embedding     driven.EmbeddingService
	LLM           driven.LLMService // nil when no LLM is configured
	Store         driven.VectorStore
	Conversations driven.ConversationStore // nil when the backend is "none"
	Warnings      []string                 // Non-fatal issues found while pinging.
}

// Close releases all resources held by the components.
func (c *Components) Close() {
	if c.Embedding != nil {
		c.Embedding.Close()
	}
	if c.LLM != nil {
		c.LLM.Close()
	}
	if c.Store != nil {
		c.Store.Close()
	}
	if c.Conversations != nil {
		c.Conversations.Close()
	}
}

// BuildOptions tunes Build.
type BuildOptions struct {
	// SkipPing skips the connectivity checks.
	SkipPing bool

	// RequireLLM fails when no LLM is configured, instead of leaving it nil.
	RequireLLM bool
}

// Build validates settings and creates every adapter. Ping failures of the
// AI services are reported as warnings; the health endpoint reflects them.
func Build(ctx context.Context, settings domain.AppSettings, opts BuildOptions) (*Components, error) {
	if err := settings.RAG.Validate(); err != nil {
		return nil, err
	}

	c := &Components{}
	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	emb, err := CreateEmbeddingService(ctx, settings.Embedding)
	if err != nil {
		return nil, err
	}
	c.Embedding = ratelimit.WrapEmbedding(emb, ratelimit.Config{
		RequestsPerSecond: settings.RateLimit.EmbeddingRPS,
		BurstSize:         settings.RateLimit.EmbeddingBurst,
	})

	if settings.LLM.IsConfigured() {
		llm, err := CreateLLMService(ctx, settings.LLM)
		if err != nil {
			return nil, err
		}
		c.LLM = ratelimit.WrapLLM(llm, ratelimit.Config{
			RequestsPerSecond: settings.RateLimit.LLMRPS,
			BurstSize:         settings.RateLimit.LLMBurst,
		})
	} else if opts.RequireLLM {
		return nil, fmt.Errorf("%w: llm provider %q", domain.ErrNotConfigured, settings.LLM.Provider)
	}

	store, err := CreateVectorStore(ctx, settings.VectorStore)
	if err != nil {
		return nil, err
	}
	c.Store = store

	conversations, err := CreateConversationStore(ctx, settings.Conversation)
	if err != nil {
		return nil, err
	}
	c.Conversations = conversations

	if !opts.SkipPing {
		c.Warnings = c.ping(ctx)
		for _, w := range c.Warnings {
			logger.Warn("%s", w)
		}
	}

	ok = true
	return c, nil
}

func (c *Components) ping(ctx context.Context) []string {
	var warnings []string
	check := func(name string, ping func(context.Context) error) {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		if err := ping(pctx); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s unreachable: %v", name, err))
		}
	}
	check(domain.ComponentEmbedding, c.Embedding.Ping)
	if c.LLM != nil {
		check(domain.ComponentLLM, c.LLM.Ping)
	}
	return warnings
}

// CreateEmbeddingService creates the embedding service named by settings.
func CreateEmbeddingService(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		if settings.Provider == domain.AIProviderAnthropic {
			return nil, fmt.Errorf("%w: anthropic does not provide embeddings, use ollama, openai or bedrock",
				domain.ErrUnsupportedType)
		}
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrNotConfigured, settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderBedrock:
		svc, err := bedrockembed.NewEmbeddingService(ctx, bedrockembed.Config{
			Region:     settings.Region,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the LLM service named by settings.
func CreateLLMService(ctx context.Context, settings domain.LLMSettings) (driven.LLMService, error) {
	if !settings.IsConfigured() {
		return nil, fmt.Errorf("%w: llm provider %q", domain.ErrNotConfigured, settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		svc, err := openaillm.NewLLMService(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderAnthropic:
		svc, err := anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderBedrock:
		svc, err := bedrockllm.NewLLMService(ctx, bedrockllm.Config{
			Region: settings.Region,
			Model:  settings.Model,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	default:
		return nil, fmt.Errorf("%w: llm provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateVectorStore opens the configured vector store backend.
func CreateVectorStore(ctx context.Context, settings domain.VectorStoreSettings) (driven.VectorStore, error) {
	switch settings.Backend {
	case domain.StoreMemory:
		return memory.NewVectorStore(settings.IndexName, settings.Dimensions), nil

	case domain.StoreSQLite:
		store, err := sqlite.NewVectorStore(ctx, settings.Path, sqlite.Options{
			IndexName:  settings.IndexName,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	case domain.StorePostgres:
		if settings.DSN == "" {
			return nil, fmt.Errorf("%w: postgres backend requires vector_store.dsn", domain.ErrInvalidInput)
		}
		store, err := postgres.NewVectorStore(ctx, settings.DSN, postgres.Options{
			Table:      settings.IndexName,
			Dimensions: settings.Dimensions,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: vector store backend %q", domain.ErrInvalidInput, settings.Backend)
	}
}

// CreateConversationStore opens the configured conversation backend.
// The "none" backend returns a nil store.
func CreateConversationStore(
	ctx context.Context, settings domain.ConversationSettings,
) (driven.ConversationStore, error) {
	switch settings.Backend {
	case domain.ConversationNone, "":
		return nil, nil

	case domain.ConversationMemory:
		return memory.NewConversationStore(settings.MaxTurns), nil

	case domain.ConversationRedis:
		store, err := redisstore.Connect(ctx, redisstore.Options{
			Addr:     settings.Addr,
			Password: settings.Password,
			DB:       settings.DB,
			TTL:      settings.TTL,
			MaxTurns: settings.MaxTurns,
		})
		if err != nil {
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: conversation backend %q", domain.ErrInvalidInput, settings.Backend)
	}
}

// IsMisconfiguration reports errors a restart with the same settings
// will not fix.
func IsMisconfiguration(err error) bool {
	return errors.Is(err, domain.ErrNotConfigured) || errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, domain.ErrUnsupportedType) || errors.Is(err, domain.ErrDimensionMismatch)
}
