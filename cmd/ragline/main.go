// Command ragline ingests documents into a vector index and answers
// questions about them with a generation model.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/ragline/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragline/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragline/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/core/services"
	"github.com/custodia-labs/ragline/internal/normalisers"
	"github.com/custodia-labs/ragline/internal/normalisers/markdown"
	"github.com/custodia-labs/ragline/internal/normalisers/plaintext"
	"github.com/custodia-labs/ragline/internal/postprocessors"
)

var version = "dev"

func main() {
	// A missing .env is fine; the environment and config file still apply.
	_ = godotenv.Load()

	cli.SetVersion(version)
	cli.Configure(openSettings, buildRuntime)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func openSettings(configPath string) (driving.SettingsService, error) {
	store, err := file.NewConfigStore(configPath)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	return services.NewSettingsService(store), nil
}

func buildRuntime(ctx context.Context, settings domain.AppSettings) (*cli.Runtime, error) {
	components, err := ai.Build(ctx, settings, ai.BuildOptions{})
	if err != nil {
		return nil, err
	}

	prompts, err := file.NewPromptStore("")
	if err != nil {
		components.Close()
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	opts := []services.RAGOption{
		services.WithPromptStore(prompts),
		services.WithChatOptions(driven.ChatOptions{
			MaxTokens:   settings.LLM.MaxTokens,
			Temperature: settings.LLM.Temperature,
		}),
		services.WithDimension(settings.VectorStore.Dimensions),
	}
	if components.Conversations != nil {
		opts = append(opts, services.WithConversationStore(components.Conversations))
	}

	rag := services.NewRAGService(
		components.Embedding,
		components.Store,
		components.LLM,
		postprocessors.NewDefaultBuilder(),
		settings.RAG,
		opts...,
	)
	registry := normalisers.NewRegistry(plaintext.New(), markdown.New())

	return &cli.Runtime{
		RAG:       rag,
		Documents: services.NewDocumentService(rag, registry),
		Close:     components.Close,
	}, nil
}
