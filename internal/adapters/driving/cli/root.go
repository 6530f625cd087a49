// Package cli implements the ragline command line on cobra.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/logger"
)

// version is set at build time with -ldflags.
var version = "dev"

// Runtime holds the services of one command run that talks to the pipeline.
type Runtime struct {
	RAG       driving.RAGService
	Documents driving.DocumentService

	// Close releases the adapters. May be nil.
	Close func()
}

// SettingsFactory opens the settings service for a config file path.
// An empty path selects the default location.
type SettingsFactory func(configPath string) (driving.SettingsService, error)

// RuntimeBuilder wires the pipeline from loaded settings.
type RuntimeBuilder func(ctx context.Context, settings domain.AppSettings) (*Runtime, error)

var (
	ragService      driving.RAGService
	documentService driving.DocumentService
	settingsService driving.SettingsService

	settingsFactory SettingsFactory
	runtimeBuilder  RuntimeBuilder
	runtimeClose    func()
)

var (
	configPath string
	verbose    bool
	logFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "ragline",
	Short: "Retrieval-augmented question answering over your documents",
	Long: `ragline chunks and embeds documents into a vector store and answers
questions from them with an LLM, citing the chunks it used.

Ingest files or text, then ask questions from the command line, the chat
TUI, the HTTP API (ragline serve) or an MCP client (ragline mcp serve).`,
	SilenceUsage:      true,
	PersistentPreRunE: persistentPreRun,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		closeRuntime()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.ragline/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logger.FormatConsole), "log format: console or json")
}

// Configure installs the factories used to build services on demand.
func Configure(settings SettingsFactory, runtime RuntimeBuilder) {
	settingsFactory = settings
	runtimeBuilder = runtime
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func persistentPreRun(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	switch logger.Format(logFormat) {
	case logger.FormatConsole, logger.FormatJSON:
		logger.SetFormat(logger.Format(logFormat))
	default:
		return fmt.Errorf("%w: log format %q", domain.ErrInvalidInput, logFormat)
	}

	if settingsService == nil && settingsFactory != nil {
		svc, err := settingsFactory(configPath)
		if err != nil {
			return fmt.Errorf("open settings: %w", err)
		}
		settingsService = svc
	}
	return nil
}

// loadSettings returns the effective settings.
func loadSettings() (*domain.AppSettings, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}
	return settingsService.Get()
}

// requireRAG builds the pipeline on first use.
func requireRAG(cmd *cobra.Command) error {
	if ragService != nil {
		return nil
	}
	if runtimeBuilder == nil {
		return errors.New("rag service not configured")
	}

	settings, err := loadSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	rt, err := runtimeBuilder(commandContext(cmd), *settings)
	if err != nil {
		return fmt.Errorf("initialise pipeline: %w", err)
	}
	ragService = rt.RAG
	documentService = rt.Documents
	runtimeClose = rt.Close
	return nil
}

// requireDocuments is requireRAG for commands that ingest files.
func requireDocuments(cmd *cobra.Command) error {
	if err := requireRAG(cmd); err != nil {
		return err
	}
	if documentService == nil {
		return errors.New("document service not configured")
	}
	return nil
}

func closeRuntime() {
	if runtimeClose != nil {
		runtimeClose()
		runtimeClose = nil
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
