package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/ragline/internal/adapters/driving/api"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Serves the RAG pipeline over HTTP:

  POST   /api/v1/chat               ask a question
  POST   /api/v1/documents          ingest JSON text
  POST   /api/v1/documents/upload   ingest a raw .txt or .md body
  DELETE /api/v1/documents/{id}     delete a document
  GET    /api/v1/health             component health
  GET    /api/v1/stats              vector store statistics
  GET    /api/v1/openapi.json       OpenAPI description

Clients are limited to rate_limit.requests_per_minute requests per minute.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from server.addr)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if err := requireRAG(cmd); err != nil {
		return err
	}

	cfg := api.ConfigFromSettings(*settings, version)
	if serveAddr != "" {
		cfg.Addr = serveAddr
	}

	server, err := api.NewServer(cfg, ragService, documentService)
	if err != nil {
		return err
	}

	cmd.Printf("HTTP API listening on %s\n", server.Addr())
	return server.Run(commandContext(cmd))
}
