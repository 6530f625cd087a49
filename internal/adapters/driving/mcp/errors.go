// Package mcp provides an MCP (Model Context Protocol) server adapter for ragline.
// It lets AI assistants ask grounded questions and add documents to the index.
package mcp

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/logger"
)

// ErrMissingRAGService is returned when the RAG service is not provided.
var ErrMissingRAGService = errors.New("mcp: rag service is required")

// toolError reduces err to a message safe to hand to the client.
// Caller mistakes keep their detail; everything else is reported by kind.
func toolError(op string, err error) error {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return fmt.Errorf("%s: %w, please try again later", op, domain.ErrRateLimited)
	case errors.Is(err, domain.ErrDimensionMismatch):
		logger.Logger().Error().Err(err).Str("tool", op).
			Msg("Vector dimension mismatch: embedding model and vector store are misconfigured")
		return fmt.Errorf("%s: internal error", op)
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrUnsupportedType):
		return fmt.Errorf("%s: %w", op, err)
	}
	for _, kind := range []error{
		domain.ErrEmbeddingService,
		domain.ErrGenerationService,
		domain.ErrStoreUnavailable,
		domain.ErrNotConfigured,
	} {
		if errors.Is(err, kind) {
			logger.Logger().Warn().Err(err).Str("tool", op).Msg("Tool failed")
			return fmt.Errorf("%s: %w", op, kind)
		}
	}
	logger.Logger().Error().Err(err).Str("tool", op).Msg("Tool failed")
	return fmt.Errorf("%s: internal error", op)
}
