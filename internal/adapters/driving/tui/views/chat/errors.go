package chat

import (
	"errors"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// ErrNoRAGService is reported when a question is asked without a RAG service.
var ErrNoRAGService = errors.New("rag service not available")

// errorText turns a query failure into a line for the transcript. Caller
// mistakes keep their detail; upstream failures are reported by kind.
func errorText(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "Rate limited, please try again in a moment."
	case errors.Is(err, domain.ErrDimensionMismatch):
		return "The embedding model and the vector store disagree on vector size; check the settings."
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrNotFound):
		return err.Error()
	case errors.Is(err, domain.ErrEmbeddingService):
		return "The embedding service is unavailable."
	case errors.Is(err, domain.ErrGenerationService):
		return "The language model is unavailable."
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "The vector store is unavailable."
	case errors.Is(err, domain.ErrNotConfigured):
		return "The pipeline is not configured; run 'ragline settings'."
	}
	return err.Error()
}
