package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/retry"
	"github.com/custodia-labs/ragline/internal/logger"
)

// fetchMultiplier over-fetches candidates so filtering can still fill top_k.
const fetchMultiplier = 2

// Retriever finds the chunks most similar to a query.
type Retriever struct {
	embedder *Embedder
	store    driven.VectorStore
	policy   retry.Policy
}

// NewRetriever creates a retriever.
func NewRetriever(embedder *Embedder, store driven.VectorStore, policy retry.Policy) *Retriever {
	return &Retriever{embedder: embedder, store: store, policy: policy}
}

// Retrieve embeds the query and returns at most topK results scoring at
// least minScore, sorted by descending score then ascending chunk ID,
// deduplicated by chunk ID and densely ranked from 1. Fewer than topK
// results are returned when fewer qualify.
func (r *Retriever) Retrieve(
	ctx context.Context, query string, topK int, minScore float64, filter *driven.VectorFilter,
) ([]domain.RetrievalResult, error) {
	logger.Section("Retrieval")

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrInvalidInput, topK)
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}

	fetch := topK * fetchMultiplier
	logger.Debug("Querying store: top_k=%d fetch=%d min_score=%.3f", topK, fetch, minScore)

	hits, err := retry.Do(ctx, r.policy, "query", func(ctx context.Context) ([]driven.VectorHit, error) {
		return r.store.Query(ctx, vector, fetch, filter)
	})
	if err != nil {
		return nil, storeError("query", err)
	}

	results := make([]domain.RetrievalResult, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		if math.IsNaN(h.Score) || h.Score < minScore {
			continue
		}
		if _, dup := seen[h.Chunk.ID]; dup {
			continue
		}
		seen[h.Chunk.ID] = struct{}{}
		results = append(results, domain.RetrievalResult{Chunk: h.Chunk, Score: h.Score})
	}

	domain.SortResults(results)
	if len(results) > topK {
		results = results[:topK]
	}

	logger.Debug("Retrieved %d of %d candidates", len(results), len(hits))
	return results, nil
}

// storeError tags untyped store failures as StoreUnavailable. Typed errors
// (dimension mismatch, invalid input, existing service errors) pass through.
func storeError(op string, err error) error {
	if domain.IsServiceError(err) ||
		errors.Is(err, domain.ErrDimensionMismatch) ||
		errors.Is(err, domain.ErrInvalidInput) ||
		errors.Is(err, context.Canceled) {
		return err
	}
	return domain.NewServiceError(domain.ErrStoreUnavailable, op, false, err)
}
