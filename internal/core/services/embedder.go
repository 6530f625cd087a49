package services

import (
	"context"
	"errors"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/retry"
	"github.com/custodia-labs/ragline/internal/logger"
)

// BatchError identifies the embedding batch that failed.
type BatchError struct {
	// Index is the zero-based batch number.
	Index int

	// Start and End delimit the batch within the input, End exclusive.
	Start, End int

	Err error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d [%d:%d]: %v", e.Index, e.Start, e.End, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// Embedder turns texts into vectors through an EmbeddingService.
// Inputs are split into batches which run concurrently up to a limit;
// output order always matches input order.
type Embedder struct {
	service     driven.EmbeddingService
	policy      retry.Policy
	batchSize   int
	concurrency int
	dimension   int
}

// NewEmbedder creates an embedder. A dimension of 0 falls back to the
// service's reported dimension.
func NewEmbedder(service driven.EmbeddingService, settings domain.RAGSettings, dimension int) *Embedder {
	if dimension <= 0 && service != nil {
		dimension = service.Dimensions()
	}
	batchSize := settings.EmbeddingBatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	concurrency := settings.MaxConcurrentEmbeddingBatches
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Embedder{
		service:     service,
		policy:      retry.FromSettings(settings),
		batchSize:   batchSize,
		concurrency: concurrency,
		dimension:   dimension,
	}
}

// Dimension returns the enforced vector size, or 0 when unknown.
func (e *Embedder) Dimension() int {
	return e.dimension
}

// ModelName returns the underlying model name.
func (e *Embedder) ModelName() string {
	return e.service.ModelName()
}

// EmbedTexts returns one vector per text, in input order.
// An empty input makes no service call.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	batches := (len(texts) + e.batchSize - 1) / e.batchSize
	logger.Debug("Embedding %d texts in %d batches (size %d, concurrency %d)",
		len(texts), batches, e.batchSize, e.concurrency)

	results := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for b := 0; b < batches; b++ {
		start := b * e.batchSize
		end := min(start+e.batchSize, len(texts))

		g.Go(func() error {
			vectors, err := e.embedBatch(gctx, texts[start:end])
			if err != nil {
				return &BatchError{Index: b, Start: start, End: end, Err: err}
			}
			copy(results[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// EmbedQuery embeds a single text.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		var batchErr *BatchError
		if errors.As(err, &batchErr) {
			return nil, batchErr.Err
		}
		return nil, err
	}
	return vectors[0], nil
}

// EmbedChunks embeds chunk contents and binds each vector to its chunk.
func (e *Embedder) EmbedChunks(ctx context.Context, chunks []domain.Chunk) ([]domain.EmbeddingVector, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := e.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}

	out := make([]domain.EmbeddingVector, len(chunks))
	for i, c := range chunks {
		out[i] = domain.EmbeddingVector{OwnerChunkID: c.ID, Values: vectors[i]}
	}
	return out, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := retry.Do(ctx, e.policy, "embed", func(ctx context.Context) ([][]float32, error) {
		return e.service.EmbedBatch(ctx, texts)
	})
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingService) || errors.Is(err, domain.ErrDimensionMismatch) {
			return nil, err
		}
		return nil, domain.NewServiceError(domain.ErrEmbeddingService, "embed", false, err)
	}

	if len(vectors) != len(texts) {
		return nil, domain.NewServiceError(domain.ErrEmbeddingService, "embed", false,
			fmt.Errorf("service returned %d vectors for %d texts", len(vectors), len(texts)))
	}
	for _, v := range vectors {
		if err := e.checkVector(v); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

// checkVector rejects vectors of the wrong size and vectors holding NaN or
// infinite components, which would poison similarity scores.
func (e *Embedder) checkVector(v []float32) error {
	got := len(v)
	if e.dimension > 0 && got != e.dimension {
		logger.Error("Embedding dimension mismatch: model %s returned %d, index expects %d",
			e.service.ModelName(), got, e.dimension)
		return &domain.DimensionMismatchError{Expected: e.dimension, Actual: got}
	}
	if got == 0 {
		return domain.NewServiceError(domain.ErrEmbeddingService, "embed", false, errors.New("empty vector"))
	}
	for i, x := range v {
		if f := float64(x); math.IsNaN(f) || math.IsInf(f, 0) {
			return domain.NewServiceError(domain.ErrEmbeddingService, "embed", false,
				fmt.Errorf("component %d is not finite", i))
		}
	}
	return nil
}
