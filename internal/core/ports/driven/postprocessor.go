package driven

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// PostProcessor processes document content to produce chunks.
// PostProcessors are chained in a pipeline (e.g., chunking, page tagging).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and returns chunks.
	// A processor that creates chunks (the chunker) receives nil.
	// A processor that decorates chunks receives and returns them.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}

// PipelineBuilder builds a pipeline for one ingestion, so window sizes can
// differ per request.
type PipelineBuilder interface {
	// Build returns a pipeline whose chunker uses the given window settings.
	Build(maxChunkChars, overlapChars int) (PostProcessorPipeline, error)
}
