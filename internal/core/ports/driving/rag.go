package driving

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// RAGService is the pipeline's downstream boundary.
type RAGService interface {
	// Ingest chunks, embeds and upserts a document's text.
	// Partial failures return *domain.IngestError; upserted chunks remain.
	Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error)

	// Query answers a question from the indexed documents.
	Query(ctx context.Context, req QueryRequest) (*domain.ConversationTurn, error)

	// DeleteDocument removes a document's vectors.
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	// Health checks liveness of the embedding service, vector store and LLM.
	Health(ctx context.Context) domain.HealthStatus

	// Stats passes through the vector store statistics.
	Stats(ctx context.Context) (*domain.IndexStats, error)
}

// IngestRequest carries one document's text.
type IngestRequest struct {
	// DocumentID identifies the document. Empty means one is generated.
	DocumentID string

	// Text is the full document text.
	Text string

	// Title and Source are copied into chunk metadata for citations.
	Title  string
	Source string

	// Namespace partitions the vector store.
	Namespace string

	// Metadata is copied onto every chunk.
	Metadata map[string]string

	// MaxChunkChars overrides the configured max_chunk_chars when positive.
	MaxChunkChars int

	// OverlapChars overrides the configured overlap_chars when set. When
	// nil, the configured overlap is kept if it fits the window, else 0.
	OverlapChars *int

	// Replace removes the document's chunks that the new version no longer
	// has, after the new chunks are written. A failed ingestion leaves the
	// previous version in place.
	Replace bool
}

// IngestResult reports what an ingestion wrote.
type IngestResult struct {
	DocumentID    string `json:"document_id"`
	ChunksCreated int    `json:"chunks_created"`
	Batches       int    `json:"batches"`
}

// QueryRequest carries one question.
type QueryRequest struct {
	// Text is the question.
	Text string

	// ConversationID links turns. Empty starts a new conversation.
	ConversationID string

	// History is caller-supplied prior messages. When empty and a
	// conversation store is configured, stored turns are used instead.
	History []domain.HistoryMessage

	// Namespace restricts retrieval to one namespace.
	Namespace string

	// TopK overrides the configured retrieval_top_k when positive.
	TopK int
}
