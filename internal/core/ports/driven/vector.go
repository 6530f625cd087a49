package driven

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// VectorStore persists chunk vectors and answers similarity queries.
//
// Implementations must:
//   - treat Upsert as idempotent per chunk ID (re-upserting overwrites)
//   - return Query hits by descending similarity, ties by ascending chunk ID
//   - fail with *domain.DimensionMismatchError when a vector disagrees
//     with the index dimension
//   - fail with a *domain.ServiceError of Kind domain.ErrStoreUnavailable
//     on connection or service failure
type VectorStore interface {
	// Upsert inserts or replaces records and returns how many were written.
	Upsert(ctx context.Context, records []VectorRecord) (int, error)

	// Query returns up to topK nearest records to vector.
	Query(ctx context.Context, vector []float32, topK int, filter *VectorFilter) ([]VectorHit, error)

	// DeleteDocument removes every record belonging to a document.
	// Returns the number of records removed.
	DeleteDocument(ctx context.Context, documentID string) (int, error)

	// PruneDocument removes the document's records whose chunk IDs are not
	// in keep. Returns the number of records removed.
	PruneDocument(ctx context.Context, documentID string, keep []string) (int, error)

	// Stats reports record counts and the index dimension.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// Ping performs a lightweight liveness check.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// VectorRecord is a chunk with its embedding.
type VectorRecord struct {
	// Chunk carries the chunk ID, text and metadata stored alongside the vector.
	Chunk domain.Chunk

	// Vector is the chunk embedding.
	Vector []float32
}

// VectorFilter restricts a query. Empty fields do not filter.
type VectorFilter struct {
	// Namespace limits results to one namespace.
	Namespace string

	// DocumentIDs limits results to the listed documents.
	DocumentIDs []string
}

// Matches reports whether a chunk passes the filter.
func (f *VectorFilter) Matches(c domain.Chunk) bool {
	if f == nil {
		return true
	}
	if f.Namespace != "" && c.Namespace() != f.Namespace {
		return false
	}
	if len(f.DocumentIDs) == 0 {
		return true
	}
	for _, id := range f.DocumentIDs {
		if id == c.DocumentID {
			return true
		}
	}
	return false
}

// VectorHit represents a similarity search result.
type VectorHit struct {
	// Chunk is the matched chunk.
	Chunk domain.Chunk

	// Score is the cosine similarity.
	Score float64
}
