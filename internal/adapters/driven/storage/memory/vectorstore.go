package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/vectors"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

// DefaultIndexName labels the in-memory index in stats.
const DefaultIndexName = "memory"

var errClosed = errors.New("store is closed")

// VectorStore is an in-memory driven.VectorStore with an exact cosine scan.
type VectorStore struct {
	mu        sync.RWMutex
	name      string
	dimension int
	records   map[string]driven.VectorRecord
	closed    bool
}

// NewVectorStore creates an empty store. A dimension of zero is fixed by
// the first upsert.
func NewVectorStore(name string, dimension int) *VectorStore {
	if name == "" {
		name = DefaultIndexName
	}
	return &VectorStore{
		name:      name,
		dimension: dimension,
		records:   make(map[string]driven.VectorRecord),
	}
}

// Upsert inserts or replaces records by chunk ID. The batch is validated
// before anything is written.
func (s *VectorStore) Upsert(_ context.Context, records []driven.VectorRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, unavailable("upsert")
	}

	dim := s.dimension
	for _, r := range records {
		if r.Chunk.ID == "" {
			return 0, fmt.Errorf("%w: record has no chunk id", domain.ErrInvalidInput)
		}
		if dim == 0 {
			dim = len(r.Vector)
		}
		if err := vectors.CheckDimension(dim, r.Vector); err != nil {
			return 0, err
		}
	}
	s.dimension = dim

	for _, r := range records {
		s.records[r.Chunk.ID] = driven.VectorRecord{
			Chunk:  vectors.CloneChunk(r.Chunk),
			Vector: append([]float32(nil), r.Vector...),
		}
	}
	return len(records), nil
}

// Query scans every record passing filter.
func (s *VectorStore) Query(
	_ context.Context, vector []float32, topK int, filter *driven.VectorFilter,
) ([]driven.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, unavailable("query")
	}
	if err := vectors.CheckDimension(s.dimension, vector); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []driven.VectorHit{}, nil
	}

	hits := make([]driven.VectorHit, 0, len(s.records))
	for _, r := range s.records {
		if !filter.Matches(r.Chunk) {
			continue
		}
		hits = append(hits, driven.VectorHit{
			Chunk: vectors.CloneChunk(r.Chunk),
			Score: vectors.Cosine(vector, r.Vector),
		})
	}
	return vectors.Rank(hits, topK), nil
}

// DeleteDocument removes every record of a document.
func (s *VectorStore) DeleteDocument(_ context.Context, documentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, unavailable("delete")
	}

	n := 0
	for id, r := range s.records {
		if r.Chunk.DocumentID == documentID {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// PruneDocument removes the document's records not listed in keep.
func (s *VectorStore) PruneDocument(_ context.Context, documentID string, keep []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, unavailable("prune")
	}

	kept := make(map[string]struct{}, len(keep))
	for _, id := range keep {
		kept[id] = struct{}{}
	}
	n := 0
	for id, r := range s.records {
		if r.Chunk.DocumentID != documentID {
			continue
		}
		if _, ok := kept[id]; !ok {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

// Stats counts records per namespace.
func (s *VectorStore) Stats(_ context.Context) (domain.IndexStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return domain.IndexStats{}, unavailable("stats")
	}

	stats := domain.IndexStats{
		IndexName:    s.name,
		TotalVectors: len(s.records),
		Dimension:    s.dimension,
		Namespaces:   make(map[string]int),
	}
	for _, r := range s.records {
		stats.Namespaces[r.Chunk.Namespace()]++
	}
	return stats, nil
}

// Ping fails once the store is closed.
func (s *VectorStore) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return unavailable("ping")
	}
	return nil
}

// Close drops all records.
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}

func unavailable(op string) error {
	return domain.NewServiceError(domain.ErrStoreUnavailable, op, false, errClosed)
}
