package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
		{"ErrEmbeddingService", ErrEmbeddingService},
		{"ErrGenerationService", ErrGenerationService},
		{"ErrStoreUnavailable", ErrStoreUnavailable},
		{"ErrRateLimited", ErrRateLimited},
		{"ErrNotConfigured", ErrNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestDimensionMismatchError(t *testing.T) {
	var err error = &DimensionMismatchError{Expected: 768, Actual: 1536}

	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.False(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, "dimension mismatch: expected 768, got 1536", err.Error())

	wrapped := fmt.Errorf("embed batch 2: %w", err)
	var dm *DimensionMismatchError
	require.True(t, errors.As(wrapped, &dm))
	assert.Equal(t, 768, dm.Expected)
	assert.Equal(t, 1536, dm.Actual)
}

func TestServiceError_MatchesKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewServiceError(ErrStoreUnavailable, "upsert", true, cause)

	assert.True(t, errors.Is(err, ErrStoreUnavailable))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrEmbeddingService))
	assert.False(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, "vector store unavailable: upsert: connection refused", err.Error())
}

func TestServiceError_WithoutOp(t *testing.T) {
	err := NewServiceError(ErrGenerationService, "", false, errors.New("boom"))
	assert.Equal(t, "generation service error: boom", err.Error())
}

func TestNewRateLimitError(t *testing.T) {
	err := NewRateLimitError(ErrEmbeddingService, "embed", errors.New("429"))

	assert.True(t, err.Retryable)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.True(t, errors.Is(err, ErrEmbeddingService))

	var svc *ServiceError
	require.True(t, errors.As(fmt.Errorf("wrapped: %w", err), &svc))
	assert.Equal(t, "embed", svc.Op)
}

func TestIngestError(t *testing.T) {
	cause := NewServiceError(ErrStoreUnavailable, "upsert", true, errors.New("down"))

	t.Run("batched", func(t *testing.T) {
		err := &IngestError{DocumentID: "doc", Stage: StageUpsert, Batch: 2, Upserted: 32, Err: cause}
		assert.Contains(t, err.Error(), "upsert batch 2 failed after 32 chunks upserted")
		assert.True(t, errors.Is(err, ErrStoreUnavailable))
	})

	t.Run("unbatched", func(t *testing.T) {
		err := &IngestError{DocumentID: "doc", Stage: StageChunk, Batch: -1, Err: ErrInvalidInput}
		assert.Equal(t, "ingest doc: chunk failed: invalid input", err.Error())
		assert.True(t, errors.Is(err, ErrInvalidInput))
	})
}

func TestIsServiceError(t *testing.T) {
	assert.True(t, IsServiceError(NewServiceError(ErrEmbeddingService, "embed", false, nil)))
	assert.True(t, IsServiceError(fmt.Errorf("x: %w", ErrGenerationService)))
	assert.False(t, IsServiceError(ErrInvalidInput))
	assert.False(t, IsServiceError(&DimensionMismatchError{Expected: 1, Actual: 2}))
}
