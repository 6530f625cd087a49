package services

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/ragline/internal/core/retry"
)

func newTestRetriever(t *testing.T) (*Retriever, *mocks.MockEmbeddingService, *mocks.MockVectorStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	emb := mocks.NewMockEmbeddingService(ctrl)
	emb.EXPECT().Dimensions().Return(3).AnyTimes()
	emb.EXPECT().ModelName().Return("test-embed").AnyTimes()
	store := mocks.NewMockVectorStore(ctrl)

	settings := testSettings()
	r := NewRetriever(NewEmbedder(emb, settings, 3), store, retry.FromSettings(settings))
	return r, emb, store
}

func hit(id string, score float64) driven.VectorHit {
	doc, idx, _ := domain.ParseChunkID(id)
	return driven.VectorHit{Chunk: chunk(doc, idx, "text of "+id), Score: score}
}

func TestRetriever_FiltersDedupsSortsTruncates(t *testing.T) {
	r, emb, store := newTestRetriever(t)
	queryVec := []float32{1, 0, 0}

	emb.EXPECT().EmbedBatch(gomock.Any(), []string{"what is ragline"}).Return([][]float32{queryVec}, nil)
	store.EXPECT().Query(gomock.Any(), queryVec, 6, nil).Return([]driven.VectorHit{
		hit("b#0", 0.9),
		hit("a#0", 0.9),
		hit("a#0", 0.9),
		hit("c#1", 0.2),
		hit("d#0", 0.95),
		hit("e#3", 0.5),
	}, nil)

	results, err := r.Retrieve(context.Background(), "  what is ragline ", 3, 0.3, nil)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, "d#0", results[0].Chunk.ID)
	assert.Equal(t, "a#0", results[1].Chunk.ID)
	assert.Equal(t, "b#0", results[2].Chunk.ID)
	for i, res := range results {
		assert.Equal(t, i+1, res.Rank)
		assert.GreaterOrEqual(t, res.Score, 0.3)
	}
}

func TestRetriever_NeverPads(t *testing.T) {
	r, emb, store := newTestRetriever(t)
	emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)
	store.EXPECT().Query(gomock.Any(), gomock.Any(), 10, nil).Return([]driven.VectorHit{
		hit("a#0", 0.8),
		hit("b#0", 0.1),
		hit("c#0", 0.05),
	}, nil)

	results, err := r.Retrieve(context.Background(), "q", 5, 0.5, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a#0", results[0].Chunk.ID)
}

func TestRetriever_DropsNaNScores(t *testing.T) {
	r, emb, store := newTestRetriever(t)
	emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)
	store.EXPECT().Query(gomock.Any(), gomock.Any(), 10, nil).Return([]driven.VectorHit{
		hit("a#0", math.NaN()),
		hit("b#0", 0.7),
		hit("c#0", 0.6),
	}, nil)

	results, err := r.Retrieve(context.Background(), "q", 5, 0.5, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "b#0", results[0].Chunk.ID)
	assert.Equal(t, "c#0", results[1].Chunk.ID)
}

func TestRetriever_EmptyStore(t *testing.T) {
	r, emb, store := newTestRetriever(t)
	emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)
	store.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)

	results, err := r.Retrieve(context.Background(), "q", 5, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetriever_PassesFilter(t *testing.T) {
	r, emb, store := newTestRetriever(t)
	filter := &driven.VectorFilter{Namespace: "manuals"}

	emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)
	store.EXPECT().Query(gomock.Any(), gomock.Any(), 4, filter).Return(nil, nil)

	_, err := r.Retrieve(context.Background(), "q", 2, 0, filter)
	require.NoError(t, err)
}

func TestRetriever_InvalidInput(t *testing.T) {
	r, _, _ := newTestRetriever(t)

	_, err := r.Retrieve(context.Background(), "   ", 5, 0, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = r.Retrieve(context.Background(), "q", 0, 0, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRetriever_PropagatesEmbeddingError(t *testing.T) {
	r, emb, _ := newTestRetriever(t)
	emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).Return(nil, transientEmbedErr()).Times(3)

	_, err := r.Retrieve(context.Background(), "q", 5, 0, nil)
	assert.ErrorIs(t, err, domain.ErrEmbeddingService)
}

func TestRetriever_StoreErrors(t *testing.T) {
	tests := []struct {
		name     string
		storeErr error
		calls    int
		want     error
	}{
		{"untyped failure becomes store unavailable", errors.New("connection refused"), 1, domain.ErrStoreUnavailable},
		{"retryable store error retried", domain.NewServiceError(domain.ErrStoreUnavailable, "query", true, errUpstream), 3, domain.ErrStoreUnavailable},
		{"dimension mismatch passes through", &domain.DimensionMismatchError{Expected: 4, Actual: 3}, 1, domain.ErrDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, emb, store := newTestRetriever(t)
			emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)
			store.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil, tt.storeErr).Times(tt.calls)

			_, err := r.Retrieve(context.Background(), "q", 5, 0, nil)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
