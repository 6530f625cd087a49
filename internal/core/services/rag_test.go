package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/custodia-labs/ragline/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/ports/driven/mocks"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/postprocessors"
)

type ragFixture struct {
	svc   *RAGService
	emb   *mocks.MockEmbeddingService
	store *mocks.MockVectorStore
	llm   *mocks.MockLLMService
	convs *mocks.MockConversationStore
}

func newRAGFixture(t *testing.T, mutate func(*domain.RAGSettings)) *ragFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &ragFixture{
		emb:   mocks.NewMockEmbeddingService(ctrl),
		store: mocks.NewMockVectorStore(ctrl),
		llm:   mocks.NewMockLLMService(ctrl),
		convs: mocks.NewMockConversationStore(ctrl),
	}
	f.emb.EXPECT().Dimensions().Return(3).AnyTimes()
	f.emb.EXPECT().ModelName().Return("test-embed").AnyTimes()

	settings := testSettings()
	settings.MaxChunkChars = 20
	settings.OverlapChars = 5
	settings.EmbeddingBatchSize = 2
	if mutate != nil {
		mutate(&settings)
	}

	f.svc = NewRAGService(f.emb, f.store, f.llm, postprocessors.NewDefaultBuilder(), settings,
		WithConversationStore(f.convs))

	ids := 0
	f.svc.newID = func() string {
		ids++
		return "id-" + string(rune('0'+ids))
	}
	return f
}

func constVectors(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

const sampleText = "Alpha beta gamma delta. Epsilon zeta eta theta. Iota kappa lambda mu."

func TestRAGService_Ingest(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).DoAndReturn(constVectors).AnyTimes()

	var stored []driven.VectorRecord
	f.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, records []driven.VectorRecord) (int, error) {
			assert.LessOrEqual(t, len(records), 2)
			stored = append(stored, records...)
			return len(records), nil
		}).AnyTimes()

	res, err := f.svc.Ingest(context.Background(), driving.IngestRequest{
		DocumentID: "guide",
		Text:       sampleText,
		Title:      "Guide",
		Source:     "/docs/guide.txt",
		Namespace:  "manuals",
	})
	require.NoError(t, err)

	assert.Equal(t, "guide", res.DocumentID)
	assert.Equal(t, len(stored), res.ChunksCreated)
	assert.Greater(t, res.ChunksCreated, 2)
	assert.Equal(t, (res.ChunksCreated+1)/2, res.Batches)

	for i, r := range stored {
		assert.Equal(t, domain.ChunkID("guide", i), r.Chunk.ID)
		assert.Equal(t, "manuals", r.Chunk.Namespace())
		assert.Equal(t, "Guide", r.Chunk.SourceLabel())
		assert.Equal(t, "/docs/guide.txt", r.Chunk.Metadata[domain.MetaSource])
		assert.Len(t, r.Vector, 3)
		assert.LessOrEqual(t, r.Chunk.Len(), 20)
	}
}

func TestRAGService_Ingest_GeneratesID(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).DoAndReturn(constVectors)
	f.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(1, nil)

	res, err := f.svc.Ingest(context.Background(), driving.IngestRequest{Text: "short text"})
	require.NoError(t, err)
	assert.Equal(t, "id-1", res.DocumentID)
	assert.Equal(t, 1, res.ChunksCreated)
}

func TestRAGService_Ingest_EmptyText(t *testing.T) {
	f := newRAGFixture(t, nil)

	res, err := f.svc.Ingest(context.Background(), driving.IngestRequest{DocumentID: "d", Text: "  "})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ChunksCreated)
}

func TestRAGService_Ingest_InvalidInput(t *testing.T) {
	f := newRAGFixture(t, nil)

	_, err := f.svc.Ingest(context.Background(), driving.IngestRequest{DocumentID: "a#b", Text: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Ingest(context.Background(), driving.IngestRequest{
		DocumentID: "d", Text: "some text", MaxChunkChars: 10, OverlapChars: intPtr(10),
	})
	var ingestErr *domain.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, domain.StageChunk, ingestErr.Stage)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Ingest(context.Background(), driving.IngestRequest{DocumentID: "d", Text: "bad \xff utf8"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRAGService_Ingest_OverrideWindow(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).DoAndReturn(constVectors).AnyTimes()

	var stored []driven.VectorRecord
	f.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, records []driven.VectorRecord) (int, error) {
			stored = append(stored, records...)
			return len(records), nil
		}).AnyTimes()

	_, err := f.svc.Ingest(context.Background(), driving.IngestRequest{
		DocumentID: "d", Text: sampleText, MaxChunkChars: 200, OverlapChars: intPtr(0),
	})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, sampleText, stored[0].Chunk.Content)
}

func TestRAGService_Ingest_ReplacePrunesAfterUpsert(t *testing.T) {
	f := newRAGFixture(t, nil)
	gomock.InOrder(
		f.emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).DoAndReturn(constVectors),
		f.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(1, nil),
		f.store.EXPECT().PruneDocument(gomock.Any(), "d", []string{"d#0"}).Return(6, nil),
	)

	res, err := f.svc.Ingest(context.Background(), driving.IngestRequest{DocumentID: "d", Text: "tiny", Replace: true})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunksCreated)
}

func TestRAGService_Ingest_ReplaceWithEmptyTextRemovesDocument(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.store.EXPECT().PruneDocument(gomock.Any(), "d", nil).Return(3, nil)

	res, err := f.svc.Ingest(context.Background(), driving.IngestRequest{DocumentID: "d", Text: " ", Replace: true})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ChunksCreated)
}

func TestRAGService_Ingest_FailedReplaceKeepsPreviousVersion(t *testing.T) {
	ctrl := gomock.NewController(t)
	emb := mocks.NewMockEmbeddingService(ctrl)
	emb.EXPECT().Dimensions().Return(3).AnyTimes()
	emb.EXPECT().ModelName().Return("test-embed").AnyTimes()
	store := memory.NewVectorStore("test", 3)

	settings := testSettings()
	settings.RetryMaxAttempts = 2
	svc := NewRAGService(emb, store, nil, postprocessors.NewDefaultBuilder(), settings)
	ctx := context.Background()

	emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).DoAndReturn(constVectors)
	_, err := svc.Ingest(ctx, driving.IngestRequest{DocumentID: "notes", Text: "old content", Replace: true})
	require.NoError(t, err)

	emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).Return(nil, transientEmbedErr()).Times(2)
	_, err = svc.Ingest(ctx, driving.IngestRequest{DocumentID: "notes", Text: "new content", Replace: true})
	require.ErrorIs(t, err, domain.ErrEmbeddingService)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalVectors)

	hits, err := store.Query(ctx, []float32{1, 0, 0}, 5, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "old content", hits[0].Chunk.Content)
}

func TestRAGService_Ingest_ShorterReplacementDropsStaleChunks(t *testing.T) {
	ctrl := gomock.NewController(t)
	emb := mocks.NewMockEmbeddingService(ctrl)
	emb.EXPECT().Dimensions().Return(3).AnyTimes()
	emb.EXPECT().ModelName().Return("test-embed").AnyTimes()
	emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).DoAndReturn(constVectors).AnyTimes()
	store := memory.NewVectorStore("test", 3)

	settings := testSettings()
	settings.MaxChunkChars = 20
	settings.OverlapChars = 5
	svc := NewRAGService(emb, store, nil, postprocessors.NewDefaultBuilder(), settings)
	ctx := context.Background()

	first, err := svc.Ingest(ctx, driving.IngestRequest{DocumentID: "d", Text: sampleText, Replace: true})
	require.NoError(t, err)
	require.Greater(t, first.ChunksCreated, 1)

	second, err := svc.Ingest(ctx, driving.IngestRequest{DocumentID: "d", Text: "short now", Replace: true})
	require.NoError(t, err)
	assert.Equal(t, 1, second.ChunksCreated)

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalVectors)
}

func TestRAGService_Ingest_PruneFailureReported(t *testing.T) {
	f := newRAGFixture(t, func(s *domain.RAGSettings) { s.RetryMaxAttempts = 1 })
	f.emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).DoAndReturn(constVectors)
	f.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(1, nil)
	f.store.EXPECT().PruneDocument(gomock.Any(), "d", []string{"d#0"}).
		Return(0, domain.NewServiceError(domain.ErrStoreUnavailable, "prune", false, errUpstream))

	_, err := f.svc.Ingest(context.Background(), driving.IngestRequest{DocumentID: "d", Text: "tiny", Replace: true})

	var ingestErr *domain.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, domain.StageUpsert, ingestErr.Stage)
	assert.Equal(t, 1, ingestErr.Upserted)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestRAGService_Window(t *testing.T) {
	tests := []struct {
		name        string
		req         driving.IngestRequest
		wantMax     int
		wantOverlap int
	}{
		{"configured", driving.IngestRequest{}, 20, 5},
		{"max override keeps fitting overlap", driving.IngestRequest{MaxChunkChars: 50}, 50, 5},
		{"max override drops overlap that no longer fits", driving.IngestRequest{MaxChunkChars: 4}, 4, 0},
		{"explicit zero overlap", driving.IngestRequest{MaxChunkChars: 50, OverlapChars: intPtr(0)}, 50, 0},
		{"overlap override alone", driving.IngestRequest{OverlapChars: intPtr(2)}, 20, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRAGFixture(t, nil)

			maxChars, overlap := f.svc.window(tt.req)

			assert.Equal(t, tt.wantMax, maxChars)
			assert.Equal(t, tt.wantOverlap, overlap)
		})
	}
}

func TestRAGService_Ingest_EmbedFailureReportsBatch(t *testing.T) {
	f := newRAGFixture(t, func(s *domain.RAGSettings) { s.MaxConcurrentEmbeddingBatches = 1 })
	calls := 0
	f.emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, texts []string) ([][]float32, error) {
			calls++
			if calls == 2 {
				return nil, errUpstream
			}
			return constVectors(ctx, texts)
		}).AnyTimes()

	_, err := f.svc.Ingest(context.Background(), driving.IngestRequest{DocumentID: "d", Text: sampleText})

	var ingestErr *domain.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, domain.StageEmbed, ingestErr.Stage)
	assert.Equal(t, 1, ingestErr.Batch)
	assert.Equal(t, []string{"d#2", "d#3"}, ingestErr.ChunkIDs)
	assert.Equal(t, 0, ingestErr.Upserted)
	assert.ErrorIs(t, err, domain.ErrEmbeddingService)
}

func TestRAGService_Ingest_UpsertFailureKeepsEarlierBatches(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).DoAndReturn(constVectors).AnyTimes()
	gomock.InOrder(
		f.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(2, nil),
		f.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(0, errors.New("connection reset")),
	)

	_, err := f.svc.Ingest(context.Background(), driving.IngestRequest{DocumentID: "d", Text: sampleText})

	var ingestErr *domain.IngestError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, domain.StageUpsert, ingestErr.Stage)
	assert.Equal(t, 1, ingestErr.Batch)
	assert.Equal(t, 2, ingestErr.Upserted)
	assert.Equal(t, []string{"d#2", "d#3"}, ingestErr.ChunkIDs)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Contains(t, err.Error(), "upsert batch 1 failed after 2 chunks upserted")
}

func TestRAGService_Ingest_UpsertRetriedThenSucceeds(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).DoAndReturn(constVectors)
	gomock.InOrder(
		f.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).
			Return(0, domain.NewServiceError(domain.ErrStoreUnavailable, "upsert", true, errUpstream)),
		f.store.EXPECT().Upsert(gomock.Any(), gomock.Any()).Return(1, nil),
	)

	res, err := f.svc.Ingest(context.Background(), driving.IngestRequest{DocumentID: "d", Text: "tiny"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.ChunksCreated)
}

func TestRAGService_Query_WithConversation(t *testing.T) {
	f := newRAGFixture(t, nil)
	previous := domain.ConversationTurn{Query: "earlier?", Answer: "earlier answer"}

	f.convs.EXPECT().Recent(gomock.Any(), "conv-1", 5).Return([]domain.ConversationTurn{previous}, nil)
	f.emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)
	f.store.EXPECT().Query(gomock.Any(), gomock.Any(), 10, &driven.VectorFilter{Namespace: "manuals"}).
		Return([]driven.VectorHit{hit("guide#0", 0.9)}, nil)
	f.llm.EXPECT().Chat(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, msgs []driven.ChatMessage, _ driven.ChatOptions) (string, error) {
			require.Len(t, msgs, 4)
			assert.Equal(t, "earlier?", msgs[1].Content)
			assert.Equal(t, "earlier answer", msgs[2].Content)
			return "Answer [1].", nil
		})
	f.convs.EXPECT().Append(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, turn domain.ConversationTurn) error {
			assert.Equal(t, "conv-1", turn.ConversationID)
			assert.Equal(t, "Answer [1].", turn.Answer)
			return nil
		})

	turn, err := f.svc.Query(context.Background(), driving.QueryRequest{
		Text: "now?", ConversationID: "conv-1", Namespace: "manuals",
	})
	require.NoError(t, err)

	assert.Equal(t, "id-1", turn.ID)
	assert.Equal(t, "conv-1", turn.ConversationID)
	assert.Len(t, turn.Citations, 1)
}

func TestRAGService_Query_NewConversationFixedPolicy(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)
	f.store.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any(), nil).Return(nil, nil)
	f.convs.EXPECT().Append(gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

	turn, err := f.svc.Query(context.Background(), driving.QueryRequest{Text: "q"})
	require.NoError(t, err)

	assert.Equal(t, "id-1", turn.ConversationID)
	assert.Equal(t, "id-2", turn.ID)
	assert.Equal(t, domain.DefaultNoInfoMessage, turn.Answer)
}

func TestRAGService_Query_Errors(t *testing.T) {
	f := newRAGFixture(t, nil)

	_, err := f.svc.Query(context.Background(), driving.QueryRequest{Text: "   "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	noLLM := NewRAGService(f.emb, f.store, nil, postprocessors.NewDefaultBuilder(), testSettings())
	_, err = noLLM.Query(context.Background(), driving.QueryRequest{Text: "q"})
	assert.ErrorIs(t, err, domain.ErrNotConfigured)
}

func TestRAGService_Query_DimensionMismatch(t *testing.T) {
	f := newRAGFixture(t, nil)
	f.emb.EXPECT().EmbedBatch(gomock.Any(), gomock.Any()).Return([][]float32{{1, 0, 0}}, nil)
	f.store.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, &domain.DimensionMismatchError{Expected: 768, Actual: 3})

	_, err := f.svc.Query(context.Background(), driving.QueryRequest{Text: "q"})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestRAGService_DeleteDocument(t *testing.T) {
	f := newRAGFixture(t, nil)

	f.store.EXPECT().DeleteDocument(gomock.Any(), "d").Return(3, nil)
	n, err := f.svc.DeleteDocument(context.Background(), "d")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f.store.EXPECT().DeleteDocument(gomock.Any(), "missing").Return(0, nil)
	_, err = f.svc.DeleteDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	f.store.EXPECT().DeleteDocument(gomock.Any(), "boom").Return(0, errUpstream)
	_, err = f.svc.DeleteDocument(context.Background(), "boom")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = f.svc.DeleteDocument(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestRAGService_Health(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		f := newRAGFixture(t, nil)
		f.emb.EXPECT().Ping(gomock.Any()).Return(nil)
		f.store.EXPECT().Ping(gomock.Any()).Return(nil)
		f.llm.EXPECT().Ping(gomock.Any()).Return(nil)

		h := f.svc.Health(context.Background())
		assert.Equal(t, domain.HealthHealthy, h.Status)
		assert.True(t, h.EmbeddingOK)
		assert.True(t, h.StoreOK)
		assert.Len(t, h.Components, 3)
	})

	t.Run("degraded", func(t *testing.T) {
		f := newRAGFixture(t, nil)
		f.emb.EXPECT().Ping(gomock.Any()).Return(nil)
		f.store.EXPECT().Ping(gomock.Any()).Return(errors.New("no route to host"))
		f.llm.EXPECT().Ping(gomock.Any()).Return(nil)

		h := f.svc.Health(context.Background())
		assert.Equal(t, domain.HealthDegraded, h.Status)
		assert.True(t, h.EmbeddingOK)
		assert.False(t, h.StoreOK)
		assert.True(t, strings.Contains(h.Components[domain.ComponentVectorStore].Detail, "no route"))
	})

	t.Run("no llm", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		emb := mocks.NewMockEmbeddingService(ctrl)
		emb.EXPECT().Dimensions().Return(3).AnyTimes()
		emb.EXPECT().Ping(gomock.Any()).Return(nil)
		store := mocks.NewMockVectorStore(ctrl)
		store.EXPECT().Ping(gomock.Any()).Return(nil)

		svc := NewRAGService(emb, store, nil, postprocessors.NewDefaultBuilder(), testSettings())
		h := svc.Health(context.Background())
		assert.Equal(t, domain.HealthDegraded, h.Status)
		assert.Equal(t, "not configured", h.Components[domain.ComponentLLM].Detail)
	})
}

func TestRAGService_Stats(t *testing.T) {
	f := newRAGFixture(t, nil)
	want := domain.IndexStats{IndexName: "idx", TotalVectors: 4, Dimension: 3, Namespaces: map[string]int{"default": 4}}
	f.store.EXPECT().Stats(gomock.Any()).Return(want, nil)

	got, err := f.svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, *got)

	f.store.EXPECT().Stats(gomock.Any()).Return(domain.IndexStats{}, errUpstream)
	_, err = f.svc.Stats(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
