package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/core/retry"
	"github.com/custodia-labs/ragline/internal/logger"
)

// Ensure RAGService implements the interface.
var _ driving.RAGService = (*RAGService)(nil)

// healthTimeout bounds each liveness probe.
const healthTimeout = 5 * time.Second

// RAGService wires chunking, embedding, storage and answer composition
// into the ingest and query paths.
type RAGService struct {
	pipelines     driven.PipelineBuilder
	embedding     driven.EmbeddingService
	store         driven.VectorStore
	llm           driven.LLMService
	conversations driven.ConversationStore
	prompts       driven.PromptStore
	settings      domain.RAGSettings
	policy        retry.Policy
	chatOpts      driven.ChatOptions
	dimension     int

	embedder *Embedder
	composer *Composer

	newID func() string
}

// RAGOption configures optional collaborators.
type RAGOption func(*RAGService)

// WithConversationStore persists turns and replays them as history.
func WithConversationStore(store driven.ConversationStore) RAGOption {
	return func(s *RAGService) {
		s.conversations = store
	}
}

// WithPromptStore overrides the built-in prompts.
func WithPromptStore(store driven.PromptStore) RAGOption {
	return func(s *RAGService) {
		s.prompts = store
	}
}

// WithChatOptions sets generation limits.
func WithChatOptions(opts driven.ChatOptions) RAGOption {
	return func(s *RAGService) {
		s.chatOpts = opts
	}
}

// WithDimension enforces an index dimension other than the model default.
func WithDimension(dim int) RAGOption {
	return func(s *RAGService) {
		s.dimension = dim
	}
}

// NewRAGService creates the pipeline service. llm may be nil for
// ingest-only use; Query then fails with domain.ErrNotConfigured.
func NewRAGService(
	embedding driven.EmbeddingService,
	store driven.VectorStore,
	llm driven.LLMService,
	pipelines driven.PipelineBuilder,
	settings domain.RAGSettings,
	opts ...RAGOption,
) *RAGService {
	s := &RAGService{
		pipelines: pipelines,
		embedding: embedding,
		store:     store,
		llm:       llm,
		settings:  settings,
		policy:    retry.FromSettings(settings),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.embedder = NewEmbedder(embedding, settings, s.dimension)
	retriever := NewRetriever(s.embedder, store, s.policy)
	if llm != nil {
		s.composer = NewComposer(retriever, llm, s.prompts, settings, s.chatOpts)
	}
	return s
}

// Ingest chunks, embeds and upserts one document. On failure the returned
// *domain.IngestError names the stage and batch; batches upserted before
// it remain in the store and re-running the ingestion is safe.
func (s *RAGService) Ingest(ctx context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	logger.Section("Ingest")

	docID := strings.TrimSpace(req.DocumentID)
	if docID == "" {
		docID = s.newID()
	}
	if strings.Contains(docID, "#") {
		return nil, fmt.Errorf("%w: document id %q must not contain '#'", domain.ErrInvalidInput, docID)
	}

	maxChars, overlap := s.window(req)

	doc := &domain.Document{
		ID:        docID,
		URI:       req.Source,
		Title:     req.Title,
		Content:   req.Text,
		Namespace: req.Namespace,
		Metadata:  req.Metadata,
		CreatedAt: time.Now(),
	}

	pipeline, err := s.pipelines.Build(maxChars, overlap)
	if err != nil {
		return nil, &domain.IngestError{DocumentID: docID, Stage: domain.StageChunk, Batch: -1, Err: err}
	}
	chunks, err := pipeline.Process(ctx, doc)
	if err != nil {
		return nil, &domain.IngestError{DocumentID: docID, Stage: domain.StageChunk, Batch: -1, Err: err}
	}
	logger.Debug("Document %s: %d chunks (max %d, overlap %d)", docID, len(chunks), maxChars, overlap)

	result := &driving.IngestResult{DocumentID: docID}
	if len(chunks) == 0 {
		if req.Replace {
			if err := s.prune(ctx, result, nil); err != nil {
				return nil, err
			}
		}
		return result, nil
	}

	vectors, err := s.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		ingestErr := &domain.IngestError{DocumentID: docID, Stage: domain.StageEmbed, Batch: -1, Err: err}
		var batchErr *BatchError
		if errors.As(err, &batchErr) {
			ingestErr.Batch = batchErr.Index
			ingestErr.ChunkIDs = chunkIDs(chunks[batchErr.Start:batchErr.End])
		}
		s.logFailure(ingestErr)
		return nil, ingestErr
	}

	batchSize := s.embedder.batchSize
	for b, start := 0, 0; start < len(chunks); b, start = b+1, start+batchSize {
		end := min(start+batchSize, len(chunks))
		records := make([]driven.VectorRecord, 0, end-start)
		for i := start; i < end; i++ {
			records = append(records, driven.VectorRecord{Chunk: chunks[i], Vector: vectors[i].Values})
		}

		_, err := retry.Do(ctx, s.policy, "upsert", func(ctx context.Context) (int, error) {
			return s.store.Upsert(ctx, records)
		})
		if err != nil {
			ingestErr := &domain.IngestError{
				DocumentID: docID,
				Stage:      domain.StageUpsert,
				Batch:      b,
				ChunkIDs:   chunkIDs(chunks[start:end]),
				Upserted:   result.ChunksCreated,
				Err:        storeError("upsert", err),
			}
			s.logFailure(ingestErr)
			return nil, ingestErr
		}
		result.ChunksCreated += len(records)
		result.Batches++
	}

	if req.Replace {
		if err := s.prune(ctx, result, chunkIDs(chunks)); err != nil {
			return nil, err
		}
	}

	logger.Logger().Info().
		Str("document_id", docID).
		Int("chunks", result.ChunksCreated).
		Int("batches", result.Batches).
		Msg("document ingested")
	return result, nil
}

// window resolves the chunking window of one request. An overridden
// max_chunk_chars keeps the configured overlap only while it fits.
func (s *RAGService) window(req driving.IngestRequest) (maxChars, overlap int) {
	maxChars, overlap = s.settings.MaxChunkChars, s.settings.OverlapChars
	if req.MaxChunkChars > 0 {
		maxChars = req.MaxChunkChars
		if overlap >= maxChars {
			overlap = 0
		}
	}
	if req.OverlapChars != nil {
		overlap = *req.OverlapChars
	}
	return maxChars, overlap
}

// prune removes the document's chunks that are not in keep. It runs after
// the new version is upserted, so chunk IDs shared by both versions are
// overwritten in place and never missing.
func (s *RAGService) prune(ctx context.Context, result *driving.IngestResult, keep []string) error {
	n, err := retry.Do(ctx, s.policy, "prune", func(ctx context.Context) (int, error) {
		return s.store.PruneDocument(ctx, result.DocumentID, keep)
	})
	if err != nil {
		ingestErr := &domain.IngestError{
			DocumentID: result.DocumentID,
			Stage:      domain.StageUpsert,
			Batch:      -1,
			Upserted:   result.ChunksCreated,
			Err:        storeError("prune", err),
		}
		s.logFailure(ingestErr)
		return ingestErr
	}
	if n > 0 {
		logger.Debug("Document %s: pruned %d stale chunks", result.DocumentID, n)
	}
	return nil
}

// Query answers a question, loading and saving conversation history when
// a conversation store is configured.
func (s *RAGService) Query(ctx context.Context, req driving.QueryRequest) (*domain.ConversationTurn, error) {
	if s.composer == nil {
		return nil, fmt.Errorf("%w: no LLM provider configured", domain.ErrNotConfigured)
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}

	convID := req.ConversationID
	if convID == "" {
		convID = s.newID()
	}

	history := req.History
	if len(history) == 0 && req.ConversationID != "" && s.conversations != nil {
		turns, err := s.conversations.Recent(ctx, convID, s.settings.HistoryTurns)
		if err != nil {
			logger.Warn("Loading conversation %s: %v", convID, err)
		}
		for _, t := range turns {
			history = append(history, t.AsHistory()...)
		}
	}

	var filter *driven.VectorFilter
	if req.Namespace != "" {
		filter = &driven.VectorFilter{Namespace: req.Namespace}
	}

	turn, err := s.composer.Answer(ctx, req.Text, AnswerOptions{History: history, Filter: filter, TopK: req.TopK})
	if err != nil {
		s.logFailure(err)
		return nil, err
	}
	turn.ID = s.newID()
	turn.ConversationID = convID

	if s.conversations != nil {
		if err := s.conversations.Append(ctx, *turn); err != nil {
			logger.Warn("Saving conversation %s: %v", convID, err)
		}
	}

	logger.Logger().Info().
		Str("conversation_id", convID).
		Int("retrieved", len(turn.Retrieved)).
		Bool("grounded", turn.GroundedOnContext).
		Msg("query answered")
	return turn, nil
}

// DeleteDocument removes a document's vectors.
func (s *RAGService) DeleteDocument(ctx context.Context, documentID string) (int, error) {
	if strings.TrimSpace(documentID) == "" {
		return 0, fmt.Errorf("%w: document id is empty", domain.ErrInvalidInput)
	}
	n, err := retry.Do(ctx, s.policy, "delete", func(ctx context.Context) (int, error) {
		return s.store.DeleteDocument(ctx, documentID)
	})
	if err != nil {
		return 0, storeError("delete", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: document %q", domain.ErrNotFound, documentID)
	}
	logger.Info("Deleted %d chunks of document %s", n, documentID)
	return n, nil
}

// Health pings the embedding service, vector store and LLM concurrently.
func (s *RAGService) Health(ctx context.Context) domain.HealthStatus {
	probes := map[string]func(context.Context) error{
		domain.ComponentEmbedding:   s.embedding.Ping,
		domain.ComponentVectorStore: s.store.Ping,
	}
	if s.llm != nil {
		probes[domain.ComponentLLM] = s.llm.Ping
	}

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		components = make(map[string]domain.ComponentHealth, 3)
	)
	for name, ping := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, healthTimeout)
			defer cancel()

			start := time.Now()
			err := ping(pctx)
			h := domain.ComponentHealth{OK: err == nil, Latency: time.Since(start).Round(time.Millisecond).String()}
			if err != nil {
				h.Detail = err.Error()
			}

			mu.Lock()
			components[name] = h
			mu.Unlock()
		}()
	}
	wg.Wait()

	if s.llm == nil {
		components[domain.ComponentLLM] = domain.ComponentHealth{Detail: "not configured"}
	}

	status := domain.HealthStatus{
		Status:      domain.HealthHealthy,
		EmbeddingOK: components[domain.ComponentEmbedding].OK,
		StoreOK:     components[domain.ComponentVectorStore].OK,
		Components:  components,
	}
	for _, c := range components {
		if !c.OK {
			status.Status = domain.HealthDegraded
		}
	}
	return status
}

// Stats passes through the vector store statistics.
func (s *RAGService) Stats(ctx context.Context) (*domain.IndexStats, error) {
	stats, err := retry.Do(ctx, s.policy, "stats", func(ctx context.Context) (domain.IndexStats, error) {
		return s.store.Stats(ctx)
	})
	if err != nil {
		return nil, storeError("stats", err)
	}
	return &stats, nil
}

// logFailure reports configuration errors loudly; they will not fix
// themselves on retry.
func (s *RAGService) logFailure(err error) {
	var dimErr *domain.DimensionMismatchError
	if errors.As(err, &dimErr) {
		logger.Logger().Error().
			Int("expected", dimErr.Expected).
			Int("actual", dimErr.Actual).
			Msg("vector dimension mismatch: embedding model and index disagree")
	}
}

func chunkIDs(chunks []domain.Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}
