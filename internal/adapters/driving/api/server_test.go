package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/core/ports/driving/mocks"
)

type testAPI struct {
	rag  *mocks.MockRAGService
	docs *mocks.MockDocumentService
	srv  *Server
}

func setupTestAPI(t *testing.T, cfg Config) *testAPI {
	t.Helper()
	ctrl := gomock.NewController(t)
	rag := mocks.NewMockRAGService(ctrl)
	docs := mocks.NewMockDocumentService(ctrl)
	srv, err := NewServer(cfg, rag, docs)
	require.NoError(t, err)
	return &testAPI{rag: rag, docs: docs, srv: srv}
}

func (a *testAPI) do(method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	a.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNewServer_RequiresRAGService(t *testing.T) {
	srv, err := NewServer(Config{}, nil, nil)
	assert.ErrorIs(t, err, ErrMissingRAGService)
	assert.Nil(t, srv)
}

func TestNewServer_Defaults(t *testing.T) {
	api := setupTestAPI(t, Config{})
	assert.Equal(t, DefaultAddr, api.srv.Addr())
}

func TestChat(t *testing.T) {
	api := setupTestAPI(t, Config{})
	turn := &domain.ConversationTurn{
		ID:             "turn-1",
		ConversationID: "conv-1",
		Answer:         "Paris [1]",
		Citations: []domain.Citation{
			{Label: "[1]", ChunkID: "doc#0", DocumentID: "doc", Source: "geo.md", Score: 0.9},
		},
		GroundedOnContext: true,
		Timestamp:         time.Now(),
	}
	api.rag.EXPECT().
		Query(gomock.Any(), driving.QueryRequest{Text: "capital of France?", ConversationID: "conv-1", TopK: 3}).
		Return(turn, nil)

	rec := api.do(http.MethodPost, "/api/v1/chat", "application/json",
		[]byte(`{"query":"capital of France?","conversation_id":"conv-1","top_k":3}`))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Paris [1]", resp.Answer)
	assert.Equal(t, "conv-1", resp.ConversationID)
	assert.True(t, resp.GroundedOnContext)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, "doc#0", resp.Citations[0].ChunkID)
}

func TestChat_EmptyCitationsAreArray(t *testing.T) {
	api := setupTestAPI(t, Config{})
	api.rag.EXPECT().Query(gomock.Any(), gomock.Any()).
		Return(&domain.ConversationTurn{ID: "t", ConversationID: "c", Answer: "none"}, nil)

	rec := api.do(http.MethodPost, "/api/v1/chat", "application/json", []byte(`{"query":"q"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"citations": []`)
}

func TestChat_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "empty query", body: `{"query":"  "}`},
		{name: "negative top_k", body: `{"query":"q","top_k":-1}`},
		{name: "bad history role", body: `{"query":"q","history":[{"role":"system","content":"x"}]}`},
		{name: "malformed json", body: `{"query":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupTestAPI(t, Config{})
			rec := api.do(http.MethodPost, "/api/v1/chat", "application/json", []byte(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, http.StatusBadRequest, decodeError(t, rec).Status)
		})
	}
}

func TestChat_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{
			name:    "rate limited",
			err:     domain.NewRateLimitError(domain.ErrGenerationService, "chat", errors.New("429 from upstream")),
			status:  http.StatusTooManyRequests,
			message: "rate limit exceeded",
		},
		{
			name:    "generation unavailable",
			err:     domain.NewServiceError(domain.ErrGenerationService, "chat", true, errors.New("dial tcp 10.0.0.1: refused")),
			status:  http.StatusServiceUnavailable,
			message: domain.ErrGenerationService.Error(),
		},
		{
			name:    "dimension mismatch",
			err:     &domain.DimensionMismatchError{Expected: 768, Actual: 1536},
			status:  http.StatusInternalServerError,
			message: genericMessage,
		},
		{
			name:    "unknown",
			err:     errors.New("secret internal detail"),
			status:  http.StatusInternalServerError,
			message: genericMessage,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := setupTestAPI(t, Config{})
			api.rag.EXPECT().Query(gomock.Any(), gomock.Any()).Return(nil, tt.err)

			rec := api.do(http.MethodPost, "/api/v1/chat", "application/json", []byte(`{"query":"q"}`))

			assert.Equal(t, tt.status, rec.Code)
			body := decodeError(t, rec)
			assert.Contains(t, body.Error, tt.message)
			assert.NotContains(t, body.Error, "10.0.0.1")
			assert.NotContains(t, body.Error, "secret")
		})
	}
}

func TestIngestText(t *testing.T) {
	api := setupTestAPI(t, Config{})
	api.rag.EXPECT().
		Ingest(gomock.Any(), driving.IngestRequest{
			DocumentID: "doc-1",
			Text:       "hello world",
			Title:      "Greeting",
			Replace:    true,
		}).
		Return(&driving.IngestResult{DocumentID: "doc-1", ChunksCreated: 1, Batches: 1}, nil)

	rec := api.do(http.MethodPost, "/api/v1/documents", "application/json",
		[]byte(`{"document_id":"doc-1","text":"hello world","title":"Greeting"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	var result driving.IngestResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.ChunksCreated)
}

func TestIngestText_EmptyText(t *testing.T) {
	api := setupTestAPI(t, Config{})
	rec := api.do(http.MethodPost, "/api/v1/documents", "application/json", []byte(`{"text":""}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload(t *testing.T) {
	api := setupTestAPI(t, Config{})
	api.docs.EXPECT().
		IngestRaw(gomock.Any(), domain.RawDocument{
			ID:        "notes",
			URI:       "notes.md",
			MIMEType:  "text/markdown",
			Content:   []byte("# Notes\n\nbody"),
			Namespace: "team",
			Metadata:  map[string]string{domain.MetaTitle: "My notes"},
		}).
		Return(&driving.IngestResult{DocumentID: "notes", ChunksCreated: 1, Batches: 1}, nil)

	rec := api.do(http.MethodPost,
		"/api/v1/documents/upload?filename=notes.md&id=notes&namespace=team&title=My+notes",
		"text/markdown; charset=utf-8", []byte("# Notes\n\nbody"))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestUpload_TypeFromFilename(t *testing.T) {
	api := setupTestAPI(t, Config{})
	api.docs.EXPECT().
		IngestRaw(gomock.Any(), gomock.Cond(func(raw domain.RawDocument) bool {
			return raw.MIMEType == "text/plain"
		})).
		Return(&driving.IngestResult{DocumentID: "x", ChunksCreated: 1}, nil)

	rec := api.do(http.MethodPost, "/api/v1/documents/upload?filename=a.txt",
		"application/octet-stream", []byte("plain text"))

	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestUpload_UnsupportedType(t *testing.T) {
	api := setupTestAPI(t, Config{})
	api.docs.EXPECT().IngestRaw(gomock.Any(), gomock.Any()).
		Return(nil, fmt.Errorf("%w: application/pdf", domain.ErrUnsupportedType))

	rec := api.do(http.MethodPost, "/api/v1/documents/upload?filename=a.pdf",
		"application/pdf", []byte("%PDF-1.4"))

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestUpload_EmptyBody(t *testing.T) {
	api := setupTestAPI(t, Config{})
	rec := api.do(http.MethodPost, "/api/v1/documents/upload", "text/plain", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteDocument(t *testing.T) {
	t.Run("deleted", func(t *testing.T) {
		api := setupTestAPI(t, Config{})
		api.rag.EXPECT().DeleteDocument(gomock.Any(), "doc-1").Return(3, nil)

		rec := api.do(http.MethodDelete, "/api/v1/documents/doc-1", "", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp DeleteResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, DeleteResponse{DocumentID: "doc-1", VectorsDeleted: 3}, resp)
	})

	t.Run("not found", func(t *testing.T) {
		api := setupTestAPI(t, Config{})
		api.rag.EXPECT().DeleteDocument(gomock.Any(), "missing").
			Return(0, fmt.Errorf("%w: document missing", domain.ErrNotFound))

		rec := api.do(http.MethodDelete, "/api/v1/documents/missing", "", nil)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthAndStats(t *testing.T) {
	api := setupTestAPI(t, Config{})
	api.rag.EXPECT().Health(gomock.Any()).Return(domain.HealthStatus{
		Status:      domain.HealthDegraded,
		EmbeddingOK: true,
		Components: map[string]domain.ComponentHealth{
			domain.ComponentVectorStore: {OK: false, Detail: "unreachable"},
		},
	})
	api.rag.EXPECT().Stats(gomock.Any()).Return(&domain.IndexStats{
		IndexName:    "memory",
		TotalVectors: 4,
		Dimension:    3,
		Namespaces:   map[string]int{"default": 4},
	}, nil)

	rec := api.do(http.MethodGet, "/api/v1/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status": "degraded"`)

	rec = api.do(http.MethodGet, "/api/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats domain.IndexStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 4, stats.TotalVectors)
}

func TestStats_StoreUnavailable(t *testing.T) {
	api := setupTestAPI(t, Config{})
	api.rag.EXPECT().Stats(gomock.Any()).
		Return(nil, domain.NewServiceError(domain.ErrStoreUnavailable, "stats", true, errors.New("down")))

	rec := api.do(http.MethodGet, "/api/v1/stats", "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestOpenAPI(t *testing.T) {
	api := setupTestAPI(t, Config{Version: "1.2.3"})

	rec := api.do(http.MethodGet, "/api/v1/openapi.json", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "ragline API")
	assert.Contains(t, body, "1.2.3")
	assert.Contains(t, body, "/api/v1/chat")
	assert.Contains(t, body, "/api/v1/documents/{id}")
}

func TestRateLimit(t *testing.T) {
	api := setupTestAPI(t, Config{RequestsPerMinute: 2})
	api.rag.EXPECT().Stats(gomock.Any()).Return(&domain.IndexStats{}, nil).Times(2)
	api.rag.EXPECT().Health(gomock.Any()).Return(domain.HealthStatus{Status: domain.HealthHealthy}).Times(3)

	for range 2 {
		rec := api.do(http.MethodGet, "/api/v1/stats", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	rec := api.do(http.MethodGet, "/api/v1/stats", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	for range 3 {
		rec := api.do(http.MethodGet, "/api/v1/health", "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRecoverPanic(t *testing.T) {
	api := setupTestAPI(t, Config{})
	api.rag.EXPECT().Stats(gomock.Any()).DoAndReturn(func(any) (*domain.IndexStats, error) {
		panic("boom")
	})

	rec := api.do(http.MethodGet, "/api/v1/stats", "", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, strings.Contains(rec.Body.String(), "boom"))
}

func TestCORS(t *testing.T) {
	api := setupTestAPI(t, Config{AllowedOrigins: []string{"https://app.example"}})
	api.rag.EXPECT().Health(gomock.Any()).Return(domain.HealthStatus{Status: domain.HealthHealthy})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("Origin", "https://app.example")
	rec := httptest.NewRecorder()
	api.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "https://app.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("%w: x", domain.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("%w: x", domain.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: x", domain.ErrUnsupportedType), http.StatusUnsupportedMediaType},
		{domain.NewRateLimitError(domain.ErrEmbeddingService, "embed", nil), http.StatusTooManyRequests},
		{domain.NewServiceError(domain.ErrEmbeddingService, "embed", false, nil), http.StatusServiceUnavailable},
		{fmt.Errorf("%w: llm", domain.ErrNotConfigured), http.StatusServiceUnavailable},
		{&domain.DimensionMismatchError{Expected: 3, Actual: 4}, http.StatusInternalServerError},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusFor(tt.err), "%v", tt.err)
	}
}
