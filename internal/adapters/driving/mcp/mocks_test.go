package mcp

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

// mockRAGService is a mock implementation of driving.RAGService.
type mockRAGService struct {
	turn   *domain.ConversationTurn
	result *driving.IngestResult
	stats  *domain.IndexStats
	health domain.HealthStatus
	err    error

	lastQuery  driving.QueryRequest
	lastIngest driving.IngestRequest
}

func (m *mockRAGService) Ingest(_ context.Context, req driving.IngestRequest) (*driving.IngestResult, error) {
	m.lastIngest = req
	return m.result, m.err
}

func (m *mockRAGService) Query(_ context.Context, req driving.QueryRequest) (*domain.ConversationTurn, error) {
	m.lastQuery = req
	return m.turn, m.err
}

func (m *mockRAGService) DeleteDocument(_ context.Context, _ string) (int, error) {
	return 0, m.err
}

func (m *mockRAGService) Health(_ context.Context) domain.HealthStatus {
	return m.health
}

func (m *mockRAGService) Stats(_ context.Context) (*domain.IndexStats, error) {
	return m.stats, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	result   *driving.IngestResult
	err      error
	lastPath string
	lastOpts driving.FileOptions
}

func (m *mockDocumentService) IngestRaw(_ context.Context, _ domain.RawDocument) (*driving.IngestResult, error) {
	return m.result, m.err
}

func (m *mockDocumentService) IngestFile(
	_ context.Context,
	path string,
	opts driving.FileOptions,
) (*driving.IngestResult, error) {
	m.lastPath = path
	m.lastOpts = opts
	return m.result, m.err
}

func (m *mockDocumentService) RemoveFile(_ context.Context, _ string) (int, error) {
	return 0, m.err
}

func (m *mockDocumentService) SupportedExtensions() []string {
	return []string{".txt", ".md"}
}
