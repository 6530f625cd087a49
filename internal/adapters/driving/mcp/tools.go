package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Question       string `json:"question" jsonschema:"the question to answer from the indexed documents"`
	ConversationID string `json:"conversation_id,omitempty" jsonschema:"continue an earlier conversation"`
	Namespace      string `json:"namespace,omitempty" jsonschema:"restrict retrieval to one namespace"`
	TopK           int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve (default from settings)"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Answer            string           `json:"answer"`
	ConversationID    string           `json:"conversation_id"`
	GroundedOnContext bool             `json:"grounded_on_context"`
	Citations         []CitationOutput `json:"citations"`
}

// CitationOutput is one source backing an answer.
type CitationOutput struct {
	Label      string  `json:"label"`
	DocumentID string  `json:"document_id"`
	ChunkID    string  `json:"chunk_id"`
	Source     string  `json:"source,omitempty"`
	Page       int     `json:"page,omitempty"`
	Score      float64 `json:"score"`
}

// IngestTextInput is the input schema for the ingest_text tool.
type IngestTextInput struct {
	Text       string `json:"text" jsonschema:"the document text"`
	DocumentID string `json:"document_id,omitempty" jsonschema:"document id; an existing id is replaced"`
	Title      string `json:"title,omitempty" jsonschema:"title shown in citations"`
	Source     string `json:"source,omitempty" jsonschema:"where the text came from"`
	Namespace  string `json:"namespace,omitempty" jsonschema:"vector store namespace"`
}

// IngestFileInput is the input schema for the ingest_file tool.
type IngestFileInput struct {
	Path      string `json:"path" jsonschema:"path of a .txt or .md file on the server"`
	Title     string `json:"title,omitempty" jsonschema:"title shown in citations"`
	Namespace string `json:"namespace,omitempty" jsonschema:"vector store namespace"`
}

// IngestOutput is the output schema for the ingest tools.
type IngestOutput struct {
	DocumentID    string `json:"document_id"`
	ChunksCreated int    `json:"chunks_created"`
}

// EmptyInput is the input schema of tools without arguments.
type EmptyInput struct{}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Answer a question using the indexed documents, with citations",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_text",
		Description: "Chunk, embed and index a text document",
	}, s.handleIngestText)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stats",
		Description: "Vector store statistics: total vectors, dimension and per-namespace counts",
	}, s.handleStats)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "health",
		Description: "Liveness of the embedding service, vector store and LLM",
	}, s.handleHealth)

	if s.ports.Document != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest_file",
			Description: "Index a text or markdown file from the server's filesystem",
		}, s.handleIngestFile)
	}
}

// handleQuery handles the query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	if strings.TrimSpace(input.Question) == "" {
		return nil, QueryOutput{}, fmt.Errorf("query: %w: question is required", domain.ErrInvalidInput)
	}

	turn, err := s.ports.RAG.Query(ctx, driving.QueryRequest{
		Text:           input.Question,
		ConversationID: input.ConversationID,
		Namespace:      input.Namespace,
		TopK:           input.TopK,
	})
	if err != nil {
		return nil, QueryOutput{}, toolError("query", err)
	}

	output := QueryOutput{
		Answer:            turn.Answer,
		ConversationID:    turn.ConversationID,
		GroundedOnContext: turn.GroundedOnContext,
		Citations:         make([]CitationOutput, len(turn.Citations)),
	}
	for i, c := range turn.Citations {
		output.Citations[i] = CitationOutput{
			Label:      c.Label,
			DocumentID: c.DocumentID,
			ChunkID:    c.ChunkID,
			Source:     c.Source,
			Page:       c.Page,
			Score:      c.Score,
		}
	}

	return nil, output, nil
}

// handleIngestText handles the ingest_text tool invocation.
func (s *Server) handleIngestText(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestTextInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if strings.TrimSpace(input.Text) == "" {
		return nil, IngestOutput{}, fmt.Errorf("ingest_text: %w: text is required", domain.ErrInvalidInput)
	}

	result, err := s.ports.RAG.Ingest(ctx, driving.IngestRequest{
		DocumentID: input.DocumentID,
		Text:       input.Text,
		Title:      input.Title,
		Source:     input.Source,
		Namespace:  input.Namespace,
		Replace:    input.DocumentID != "",
	})
	if err != nil {
		return nil, IngestOutput{}, toolError("ingest_text", err)
	}

	return nil, IngestOutput{DocumentID: result.DocumentID, ChunksCreated: result.ChunksCreated}, nil
}

// handleIngestFile handles the ingest_file tool invocation.
func (s *Server) handleIngestFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestFileInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	if input.Path == "" {
		return nil, IngestOutput{}, fmt.Errorf("ingest_file: %w: path is required", domain.ErrInvalidInput)
	}

	result, err := s.ports.Document.IngestFile(ctx, input.Path, driving.FileOptions{
		Title:     input.Title,
		Namespace: input.Namespace,
	})
	if err != nil {
		return nil, IngestOutput{}, toolError("ingest_file", err)
	}

	return nil, IngestOutput{DocumentID: result.DocumentID, ChunksCreated: result.ChunksCreated}, nil
}

// handleStats handles the stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, domain.IndexStats, error) {
	stats, err := s.ports.RAG.Stats(ctx)
	if err != nil {
		return nil, domain.IndexStats{}, toolError("stats", err)
	}
	if stats.Namespaces == nil {
		stats.Namespaces = map[string]int{}
	}
	return nil, *stats, nil
}

// handleHealth handles the health tool invocation.
func (s *Server) handleHealth(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ EmptyInput,
) (*mcp.CallToolResult, domain.HealthStatus, error) {
	health := s.ports.RAG.Health(ctx)
	if health.Components == nil {
		health.Components = map[string]domain.ComponentHealth{}
	}
	return nil, health, nil
}
