package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Query          string                  `json:"query" description:"the question to answer"`
	ConversationID string                  `json:"conversation_id,omitempty" description:"continues an existing conversation"`
	History        []domain.HistoryMessage `json:"history,omitempty" description:"prior messages, used instead of stored history"`
	Namespace      string                  `json:"namespace,omitempty" description:"restricts retrieval to one namespace"`
	TopK           int                     `json:"top_k,omitempty" description:"overrides the configured retrieval_top_k"`
}

// Validate rejects requests the service cannot answer.
func (r ChatRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return fmt.Errorf("%w: query is required", domain.ErrInvalidInput)
	}
	if r.TopK < 0 {
		return fmt.Errorf("%w: top_k must not be negative", domain.ErrInvalidInput)
	}
	for _, m := range r.History {
		if m.Role != domain.RoleUser && m.Role != domain.RoleAssistant {
			return fmt.Errorf("%w: history role %q", domain.ErrInvalidInput, m.Role)
		}
	}
	return nil
}

func (r ChatRequest) toQuery() driving.QueryRequest {
	return driving.QueryRequest{
		Text:           r.Query,
		ConversationID: r.ConversationID,
		History:        r.History,
		Namespace:      r.Namespace,
		TopK:           r.TopK,
	}
}

// ChatResponse is the answer to a ChatRequest.
type ChatResponse struct {
	TurnID            string            `json:"turn_id"`
	ConversationID    string            `json:"conversation_id"`
	Answer            string            `json:"answer"`
	Citations         []domain.Citation `json:"citations"`
	GroundedOnContext bool              `json:"grounded_on_context"`
	Timestamp         time.Time         `json:"timestamp"`
}

func newChatResponse(turn *domain.ConversationTurn) ChatResponse {
	citations := turn.Citations
	if citations == nil {
		citations = []domain.Citation{}
	}
	return ChatResponse{
		TurnID:            turn.ID,
		ConversationID:    turn.ConversationID,
		Answer:            turn.Answer,
		Citations:         citations,
		GroundedOnContext: turn.GroundedOnContext,
		Timestamp:         turn.Timestamp,
	}
}

// DocumentRequest is the body of POST /api/v1/documents.
type DocumentRequest struct {
	DocumentID    string            `json:"document_id,omitempty" description:"generated when empty; an existing id is replaced"`
	Text          string            `json:"text" description:"the document text"`
	Title         string            `json:"title,omitempty"`
	Source        string            `json:"source,omitempty"`
	Namespace     string            `json:"namespace,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	MaxChunkChars int               `json:"max_chunk_chars,omitempty"`
	OverlapChars  *int              `json:"overlap_chars,omitempty"`
}

// Validate rejects empty documents.
func (r DocumentRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return fmt.Errorf("%w: text is required", domain.ErrInvalidInput)
	}
	return nil
}

func (r DocumentRequest) toIngest() driving.IngestRequest {
	return driving.IngestRequest{
		DocumentID:    r.DocumentID,
		Text:          r.Text,
		Title:         r.Title,
		Source:        r.Source,
		Namespace:     r.Namespace,
		Metadata:      r.Metadata,
		MaxChunkChars: r.MaxChunkChars,
		OverlapChars:  r.OverlapChars,
		Replace:       r.DocumentID != "",
	}
}

// DeleteResponse reports a document deletion.
type DeleteResponse struct {
	DocumentID     string `json:"document_id"`
	VectorsDeleted int    `json:"vectors_deleted"`
}
