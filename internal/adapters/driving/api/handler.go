package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"

	"github.com/emicklei/go-restful/v3"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/logger"
	"github.com/custodia-labs/ragline/internal/normalisers"
)

// maxUploadBytes bounds a raw upload body.
const maxUploadBytes = 32 << 20

// Handler serves the RAG routes.
type Handler struct {
	rag       driving.RAGService
	documents driving.DocumentService
}

// NewHandler creates a handler. documents may be nil, which disables uploads.
func NewHandler(rag driving.RAGService, documents driving.DocumentService) *Handler {
	return &Handler{rag: rag, documents: documents}
}

// Chat handles POST /api/v1/chat.
func (h *Handler) Chat(req *restful.Request, resp *restful.Response) {
	var body ChatRequest
	if err := req.ReadEntity(&body); err != nil {
		HandleError(resp, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	if err := body.Validate(); err != nil {
		HandleError(resp, err)
		return
	}

	logger.Logger().Info().
		Str("conversation_id", body.ConversationID).
		Int("top_k", body.TopK).
		Msg("Process chat")

	turn, err := h.rag.Query(req.Request.Context(), body.toQuery())
	if err != nil {
		HandleError(resp, err)
		return
	}

	writeEntity(resp, http.StatusOK, newChatResponse(turn))
}

// IngestText handles POST /api/v1/documents.
func (h *Handler) IngestText(req *restful.Request, resp *restful.Response) {
	var body DocumentRequest
	if err := req.ReadEntity(&body); err != nil {
		HandleError(resp, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err))
		return
	}
	if err := body.Validate(); err != nil {
		HandleError(resp, err)
		return
	}

	result, err := h.rag.Ingest(req.Request.Context(), body.toIngest())
	if err != nil {
		HandleError(resp, err)
		return
	}

	logger.Logger().Info().
		Str("document_id", result.DocumentID).
		Int("chunks", result.ChunksCreated).
		Msg("Document ingested")

	writeEntity(resp, http.StatusCreated, result)
}

// Upload handles POST /api/v1/documents/upload.
// The body is the raw file; Content-Type selects the normaliser.
func (h *Handler) Upload(req *restful.Request, resp *restful.Response) {
	if h.documents == nil {
		HandleError(resp, fmt.Errorf("%w: uploads are disabled", domain.ErrNotConfigured))
		return
	}

	content, err := io.ReadAll(io.LimitReader(req.Request.Body, maxUploadBytes+1))
	if err != nil {
		HandleError(resp, fmt.Errorf("%w: reading body: %v", domain.ErrInvalidInput, err))
		return
	}
	if len(content) > maxUploadBytes {
		HandleError(resp, fmt.Errorf("%w: upload exceeds %d bytes", domain.ErrInvalidInput, maxUploadBytes))
		return
	}
	if len(content) == 0 {
		HandleError(resp, fmt.Errorf("%w: empty upload", domain.ErrInvalidInput))
		return
	}

	filename := req.QueryParameter("filename")
	raw := domain.RawDocument{
		ID:        req.QueryParameter("id"),
		URI:       filename,
		MIMEType:  uploadType(req.HeaderParameter("Content-Type"), filename),
		Content:   content,
		Namespace: req.QueryParameter("namespace"),
	}
	if title := req.QueryParameter("title"); title != "" {
		raw.Metadata = map[string]string{domain.MetaTitle: title}
	}

	result, err := h.documents.IngestRaw(req.Request.Context(), raw)
	if err != nil {
		HandleError(resp, err)
		return
	}

	logger.Logger().Info().
		Str("document_id", result.DocumentID).
		Str("mime_type", raw.MIMEType).
		Int("chunks", result.ChunksCreated).
		Msg("Upload ingested")

	writeEntity(resp, http.StatusCreated, result)
}

// DeleteDocument handles DELETE /api/v1/documents/{id}.
func (h *Handler) DeleteDocument(req *restful.Request, resp *restful.Response) {
	id := req.PathParameter("id")
	n, err := h.rag.DeleteDocument(req.Request.Context(), id)
	if err != nil {
		HandleError(resp, err)
		return
	}
	writeEntity(resp, http.StatusOK, DeleteResponse{DocumentID: id, VectorsDeleted: n})
}

// Health handles GET /api/v1/health.
func (h *Handler) Health(req *restful.Request, resp *restful.Response) {
	writeEntity(resp, http.StatusOK, h.rag.Health(req.Request.Context()))
}

// Stats handles GET /api/v1/stats.
func (h *Handler) Stats(req *restful.Request, resp *restful.Response) {
	stats, err := h.rag.Stats(req.Request.Context())
	if err != nil {
		HandleError(resp, err)
		return
	}
	writeEntity(resp, http.StatusOK, stats)
}

// uploadType picks the MIME type from the header, falling back to the
// filename extension for generic or missing types.
func uploadType(header, filename string) string {
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil || mediaType == "" || mediaType == "application/octet-stream" {
		return normalisers.MIMETypeForPath(filename)
	}
	return mediaType
}

func writeEntity(resp *restful.Response, status int, entity any) {
	if err := resp.WriteHeaderAndEntity(status, entity); err != nil {
		logger.Logger().Error().Err(err).Msg("Failed to write response")
	}
}
