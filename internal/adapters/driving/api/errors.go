package api

import (
	"errors"
	"net/http"

	"github.com/emicklei/go-restful/v3"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/logger"
)

// ErrMissingRAGService is returned when the server is built without a RAG service.
var ErrMissingRAGService = errors.New("api: rag service is required")

const genericMessage = "internal server error"

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// StatusFor maps an error from the core to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrDimensionMismatch):
		return http.StatusInternalServerError
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case domain.IsServiceError(err), errors.Is(err, domain.ErrNotConfigured):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage is what the client sees for err.
// Caller errors keep their detail; upstream failures are reduced to their kind.
func publicMessage(err error, status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusUnsupportedMediaType:
		return err.Error()
	case http.StatusTooManyRequests:
		return "rate limit exceeded, please try again later"
	case http.StatusServiceUnavailable:
		for _, kind := range []error{
			domain.ErrEmbeddingService,
			domain.ErrGenerationService,
			domain.ErrStoreUnavailable,
			domain.ErrNotConfigured,
		} {
			if errors.Is(err, kind) {
				return kind.Error()
			}
		}
		return http.StatusText(status)
	default:
		return genericMessage
	}
}

// HandleError logs err and writes the mapped status and message.
func HandleError(resp *restful.Response, err error) {
	status := StatusFor(err)
	log := logger.Logger()

	switch {
	case errors.Is(err, domain.ErrDimensionMismatch):
		log.Error().Err(err).Msg("Vector dimension mismatch: embedding model and vector store are misconfigured")
	case status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable:
		log.Error().Err(err).Msg("Request failed")
	default:
		log.Warn().Err(err).Int("status", status).Msg("Request rejected")
	}

	writeError(resp, status, publicMessage(err, status))
}

func writeError(resp *restful.Response, status int, msg string) {
	if err := resp.WriteHeaderAndEntity(status, ErrorResponse{Error: msg, Status: status}); err != nil {
		logger.Logger().Error().Err(err).Msg("Failed to write error response")
	}
}
