package api

import (
	"net/http"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

const (
	basePath    = "/api/v1"
	openAPIPath = basePath + "/openapi.json"
)

// RegisterRoutes adds the RAG web service to container.
func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path(basePath).
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.POST("/chat").
			To(handler.Chat).
			Doc("Answer a question from the indexed documents").
			Metadata(restfulspec.KeyOpenAPITags, []string{"chat"}).
			Reads(ChatRequest{}).
			Writes(ChatResponse{}).
			Returns(http.StatusOK, "OK", ChatResponse{}).
			Returns(http.StatusBadRequest, "Bad Request", ErrorResponse{}).
			Returns(http.StatusTooManyRequests, "Too Many Requests", ErrorResponse{}).
			Returns(http.StatusServiceUnavailable, "Upstream Unavailable", ErrorResponse{}))

	ws.
		Route(ws.POST("/documents").
			To(handler.IngestText).
			Doc("Ingest a text document").
			Metadata(restfulspec.KeyOpenAPITags, []string{"documents"}).
			Reads(DocumentRequest{}).
			Writes(driving.IngestResult{}).
			Returns(http.StatusCreated, "Created", driving.IngestResult{}).
			Returns(http.StatusBadRequest, "Bad Request", ErrorResponse{}).
			Returns(http.StatusServiceUnavailable, "Upstream Unavailable", ErrorResponse{}))

	ws.
		Route(ws.POST("/documents/upload").
			To(handler.Upload).
			Consumes("*/*").
			Doc("Ingest a raw file; Content-Type selects the parser").
			Metadata(restfulspec.KeyOpenAPITags, []string{"documents"}).
			Param(ws.QueryParameter("filename", "original file name, used for the title and type fallback").DataType("string")).
			Param(ws.QueryParameter("id", "document id; an existing id is replaced").DataType("string")).
			Param(ws.QueryParameter("title", "document title").DataType("string")).
			Param(ws.QueryParameter("namespace", "vector store namespace").DataType("string")).
			Writes(driving.IngestResult{}).
			Returns(http.StatusCreated, "Created", driving.IngestResult{}).
			Returns(http.StatusBadRequest, "Bad Request", ErrorResponse{}).
			Returns(http.StatusUnsupportedMediaType, "Unsupported Media Type", ErrorResponse{}))

	ws.
		Route(ws.DELETE("/documents/{id}").
			To(handler.DeleteDocument).
			Doc("Delete a document's vectors").
			Metadata(restfulspec.KeyOpenAPITags, []string{"documents"}).
			Param(ws.PathParameter("id", "document id").DataType("string")).
			Writes(DeleteResponse{}).
			Returns(http.StatusOK, "OK", DeleteResponse{}).
			Returns(http.StatusNotFound, "Not Found", ErrorResponse{}))

	ws.
		Route(ws.GET("/health").
			To(handler.Health).
			Doc("Component health").
			Metadata(restfulspec.KeyOpenAPITags, []string{"system"}).
			Writes(domain.HealthStatus{}).
			Returns(http.StatusOK, "OK", domain.HealthStatus{}))

	ws.
		Route(ws.GET("/stats").
			To(handler.Stats).
			Doc("Vector store statistics").
			Metadata(restfulspec.KeyOpenAPITags, []string{"system"}).
			Writes(domain.IndexStats{}).
			Returns(http.StatusOK, "OK", domain.IndexStats{}).
			Returns(http.StatusServiceUnavailable, "Store Unavailable", ErrorResponse{}))

	container.Add(ws)
}
