package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/go-openapi/spec"
	"github.com/rs/cors"

	"github.com/custodia-labs/ragline/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/logger"
)

const (
	// DefaultAddr is the listen address when none is configured.
	DefaultAddr = ":8080"

	// DefaultRequestsPerMinute is the per-client allowance.
	DefaultRequestsPerMinute = 60

	shutdownTimeout = 10 * time.Second
)

// Config configures the HTTP server.
type Config struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	// RequestsPerMinute is the per-client-IP limit. Zero disables it.
	RequestsPerMinute int

	// Version is reported in the OpenAPI document.
	Version string
}

// ConfigFromSettings maps server settings to a Config.
func ConfigFromSettings(s domain.AppSettings, version string) Config {
	return Config{
		Addr:              s.Server.Addr,
		AllowedOrigins:    s.Server.AllowedOrigins,
		ReadTimeout:       s.Server.ReadTimeout,
		WriteTimeout:      s.Server.WriteTimeout,
		RequestsPerMinute: s.RateLimit.RequestsPerMinute,
		Version:           version,
	}
}

// Server is the HTTP API.
type Server struct {
	cfg     Config
	handler http.Handler
}

// NewServer builds the restful container, OpenAPI service and CORS wrapper.
func NewServer(cfg Config, rag driving.RAGService, documents driving.DocumentService) (*Server, error) {
	if rag == nil {
		return nil, ErrMissingRAGService
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}

	container := restful.NewContainer()
	container.Filter(Logger)
	container.Filter(RecoverPanic)
	if cfg.RequestsPerMinute > 0 {
		container.Filter(RateLimit(ratelimit.NewPerMinute(cfg.RequestsPerMinute)))
	}

	RegisterRoutes(container, NewHandler(rag, documents))

	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices:                   container.RegisteredWebServices(),
		APIPath:                       openAPIPath,
		PostBuildSwaggerObjectHandler: enrichSwaggerObject(cfg.Version),
	}))

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})

	return &Server{cfg: cfg, handler: corsHandler.Handler(container)}, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Logger().Warn().Err(err).Msg("HTTP shutdown")
		}
	}()

	logger.Logger().Info().Str("address", s.cfg.Addr).Msg("Starting HTTP API")

	err := httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func enrichSwaggerObject(version string) func(*spec.Swagger) {
	if version == "" {
		version = "dev"
	}
	return func(swo *spec.Swagger) {
		swo.Info = &spec.Info{
			InfoProps: spec.InfoProps{
				Title:       "ragline API",
				Description: "Retrieval-augmented question answering over ingested documents",
				Version:     version,
			},
		}
		swo.Tags = []spec.Tag{
			{TagProps: spec.TagProps{Name: "chat", Description: "Question answering"}},
			{TagProps: spec.TagProps{Name: "documents", Description: "Ingestion and deletion"}},
			{TagProps: spec.TagProps{Name: "system", Description: "Health and statistics"}},
		}
	}
}
