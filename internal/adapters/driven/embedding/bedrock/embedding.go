// Package bedrock provides an embedding service adapter using Amazon Titan
// text embeddings on AWS Bedrock.
package bedrock

import (
	"context"
	"fmt"

	"github.com/custodia-labs/ragline/internal/adapters/driven/awsbedrock"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultModel      = "amazon.titan-embed-text-v2:0"
	DefaultDimensions = 1024
)

// Config holds configuration for the Bedrock embedding service.
type Config struct {
	// Region is the AWS region (default: us-east-1).
	Region string

	// Model is the Titan model ID.
	Model string

	// Dimensions is 256, 512 or 1024 for Titan v2.
	Dimensions int
}

// EmbeddingService generates embeddings with Titan. Titan embeds one text
// per request, so a batch is a sequence of calls.
type EmbeddingService struct {
	api        awsbedrock.InvokeAPI
	model      string
	dimensions int
}

type titanRequest struct {
	InputText  string `json:"inputText"`
	Dimensions int    `json:"dimensions,omitempty"`
	Normalize  bool   `json:"normalize"`
}

type titanResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// NewEmbeddingService loads AWS credentials and creates the service.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	api, err := awsbedrock.NewRuntime(ctx, cfg.Region)
	if err != nil {
		return nil, err
	}
	return NewWithAPI(api, cfg), nil
}

// NewWithAPI creates the service over an existing runtime client.
func NewWithAPI(api awsbedrock.InvokeAPI, cfg Config) *EmbeddingService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &EmbeddingService{api: api, model: cfg.Model, dimensions: cfg.Dimensions}
}

// Embed generates a normalised vector for text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	var resp titanResponse
	req := titanRequest{InputText: text, Dimensions: s.dimensions, Normalize: true}
	if err := awsbedrock.Invoke(ctx, s.api, s.model, domain.ErrEmbeddingService, "embed", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, domain.NewServiceError(domain.ErrEmbeddingService, "embed", false,
			fmt.Errorf("bedrock returned an empty embedding"))
	}
	return resp.Embedding, nil
}

// EmbedBatch embeds texts one at a time, in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the Titan model ID.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping embeds a single word; Bedrock has no cheaper authenticated call on
// the runtime endpoint.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	_, err := s.Embed(ctx, "ping")
	return err
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}
