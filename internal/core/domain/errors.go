package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// Adapters wrap infrastructure failures in one of these so the driving
// side can map them to a caller-facing status.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown MIME type or provider.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrDimensionMismatch indicates a vector does not match the index dimension.
	// This is a configuration inconsistency, not a caller error.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrEmbeddingService indicates the embedding service failed.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrGenerationService indicates the generation (LLM) service failed.
	ErrGenerationService = errors.New("generation service error")

	// ErrStoreUnavailable indicates the vector store could not be reached.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrRateLimited indicates an upstream rate limit was exceeded.
	// Always retryable.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotConfigured indicates a required service is missing from settings.
	ErrNotConfigured = errors.New("not configured")
)

// DimensionMismatchError reports the expected and actual vector sizes.
type DimensionMismatchError struct {
	Expected int
	Actual   int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// Is matches ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// ServiceError is an upstream failure tagged with the service that produced it.
// Kind is one of ErrEmbeddingService, ErrGenerationService or ErrStoreUnavailable.
type ServiceError struct {
	// Kind is the service sentinel.
	Kind error

	// Op names the failed operation (e.g. "embed", "chat", "upsert").
	Op string

	// Retryable is true for transient failures (rate limits, timeouts, 5xx).
	Retryable bool

	// RateLimited is true when the upstream signalled throttling.
	RateLimited bool

	// Err is the underlying cause.
	Err error
}

func (e *ServiceError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap exposes both the service sentinel and the cause.
func (e *ServiceError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.RateLimited {
		errs = append(errs, ErrRateLimited)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// NewServiceError tags err with a service kind.
func NewServiceError(kind error, op string, retryable bool, err error) *ServiceError {
	return &ServiceError{Kind: kind, Op: op, Retryable: retryable, Err: err}
}

// NewRateLimitError builds a retryable, rate-limited service error.
func NewRateLimitError(kind error, op string, err error) *ServiceError {
	return &ServiceError{Kind: kind, Op: op, Retryable: true, RateLimited: true, Err: err}
}

// IngestStage names the ingestion step that failed.
type IngestStage string

// Ingestion stages.
const (
	StageChunk  IngestStage = "chunk"
	StageEmbed  IngestStage = "embed"
	StageUpsert IngestStage = "upsert"
)

// IngestError reports a partial ingestion failure.
// Chunks counted in Upserted remain persisted; re-running the whole
// ingestion is safe because upsert is idempotent.
type IngestError struct {
	DocumentID string
	Stage      IngestStage

	// Batch is the zero-based batch that failed, or -1 when not batched.
	Batch int

	// ChunkIDs are the chunks in the failed batch.
	ChunkIDs []string

	// Upserted is the number of chunks persisted before the failure.
	Upserted int

	Err error
}

func (e *IngestError) Error() string {
	if e.Batch >= 0 {
		return fmt.Sprintf("ingest %s: %s batch %d failed after %d chunks upserted: %v",
			e.DocumentID, e.Stage, e.Batch, e.Upserted, e.Err)
	}
	return fmt.Sprintf("ingest %s: %s failed: %v", e.DocumentID, e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}

// IsServiceError reports whether err comes from an upstream service.
func IsServiceError(err error) bool {
	return errors.Is(err, ErrEmbeddingService) ||
		errors.Is(err, ErrGenerationService) ||
		errors.Is(err, ErrStoreUnavailable)
}
