package driving

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// DocumentService ingests files and uploads through the normaliser registry.
type DocumentService interface {
	// IngestRaw normalises raw bytes and ingests the resulting text.
	IngestRaw(ctx context.Context, raw domain.RawDocument) (*IngestResult, error)

	// IngestFile reads a file from disk and ingests it.
	// The document ID defaults to a UUID derived from the absolute path,
	// so re-ingesting a file replaces its previous chunks.
	IngestFile(ctx context.Context, path string, opts FileOptions) (*IngestResult, error)

	// RemoveFile deletes the vectors of a previously ingested file.
	RemoveFile(ctx context.Context, path string) (int, error)

	// SupportedExtensions lists the file extensions that can be ingested.
	SupportedExtensions() []string
}

// FileOptions overrides defaults for file ingestion.
type FileOptions struct {
	DocumentID string
	Title      string
	Namespace  string
}
