package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/logger"
	"github.com/custodia-labs/ragline/internal/normalisers"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// maxFileBytes bounds a single upload or file read.
const maxFileBytes = 32 << 20

// fileNamespace seeds path-derived document IDs.
var fileNamespace = uuid.MustParse("6f1d2c4e-8a51-4e8b-9a0c-3b7d5e2f1a90")

// DocumentService normalises files and uploads, then hands their text
// to the RAG service.
type DocumentService struct {
	rag      driving.RAGService
	registry driven.NormaliserRegistry
}

// NewDocumentService creates a new document service.
func NewDocumentService(rag driving.RAGService, registry driven.NormaliserRegistry) *DocumentService {
	return &DocumentService{rag: rag, registry: registry}
}

// IngestRaw normalises raw bytes and ingests the resulting text.
func (s *DocumentService) IngestRaw(ctx context.Context, raw domain.RawDocument) (*driving.IngestResult, error) {
	if len(raw.Content) > maxFileBytes {
		return nil, fmt.Errorf("%w: document exceeds %d bytes", domain.ErrInvalidInput, maxFileBytes)
	}

	doc, err := s.registry.Normalise(ctx, &raw)
	if err != nil {
		return nil, err
	}

	return s.rag.Ingest(ctx, driving.IngestRequest{
		DocumentID: raw.ID,
		Text:       doc.Content,
		Title:      doc.Title,
		Source:     doc.URI,
		Namespace:  doc.Namespace,
		Metadata:   doc.Metadata,
		Replace:    raw.ID != "",
	})
}

// IngestFile reads a file and ingests it, replacing any earlier version.
func (s *DocumentService) IngestFile(
	ctx context.Context, path string, opts driving.FileOptions,
) (*driving.IngestResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	if !s.supported(abs) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedType, filepath.Ext(abs))
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}
	if info.Size() > maxFileBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrInvalidInput, path, maxFileBytes)
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	id := opts.DocumentID
	if id == "" {
		id = FileDocumentID(abs)
	}
	var metadata map[string]string
	if opts.Title != "" {
		metadata = map[string]string{domain.MetaTitle: opts.Title}
	}

	logger.Debug("Ingesting file %s as %s", abs, id)
	return s.IngestRaw(ctx, domain.RawDocument{
		ID:        id,
		URI:       abs,
		MIMEType:  normalisers.MIMETypeForPath(abs),
		Content:   content,
		Namespace: opts.Namespace,
		Metadata:  metadata,
	})
}

// RemoveFile deletes the vectors of a previously ingested file.
func (s *DocumentService) RemoveFile(ctx context.Context, path string) (int, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, fmt.Errorf("resolve %s: %w", path, err)
	}
	return s.rag.DeleteDocument(ctx, FileDocumentID(abs))
}

// SupportedExtensions lists the file extensions that can be ingested.
func (s *DocumentService) SupportedExtensions() []string {
	types := s.registry.SupportedMIMETypes()
	var exts []string
	for _, ext := range []string{".txt", ".text", ".md", ".markdown"} {
		if slices.Contains(types, normalisers.MIMETypeForPath(ext)) {
			exts = append(exts, ext)
		}
	}
	return exts
}

// supported reports whether path has an ingestible extension.
func (s *DocumentService) supported(path string) bool {
	return slices.Contains(s.SupportedExtensions(), strings.ToLower(filepath.Ext(path)))
}

// FileDocumentID derives a stable document ID from an absolute path.
func FileDocumentID(absPath string) string {
	return uuid.NewSHA1(fileNamespace, []byte(filepath.Clean(absPath))).String()
}
