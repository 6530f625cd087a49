// Package metadata copies document-level attributes onto every chunk so
// stores can filter by namespace and citations can name the source.
package metadata

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// Processor stamps document metadata onto chunks.
type Processor struct{}

// New creates a metadata processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "metadata"
}

// Process merges the document's metadata into each chunk. Keys already set
// on a chunk (such as page) win over document metadata, while namespace,
// title and source always reflect the document.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	ns := doc.Namespace
	if ns == "" {
		ns = domain.DefaultNamespace
	}

	for i := range chunks {
		md := make(map[string]string, len(doc.Metadata)+len(chunks[i].Metadata)+3)
		for k, v := range doc.Metadata {
			md[k] = v
		}
		for k, v := range chunks[i].Metadata {
			md[k] = v
		}
		md[domain.MetaNamespace] = ns
		if doc.Title != "" {
			md[domain.MetaTitle] = doc.Title
		}
		if doc.URI != "" {
			md[domain.MetaSource] = doc.URI
		}
		chunks[i].Metadata = md
	}
	return chunks, nil
}
