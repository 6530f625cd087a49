package postprocessors

import (
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/postprocessors/chunker"
	"github.com/custodia-labs/ragline/internal/postprocessors/metadata"
	"github.com/custodia-labs/ragline/internal/postprocessors/pages"
)

// DefaultProcessors is the pipeline order used for ingestion.
var DefaultProcessors = []string{"chunker", "pages", "metadata"}

// RegisterDefaults registers the built-in processors.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", newChunker)
	r.Register("pages", func(Window) (driven.PostProcessor, error) {
		return pages.New(), nil
	})
	r.Register("metadata", func(Window) (driven.PostProcessor, error) {
		return metadata.New(), nil
	})
}

func newChunker(w Window) (driven.PostProcessor, error) {
	if w.MaxChars <= 0 {
		return chunker.New(), nil
	}
	return chunker.New(chunker.WithChunkSize(w.MaxChars), chunker.WithOverlap(w.Overlap)), nil
}
