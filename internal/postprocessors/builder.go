package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

var _ driven.PipelineBuilder = (*Builder)(nil)

// Builder assembles a pipeline from registered processors for each ingestion.
type Builder struct {
	registry *Registry
	names    []string
}

// NewBuilder creates a builder over the given registry.
// With no names, DefaultProcessors is used.
func NewBuilder(registry *Registry, names ...string) *Builder {
	if len(names) == 0 {
		names = DefaultProcessors
	}
	return &Builder{registry: registry, names: names}
}

// NewDefaultBuilder registers the built-in processors and returns a builder.
func NewDefaultBuilder() *Builder {
	r := NewRegistry()
	RegisterDefaults(r)
	return NewBuilder(r)
}

// Build returns a pipeline whose chunker uses the given window settings.
func (b *Builder) Build(maxChunkChars, overlapChars int) (driven.PostProcessorPipeline, error) {
	w := Window{MaxChars: maxChunkChars, Overlap: overlapChars}
	p := NewPipeline()
	for _, name := range b.names {
		proc, err := b.registry.Build(name, w)
		if err != nil {
			return nil, fmt.Errorf("build pipeline: %w", err)
		}
		p.Add(proc)
	}
	return p, nil
}
