package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

// Window is the chunking window of one ingestion. A zero MaxChars keeps the
// chunker defaults.
type Window struct {
	MaxChars int
	Overlap  int
}

// Factory creates a processor for one ingestion window. Processors that do
// not chunk ignore the window.
type Factory func(w Window) (driven.PostProcessor, error)

// Registry maps processor names to factories.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. The name should match the processor's Name().
func (r *Registry) Register(name string, f Factory) {
	r.factories[name] = f
}

// Build creates the named processor for w.
func (r *Registry) Build(name string, w Window) (driven.PostProcessor, error) {
	f, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown processor %q", domain.ErrUnsupportedType, name)
	}
	return f(w)
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.factories[name]
	return ok
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
