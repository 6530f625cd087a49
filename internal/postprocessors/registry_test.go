package postprocessors

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
)

func TestRegistry_BuildAndHas(t *testing.T) {
	r := NewRegistry()
	r.Register("test", func(w Window) (driven.PostProcessor, error) {
		return &mockProcessor{name: fmt.Sprintf("window-%d-%d", w.MaxChars, w.Overlap)}, nil
	})

	assert.True(t, r.Has("test"))
	assert.False(t, r.Has("missing"))

	proc, err := r.Build("test", Window{MaxChars: 200, Overlap: 20})
	require.NoError(t, err)
	assert.Equal(t, "window-200-20", proc.Name())

	_, err = r.Build("missing", Window{})
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	assert.Equal(t, []string{"chunker", "metadata", "pages"}, r.Names())
}

func TestNewChunker_ZeroWindowKeepsDefaults(t *testing.T) {
	proc, err := newChunker(Window{})
	require.NoError(t, err)
	assert.Equal(t, "chunker", proc.Name())
}

func TestBuilder_DefaultPipeline(t *testing.T) {
	b := NewDefaultBuilder()

	pipeline, err := b.Build(12, 3)
	require.NoError(t, err)
	assert.Equal(t, []string{"chunker", "pages", "metadata"}, pipeline.(*Pipeline).Names())

	doc := &domain.Document{
		ID:        "doc",
		Title:     "Notes",
		Namespace: "team",
		Content:   "first page text\fsecond page text",
	}
	chunks, err := pipeline.Process(context.Background(), doc)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, 1, chunks[0].Page())
	assert.Equal(t, 2, chunks[len(chunks)-1].Page())
	for _, c := range chunks {
		assert.LessOrEqual(t, c.Len(), 12)
		assert.Equal(t, "team", c.Namespace())
		assert.Equal(t, "Notes", c.SourceLabel())
	}
}

func TestBuilder_InvalidWindow(t *testing.T) {
	pipeline, err := NewDefaultBuilder().Build(10, 10)
	require.NoError(t, err)

	_, err = pipeline.Process(context.Background(), &domain.Document{ID: "d", Content: "some text"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestBuilder_UnknownProcessor(t *testing.T) {
	_, err := NewBuilder(NewRegistry(), "nope").Build(10, 2)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
