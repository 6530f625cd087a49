package metadata

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "metadata", New().Name())
}

func TestProcessor_Process(t *testing.T) {
	doc := &domain.Document{
		ID:        "doc",
		URI:       "/docs/guide.md",
		Title:     "Guide",
		Namespace: "manuals",
		Metadata:  map[string]string{"author": "ops", domain.MetaPage: "9"},
	}
	in := []domain.Chunk{
		{ID: "doc#0"},
		{ID: "doc#1", Metadata: map[string]string{domain.MetaPage: "2"}},
	}

	out, err := New().Process(context.Background(), doc, in)
	require.NoError(t, err)
	require.Len(t, out, 2)

	for _, c := range out {
		assert.Equal(t, "manuals", c.Namespace())
		assert.Equal(t, "Guide", c.Metadata[domain.MetaTitle])
		assert.Equal(t, "/docs/guide.md", c.Metadata[domain.MetaSource])
		assert.Equal(t, "ops", c.Metadata["author"])
	}
	assert.Equal(t, "9", out[0].Metadata[domain.MetaPage])
	assert.Equal(t, "2", out[1].Metadata[domain.MetaPage])
}

func TestProcessor_DefaultNamespace(t *testing.T) {
	out, err := New().Process(context.Background(), &domain.Document{ID: "d"}, []domain.Chunk{{ID: "d#0"}})
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultNamespace, out[0].Metadata[domain.MetaNamespace])
	assert.NotContains(t, out[0].Metadata, domain.MetaTitle)
	assert.NotContains(t, out[0].Metadata, domain.MetaSource)
}
