package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

func TestSupportedMIMETypes(t *testing.T) {
	assert.Contains(t, New().SupportedMIMETypes(), "text/plain")
	assert.Equal(t, 5, New().Priority())
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawDocument{
		ID:        "doc-1",
		URI:       "/path/to/release_notes-v2.txt",
		MIMEType:  "text/plain",
		Content:   []byte("First   line\t here.\n\n\n\nSecond paragraph.\fPage two."),
		Namespace: "manuals",
		Metadata:  map[string]string{"team": "docs"},
	}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "doc-1", doc.ID)
	assert.Equal(t, raw.URI, doc.URI)
	assert.Equal(t, "release notes v2", doc.Title)
	assert.Equal(t, "First line here.\n\nSecond paragraph.\fPage two.", doc.Content)
	assert.Equal(t, "manuals", doc.Namespace)
	assert.Equal(t, "docs", doc.Metadata["team"])
	assert.Equal(t, "text/plain", doc.Metadata[domain.MetaMIMEType])
	assert.NotContains(t, raw.Metadata, domain.MetaMIMEType)
}

func TestNormalise_TitleFromMetadata(t *testing.T) {
	raw := &domain.RawDocument{
		URI:      "upload.txt",
		MIMEType: "text/plain",
		Content:  []byte("x"),
		Metadata: map[string]string{"title": "Handbook"},
	}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)
	assert.Equal(t, "Handbook", doc.Title)
}

func TestNormalise_Errors(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New().Normalise(context.Background(), &domain.RawDocument{Content: []byte{0xff, 0xfe}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = New().Normalise(ctx, &domain.RawDocument{Content: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)
}
