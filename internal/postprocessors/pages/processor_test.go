package pages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "pages", New().Name())
}

func TestProcessor_NoPageBreaks(t *testing.T) {
	doc := &domain.Document{Content: "one page only"}
	in := []domain.Chunk{{ID: "d#0", CharStart: 0, CharEnd: 13}}

	out, err := New().Process(context.Background(), doc, in)
	require.NoError(t, err)
	assert.Nil(t, out[0].Metadata)
}

func TestProcessor_TagsPages(t *testing.T) {
	// "ab" page 1, "\f" at 2, "cd" page 2, "\f" at 5, "ef" page 3.
	doc := &domain.Document{Content: "ab\fcd\fef"}
	in := []domain.Chunk{
		{ID: "d#0", CharStart: 0, CharEnd: 2},
		{ID: "d#1", CharStart: 3, CharEnd: 5, Metadata: map[string]string{"k": "v"}},
		{ID: "d#2", CharStart: 6, CharEnd: 8},
	}

	out, err := New().Process(context.Background(), doc, in)
	require.NoError(t, err)

	assert.Equal(t, 1, out[0].Page())
	assert.Equal(t, 2, out[1].Page())
	assert.Equal(t, "v", out[1].Metadata["k"])
	assert.Equal(t, 3, out[2].Page())
}

func TestProcessor_CountsRunesNotBytes(t *testing.T) {
	doc := &domain.Document{Content: "ééé\fààà"}
	in := []domain.Chunk{{ID: "d#0", CharStart: 4, CharEnd: 7}}

	out, err := New().Process(context.Background(), doc, in)
	require.NoError(t, err)
	assert.Equal(t, 2, out[0].Page())
}
