package chunker

import (
	"context"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		assert.Equal(t, DefaultChunkSize, p.chunkSize)
		assert.Equal(t, DefaultChunkOverlap, p.overlap)
	})

	t.Run("custom values", func(t *testing.T) {
		p := New(WithChunkSize(80), WithOverlap(10))
		assert.Equal(t, 80, p.chunkSize)
		assert.Equal(t, 10, p.overlap)
	})
}

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "chunker", New().Name())
}

func TestProcessor_Process(t *testing.T) {
	p := New(WithChunkSize(20), WithOverlap(5))
	doc := &domain.Document{ID: "doc", Content: "alpha beta gamma delta epsilon zeta eta theta"}

	chunks, err := p.Process(context.Background(), doc, nil)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for i, c := range chunks {
		assert.Equal(t, "doc", c.DocumentID)
		assert.Equal(t, i, c.SequenceIndex)
		assert.Equal(t, domain.ChunkID("doc", i), c.ID)
	}
}

func TestProcessor_Process_InvalidOptions(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(10))
	_, err := p.Process(context.Background(), &domain.Document{ID: "d", Content: "text"}, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestProcessor_Process_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().Process(ctx, &domain.Document{ID: "d", Content: "text"}, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChunk_Validation(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		max     int
		overlap int
	}{
		{"zero max", "abc", 0, 0},
		{"negative max", "abc", -5, 0},
		{"negative overlap", "abc", 10, -1},
		{"overlap equals max", "abc", 10, 10},
		{"overlap exceeds max", "abc", 10, 11},
		{"invalid utf8", "abc\xff\xfe", 10, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Chunk("d", tt.text, tt.max, tt.overlap)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestChunk_Empty(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\n\t"} {
		chunks, err := Chunk("d", text, 10, 3)
		require.NoError(t, err)
		assert.Empty(t, chunks, "text %q", text)
	}
}

func TestChunk_SmallContent(t *testing.T) {
	chunks, err := Chunk("d", "This is a small piece of content.", 100, 20)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "This is a small piece of content.", chunks[0].Content)
	assert.Equal(t, 0, chunks[0].CharStart)
	assert.Equal(t, 33, chunks[0].CharEnd)
	assert.Equal(t, "d#0", chunks[0].ID)
}

func TestChunk_QuickBrownFox(t *testing.T) {
	text := "The quick brown fox jumps"

	chunks, err := Chunk("fox", text, 10, 3)
	require.NoError(t, err)

	want := []string{"The quick", "brown fox", "jumps"}
	require.Len(t, chunks, len(want))
	for i, c := range chunks {
		assert.Equal(t, want[i], c.Content)
		assert.LessOrEqual(t, len([]rune(c.Content)), 10)
	}
	assertWordAligned(t, text, chunks)
	assertCoverage(t, text, chunks, 3)
}

func TestChunk_HardSplit(t *testing.T) {
	text := "abcdefghijklmnopqrstu"

	chunks, err := Chunk("d", text, 10, 3)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Equal(t, "abcdefghij", chunks[0].Content)
	assert.Equal(t, "hijklmnopq", chunks[1].Content)
	assert.Equal(t, "opqrstu", chunks[2].Content)
	assertCoverage(t, text, chunks, 3)
}

func TestChunk_FinalShortWindowEmitted(t *testing.T) {
	text := strings.Repeat("x", 25)

	chunks, err := Chunk("d", text, 10, 0)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Equal(t, 5, chunks[2].Len())
	assert.Equal(t, 25, chunks[2].CharEnd)
}

func TestChunk_PrefersParagraphBreak(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph follows with more words."

	chunks, err := Chunk("d", text, 30, 5)
	require.NoError(t, err)

	require.NotEmpty(t, chunks)
	assert.Equal(t, "First paragraph here.", chunks[0].Content)
	assertCoverage(t, text, chunks, 5)
}

func TestChunk_PrefersSentenceBreak(t *testing.T) {
	text := "One two three four. Five six seven eight nine"

	chunks, err := Chunk("d", text, 30, 5)
	require.NoError(t, err)

	require.NotEmpty(t, chunks)
	assert.Equal(t, "One two three four.", chunks[0].Content)
	assertCoverage(t, text, chunks, 5)
}

func TestChunk_RuneOffsets(t *testing.T) {
	text := "héllo wörld ünïcode ëverywhere"

	chunks, err := Chunk("d", text, 12, 4)
	require.NoError(t, err)

	runes := []rune(text)
	for _, c := range chunks {
		assert.Equal(t, c.Content, string(runes[c.CharStart:c.CharEnd]))
	}
	assertCoverage(t, text, chunks, 4)
}

func TestChunk_Properties(t *testing.T) {
	texts := []string{
		"The quick brown fox jumps over the lazy dog. The dog sleeps.",
		strings.Repeat("lorem ipsum dolor sit amet ", 40),
		"short",
		"a b c d e f g h i j k l m n o p q r s t u v w x y z",
		"supercalifragilisticexpialidocious is a long word indeed",
		"line one\nline two\n\nparagraph two\fpage two starts here and keeps going",
	}
	params := []struct{ max, overlap int }{
		{10, 3}, {16, 0}, {25, 8}, {50, 10}, {7, 6}, {1, 0},
	}

	for _, text := range texts {
		for _, p := range params {
			chunks, err := Chunk("doc", text, p.max, p.overlap)
			require.NoError(t, err)

			prevStart := -1
			for i, c := range chunks {
				assert.Greater(t, c.CharEnd, c.CharStart)
				assert.LessOrEqual(t, c.Len(), p.max)
				assert.NotEmpty(t, strings.TrimSpace(c.Content))
				assert.Greater(t, c.CharStart, prevStart, "starts must increase")
				assert.Equal(t, i, c.SequenceIndex)
				prevStart = c.CharStart
			}
			assertCoverage(t, text, chunks, p.overlap)
		}
	}
}

// assertCoverage checks that every non-space rune is inside some chunk and
// that consecutive chunks overlap by at most maxOverlap runes.
func assertCoverage(t *testing.T, text string, chunks []domain.Chunk, maxOverlap int) {
	t.Helper()
	runes := []rune(text)
	covered := make([]bool, len(runes))
	for i, c := range chunks {
		for j := c.CharStart; j < c.CharEnd; j++ {
			covered[j] = true
		}
		if i > 0 {
			overlap := chunks[i-1].CharEnd - c.CharStart
			assert.LessOrEqual(t, overlap, maxOverlap, "chunk %d overlap", i)
		}
	}
	for i, r := range runes {
		if !unicode.IsSpace(r) {
			assert.True(t, covered[i], "rune %d (%q) not covered", i, r)
		}
	}
}

func assertWordAligned(t *testing.T, text string, chunks []domain.Chunk) {
	t.Helper()
	runes := []rune(text)
	for _, c := range chunks {
		if c.CharStart > 0 {
			assert.True(t, unicode.IsSpace(runes[c.CharStart-1]), "chunk %s starts mid-word", c.ID)
		}
		if c.CharEnd < len(runes) {
			assert.True(t, unicode.IsSpace(runes[c.CharEnd]), "chunk %s ends mid-word", c.ID)
		}
	}
}
