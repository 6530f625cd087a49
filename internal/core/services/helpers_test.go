package services

import (
	"strconv"
	"time"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// testSettings returns pipeline settings with millisecond backoff.
func testSettings() domain.RAGSettings {
	s := domain.DefaultRAGSettings()
	s.RetryBackoffBase = time.Millisecond
	s.RetryBackoffMax = 2 * time.Millisecond
	return s
}

// numberedTexts returns "0", "1", ... "n-1".
func numberedTexts(n int) []string {
	texts := make([]string, n)
	for i := range texts {
		texts[i] = strconv.Itoa(i)
	}
	return texts
}

// numberVectors encodes each numeric text as a 3-dimensional vector.
func numberVectors(texts []string) [][]float32 {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		n, _ := strconv.Atoi(t)
		out[i] = []float32{float32(n), 1, 0}
	}
	return out
}

func transientEmbedErr() error {
	return domain.NewRateLimitError(domain.ErrEmbeddingService, "embed", errUpstream)
}

func chunk(doc string, idx int, content string) domain.Chunk {
	return domain.Chunk{
		ID:            domain.ChunkID(doc, idx),
		DocumentID:    doc,
		SequenceIndex: idx,
		Content:       content,
		CharStart:     0,
		CharEnd:       len([]rune(content)),
		Metadata:      map[string]string{domain.MetaNamespace: domain.DefaultNamespace},
	}
}

func intPtr(n int) *int {
	return &n
}
