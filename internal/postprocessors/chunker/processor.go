// Package chunker splits document text into overlapping, word-aligned windows.
package chunker

import (
	"context"
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 500

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 100

// Processor splits document content into chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		p.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// New creates a new chunker processor with the given options.
// Sizes are validated when the processor runs.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Chunk(doc.ID, doc.Content, p.chunkSize, p.overlap)
}

// Chunk walks text in windows of maxChars runes, advancing by
// maxChars-overlapChars. Window ends prefer a paragraph or sentence break
// in the second half of the window, then the nearest preceding whitespace
// within maxChars/2, and split hard otherwise. Empty or blank text yields
// no chunks.
func Chunk(documentID, text string, maxChars, overlapChars int) ([]domain.Chunk, error) {
	if maxChars <= 0 {
		return nil, fmt.Errorf("%w: max_chunk_chars must be positive, got %d", domain.ErrInvalidInput, maxChars)
	}
	if overlapChars < 0 || overlapChars >= maxChars {
		return nil, fmt.Errorf("%w: overlap_chars must be in [0, %d), got %d",
			domain.ErrInvalidInput, maxChars, overlapChars)
	}
	if !utf8.ValidString(text) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", domain.ErrInvalidInput)
	}

	runes := []rune(text)
	n := len(runes)
	step := maxChars - overlapChars

	chunks := make([]domain.Chunk, 0, n/step+1)
	start := skipSpace(runes, 0)

	for start < n {
		end := start + maxChars
		if end >= n {
			end = n
		} else {
			end = breakPoint(runes, start, end, maxChars)
		}

		trimmed := end
		for trimmed > start && unicode.IsSpace(runes[trimmed-1]) {
			trimmed--
		}

		idx := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:            domain.ChunkID(documentID, idx),
			DocumentID:    documentID,
			SequenceIndex: idx,
			Content:       string(runes[start:trimmed]),
			CharStart:     start,
			CharEnd:       trimmed,
		})

		if end >= n {
			break
		}
		start = nextStart(runes, start, end, overlapChars)
	}

	return chunks, nil
}

// breakPoint picks the exclusive end of the window [start, limit).
// runes[limit] exists.
func breakPoint(runes []rune, start, limit, maxChars int) int {
	half := start + maxChars/2

	// Page or paragraph break, then any line break.
	for i := limit - 1; i > half; i-- {
		if runes[i] == '\f' || (runes[i] == '\n' && runes[i-1] == '\n') {
			return i + 1
		}
	}
	for i := limit - 1; i > half; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}

	// Sentence end followed by whitespace.
	for i := limit - 2; i > half; i-- {
		if isSentenceEnd(runes[i]) && unicode.IsSpace(runes[i+1]) {
			return i + 1
		}
	}

	// Boundary already sits between words.
	if unicode.IsSpace(runes[limit-1]) || unicode.IsSpace(runes[limit]) {
		return limit
	}

	lookback := maxChars / 2
	if lookback < 1 {
		lookback = 1
	}
	floor := limit - lookback
	if floor <= start {
		floor = start + 1
	}
	for i := limit - 1; i >= floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}

	// No whitespace within the lookback: split hard.
	return limit
}

// nextStart returns the start of the window after [start, end). It backs
// up by at most overlap runes, then moves forward to the next word start
// so the overlap does not begin mid-word. If no word starts inside the
// overlap the window begins at end, or mid-word for a hard split.
func nextStart(runes []rune, start, end, overlap int) int {
	cand := end - overlap
	if cand <= start {
		cand = end
	}
	if cand == end {
		return skipSpace(runes, end)
	}
	for i := cand; i <= end; i++ {
		if i < len(runes) && !unicode.IsSpace(runes[i]) && unicode.IsSpace(runes[i-1]) {
			return i
		}
	}
	if !unicode.IsSpace(runes[end-1]) && end < len(runes) && !unicode.IsSpace(runes[end]) {
		return cand
	}
	return skipSpace(runes, end)
}

func skipSpace(runes []rune, i int) int {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '?' || r == '!'
}
