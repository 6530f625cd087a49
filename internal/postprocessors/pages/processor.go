// Package pages tags chunks with the page they start on.
// Page breaks are form feed characters left in place by normalisation.
package pages

import (
	"context"
	"sort"
	"strconv"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// PageBreak separates pages in normalised text.
const PageBreak = '\f'

// Processor sets domain.MetaPage on each chunk.
// Documents without page breaks are left untouched.
type Processor struct{}

// New creates a page tagging processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "pages"
}

// Process records the 1-based page of each chunk's first character.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	var breaks []int
	pos := 0
	for _, r := range doc.Content {
		if r == PageBreak {
			breaks = append(breaks, pos)
		}
		pos++
	}
	if len(breaks) == 0 {
		return chunks, nil
	}

	for i := range chunks {
		page := sort.SearchInts(breaks, chunks[i].CharStart) + 1
		if chunks[i].Metadata == nil {
			chunks[i].Metadata = make(map[string]string)
		}
		chunks[i].Metadata[domain.MetaPage] = strconv.Itoa(page)
	}
	return chunks, nil
}
