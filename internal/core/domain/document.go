package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DefaultNamespace is used for records that do not name a namespace.
const DefaultNamespace = "default"

// Chunk metadata keys shared by stores and citations.
const (
	MetaSource    = "source"
	MetaTitle     = "title"
	MetaPage      = "page"
	MetaNamespace = "namespace"
	MetaMIMEType  = "mime_type"
)

// Document represents a normalised document ready for chunking.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// URI is the original location (file path, URL, etc).
	URI string

	// Title is the human-readable title.
	Title string

	// Content is the full text content after normalisation.
	// Form feed characters mark page breaks.
	Content string

	// Namespace partitions the vector store. Empty means DefaultNamespace.
	Namespace string

	// Metadata contains arbitrary key-value pairs copied onto every chunk.
	Metadata map[string]string

	// CreatedAt is when the document was normalised.
	CreatedAt time.Time
}

// Chunk represents a bounded contiguous span of a document's text.
type Chunk struct {
	// ID is stable and derived from the document ID and sequence index.
	ID string `json:"id"`

	// DocumentID links to the parent Document.
	DocumentID string `json:"document_id"`

	// SequenceIndex is the ordinal position within the document.
	SequenceIndex int `json:"sequence_index"`

	// Content is the text content of this chunk.
	Content string `json:"content"`

	// CharStart is the offset, in runes, of the first character.
	CharStart int `json:"char_start"`

	// CharEnd is the exclusive end offset, in runes.
	CharEnd int `json:"char_end"`

	// Metadata contains chunk-specific key-value pairs (source, title, page).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// ChunkID builds the stable identifier for the chunk at index within a document.
func ChunkID(documentID string, index int) string {
	return documentID + "#" + strconv.Itoa(index)
}

// ParseChunkID splits a chunk ID produced by ChunkID.
func ParseChunkID(id string) (documentID string, index int, err error) {
	i := strings.LastIndex(id, "#")
	if i <= 0 || i == len(id)-1 {
		return "", 0, fmt.Errorf("%w: malformed chunk id %q", ErrInvalidInput, id)
	}
	index, err = strconv.Atoi(id[i+1:])
	if err != nil || index < 0 {
		return "", 0, fmt.Errorf("%w: malformed chunk id %q", ErrInvalidInput, id)
	}
	return id[:i], index, nil
}

// Len returns the span length in runes.
func (c Chunk) Len() int {
	return c.CharEnd - c.CharStart
}

// Namespace returns the namespace recorded in metadata, or DefaultNamespace.
func (c Chunk) Namespace() string {
	if ns := c.Metadata[MetaNamespace]; ns != "" {
		return ns
	}
	return DefaultNamespace
}

// SourceLabel returns the best human-readable name for the chunk's origin.
func (c Chunk) SourceLabel() string {
	if t := c.Metadata[MetaTitle]; t != "" {
		return t
	}
	if s := c.Metadata[MetaSource]; s != "" {
		return s
	}
	return c.DocumentID
}

// Page returns the 1-based page number, or 0 when unknown.
func (c Chunk) Page() int {
	p, err := strconv.Atoi(c.Metadata[MetaPage])
	if err != nil {
		return 0
	}
	return p
}

// EmbeddingVector is the vector representation of one chunk.
// It is created once per chunk and never mutated.
type EmbeddingVector struct {
	// OwnerChunkID is the chunk this vector belongs to.
	OwnerChunkID string

	// Values is the ordered vector.
	Values []float32
}

// Dimension returns the vector length.
func (v EmbeddingVector) Dimension() int {
	return len(v.Values)
}
