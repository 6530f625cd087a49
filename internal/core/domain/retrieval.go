package domain

import "sort"

// RetrievalResult is a chunk ranked for one query.
type RetrievalResult struct {
	// Chunk is the matched chunk.
	Chunk Chunk `json:"chunk"`

	// Score is the cosine similarity of the chunk to the query.
	Score float64 `json:"score"`

	// Rank is dense and starts at 1.
	Rank int `json:"rank"`
}

// Citation points the caller back to the source of a piece of context.
type Citation struct {
	// Label is the bracketed marker used in the prompt, e.g. "[1]".
	Label string `json:"label"`

	ChunkID       string `json:"chunk_id"`
	DocumentID    string `json:"document_id"`
	SequenceIndex int    `json:"sequence_index"`

	// Source is the title or document name.
	Source string `json:"source"`

	// Page is 1-based, or 0 when unknown.
	Page int `json:"page,omitempty"`

	Score float64 `json:"score"`
}

// SortResults orders results by descending score, breaking ties by
// ascending chunk ID, and assigns dense ranks starting at 1.
func SortResults(results []RetrievalResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}

// IndexStats describes the contents of a vector store.
type IndexStats struct {
	// IndexName identifies the store (table, file, or in-memory label).
	IndexName string `json:"index_name"`

	// TotalVectors is the number of records across all namespaces.
	TotalVectors int `json:"total_vectors"`

	// Dimension is the fixed vector size, 0 if the store is empty and unconfigured.
	Dimension int `json:"dimension"`

	// Namespaces maps namespace to record count.
	Namespaces map[string]int `json:"namespaces"`
}
