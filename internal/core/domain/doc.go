// Package domain defines the core business entities for ragline.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: A normalised document with its full text
//   - Chunk: A bounded span of a document, the atomic retrievable unit
//   - EmbeddingVector: A fixed-dimension vector bound to one chunk
//   - RetrievalResult: A ranked chunk returned for a query
//   - ConversationTurn: One question, its retrieved context and the answer
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
