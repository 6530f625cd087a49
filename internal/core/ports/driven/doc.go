// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - EmbeddingService: Turns text into fixed-dimension vectors
//   - LLMService: Generates the grounded answer
//   - VectorStore: Persists vectors and answers top-k similarity queries
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ConversationStore: Without it, only caller-supplied history is used.
//   - PromptStore: Without it, the built-in system prompt is used.
//   - NormaliserRegistry: Without it, only plain text can be ingested.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
//
//go:generate mockgen -destination=mocks/mocks.go -package=mocks . EmbeddingService,LLMService,VectorStore,ConversationStore
package driven
