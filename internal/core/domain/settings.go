package domain

import (
	"errors"
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// EmptyRetrievalPolicy decides what happens when retrieval finds nothing.
type EmptyRetrievalPolicy string

// Available empty retrieval policies.
const (
	// PolicyAnswerWithoutContext still calls the generation service, telling
	// it explicitly that no grounding context was found.
	PolicyAnswerWithoutContext EmptyRetrievalPolicy = "answer_without_context"

	// PolicyFixedNoInfoMessage returns NoInfoMessage without calling the
	// generation service.
	PolicyFixedNoInfoMessage EmptyRetrievalPolicy = "fixed_no_info_message"
)

// IsValid returns true if the policy is recognised.
func (p EmptyRetrievalPolicy) IsValid() bool {
	switch p {
	case PolicyAnswerWithoutContext, PolicyFixedNoInfoMessage:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (p EmptyRetrievalPolicy) String() string {
	return string(p)
}

// Description returns a human-readable description of the policy.
func (p EmptyRetrievalPolicy) Description() string {
	switch p {
	case PolicyAnswerWithoutContext:
		return "Answer without context (LLM is told nothing was found)"
	case PolicyFixedNoInfoMessage:
		return "Fixed message (LLM is not called)"
	default:
		return unknownDescription
	}
}

// MinContextChars is the smallest accepted max_context_chars. It leaves room
// for a block header and some of the top-ranked chunk.
const MinContextChars = 200

// DefaultNoInfoMessage is returned under PolicyFixedNoInfoMessage.
const DefaultNoInfoMessage = "I couldn't find any relevant information in the indexed documents to answer that question."

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API (or a compatible endpoint).
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderBedrock is AWS Bedrock, authenticated by the AWS credential chain.
	AIProviderBedrock AIProvider = "bedrock"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderBedrock:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderBedrock:
		return "AWS Bedrock (cloud)"
	default:
		return unknownDescription
	}
}

// StoreBackend selects the vector store implementation.
type StoreBackend string

// Available vector store backends.
const (
	StoreMemory   StoreBackend = "memory"
	StoreSQLite   StoreBackend = "sqlite"
	StorePostgres StoreBackend = "postgres"
)

// IsValid returns true if the backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreMemory, StoreSQLite, StorePostgres:
		return true
	default:
		return false
	}
}

// ConversationBackend selects where conversation turns are kept.
type ConversationBackend string

// Available conversation backends.
const (
	ConversationNone   ConversationBackend = "none"
	ConversationMemory ConversationBackend = "memory"
	ConversationRedis  ConversationBackend = "redis"
)

// IsValid returns true if the backend is recognised.
func (b ConversationBackend) IsValid() bool {
	switch b {
	case ConversationNone, ConversationMemory, ConversationRedis:
		return true
	default:
		return false
	}
}

// RAGSettings is the immutable pipeline configuration passed to services.
type RAGSettings struct {
	MaxChunkChars                 int
	OverlapChars                  int
	EmbeddingBatchSize            int
	MaxConcurrentEmbeddingBatches int
	RetrievalTopK                 int
	RetrievalMinScore             float64
	MaxContextChars               int
	GenerationTimeout             time.Duration
	RetryMaxAttempts              int
	RetryBackoffBase              time.Duration
	RetryBackoffMax               time.Duration
	EmptyRetrievalPolicy          EmptyRetrievalPolicy

	// NoInfoMessage is the answer returned under PolicyFixedNoInfoMessage.
	NoInfoMessage string

	// HistoryTurns is how many stored turns are replayed into the prompt.
	HistoryTurns int
}

// Validate checks the pipeline options for consistency.
func (s RAGSettings) Validate() error {
	var errs []error
	if s.MaxChunkChars <= 0 {
		errs = append(errs, errors.New("max_chunk_chars must be positive"))
	}
	if s.OverlapChars < 0 || s.OverlapChars >= s.MaxChunkChars {
		errs = append(errs, errors.New("overlap_chars must be in [0, max_chunk_chars)"))
	}
	if s.EmbeddingBatchSize <= 0 {
		errs = append(errs, errors.New("embedding_batch_size must be positive"))
	}
	if s.MaxConcurrentEmbeddingBatches <= 0 {
		errs = append(errs, errors.New("max_concurrent_embedding_batches must be positive"))
	}
	if s.RetrievalTopK <= 0 {
		errs = append(errs, errors.New("retrieval_top_k must be positive"))
	}
	if s.MaxContextChars < MinContextChars {
		errs = append(errs, fmt.Errorf("max_context_chars must be at least %d", MinContextChars))
	}
	if s.GenerationTimeout <= 0 {
		errs = append(errs, errors.New("generation_timeout must be positive"))
	}
	if s.RetryMaxAttempts <= 0 {
		errs = append(errs, errors.New("retry_max_attempts must be positive"))
	}
	if s.RetryBackoffBase < 0 {
		errs = append(errs, errors.New("retry_backoff_base must not be negative"))
	}
	if !s.EmptyRetrievalPolicy.IsValid() {
		errs = append(errs, fmt.Errorf("empty_retrieval_policy %q is not recognised", s.EmptyRetrievalPolicy))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Region is the AWS region (for Bedrock).
	Region string

	// Dimensions is the expected vector size; 0 means the model default.
	Dimensions int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or OpenAI-compatible servers).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// Region is the AWS region (for Bedrock).
	Region string

	// MaxTokens caps the answer length.
	MaxTokens int

	// Temperature controls randomness.
	Temperature float64
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// VectorStoreSettings selects and configures the vector store.
type VectorStoreSettings struct {
	Backend StoreBackend

	// Path is the data directory for the sqlite backend.
	Path string

	// DSN is the connection string for the postgres backend.
	DSN string

	// IndexName is the table name (postgres) or label (memory, sqlite).
	IndexName string

	// Dimensions is the index dimension. It must equal the embedding dimension.
	Dimensions int
}

// ConversationSettings configures conversation persistence.
type ConversationSettings struct {
	Backend ConversationBackend

	// Addr, Password and DB configure the redis backend.
	Addr     string
	Password string
	DB       int

	// TTL expires idle conversations.
	TTL time.Duration

	// MaxTurns bounds stored turns per conversation.
	MaxTurns int
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr           string
	AllowedOrigins []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
}

// RateLimitSettings bounds calls to upstream services and from HTTP clients.
// A zero rate disables the corresponding limiter.
type RateLimitSettings struct {
	EmbeddingRPS   float64
	EmbeddingBurst int
	LLMRPS         float64
	LLMBurst       int

	// RequestsPerMinute is the per-client-IP limit on the HTTP API.
	RequestsPerMinute int
}

// AppSettings holds all application settings.
type AppSettings struct {
	RAG          RAGSettings
	Embedding    EmbeddingSettings
	LLM          LLMSettings
	VectorStore  VectorStoreSettings
	Conversation ConversationSettings
	Server       ServerSettings
	RateLimit    RateLimitSettings
}

// DefaultRAGSettings returns the pipeline defaults.
func DefaultRAGSettings() RAGSettings {
	return RAGSettings{
		MaxChunkChars:                 500,
		OverlapChars:                  100,
		EmbeddingBatchSize:            16,
		MaxConcurrentEmbeddingBatches: 4,
		RetrievalTopK:                 5,
		RetrievalMinScore:             0,
		MaxContextChars:               8000,
		GenerationTimeout:             60 * time.Second,
		RetryMaxAttempts:              3,
		RetryBackoffBase:              time.Second,
		RetryBackoffMax:               10 * time.Second,
		EmptyRetrievalPolicy:          PolicyFixedNoInfoMessage,
		NoInfoMessage:                 DefaultNoInfoMessage,
		HistoryTurns:                  5,
	}
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers default to a local Ollama so nothing needs a key out of the box.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		RAG: DefaultRAGSettings(),
		Embedding: EmbeddingSettings{
			Provider: AIProviderOllama,
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		LLM: LLMSettings{
			Provider:    AIProviderOllama,
			Model:       "llama3.2",
			BaseURL:     "http://localhost:11434",
			MaxTokens:   1024,
			Temperature: 0.2,
		},
		VectorStore: VectorStoreSettings{
			Backend:    StoreSQLite,
			IndexName:  "ragline_chunks",
			Dimensions: 768, // nomic-embed-text default
		},
		Conversation: ConversationSettings{
			Backend:  ConversationMemory,
			Addr:     "localhost:6379",
			TTL:      30 * time.Minute,
			MaxTurns: 20,
		},
		Server: ServerSettings{
			Addr:           ":8080",
			AllowedOrigins: []string{"*"},
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   90 * time.Second,
		},
		RateLimit: RateLimitSettings{
			RequestsPerMinute: 60,
		},
	}
}

// Validate checks cross-field consistency of the whole configuration.
func (s AppSettings) Validate() error {
	if err := s.RAG.Validate(); err != nil {
		return err
	}
	if !s.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider %q", ErrNotConfigured, s.Embedding.Provider)
	}
	if !s.LLM.IsConfigured() {
		return fmt.Errorf("%w: llm provider %q", ErrNotConfigured, s.LLM.Provider)
	}
	if !s.VectorStore.Backend.IsValid() {
		return fmt.Errorf("%w: vector store backend %q", ErrInvalidInput, s.VectorStore.Backend)
	}
	if s.VectorStore.Backend == StorePostgres && s.VectorStore.DSN == "" {
		return fmt.Errorf("%w: postgres backend requires a dsn", ErrInvalidInput)
	}
	if s.VectorStore.Dimensions <= 0 {
		return fmt.Errorf("%w: vector store dimensions must be positive", ErrInvalidInput)
	}
	if s.Embedding.Dimensions > 0 && s.Embedding.Dimensions != s.VectorStore.Dimensions {
		return &DimensionMismatchError{Expected: s.VectorStore.Dimensions, Actual: s.Embedding.Dimensions}
	}
	if !s.Conversation.Backend.IsValid() {
		return fmt.Errorf("%w: conversation backend %q", ErrInvalidInput, s.Conversation.Backend)
	}
	return nil
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderBedrock,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderBedrock,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:  "nomic-embed-text",
		AIProviderOpenAI:  "text-embedding-3-small",
		AIProviderBedrock: "amazon.titan-embed-text-v2:0",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
		AIProviderBedrock:   "anthropic.claude-3-5-sonnet-20240620-v1:0",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Bedrock models
		"amazon.titan-embed-text-v2:0": 1024,
	}
}
