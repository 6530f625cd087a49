package domain

// Overall health states.
const (
	HealthHealthy  = "healthy"
	HealthDegraded = "degraded"
)

// Component names reported by health checks.
const (
	ComponentEmbedding   = "embedding"
	ComponentVectorStore = "vector_store"
	ComponentLLM         = "llm"
)

// ComponentHealth is the liveness of one external capability.
type ComponentHealth struct {
	OK      bool   `json:"ok"`
	Detail  string `json:"detail,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// HealthStatus aggregates component liveness.
type HealthStatus struct {
	// Status is "healthy" when every component is ok, otherwise "degraded".
	Status string `json:"status"`

	// EmbeddingOK is true when the embedding service answered a ping.
	EmbeddingOK bool `json:"embedding_ok"`

	// StoreOK is true when the vector store answered a ping.
	StoreOK bool `json:"store_ok"`

	// Components holds per-component detail.
	Components map[string]ComponentHealth `json:"components"`
}
