package services

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// EnvPrefix prefixes environment overrides: rag.retrieval_top_k is
// overridden by RAGLINE_RAG_RETRIEVAL_TOP_K.
const EnvPrefix = "RAGLINE_"

// setting binds a dotted config key to a field of AppSettings.
type setting struct {
	key    string
	secret bool

	// parse validates a raw value and returns what the config store keeps.
	parse func(raw string) (any, error)

	// apply writes a parsed value into settings.
	apply func(s *domain.AppSettings, v any)
}

// SettingsService loads settings from a config store with environment
// overrides and writes single keys back.
type SettingsService struct {
	configStore driven.ConfigStore
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		lookupEnv:   os.LookupEnv,
	}
}

// Get builds settings from defaults, the config store and the environment,
// in increasing precedence. A provider switch without an explicit model
// picks that provider's default model and dimension.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	settings := domain.DefaultAppSettings()
	explicit := make(map[string]bool)

	for _, def := range settingsTable {
		raw, ok := s.raw(def.key)
		if !ok {
			continue
		}
		v, err := def.parse(raw)
		if err != nil {
			return nil, fmt.Errorf("setting %s: %w", def.key, err)
		}
		def.apply(&settings, v)
		explicit[def.key] = true
	}

	if !explicit["embedding.model"] {
		if m, ok := domain.DefaultEmbeddingModels()[settings.Embedding.Provider]; ok {
			settings.Embedding.Model = m
		}
	}
	if !explicit["llm.model"] {
		if m, ok := domain.DefaultLLMModels()[settings.LLM.Provider]; ok {
			settings.LLM.Model = m
		}
	}
	if !explicit["vector_store.dimensions"] {
		dim := settings.Embedding.Dimensions
		if dim == 0 {
			dim = domain.EmbeddingDimensions()[settings.Embedding.Model]
		}
		if dim > 0 {
			settings.VectorStore.Dimensions = dim
		}
	}
	return &settings, nil
}

// Set parses and stores one dotted key.
func (s *SettingsService) Set(key, value string) error {
	def, ok := lookupSetting(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	v, err := def.parse(value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}
	if err := s.configStore.Set(key, v); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// Unset removes a stored key so the default applies again.
func (s *SettingsService) Unset(key string) error {
	if _, ok := lookupSetting(key); !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}
	return s.configStore.Delete(key)
}

// Keys lists the recognised keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingsTable))
	for i, def := range settingsTable {
		keys[i] = def.key
	}
	return keys
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// IsSecret reports whether key holds a credential.
func (s *SettingsService) IsSecret(key string) bool {
	return IsSecret(key)
}

// IsSecret reports whether a key holds a credential that should be masked.
func IsSecret(key string) bool {
	def, ok := lookupSetting(key)
	return ok && def.secret
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func (s *SettingsService) raw(key string) (string, bool) {
	if v, ok := s.lookupEnv(EnvName(key)); ok {
		return v, true
	}
	v, ok := s.configStore.Get(key)
	if !ok || v == nil {
		return "", false
	}
	return stringify(v), true
}

// stringify renders a decoded config value in the form parse accepts.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case []string:
		return strings.Join(t, ",")
	case []any:
		parts := make([]string, len(t))
		for i, p := range t {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(v)
	}
}

func lookupSetting(key string) (setting, bool) {
	i := slices.IndexFunc(settingsTable, func(d setting) bool { return d.key == key })
	if i < 0 {
		return setting{}, false
	}
	return settingsTable[i], true
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func parseString(raw string) (any, error) { return strings.TrimSpace(raw), nil }

func parseInt(raw string) (any, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return nil, invalid("%q is not an integer", raw)
	}
	return n, nil
}

func parseFloat(raw string) (any, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, invalid("%q is not a number", raw)
	}
	return f, nil
}

// parseDuration accepts Go durations ("30s") or a bare number of seconds.
func parseDuration(raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if secs, err := strconv.ParseFloat(raw, 64); err == nil {
		return (time.Duration(secs * float64(time.Second))).String(), nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, invalid("%q is not a duration", raw)
	}
	return d.String(), nil
}

func parseList(raw string) (any, error) {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

func parseProvider(raw string) (any, error) {
	p := domain.AIProvider(strings.ToLower(strings.TrimSpace(raw)))
	if !p.IsValid() {
		return nil, invalid("unknown provider %q", raw)
	}
	return string(p), nil
}

func parsePolicy(raw string) (any, error) {
	p := domain.EmptyRetrievalPolicy(strings.TrimSpace(raw))
	if !p.IsValid() {
		return nil, invalid("unknown empty retrieval policy %q", raw)
	}
	return string(p), nil
}

func parseStoreBackend(raw string) (any, error) {
	b := domain.StoreBackend(strings.ToLower(strings.TrimSpace(raw)))
	if !b.IsValid() {
		return nil, invalid("unknown vector store backend %q", raw)
	}
	return string(b), nil
}

func parseConversationBackend(raw string) (any, error) {
	b := domain.ConversationBackend(strings.ToLower(strings.TrimSpace(raw)))
	if !b.IsValid() {
		return nil, invalid("unknown conversation backend %q", raw)
	}
	return string(b), nil
}

func str(field func(*domain.AppSettings) *string) func(*domain.AppSettings, any) {
	return func(s *domain.AppSettings, v any) { *field(s) = v.(string) }
}

func num(field func(*domain.AppSettings) *int) func(*domain.AppSettings, any) {
	return func(s *domain.AppSettings, v any) { *field(s) = v.(int) }
}

func float(field func(*domain.AppSettings) *float64) func(*domain.AppSettings, any) {
	return func(s *domain.AppSettings, v any) { *field(s) = v.(float64) }
}

func dur(field func(*domain.AppSettings) *time.Duration) func(*domain.AppSettings, any) {
	return func(s *domain.AppSettings, v any) {
		d, _ := time.ParseDuration(v.(string))
		*field(s) = d
	}
}

//nolint:gosec // G101: config key names, not credentials.
var settingsTable = []setting{
	{key: "rag.max_chunk_chars", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.RAG.MaxChunkChars })},
	{key: "rag.overlap_chars", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.RAG.OverlapChars })},
	{key: "rag.embedding_batch_size", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.RAG.EmbeddingBatchSize })},
	{key: "rag.max_concurrent_embedding_batches", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.RAG.MaxConcurrentEmbeddingBatches })},
	{key: "rag.retrieval_top_k", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.RAG.RetrievalTopK })},
	{key: "rag.retrieval_min_score", parse: parseFloat,
		apply: float(func(s *domain.AppSettings) *float64 { return &s.RAG.RetrievalMinScore })},
	{key: "rag.max_context_chars", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.RAG.MaxContextChars })},
	{key: "rag.generation_timeout", parse: parseDuration,
		apply: dur(func(s *domain.AppSettings) *time.Duration { return &s.RAG.GenerationTimeout })},
	{key: "rag.retry_max_attempts", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.RAG.RetryMaxAttempts })},
	{key: "rag.retry_backoff_base", parse: parseDuration,
		apply: dur(func(s *domain.AppSettings) *time.Duration { return &s.RAG.RetryBackoffBase })},
	{key: "rag.retry_backoff_max", parse: parseDuration,
		apply: dur(func(s *domain.AppSettings) *time.Duration { return &s.RAG.RetryBackoffMax })},
	{key: "rag.empty_retrieval_policy", parse: parsePolicy,
		apply: func(s *domain.AppSettings, v any) {
			s.RAG.EmptyRetrievalPolicy = domain.EmptyRetrievalPolicy(v.(string))
		}},
	{key: "rag.no_info_message", parse: parseString,
		apply: str(func(s *domain.AppSettings) *string { return &s.RAG.NoInfoMessage })},
	{key: "rag.history_turns", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.RAG.HistoryTurns })},

	{key: "embedding.provider", parse: parseProvider,
		apply: func(s *domain.AppSettings, v any) { s.Embedding.Provider = domain.AIProvider(v.(string)) }},
	{key: "embedding.model", parse: parseString,
		apply: str(func(s *domain.AppSettings) *string { return &s.Embedding.Model })},
	{key: "embedding.base_url", parse: parseString,
		apply: str(func(s *domain.AppSettings) *string { return &s.Embedding.BaseURL })},
	{key: "embedding.api_key", secret: true, parse: parseString,
		apply: str(func(s *domain.AppSettings) *string { return &s.Embedding.APIKey })},
	{key: "embedding.region", parse: parseString,
		apply: str(func(s *domain.AppSettings) *string { return &s.Embedding.Region })},
	{key: "embedding.dimensions", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.Embedding.Dimensions })},

	{key: "llm.provider", parse: parseProvider,
		apply: func(s *domain.AppSettings, v any) { s.LLM.Provider = domain.AIProvider(v.(string)) }},
	{key: "llm.model", parse: parseString,
		apply: str(func(s *domain.AppSettings) *string { return &s.LLM.Model })},
	{key: "llm.base_url", parse: parseString,
		apply: str(func(s *domain.AppSettings) *string { return &s.LLM.BaseURL })},
	{key: "llm.api_key", secret: true, parse: parseString,
		apply: str(func(s *domain.AppSettings) *string { return &s.LLM.APIKey })},
	{key: "llm.region", parse: parseString,
		apply: str(func(s *domain.AppSettings) *string { return &s.LLM.Region })},
	{key: "llm.max_tokens", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.LLM.MaxTokens })},
	{key: "llm.temperature", parse: parseFloat,
		apply: float(func(s *domain.AppSettings) *float64 { return &s.LLM.Temperature })},

	{key: "vector_store.backend", parse: parseStoreBackend,
		apply: func(s *domain.AppSettings, v any) { s.VectorStore.Backend = domain.StoreBackend(v.(string)) }},
	{key: "vector_store.path", parse: parseString,
		apply: str(func(s *domain.AppSettings) *string { return &s.VectorStore.Path })},
	{key: "vector_store.dsn", secret: true, parse: parseString,
		apply: str(func(s *domain.AppSettings) *string { return &s.VectorStore.DSN })},
	{key: "vector_store.index_name", parse: parseString,
		apply: str(func(s *domain.AppSettings) *string { return &s.VectorStore.IndexName })},
	{key: "vector_store.dimensions", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.VectorStore.Dimensions })},

	{key: "conversation.backend", parse: parseConversationBackend,
		apply: func(s *domain.AppSettings, v any) { s.Conversation.Backend = domain.ConversationBackend(v.(string)) }},
	{key: "conversation.addr", parse: parseString,
		apply: str(func(s *domain.AppSettings) *string { return &s.Conversation.Addr })},
	{key: "conversation.password", secret: true, parse: parseString,
		apply: str(func(s *domain.AppSettings) *string { return &s.Conversation.Password })},
	{key: "conversation.db", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.Conversation.DB })},
	{key: "conversation.ttl", parse: parseDuration,
		apply: dur(func(s *domain.AppSettings) *time.Duration { return &s.Conversation.TTL })},
	{key: "conversation.max_turns", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.Conversation.MaxTurns })},

	{key: "server.addr", parse: parseString,
		apply: str(func(s *domain.AppSettings) *string { return &s.Server.Addr })},
	{key: "server.allowed_origins", parse: parseList,
		apply: func(s *domain.AppSettings, v any) { s.Server.AllowedOrigins = v.([]string) }},
	{key: "server.read_timeout", parse: parseDuration,
		apply: dur(func(s *domain.AppSettings) *time.Duration { return &s.Server.ReadTimeout })},
	{key: "server.write_timeout", parse: parseDuration,
		apply: dur(func(s *domain.AppSettings) *time.Duration { return &s.Server.WriteTimeout })},

	{key: "rate_limit.embedding_rps", parse: parseFloat,
		apply: float(func(s *domain.AppSettings) *float64 { return &s.RateLimit.EmbeddingRPS })},
	{key: "rate_limit.embedding_burst", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.RateLimit.EmbeddingBurst })},
	{key: "rate_limit.llm_rps", parse: parseFloat,
		apply: float(func(s *domain.AppSettings) *float64 { return &s.RateLimit.LLMRPS })},
	{key: "rate_limit.llm_burst", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.RateLimit.LLMBurst })},
	{key: "rate_limit.requests_per_minute", parse: parseInt,
		apply: num(func(s *domain.AppSettings) *int { return &s.RateLimit.RequestsPerMinute })},
}
