package driven

// ConfigStore provides access to persisted configuration.
// Keys are dotted paths ("rag.retrieval_top_k"); implementations handle
// the file format and nesting.
type ConfigStore interface {
	// Get retrieves a configuration value by key.
	// Returns the value and a boolean indicating if the key exists.
	Get(key string) (any, bool)

	// Set stores a configuration value and persists it immediately.
	Set(key string, value any) error

	// Delete removes a key and persists the change. Missing keys are ignored.
	Delete(key string) error

	// Load reads configuration from storage.
	Load() error

	// Path returns the configuration file path, or "" when not file-backed.
	Path() string
}
