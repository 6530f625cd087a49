package driving

import "github.com/custodia-labs/ragline/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with environment overrides applied.
	Get() (*domain.AppSettings, error)

	// Set stores one dotted key (e.g. "rag.retrieval_top_k").
	Set(key, value string) error

	// Unset removes a stored key so the default applies again.
	Unset(key string) error

	// Keys lists the recognised keys.
	Keys() []string

	// IsSecret reports whether key holds a credential that must not be echoed.
	IsSecret(key string) bool

	// GetDefaults returns default settings.
	GetDefaults() domain.AppSettings
}
