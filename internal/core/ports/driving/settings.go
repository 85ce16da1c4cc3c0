package driving

import "github.com/custodia-labs/kacey/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get resolves settings from defaults, the config file and the
	// environment, in that order of increasing precedence.
	Get() (*domain.AppSettings, error)

	// Validate resolves the settings and rejects combinations that can never
	// work. Errors wrap domain.ErrInvalidConfiguration.
	Validate() error

	// Set stores a single dotted config key, e.g. "llm.model".
	Set(key, value string) error

	// Keys lists the recognised config keys.
	Keys() []string

	// Path returns the config file location.
	Path() string

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig pings the configured LLM provider.
	ValidateLLMConfig() error
}
