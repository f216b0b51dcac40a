package driving

import "github.com/custodia-labs/docqa/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current application settings, with defaults applied.
	Get() (*domain.AppSettings, error)

	// Save persists application settings.
	Save(settings *domain.AppSettings) error

	// Set updates a single setting by its configuration key.
	Set(key, value string) error

	// Keys returns the keys Set accepts, sorted.
	Keys() []string

	// SetEmbeddingProvider configures the embedding provider.
	SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error

	// SetLLMProvider configures the LLM provider.
	SetLLMProvider(provider domain.AIProvider, model, apiKey string) error

	// Validate checks that current settings are usable.
	Validate() error

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig pings the configured LLM provider.
	ValidateLLMConfig() error
}
