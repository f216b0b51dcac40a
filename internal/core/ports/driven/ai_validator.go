package driven

import "github.com/custodia-labs/docqa/internal/core/domain"

// AIConfigValidator checks that configured AI providers are reachable.
type AIConfigValidator interface {
	// ValidateEmbedding pings the embedding provider described by config.
	// Returns nil when the provider is not configured.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM pings the LLM provider described by config.
	// Returns nil when the provider is not configured.
	ValidateLLM(config *domain.LLMSettings) error
}
