package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// sampleText is embedded to learn the size of the vectors a model returns.
const sampleText = "docqa configuration check"

// ConfigValidator checks that configured providers answer, and that the
// embedding model produces vectors of the size the index is built with.
// Unconfigured providers pass.
type ConfigValidator struct {
	timeout      time.Duration
	newEmbedding func(*domain.EmbeddingSettings) (driven.EmbeddingService, error)
	newLLM       func(*domain.LLMSettings) (driven.LLMService, error)
}

// NewConfigValidator creates a validator that builds services through the
// factory functions of this package.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{
		timeout:      pingTimeout,
		newEmbedding: CreateEmbeddingService,
		newLLM:       CreateLLMService,
	}
}

// ValidateEmbedding pings the provider and embeds a sample sentence. When
// the dimension is set, or known for the model, the returned vector must
// have that size.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}
	svc, err := v.newEmbedding(config)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("embedding provider %s: %w", config.Provider, err)
	}
	vector, err := svc.Embed(ctx, sampleText)
	if err != nil {
		return fmt.Errorf("embedding model %s: %w", config.Model, err)
	}

	want := config.Dimensions
	if want == 0 {
		want = domain.EmbeddingDimensions()[config.Model]
	}
	if want > 0 && len(vector) != want {
		return fmt.Errorf("embedding model %s returns %d dimensions, expected %d: %w",
			config.Model, len(vector), want, domain.ErrInvalidInput)
	}
	return nil
}

// ValidateLLM pings the generation provider.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}
	svc, err := v.newLLM(config)
	if err != nil {
		return err
	}
	if svc == nil {
		return nil
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		return fmt.Errorf("llm provider %s: %w", config.Provider, err)
	}
	return nil
}
