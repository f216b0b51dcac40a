package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// fakeEmbedder returns vectors of a fixed size.
type fakeEmbedder struct {
	size     int
	pingErr  error
	embedErr error
	closed   bool
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return make([]float32, f.size), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int            { return f.size }
func (f *fakeEmbedder) ModelName() string          { return "fake" }
func (f *fakeEmbedder) Ping(context.Context) error { return f.pingErr }

func (f *fakeEmbedder) Close() error {
	f.closed = true
	return nil
}

func validatorWith(svc driven.EmbeddingService) *ConfigValidator {
	v := NewConfigValidator()
	v.timeout = time.Second
	v.newEmbedding = func(*domain.EmbeddingSettings) (driven.EmbeddingService, error) { return svc, nil }
	return v
}

func ollamaEmbedding(model string, dims int) *domain.EmbeddingSettings {
	return &domain.EmbeddingSettings{Provider: domain.AIProviderOllama, Model: model, Dimensions: dims}
}

func TestConfigValidator_ImplementsInterface(t *testing.T) {
	var _ driven.AIConfigValidator = (*ConfigValidator)(nil)
}

func TestConfigValidator_UnconfiguredPasses(t *testing.T) {
	v := NewConfigValidator()

	assert.NoError(t, v.ValidateEmbedding(nil))
	assert.NoError(t, v.ValidateEmbedding(&domain.EmbeddingSettings{Model: "all-minilm"}))
	assert.NoError(t, v.ValidateLLM(nil))
	assert.NoError(t, v.ValidateLLM(&domain.LLMSettings{Model: "llama3"}))
}

func TestConfigValidator_ValidateEmbedding(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.EmbeddingSettings
		svc      *fakeEmbedder
		wantErr  string
	}{
		{
			name:     "known model with matching size",
			settings: ollamaEmbedding("all-minilm", 0),
			svc:      &fakeEmbedder{size: 384},
		},
		{
			name:     "known model with other size",
			settings: ollamaEmbedding("nomic-embed-text", 0),
			svc:      &fakeEmbedder{size: 384},
			wantErr:  "returns 384 dimensions, expected 768",
		},
		{
			name:     "explicit dimension wins over the model table",
			settings: ollamaEmbedding("all-minilm", 512),
			svc:      &fakeEmbedder{size: 384},
			wantErr:  "expected 512",
		},
		{
			name:     "unknown model accepts any size",
			settings: ollamaEmbedding("my-local-model", 0),
			svc:      &fakeEmbedder{size: 99},
		},
		{
			name:     "unreachable provider",
			settings: ollamaEmbedding("all-minilm", 0),
			svc:      &fakeEmbedder{size: 384, pingErr: errors.New("connection refused")},
			wantErr:  "embedding provider ollama: connection refused",
		},
		{
			name:     "model missing on provider",
			settings: ollamaEmbedding("all-minilm", 0),
			svc:      &fakeEmbedder{embedErr: errors.New("model not found")},
			wantErr:  "embedding model all-minilm: model not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatorWith(tt.svc).ValidateEmbedding(tt.settings)

			assert.True(t, tt.svc.closed, "service must be closed")
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigValidator_DimensionMismatchIsInvalidInput(t *testing.T) {
	err := validatorWith(&fakeEmbedder{size: 3}).ValidateEmbedding(ollamaEmbedding("all-minilm", 0))

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigValidator_FactoryError(t *testing.T) {
	v := NewConfigValidator()
	v.newEmbedding = func(*domain.EmbeddingSettings) (driven.EmbeddingService, error) {
		return nil, errors.New("bad base url")
	}

	err := v.ValidateEmbedding(ollamaEmbedding("all-minilm", 0))

	assert.EqualError(t, err, "bad base url")
}

func TestConfigValidator_ValidateLLM(t *testing.T) {
	server := ollamaServer(t)
	v := NewConfigValidator()

	assert.NoError(t, v.ValidateLLM(&domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  server.URL,
	}))

	err := v.ValidateLLM(&domain.LLMSettings{
		Provider: domain.AIProviderOllama,
		BaseURL:  "http://127.0.0.1:1",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "llm provider ollama")
}
