package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// LLMService generates answers from assembled prompts.
// This is an optional service - when nil, questions fail with ErrLLMUnavailable.
//
// Implementations may include:
//   - Ollama (local models, default llama3:8b)
//   - OpenAI (GPT-4o family)
//   - Anthropic (Claude)
type LLMService interface {
	// Generate produces the complete answer for a prompt.
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)

	// Stream produces the answer as a lazy sequence of fragments.
	// The channel is closed after the last fragment. A failure after the
	// stream has started is delivered as a final fragment with Err set.
	// Cancelling ctx stops generation and closes the channel.
	Stream(ctx context.Context, prompt string, opts GenerateOptions) (<-chan domain.Fragment, error)

	// ModelName returns the name of the LLM model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// GenerateOptions configures text generation behaviour.
type GenerateOptions struct {
	// MaxTokens is the maximum number of tokens to generate.
	MaxTokens int

	// Temperature controls randomness (0.0 = deterministic, 1.0 = creative).
	Temperature float64

	// StopWords are sequences that stop generation when encountered.
	StopWords []string
}
