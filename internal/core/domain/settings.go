package domain

import "runtime"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string

	// Dimensions is the vector size. Zero means derive from the model.
	Dimensions int

	// RateLimit caps embedding requests per second. Zero disables limiting.
	RateLimit float64

	// Burst is the limiter burst size.
	Burst int
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || e.Provider == AIProviderAnthropic {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// ResolvedDimensions returns Dimensions, falling back to the known size
// for Model, then to DefaultDimensions.
func (e EmbeddingSettings) ResolvedDimensions() int {
	if e.Dimensions > 0 {
		return e.Dimensions
	}
	if d, ok := EmbeddingDimensions()[e.Model]; ok {
		return d
	}
	return DefaultDimensions
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint.
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string

	// MaxTokens bounds the answer length. Zero uses the provider default.
	MaxTokens int
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// Index defaults.
const (
	DefaultChunkSize          = 800
	DefaultChunkOverlap       = 100
	DefaultTopK               = 3
	DefaultRelevanceThreshold = 1.2
	DefaultDimensions         = 384
)

// IndexSettings holds chunking and retrieval configuration.
type IndexSettings struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int

	// ChunkOverlap is the approximate overlap between consecutive chunks.
	ChunkOverlap int

	// TopK is the number of nearest rows retrieved per query.
	TopK int

	// RelevanceThreshold is the squared L2 distance above which the
	// nearest hit is considered irrelevant.
	RelevanceThreshold float64

	// Workers bounds concurrent embedding and search calls.
	Workers int
}

// ExtractionSettings holds text extraction configuration.
type ExtractionSettings struct {
	// LicenseKey is the metered key for the PDF and office libraries.
	LicenseKey string
}

// AppSettings holds all application settings.
type AppSettings struct {
	// DataDir is the root of per-user storage.
	DataDir string

	// Index holds chunking and retrieval settings.
	Index IndexSettings

	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Extraction holds text extraction settings.
	Extraction ExtractionSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// Both AI services default to a local Ollama instance.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Index: IndexSettings{
			ChunkSize:          DefaultChunkSize,
			ChunkOverlap:       DefaultChunkOverlap,
			TopK:               DefaultTopK,
			RelevanceThreshold: DefaultRelevanceThreshold,
			Workers:            runtime.NumCPU(),
		},
		Embedding: EmbeddingSettings{
			Provider:   AIProviderOllama,
			Model:      DefaultEmbeddingModels()[AIProviderOllama],
			Dimensions: DefaultDimensions,
		},
		LLM: LLMSettings{
			Provider: AIProviderOllama,
			Model:    DefaultLLMModels()[AIProviderOllama],
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "all-minilm",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3:8b",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
