package services

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDataDir           = "data_dir"
	keyChunkSize         = "index.chunk_size"
	keyChunkOverlap      = "index.chunk_overlap"
	keyTopK              = "index.top_k"
	keyThreshold         = "index.relevance_threshold"
	keyWorkers           = "index.workers"
	keyEmbedProvider     = "embedding.provider"
	keyEmbedModel        = "embedding.model"
	keyEmbedBaseURL      = "embedding.base_url"
	keyEmbedAPIKey       = "embedding.api_key"
	keyEmbedDimensions   = "embedding.dimensions"
	keyEmbedRateLimit    = "embedding.rate_limit"
	keyEmbedBurst        = "embedding.burst"
	keyLLMProvider       = "llm.provider"
	keyLLMModel          = "llm.model"
	keyLLMBaseURL        = "llm.base_url"
	keyLLMAPIKey         = "llm.api_key"
	keyLLMMaxTokens      = "llm.max_tokens"
	keyExtractionLicense = "extraction.license_key"
)

type keyKind int

const (
	kindString keyKind = iota
	kindInt
	kindFloat
	kindProvider
)

// settingKeys lists every key Set accepts and how its value is parsed.
var settingKeys = map[string]keyKind{
	keyDataDir:           kindString,
	keyChunkSize:         kindInt,
	keyChunkOverlap:      kindInt,
	keyTopK:              kindInt,
	keyThreshold:         kindFloat,
	keyWorkers:           kindInt,
	keyEmbedProvider:     kindProvider,
	keyEmbedModel:        kindString,
	keyEmbedBaseURL:      kindString,
	keyEmbedAPIKey:       kindString,
	keyEmbedDimensions:   kindInt,
	keyEmbedRateLimit:    kindFloat,
	keyEmbedBurst:        kindInt,
	keyLLMProvider:       kindProvider,
	keyLLMModel:          kindString,
	keyLLMBaseURL:        kindString,
	keyLLMAPIKey:         kindString,
	keyLLMMaxTokens:      kindInt,
	keyExtractionLicense: kindString,
}

// SettingKeys returns the configurable keys in sorted order.
func SettingKeys() []string {
	keys := make([]string, 0, len(settingKeys))
	for k := range settingKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Keys returns the keys Set accepts, sorted.
func (s *SettingsService) Keys() []string {
	return SettingKeys()
}

type setting struct {
	key   string
	value any
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	embedModel := s.getString(keyEmbedModel, defaults.Embedding.Model)
	settings := &domain.AppSettings{
		DataDir: s.configStore.GetString(keyDataDir),
		Index: domain.IndexSettings{
			ChunkSize:          s.getInt(keyChunkSize, defaults.Index.ChunkSize),
			ChunkOverlap:       s.getInt(keyChunkOverlap, defaults.Index.ChunkOverlap),
			TopK:               s.getInt(keyTopK, defaults.Index.TopK),
			RelevanceThreshold: s.getFloat(keyThreshold, defaults.Index.RelevanceThreshold),
			Workers:            s.getInt(keyWorkers, defaults.Index.Workers),
		},
		Embedding: domain.EmbeddingSettings{
			Provider:  s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:     embedModel,
			BaseURL:   s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:    s.configStore.GetString(keyEmbedAPIKey),
			RateLimit: s.configStore.GetFloat(keyEmbedRateLimit),
			Burst:     s.configStore.GetInt(keyEmbedBurst),
		},
		LLM: domain.LLMSettings{
			Provider:  s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:     s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:   s.configStore.GetString(keyLLMBaseURL),
			APIKey:    s.configStore.GetString(keyLLMAPIKey),
			MaxTokens: s.configStore.GetInt(keyLLMMaxTokens),
		},
		Extraction: domain.ExtractionSettings{
			LicenseKey: s.configStore.GetString(keyExtractionLicense),
		},
	}
	settings.Embedding.Dimensions = s.configStore.GetInt(keyEmbedDimensions)
	settings.Embedding.Dimensions = settings.Embedding.ResolvedDimensions()

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	values := []setting{
		{keyDataDir, settings.DataDir},
		{keyChunkSize, settings.Index.ChunkSize},
		{keyChunkOverlap, settings.Index.ChunkOverlap},
		{keyTopK, settings.Index.TopK},
		{keyThreshold, settings.Index.RelevanceThreshold},
		{keyWorkers, settings.Index.Workers},
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyEmbedRateLimit, settings.Embedding.RateLimit},
		{keyEmbedBurst, settings.Embedding.Burst},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyLLMMaxTokens, settings.LLM.MaxTokens},
	}
	// Secrets are only written when present so an environment-provided key
	// never lands in the config file by accident.
	if settings.Embedding.APIKey != "" {
		values = append(values, setting{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" {
		values = append(values, setting{keyLLMAPIKey, settings.LLM.APIKey})
	}
	if settings.Extraction.LicenseKey != "" {
		values = append(values, setting{keyExtractionLicense, settings.Extraction.LicenseKey})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}
	return nil
}

// Set parses value for key and persists it.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := settingKeys[key]
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}

	var parsed any
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer: %w", key, domain.ErrInvalidInput)
		}
		parsed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return fmt.Errorf("%s must be a non-negative number: %w", key, domain.ErrInvalidInput)
		}
		parsed = f
	case kindProvider:
		p := domain.AIProvider(value)
		if !p.IsValid() {
			return fmt.Errorf("invalid provider %q: %w", value, domain.ErrInvalidInput)
		}
		if key == keyEmbedProvider && !supportsEmbedding(p) {
			return fmt.Errorf("provider %s does not support embeddings: %w", p, domain.ErrInvalidInput)
		}
		parsed = value
	default:
		parsed = value
	}

	if err := s.configStore.Set(key, parsed); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if !supportsEmbedding(provider) {
		return fmt.Errorf("provider %s does not support embeddings", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Embedding.Provider = provider
	if model != "" {
		settings.Embedding.Model = model
	} else if defaultModel, ok := domain.DefaultEmbeddingModels()[provider]; ok {
		settings.Embedding.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.Embedding.BaseURL == "" {
			settings.Embedding.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.Embedding.BaseURL = ""
	}
	settings.Embedding.APIKey = apiKey

	// A new model invalidates the configured size; re-derive it.
	settings.Embedding.Dimensions = 0
	settings.Embedding.Dimensions = settings.Embedding.ResolvedDimensions()

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid LLM provider: %s", provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	if model != "" {
		settings.LLM.Model = model
	} else if defaultModel, ok := domain.DefaultLLMModels()[provider]; ok {
		settings.LLM.Model = defaultModel
	}

	if provider.IsLocal() {
		if settings.LLM.BaseURL == "" {
			settings.LLM.BaseURL = "http://localhost:11434"
		}
	} else {
		settings.LLM.BaseURL = ""
	}
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// Validate checks that the current settings can run the pipeline.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	idx := settings.Index
	if idx.ChunkSize <= 0 {
		return fmt.Errorf("index.chunk_size must be positive")
	}
	if idx.ChunkOverlap >= idx.ChunkSize {
		return fmt.Errorf("index.chunk_overlap (%d) must be smaller than index.chunk_size (%d)",
			idx.ChunkOverlap, idx.ChunkSize)
	}
	if idx.TopK <= 0 {
		return fmt.Errorf("index.top_k must be positive")
	}
	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("embedding provider %q is not configured", settings.Embedding.Provider)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("LLM provider %q is not configured", settings.LLM.Provider)
	}
	return nil
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	val := s.configStore.GetFloat(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func supportsEmbedding(p domain.AIProvider) bool {
	for _, candidate := range domain.AllEmbeddingProviders() {
		if candidate == p {
			return true
		}
	}
	return false
}
