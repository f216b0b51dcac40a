package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docqa/internal/adapters/driven/ai"
	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/filestore"
	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/core/services"
	"github.com/custodia-labs/docqa/internal/logger"
	"github.com/custodia-labs/docqa/internal/normalisers"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

// bootstrap wires the driven adapters into the core services.
// Missing AI providers are logged, not fatal: commands that do not need
// them still work and the others fail with a clear error.
func bootstrap(opts cli.Options) (*cli.Services, error) {
	configDir := opts.ConfigDir
	if configDir == "" {
		dir, err := file.DefaultDir()
		if err != nil {
			return nil, fmt.Errorf("locating config directory: %w", err)
		}
		configDir = dir
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	applyEnv(settings)
	if settings.DataDir == "" {
		settings.DataDir = filepath.Join(configDir, "data")
	}

	store, err := filestore.New(settings.DataDir)
	if err != nil {
		return nil, err
	}
	db, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening journal: %w", err)
	}

	extractor, err := normalisers.NewDefaultRegistry(settings.Extraction)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating extractors: %w", err)
	}
	pipeline, err := postprocessors.NewDefaultPipeline(settings.Index)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating chunker: %w", err)
	}

	aiServices := ai.Init(*settings, false)
	for _, w := range aiServices.Warnings {
		logger.Debug("ai: %s", w)
	}

	knowledge := services.NewKnowledgeService(
		store, flat.Factory{}, aiServices.EmbeddingService, aiServices.LLMService,
		extractor, pipeline, settings.Index,
	)
	knowledge.SetJournal(db.Journal())
	metrics := prometheus.New()
	knowledge.SetMetrics(metrics)
	knowledge.SetGenerateOptions(driven.GenerateOptions{MaxTokens: settings.LLM.MaxTokens})
	if prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts")); err == nil {
		knowledge.SetPromptStore(prompts)
	}

	if reports, err := knowledge.Recover(context.Background()); err != nil {
		logger.Warn("recovery: %v", err)
	} else {
		for _, r := range reports {
			logger.Info("recovered %s: %d chunks", r.UserID, r.Chunks)
		}
	}

	return &cli.Services{
		Knowledge: knowledge,
		Settings:  settingsService,
		Metrics:   metrics.Handler(),
		Close: func() {
			aiServices.Close()
			if err := db.Close(); err != nil {
				logger.Warn("closing journal: %v", err)
			}
		},
	}, nil
}

// applyEnv fills unset secrets from the environment. Values from the
// environment are never written back to the config file.
func applyEnv(settings *domain.AppSettings) {
	fill := func(dst *string, keys ...string) {
		if *dst != "" {
			return
		}
		for _, k := range keys {
			if v := strings.TrimSpace(os.Getenv(k)); v != "" {
				*dst = v
				return
			}
		}
	}

	fill(&settings.DataDir, "DOCQA_DATA_DIR")
	fill(&settings.Extraction.LicenseKey, "DOCQA_LICENSE_KEY", "UNIDOC_LICENSE_API_KEY")

	if settings.Embedding.Provider == domain.AIProviderOpenAI {
		fill(&settings.Embedding.APIKey, "DOCQA_EMBEDDING_API_KEY", "OPENAI_API_KEY")
	}
	switch settings.LLM.Provider {
	case domain.AIProviderOpenAI:
		fill(&settings.LLM.APIKey, "DOCQA_LLM_API_KEY", "OPENAI_API_KEY")
	case domain.AIProviderAnthropic:
		fill(&settings.LLM.APIKey, "DOCQA_LLM_API_KEY", "ANTHROPIC_API_KEY")
	}
}
