package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestApplyEnv(t *testing.T) {
	t.Run("fills missing keys for the configured providers", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-openai")
		t.Setenv("ANTHROPIC_API_KEY", "sk-ant")
		t.Setenv("DOCQA_DATA_DIR", "/srv/docqa")

		settings := domain.DefaultAppSettings()
		settings.Embedding.Provider = domain.AIProviderOpenAI
		settings.LLM.Provider = domain.AIProviderAnthropic
		applyEnv(&settings)

		assert.Equal(t, "sk-openai", settings.Embedding.APIKey)
		assert.Equal(t, "sk-ant", settings.LLM.APIKey)
		assert.Equal(t, "/srv/docqa", settings.DataDir)
	})

	t.Run("docqa variables win over provider variables", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-openai")
		t.Setenv("DOCQA_LLM_API_KEY", "sk-docqa")

		settings := domain.DefaultAppSettings()
		settings.LLM.Provider = domain.AIProviderOpenAI
		applyEnv(&settings)

		assert.Equal(t, "sk-docqa", settings.LLM.APIKey)
	})

	t.Run("configured values are kept", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-env")

		settings := domain.DefaultAppSettings()
		settings.Embedding.Provider = domain.AIProviderOpenAI
		settings.Embedding.APIKey = "sk-config"
		applyEnv(&settings)

		assert.Equal(t, "sk-config", settings.Embedding.APIKey)
	})

	t.Run("local providers take no key", func(t *testing.T) {
		t.Setenv("OPENAI_API_KEY", "sk-env")

		settings := domain.DefaultAppSettings()
		applyEnv(&settings)

		assert.Empty(t, settings.Embedding.APIKey)
		assert.Empty(t, settings.LLM.APIKey)
	})
}

func TestBootstrap_WiresServices(t *testing.T) {
	t.Setenv("DOCQA_DATA_DIR", "")
	t.Setenv("DOCQA_LICENSE_KEY", "")
	t.Setenv("UNIDOC_LICENSE_API_KEY", "")
	dir := t.TempDir()

	services, err := bootstrap(cli.Options{ConfigDir: dir})
	require.NoError(t, err)
	defer services.Close()

	require.NotNil(t, services.Knowledge)
	require.NotNil(t, services.Settings)
	require.NotNil(t, services.Metrics)

	_, err = os.Stat(filepath.Join(dir, "data", "journal.db"))
	assert.NoError(t, err)

	ledger, err := services.Knowledge.ListDocuments(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, ledger)

	// Unsupported types are skipped before any embedding is attempted.
	res, err := services.Knowledge.Ingest(context.Background(), "alice", "image.png", strings.NewReader("\x89PNG"))
	require.NoError(t, err)
	assert.Equal(t, domain.IngestSkipped, res.Status)

	// Without a license key PDFs are skipped with a reason, not parsed.
	res, err = services.Knowledge.Ingest(context.Background(), "alice", "report.pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, domain.IngestSkipped, res.Status)
	assert.Contains(t, res.Reason, "license key required")
}

func TestBootstrap_UsesConfiguredDataDir(t *testing.T) {
	t.Setenv("DOCQA_DATA_DIR", "")
	configDir := t.TempDir()
	dataDir := filepath.Join(t.TempDir(), "elsewhere")
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.toml"),
		[]byte("data_dir = \""+filepath.ToSlash(dataDir)+"\"\n"), 0o600))

	services, err := bootstrap(cli.Options{ConfigDir: configDir})
	require.NoError(t, err)
	defer services.Close()

	_, err = os.Stat(filepath.Join(dataDir, "journal.db"))
	assert.NoError(t, err)
}
