package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfigStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_Path(t *testing.T) {
	dir := t.TempDir()

	store, err := NewConfigStore(dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.toml"), store.Path())
}

func TestNewConfigStore_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	_, err := NewConfigStore(dir)

	require.NoError(t, err)
	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newTestConfigStore(t)

	require.NoError(t, store.Set("llm.model", "llama3:8b"))
	require.NoError(t, store.Set("index.top_k", 3))
	require.NoError(t, store.Set("index.relevance_threshold", 1.2))
	require.NoError(t, store.Set("flag", true))

	assert.Equal(t, "llama3:8b", store.GetString("llm.model"))
	assert.Equal(t, 3, store.GetInt("index.top_k"))
	assert.InDelta(t, 1.2, store.GetFloat("index.relevance_threshold"), 1e-9)
	assert.True(t, store.GetBool("flag"))

	// Wrong types read as zero values.
	assert.Equal(t, "", store.GetString("index.top_k"))
	assert.Equal(t, 0, store.GetInt("llm.model"))
	assert.False(t, store.GetBool("llm.model"))
	assert.Zero(t, store.GetFloat("llm.model"))

	// Integers widen to floats.
	assert.InDelta(t, 3.0, store.GetFloat("index.top_k"), 1e-9)
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store := newTestConfigStore(t)

	val, ok := store.Get("missing")

	assert.False(t, ok)
	assert.Nil(t, val)
}

func TestConfigStore_Keys_Sorted(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("llm.model", "x"))
	require.NoError(t, store.Set("data_dir", "/tmp"))
	require.NoError(t, store.Set("index.top_k", 3))

	assert.Equal(t, []string{"data_dir", "index.top_k", "llm.model"}, store.Keys())
}

func TestConfigStore_WritesNestedTables(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("index.chunk_size", 800))
	require.NoError(t, store.Set("embedding.model", "all-minilm"))
	require.NoError(t, store.Set("data_dir", "/srv/docqa"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	text := string(raw)
	assert.Contains(t, text, "[index]")
	assert.Contains(t, text, "chunk_size = 800")
	assert.Contains(t, text, "[embedding]")
	assert.Contains(t, text, "data_dir = '/srv/docqa'")
}

func TestConfigStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("index.chunk_overlap", 100))
	require.NoError(t, store.Set("embedding.rate_limit", 2.5))

	reopened, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, 100, reopened.GetInt("index.chunk_overlap"))
	assert.InDelta(t, 2.5, reopened.GetFloat("embedding.rate_limit"), 1e-9)
}

func TestConfigStore_LoadsHandWrittenFile(t *testing.T) {
	dir := t.TempDir()
	content := "data_dir = \"/data\"\n\n[index]\nchunk_size = 500\nrelevance_threshold = 1\n\n[llm]\nprovider = \"anthropic\"\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(dir)
	require.NoError(t, err)

	assert.Equal(t, "/data", store.GetString("data_dir"))
	assert.Equal(t, 500, store.GetInt("index.chunk_size"))
	assert.InDelta(t, 1.0, store.GetFloat("index.relevance_threshold"), 1e-9)
	assert.Equal(t, "anthropic", store.GetString("llm.provider"))
}

func TestConfigStore_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte("not [valid"), 0600))

	_, err := NewConfigStore(dir)

	assert.Error(t, err)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("k", "v"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newTestConfigStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = store.Set("index.workers", n)
			_ = store.GetInt("index.workers")
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("index.workers")
	assert.True(t, ok)
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"a.b.c": 1,
		"a.d":   "x",
		"e":     true,
		"e.f":   2, // conflicts with the plain value e
	})

	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 1},
			"d": "x",
		},
		"e": true,
	}, nested)
}

func TestFlattenMap_RoundTrip(t *testing.T) {
	flat := map[string]any{"index.top_k": 3, "llm.model": "m", "data_dir": "/d"}

	assert.Equal(t, flat, flattenMap(nestMap(flat), ""))
}
