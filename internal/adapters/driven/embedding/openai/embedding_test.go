package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingItem struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestNewEmbeddingService_RequiresKey(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNewEmbeddingService_Dimensions(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		model string
		dims  int
	}{
		{name: "default model", cfg: Config{APIKey: "k"}, model: DefaultModel, dims: 1536},
		{name: "large", cfg: Config{APIKey: "k", Model: "text-embedding-3-large"}, model: "text-embedding-3-large", dims: 3072},
		{name: "override", cfg: Config{APIKey: "k", Dimensions: 256}, model: DefaultModel, dims: 256},
		{name: "unknown model", cfg: Config{APIKey: "k", Model: "custom"}, model: "custom", dims: 1536},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewEmbeddingService(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.model, s.ModelName())
			assert.Equal(t, tt.dims, s.Dimensions())
		})
	}
}

func TestEmbedBatch_OrdersByIndex(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Model      string   `json:"model"`
			Input      []string `json:"input"`
			Dimensions int      `json:"dimensions"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"first", "second"}, req.Input)
		assert.Equal(t, 2, req.Dimensions)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []embeddingItem{
				{Object: "embedding", Embedding: []float32{0, 2}, Index: 1},
				{Object: "embedding", Embedding: []float32{1, 0}, Index: 0},
			},
			"model": req.Model,
		})
	})

	s, err := NewEmbeddingService(Config{APIKey: "test-key", BaseURL: server.URL, Dimensions: 2})
	require.NoError(t, err)

	vectors, err := s.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 2}}, vectors)
}

func TestEmbedBatch_MissingEmbedding(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []embeddingItem{{Object: "embedding", Embedding: []float32{1}, Index: 0}},
		})
	})

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = s.EmbedBatch(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no embedding for input 1")
}

func TestEmbed_APIError(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	s, err := NewEmbeddingService(Config{APIKey: "bad", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = s.Embed(context.Background(), "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key")
}

func TestEmbedBatch_Empty(t *testing.T) {
	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	vectors, err := s.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vectors)
}

func TestPing(t *testing.T) {
	server := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	})

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)
	assert.NoError(t, s.Ping(context.Background()))
}
