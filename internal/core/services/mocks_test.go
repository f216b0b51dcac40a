package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docqa/internal/adapters/driven/vectorindex/flat"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/postprocessors"
)

// topics are the axes of the fake embedding space. Text is embedded as the
// normalised count of each topic word; text with no topic word points
// along an extra "other" axis. Texts sharing no topic are at squared
// distance 2, well above the relevance threshold.
var topics = []string{"bread", "rocket", "garden", "piano", "cat"}

// mockEmbedder is a deterministic keyword embedder.
type mockEmbedder struct {
	mu      sync.Mutex
	err     error
	calls   atomic.Int32
	batches [][]string
}

func (m *mockEmbedder) embed(text string) []float32 {
	v := make([]float32, len(topics)+1)
	found := false
	for _, word := range strings.Fields(strings.ToLower(text)) {
		word = strings.Trim(word, ".,!?;:")
		for i, t := range topics {
			if word == t {
				v[i]++
				found = true
			}
		}
	}
	if !found {
		v[len(topics)] = 1
	}
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	norm = math.Sqrt(norm)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	m.mu.Lock()
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return m.embed(text), nil
}

func (m *mockEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	m.mu.Lock()
	err := m.err
	m.batches = append(m.batches, texts)
	m.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.embed(t)
	}
	return out, nil
}

func (m *mockEmbedder) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func (m *mockEmbedder) Dimensions() int              { return len(topics) + 1 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }
func (m *mockEmbedder) Close() error                 { return nil }

// mockLLM streams canned fragments and records the prompts it saw.
type mockLLM struct {
	mu        sync.Mutex
	prompts   []string
	fragments []string
	streamErr error // delivered as a terminal fragment
	startErr  error // returned from Stream
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	stream, err := m.Stream(ctx, prompt, opts)
	if err != nil {
		return "", err
	}
	return domain.Collect(stream)
}

func (m *mockLLM) Stream(ctx context.Context, prompt string, _ driven.GenerateOptions) (<-chan domain.Fragment, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	fragments := append([]string(nil), m.fragments...)
	streamErr, startErr := m.streamErr, m.startErr
	m.mu.Unlock()

	if startErr != nil {
		return nil, startErr
	}
	out := make(chan domain.Fragment)
	go func() {
		defer close(out)
		for _, f := range fragments {
			select {
			case out <- domain.Fragment{Text: f}:
			case <-ctx.Done():
				return
			}
		}
		if streamErr != nil {
			select {
			case out <- domain.Fragment{Err: streamErr}:
			case <-ctx.Done():
			}
		}
	}()
	return out, nil
}

func (m *mockLLM) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockExtractor treats every file as plain text except *.bin.
type mockExtractor struct{}

func (mockExtractor) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if strings.HasSuffix(raw.Filename, ".bin") {
		return nil, domain.ErrUnsupportedType
	}
	return &driven.NormaliseResult{Document: domain.Document{
		Filename: raw.Filename,
		Content:  string(raw.Content),
	}}, nil
}

func (mockExtractor) Register(driven.Normaliser) {}
func (mockExtractor) SupportedMIMETypes() []string { return []string{"text/plain"} }

// failingChunkStore makes the chunk store unreadable.
type failingChunkStore struct {
	*memory.IndexStore
	fail bool
}

func (s *failingChunkStore) LoadChunks(ctx context.Context, userID string) ([]domain.Chunk, error) {
	if s.fail {
		return nil, errors.New("chunk store damaged")
	}
	return s.IndexStore.LoadChunks(ctx, userID)
}

// mockMetrics counts measurements.
type mockMetrics struct {
	mu       sync.Mutex
	ingests  map[domain.IngestStatus]int
	rebuilds []string
	queries  map[domain.Grounding]int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{
		ingests: make(map[domain.IngestStatus]int),
		queries: make(map[domain.Grounding]int),
	}
}

func (m *mockMetrics) IngestCompleted(s domain.IngestStatus) {
	m.mu.Lock()
	m.ingests[s]++
	m.mu.Unlock()
}

func (m *mockMetrics) Rebuilt(trigger string) {
	m.mu.Lock()
	m.rebuilds = append(m.rebuilds, trigger)
	m.mu.Unlock()
}

func (m *mockMetrics) QueryServed(g domain.Grounding) {
	m.mu.Lock()
	m.queries[g]++
	m.mu.Unlock()
}

func (m *mockMetrics) ObserveEmbedding(time.Duration) {}

// harness bundles a service with its fakes.
type harness struct {
	store    *memory.IndexStore
	embedder *mockEmbedder
	llm      *mockLLM
	journal  *memory.Journal
	metrics  *mockMetrics
	svc      *KnowledgeService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWithStore(t, memory.NewIndexStore(), nil)
}

func newHarnessWithStore(t *testing.T, base *memory.IndexStore, store driven.IndexStore) *harness {
	t.Helper()
	if store == nil {
		store = base
	}
	settings := domain.DefaultAppSettings().Index
	settings.Workers = 4
	pipeline, err := postprocessors.NewDefaultPipeline(settings)
	require.NoError(t, err)

	h := &harness{
		store:    base,
		embedder: &mockEmbedder{},
		llm:      &mockLLM{fragments: []string{"The ", "answer."}},
		journal:  memory.NewJournal(),
		metrics:  newMockMetrics(),
	}
	h.svc = NewKnowledgeService(store, flat.Factory{}, h.embedder, h.llm, mockExtractor{}, pipeline, settings)
	h.svc.SetJournal(h.journal)
	h.svc.SetMetrics(h.metrics)
	return h
}

// requireAligned asserts the persisted vector index has one row per chunk
// and returns the row count.
func requireAligned(t *testing.T, store driven.IndexStore, userID string) int {
	t.Helper()
	ctx := context.Background()
	chunks, err := store.LoadChunks(ctx, userID)
	require.NoError(t, err)
	data, err := store.LoadVectors(ctx, userID)
	require.NoError(t, err)
	idx, err := flat.Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, len(chunks), idx.Len(), "vector rows must match chunk count")
	for i, c := range chunks {
		require.Equal(t, i, c.Position)
	}
	return idx.Len()
}

// paragraph returns a paragraph of n repetitions of phrase.
func paragraph(phrase string, n int) string {
	return strings.TrimSpace(strings.Repeat(phrase+" ", n))
}
