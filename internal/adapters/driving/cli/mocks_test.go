package cli

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// mockKnowledge is a configurable KnowledgeService.
type mockKnowledge struct {
	mu sync.Mutex

	ingested  map[string]string
	ingestErr map[string]error
	onIngest  func(filename string)

	fragments []domain.Fragment
	retrieval *domain.Retrieval
	prompt    string
	askErr    error

	ledger    domain.Ledger
	removed   []string
	removeErr error
	report    *domain.RepairReport

	lastUser string
}

var _ driving.KnowledgeService = (*mockKnowledge)(nil)

func newMockKnowledge() *mockKnowledge {
	return &mockKnowledge{
		ingested:  make(map[string]string),
		ingestErr: make(map[string]error),
		retrieval: &domain.Retrieval{},
	}
}

func (m *mockKnowledge) Ingest(_ context.Context, userID, filename string, r io.Reader) (*domain.IngestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUser = userID
	if m.onIngest != nil {
		m.onIngest(filename)
	}
	if err := m.ingestErr[filename]; err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	m.ingested[filename] = string(data)
	if len(data) == 0 {
		return &domain.IngestResult{Filename: filename, Status: domain.IngestSkipped, Reason: "no text"}, nil
	}
	return &domain.IngestResult{Filename: filename, Status: domain.IngestIndexed, ChunkCount: 2}, nil
}

func (m *mockKnowledge) Prepare(_ context.Context, userID, _ string) (*domain.Prepared, error) {
	m.lastUser = userID
	if m.askErr != nil {
		return nil, m.askErr
	}
	return &domain.Prepared{Retrieval: *m.retrieval, Prompt: m.prompt}, nil
}

func (m *mockKnowledge) Ask(_ context.Context, userID, _ string) (<-chan domain.Fragment, *domain.Retrieval, error) {
	m.lastUser = userID
	if m.askErr != nil {
		return nil, nil, m.askErr
	}
	ch := make(chan domain.Fragment, len(m.fragments))
	for _, f := range m.fragments {
		ch <- f
	}
	close(ch)
	return ch, m.retrieval, nil
}

func (m *mockKnowledge) AskText(ctx context.Context, userID, question string) (string, *domain.Retrieval, error) {
	stream, retrieval, err := m.Ask(ctx, userID, question)
	if err != nil {
		return "", nil, err
	}
	text, err := domain.Collect(stream)
	if err != nil {
		return "", nil, err
	}
	return text, retrieval, nil
}

func (m *mockKnowledge) Remove(_ context.Context, userID, filename string) (*domain.RemoveResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastUser = userID
	if m.removeErr != nil {
		return nil, m.removeErr
	}
	m.removed = append(m.removed, filename)
	return &domain.RemoveResult{Filename: filename, RemainingDocuments: 1, RemainingChunks: 4}, nil
}

func (m *mockKnowledge) ListDocuments(_ context.Context, userID string) (domain.Ledger, error) {
	m.lastUser = userID
	return m.ledger, nil
}

func (m *mockKnowledge) Repair(_ context.Context, userID string) (*domain.RepairReport, error) {
	m.lastUser = userID
	if m.report != nil {
		return m.report, nil
	}
	return &domain.RepairReport{UserID: userID, Chunks: 3}, nil
}

func (m *mockKnowledge) Recover(context.Context) ([]domain.RepairReport, error) {
	return nil, nil
}

// mockSettings is an in-memory SettingsService.
type mockSettings struct {
	settings    domain.AppSettings
	values      map[string]string
	validateErr error
	pingErr     error
}

var _ driving.SettingsService = (*mockSettings)(nil)

func newMockSettings() *mockSettings {
	return &mockSettings{
		settings: domain.DefaultAppSettings(),
		values:   make(map[string]string),
	}
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettings) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettings) Set(key, value string) error {
	if key == "bogus" {
		return domain.ErrInvalidInput
	}
	m.values[key] = value
	return nil
}

func (m *mockSettings) Keys() []string {
	return []string{"index.top_k", "llm.api_key"}
}

func (m *mockSettings) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return nil
}

func (m *mockSettings) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM.Provider = provider
	m.settings.LLM.Model = model
	m.settings.LLM.APIKey = apiKey
	return nil
}

func (m *mockSettings) Validate() error                { return m.validateErr }
func (m *mockSettings) ValidateEmbeddingConfig() error { return m.pingErr }
func (m *mockSettings) ValidateLLMConfig() error       { return m.pingErr }

// setupTestServices installs mock services for the duration of the test.
func setupTestServices(t *testing.T) (*mockKnowledge, *mockSettings) {
	t.Helper()
	k := newMockKnowledge()
	s := newMockSettings()
	SetServices(&Services{Knowledge: k, Settings: s})
	t.Cleanup(func() { SetServices(nil) })
	return k, s
}

// runCommand executes the root command with args and returns everything
// written to stdout and stderr.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCommandContext(t, context.Background(), args...)
}

func runCommandContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	// Cobra keeps a subcommand's context from an earlier run, so hand every
	// command this run's context.
	setContext(rootCmd, ctx)

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}

func setContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		setContext(c, ctx)
	}
}

// resetFlags restores every flag to its default so tests do not leak
// values into each other.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func ledgerOf(names ...string) domain.Ledger {
	ledger := make(domain.Ledger, len(names))
	for i, n := range names {
		ledger[i] = domain.LedgerEntry{
			Filename:   n,
			ChunkCount: i + 1,
			UploadedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		}
	}
	return ledger
}
