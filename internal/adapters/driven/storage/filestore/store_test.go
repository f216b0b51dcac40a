package filestore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	require.NoError(t, err)
	return s
}

func TestStore_MissingArtifacts(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	_, err := s.LoadVectors(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = s.LoadChunks(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	ledger, err := s.LoadLedger(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, ledger)
}

func TestStore_VectorsRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveVectors(ctx, "alice", []byte{1, 2, 3}))
	got, err := s.LoadVectors(ctx, "alice")

	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)
	assert.FileExists(t, filepath.Join(s.Root(), "alice", VectorsFile))
}

func TestStore_ChunksRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	chunks := []domain.Chunk{
		{ID: "1", Source: "a.txt", Content: "first", Position: 0},
		{ID: "2", Source: "a.txt", Content: "second", Position: 1},
	}

	require.NoError(t, s.SaveChunks(ctx, "alice", chunks))
	got, err := s.LoadChunks(ctx, "alice")

	require.NoError(t, err)
	assert.Equal(t, chunks, got)
}

func TestStore_CorruptChunks(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, os.MkdirAll(filepath.Join(s.Root(), "alice"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(s.Root(), "alice", ChunksFile), []byte("garbage"), 0o600))

	_, err := s.LoadChunks(ctx, "alice")

	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
}

func TestStore_LedgerFormat(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	ts := time.Date(2024, 3, 9, 14, 5, 6, 0, time.Local)
	ledger := domain.Ledger{
		{Filename: "report.pdf", ChunkCount: 12, UploadedAt: ts},
		{Filename: "notes.txt", ChunkCount: 3, UploadedAt: ts},
	}

	require.NoError(t, s.SaveLedger(ctx, "alice", ledger))

	raw, err := os.ReadFile(filepath.Join(s.Root(), "alice", LedgerFile))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "\"file\": \"report.pdf\"")
	assert.Contains(t, string(raw), "\"chunks\": 12")
	assert.Contains(t, string(raw), "\"uploaded_at\": \"2024-03-09 14:05:06\"")

	got, err := s.LoadLedger(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "report.pdf", got[0].Filename)
	assert.Equal(t, 12, got[0].ChunkCount)
	assert.True(t, ts.Equal(got[0].UploadedAt))
}

func TestStore_LedgerReadsHandWrittenJSON(t *testing.T) {
	s := setupTestStore(t)
	dir := filepath.Join(s.Root(), "bob")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	data := `[{"file": "a.txt", "chunks": 2, "uploaded_at": "2023-01-02 03:04:05"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, LedgerFile), []byte(data), 0o600))

	got, err := s.LoadLedger(context.Background(), "bob")

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2023, got[0].UploadedAt.Year())
}

func TestStore_CorruptLedger(t *testing.T) {
	s := setupTestStore(t)
	dir := filepath.Join(s.Root(), "alice")
	require.NoError(t, os.MkdirAll(dir, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, LedgerFile), []byte(`[{"file": "a.txt",`), 0o600))

	_, err := s.LoadLedger(context.Background(), "alice")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexCorrupt)
	assert.Contains(t, err.Error(), "parse ledger")
}

func TestStore_ListSources(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	names, err := s.ListSources(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, names)

	require.NoError(t, s.SaveSource(ctx, "alice", "b.txt", strings.NewReader("b")))
	require.NoError(t, s.SaveSource(ctx, "alice", "a.txt", strings.NewReader("a")))
	leftover := filepath.Join(s.Root(), "alice", SourcesDir, ".c.txt.123.tmp")
	require.NoError(t, os.WriteFile(leftover, []byte("partial"), 0o600))

	names, err = s.ListSources(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, names)

	_, err = s.ListSources(ctx, "../bob")
	assert.Error(t, err)
}

func TestStore_ClearIndexKeepsLedgerAndSources(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveVectors(ctx, "alice", []byte{1}))
	require.NoError(t, s.SaveChunks(ctx, "alice", nil))
	require.NoError(t, s.SaveLedger(ctx, "alice", domain.Ledger{}))
	require.NoError(t, s.SaveSource(ctx, "alice", "a.txt", strings.NewReader("hello")))

	require.NoError(t, s.ClearIndex(ctx, "alice"))
	require.NoError(t, s.ClearIndex(ctx, "alice"), "clearing twice is fine")

	_, err := s.LoadVectors(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.LoadChunks(ctx, "alice")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.FileExists(t, filepath.Join(s.Root(), "alice", LedgerFile))
	assert.FileExists(t, filepath.Join(s.Root(), "alice", SourcesDir, "a.txt"))
}

func TestStore_Sources(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSource(ctx, "alice", "a.txt", strings.NewReader("v1")))
	require.NoError(t, s.SaveSource(ctx, "alice", "a.txt", strings.NewReader("v2")))

	data, err := s.ReadSource(ctx, "alice", "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	require.NoError(t, s.RemoveSource(ctx, "alice", "a.txt"))
	require.NoError(t, s.RemoveSource(ctx, "alice", "a.txt"))
	_, err = s.ReadSource(ctx, "alice", "a.txt")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_RejectsUnsafeNames(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	for _, user := range []string{"", "..", "../bob", "a/b", ".hidden", "a..b"} {
		_, err := s.LoadLedger(ctx, user)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "user %q", user)
	}
	for _, name := range []string{"", ".", "..", "../x.txt", "dir/x.txt", "a\\b.txt"} {
		err := s.SaveSource(ctx, "alice", name, strings.NewReader("x"))
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "filename %q", name)
	}
}

func TestStore_UsersIsolated(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveLedger(ctx, "bob", domain.Ledger{{Filename: "b.txt", ChunkCount: 1}}))
	require.NoError(t, s.SaveLedger(ctx, "alice", domain.Ledger{{Filename: "a.txt", ChunkCount: 1}}))

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, users)

	alice, err := s.LoadLedger(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, alice.Filenames())
}

func TestStore_NoTempFilesLeft(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveVectors(ctx, "alice", []byte{1}))
	require.NoError(t, s.SaveVectors(ctx, "alice", []byte{2}))

	entries, err := os.ReadDir(filepath.Join(s.Root(), "alice"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasSuffix(e.Name(), ".tmp"), e.Name())
	}
}
