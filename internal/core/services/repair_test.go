package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestRepair_Healthy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ingest(t, h, "a.txt", "bread")
	ingest(t, h, "b.txt", "rocket")

	report, err := h.svc.Repair(ctx, testUser)

	require.NoError(t, err)
	assert.True(t, report.Healthy())
	assert.False(t, report.Rebuilt)
	assert.Equal(t, 2, report.Chunks)
}

func TestRepair_EmptyUser(t *testing.T) {
	h := newHarness(t)

	report, err := h.svc.Repair(context.Background(), "nobody")

	require.NoError(t, err)
	assert.True(t, report.Healthy())
	assert.Equal(t, 0, report.Chunks)
}

func TestRepair_LedgerChunkDrift(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ingest(t, h, "a.txt", "bread")
	ingest(t, h, "b.txt", "rocket")

	// A crash after the chunk store was written for a third document.
	chunks, err := h.store.LoadChunks(ctx, testUser)
	require.NoError(t, err)
	chunks = append(chunks, domain.Chunk{Content: "orphan", Position: 2})
	require.NoError(t, h.store.SaveChunks(ctx, testUser, chunks))

	report, err := h.svc.Repair(ctx, testUser)

	require.NoError(t, err)
	assert.False(t, report.Healthy())
	assert.True(t, report.Rebuilt)
	assert.Equal(t, 2, report.Chunks)
	assert.Equal(t, 2, requireAligned(t, h.store, testUser))
}

func TestRepair_ChunkStoreMissing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ingest(t, h, "a.txt", "bread")
	ledger, err := h.store.LoadLedger(ctx, testUser)
	require.NoError(t, err)
	require.NoError(t, h.store.ClearIndex(ctx, testUser))
	require.NoError(t, h.store.SaveLedger(ctx, testUser, ledger))

	report, err := h.svc.Repair(ctx, testUser)

	require.NoError(t, err)
	assert.Contains(t, report.Problems, "chunk store missing")
	assert.True(t, report.Rebuilt)
	assert.Equal(t, 1, requireAligned(t, h.store, testUser))
}

func TestRepair_VectorsCorrupt(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ingest(t, h, "a.txt", "bread\n\n"+paragraph("rocket", 200))
	h.store.Corrupt(testUser, []byte("DQVI garbage"))

	report, err := h.svc.Repair(ctx, testUser)

	require.NoError(t, err)
	require.Len(t, report.Problems, 1)
	assert.True(t, strings.HasPrefix(report.Problems[0], "vector index corrupt"))
	assert.True(t, report.Rebuilt)
	assert.Equal(t, report.Chunks, requireAligned(t, h.store, testUser))
}

func TestRepair_ArtifactsWithoutLedger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ingest(t, h, "a.txt", "bread")
	require.NoError(t, h.store.SaveLedger(ctx, testUser, domain.Ledger{}))

	report, err := h.svc.Repair(ctx, testUser)

	require.NoError(t, err)
	assert.True(t, report.Rebuilt)
	_, err = h.store.LoadChunks(ctx, testUser)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = h.store.LoadVectors(ctx, testUser)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRepair_CorruptLedgerRecoveredFromSources(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ingest(t, h, "b.txt", "rocket")
	ingest(t, h, "a.txt", "bread")
	h.store.CorruptLedger(testUser)

	report, err := h.svc.Repair(ctx, testUser)

	require.NoError(t, err)
	assert.True(t, report.Rebuilt)
	require.NotEmpty(t, report.Problems)
	assert.Contains(t, report.Problems[0], "ledger unreadable")
	assert.Equal(t, 2, report.Chunks)

	ledger, err := h.store.LoadLedger(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt", "a.txt"}, ledger.Filenames(), "chunk store order is kept")
	assert.Equal(t, 2, ledger.TotalChunks())
	assert.Equal(t, 2, requireAligned(t, h.store, testUser))
}

func TestKnowledgeService_CorruptLedgerDoesNotBlockUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ingest(t, h, "a.txt", "bread")
	h.store.CorruptLedger(testUser)

	res := ingest(t, h, "b.txt", "rocket")
	assert.Equal(t, domain.IngestIndexed, res.Status)

	ledger, err := h.svc.ListDocuments(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, ledger.Filenames())
	assert.Equal(t, 2, requireAligned(t, h.store, testUser))

	h.store.CorruptLedger(testUser)
	removed, err := h.svc.Remove(ctx, testUser, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, removed.RemainingDocuments)

	h.store.CorruptLedger(testUser)
	ledger, err = h.svc.ListDocuments(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, ledger.Filenames())
}

func TestRepair_CorruptLedgerWithoutSources(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ingest(t, h, "a.txt", "bread")
	require.NoError(t, h.store.RemoveSource(ctx, testUser, "a.txt"))
	h.store.CorruptLedger(testUser)

	report, err := h.svc.Repair(ctx, testUser)

	require.NoError(t, err)
	assert.True(t, report.Rebuilt)
	assert.Equal(t, 0, report.Chunks)
	ledger, err := h.store.LoadLedger(ctx, testUser)
	require.NoError(t, err)
	assert.Empty(t, ledger)
	_, err = h.store.LoadChunks(ctx, testUser)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
