package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Rebuild triggers reported to metrics. The detailed reason is logged.
const (
	triggerAdd    = "add"
	triggerQuery  = "query"
	triggerLedger = "ledger"
	triggerRepair = "repair"
)

// userIndex is the in-memory form of a user's artifacts.
type userIndex struct {
	chunks  []domain.Chunk
	vectors driven.VectorIndex
	ledger  domain.Ledger
}

// IndexManager keeps each user's vector index, chunk store and ledger
// consistent. Callers must hold the user's lock; IndexManager itself does
// no locking.
//
// Every mutation computes its complete new state in memory before writing
// anything, and writes artifacts in the order vectors, chunks, ledger.
type IndexManager struct {
	store     driven.IndexStore
	factory   driven.VectorIndexFactory
	embedder  driven.EmbeddingService
	extractor driven.NormaliserRegistry
	pipeline  driven.PostProcessorPipeline
	pool      *workerPool
	metrics   driven.Metrics
	now       func() time.Time
}

// NewIndexManager creates an index manager.
func NewIndexManager(
	store driven.IndexStore,
	factory driven.VectorIndexFactory,
	embedder driven.EmbeddingService,
	extractor driven.NormaliserRegistry,
	pipeline driven.PostProcessorPipeline,
	workers int,
) *IndexManager {
	return &IndexManager{
		store:     store,
		factory:   factory,
		embedder:  embedder,
		extractor: extractor,
		pipeline:  pipeline,
		pool:      newWorkerPool(workers),
		metrics:   nopMetrics{},
		now:       time.Now,
	}
}

// SetMetrics sets the metrics sink.
func (m *IndexManager) SetMetrics(metrics driven.Metrics) {
	if metrics != nil {
		m.metrics = metrics
	}
}

// AddDocument chunks content and adds it to the user's index.
//
// A document that yields no chunks is skipped without touching storage.
// When the persisted index is missing, corrupt or out of step with the
// chunk store, the index is rebuilt from the recoverable chunks plus the
// new ones instead of appended to. Uploading a filename already in the
// ledger replaces it through a ledger-driven rebuild.
func (m *IndexManager) AddDocument(ctx context.Context, userID, filename string, content []byte) (*domain.IngestResult, error) {
	logger.Section("Add Document")
	logger.Debug("User: %s, file: %s (%d bytes)", userID, filename, len(content))

	chunks, err := m.chunk(ctx, filename, content)
	if errors.Is(err, domain.ErrExtractionFailed) {
		logger.Info("Skipping %s: %v", filename, err)
		return &domain.IngestResult{
			Filename: filename,
			Status:   domain.IngestSkipped,
			Reason:   err.Error(),
		}, nil
	}
	if err != nil {
		return nil, err
	}

	ledger, err := m.LoadLedger(ctx, userID)
	if err != nil {
		return nil, err
	}
	entry := domain.LedgerEntry{Filename: filename, ChunkCount: len(chunks), UploadedAt: m.now()}

	if _, exists := ledger.Find(filename); exists {
		logger.Debug("%s already indexed, replacing through rebuild", filename)
		next := make(domain.Ledger, 0, len(ledger))
		for _, e := range ledger {
			if e.Filename == filename {
				e.UploadedAt = entry.UploadedAt
			}
			next = append(next, e)
		}
		return m.addByRebuild(ctx, userID, filename, content, next, "replace")
	}

	existing, reason := m.loadForAppend(ctx, userID, ledger)
	switch {
	case existing == nil:
		// Chunk store is unrecoverable: restore from sources.
		return m.addByRebuild(ctx, userID, filename, content, append(ledger, entry), reason)

	case reason != "":
		logger.Warn("Rebuilding index for %s: %s", userID, reason)
		all := append(append([]domain.Chunk{}, existing.chunks...), chunks...)
		idx, err := m.buildIndex(ctx, renumber(all))
		if err != nil {
			return nil, &domain.IndexError{Op: "add", UserID: userID, Err: err}
		}
		if err := m.store.SaveSource(ctx, userID, filename, bytesReader(content)); err != nil {
			return nil, fmt.Errorf("save source: %w", err)
		}
		if err := m.persist(ctx, userID, idx, append(ledger, entry)); err != nil {
			return nil, err
		}
		m.metrics.Rebuilt(triggerAdd)
		return &domain.IngestResult{Filename: filename, Status: domain.IngestIndexed, ChunkCount: len(chunks), Rebuilt: true}, nil
	}

	vectors, err := m.embed(ctx, contents(chunks))
	if err != nil {
		return nil, &domain.IndexError{Op: "add", UserID: userID, Err: err}
	}
	if existing.vectors == nil {
		if existing.vectors, err = m.factory.New(dimensionsOf(m.embedder, vectors)); err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	}
	if err := existing.vectors.Add(vectors); err != nil {
		return nil, fmt.Errorf("append vectors: %w", err)
	}
	existing.chunks = renumber(append(existing.chunks, chunks...))

	if err := m.store.SaveSource(ctx, userID, filename, bytesReader(content)); err != nil {
		return nil, fmt.Errorf("save source: %w", err)
	}
	if err := m.persist(ctx, userID, existing, append(ledger, entry)); err != nil {
		return nil, err
	}

	logger.Debug("Appended %d chunks, index now has %d rows", len(chunks), existing.vectors.Len())
	return &domain.IngestResult{Filename: filename, Status: domain.IngestIndexed, ChunkCount: len(chunks)}, nil
}

// addByRebuild indexes a document by rebuilding the whole user from ledger,
// reading filename's bytes from content instead of storage.
func (m *IndexManager) addByRebuild(
	ctx context.Context, userID, filename string, content []byte, ledger domain.Ledger, reason string,
) (*domain.IngestResult, error) {
	logger.Warn("Rebuilding index for %s from ledger: %s", userID, reason)
	rebuilt, err := m.rebuild(ctx, userID, ledger, map[string][]byte{filename: content})
	if err != nil {
		return nil, err
	}
	if err := m.store.SaveSource(ctx, userID, filename, bytesReader(content)); err != nil {
		return nil, fmt.Errorf("save source: %w", err)
	}
	if err := m.persist(ctx, userID, rebuilt, rebuilt.ledger); err != nil {
		return nil, err
	}
	m.metrics.Rebuilt(triggerAdd)

	entry, _ := rebuilt.ledger.Find(filename)
	return &domain.IngestResult{
		Filename:   filename,
		Status:     domain.IngestIndexed,
		ChunkCount: entry.ChunkCount,
		Rebuilt:    true,
	}, nil
}

// loadForAppend loads the current index for an append. A nil vector index
// with an empty reason means the user has no index yet. A non-empty reason
// means the loaded state cannot be appended to and must be rebuilt from
// the returned chunks. A nil result means the chunk store itself is lost
// while the ledger still references documents.
func (m *IndexManager) loadForAppend(ctx context.Context, userID string, ledger domain.Ledger) (*userIndex, string) {
	chunks, err := m.store.LoadChunks(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		if len(ledger) > 0 {
			return nil, "chunk store missing"
		}
		chunks = nil
	case err != nil:
		logger.Warn("Chunk store for %s unreadable: %v", userID, err)
		if len(ledger) > 0 {
			return nil, "chunk store unreadable"
		}
		chunks = nil
	}

	idx := &userIndex{chunks: chunks, ledger: ledger}
	vectors, reason := m.loadVectors(ctx, userID, len(chunks))
	if reason != "" {
		if len(chunks) == 0 {
			// Nothing to recover: start a fresh index.
			return idx, ""
		}
		return idx, reason
	}
	idx.vectors = vectors
	return idx, ""
}

// loadVectors loads and validates the persisted vector index against the
// expected row count. A non-empty reason describes why it is unusable.
func (m *IndexManager) loadVectors(ctx context.Context, userID string, rows int) (driven.VectorIndex, string) {
	data, err := m.store.LoadVectors(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, "vector index missing"
	}
	if err != nil {
		return nil, fmt.Sprintf("vector index unreadable: %v", err)
	}
	vectors, err := m.factory.Load(data)
	if err != nil {
		return nil, fmt.Sprintf("vector index corrupt: %v", err)
	}
	if d := m.embedder.Dimensions(); d > 0 && vectors.Dimensions() != d {
		return nil, fmt.Sprintf("vector dimension %d, embedder produces %d", vectors.Dimensions(), d)
	}
	if vectors.Len() != rows {
		return nil, fmt.Sprintf("%d vectors for %d chunks", vectors.Len(), rows)
	}
	return vectors, ""
}

// LoadForQuery returns the user's index ready for search, repairing the
// vector index from the chunk store when it is missing, corrupt or
// mismatched. A nil index with a reason means retrieval must be skipped.
func (m *IndexManager) LoadForQuery(ctx context.Context, userID string) (*userIndex, string) {
	chunks, err := m.store.LoadChunks(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, "no documents indexed"
	}
	if err != nil {
		logger.Warn("Chunk store for %s unreadable, answering without context: %v", userID, err)
		return nil, "chunk store unavailable"
	}
	if len(chunks) == 0 {
		return nil, "no documents indexed"
	}

	vectors, reason := m.loadVectors(ctx, userID, len(chunks))
	if reason == "" {
		return &userIndex{chunks: chunks, vectors: vectors}, ""
	}

	logger.Warn("Repairing vector index for %s: %s", userID, reason)
	idx, err := m.buildIndex(ctx, chunks)
	if err != nil {
		logger.Warn("Repair failed for %s, answering without context: %v", userID, err)
		return nil, "index repair failed"
	}
	data, err := idx.vectors.MarshalBinary()
	if err == nil {
		err = m.store.SaveVectors(ctx, userID, data)
	}
	if err != nil {
		logger.Warn("Persisting repaired index for %s failed: %v", userID, err)
	}
	m.metrics.Rebuilt(triggerQuery)
	return idx, ""
}

// DeleteDocument removes filename and rebuilds the user's index from the
// remaining ledger entries. The new state is built in memory first; when
// that fails the ledger, sources and index are left as they were.
func (m *IndexManager) DeleteDocument(ctx context.Context, userID, filename string) (*domain.RemoveResult, error) {
	logger.Section("Delete Document")
	logger.Debug("User: %s, file: %s", userID, filename)

	ledger, err := m.LoadLedger(ctx, userID)
	if err != nil {
		return nil, err
	}
	if _, ok := ledger.Find(filename); !ok {
		return nil, fmt.Errorf("document %s: %w", filename, domain.ErrNotFound)
	}

	rebuilt, err := m.rebuild(ctx, userID, ledger.Without(filename), nil)
	if err != nil {
		return nil, err
	}
	if err := m.commit(ctx, userID, rebuilt); err != nil {
		return nil, err
	}
	if err := m.store.RemoveSource(ctx, userID, filename); err != nil {
		logger.Warn("Could not remove %s: %v", filename, err)
	}

	return &domain.RemoveResult{
		Filename:           filename,
		RemainingDocuments: len(rebuilt.ledger),
		RemainingChunks:    len(rebuilt.chunks),
	}, nil
}

// RebuildFromLedger re-extracts every file in ledger and replaces the
// user's artifacts with the result. When nothing remains the vector and
// chunk artifacts are deleted. On failure persisted state is untouched.
func (m *IndexManager) RebuildFromLedger(ctx context.Context, userID string, ledger domain.Ledger) (*userIndex, error) {
	rebuilt, err := m.rebuild(ctx, userID, ledger, nil)
	if err != nil {
		return nil, err
	}
	if err := m.commit(ctx, userID, rebuilt); err != nil {
		return nil, err
	}
	return rebuilt, nil
}

// commit replaces the user's artifacts with a rebuilt index, or clears
// them when the rebuild left no chunks. The ledger is written last.
func (m *IndexManager) commit(ctx context.Context, userID string, rebuilt *userIndex) error {
	if len(rebuilt.chunks) == 0 {
		logger.Debug("No documents left for %s, clearing index", userID)
		if err := m.store.ClearIndex(ctx, userID); err != nil {
			return fmt.Errorf("clear index: %w", err)
		}
		if err := m.store.SaveLedger(ctx, userID, rebuilt.ledger); err != nil {
			return fmt.Errorf("save ledger: %w", err)
		}
		return nil
	}
	if err := m.persist(ctx, userID, rebuilt, rebuilt.ledger); err != nil {
		return err
	}
	m.metrics.Rebuilt(triggerLedger)
	return nil
}

// persist writes vectors, chunks and ledger in that order.
func (m *IndexManager) persist(ctx context.Context, userID string, idx *userIndex, ledger domain.Ledger) error {
	data, err := idx.vectors.MarshalBinary()
	if err != nil {
		return fmt.Errorf("encode vectors: %w", err)
	}
	if err := m.store.SaveVectors(ctx, userID, data); err != nil {
		return fmt.Errorf("save vectors: %w", err)
	}
	if err := m.store.SaveChunks(ctx, userID, idx.chunks); err != nil {
		return fmt.Errorf("save chunks: %w", err)
	}
	if err := m.store.SaveLedger(ctx, userID, ledger); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	idx.ledger = ledger
	return nil
}
