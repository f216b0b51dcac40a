package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// rebuild re-extracts every ledger entry and builds a complete new index in
// memory. Entries whose source is gone or which now yield no chunks are
// dropped; surviving entries keep their upload time and get fresh chunk
// counts. overrides supplies file contents that are not in storage yet.
//
// It returns ErrRebuildFailed when sources were present but produced no
// chunks, and ErrEmbeddingFailed when embedding fails. Nothing is written.
func (m *IndexManager) rebuild(
	ctx context.Context, userID string, ledger domain.Ledger, overrides map[string][]byte,
) (*userIndex, error) {
	logger.Section("Rebuild From Ledger")
	logger.Debug("User: %s, %d ledger entries", userID, len(ledger))

	var (
		all     []domain.Chunk
		next    = make(domain.Ledger, 0, len(ledger))
		present int
	)
	for _, entry := range ledger {
		content, ok := overrides[entry.Filename]
		if !ok {
			data, err := m.store.ReadSource(ctx, userID, entry.Filename)
			if err != nil {
				logger.Warn("Dropping %s from ledger: %v", entry.Filename, err)
				continue
			}
			content = data
		}
		present++

		chunks, err := m.chunk(ctx, entry.Filename, content)
		if errors.Is(err, domain.ErrExtractionFailed) {
			logger.Warn("Dropping %s from ledger: %v", entry.Filename, err)
			continue
		}
		if err != nil {
			return nil, &domain.IndexError{Op: "rebuild", UserID: userID, Err: err}
		}

		entry.ChunkCount = len(chunks)
		next = append(next, entry)
		all = append(all, chunks...)
	}

	if len(all) == 0 {
		if present > 0 {
			return nil, &domain.IndexError{
				Op:     "rebuild",
				UserID: userID,
				Err:    fmt.Errorf("%d source files yielded no chunks: %w", present, domain.ErrRebuildFailed),
			}
		}
		return &userIndex{ledger: next}, nil
	}

	idx, err := m.buildIndex(ctx, renumber(all))
	if err != nil {
		return nil, &domain.IndexError{Op: "rebuild", UserID: userID, Err: err}
	}
	idx.ledger = next
	logger.Debug("Rebuilt %d chunks from %d documents", len(all), len(next))
	return idx, nil
}

// buildIndex embeds chunks and returns a fresh index over them.
func (m *IndexManager) buildIndex(ctx context.Context, chunks []domain.Chunk) (*userIndex, error) {
	vectors, err := m.embed(ctx, contents(chunks))
	if err != nil {
		return nil, err
	}
	idx, err := m.factory.New(dimensionsOf(m.embedder, vectors))
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := idx.Add(vectors); err != nil {
		return nil, fmt.Errorf("add vectors: %w", err)
	}
	return &userIndex{chunks: chunks, vectors: idx}, nil
}

// chunk extracts and chunks one file. Unsupported formats and empty text
// are reported as ErrExtractionFailed.
func (m *IndexManager) chunk(ctx context.Context, filename string, content []byte) ([]domain.Chunk, error) {
	res, err := m.extractor.Normalise(ctx, &domain.RawDocument{Filename: filename, Content: content})
	if err != nil {
		return nil, fmt.Errorf("%s: %v: %w", filename, err, domain.ErrExtractionFailed)
	}
	if strings.TrimSpace(res.Document.Content) == "" {
		return nil, fmt.Errorf("%s: no text: %w", filename, domain.ErrExtractionFailed)
	}
	res.Document.Filename = filename

	chunks, err := m.pipeline.Process(ctx, &res.Document)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", filename, err)
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%s: no chunks: %w", filename, domain.ErrExtractionFailed)
	}
	return chunks, nil
}

// embed embeds texts in batches on the worker pool, preserving order.
func (m *IndexManager) embed(ctx context.Context, texts []string) ([][]float32, error) {
	start := time.Now()
	out := make([][]float32, len(texts))
	err := m.pool.forEachBatch(ctx, len(texts), embedBatchSize, func(ctx context.Context, from, to int) error {
		vectors, err := m.embedder.EmbedBatch(ctx, texts[from:to])
		if err != nil {
			return err
		}
		if len(vectors) != to-from {
			return fmt.Errorf("got %d embeddings for %d texts", len(vectors), to-from)
		}
		copy(out[from:to], vectors)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, domain.ErrEmbeddingFailed)
	}
	m.metrics.ObserveEmbedding(time.Since(start))
	return out, nil
}

// dimensionsOf prefers the embedder's declared size and falls back to the
// size of the vectors it produced.
func dimensionsOf(embedder driven.EmbeddingService, vectors [][]float32) int {
	if d := embedder.Dimensions(); d > 0 {
		return d
	}
	if len(vectors) > 0 {
		return len(vectors[0])
	}
	return domain.DefaultDimensions
}

// renumber sets each chunk's position to its index in the slice.
func renumber(chunks []domain.Chunk) []domain.Chunk {
	for i := range chunks {
		chunks[i].Position = i
	}
	return chunks
}

func contents(chunks []domain.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

func bytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}

// nopMetrics discards all measurements.
type nopMetrics struct{}

func (nopMetrics) IngestCompleted(domain.IngestStatus) {}
func (nopMetrics) Rebuilt(string) {}
func (nopMetrics) QueryServed(domain.Grounding) {}
func (nopMetrics) ObserveEmbedding(time.Duration) {}
