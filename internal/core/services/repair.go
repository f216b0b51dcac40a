package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Repair checks a user's ledger, chunk store and vector index against each
// other and regenerates whatever is out of step.
//
//   - ledger unreadable: ledger and index recovered from the uploaded files
//   - ledger empty but artifacts present: artifacts are cleared
//   - chunk store missing or unreadable, or its length disagrees with the
//     ledger's chunk total: full rebuild from the ledger
//   - vector index missing, corrupt or misaligned: vectors rebuilt from the
//     chunk store
func (m *IndexManager) Repair(ctx context.Context, userID string) (*domain.RepairReport, error) {
	logger.Section("Repair")
	report := &domain.RepairReport{UserID: userID}

	ledger, err := m.store.LoadLedger(ctx, userID)
	if errors.Is(err, domain.ErrIndexCorrupt) {
		report.Problems = append(report.Problems, fmt.Sprintf("ledger unreadable: %v", err))
		rebuilt, err := m.recoverLedger(ctx, userID)
		if err != nil {
			return report, err
		}
		report.Rebuilt = true
		report.Chunks = len(rebuilt.chunks)
		return report, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	chunks, chunkErr := m.store.LoadChunks(ctx, userID)

	if len(ledger) == 0 {
		_, vecErr := m.store.LoadVectors(ctx, userID)
		if !errors.Is(chunkErr, domain.ErrNotFound) || !errors.Is(vecErr, domain.ErrNotFound) {
			report.Problems = append(report.Problems, "index artifacts without ledger entries")
			if err := m.store.ClearIndex(ctx, userID); err != nil {
				return nil, fmt.Errorf("clear index: %w", err)
			}
			report.Rebuilt = true
		}
		return report, nil
	}

	switch {
	case errors.Is(chunkErr, domain.ErrNotFound):
		report.Problems = append(report.Problems, "chunk store missing")
	case chunkErr != nil:
		report.Problems = append(report.Problems, fmt.Sprintf("chunk store unreadable: %v", chunkErr))
	case ledger.TotalChunks() != len(chunks):
		report.Problems = append(report.Problems,
			fmt.Sprintf("ledger records %d chunks, chunk store has %d", ledger.TotalChunks(), len(chunks)))
	}
	if len(report.Problems) > 0 {
		rebuilt, err := m.RebuildFromLedger(ctx, userID, ledger)
		if err != nil {
			return report, err
		}
		report.Rebuilt = true
		report.Chunks = len(rebuilt.chunks)
		return report, nil
	}

	report.Chunks = len(chunks)
	if _, reason := m.loadVectors(ctx, userID, len(chunks)); reason != "" {
		report.Problems = append(report.Problems, reason)
		idx, err := m.buildIndex(ctx, chunks)
		if err != nil {
			return report, &domain.IndexError{Op: "repair", UserID: userID, Err: err}
		}
		data, err := idx.vectors.MarshalBinary()
		if err != nil {
			return report, fmt.Errorf("encode vectors: %w", err)
		}
		if err := m.store.SaveVectors(ctx, userID, data); err != nil {
			return report, fmt.Errorf("save vectors: %w", err)
		}
		m.metrics.Rebuilt(triggerRepair)
		report.Rebuilt = true
	}

	if report.Healthy() {
		logger.Debug("Index for %s is consistent (%d chunks)", userID, report.Chunks)
	}
	return report, nil
}

// LoadLedger returns the user's ledger. An unreadable ledger is recovered
// from the uploaded files first.
func (m *IndexManager) LoadLedger(ctx context.Context, userID string) (domain.Ledger, error) {
	ledger, err := m.store.LoadLedger(ctx, userID)
	if errors.Is(err, domain.ErrIndexCorrupt) {
		logger.Warn("Ledger for %s unreadable, recovering from stored files: %v", userID, err)
		rebuilt, err := m.recoverLedger(ctx, userID)
		if err != nil {
			return nil, err
		}
		return rebuilt.ledger, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return ledger, nil
}

// recoverLedger rebuilds the ledger and index from the uploaded files.
// Files keep the order their chunks had in the chunk store; files without
// chunks follow in name order. Upload times are lost and set to now. When
// no file yields text the user is left with an empty ledger.
func (m *IndexManager) recoverLedger(ctx context.Context, userID string) (*userIndex, error) {
	names, err := m.store.ListSources(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	pending := make(map[string]bool, len(names))
	for _, n := range names {
		pending[n] = true
	}

	var ledger domain.Ledger
	now := m.now()
	add := func(name string) {
		if pending[name] {
			ledger = append(ledger, domain.LedgerEntry{Filename: name, UploadedAt: now})
			delete(pending, name)
		}
	}
	if chunks, err := m.store.LoadChunks(ctx, userID); err == nil {
		for _, c := range chunks {
			add(c.Source)
		}
	}
	for _, n := range names {
		add(n)
	}

	rebuilt, err := m.rebuild(ctx, userID, ledger, nil)
	if errors.Is(err, domain.ErrRebuildFailed) {
		logger.Warn("No stored file for %s yields text, starting an empty ledger", userID)
		rebuilt, err = &userIndex{ledger: domain.Ledger{}}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := m.commit(ctx, userID, rebuilt); err != nil {
		return nil, err
	}
	return rebuilt, nil
}
