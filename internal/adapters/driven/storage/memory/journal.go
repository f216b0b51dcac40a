package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Journal implements the interface.
var _ driven.Journal = (*Journal)(nil)

// Journal is an in-memory implementation of driven.Journal.
type Journal struct {
	mu  sync.Mutex
	ops []domain.Operation
	now func() time.Time
}

// NewJournal creates an empty journal.
func NewJournal() *Journal {
	return &Journal{now: time.Now}
}

// Begin records a started operation.
func (j *Journal) Begin(_ context.Context, op domain.Operation) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	op.Status = domain.OpStarted
	if op.StartedAt.IsZero() {
		op.StartedAt = j.now()
	}
	j.ops = append(j.ops, op)
	return nil
}

// Finish marks an operation as finished.
func (j *Journal) Finish(_ context.Context, id string, opErr error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	for i := range j.ops {
		if j.ops[i].ID != id {
			continue
		}
		j.ops[i].FinishedAt = j.now()
		j.ops[i].Status = domain.OpSucceeded
		if opErr != nil {
			j.ops[i].Status = domain.OpFailed
			j.ops[i].Error = opErr.Error()
		}
		return nil
	}
	return fmt.Errorf("operation %s: %w", id, domain.ErrNotFound)
}

// Unfinished returns operations still in the started state.
func (j *Journal) Unfinished(_ context.Context) ([]domain.Operation, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []domain.Operation
	for _, op := range j.ops {
		if op.Status == domain.OpStarted {
			out = append(out, op)
		}
	}
	return out, nil
}

// Recent returns the latest operations for a user, newest first.
func (j *Journal) Recent(_ context.Context, userID string, limit int) ([]domain.Operation, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	var out []domain.Operation
	for _, op := range j.ops {
		if op.UserID == userID {
			out = append(out, op)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].StartedAt.After(out[b].StartedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op.
func (j *Journal) Close() error {
	return nil
}
