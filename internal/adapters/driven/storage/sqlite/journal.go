package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Journal implements the interface.
var _ driven.Journal = (*Journal)(nil)

// Journal implements driven.Journal on the operations table.
type Journal struct {
	store *Store
}

// Begin records a started operation.
func (j *Journal) Begin(ctx context.Context, op domain.Operation) error {
	if op.StartedAt.IsZero() {
		op.StartedAt = time.Now()
	}
	_, err := j.store.db.ExecContext(ctx, `
		INSERT INTO operations (id, user_id, kind, target, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, op.ID, op.UserID, string(op.Kind), op.Target, string(domain.OpStarted), op.StartedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("inserting operation: %w", err)
	}
	return nil
}

// Finish marks an operation as succeeded or failed.
func (j *Journal) Finish(ctx context.Context, id string, opErr error) error {
	status, msg := domain.OpSucceeded, ""
	if opErr != nil {
		status, msg = domain.OpFailed, opErr.Error()
	}
	res, err := j.store.db.ExecContext(ctx, `
		UPDATE operations SET status = ?, error = ?, finished_at = ? WHERE id = ?
	`, string(status), msg, time.Now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("updating operation: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("operation %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// Unfinished returns operations still in the started state, oldest first.
func (j *Journal) Unfinished(ctx context.Context) ([]domain.Operation, error) {
	rows, err := j.store.db.QueryContext(ctx, `
		SELECT id, user_id, kind, target, status, error, started_at, finished_at
		FROM operations WHERE status = ? ORDER BY started_at
	`, string(domain.OpStarted))
	if err != nil {
		return nil, fmt.Errorf("querying operations: %w", err)
	}
	defer rows.Close()
	return scanOperations(rows)
}

// Recent returns the latest operations for a user, newest first.
func (j *Journal) Recent(ctx context.Context, userID string, limit int) ([]domain.Operation, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.store.db.QueryContext(ctx, `
		SELECT id, user_id, kind, target, status, error, started_at, finished_at
		FROM operations WHERE user_id = ? ORDER BY started_at DESC LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("querying operations: %w", err)
	}
	defer rows.Close()
	return scanOperations(rows)
}

// Close closes the underlying store.
func (j *Journal) Close() error {
	return j.store.Close()
}

func scanOperations(rows *sql.Rows) ([]domain.Operation, error) {
	var ops []domain.Operation
	for rows.Next() {
		var (
			op           domain.Operation
			kind, status string
			started      int64
			finished     sql.NullInt64
		)
		if err := rows.Scan(&op.ID, &op.UserID, &kind, &op.Target, &status, &op.Error, &started, &finished); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		op.Kind = domain.OperationKind(kind)
		op.Status = domain.OperationStatus(status)
		op.StartedAt = time.Unix(0, started)
		if finished.Valid {
			op.FinishedAt = time.Unix(0, finished.Int64)
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating operations: %w", err)
	}
	return ops, nil
}
