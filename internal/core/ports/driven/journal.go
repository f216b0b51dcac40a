package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// Journal records the lifecycle of mutating index operations.
// Entries that were begun but never finished mark users whose artifacts
// may be inconsistent after a crash.
type Journal interface {
	// Begin records a started operation.
	Begin(ctx context.Context, op domain.Operation) error

	// Finish marks an operation as succeeded (opErr == nil) or failed.
	Finish(ctx context.Context, id string, opErr error) error

	// Unfinished returns operations still in the started state.
	Unfinished(ctx context.Context) ([]domain.Operation, error)

	// Recent returns the latest operations for a user, newest first.
	Recent(ctx context.Context, userID string, limit int) ([]domain.Operation, error)

	// Close releases resources.
	Close() error
}
