package driven

import (
	"context"
	"io"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// IndexStore persists the artifacts of each user's index.
//
// Each artifact is written atomically on its own; there is no transaction
// across artifacts. Loads of artifacts that were never written return an
// error wrapping domain.ErrNotFound. Implementations must confine every
// user to their own namespace.
type IndexStore interface {
	// LoadVectors returns the encoded vector index.
	LoadVectors(ctx context.Context, userID string) ([]byte, error)

	// SaveVectors replaces the encoded vector index.
	SaveVectors(ctx context.Context, userID string, data []byte) error

	// LoadChunks returns the ordered chunk list.
	LoadChunks(ctx context.Context, userID string) ([]domain.Chunk, error)

	// SaveChunks replaces the ordered chunk list.
	SaveChunks(ctx context.Context, userID string, chunks []domain.Chunk) error

	// LoadLedger returns the ledger. A missing ledger is an empty ledger; an
	// unparseable one is an error wrapping domain.ErrIndexCorrupt.
	LoadLedger(ctx context.Context, userID string) (domain.Ledger, error)

	// SaveLedger replaces the ledger.
	SaveLedger(ctx context.Context, userID string, ledger domain.Ledger) error

	// ClearIndex deletes the vector and chunk artifacts.
	ClearIndex(ctx context.Context, userID string) error

	// SaveSource stores an uploaded file, replacing any previous upload
	// with the same name.
	SaveSource(ctx context.Context, userID, filename string, r io.Reader) error

	// ReadSource returns the bytes of an uploaded file.
	ReadSource(ctx context.Context, userID, filename string) ([]byte, error)

	// RemoveSource deletes an uploaded file. Missing files are not an error.
	RemoveSource(ctx context.Context, userID, filename string) error

	// ListSources returns the names of the user's uploaded files, sorted.
	ListSources(ctx context.Context, userID string) ([]string, error)

	// Users lists users that have any stored state.
	Users(ctx context.Context) ([]string, error)
}
