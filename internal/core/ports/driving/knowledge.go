package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// KnowledgeService is the per-user document question-answering entry point.
// Every method is scoped to a single user; users never see each other's data.
type KnowledgeService interface {
	// Ingest stores an uploaded file and adds its chunks to the user's index.
	// A file that yields no text is reported as IngestSkipped, not an error.
	Ingest(ctx context.Context, userID, filename string, r io.Reader) (*domain.IngestResult, error)

	// Prepare runs retrieval for a question and assembles the prompt
	// without generating an answer.
	Prepare(ctx context.Context, userID, question string) (*domain.Prepared, error)

	// Ask answers a question as a stream of fragments.
	Ask(ctx context.Context, userID, question string) (<-chan domain.Fragment, *domain.Retrieval, error)

	// AskText answers a question and returns the aggregated text.
	AskText(ctx context.Context, userID, question string) (string, *domain.Retrieval, error)

	// Remove deletes a document and rebuilds the user's index without it.
	Remove(ctx context.Context, userID, filename string) (*domain.RemoveResult, error)

	// ListDocuments returns the user's ledger.
	ListDocuments(ctx context.Context, userID string) (domain.Ledger, error)

	// Repair checks the user's artifacts and rebuilds them when inconsistent.
	Repair(ctx context.Context, userID string) (*domain.RepairReport, error)

	// Recover repairs every user whose last operation did not finish.
	Recover(ctx context.Context) ([]domain.RepairReport, error)
}
