package domain

// IngestStatus describes the outcome of an ingest.
type IngestStatus string

// Ingest outcomes.
const (
	// IngestIndexed means the document's chunks were added to the index.
	IngestIndexed IngestStatus = "indexed"

	// IngestSkipped means the document produced no chunks and nothing was written.
	IngestSkipped IngestStatus = "skipped"
)

// IngestResult is the typed outcome of adding a document.
type IngestResult struct {
	// Filename is the ingested document.
	Filename string

	// Status is the outcome.
	Status IngestStatus

	// ChunkCount is the number of chunks produced by the document.
	ChunkCount int

	// Rebuilt is true when the whole index was rebuilt rather than appended.
	Rebuilt bool

	// Reason explains a skipped document.
	Reason string
}

// RemoveResult is the typed outcome of deleting a document.
type RemoveResult struct {
	// Filename is the removed document.
	Filename string

	// RemainingDocuments is the ledger size after removal.
	RemainingDocuments int

	// RemainingChunks is the chunk count after the rebuild.
	RemainingChunks int
}

// RepairReport describes what a consistency check found and did.
type RepairReport struct {
	// UserID is the checked user.
	UserID string

	// Problems lists detected inconsistencies. Empty means healthy.
	Problems []string

	// Rebuilt is true when artifacts were regenerated.
	Rebuilt bool

	// Chunks is the chunk count after the repair.
	Chunks int
}

// Healthy reports whether no problems were found.
func (r RepairReport) Healthy() bool {
	return len(r.Problems) == 0
}
