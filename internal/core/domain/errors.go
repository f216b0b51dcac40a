package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates no normaliser handles the file type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answers cannot be generated without it.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// Index Errors.

	// ErrExtractionFailed indicates a document produced no usable text.
	// It is a soft outcome: the document is skipped and nothing is written.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrEmbeddingFailed indicates the embedding provider failed.
	// The operation is aborted before any artifact is written.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrIndexCorrupt indicates the persisted vector index could not be read.
	ErrIndexCorrupt = errors.New("index corrupt")

	// ErrIndexMismatch indicates the vector count differs from the chunk count.
	ErrIndexMismatch = errors.New("index and chunk store disagree")

	// ErrRebuildFailed indicates a rebuild produced no chunks although
	// source files were present. Prior artifacts are left untouched.
	ErrRebuildFailed = errors.New("rebuild failed")

	// ErrGenerationFailed indicates the generation stream broke.
	ErrGenerationFailed = errors.New("generation failed")
)

// IndexError carries the operation and user for an index failure.
// Unwrap exposes the underlying sentinel for errors.Is.
type IndexError struct {
	// Op is the operation that failed (e.g. "add", "rebuild").
	Op string

	// UserID is the affected user.
	UserID string

	// Err is the underlying error.
	Err error
}

// Error implements error.
func (e *IndexError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.UserID, e.Err)
}

// Unwrap returns the underlying error.
func (e *IndexError) Unwrap() error {
	return e.Err
}
