package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// PostProcessor transforms extracted documents into chunks.
// PostProcessors are chained in a pipeline.
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process takes a document and the chunks produced so far.
	// A chunk-creating processor (the chunker) receives nil and returns new chunks.
	Process(ctx context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through all processors in order.
	// Returns the final chunks; positions are relative to the document.
	Process(ctx context.Context, doc *domain.Document) ([]domain.Chunk, error)
}
