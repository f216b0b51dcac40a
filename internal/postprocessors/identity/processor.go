// Package identity assigns stable identifiers to chunks.
package identity

import (
	"context"
	"strconv"

	"github.com/google/uuid"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// namespace scopes chunk identifiers generated by this processor.
var namespace = uuid.MustParse("6f1c2b8e-3d5a-4f0e-9a47-2c1b0d9e8f73")

// Processor sets Chunk.ID to a name-based UUID of source, position and
// content, so re-chunking the same file yields the same identifiers.
type Processor struct{}

// New creates an identity processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "identity"
}

// Process assigns identifiers to chunks that lack one.
func (p *Processor) Process(_ context.Context, _ *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	for i := range chunks {
		if chunks[i].ID == "" {
			chunks[i].ID = ChunkID(chunks[i])
		}
	}
	return chunks, nil
}

// ChunkID returns the stable identifier for a chunk.
func ChunkID(c domain.Chunk) string {
	name := c.Source + "\x00" + strconv.Itoa(c.Position) + "\x00" + c.Content
	return uuid.NewSHA1(namespace, []byte(name)).String()
}
