package driven

import (
	"context"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// NormaliserRegistry selects the appropriate normaliser for a document.
// It maintains a priority-ordered list of normalisers and dispatches
// on MIME type, detecting it from the filename when absent.
type NormaliserRegistry interface {
	// Normalise extracts text using the best matching normaliser.
	// Returns an error wrapping domain.ErrUnsupportedType when none matches.
	Normalise(ctx context.Context, raw *domain.RawDocument) (*NormaliseResult, error)

	// Register adds a normaliser to the registry.
	Register(normaliser Normaliser)

	// SupportedMIMETypes returns all MIME types that can be normalised.
	SupportedMIMETypes() []string
}
