package plaintext

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const bom = "\uFEFF"

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/plain"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise decodes the document as UTF-8. A leading byte order mark is
// dropped and CRLF line endings become LF. Invalid UTF-8 is rejected.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if !utf8.Valid(raw.Content) {
		return nil, fmt.Errorf("%s is not valid UTF-8: %w", raw.Filename, domain.ErrInvalidInput)
	}

	content := strings.TrimPrefix(string(raw.Content), bom)
	content = strings.ReplaceAll(content, "\r\n", "\n")

	return &driven.NormaliseResult{
		Document: raw.NewDocument(content, "text"),
	}, nil
}
