package docx

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers/ooxml"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const documentPart = "word/document.xml"

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the paragraph text of a DOCX document, one paragraph
// per line. A package without word/document.xml yields empty content.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	pkg, err := ooxml.Open(raw.Content)
	if err != nil {
		return nil, err
	}

	var content string
	data, err := ooxml.ReadPart(pkg, documentPart)
	switch {
	case errors.Is(err, ooxml.ErrPartNotFound):
	case err != nil:
		return nil, err
	default:
		paragraphs, err := ooxml.Paragraphs(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", documentPart, err)
		}
		content = strings.TrimSpace(strings.Join(paragraphs, "\n"))
	}

	doc := raw.NewDocument(content, "docx")
	if title := ooxml.CoreTitle(pkg); title != "" {
		doc.Title = title
	} else {
		doc.Title = strings.NewReplacer("_", " ", "-", " ").Replace(doc.Title)
	}

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}
