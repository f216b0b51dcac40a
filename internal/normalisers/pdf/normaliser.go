// Package pdf extracts text from PDF documents with UniDoc's unipdf.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const maxTitleLen = 200

// SetLicense registers a metered UniDoc key for PDF parsing.
func SetLicense(key string) error {
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("unipdf license: %w", err)
	}
	return nil
}

// PageExtractor returns the text of each page of a PDF, in page order.
type PageExtractor interface {
	Pages(ctx context.Context, content []byte) ([]string, error)
}

// Normaliser handles PDF documents.
type Normaliser struct {
	extractor PageExtractor
}

// New creates a PDF normaliser backed by unipdf.
func New() *Normaliser {
	return &Normaliser{extractor: unipdfExtractor{}}
}

// NewWithExtractor creates a PDF normaliser with a custom page extractor.
func NewWithExtractor(e PageExtractor) *Normaliser {
	return &Normaliser{extractor: e}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise joins the text of every page with "\n".
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	pages, err := n.extractor.Pages(ctx, raw.Content)
	if err != nil {
		return nil, fmt.Errorf("extract %s: %w", raw.Filename, err)
	}

	content := strings.Join(pages, "\n")
	doc := raw.NewDocument(strings.TrimSpace(content), "pdf")
	doc.Title = extractTitle(content, raw.Filename)
	doc.Metadata["pages"] = len(pages)

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}

// extractTitle uses the first short non-empty line of the text, falling
// back to a readable form of the filename.
func extractTitle(content, filename string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && len(line) < maxTitleLen {
			return line
		}
	}

	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	return strings.NewReplacer("_", " ", "-", " ").Replace(name)
}

type unipdfExtractor struct{}

// Pages skips pages unipdf cannot read rather than failing the document.
func (unipdfExtractor) Pages(ctx context.Context, content []byte) ([]string, error) {
	reader, err := model.NewPdfReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", domain.ErrInvalidInput)
	}

	numPages, err := reader.GetNumPages()
	if err != nil {
		return nil, fmt.Errorf("page count: %w", domain.ErrInvalidInput)
	}

	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page, err := reader.GetPage(i)
		if err != nil {
			continue
		}
		ex, err := extractor.New(page)
		if err != nil {
			continue
		}
		text, err := ex.ExtractText()
		if err != nil {
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
