package normalisers

import (
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/normalisers/delimited"
	"github.com/custodia-labs/docqa/internal/normalisers/docx"
	"github.com/custodia-labs/docqa/internal/normalisers/markdown"
	"github.com/custodia-labs/docqa/internal/normalisers/pdf"
	"github.com/custodia-labs/docqa/internal/normalisers/plaintext"
	"github.com/custodia-labs/docqa/internal/normalisers/pptx"
	"github.com/custodia-labs/docqa/internal/normalisers/xlsx"
)

// NewDefaultRegistry returns a registry with every built-in normaliser.
// PDF and spreadsheet extraction needs a UniDoc license key. Without one
// those types are still recognised but fail with ErrLicenseRequired.
func NewDefaultRegistry(settings domain.ExtractionSettings) (*Registry, error) {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(delimited.New())
	r.Register(docx.New())
	r.Register(pptx.New())

	if settings.LicenseKey == "" {
		r.Register(&unlicensed{format: "PDF", types: []string{MIMEPDF}})
		r.Register(&unlicensed{format: "Excel", types: []string{MIMEXLSX}})
		return r, nil
	}

	if err := pdf.SetLicense(settings.LicenseKey); err != nil {
		return nil, err
	}
	if err := xlsx.SetLicense(settings.LicenseKey); err != nil {
		return nil, err
	}
	r.Register(xlsx.New())
	r.Register(pdf.New())
	return r, nil
}
