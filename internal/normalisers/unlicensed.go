package normalisers

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// ErrLicenseRequired is returned for formats whose extraction library
// needs a UniDoc key that was not configured.
var ErrLicenseRequired = errors.New("license key required")

// unlicensed stands in for a UniDoc-backed normaliser when no key is set.
// It fails every document up front so the library never runs in its
// unlicensed mode, which yields no text and writes a banner to stdout.
type unlicensed struct {
	format string
	types  []string
}

// Ensure unlicensed implements the interface.
var _ driven.Normaliser = (*unlicensed)(nil)

func (u *unlicensed) SupportedMIMETypes() []string { return u.types }
func (u *unlicensed) Priority() int                { return 50 }

func (u *unlicensed) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	return nil, fmt.Errorf("%s files need extraction.license_key: %w", u.format, ErrLicenseRequired)
}
