package normalisers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry dispatches documents to the highest-priority normaliser that
// supports their MIME type.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.Normaliser
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a normaliser, keeping the list ordered by priority.
// Normalisers with equal priority keep registration order.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.normalisers = append(r.normalisers, n)
	sort.SliceStable(r.normalisers, func(i, j int) bool {
		return r.normalisers[i].Priority() > r.normalisers[j].Priority()
	})
}

// Normalise extracts text from raw. When raw.MIMEType is empty it is
// detected from the filename.
func (r *Registry) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}
	if raw.MIMEType == "" {
		detected := *raw
		detected.MIMEType = DetectMIMEType(raw.Filename)
		raw = &detected
	}
	if raw.MIMEType == "" {
		return nil, fmt.Errorf("%s: %w", raw.Filename, domain.ErrUnsupportedType)
	}

	n := r.lookup(raw.MIMEType)
	if n == nil {
		return nil, fmt.Errorf("%s (%s): %w", raw.Filename, raw.MIMEType, domain.ErrUnsupportedType)
	}
	return n.Normalise(ctx, raw)
}

func (r *Registry) lookup(mimeType string) driven.Normaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range r.normalisers {
		for _, t := range n.SupportedMIMETypes() {
			if t == mimeType {
				return n
			}
		}
	}
	return nil
}

// SupportedMIMETypes returns every MIME type some normaliser handles,
// sorted and without duplicates.
func (r *Registry) SupportedMIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	var out []string
	for _, n := range r.normalisers {
		for _, t := range n.SupportedMIMETypes() {
			if _, ok := seen[t]; !ok {
				seen[t] = struct{}{}
				out = append(out, t)
			}
		}
	}
	sort.Strings(out)
	return out
}
