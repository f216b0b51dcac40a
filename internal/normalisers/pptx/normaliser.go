package pptx

import (
	"archive/zip"
	"context"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers/ooxml"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var slidePart = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Normaliser handles PPTX presentations.
type Normaliser struct{}

// New creates a new PPTX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise extracts the text of every slide in slide order. Each text
// paragraph becomes one line.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	pkg, err := ooxml.Open(raw.Content)
	if err != nil {
		return nil, err
	}

	names := slideNames(pkg)

	var lines []string
	for _, name := range names {
		data, err := ooxml.ReadPart(pkg, name)
		if err != nil {
			return nil, err
		}
		paragraphs, err := ooxml.Paragraphs(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		lines = append(lines, paragraphs...)
	}

	doc := raw.NewDocument(strings.TrimSpace(strings.Join(lines, "\n")), "pptx")
	if title := ooxml.CoreTitle(pkg); title != "" {
		doc.Title = title
	}
	doc.Metadata["slides"] = len(names)

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}

// slideNames returns the slide part names ordered by slide number.
func slideNames(pkg *zip.Reader) []string {
	type slide struct {
		num  int
		name string
	}
	var slides []slide
	for _, f := range pkg.File {
		m := slidePart.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		num, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slide{num: num, name: f.Name})
	}
	slices.SortFunc(slides, func(a, b slide) int { return a.num - b.num })

	names := make([]string, len(slides))
	for i, s := range slides {
		names[i] = s.name
	}
	return names
}
