// Package delimited extracts text from CSV and TSV uploads.
package delimited

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

const (
	mimeCSV = "text/csv"
	mimeTSV = "text/tab-separated-values"

	// CellSeparator joins the cells of one row.
	CellSeparator = " | "
)

// Normaliser handles comma and tab separated files.
type Normaliser struct{}

// New creates a new delimited-text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{mimeCSV, mimeTSV}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise renders every data row as its cells joined by " | ", one row
// per line. The first record is the header and is not rendered.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	comma, format := ',', "csv"
	if raw.MIMEType == mimeTSV {
		comma, format = '\t', "tsv"
	}

	records, err := readRecords(raw.Content, comma)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", raw.Filename, err)
	}

	doc := raw.NewDocument(RenderRows(records), format)
	if len(records) > 0 {
		doc.Metadata["rows"] = len(records) - 1
	}

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}

func readRecords(content []byte, comma rune) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(content, []byte("\xef\xbb\xbf"))))
	r.Comma = comma
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, errors.Join(domain.ErrInvalidInput, err)
		}
		records = append(records, rec)
	}
}

// RenderRows renders records after the header row, one line per record.
// Short rows are padded with empty cells to the header width.
func RenderRows(records [][]string) string {
	if len(records) < 2 {
		return ""
	}
	width := len(records[0])

	lines := make([]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		for len(rec) < width {
			rec = append(rec, "")
		}
		lines = append(lines, strings.Join(rec, CellSeparator))
	}
	return strings.Join(lines, "\n")
}
