// Package xlsx extracts text from Excel workbooks.
package xlsx

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/unidoc/unioffice/common/license"
	"github.com/unidoc/unioffice/spreadsheet"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/normalisers/delimited"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// SetLicense registers a metered UniDoc key for workbook parsing.
func SetLicense(key string) error {
	if err := license.SetMeteredKey(key); err != nil {
		return fmt.Errorf("unioffice license: %w", err)
	}
	return nil
}

// Normaliser handles XLSX workbooks.
type Normaliser struct{}

// New creates a new XLSX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise renders the first worksheet the same way as CSV: the first row
// is the header, every later row becomes its cells joined by " | ".
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	wb, err := spreadsheet.Read(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("read workbook %s: %w", raw.Filename, domain.ErrInvalidInput)
	}
	defer wb.Close()

	var records [][]string
	sheets := wb.Sheets()
	if len(sheets) > 0 {
		records = sheetRecords(sheets[0])
	}

	doc := raw.NewDocument(delimited.RenderRows(records), "xlsx")
	if len(sheets) > 0 {
		doc.Metadata["sheet"] = sheets[0].Name()
	}

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}

func sheetRecords(sheet spreadsheet.Sheet) [][]string {
	var records [][]string
	for _, row := range sheet.Rows() {
		var rec []string
		for _, cell := range row.Cells() {
			col := columnIndex(cell.Reference())
			if col < 0 {
				continue
			}
			for len(rec) <= col {
				rec = append(rec, "")
			}
			rec[col] = cell.GetString()
		}
		if !blank(rec) {
			records = append(records, rec)
		}
	}
	return records
}

// columnIndex returns the zero-based column of a cell reference such as
// "C7", or -1 if ref has no column letters.
func columnIndex(ref string) int {
	col := 0
	n := 0
	for _, r := range strings.ToUpper(ref) {
		if r < 'A' || r > 'Z' {
			break
		}
		col = col*26 + int(r-'A'+1)
		n++
	}
	if n == 0 {
		return -1
	}
	return col - 1
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
