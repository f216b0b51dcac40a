// Package ooxml reads the parts of Office Open XML packages shared by the
// DOCX and PPTX normalisers.
package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// ErrPartNotFound is returned when a package has no part with the requested name.
var ErrPartNotFound = errors.New("ooxml: part not found")

// Open reads content as a zip package.
func Open(content []byte) (*zip.Reader, error) {
	r, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open package: %w", domain.ErrInvalidInput)
	}
	return r, nil
}

// ReadPart returns the bytes of the named part.
func ReadPart(r *zip.Reader, name string) ([]byte, error) {
	for _, file := range r.File {
		if file.Name != name {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, domain.ErrInvalidInput)
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, domain.ErrInvalidInput)
		}
		return data, nil
	}
	return nil, ErrPartNotFound
}

type coreXML struct {
	Title string `xml:"title"`
}

// CoreTitle returns the dc:title from docProps/core.xml, or "" if absent.
func CoreTitle(r *zip.Reader) string {
	data, err := ReadPart(r, "docProps/core.xml")
	if err != nil {
		return ""
	}
	var core coreXML
	if err := xml.Unmarshal(data, &core); err != nil {
		return ""
	}
	return strings.TrimSpace(core.Title)
}

// Paragraphs returns the text of every paragraph (p) element in document
// order. Text is taken from t elements; tab and br become "\t" and "\n".
// Nested paragraphs are emitted on their own, before the enclosing one.
func Paragraphs(data []byte) ([]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var (
		out    []string
		stack  []*strings.Builder
		inText bool
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", domain.ErrInvalidInput)
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				stack = append(stack, &strings.Builder{})
			case "t":
				inText = len(stack) > 0
			case "tab":
				if len(stack) > 0 {
					stack[len(stack)-1].WriteByte('\t')
				}
			case "br":
				if len(stack) > 0 {
					stack[len(stack)-1].WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "p":
				if len(stack) > 0 {
					out = append(out, stack[len(stack)-1].String())
					stack = stack[:len(stack)-1]
				}
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				stack[len(stack)-1].Write(el)
			}
		}
	}
}
