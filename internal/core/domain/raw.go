package domain

import (
	"path/filepath"
	"strings"
)

// RawDocument represents the opaque bytes of an uploaded file.
// It is the input to normalisation.
type RawDocument struct {
	// Filename is the original upload name.
	Filename string

	// MIMEType is the content type (e.g., "application/pdf").
	MIMEType string

	// Content is the raw bytes.
	Content []byte

	// Metadata contains caller-supplied key-value pairs.
	Metadata map[string]any
}

// NewDocument builds the extracted document for raw. Title defaults to the
// filename without its extension; metadata is copied and tagged with the
// MIME type and format.
func (r *RawDocument) NewDocument(content, format string) Document {
	meta := make(map[string]any, len(r.Metadata)+2)
	for k, v := range r.Metadata {
		meta[k] = v
	}
	meta["mime_type"] = r.MIMEType
	if format != "" {
		meta["format"] = format
	}

	title := filepath.Base(r.Filename)
	title = strings.TrimSuffix(title, filepath.Ext(title))

	return Document{
		Filename: r.Filename,
		MIMEType: r.MIMEType,
		Title:    title,
		Content:  content,
		Metadata: meta,
	}
}
