package normalisers

import (
	"path/filepath"
	"strings"
)

// MIME types of the supported upload formats.
const (
	MIMEPlainText = "text/plain"
	MIMEMarkdown  = "text/markdown"
	MIMECSV       = "text/csv"
	MIMETSV       = "text/tab-separated-values"
	MIMEPDF       = "application/pdf"
	MIMEDOCX      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMEPPTX      = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	MIMEXLSX      = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var extensionTypes = map[string]string{
	".txt":  MIMEPlainText,
	".text": MIMEPlainText,
	".md":   MIMEMarkdown,
	".csv":  MIMECSV,
	".tsv":  MIMETSV,
	".pdf":  MIMEPDF,
	".docx": MIMEDOCX,
	".pptx": MIMEPPTX,
	".xlsx": MIMEXLSX,
}

// DetectMIMEType returns the MIME type for filename's extension, or ""
// when the extension is not a supported format.
func DetectMIMEType(filename string) string {
	return extensionTypes[strings.ToLower(filepath.Ext(filename))]
}

// SupportedExtensions returns the recognised file extensions.
func SupportedExtensions() []string {
	out := make([]string, 0, len(extensionTypes))
	for ext := range extensionTypes {
		out = append(out, ext)
	}
	return out
}
