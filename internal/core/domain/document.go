package domain

import "time"

// Document is the extracted text of one uploaded file.
// It is the output of normalisation and the input to chunking.
type Document struct {
	// Filename is the original upload name; it identifies the document
	// within a user's ledger.
	Filename string

	// MIMEType is the detected content type.
	MIMEType string

	// Title is a human-readable title when the format carries one.
	Title string

	// Content is the full text after extraction.
	Content string

	// Metadata contains format-specific key-value pairs.
	Metadata map[string]any
}

// Chunk is a bounded span of document text.
//
// Position is the chunk's ordinal in the user's chunk sequence and is the
// only join key with the vector index: row i of the index embeds the chunk
// at position i. ID is stable across rebuilds of the same text and is
// informational only.
type Chunk struct {
	// ID is a stable identifier derived from source and content.
	ID string

	// Source is the filename of the document that produced the chunk.
	Source string

	// Content is the chunk text.
	Content string

	// Position is the ordinal within the user's chunk sequence.
	Position int
}

// LedgerEntry records one uploaded document.
type LedgerEntry struct {
	// Filename is the original upload name.
	Filename string

	// ChunkCount is the number of chunks the document produced when indexed.
	ChunkCount int

	// UploadedAt is when the document was first uploaded.
	// It survives rebuilds.
	UploadedAt time.Time
}

// Ledger is the ordered list of a user's uploaded documents.
// It is authoritative for rebuilds.
type Ledger []LedgerEntry

// TotalChunks returns the sum of chunk counts across entries.
func (l Ledger) TotalChunks() int {
	n := 0
	for _, e := range l {
		n += e.ChunkCount
	}
	return n
}

// Find returns the entry for filename and whether it exists.
func (l Ledger) Find(filename string) (LedgerEntry, bool) {
	for _, e := range l {
		if e.Filename == filename {
			return e, true
		}
	}
	return LedgerEntry{}, false
}

// Without returns a copy of the ledger excluding filename.
func (l Ledger) Without(filename string) Ledger {
	out := make(Ledger, 0, len(l))
	for _, e := range l {
		if e.Filename != filename {
			out = append(out, e)
		}
	}
	return out
}

// Filenames returns the filenames in ledger order.
func (l Ledger) Filenames() []string {
	out := make([]string, len(l))
	for i, e := range l {
		out[i] = e.Filename
	}
	return out
}
