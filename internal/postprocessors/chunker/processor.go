// Package chunker provides a recursive character text splitter.
//
// Text is split on the highest-priority separator it contains, pieces
// shorter than the chunk size are merged greedily, and oversize pieces are
// split again with the remaining separators. Consecutive chunks overlap by
// roughly the configured number of characters. Lengths are counted in runes.
package chunker

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = domain.DefaultChunkSize

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = domain.DefaultChunkOverlap

// DefaultSeparators are tried in order; paragraph breaks first, spaces last.
var DefaultSeparators = []string{"\n\n", "\n", ".", "!", "?", " "}

// Processor splits document content into overlapping chunks.
// It implements the PostProcessor interface.
type Processor struct {
	chunkSize  int
	overlap    int
	separators []string
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// WithSeparators replaces the separator priority list.
func WithSeparators(seps ...string) Option {
	return func(p *Processor) {
		if len(seps) > 0 {
			p.separators = seps
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize:  DefaultChunkSize,
		overlap:    DefaultChunkOverlap,
		separators: DefaultSeparators,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
// Positions are relative to the document.
func (p *Processor) Process(_ context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	texts := p.Split(doc.Content)
	if len(texts) == 0 {
		return nil, nil
	}

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			Source:   doc.Filename,
			Content:  text,
			Position: i,
		}
	}
	return chunks, nil
}

// Split returns the chunk texts for text. It is pure and deterministic.
func (p *Processor) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return p.split(text, p.separators)
}

func (p *Processor) split(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			rest = separators[i+1:]
			break
		}
	}

	var out, good []string
	for _, piece := range splitKeepingSeparator(text, separator) {
		if runeLen(piece) < p.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, p.merge(good)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, p.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, p.merge(good)...)
	}
	return out
}

// merge packs pieces into chunks of at most chunkSize runes. After each
// emitted chunk the window is trimmed from the front until it holds at most
// overlap runes, so the next chunk repeats the tail of the previous one.
func (p *Processor) merge(pieces []string) []string {
	var (
		out    []string
		window []string
		total  int
	)
	for _, piece := range pieces {
		n := runeLen(piece)
		if total+n > p.chunkSize && len(window) > 0 {
			if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
				out = append(out, chunk)
			}
			for total > p.overlap || (total+n > p.chunkSize && total > 0) {
				total -= runeLen(window[0])
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += n
	}
	if chunk := strings.TrimSpace(strings.Join(window, "")); chunk != "" {
		out = append(out, chunk)
	}
	return out
}

// splitKeepingSeparator splits text on sep and re-attaches each separator
// to the start of the piece that follows it. Empty pieces are dropped.
func splitKeepingSeparator(text, sep string) []string {
	if sep == "" {
		out := make([]string, 0, len(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}
	parts := strings.Split(text, sep)
	out := make([]string, 0, len(parts))
	if parts[0] != "" {
		out = append(out, parts[0])
	}
	for _, part := range parts[1:] {
		out = append(out, sep+part)
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
