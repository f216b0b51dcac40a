package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		assert.Equal(t, 800, p.chunkSize)
		assert.Equal(t, 100, p.overlap)
		assert.Equal(t, []string{"\n\n", "\n", ".", "!", "?", " "}, p.separators)
	})

	t.Run("overlap exceeds chunk size", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(150))
		assert.Less(t, p.overlap, p.chunkSize)
	})

	t.Run("zero values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1), WithSeparators())
		assert.Equal(t, DefaultChunkSize, p.chunkSize)
		assert.Equal(t, DefaultChunkOverlap, p.overlap)
		assert.Equal(t, DefaultSeparators, p.separators)
	})
}

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "chunker", New().Name())
}

func TestSplit_EmptyInput(t *testing.T) {
	p := New()
	assert.Empty(t, p.Split(""))
	assert.Empty(t, p.Split("  \n\n\t "))
}

func TestSplit_ShortTextIsOneChunk(t *testing.T) {
	assert.Equal(t, []string{"Hello world."}, New().Split("  Hello world.\n"))
}

func TestSplit_ParagraphsMergedUpToSize(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(0))

	got := p.Split("aaaa\n\nbbbb\n\ncccc")

	assert.Equal(t, []string{"aaaa\n\nbbbb", "cccc"}, got)
}

func TestSplit_Overlap(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(4))

	got := p.Split("one two three four")

	assert.Equal(t, []string{"one two", "two three", "four"}, got)
}

func TestSplit_SeparatorKeptAtStartOfNextPiece(t *testing.T) {
	p := New(WithChunkSize(20), WithOverlap(0))

	got := p.Split("First sentence. Second sentence.")

	assert.Equal(t, []string{"First sentence", ". Second sentence."}, got)
}

func TestSplit_RecursesIntoOversizePieces(t *testing.T) {
	p := New(WithChunkSize(20), WithOverlap(0))

	got := p.Split("Intro\n\nThis is a much longer paragraph")

	assert.Equal(t, []string{"Intro", "This is a much", "longer paragraph"}, got)
}

func TestSplit_UnsplittableTextKeptWhole(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(0))

	got := p.Split("abcdefghijklmno")

	assert.Equal(t, []string{"abcdefghijklmno"}, got)
}

func TestSplit_CountsRunes(t *testing.T) {
	p := New(WithChunkSize(11), WithOverlap(0))

	// 11 runes but 13 bytes.
	got := p.Split("héllo wörld")

	assert.Equal(t, []string{"héllo wörld"}, got)
}

func TestSplit_BoundedAndDeterministic(t *testing.T) {
	var b strings.Builder
	words := []string{"alpha", "beta", "gamma", "delta", "epsilon"}
	for i := 0; i < 600; i++ {
		b.WriteString(words[i%len(words)])
		switch {
		case i%37 == 36:
			b.WriteString(".\n\n")
		case i%11 == 10:
			b.WriteString("!\n")
		default:
			b.WriteString(" ")
		}
	}
	text := b.String()
	p := New()

	first := p.Split(text)
	second := p.Split(text)

	require.NotEmpty(t, first)
	assert.Equal(t, first, second)
	for i, c := range first {
		assert.LessOrEqual(t, len([]rune(c)), 800, "chunk %d too long", i)
		assert.Equal(t, strings.TrimSpace(c), c, "chunk %d not trimmed", i)
		assert.NotEmpty(t, c)
	}
}

func TestProcessor_Process(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(0))
	doc := &domain.Document{Filename: "notes.txt", Content: "aaaa\n\nbbbb\n\ncccc"}

	chunks, err := p.Process(context.Background(), doc, nil)

	require.NoError(t, err)
	require.Len(t, chunks, 2)
	for i, c := range chunks {
		assert.Equal(t, i, c.Position)
		assert.Equal(t, "notes.txt", c.Source)
	}
	assert.Equal(t, "cccc", chunks[1].Content)
}

func TestProcessor_Process_EmptyDocument(t *testing.T) {
	chunks, err := New().Process(context.Background(), &domain.Document{Filename: "empty.txt"}, nil)

	require.NoError(t, err)
	assert.Empty(t, chunks)
}
