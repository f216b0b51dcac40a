package list

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func passages() []domain.Passage {
	return []domain.Passage{
		{Chunk: domain.Chunk{Source: "piano.txt", Content: "Practise scales\n\nevery day."}, Distance: 0.31},
		{Chunk: domain.Chunk{Source: "tempo.md", Content: "Use a metronome."}, Distance: 0.85},
		{Chunk: domain.Chunk{Source: "notes.pdf", Content: "Rest often."}, Distance: 1.1},
	}
}

func TestNewSourceList(t *testing.T) {
	l := NewSourceList(nil)

	require.NotNil(t, l)
	assert.NotNil(t, l.styles)
	assert.Equal(t, 0, l.Count())
	assert.Nil(t, l.Init())
}

func TestSourceList_View_Empty(t *testing.T) {
	l := NewSourceList(nil)

	assert.Contains(t, l.View(), "No document context")
}

func TestSourceList_View_ShowsPassages(t *testing.T) {
	l := NewSourceList(nil)
	l.SetDimensions(80, 20)
	l.SetPassages(passages())

	view := l.View()

	assert.Contains(t, view, "Sources (3)")
	assert.Contains(t, view, "piano.txt")
	assert.Contains(t, view, "0.310")
	// Whitespace in previews is collapsed.
	assert.Contains(t, view, "Practise scales every day.")
}

func TestSourceList_View_ScrollsToSelection(t *testing.T) {
	l := NewSourceList(nil)
	l.SetDimensions(80, 4) // one passage visible
	l.SetPassages(passages())

	l.MoveDown()
	l.MoveDown()

	view := l.View()
	assert.Contains(t, view, "notes.pdf")
	assert.NotContains(t, view, "piano.txt")
}

func TestSourceList_Navigation(t *testing.T) {
	l := NewSourceList(nil)
	l.SetPassages(passages())

	l.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, l.Selected())

	l.Update(tea.KeyMsg{Type: tea.KeyDown})
	l.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 2, l.Selected())

	l.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, l.Selected())

	l.SetPassages(passages()[:1])
	assert.Equal(t, 0, l.Selected())
	l.MoveUp()
	assert.Equal(t, 0, l.Selected())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10, 5))
	assert.Equal(t, "abcdefg...", truncate(strings.Repeat("abcdefghij", 3), 10, 5))
	// Floor wins over a tiny max.
	assert.Equal(t, "ab...", truncate("abcdefghij", 2, 5))
	// Multi-byte text is cut on rune boundaries.
	assert.Equal(t, "ééé...", truncate("éééééééé", 6, 6))
}
