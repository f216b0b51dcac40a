package status

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
)

func TestNewBar(t *testing.T) {
	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()
	bar := NewBar(s, km)

	require.NotNil(t, bar)
	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 0, bar.DocumentCount())
	assert.Equal(t, 80, bar.Width())
}

func TestNewBar_NilStyles(t *testing.T) {
	bar := NewBar(nil, nil)

	require.NotNil(t, bar)
	assert.NotNil(t, bar.styles)
	assert.NotNil(t, bar.keymap)
}

func TestStatusBar_InitAndUpdate(t *testing.T) {
	bar := NewBar(nil, nil)

	assert.Nil(t, bar.Init())

	updated, cmd := bar.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, bar, updated)
	assert.Nil(t, cmd)
}

func TestStatusBar_View_Idle(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)
	bar.SetUser("alice")
	bar.SetDocumentCount(3)

	view := bar.View()

	assert.Contains(t, view, "alice · 3 documents")
	assert.Contains(t, view, "enter: ask")
}

func TestStatusBar_View_Streaming(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)
	bar.SetState(StateStreaming)

	view := bar.View()

	assert.Contains(t, view, "Answering")
	assert.Contains(t, view, "esc: stop")
	assert.NotContains(t, view, "enter: ask")
}

func TestStatusBar_View_Error(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(120)
	bar.SetState(StateError)
	bar.SetMessage("LLM service unavailable")

	assert.Contains(t, bar.View(), "Error: LLM service unavailable")
}

func TestStatusBar_View_NarrowWidth(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetWidth(5)

	assert.NotEmpty(t, bar.View())
}

func TestStatusBar_Clear(t *testing.T) {
	bar := NewBar(nil, nil)
	bar.SetUser("alice")
	bar.SetDocumentCount(2)
	bar.SetState(StateError)
	bar.SetMessage("error message")

	bar.Clear()

	assert.Equal(t, StateReady, bar.State())
	assert.Equal(t, "", bar.Message())
	assert.Equal(t, 2, bar.DocumentCount())
}
