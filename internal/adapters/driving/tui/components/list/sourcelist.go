// Package list provides list display components for the chat UI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// SourceList displays the passages that grounded the last answer.
type SourceList struct {
	passages []domain.Passage
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewSourceList creates a new source list component.
func NewSourceList(s *styles.Styles) *SourceList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &SourceList{
		styles: s,
		width:  80,
		height: 10,
	}
}

// Init initialises the list.
func (r *SourceList) Init() tea.Cmd {
	return nil
}

// Update handles list navigation messages.
func (r *SourceList) Update(msg tea.Msg) (*SourceList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		//nolint:exhaustive // handling only relevant key types
		switch msg.Type {
		case tea.KeyUp:
			r.MoveUp()
		case tea.KeyDown:
			r.MoveDown()
		default:
		}
	}
	return r, nil
}

// View renders the list.
func (r *SourceList) View() string {
	if len(r.passages) == 0 {
		return r.styles.Muted.Render("No document context was used")
	}

	lines := make([]string, 0, len(r.passages)+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Sources (%d)", len(r.passages))), "")

	// Each passage takes two lines.
	visible := (r.height - 2) / 2
	if visible < 1 {
		visible = 1
	}
	start := 0
	if r.selected >= visible {
		start = r.selected - visible + 1
	}
	end := start + visible
	if end > len(r.passages) {
		end = len(r.passages)
	}

	for i := start; i < end; i++ {
		lines = append(lines, r.renderPassage(i, &r.passages[i]))
	}
	return strings.Join(lines, "\n")
}

// renderPassage formats one passage with its distance and a preview.
func (r *SourceList) renderPassage(index int, p *domain.Passage) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	name := truncate(p.Chunk.Source, r.width-20, 10)
	distance := fmt.Sprintf("%.3f", p.Distance)

	var title string
	if index == r.selected {
		title = r.styles.Selected.Render(fmt.Sprintf("%s%s  %s", indicator, name, distance))
	} else {
		title = r.styles.Normal.Render(indicator+name+"  ") + r.styles.Muted.Render(distance)
	}

	preview := strings.Join(strings.Fields(p.Chunk.Content), " ")
	preview = truncate(preview, r.width-6, 20)

	return title + "\n" + r.styles.Muted.Render("    "+preview)
}

// truncate shortens s to max runes, never below floor.
func truncate(s string, max, floor int) string {
	if max < floor {
		max = floor
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// SetPassages replaces the passages and resets the selection.
func (r *SourceList) SetPassages(passages []domain.Passage) {
	r.passages = passages
	r.selected = 0
}

// Passages returns the current passages.
func (r *SourceList) Passages() []domain.Passage {
	return r.passages
}

// Selected returns the index of the selected passage.
func (r *SourceList) Selected() int {
	return r.selected
}

// MoveUp moves selection up.
func (r *SourceList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves selection down.
func (r *SourceList) MoveDown() {
	if r.selected < len(r.passages)-1 {
		r.selected++
	}
}

// SetDimensions sets the component dimensions.
func (r *SourceList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}

// Count returns the number of passages.
func (r *SourceList) Count() int {
	return len(r.passages)
}
