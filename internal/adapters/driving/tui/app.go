package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docqa/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

// scrollLines is how far one scroll key moves the transcript.
const scrollLines = 5

// turn is one question and its answer.
type turn struct {
	question  string
	answer    strings.Builder
	retrieval *domain.Retrieval
	err       error
	cancelled bool
	done      bool
}

// App is the chat application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the parent context for questions.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	input      *input.QuestionInput
	transcript viewport.Model
	statusBar  *status.Bar
	sources    *list.SourceList
	help       help.Model

	// turns is the conversation so far; the last one may be streaming.
	turns []*turn

	// stream is the fragment channel of the answer in progress.
	stream <-chan domain.Fragment

	// cancel stops the answer in progress.
	cancel context.CancelFunc

	ledger domain.Ledger

	showSources   bool
	showDocuments bool
	showHelp      bool

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new chat application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	bar := status.NewBar(s, km)
	bar.SetUser(ports.UserID)

	h := help.New()
	h.ShowAll = true

	return &App{
		ports:      ports,
		ctx:        context.Background(),
		styles:     s,
		keymap:     km,
		input:      input.NewQuestionInput(s),
		transcript: viewport.New(80, 20),
		statusBar:  bar,
		sources:    list.NewSourceList(s),
		help:       h,
	}, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.input.Init(),
		tea.SetWindowTitle("docqa - "+a.ports.UserID),
		a.loadDocuments(),
	)
}

// Update implements tea.Model.
//
//nolint:gocyclo // central message handler
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case messages.AnswerStarted:
		current := a.current()
		if current != nil {
			current.retrieval = msg.Retrieval
		}
		if msg.Retrieval != nil {
			a.sources.SetPassages(msg.Retrieval.Passages)
		}
		a.stream = msg.Stream
		a.statusBar.SetState(status.StateStreaming)
		a.refresh()
		return a, waitForFragment(msg.Stream)

	case messages.FragmentReceived:
		if current := a.current(); current != nil {
			current.answer.WriteString(msg.Text)
		}
		a.refresh()
		return a, waitForFragment(a.stream)

	case messages.AnswerFinished:
		a.finish(msg.Err)
		return a, a.loadDocuments()

	case messages.DocumentsLoaded:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.ledger = msg.Ledger
		a.statusBar.SetDocumentCount(len(msg.Ledger))
		return a, nil

	case messages.ErrorOccurred:
		a.setError(msg.Err)
		return a, nil

	case messages.Quit:
		a.stop()
		return a, tea.Quit
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// handleKey routes key presses.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()

	switch {
	case keymap.Matches(k, a.keymap.Quit):
		a.stop()
		return a, tea.Quit
	case keymap.Matches(k, a.keymap.ScrollUp):
		a.transcript.LineUp(scrollLines)
		return a, nil
	case keymap.Matches(k, a.keymap.ScrollDown):
		a.transcript.LineDown(scrollLines)
		return a, nil
	case keymap.Matches(k, a.keymap.Help):
		a.showHelp = !a.showHelp
		if !a.Busy() {
			if a.showHelp {
				a.statusBar.SetState(status.StateHelp)
			} else {
				a.statusBar.SetState(status.StateReady)
			}
		}
		return a, nil
	case keymap.Matches(k, a.keymap.Sources):
		a.showSources = !a.showSources
		a.showDocuments = false
		return a, nil
	case keymap.Matches(k, a.keymap.Documents):
		a.showDocuments = !a.showDocuments
		a.showSources = false
		return a, a.loadDocuments()
	}

	if a.Busy() {
		if keymap.Matches(k, a.keymap.Cancel) {
			a.stop()
			if current := a.current(); current != nil {
				current.cancelled = true
			}
		}
		return a, nil
	}

	switch {
	case keymap.Matches(k, a.keymap.Cancel):
		a.showSources = false
		a.showDocuments = false
		a.showHelp = false
		return a, nil
	case keymap.Matches(k, a.keymap.Clear):
		a.turns = nil
		a.sources.SetPassages(nil)
		a.statusBar.Clear()
		a.refresh()
		return a, nil
	case keymap.Matches(k, a.keymap.Send):
		return a, a.submit()
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

// submit starts answering the typed question.
func (a *App) submit() tea.Cmd {
	question := strings.TrimSpace(a.input.Value())
	if question == "" {
		return nil
	}
	a.input.Reset()
	a.err = nil
	a.turns = append(a.turns, &turn{question: question})
	a.statusBar.Clear()
	a.statusBar.SetState(status.StateThinking)
	a.refresh()

	ctx, cancel := context.WithCancel(a.ctx)
	a.cancel = cancel

	knowledge := a.ports.Knowledge
	user := a.ports.UserID
	return func() tea.Msg {
		stream, retrieval, err := knowledge.Ask(ctx, user, question)
		if err != nil {
			return messages.AnswerFinished{Err: err}
		}
		return messages.AnswerStarted{Retrieval: retrieval, Stream: stream}
	}
}

// waitForFragment reads the next fragment from stream.
func waitForFragment(stream <-chan domain.Fragment) tea.Cmd {
	if stream == nil {
		return nil
	}
	return func() tea.Msg {
		f, ok := <-stream
		if !ok {
			return messages.AnswerFinished{}
		}
		if f.Err != nil {
			return messages.AnswerFinished{Err: f.Err}
		}
		return messages.FragmentReceived{Text: f.Text}
	}
}

// loadDocuments fetches the user's ledger.
func (a *App) loadDocuments() tea.Cmd {
	knowledge := a.ports.Knowledge
	user := a.ports.UserID
	ctx := a.ctx
	return func() tea.Msg {
		ledger, err := knowledge.ListDocuments(ctx, user)
		return messages.DocumentsLoaded{Ledger: ledger, Err: err}
	}
}

// finish closes the answer in progress.
func (a *App) finish(err error) {
	current := a.current()
	cancelled := current != nil && current.cancelled
	a.stop()

	if current != nil {
		current.done = true
		if err != nil && !cancelled {
			current.err = err
		}
	}

	a.statusBar.SetState(status.StateReady)
	if err != nil && !cancelled {
		a.setError(err)
	} else if cancelled {
		a.statusBar.SetMessage("stopped")
	}
	a.refresh()
}

// stop cancels the answer in progress, if any.
func (a *App) stop() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	a.stream = nil
}

func (a *App) setError(err error) {
	a.err = err
	a.statusBar.SetState(status.StateError)
	a.statusBar.SetMessage(err.Error())
}

// current returns the last turn, or nil.
func (a *App) current() *turn {
	if len(a.turns) == 0 {
		return nil
	}
	return a.turns[len(a.turns)-1]
}

// refresh re-renders the transcript and keeps it scrolled to the end.
func (a *App) refresh() {
	a.transcript.SetContent(a.renderTranscript())
	a.transcript.GotoBottom()
}

// renderTranscript renders every turn.
func (a *App) renderTranscript() string {
	if len(a.turns) == 0 {
		return a.styles.Muted.Render("Ask a question about your uploaded documents.")
	}

	width := a.width - 2
	if width < 20 {
		width = 20
	}
	wrap := lipgloss.NewStyle().Width(width)

	blocks := make([]string, 0, len(a.turns))
	for _, t := range a.turns {
		var b strings.Builder
		b.WriteString(a.styles.Question.Render("> " + t.question))
		b.WriteString("\n")
		if t.retrieval != nil {
			b.WriteString(a.badge(t.retrieval))
			b.WriteString("\n")
		}
		b.WriteString(wrap.Render(a.styles.Answer.Render(t.answer.String())))
		switch {
		case t.err != nil:
			b.WriteString("\n" + a.styles.Error.Render(describe(t.err)))
		case t.cancelled:
			b.WriteString("\n" + a.styles.Muted.Render("(stopped)"))
		case !t.done:
			b.WriteString(a.styles.Muted.Render(" ▍"))
		}
		blocks = append(blocks, b.String())
	}
	return strings.Join(blocks, "\n\n")
}

// badge labels whether an answer used document context.
func (a *App) badge(r *domain.Retrieval) string {
	if r.IsGrounded() {
		return a.styles.Grounded.Render(fmt.Sprintf("from %d passages", len(r.Passages)))
	}
	label := "general answer"
	if r.Reason != "" {
		label += ": " + r.Reason
	}
	return a.styles.Ungrounded.Render(label)
}

// describe turns a failure into a short line for the transcript.
func describe(err error) string {
	switch {
	case errors.Is(err, domain.ErrLLMUnavailable):
		return "No language model is configured. Run 'docqa settings llm'."
	case errors.Is(err, domain.ErrGenerationFailed):
		return "The answer was interrupted: " + err.Error()
	default:
		return "Error: " + err.Error()
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	var body string
	switch {
	case a.showHelp:
		body = a.help.View(a.keymap)
	case a.showSources:
		body = a.sources.View()
	case a.showDocuments:
		body = a.viewDocuments()
	default:
		body = a.transcript.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		a.styles.Title.Render("docqa"),
		body,
		a.input.View(),
		a.statusBar.View(),
	)
}

// viewDocuments renders the user's ledger.
func (a *App) viewDocuments() string {
	if len(a.ledger) == 0 {
		return a.styles.Muted.Render("No documents uploaded. Use 'docqa ingest <file>'.")
	}
	lines := []string{a.styles.Subtitle.Render(fmt.Sprintf("Documents (%d)", len(a.ledger))), ""}
	for _, e := range a.ledger {
		lines = append(lines, fmt.Sprintf("  %s  %s",
			a.styles.Normal.Render(e.Filename),
			a.styles.Muted.Render(fmt.Sprintf("%d chunks, %s", e.ChunkCount, e.UploadedAt.Format("2006-01-02 15:04"))),
		))
	}
	return strings.Join(lines, "\n")
}

// Run starts the chat application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// Busy reports whether an answer is in progress.
func (a *App) Busy() bool {
	s := a.statusBar.State()
	return s == status.StateThinking || s == status.StateStreaming
}

// Transcript returns the rendered conversation.
func (a *App) Transcript() string {
	return a.renderTranscript()
}

// Turns returns the number of questions asked.
func (a *App) Turns() int {
	return len(a.turns)
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions and lays out the components.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true

	// Title, input box (3 lines) and status bar.
	body := height - 5
	if body < 3 {
		body = 3
	}
	a.transcript.Width = width
	a.transcript.Height = body
	a.input.SetWidth(width)
	a.statusBar.SetWidth(width)
	a.sources.SetDimensions(width, body)
	a.help.Width = width
	a.refresh()
}
