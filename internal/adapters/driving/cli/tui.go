package cli

import (
	"fmt"
	"os"
	"runtime/debug"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui"
)

// chatCmd represents the chat command.
var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"tui"},
	Short:   "Launch the interactive chat",
	Long: `Launch an interactive chat over your documents.

Answers stream in as they are generated. Each answer is marked grounded
when it used passages from your documents, or ungrounded when nothing
relevant was found.

Controls:
  Enter    - Ask
  Esc      - Stop the current answer
  Ctrl+S   - Show sources for the last answer
  Ctrl+O   - Show your documents
  Ctrl+L   - Clear the conversation
  F1       - Toggle help
  Ctrl+C   - Quit`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
	// Add panic recovery to get stack traces
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Panic in chat: %v\n", r)
			fmt.Fprintf(os.Stderr, "Stack trace:\n%s\n", debug.Stack())
		}
	}()

	app, err := tui.NewApp(tui.NewPorts(knowledgeService, currentUser()))
	if err != nil {
		return fmt.Errorf("failed to create chat: %w", err)
	}

	app.WithContext(cmd.Context())

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}

	return nil
}
