package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long: `Ask a question. The most relevant passages from your documents are
sent to the language model as context and the answer is streamed as it is
generated.

When no passage is relevant enough the question is answered without
document context and the answer is marked as ungrounded.

Examples:
  docqa ask "when is the launch"
  docqa ask --json what does the contract say about renewal
  docqa ask --show-prompt "summarise my notes"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

// askOutput is the --json form of an answer.
type askOutput struct {
	Question string         `json:"question"`
	Answer   string         `json:"answer"`
	Grounded bool           `json:"grounded"`
	Sources  []sourceOutput `json:"sources,omitempty"`
}

type sourceOutput struct {
	Filename string  `json:"filename"`
	Distance float64 `json:"distance"`
}

func init() {
	askCmd.Flags().Bool("json", false, "print the answer and its sources as JSON")
	askCmd.Flags().Bool("show-prompt", false, "print the assembled prompt without generating an answer")
	askCmd.Flags().Bool("no-sources", false, "do not list the passages used as context")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errNoKnowledge
	}

	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question is empty: %w", domain.ErrInvalidInput)
	}

	jsonOut, _ := cmd.Flags().GetBool("json")           //nolint:errcheck // flag is registered
	showPrompt, _ := cmd.Flags().GetBool("show-prompt") //nolint:errcheck // flag is registered
	noSources, _ := cmd.Flags().GetBool("no-sources")   //nolint:errcheck // flag is registered

	switch {
	case showPrompt:
		return runShowPrompt(cmd, question)
	case jsonOut:
		return runAskJSON(cmd, question)
	}

	stream, retrieval, err := knowledgeService.Ask(cmd.Context(), currentUser(), question)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for f := range stream {
		if f.Err != nil {
			fmt.Fprintln(out)
			return f.Err
		}
		fmt.Fprint(out, f.Text)
	}
	fmt.Fprintln(out)

	if !noSources {
		printSources(out, retrieval)
	}
	return nil
}

func runShowPrompt(cmd *cobra.Command, question string) error {
	prepared, err := knowledgeService.Prepare(cmd.Context(), currentUser(), question)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, prepared.Prompt)
	printSources(out, &prepared.Retrieval)
	return nil
}

func runAskJSON(cmd *cobra.Command, question string) error {
	answer, retrieval, err := knowledgeService.AskText(cmd.Context(), currentUser(), question)
	if err != nil {
		return err
	}

	output := askOutput{Question: question, Answer: answer}
	if retrieval != nil {
		output.Grounded = retrieval.IsGrounded()
		for _, p := range retrieval.Passages {
			output.Sources = append(output.Sources, sourceOutput{
				Filename: p.Chunk.Source,
				Distance: p.Distance,
			})
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// printSources writes the footer naming the passages behind an answer.
func printSources(w io.Writer, r *domain.Retrieval) {
	if r == nil {
		return
	}
	if !r.IsGrounded() {
		fmt.Fprintln(w, "\n[ungrounded] No relevant passages were found in your documents.")
		return
	}

	fmt.Fprintf(w, "\nSources (%d):\n", len(r.Passages))
	for i, p := range r.Passages {
		fmt.Fprintf(w, "  %d. %s (distance %.3f)\n", i+1, p.Chunk.Source, p.Distance)
	}
}
