package cli

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"
)

var docsCmd = &cobra.Command{
	Use:     "docs",
	Aliases: []string{"ls"},
	Short:   "List your documents",
	Long:    `List the documents in your index with their chunk counts and upload times.`,
	Args:    cobra.NoArgs,
	RunE:    runDocs,
}

var removeCmd = &cobra.Command{
	Use:     "remove [filename]",
	Aliases: []string{"rm"},
	Short:   "Remove a document from your index",
	Long: `Remove a document and rebuild your index from the documents that remain.

The filename is the name shown by 'docqa docs'.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Check your index and rebuild it if needed",
	Long: `Check that your index, chunk store and document list agree with each
other. When they do not, the index is rebuilt from the stored documents.`,
	Args: cobra.NoArgs,
	RunE: runRepair,
}

// documentOutput is the --json form of a ledger entry.
type documentOutput struct {
	Filename   string    `json:"filename"`
	Chunks     int       `json:"chunks"`
	UploadedAt time.Time `json:"uploaded_at"`
}

func init() {
	docsCmd.Flags().Bool("json", false, "print documents as JSON")
	rootCmd.AddCommand(docsCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(repairCmd)
}

func runDocs(cmd *cobra.Command, _ []string) error {
	if knowledgeService == nil {
		return errNoKnowledge
	}

	user := currentUser()
	ledger, err := knowledgeService.ListDocuments(cmd.Context(), user)
	if err != nil {
		return err
	}

	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut { //nolint:errcheck // flag is registered
		docs := make([]documentOutput, len(ledger))
		for i, e := range ledger {
			docs[i] = documentOutput{Filename: e.Filename, Chunks: e.ChunkCount, UploadedAt: e.UploadedAt.UTC()}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	if len(ledger) == 0 {
		cmd.Printf("No documents for %s. Add some with 'docqa ingest'.\n", user)
		return nil
	}

	cmd.Printf("Documents for %s:\n\n", user)
	for _, e := range ledger {
		cmd.Printf("  %-40s %5d chunks  %s\n", e.Filename, e.ChunkCount, e.UploadedAt.Local().Format(time.DateTime))
	}
	cmd.Printf("\nTotal: %d documents, %d chunks\n", len(ledger), ledger.TotalChunks())
	return nil
}

func runRemove(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errNoKnowledge
	}

	res, err := knowledgeService.Remove(cmd.Context(), currentUser(), args[0])
	if err != nil {
		return err
	}

	cmd.Printf("Removed %s\n", res.Filename)
	cmd.Printf("Remaining: %d documents, %d chunks\n", res.RemainingDocuments, res.RemainingChunks)
	return nil
}

func runRepair(cmd *cobra.Command, _ []string) error {
	if knowledgeService == nil {
		return errNoKnowledge
	}

	report, err := knowledgeService.Repair(cmd.Context(), currentUser())
	if err != nil {
		return err
	}

	if report.Healthy() {
		cmd.Printf("Index for %s is consistent (%d chunks).\n", report.UserID, report.Chunks)
		return nil
	}

	cmd.Printf("Problems found for %s:\n", report.UserID)
	for _, p := range report.Problems {
		cmd.Printf("  - %s\n", p)
	}
	if report.Rebuilt {
		cmd.Printf("Index rebuilt (%d chunks).\n", report.Chunks)
	}
	return nil
}
