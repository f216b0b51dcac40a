package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Add documents to your index",
	Long: `Add one or more documents to your index.

Supported formats are plain text, Markdown, CSV, PDF, Word, PowerPoint and
Excel. A file is stored under its base name; ingesting a file with the same
name replaces the earlier copy.

Examples:
  docqa ingest notes.txt
  docqa ingest --user alice report.pdf slides.pptx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errNoKnowledge
	}

	user := currentUser()
	var errs []error
	for _, path := range args {
		res, err := ingestFile(cmd.Context(), user, path)
		if err != nil {
			cmd.PrintErrf("Failed %s: %v\n", path, err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		printIngestResult(cmd, res)
	}
	return errors.Join(errs...)
}

func ingestFile(ctx context.Context, user, path string) (*domain.IngestResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, errors.New("is a directory, use 'docqa watch' to follow a folder")
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return knowledgeService.Ingest(ctx, user, filepath.Base(path), f)
}

func printIngestResult(cmd *cobra.Command, res *domain.IngestResult) {
	switch res.Status {
	case domain.IngestSkipped:
		cmd.Printf("Skipped %s: %s\n", res.Filename, res.Reason)
	default:
		cmd.Printf("Indexed %s (%d chunks)\n", res.Filename, res.ChunkCount)
		if res.Rebuilt {
			cmd.Println("  Index was inconsistent and has been rebuilt.")
		}
	}
}
