package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/connectors/filesystem"
	"github.com/custodia-labs/docqa/internal/core/domain"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Keep your index in step with a folder",
	Long: `Ingest every document in a folder, then follow it: new and changed
files are ingested, deleted files are removed from your index.

Only files directly inside the folder are followed. Hidden files and editor
temporaries are ignored. Press Ctrl+C to stop.

Examples:
  docqa watch ~/Documents/notes
  docqa watch --initial=false --keep-deleted ./inbox`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Bool("initial", true, "ingest the files already in the folder first")
	watchCmd.Flags().Bool("keep-deleted", false, "keep documents in the index when their file is deleted")
	watchCmd.Flags().Duration("debounce", filesystem.DefaultDebounce, "quiet period before a changed file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errNoKnowledge
	}

	initial, _ := cmd.Flags().GetBool("initial")          //nolint:errcheck // flag is registered
	keepDeleted, _ := cmd.Flags().GetBool("keep-deleted") //nolint:errcheck // flag is registered
	debounce, _ := cmd.Flags().GetDuration("debounce")    //nolint:errcheck // flag is registered

	ctx := cmd.Context()
	user := currentUser()
	w := filesystem.New(args[0])
	w.SetDebounce(debounce)
	defer w.Close()

	if initial {
		files, errs := w.Scan(ctx)
		for c := range files {
			applyChange(ctx, cmd, user, c, keepDeleted)
		}
		if err := <-errs; err != nil {
			return err
		}
	}

	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}

	cmd.Printf("Watching %s for %s (Ctrl+C to stop)\n", w.Root(), user)
	for c := range changes {
		applyChange(ctx, cmd, user, c, keepDeleted)
	}
	return nil
}

// applyChange mirrors one file change into the user's index. Failures are
// reported and watching continues.
func applyChange(ctx context.Context, cmd *cobra.Command, user string, c filesystem.Change, keepDeleted bool) {
	if c.Type == filesystem.ChangeDeleted {
		if keepDeleted {
			return
		}
		res, err := knowledgeService.Remove(ctx, user, c.Name)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			// never indexed
		case err != nil:
			cmd.PrintErrf("Failed to remove %s: %v\n", c.Name, err)
		default:
			cmd.Printf("Removed %s (%d documents left)\n", res.Filename, res.RemainingDocuments)
		}
		return
	}

	res, err := ingestFile(ctx, user, c.Path)
	if err != nil {
		cmd.PrintErrf("Failed %s: %v\n", c.Name, err)
		return
	}
	printIngestResult(cmd, res)
}
