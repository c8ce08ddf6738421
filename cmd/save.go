package cmd

import (
	"fmt"
	"os"
	"strings"

	lserr "github.com/pders01/livesnap/internal/errors"
	"github.com/pders01/livesnap/internal/models"
	"github.com/pders01/livesnap/internal/project"
	"github.com/pders01/livesnap/internal/ui"
	"github.com/spf13/cobra"
)

var saveNoEmbed bool

var saveCmd = &cobra.Command{
	Use:   "save <message>",
	Short: "Save the project folder as a new version",
	Long: `Record every change in the project folder as a new version.

The message is stored exactly as given. Multiple arguments are joined
with spaces, so quoting is optional.

When Ollama is running, the new version is also indexed for semantic
search. Use --no-embed to skip that step.

Examples:
  livesnap save "Rough mix with new bass"
  livesnap save Added vocal takes --no-embed`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSave,
}

func init() {
	rootCmd.AddCommand(saveCmd)

	saveCmd.Flags().BoolVar(&saveNoEmbed, "no-embed", false, "Skip embedding generation")
}

func runSave(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")

	h, err := openProject(false)
	if err != nil {
		return err
	}

	svc := newServices()
	ctx := commandContext(cmd)

	var snap *models.Snapshot
	err = withLock(h, func() error {
		snap, err = svc.snapshots.Create(ctx, h, message)
		return err
	})
	if lserr.Is(err, lserr.ErrNothingToCommit) {
		ui.Warn(out, "Nothing changed since the last version")
		return nil
	}
	if err != nil {
		return err
	}

	ui.Success(out, "Saved version %s: %s", ui.HashTag.Render(snap.ShortHash), snap.Subject())

	if !saveNoEmbed {
		if err := indexSnapshot(cmd, svc, h, *snap); err != nil {
			// Don't fail the save if embedding fails
			fmt.Fprintf(os.Stderr, "Warning: failed to generate embedding: %v\n", err)
			fmt.Fprintln(os.Stderr, "Tip: Ensure Ollama is running and the model is available: ollama pull nomic-embed-text")
		}
	}
	return nil
}

func indexSnapshot(cmd *cobra.Command, svc *services, h project.Handle, snap models.Snapshot) error {
	ctx := commandContext(cmd)
	searcher := svc.searcher(ctx, h)
	if !searcher.Semantic() {
		return nil
	}

	var indexed bool
	err := ui.Spin("Indexing version...", func() error {
		var err error
		indexed, err = searcher.Index(ctx, svc.document(ctx, h, snap))
		return err
	})
	if err != nil {
		return err
	}
	if indexed {
		fmt.Fprintln(out, ui.Faint.Render("  Indexed for semantic search"))
	}
	return nil
}
