package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/livesnap/internal/als"
	"github.com/pders01/livesnap/internal/models"
	"github.com/pders01/livesnap/internal/ui"
	"github.com/spf13/cobra"
)

var (
	showJSON bool
	showToon bool
)

var showCmd = &cobra.Command{
	Use:   "show <version>",
	Short: "Show one version and the Live Set it holds",
	Long: `Display the details of a version together with a summary of its
Live Set: tempo, tracks, MIDI notes and plugins.

Examples:
  livesnap show 3f2a1c9
  livesnap show 3f2a1c9 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().BoolVar(&showJSON, "json", false, "Output as JSON")
	showCmd.Flags().BoolVar(&showToon, "toon", false, "Output in LLM-friendly toon format")
}

type versionDetail struct {
	Version models.Snapshot `json:"version"`
	SetFile string          `json:"set_file,omitempty"`
	Set     *als.Set        `json:"set,omitempty"`
}

func runShow(cmd *cobra.Command, args []string) error {
	h, err := openProject(false)
	if err != nil {
		return err
	}

	svc := newServices()
	ctx := commandContext(cmd)

	snap, err := svc.snapshots.Get(ctx, h, args[0])
	if err != nil {
		return err
	}

	detail := versionDetail{Version: *snap}
	set, name, err := svc.setAt(ctx, h, snap.Hash)
	if err != nil {
		svc.logger.Debug("no Live Set summary", svc.logger.Args("version", snap.ShortHash, "error", err.Error()))
	} else {
		detail.Set = set
		detail.SetFile = name
	}

	if showJSON {
		output, err := json.MarshalIndent(detail, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	if showToon {
		output, err := gotoon.Encode(detail)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Fprintln(out, output)
		return nil
	}

	header := fmt.Sprintf("Version: %s\nAuthor:  %s <%s>\nDate:    %s",
		ui.HashTag.Render(snap.Hash), snap.AuthorName, snap.AuthorEmail,
		snap.Date.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintln(out, ui.BoxStyle.Render(header))
	fmt.Fprintf(out, "\n%s\n", snap.Message)

	if detail.Set != nil {
		fmt.Fprintf(out, "\n%s\n", ui.Info.Render(detail.SetFile))
		fmt.Fprintln(out, detail.Set.Summary())
	}
	return nil
}
