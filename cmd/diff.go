package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/livesnap/internal/als"
	"github.com/pders01/livesnap/internal/ui"
	"github.com/spf13/cobra"
)

var (
	diffJSON bool
	diffToon bool
)

var diffCmd = &cobra.Command{
	Use:   "diff <version> [version]",
	Short: "Compare the Live Set between two versions",
	Long: `Compare the Live Set of two versions and show differences in:
  - Tempo
  - Tracks added or removed
  - MIDI note counts per track
  - Plugins added or removed

With one version the comparison is against the current project files.

Examples:
  livesnap diff 3f2a1c9 8b0d4e2
  livesnap diff 3f2a1c9
  livesnap diff 3f2a1c9 8b0d4e2 --json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)

	diffCmd.Flags().BoolVar(&diffJSON, "json", false, "Output as JSON")
	diffCmd.Flags().BoolVar(&diffToon, "toon", false, "Output in LLM-friendly toon format")
}

type setDiff struct {
	From    string   `json:"from"`
	To      string   `json:"to"`
	Changes als.Diff `json:"changes"`
}

func runDiff(cmd *cobra.Command, args []string) error {
	h, err := openProject(false)
	if err != nil {
		return err
	}

	svc := newServices()
	ctx := commandContext(cmd)

	from, err := svc.snapshots.Get(ctx, h, args[0])
	if err != nil {
		return err
	}
	fromSet, _, err := svc.setAt(ctx, h, from.Hash)
	if err != nil {
		return err
	}

	result := setDiff{From: from.ShortHash}
	var toSet *als.Set
	if len(args) == 2 {
		to, err := svc.snapshots.Get(ctx, h, args[1])
		if err != nil {
			return err
		}
		if toSet, _, err = svc.setAt(ctx, h, to.Hash); err != nil {
			return err
		}
		result.To = to.ShortHash
	} else {
		var name string
		if toSet, name, err = workingSet(h, ""); err != nil {
			return err
		}
		result.To = name
	}
	result.Changes = als.Compare(fromSet, toSet)

	if diffJSON {
		output, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	if diffToon {
		output, err := gotoon.Encode(result)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Fprintln(out, output)
		return nil
	}

	fmt.Fprintf(out, "Comparing %s -> %s\n\n", ui.HashTag.Render(result.From), ui.HashTag.Render(result.To))
	if result.Changes.Empty() {
		fmt.Fprintln(out, "No musical changes")
		return nil
	}
	for _, line := range result.Changes.Lines() {
		switch line[0] {
		case '+':
			fmt.Fprintln(out, ui.Green.Render(line))
		case '-':
			fmt.Fprintln(out, ui.Red.Render(line))
		default:
			fmt.Fprintln(out, ui.Yellow.Render(line))
		}
	}
	return nil
}
