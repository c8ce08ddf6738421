package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/livesnap/internal/als"
	"github.com/pders01/livesnap/internal/ui"
	"github.com/spf13/cobra"
)

var (
	inspectJSON bool
	inspectToon bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [set]",
	Short: "Summarize a Live Set in the project folder",
	Long: `Read a Live Set from the project folder and list its tempo,
tracks, MIDI notes and plugins. Without an argument the most recently
modified set is used.

Examples:
  livesnap inspect
  livesnap inspect "Demo Project.als" --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Output as JSON")
	inspectCmd.Flags().BoolVar(&inspectToon, "toon", false, "Output in LLM-friendly toon format")
}

func runInspect(cmd *cobra.Command, args []string) error {
	h, err := openProject(true)
	if err != nil {
		return err
	}

	var name string
	if len(args) == 1 {
		name = args[0]
	}
	set, name, err := workingSet(h, name)
	if err != nil {
		return err
	}

	if inspectJSON {
		output, err := json.MarshalIndent(set, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	if inspectToon {
		output, err := gotoon.Encode(set)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Fprintln(out, output)
		return nil
	}

	fmt.Fprintln(out, ui.Info.Render(name))
	if set.Creator != "" {
		fmt.Fprintln(out, ui.Faint.Render(set.Creator))
	}
	fmt.Fprintf(out, "\nTempo: %s BPM\n\n", als.FormatTempo(set.Tempo))

	rows := [][]string{{"Track", "Type", "Notes", "Devices"}}
	for _, t := range set.Tracks {
		notes := "-"
		if t.Kind == als.KindMidi {
			notes = fmt.Sprint(t.NoteCount)
		}
		rows = append(rows, []string{t.Name, strings.TrimSuffix(t.Kind, "Track"), notes, strings.Join(t.Devices, ", ")})
	}
	table, err := ui.Table(rows)
	if err != nil {
		return err
	}
	fmt.Fprint(out, table)
	fmt.Fprintln(out)

	if len(set.Plugins) > 0 {
		fmt.Fprintf(out, "\nPlugins (%d):\n", len(set.Plugins))
		for _, p := range set.Plugins {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}
	return nil
}
