package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/alpkeskin/gotoon"
	"github.com/pders01/livesnap/internal/config"
	"github.com/pders01/livesnap/internal/models"
	"github.com/pders01/livesnap/internal/snapshot"
	"github.com/pders01/livesnap/internal/ui"
	"github.com/spf13/cobra"
)

var (
	listLimit   int
	listOneline bool
	listJSON    bool
	listToon    bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved versions, newest first",
	Long: `List the versions of the project folder, newest first.

Examples:
  livesnap list
  livesnap list --limit 10
  livesnap list --oneline
  livesnap list --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().IntVarP(&listLimit, "limit", "n", 0, "Maximum number of versions (default from config)")
	listCmd.Flags().BoolVar(&listOneline, "oneline", false, "One version per line")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
	listCmd.Flags().BoolVar(&listToon, "toon", false, "Output in LLM-friendly toon format")
}

func runList(cmd *cobra.Command, args []string) error {
	h, err := openProject(false)
	if err != nil {
		return err
	}

	limit := listLimit
	if limit <= 0 {
		limit = config.GetHistoryLimit()
	}

	snaps, err := newServices().snapshots.List(commandContext(cmd), h, limit)
	if err != nil {
		return err
	}

	if listJSON {
		output, err := json.MarshalIndent(snaps, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	if listToon {
		output, err := gotoon.Encode(snaps)
		if err != nil {
			return fmt.Errorf("failed to encode Toon: %w", err)
		}
		fmt.Fprintln(out, output)
		return nil
	}

	if len(snaps) == 0 {
		fmt.Fprintln(out, "No versions found")
		return nil
	}

	if listOneline {
		for _, s := range snaps {
			fmt.Fprintln(out, snapshot.FormatLine(s))
		}
		return nil
	}

	table, err := ui.Table(versionRows(snaps))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Found %d version(s):\n\n", len(snaps))
	fmt.Fprint(out, table)
	fmt.Fprintln(out)
	return nil
}

func versionRows(snaps []models.Snapshot) [][]string {
	rows := [][]string{{"Version", "Date", "Author", "Message"}}
	for _, s := range snaps {
		rows = append(rows, []string{
			s.ShortHash,
			s.Date.Local().Format("2006-01-02 15:04"),
			s.AuthorName,
			s.Subject(),
		})
	}
	return rows
}
