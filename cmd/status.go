package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/pders01/livesnap/internal/ui"
	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show files changed since the last version",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	h, err := openProject(false)
	if err != nil {
		return err
	}

	st, err := newServices().snapshots.Status(commandContext(cmd), h)
	if err != nil {
		return err
	}

	if statusJSON {
		output, err := json.MarshalIndent(st, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(output))
		return nil
	}

	if !st.Dirty {
		ui.Success(out, "No unsaved changes")
		return nil
	}
	ui.Warn(out, "%d unsaved change(s):", len(st.Files))
	for _, f := range st.Files {
		fmt.Fprintf(out, "  %s\n", f)
	}
	return nil
}
