package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pders01/livesnap/internal/config"
	lserr "github.com/pders01/livesnap/internal/errors"
	"github.com/pders01/livesnap/internal/models"
	"github.com/pders01/livesnap/internal/restore"
	"github.com/pders01/livesnap/internal/ui"
	"github.com/spf13/cobra"
)

var (
	restoreDiscard  bool
	restoreCommit   bool
	restoreCancel   bool
	restoreNoCommit bool
	restoreYes      bool
	restoreJSON     bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore <version>",
	Short: "Bring the project folder back to an earlier version",
	Long: `Replace the project files with the ones stored in a version.
Files saved only in later versions are kept, so samples and sets added
since then stay in the folder and in the restored version.

If the folder has unsaved changes you decide what happens to them:
  cancel   - stop and leave everything as it is
  discard  - throw the changes away (untracked files are deleted)
  commit   - save them as a version first, then restore

Without one of --cancel, --discard or --commit you are asked
interactively. Afterwards the restored state is saved as a new version unless --no-commit is given or
restore.auto_commit is false.

Examples:
  livesnap restore 3f2a1c9
  livesnap restore 3f2a1c9 --commit --yes
  livesnap restore 3f2a1c9 --no-commit`,
	Args: cobra.ExactArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)

	restoreCmd.Flags().BoolVar(&restoreCancel, "cancel", false, "Stop if there are unsaved changes")
	restoreCmd.Flags().BoolVar(&restoreDiscard, "discard", false, "Throw unsaved changes away")
	restoreCmd.Flags().BoolVar(&restoreCommit, "commit", false, "Save unsaved changes as a version first")
	restoreCmd.MarkFlagsMutuallyExclusive("cancel", "discard", "commit")
	restoreCmd.Flags().BoolVar(&restoreNoCommit, "no-commit", false, "Leave the restored files uncommitted")
	restoreCmd.Flags().BoolVarP(&restoreYes, "yes", "y", false, "Don't ask for confirmation")
	restoreCmd.Flags().BoolVar(&restoreJSON, "json", false, "Output the outcome as JSON")
}

func runRestore(cmd *cobra.Command, args []string) error {
	id := args[0]
	decision, err := decisionFromFlags()
	if err != nil {
		return err
	}

	h, err := openProject(false)
	if err != nil {
		return err
	}

	svc := newServices()
	ctx := commandContext(cmd)
	orch := svc.restorer(config.GetAutoCommit() && !restoreNoCommit)

	return withLock(h, func() error {
		target, err := svc.snapshots.Get(ctx, h, id)
		if err != nil {
			return err
		}

		if !restoreYes {
			if !ui.Interactive() {
				return lserr.Wrapf(lserr.ErrValidation, "restoring %s replaces the project files; pass --yes to confirm", target.ShortHash)
			}
			ok, err := ui.Confirm(fmt.Sprintf("Restore version %s (%s)?", target.ShortHash, target.Subject()), false)
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(out, "Restore cancelled")
				return nil
			}
		}

		outcome, err := orch.Restore(ctx, h, target.Hash, decision)
		if err != nil {
			return err
		}

		if outcome.Status == restore.StatusNeedsDecision {
			if decision, err = askDecision(outcome.Changes); err != nil {
				return err
			}
			if outcome, err = orch.Restore(ctx, h, target.Hash, decision); err != nil {
				return err
			}
		}

		return printOutcome(outcome)
	})
}

// decisionFromFlags maps the decision flags onto a Decision
func decisionFromFlags() (restore.Decision, error) {
	var words []string
	for word, set := range map[string]bool{"cancel": restoreCancel, "discard": restoreDiscard, "commit": restoreCommit} {
		if set {
			words = append(words, word)
		}
	}
	if len(words) > 1 {
		return restore.DecisionNone, lserr.Wrapf(lserr.ErrValidation, "only one of --cancel, --discard or --commit may be given")
	}
	return restore.ParseDecision(strings.Join(words, ""))
}

// askDecision lets the user choose what happens to uncommitted files
func askDecision(changes []string) (restore.Decision, error) {
	if !ui.Interactive() {
		return restore.DecisionNone, lserr.Wrapf(&lserr.DirtyTreeError{Files: changes},
			"pass --cancel, --discard or --commit")
	}

	ui.Warn(out, "The project folder has unsaved changes:")
	for _, f := range changes {
		fmt.Fprintf(out, "  %s\n", f)
	}

	options := map[string]restore.Decision{
		"Save them as a version first": restore.DecisionCommit,
		"Discard them":                 restore.DecisionDiscard,
		"Cancel":                       restore.DecisionCancel,
	}
	choice, err := ui.Select("What should happen to them?", []string{
		"Save them as a version first",
		"Discard them",
		"Cancel",
	})
	if err != nil {
		return restore.DecisionNone, err
	}
	return options[choice], nil
}

func printOutcome(o *restore.Outcome) error {
	if restoreJSON {
		output, err := json.MarshalIndent(o, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Fprintln(out, string(output))
		return o.TrailingErr
	}

	if o.Status == restore.StatusCancelled {
		fmt.Fprintln(out, "Restore cancelled, nothing was changed")
		return nil
	}

	if o.AutoSave != nil {
		fmt.Fprintf(out, "  Saved your changes as %s\n", ui.HashTag.Render(o.AutoSave.ShortHash))
	}
	if o.Decision == restore.DecisionDiscard {
		fmt.Fprintf(out, "  Discarded %d changed file(s)\n", len(o.Changes))
	}
	ui.Success(out, "Restored version %s: %s", ui.HashTag.Render(o.Target.ShortHash), o.Target.Subject())

	switch {
	case o.TrailingErr != nil:
		ui.Warn(out, "The files were restored but recording the restore failed: %v", o.TrailingErr)
		ui.Warn(out, "Run: livesnap save %q", models.RestoreMessage(o.Target.ShortHash))
		return o.TrailingErr
	case o.Trailing != nil:
		fmt.Fprintf(out, "  Recorded as version %s\n", ui.HashTag.Render(o.Trailing.ShortHash))
	case o.Unchanged:
		fmt.Fprintln(out, "  The project already matched this version")
	case o.LeftUncommitted:
		fmt.Fprintln(out, "  The restored files are not saved yet; use livesnap save to keep them")
	}
	return nil
}
