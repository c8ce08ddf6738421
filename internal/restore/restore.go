// Package restore brings a project's working tree back to an earlier
// version.
//
// Restoring is a two-phase exchange. The first call inspects the working
// tree; when it holds uncommitted work the call returns StatusNeedsDecision
// with the affected files and changes nothing. The caller then repeats the
// call with one of DecisionCancel, DecisionDiscard or DecisionCommit.
package restore

import (
	"context"
	"fmt"
	"strings"

	lserr "github.com/pders01/livesnap/internal/errors"
	"github.com/pders01/livesnap/internal/git"
	"github.com/pders01/livesnap/internal/logging"
	"github.com/pders01/livesnap/internal/models"
	"github.com/pders01/livesnap/internal/project"
	"github.com/pterm/pterm"
)

// Decision is the caller's disposition of uncommitted work
type Decision int

const (
	// DecisionNone means the caller has not decided yet
	DecisionNone Decision = iota
	DecisionCancel
	DecisionDiscard
	DecisionCommit
)

func (d Decision) String() string {
	switch d {
	case DecisionCancel:
		return "cancel"
	case DecisionDiscard:
		return "discard"
	case DecisionCommit:
		return "commit"
	default:
		return "none"
	}
}

// ParseDecision maps a user-supplied word to a Decision
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return DecisionNone, nil
	case "cancel", "abort":
		return DecisionCancel, nil
	case "discard":
		return DecisionDiscard, nil
	case "commit", "save":
		return DecisionCommit, nil
	default:
		return DecisionNone, fmt.Errorf("%w: unknown decision %q (want cancel, discard or commit)", lserr.ErrValidation, s)
	}
}

// Status is the terminal state of one Restore call
type Status int

const (
	StatusNeedsDecision Status = iota
	StatusCancelled
	StatusSucceeded
)

func (s Status) String() string {
	switch s {
	case StatusCancelled:
		return "cancelled"
	case StatusSucceeded:
		return "succeeded"
	default:
		return "needs-decision"
	}
}

// MarshalText renders the status by name in JSON output
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// MarshalText renders the decision by name in JSON output
func (d Decision) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Outcome describes what a Restore call did. A failed call returns a nil
// Outcome and an error instead.
type Outcome struct {
	Status Status           `json:"status"`
	Target *models.Snapshot `json:"target"`
	// Changes lists the uncommitted files found when the call started
	Changes  []string `json:"changes,omitempty"`
	Decision Decision `json:"decision"`

	// AutoSave is the snapshot recorded for DecisionCommit
	AutoSave *models.Snapshot `json:"auto_save,omitempty"`
	// Trailing is the snapshot recording the restored state
	Trailing *models.Snapshot `json:"trailing,omitempty"`
	// TrailingErr is set when files were restored but recording them failed
	TrailingErr error `json:"-"`
	// LeftUncommitted is true when auto-commit is off and the restored files
	// sit in the working tree for inspection
	LeftUncommitted bool `json:"left_uncommitted,omitempty"`
	// Unchanged is true when the target matched the working tree already
	Unchanged bool `json:"unchanged,omitempty"`
}

// Snapshots is the part of the snapshot manager the orchestrator drives
type Snapshots interface {
	Create(ctx context.Context, h project.Handle, message string) (*models.Snapshot, error)
	Get(ctx context.Context, h project.Handle, id string) (*models.Snapshot, error)
}

// Options configure an Orchestrator
type Options struct {
	// AutoCommit records the restored state as a new snapshot
	AutoCommit bool
}

// Orchestrator runs the restore state machine. It holds no per-project
// state; callers serialize calls for the same project.
type Orchestrator struct {
	run       git.Runner
	snapshots Snapshots
	opts      Options
	logger    *pterm.Logger
}

// New creates an orchestrator
func New(run git.Runner, snapshots Snapshots, opts Options, logger *pterm.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Orchestrator{run: run, snapshots: snapshots, opts: opts, logger: logger}
}

// Restore moves the working tree of h to the version identified by target.
// See the package documentation for the decision protocol.
func (o *Orchestrator) Restore(ctx context.Context, h project.Handle, target string, decision Decision) (*Outcome, error) {
	if h.IsZero() {
		return nil, lserr.ErrNoProject
	}
	target = strings.TrimSpace(target)
	if !git.ValidCommitID(target) {
		return nil, lserr.Wrapf(lserr.ErrInvalidIdentifier, "%q", target)
	}

	snap, err := o.snapshots.Get(ctx, h, target)
	if err != nil {
		return nil, lserr.AtStep("resolve version", err)
	}
	out := &Outcome{Target: snap, Decision: decision}
	repo := git.Open(o.run, h.Path())
	log := o.logger

	changes, err := dirtyFiles(ctx, repo)
	if err != nil {
		return nil, lserr.AtStep("check status", err)
	}
	out.Changes = changes

	if len(changes) > 0 {
		switch decision {
		case DecisionNone:
			out.Status = StatusNeedsDecision
			return out, nil
		case DecisionCancel:
			log.Info("restore cancelled", log.Args("project", h.Path(), "target", snap.ShortHash))
			out.Status = StatusCancelled
			return out, nil
		case DecisionDiscard:
			if err := discard(ctx, repo); err != nil {
				return nil, lserr.AtStep("discard changes", err)
			}
			log.Info("uncommitted changes discarded", log.Args("project", h.Path(), "files", len(changes)))
		case DecisionCommit:
			saved, err := o.snapshots.Create(ctx, h, models.AutoSaveMessage(snap.ShortHash))
			if err != nil {
				return nil, lserr.AtStep("save changes", err)
			}
			out.AutoSave = saved
		default:
			return nil, lserr.Wrapf(lserr.ErrValidation, "unknown decision %d", int(decision))
		}

		again, err := dirtyFiles(ctx, repo)
		if err != nil {
			return nil, lserr.AtStep("check status", err)
		}
		if len(again) > 0 {
			return nil, lserr.AtStep("checkout", &lserr.DirtyTreeError{Files: again})
		}
	}

	if err := repo.CheckoutFiles(ctx, snap.Hash); err != nil {
		return nil, lserr.AtStep("checkout", err)
	}
	out.Status = StatusSucceeded
	log.Info("files restored", log.Args("project", h.Path(), "target", snap.ShortHash))

	if !o.opts.AutoCommit {
		out.LeftUncommitted = true
		return out, nil
	}

	trailing, err := o.snapshots.Create(ctx, h, models.RestoreMessage(snap.ShortHash))
	switch {
	case lserr.Is(err, lserr.ErrNothingToCommit):
		out.Unchanged = true
	case err != nil:
		out.TrailingErr = lserr.AtStep("commit restored version", err)
		log.Warn("restored files but failed to record them", log.Args("project", h.Path(), "error", err.Error()))
	default:
		out.Trailing = trailing
	}
	return out, nil
}

func dirtyFiles(ctx context.Context, repo *git.Repo) ([]string, error) {
	entries, err := repo.Status(ctx)
	if err != nil {
		return nil, err
	}
	return git.Paths(entries), nil
}

// discard makes the working tree match the most recent snapshot exactly
func discard(ctx context.Context, repo *git.Repo) error {
	if err := repo.ResetHard(ctx); err != nil {
		return err
	}
	return repo.Clean(ctx)
}
