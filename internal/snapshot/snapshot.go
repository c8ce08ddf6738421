package snapshot

import (
	"context"
	"fmt"
	"strings"
	"time"

	lserr "github.com/pders01/livesnap/internal/errors"
	"github.com/pders01/livesnap/internal/git"
	"github.com/pders01/livesnap/internal/logging"
	"github.com/pders01/livesnap/internal/models"
	"github.com/pders01/livesnap/internal/project"
	"github.com/pterm/pterm"
)

// DefaultLimit bounds List when the caller passes no limit
const DefaultLimit = 50

const (
	fieldSep = "\x1f"
	// hash, author name, author email, ISO-8601 author date, raw message
	logFormat = "%H%x1f%an%x1f%ae%x1f%aI%x1f%B"
	numFields = 5
)

// Manager creates and lists snapshots of a project folder
type Manager struct {
	run    git.Runner
	logger *pterm.Logger
}

// NewManager creates a snapshot manager
func NewManager(run git.Runner, logger *pterm.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{run: run, logger: logger}
}

// Create stages every change in the working tree and commits it with
// message verbatim. Empty or whitespace-only messages are rejected before
// git is invoked.
func (m *Manager) Create(ctx context.Context, h project.Handle, message string) (*models.Snapshot, error) {
	if strings.TrimSpace(message) == "" {
		return nil, lserr.ErrEmptyMessage
	}
	repo, err := m.open(h)
	if err != nil {
		return nil, err
	}

	if err := repo.AddAll(ctx); err != nil {
		return nil, lserr.AtStep("stage changes", err)
	}

	entries, err := repo.Status(ctx)
	if err != nil {
		return nil, lserr.AtStep("check status", err)
	}
	if len(entries) == 0 {
		return nil, lserr.ErrNothingToCommit
	}

	if err := repo.Commit(ctx, message); err != nil {
		return nil, lserr.AtStep("commit", err)
	}

	snap, err := m.get(ctx, repo, "HEAD")
	if err != nil {
		return nil, lserr.AtStep("read new version", err)
	}
	m.logger.Info("version created", m.logger.Args("project", h.Path(), "version", snap.ShortHash, "files", len(entries)))
	return snap, nil
}

// List returns up to limit snapshots, newest first. A repository without
// commits yields an empty list, not an error.
func (m *Manager) List(ctx context.Context, h project.Handle, limit int) ([]models.Snapshot, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	repo, err := m.open(h)
	if err != nil {
		return nil, err
	}

	_, ok, err := repo.Head(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.Snapshot{}, nil
	}

	out, err := repo.Log(ctx, logFormat, limit)
	if err != nil {
		return nil, err
	}
	return ParseLog(out)
}

// Get returns the snapshot identified by id (an abbreviated or full hash)
func (m *Manager) Get(ctx context.Context, h project.Handle, id string) (*models.Snapshot, error) {
	repo, err := m.open(h)
	if err != nil {
		return nil, err
	}
	hash, err := repo.ResolveCommit(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.get(ctx, repo, hash)
}

// Status returns the working directory status of the project
func (m *Manager) Status(ctx context.Context, h project.Handle) (models.WorkingStatus, error) {
	repo, err := m.open(h)
	if err != nil {
		return models.WorkingStatus{}, err
	}
	entries, err := repo.Status(ctx)
	if err != nil {
		return models.WorkingStatus{}, err
	}
	return models.NewWorkingStatus(git.Paths(entries)), nil
}

func (m *Manager) get(ctx context.Context, repo *git.Repo, rev string) (*models.Snapshot, error) {
	out, err := repo.Log(ctx, logFormat, 1, rev)
	if err != nil {
		return nil, err
	}
	snaps, err := ParseLog(out)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, lserr.Wrapf(lserr.ErrUnknownSnapshot, "%s", rev)
	}
	return &snaps[0], nil
}

func (m *Manager) open(h project.Handle) (*git.Repo, error) {
	if h.IsZero() {
		return nil, lserr.ErrNoProject
	}
	ok, err := git.HasMetadataDir(h.Path())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, lserr.Wrapf(lserr.ErrNotInitialized, "%s", h.Path())
	}
	return git.Open(m.run, h.Path()), nil
}

// ParseLog parses NUL-terminated records produced with logFormat. The
// message is the last field and split off with SplitN, so it may contain
// the field separator without corrupting the record.
func ParseLog(out string) ([]models.Snapshot, error) {
	snaps := []models.Snapshot{}
	for _, record := range strings.Split(out, "\x00") {
		record = strings.TrimLeft(record, "\n")
		if record == "" {
			continue
		}
		fields := strings.SplitN(record, fieldSep, numFields)
		if len(fields) != numFields {
			return nil, fmt.Errorf("malformed log record %q: expected %d fields, got %d", record, numFields, len(fields))
		}
		date, err := time.Parse(time.RFC3339, fields[3])
		if err != nil {
			return nil, fmt.Errorf("malformed date in log record: %w", err)
		}
		snaps = append(snaps, models.Snapshot{
			Hash:        fields[0],
			ShortHash:   models.ShortID(fields[0]),
			AuthorName:  fields[1],
			AuthorEmail: fields[2],
			Date:        date,
			Message:     strings.TrimSuffix(fields[4], "\n"),
		})
	}
	return snaps, nil
}

// FormatLine renders a snapshot as one line of history:
// <short>  <YYYY-MM-DD HH:MM>  <subject>  (<author>)
func FormatLine(s models.Snapshot) string {
	return fmt.Sprintf("%s  %s  %s  (%s)", s.ShortHash, s.Date.Local().Format("2006-01-02 15:04"), s.Subject(), s.AuthorName)
}
