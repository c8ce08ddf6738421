package lifecycle

import (
	"bytes"
	"context"
	_ "embed"
	"os"
	"path/filepath"

	lserr "github.com/pders01/livesnap/internal/errors"
	"github.com/pders01/livesnap/internal/git"
	"github.com/pders01/livesnap/internal/logging"
	"github.com/pders01/livesnap/internal/models"
	"github.com/pders01/livesnap/internal/project"
	"github.com/pterm/pterm"
)

const (
	IgnoreFile     = ".gitignore"
	AttributesFile = ".gitattributes"
)

var (
	//go:embed templates/gitignore
	defaultIgnore []byte

	//go:embed templates/gitattributes
	defaultAttributes []byte

	//go:embed templates/config
	defaultConfig []byte
)

// Templates are the static payloads written into a freshly provisioned
// project. They are consumed verbatim.
type Templates struct {
	Ignore         []byte
	Attributes     []byte
	ConfigFragment []byte
}

// DefaultTemplates returns the templates for Ableton Live projects
func DefaultTemplates() Templates {
	return Templates{
		Ignore:         defaultIgnore,
		Attributes:     defaultAttributes,
		ConfigFragment: defaultConfig,
	}
}

// Identity is an optional commit identity written to the local config
type Identity struct {
	Name  string
	Email string
}

// Result reports what EnsureInitialized did
type Result struct {
	// Created is true only when this call provisioned the repository
	Created bool `json:"created"`
	// Initial is the initial snapshot, when it was recorded
	Initial *models.Snapshot `json:"initial,omitempty"`
}

// Committer records the initial snapshot. The snapshot manager satisfies it.
type Committer interface {
	Create(ctx context.Context, h project.Handle, message string) (*models.Snapshot, error)
}

// Manager provisions version control for project folders
type Manager struct {
	run       git.Runner
	committer Committer
	templates Templates
	identity  Identity
	logger    *pterm.Logger
}

// NewManager creates a lifecycle manager
func NewManager(run git.Runner, committer Committer, templates Templates, identity Identity, logger *pterm.Logger) *Manager {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Manager{
		run:       run,
		committer: committer,
		templates: templates,
		identity:  identity,
		logger:    logger,
	}
}

// EnsureInitialized puts the project under version control if it is not
// already. An existing repository is left untouched. When the initial
// snapshot fails the repository stays provisioned and the error carries the
// "initial commit" step.
func (m *Manager) EnsureInitialized(ctx context.Context, h project.Handle) (Result, error) {
	if h.IsZero() {
		return Result{}, lserr.ErrNoProject
	}

	exists, err := git.HasMetadataDir(h.Path())
	if err != nil {
		return Result{}, err
	}
	if exists {
		m.logger.Debug("project already under version control", m.logger.Args("project", h.Path()))
		return Result{}, nil
	}

	repo := git.Open(m.run, h.Path())

	m.logger.Info("initializing repository", m.logger.Args("project", h.Path()))
	if err := repo.Init(ctx); err != nil {
		return Result{}, lserr.AtStep("initialize repository", err)
	}

	res := Result{Created: true}

	if err := writeTemplate(filepath.Join(h.Path(), IgnoreFile), m.templates.Ignore); err != nil {
		return res, lserr.AtStep("write ignore rules", err)
	}
	if err := writeTemplate(filepath.Join(h.Path(), AttributesFile), m.templates.Attributes); err != nil {
		return res, lserr.AtStep("write attributes", err)
	}
	if err := appendFile(repo.ConfigPath(), m.templates.ConfigFragment); err != nil {
		return res, lserr.AtStep("configure filters", err)
	}

	if m.identity.Name != "" {
		if err := repo.SetConfig(ctx, "user.name", m.identity.Name); err != nil {
			return res, lserr.AtStep("configure identity", err)
		}
	}
	if m.identity.Email != "" {
		if err := repo.SetConfig(ctx, "user.email", m.identity.Email); err != nil {
			return res, lserr.AtStep("configure identity", err)
		}
	}

	initial, err := m.committer.Create(ctx, h, models.InitialMessage)
	if err != nil {
		m.logger.Warn("initial commit failed", m.logger.Args("project", h.Path(), "error", err.Error()))
		return res, lserr.AtStep("initial commit", err)
	}
	res.Initial = initial

	m.logger.Info("repository ready", m.logger.Args("project", h.Path(), "initial", initial.ShortHash))
	return res, nil
}

// writeTemplate writes content to path. An existing file keeps its rules and
// gets the template appended after them.
func writeTemplate(path string, content []byte) error {
	existing, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		if err := os.WriteFile(path, content, 0644); err != nil {
			return lserr.NewFilesystemError("write", path, err)
		}
		return nil
	case err != nil:
		return lserr.NewFilesystemError("read", path, err)
	}

	if bytes.Contains(existing, content) {
		return nil
	}
	if len(existing) > 0 && !bytes.HasSuffix(existing, []byte("\n")) {
		content = append([]byte("\n"), content...)
	}
	return appendFile(path, content)
}

func appendFile(path string, content []byte) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return lserr.NewFilesystemError("open", path, err)
	}
	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		return lserr.NewFilesystemError("append", path, err)
	}
	if err := f.Close(); err != nil {
		return lserr.NewFilesystemError("close", path, err)
	}
	return nil
}
