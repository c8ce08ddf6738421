package lifecycle_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	lserr "github.com/pders01/livesnap/internal/errors"
	"github.com/pders01/livesnap/internal/git"
	"github.com/pders01/livesnap/internal/lifecycle"
	"github.com/pders01/livesnap/internal/logging"
	"github.com/pders01/livesnap/internal/models"
	"github.com/pders01/livesnap/internal/project"
	"github.com/pders01/livesnap/internal/snapshot"
	"github.com/pders01/livesnap/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newManager(identity lifecycle.Identity) (*lifecycle.Manager, *testutil.FakeRunner) {
	runner := testutil.NewFakeRunner(git.NewCLI("git", logging.Nop()))
	snaps := snapshot.NewManager(runner, logging.Nop())
	return lifecycle.NewManager(runner, snaps, lifecycle.DefaultTemplates(), identity, logging.Nop()), runner
}

func openProject(t *testing.T) (*testutil.TempProject, project.Handle) {
	t.Helper()
	p := testutil.NewTempProject(t)
	h, err := project.Open(p.Path, project.DefaultMarkerExt)
	require.NoError(t, err)
	return p, h
}

func TestEnsureInitializedProvisionsProject(t *testing.T) {
	p, h := openProject(t)
	m, _ := newManager(lifecycle.Identity{})

	res, err := m.EnsureInitialized(context.Background(), h)
	require.NoError(t, err)
	assert.True(t, res.Created)
	require.NotNil(t, res.Initial)
	assert.Equal(t, models.InitialMessage, res.Initial.Message)

	tmpl := lifecycle.DefaultTemplates()
	assert.Equal(t, string(tmpl.Ignore), p.ReadFile(lifecycle.IgnoreFile))
	assert.Equal(t, string(tmpl.Attributes), p.ReadFile(lifecycle.AttributesFile))

	config := p.ReadFile(filepath.Join(".git", "config"))
	assert.True(t, strings.HasSuffix(config, string(tmpl.ConfigFragment)), "config fragment must be appended")
	assert.Equal(t, "gzip -cdfq", p.Git("config", "--get", "filter.als.clean"))

	assert.Equal(t, 1, p.CommitCount())
	assert.Equal(t, []string{models.InitialMessage}, p.Subjects())
	assert.Equal(t, "", p.Git("status", "--porcelain"))

	tracked := p.Git("ls-files")
	assert.Contains(t, tracked, testutil.SetName)
	assert.Contains(t, tracked, lifecycle.IgnoreFile)
	assert.Contains(t, tracked, lifecycle.AttributesFile)
}

func TestEnsureInitializedStoresSetDecompressed(t *testing.T) {
	p, h := openProject(t)
	m, _ := newManager(lifecycle.Identity{})

	_, err := m.EnsureInitialized(context.Background(), h)
	require.NoError(t, err)

	blob := p.Git("show", "HEAD:"+testutil.SetName)
	assert.True(t, strings.HasPrefix(blob, "<?xml"), "history should hold plain XML")
}

func TestEnsureInitializedIsIdempotent(t *testing.T) {
	p, h := openProject(t)
	m, runner := newManager(lifecycle.Identity{})
	ctx := context.Background()

	_, err := m.EnsureInitialized(ctx, h)
	require.NoError(t, err)

	ignore := p.ReadFile(lifecycle.IgnoreFile)
	config := p.ReadFile(filepath.Join(".git", "config"))
	head := p.Git("rev-parse", "HEAD")
	calls := len(runner.Calls())

	res, err := m.EnsureInitialized(ctx, h)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Nil(t, res.Initial)

	assert.Len(t, runner.Calls(), calls, "second call must not run git")
	assert.Equal(t, ignore, p.ReadFile(lifecycle.IgnoreFile))
	assert.Equal(t, config, p.ReadFile(filepath.Join(".git", "config")))
	assert.Equal(t, head, p.Git("rev-parse", "HEAD"))
	assert.Equal(t, 1, p.CommitCount())
}

func TestEnsureInitializedLeavesForeignRepositoryAlone(t *testing.T) {
	p, h := openProject(t)
	p.Git("init", "--quiet")
	m, runner := newManager(lifecycle.Identity{})

	res, err := m.EnsureInitialized(context.Background(), h)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.Empty(t, runner.Calls())
	assert.False(t, p.FileExists(lifecycle.IgnoreFile))
	assert.Equal(t, 0, p.CommitCount())
}

func TestEnsureInitializedInitialCommitFailure(t *testing.T) {
	p, h := openProject(t)
	m, runner := newManager(lifecycle.Identity{})
	runner.FailOn("commit", lserr.NewGitError("commit", nil, h.Path(), 128, "unable to auto-detect email address", nil))

	res, err := m.EnsureInitialized(context.Background(), h)
	require.Error(t, err)
	assert.True(t, res.Created)
	assert.Nil(t, res.Initial)
	assert.Equal(t, "initial commit", lserr.StepOf(err))
	assert.Equal(t, lserr.KindProcess, lserr.KindOf(err))

	assert.True(t, p.FileExists(".git"), "repository stays initialized")
	assert.True(t, p.FileExists(lifecycle.IgnoreFile))
	assert.Equal(t, 0, p.CommitCount())
}

func TestEnsureInitializedInitFailure(t *testing.T) {
	_, h := openProject(t)
	m, runner := newManager(lifecycle.Identity{})
	runner.FailOn("init", lserr.NewGitError("init", nil, h.Path(), 1, "permission denied", nil))

	res, err := m.EnsureInitialized(context.Background(), h)
	require.Error(t, err)
	assert.False(t, res.Created)
	assert.Equal(t, "initialize repository", lserr.StepOf(err))
	assert.Equal(t, []string{"init"}, runner.Subcommands())
}

func TestEnsureInitializedWritesIdentity(t *testing.T) {
	p, h := openProject(t)
	m, _ := newManager(lifecycle.Identity{Name: "Studio Mac", Email: "studio@example.com"})

	_, err := m.EnsureInitialized(context.Background(), h)
	require.NoError(t, err)
	assert.Equal(t, "Studio Mac", p.Git("config", "--local", "user.name"))
	assert.Equal(t, "studio@example.com", p.Git("config", "--local", "user.email"))
}

func TestEnsureInitializedAppendsToExistingIgnoreFile(t *testing.T) {
	p, h := openProject(t)
	p.CreateFile(lifecycle.IgnoreFile, "Renders/")
	m, _ := newManager(lifecycle.Identity{})

	_, err := m.EnsureInitialized(context.Background(), h)
	require.NoError(t, err)

	ignore := p.ReadFile(lifecycle.IgnoreFile)
	assert.True(t, strings.HasPrefix(ignore, "Renders/\n"))
	assert.Contains(t, ignore, string(lifecycle.DefaultTemplates().Ignore))
}

func TestEnsureInitializedHonorsIgnoreRules(t *testing.T) {
	p, h := openProject(t)
	p.CreateFile("Backup/Song [2026-10-18 120000].als", "old")
	p.CreateFile("Samples/kick.wav.asd", "analysis")
	p.CreateFile("Samples/kick.wav", "RIFF")
	m, _ := newManager(lifecycle.Identity{})

	_, err := m.EnsureInitialized(context.Background(), h)
	require.NoError(t, err)

	tracked := p.Git("ls-files")
	assert.Contains(t, tracked, "Samples/kick.wav")
	assert.NotContains(t, tracked, "Backup/")
	assert.NotContains(t, tracked, ".asd")
}

func TestEnsureInitializedRejectsZeroHandle(t *testing.T) {
	m, runner := newManager(lifecycle.Identity{})
	_, err := m.EnsureInitialized(context.Background(), project.Handle{})
	assert.True(t, lserr.Is(err, lserr.ErrNoProject))
	assert.Empty(t, runner.Calls())
}

func TestDefaultTemplatesAreNotEmpty(t *testing.T) {
	tmpl := lifecycle.DefaultTemplates()
	assert.Contains(t, string(tmpl.Attributes), "*.als filter=als")
	assert.Contains(t, string(tmpl.ConfigFragment), `[filter "als"]`)
	assert.Contains(t, string(tmpl.Ignore), "Backup/")
}
