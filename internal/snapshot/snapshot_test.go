package snapshot_test

import (
	"context"
	"strconv"
	"testing"
	"time"

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

type fixture struct {
	project *testutil.TempProject
	handle  project.Handle
	runner  *testutil.FakeRunner
	manager *snapshot.Manager
}

func setup(t *testing.T, initialize bool) *fixture {
	t.Helper()
	p := testutil.NewTempProject(t)
	runner := testutil.NewFakeRunner(git.NewCLI("git", logging.Nop()))
	manager := snapshot.NewManager(runner, logging.Nop())

	h, err := project.Open(p.Path, project.DefaultMarkerExt)
	require.NoError(t, err)

	if initialize {
		lm := lifecycle.NewManager(runner, manager, lifecycle.DefaultTemplates(), lifecycle.Identity{}, logging.Nop())
		_, err := lm.EnsureInitialized(context.Background(), h)
		require.NoError(t, err)
	}
	return &fixture{project: p, handle: h, runner: runner, manager: manager}
}

func TestCreateRejectsEmptyMessageWithoutRunningGit(t *testing.T) {
	f := setup(t, true)
	before := len(f.runner.Calls())

	for _, msg := range []string{"", "   ", "\n\t "} {
		_, err := f.manager.Create(context.Background(), f.handle, msg)
		require.Error(t, err)
		assert.True(t, lserr.Is(err, lserr.ErrEmptyMessage))
		assert.Equal(t, lserr.KindValidation, lserr.KindOf(err))
	}

	assert.Len(t, f.runner.Calls(), before, "no git process may run for a rejected message")
	assert.Equal(t, 1, f.project.CommitCount())
}

func TestCreateRequiresRepository(t *testing.T) {
	f := setup(t, false)

	_, err := f.manager.Create(context.Background(), f.handle, "first")
	assert.True(t, lserr.Is(err, lserr.ErrNotInitialized))
	assert.Empty(t, f.runner.Calls())

	_, err = f.manager.Create(context.Background(), project.Handle{}, "first")
	assert.True(t, lserr.Is(err, lserr.ErrNoProject))
}

func TestCreateAddsExactlyOneSnapshot(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	before, err := f.manager.List(ctx, f.handle, 0)
	require.NoError(t, err)

	f.project.CreateFile("Samples/kick.wav", "RIFF....WAVE")
	message := `Vocals "take 3" + it's $HOME; rm -rf /`
	created, err := f.manager.Create(ctx, f.handle, message)
	require.NoError(t, err)
	assert.Equal(t, message, created.Message)
	assert.Equal(t, "Test User", created.AuthorName)
	assert.Equal(t, "test@example.com", created.AuthorEmail)
	assert.Equal(t, models.ShortID(created.Hash), created.ShortHash)

	after, err := f.manager.List(ctx, f.handle, 0)
	require.NoError(t, err)
	require.Len(t, after, len(before)+1)
	assert.Equal(t, created.Hash, after[0].Hash)
	assert.Equal(t, message, after[0].Message)
	for _, old := range before {
		assert.NotEqual(t, old.Hash, created.Hash)
	}
}

func TestCreateWithNothingToCommit(t *testing.T) {
	f := setup(t, true)

	_, err := f.manager.Create(context.Background(), f.handle, "no changes")
	require.Error(t, err)
	assert.True(t, lserr.Is(err, lserr.ErrNothingToCommit))
	assert.Equal(t, 1, f.project.CommitCount())
}

func TestCreateReportsCommitFailure(t *testing.T) {
	f := setup(t, true)
	f.project.CreateFile("notes.txt", "x")
	f.runner.FailOn("commit", lserr.NewGitError("commit", nil, f.handle.Path(), 1, "hook rejected", nil))

	_, err := f.manager.Create(context.Background(), f.handle, "will fail")
	require.Error(t, err)
	assert.Equal(t, "commit", lserr.StepOf(err))
	assert.Equal(t, lserr.KindProcess, lserr.KindOf(err))
}

func TestListEmptyRepository(t *testing.T) {
	f := setup(t, false)
	require.NoError(t, git.Open(f.runner, f.handle.Path()).Init(context.Background()))

	snaps, err := f.manager.List(context.Background(), f.handle, 0)
	require.NoError(t, err)
	assert.NotNil(t, snaps)
	assert.Empty(t, snaps)
}

func TestListAfterInitHasOneEntry(t *testing.T) {
	f := setup(t, true)

	snaps, err := f.manager.List(context.Background(), f.handle, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, models.InitialMessage, snaps[0].Message)
}

func TestListNewestFirstAndBounded(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	for _, msg := range []string{"A", "B", "C"} {
		f.project.CreateFile("notes.txt", msg)
		_, err := f.manager.Create(ctx, f.handle, msg)
		require.NoError(t, err)
	}

	snaps, err := f.manager.List(ctx, f.handle, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 4)
	assert.Equal(t, []string{"C", "B", "A", models.InitialMessage}, messages(snaps))
	for i := 0; i+1 < len(snaps); i++ {
		assert.False(t, snaps[i].Date.Before(snaps[i+1].Date), "entry %d is older than entry %d", i, i+1)
	}

	limited, err := f.manager.List(ctx, f.handle, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "B"}, messages(limited))
}

func TestListToleratesSeparatorInMessage(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	message := "drums | bass \x1f pads\n\nsecond paragraph | with pipes"
	f.project.CreateFile("notes.txt", "x")
	_, err := f.manager.Create(ctx, f.handle, message)
	require.NoError(t, err)

	snaps, err := f.manager.List(ctx, f.handle, 1)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, message, snaps[0].Message)
	assert.Equal(t, "drums | bass \x1f pads", snaps[0].Subject())
}

func TestCreateListRoundTripsWhitespace(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{"trailing spaces", "kick louder   "},
		{"leading blank lines", "\n\nintro"},
		{"blank line run", "a\n\n\n\nb"},
		{"trailing newline", "outro\n"},
		{"indented body", "bridge\n\n  - pad\n\t- lead"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, true)
			ctx := context.Background()

			f.project.CreateFile("notes.txt", strconv.Itoa(i))
			created, err := f.manager.Create(ctx, f.handle, tt.message)
			require.NoError(t, err)
			assert.Equal(t, tt.message, created.Message)

			snaps, err := f.manager.List(ctx, f.handle, 1)
			require.NoError(t, err)
			require.Len(t, snaps, 1)
			assert.Equal(t, tt.message, snaps[0].Message)
		})
	}
}

func TestGetAndStatus(t *testing.T) {
	f := setup(t, true)
	ctx := context.Background()

	head := f.project.Git("rev-parse", "HEAD")
	got, err := f.manager.Get(ctx, f.handle, head[:7])
	require.NoError(t, err)
	assert.Equal(t, head, got.Hash)

	_, err = f.manager.Get(ctx, f.handle, "HEAD")
	assert.True(t, lserr.Is(err, lserr.ErrInvalidIdentifier))

	st, err := f.manager.Status(ctx, f.handle)
	require.NoError(t, err)
	assert.False(t, st.Dirty)

	f.project.CreateFile("Samples/snare.wav", "RIFF")
	st, err = f.manager.Status(ctx, f.handle)
	require.NoError(t, err)
	assert.True(t, st.Dirty)
	assert.Equal(t, []string{"Samples/snare.wav"}, st.Files)
}

func TestParseLog(t *testing.T) {
	out := "0123456789abcdef0123456789abcdef01234567\x1fAda\x1fada@example.com\x1f2026-10-18T14:03:00+02:00\x1fMix v2\n\x00" +
		"\n89abcdef0123456789abcdef0123456789abcdef\x1fAda\x1fada@example.com\x1f2026-10-17T09:00:00Z\x1fInitial commit\n\x00"

	snaps, err := snapshot.ParseLog(out)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "0123456", snaps[0].ShortHash)
	assert.Equal(t, "Mix v2", snaps[0].Message)
	assert.True(t, snaps[0].Date.Equal(time.Date(2026, 10, 18, 12, 3, 0, 0, time.UTC)))
	assert.Equal(t, "Initial commit", snaps[1].Message)

	empty, err := snapshot.ParseLog("")
	require.NoError(t, err)
	assert.Empty(t, empty)

	_, err = snapshot.ParseLog("abc\x1fonly two\x00")
	assert.Error(t, err)

	_, err = snapshot.ParseLog("abc\x1fa\x1fb\x1fyesterday\x1fmsg\x00")
	assert.Error(t, err)
}

func TestFormatLine(t *testing.T) {
	s := models.Snapshot{
		ShortHash:  "abc1234",
		AuthorName: "Ada",
		Date:       time.Date(2026, 10, 18, 14, 3, 0, 0, time.Local),
		Message:    "Bounce\n\ndetails",
	}
	assert.Equal(t, "abc1234  2026-10-18 14:03  Bounce  (Ada)", snapshot.FormatLine(s))
}

func messages(snaps []models.Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.Message
	}
	return out
}
