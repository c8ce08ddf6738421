//go:build unix

package lock

import (
	"os"
	"strconv"
	"strings"
	"testing"

	lserr "github.com/pders01/livesnap/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireExcludesSecondHolder(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	first := New("/music/Song Project")
	second := New("/music/Song Project")
	require.Equal(t, first.Path(), second.Path())

	require.NoError(t, first.Acquire())
	defer first.Release()

	err := second.Acquire()
	require.Error(t, err)
	assert.True(t, lserr.Is(err, lserr.ErrLocked))
	assert.Equal(t, lserr.KindStateConflict, lserr.KindOf(err))
	assert.Contains(t, err.Error(), strconv.Itoa(os.Getpid()))

	require.NoError(t, first.Release())
	require.NoError(t, second.Acquire())
	require.NoError(t, second.Release())
}

func TestLocksAreKeyedByProject(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	a := New("/music/A Project")
	b := New("/music/B Project")
	assert.NotEqual(t, a.Path(), b.Path())
	assert.Equal(t, New("/music/A Project/").Path(), a.Path(), "trailing slash must not change the key")
	assert.True(t, strings.HasPrefix(a.Path(), os.TempDir()))

	require.NoError(t, a.Acquire())
	require.NoError(t, b.Acquire())
	assert.NoError(t, a.Release())
	assert.NoError(t, b.Release())
}

func TestAcquireAndReleaseAreIdempotent(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	l := New("/music/Song Project")
	assert.NoError(t, l.Release())
	require.NoError(t, l.Acquire())
	require.NoError(t, l.Acquire())
	assert.NoError(t, l.Release())
	assert.NoError(t, l.Release())
}

func TestUnsupportedIsFilesystemFailure(t *testing.T) {
	assert.True(t, lserr.Is(ErrUnsupported, lserr.ErrFilesystem))
	assert.Equal(t, lserr.KindFilesystem, lserr.KindOf(ErrUnsupported))
	assert.False(t, lserr.Is(ErrUnsupported, lserr.ErrLocked))
}
