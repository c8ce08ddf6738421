// Package lock serializes livesnap processes working on the same project.
//
// The lock is an exclusive flock on a file in the system temp directory whose
// name is derived from the project's absolute path. The kernel drops the
// lock when the holder exits, so a crashed process never leaves a stale lock
// behind. Locking needs a Unix-like system; elsewhere Acquire fails with
// ErrUnsupported.
package lock

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	lserr "github.com/pders01/livesnap/internal/errors"
)

// ErrUnsupported is returned by Acquire on systems without flock
var ErrUnsupported = fmt.Errorf("%w: project locking is only supported on Unix-like systems", lserr.ErrFilesystem)

// Locker guards one project folder
type Locker struct {
	lockFile string
	lockFd   *os.File
}

// New creates a Locker for the project at projectPath
func New(projectPath string) *Locker {
	hash := fmt.Sprintf("%x", sha256.Sum256([]byte(filepath.Clean(projectPath))))[:16]
	return &Locker{
		lockFile: filepath.Join(os.TempDir(), fmt.Sprintf("livesnap-%s.lock", hash)),
	}
}

// Path returns the lock file path
func (l *Locker) Path() string {
	return l.lockFile
}

// Acquire takes the lock without blocking. A lock held elsewhere yields an
// error matching ErrLocked.
func (l *Locker) Acquire() error {
	if l.lockFd != nil {
		return nil
	}

	fd, err := os.OpenFile(l.lockFile, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return lserr.NewFilesystemError("open", l.lockFile, err)
	}

	held, err := tryLock(fd)
	if err != nil || held {
		_ = fd.Close()
	}
	if err != nil {
		if lserr.Is(err, ErrUnsupported) {
			return err
		}
		return lserr.NewFilesystemError("lock", l.lockFile, err)
	}
	if held {
		if pid := readPid(l.lockFile); pid > 0 {
			return lserr.Wrapf(lserr.ErrLocked, "held by process %d", pid)
		}
		return lserr.ErrLocked
	}

	if err := fd.Truncate(0); err == nil {
		_, _ = fd.WriteAt([]byte(strconv.Itoa(os.Getpid())), 0)
	}
	l.lockFd = fd
	return nil
}

// Release drops the lock. Releasing an unheld lock is a no-op.
func (l *Locker) Release() error {
	if l.lockFd == nil {
		return nil
	}
	fd := l.lockFd
	l.lockFd = nil

	unlockErr := unlock(fd)
	if err := fd.Close(); err != nil {
		return lserr.NewFilesystemError("close", l.lockFile, err)
	}
	if unlockErr != nil {
		return lserr.NewFilesystemError("unlock", l.lockFile, unlockErr)
	}
	return nil
}

func readPid(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
