//go:build unix

package lock

import (
	"os"
	"syscall"
)

// tryLock takes an exclusive flock without blocking. held reports that
// another process owns it.
func tryLock(fd *os.File) (held bool, err error) {
	err = syscall.Flock(int(fd.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	// EAGAIN and EWOULDBLOCK differ on some older systems
	if err == syscall.EWOULDBLOCK || err == syscall.EAGAIN {
		return true, nil
	}
	return false, err
}

func unlock(fd *os.File) error {
	return syscall.Flock(int(fd.Fd()), syscall.LOCK_UN)
}
