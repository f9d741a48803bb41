//go:build unix

package store

import (
	"os"

	"golang.org/x/sys/unix"
)

// flockExclusive blocks until an exclusive lock on f is held.
func flockExclusive(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

func flockUnlock(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
