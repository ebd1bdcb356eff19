//go:build !windows

package logging

import "golang.org/x/sys/unix"

// lock acquires an exclusive advisory lock on the log file.
func (w *RotatingWriter) lock() error {
	return unix.Flock(int(w.file.Fd()), unix.LOCK_EX)
}

// unlock releases the advisory lock.
func (w *RotatingWriter) unlock() {
	_ = unix.Flock(int(w.file.Fd()), unix.LOCK_UN)
}
