//go:build !windows

package syncer

import "golang.org/x/sys/unix"

// freeBytes reports the bytes available to unprivileged writes on the
// filesystem holding path. ok is false when the answer is unknown.
func freeBytes(path string) (free int64, ok bool) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, false
	}
	return int64(st.Bavail) * int64(st.Bsize), true
}
