//go:build windows

package syncer

import "golang.org/x/sys/windows"

// freeBytes reports the bytes available to unprivileged writes on the
// volume holding path. ok is false when the answer is unknown.
func freeBytes(path string) (free int64, ok bool) {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, false
	}
	var avail, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(p, &avail, &total, &totalFree); err != nil {
		return 0, false
	}
	return int64(avail), true
}
