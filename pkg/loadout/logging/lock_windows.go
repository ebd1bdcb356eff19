//go:build windows

package logging

// Windows has no flock equivalent with the same semantics; the mutex in
// RotatingWriter already serializes writers within the process.
func (w *RotatingWriter) lock() error { return nil }

func (w *RotatingWriter) unlock() {}
