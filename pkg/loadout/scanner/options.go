// Package scanner walks a profile's mod folders and produces a manifest of
// their content digests, consulting per-mod cache records to avoid
// rehashing files whose size and mtime are unchanged.
package scanner

import "github.com/modpack-tools/loadout/pkg/loadout/types"

// Default worker-pool and buffer sizes.
const (
	DefaultHashWorkers = 8
	DefaultBufferSize  = 256 * 1024
)

// Options configures a scan.
type Options struct {
	// Root is the profile's local folder; each top-level directory under
	// it is one mod.
	Root string

	// HashWorkers bounds the digest worker pool. Hashing is CPU and disk
	// bound, so this pool is sized independently from transfer
	// concurrency.
	HashWorkers int

	// BufferSize is the hash read chunk size.
	BufferSize int

	// Force ignores cache records entirely and rehashes every file.
	// This is the repair semantic.
	Force bool

	// OnProgress is called periodically with running stats. It must be
	// safe to call from multiple goroutines.
	OnProgress func(types.ScanStats)
}

// Validate applies defaults for unset values.
func (o *Options) Validate() {
	if o.HashWorkers < 1 {
		o.HashWorkers = DefaultHashWorkers
	}
	if o.BufferSize < 1 {
		o.BufferSize = DefaultBufferSize
	}
}
