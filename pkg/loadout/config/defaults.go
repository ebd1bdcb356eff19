package config

// Default tuning values applied when neither the config file nor
// environment variables override them.
const (
	// DefaultScanWorkers is the hash worker pool size for local scans.
	DefaultScanWorkers = 8

	// DefaultSyncWorkers bounds concurrent downloads.
	DefaultSyncWorkers = 4

	// DefaultSyncRetries is the number of extra attempts per file.
	DefaultSyncRetries = 3

	// DefaultUnitTimeout bounds a single transfer attempt.
	DefaultUnitTimeout = "10m"

	// DefaultFreeHeadroom is the disk space slack required beyond the
	// planned download size.
	DefaultFreeHeadroom = "64MB"
)
