package syncer

import "time"

// Defaults applied by Options.Validate.
const (
	DefaultWorkers      = 4
	DefaultRetries      = 3
	DefaultFreeHeadroom = 64 * 1024 * 1024
)

// Progress is a point-in-time view of a running sync, delivered to the
// OnProgress callback after every completed unit.
type Progress struct {
	Done  int
	Total int
	Bytes int64
}

// Options configures a sync run.
type Options struct {
	// Root is the local mod repository folder.
	Root string

	// ProfileID identifies the profile being synced.
	ProfileID string

	// Workers bounds concurrent transfers.
	Workers int

	// Retries is the number of additional attempts after a failed
	// transfer. Zero means the default; use a negative value to
	// disable retries. Cancellation is never retried.
	Retries int

	// UnitTimeout bounds each transfer attempt. Zero means no per-unit
	// deadline.
	UnitTimeout time.Duration

	// FreeHeadroom is the slack required on top of the plan's transfer
	// bytes during the disk space preflight.
	FreeHeadroom int64

	// RateLimit caps aggregate download bandwidth in bytes per second.
	// Zero means unlimited.
	RateLimit int64

	// OnProgress, when set, receives progress after each completed unit.
	// It may be called from multiple goroutines.
	OnProgress func(Progress)
}

// Validate applies defaults for unset fields.
func (o *Options) Validate() {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.Retries == 0 {
		o.Retries = DefaultRetries
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.FreeHeadroom <= 0 {
		o.FreeHeadroom = DefaultFreeHeadroom
	}
}
