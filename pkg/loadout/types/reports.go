package types

import "time"

// ScanError pairs a path with the error encountered while scanning it.
// Per-file scan errors are collected, not fatal; a single locked file must
// not abort a scan touching thousands.
type ScanError struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// ScanStats summarizes a scan's work.
type ScanStats struct {
	FilesScanned int64         `json:"files_scanned"`
	BytesScanned int64         `json:"bytes_scanned"`
	CacheHits    int64         `json:"cache_hits"`
	CacheMisses  int64         `json:"cache_misses"`
	Elapsed      time.Duration `json:"elapsed"`
}

// ScanReport is the result of scanning a profile's local folder.
type ScanReport struct {
	Manifest *Manifest              `json:"manifest"`
	Records  map[string]CacheRecord `json:"-"`
	Stats    ScanStats              `json:"stats"`
	Errors   []ScanError            `json:"errors,omitempty"`
}

// DriftEntry describes one file's divergence from the baseline.
type DriftEntry struct {
	Mod  string `json:"mod"`
	Path string `json:"path"`
}

// DriftReport is the offline comparison between a fresh scan and the
// persisted baseline. It never reports transport failures; local check is
// network-free.
type DriftReport struct {
	ProfileID  string       `json:"profile_id"`
	BaselineAt time.Time    `json:"baseline_at"`
	Matching   []DriftEntry `json:"matching"`
	Modified   []DriftEntry `json:"modified"`
	Missing    []DriftEntry `json:"missing"`
	Extra      []DriftEntry `json:"extra"`
	ScanErrors []ScanError  `json:"scan_errors,omitempty"`
}

// Clean reports whether the local folder matches the baseline exactly.
func (r *DriftReport) Clean() bool {
	return len(r.Modified) == 0 && len(r.Missing) == 0 && len(r.Extra) == 0 &&
		len(r.ScanErrors) == 0
}

// FileOutcome is the terminal state of one sync unit.
type FileOutcome string

const (
	// OutcomeSucceeded means the file was fetched, verified, and moved
	// into place (or removed, for removals).
	OutcomeSucceeded FileOutcome = "succeeded"
	// OutcomeSkipped means the file already matched the target manifest.
	OutcomeSkipped FileOutcome = "skipped"
	// OutcomeFailed means the unit exhausted its retries.
	OutcomeFailed FileOutcome = "failed"
)

// FileResult records the outcome of one file unit in a sync.
type FileResult struct {
	Mod     string      `json:"mod"`
	Path    string      `json:"path"`
	Outcome FileOutcome `json:"outcome"`
	Kind    ErrorKind   `json:"kind,omitempty"`
	Error   string      `json:"error,omitempty"`
	Bytes   int64       `json:"bytes,omitempty"`
}

// SyncReport enumerates every unit's outcome for one sync run. Mods listed
// in Advanced had all their units succeed and had their baseline and cache
// record moved to the target manifest; mods with failures keep their prior
// baseline so the next sync retries exactly what failed.
type SyncReport struct {
	RunID            string        `json:"run_id"`
	ProfileID        string        `json:"profile_id"`
	Files            []FileResult  `json:"files"`
	Advanced         []string      `json:"advanced"`
	Held             []string      `json:"held,omitempty"`
	BytesTransferred int64         `json:"bytes_transferred"`
	Elapsed          time.Duration `json:"elapsed"`
	Cancelled        bool          `json:"cancelled,omitempty"`
}

// Failed returns the failed file results.
func (r *SyncReport) Failed() []FileResult {
	var out []FileResult
	for _, f := range r.Files {
		if f.Outcome == OutcomeFailed {
			out = append(out, f)
		}
	}
	return out
}

// Succeeded counts units that completed.
func (r *SyncReport) Succeeded() int {
	n := 0
	for _, f := range r.Files {
		if f.Outcome == OutcomeSucceeded {
			n++
		}
	}
	return n
}
