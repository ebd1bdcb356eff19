// Package types provides the core data model for the loadout sync engine:
// manifests, digests, cache records, baselines, reconciliation plans, and
// the typed reports returned by every public operation.
package types

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/modpack-tools/loadout/pkg/loadout/pathutil"
)

// DigestLen is the hex length of a SHA-256 content digest.
const DigestLen = 64

// Digest is a lowercase hex-encoded SHA-256 content hash. Two files are
// content-equal iff their digests are equal; size and modification time are
// only ever used as staleness heuristics, never as proof of equality.
// Repository tooling in the wild emits uppercase hex, so digests from
// remote manifests are folded to lowercase on decode and all comparisons
// ignore case.
type Digest string

// ParseDigest validates a hex digest string and folds it to lowercase.
func ParseDigest(s string) (Digest, error) {
	if len(s) != DigestLen {
		return "", fmt.Errorf("digest must be %d hex chars, got %d", DigestLen, len(s))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return "", fmt.Errorf("digest is not valid hex: %w", err)
	}
	return Digest(strings.ToLower(s)), nil
}

// Equal reports whether two digests denote the same content, ignoring
// hex case.
func (d Digest) Equal(other Digest) bool {
	return strings.EqualFold(string(d), string(other))
}

// Short returns a truncated digest for display.
func (d Digest) Short() string {
	if len(d) < 12 {
		return string(d)
	}
	return string(d[:12])
}

// FileEntry describes one file within a mod. Path is stored in wire form
// (forward slashes, original casing); all comparisons go through the
// canonical fold in pathutil.
type FileEntry struct {
	Path    string    `json:"path"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Digest  Digest    `json:"digest"`
}

// ContentEqual reports whether two entries have identical content.
func (f FileEntry) ContentEqual(other FileEntry) bool {
	// Size inequality is a cheap short-circuit; digests decide.
	if f.Size != other.Size {
		return false
	}
	return f.Digest.Equal(other.Digest)
}

// ModEntry is a named, flat set of files. Mods never inherit from or depend
// on each other.
type ModEntry struct {
	Name  string      `json:"name"`
	Files []FileEntry `json:"files"`
}

// File looks up an entry by canonical path.
func (m *ModEntry) File(rel string) (FileEntry, bool) {
	key := pathutil.Canonical(rel)
	for _, f := range m.Files {
		if pathutil.Canonical(f.Path) == key {
			return f, true
		}
	}
	return FileEntry{}, false
}

// Manifest is the declarative listing of mods and their files. Manifests
// are treated as immutable once built: transformations produce new values.
type Manifest struct {
	Mods []ModEntry `json:"mods"`
}

// NewManifest builds a manifest in canonical order so that equal content
// always yields an equal value regardless of input ordering.
func NewManifest(mods []ModEntry) *Manifest {
	sorted := make([]ModEntry, len(mods))
	copy(sorted, mods)
	for i := range sorted {
		files := make([]FileEntry, len(sorted[i].Files))
		copy(files, sorted[i].Files)
		sort.Slice(files, func(a, b int) bool {
			return pathutil.Canonical(files[a].Path) < pathutil.Canonical(files[b].Path)
		})
		sorted[i].Files = files
	}
	sort.Slice(sorted, func(a, b int) bool {
		return pathutil.CanonicalName(sorted[a].Name) < pathutil.CanonicalName(sorted[b].Name)
	})
	return &Manifest{Mods: sorted}
}

// NormalizeDigests validates every digest in the manifest and folds it
// to lowercase in place. Decoded remote manifests go through this before
// any comparison.
func (m *Manifest) NormalizeDigests() error {
	for i := range m.Mods {
		for j := range m.Mods[i].Files {
			f := &m.Mods[i].Files[j]
			d, err := ParseDigest(string(f.Digest))
			if err != nil {
				return fmt.Errorf("mod %q file %q: %w", m.Mods[i].Name, f.Path, err)
			}
			f.Digest = d
		}
	}
	return nil
}

// Mod looks up a mod by canonical name.
func (m *Manifest) Mod(name string) (ModEntry, bool) {
	key := pathutil.CanonicalName(name)
	for _, mod := range m.Mods {
		if pathutil.CanonicalName(mod.Name) == key {
			return mod, true
		}
	}
	return ModEntry{}, false
}

// FileCount returns the total number of files across all mods.
func (m *Manifest) FileCount() int {
	n := 0
	for _, mod := range m.Mods {
		n += len(mod.Files)
	}
	return n
}

// TotalSize returns the sum of all declared file sizes.
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, mod := range m.Mods {
		for _, f := range mod.Files {
			total += f.Size
		}
	}
	return total
}

// CacheEntry is the persisted shortcut for one file: if the live file's
// size and mtime both match, the stored digest is reused without rehashing.
type CacheEntry struct {
	Size   int64  `json:"size"`
	Mtime  int64  `json:"mtime"` // UnixNano
	Digest Digest `json:"digest"`
}

// Fresh reports whether the entry can be trusted for a file with the given
// live size and mtime. A stale entry is never an error; it just forces a
// rehash.
func (e CacheEntry) Fresh(size, mtimeNano int64) bool {
	return e.Size == size && e.Mtime == mtimeNano
}

// CacheRecord maps canonical relative path to cache entry for one mod.
type CacheRecord map[string]CacheEntry

// Clone returns an independent copy of the record.
func (r CacheRecord) Clone() CacheRecord {
	out := make(CacheRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Baseline is the last manifest known, with certainty, to match a
// profile's local folder. Only scan-repair and a fully successful sync may
// write it; the integrity check is read-only.
type Baseline struct {
	ProfileID  string    `json:"profile_id"`
	ComputedAt time.Time `json:"computed_at"`
	Manifest   *Manifest `json:"manifest"`
}

// FileRef identifies a file entry together with the mod it belongs to.
type FileRef struct {
	Mod   string    `json:"mod"`
	Entry FileEntry `json:"entry"`
}

// RelPath returns the path of the referenced file under the profile root,
// in wire form.
func (r FileRef) RelPath() string {
	return r.Mod + "/" + pathutil.Normalize(r.Entry.Path)
}

// UpdatePair holds the old and new entries for a file whose content
// changed. Old is retained for resumable-transfer sizing hints.
type UpdatePair struct {
	Mod string    `json:"mod"`
	Old FileEntry `json:"old"`
	New FileEntry `json:"new"`
}

// RenameAction re-cases a top-level mod directory so the on-disk name
// matches the target manifest exactly. From and To always fold to the
// same canonical name.
type RenameAction struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Plan is the reconciliation between two manifests, partitioned by
// canonical path. The four file sets are pairwise disjoint and their
// union of paths equals the union of paths across both inputs. Rename
// carries mod directories whose casing drifted from the target.
type Plan struct {
	Add       []FileRef      `json:"add"`
	Update    []UpdatePair   `json:"update"`
	Remove    []FileRef      `json:"remove"`
	Unchanged []FileRef      `json:"unchanged"`
	Rename    []RenameAction `json:"rename,omitempty"`
}

// Empty reports whether the plan requires no filesystem mutation.
func (p *Plan) Empty() bool {
	return len(p.Add) == 0 && len(p.Update) == 0 && len(p.Remove) == 0 &&
		len(p.Rename) == 0
}

// TransferCount returns the number of files that must be fetched.
func (p *Plan) TransferCount() int {
	return len(p.Add) + len(p.Update)
}

// TransferBytes returns the total declared size of files to fetch.
func (p *Plan) TransferBytes() int64 {
	var total int64
	for _, a := range p.Add {
		total += a.Entry.Size
	}
	for _, u := range p.Update {
		total += u.New.Size
	}
	return total
}
