// Package baseline persists the last fully synchronized manifest for
// each profile. The baseline is what offline verification and remote
// planning compare against, so writes are durable: content goes to a
// temp file first and is renamed into place.
package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// ErrNoBaseline indicates the profile has never completed a sync.
var ErrNoBaseline = errors.New("no baseline recorded for profile")

// Summary is the lightweight sidecar written next to each baseline
// manifest. It lets listings and status output avoid loading the full
// manifest.
type Summary struct {
	ProfileID  string    `json:"profile_id"`
	ComputedAt time.Time `json:"computed_at"`
	ModCount   int       `json:"mod_count"`
	FileCount  int       `json:"file_count"`
	TotalSize  int64     `json:"total_size"`
}

// Store reads and writes per-profile baselines under a state directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) manifestPath(profileID string) string {
	return filepath.Join(s.dir, profileID+".manifest.json")
}

func (s *Store) summaryPath(profileID string) string {
	return filepath.Join(s.dir, profileID+".summary.json")
}

// Save writes the baseline manifest and its summary. The manifest lands
// first so a crash between the two writes leaves a loadable baseline
// with at worst a stale summary.
func (s *Store) Save(b *types.Baseline) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create baseline dir: %w", err)
	}

	if err := writeJSON(s.manifestPath(b.ProfileID), b); err != nil {
		return fmt.Errorf("write baseline manifest: %w", err)
	}

	sum := Summary{
		ProfileID:  b.ProfileID,
		ComputedAt: b.ComputedAt,
		ModCount:   len(b.Manifest.Mods),
		FileCount:  b.Manifest.FileCount(),
		TotalSize:  b.Manifest.TotalSize(),
	}
	if err := writeJSON(s.summaryPath(b.ProfileID), sum); err != nil {
		return fmt.Errorf("write baseline summary: %w", err)
	}
	return nil
}

// Load returns the baseline manifest for the profile, or ErrNoBaseline.
func (s *Store) Load(profileID string) (*types.Baseline, error) {
	data, err := os.ReadFile(s.manifestPath(profileID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoBaseline, profileID)
		}
		return nil, fmt.Errorf("read baseline manifest: %w", err)
	}
	var b types.Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode baseline manifest: %w", err)
	}
	return &b, nil
}

// LoadSummary returns the sidecar summary, or ErrNoBaseline.
func (s *Store) LoadSummary(profileID string) (*Summary, error) {
	data, err := os.ReadFile(s.summaryPath(profileID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoBaseline, profileID)
		}
		return nil, fmt.Errorf("read baseline summary: %w", err)
	}
	var sum Summary
	if err := json.Unmarshal(data, &sum); err != nil {
		return nil, fmt.Errorf("decode baseline summary: %w", err)
	}
	return &sum, nil
}

// Delete removes the baseline and summary for a profile. Missing files
// are not an error.
func (s *Store) Delete(profileID string) error {
	for _, p := range []string{s.manifestPath(profileID), s.summaryPath(profileID)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("delete baseline: %w", err)
		}
	}
	return nil
}

// List returns the profile IDs that have a recorded baseline.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list baselines: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		const suffix = ".manifest.json"
		if e.IsDir() || len(name) <= len(suffix) || name[len(name)-len(suffix):] != suffix {
			continue
		}
		ids = append(ids, name[:len(name)-len(suffix)])
	}
	return ids, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
