package remote

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// snapshot is the persisted conditional-fetch state for one profile.
type snapshot struct {
	LastModified string          `json:"last_modified"`
	Manifest     *types.Manifest `json:"manifest"`
}

// ManifestCache persists the last fetched remote manifest per profile
// together with its Last-Modified validator, so a fresh process can
// still get a 304 and skip re-downloading an unchanged manifest.
type ManifestCache struct {
	dir string
}

func NewManifestCache(dir string) *ManifestCache {
	return &ManifestCache{dir: dir}
}

func (c *ManifestCache) path(profileID string) string {
	return filepath.Join(c.dir, profileID+".remote.json")
}

// Load returns the persisted state for a profile. A missing or
// unreadable snapshot yields empty state; the cache is an optimization
// and never blocks a fetch.
func (c *ManifestCache) Load(profileID string) (string, *types.Manifest) {
	data, err := os.ReadFile(c.path(profileID))
	if err != nil {
		return "", nil
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return "", nil
	}
	if snap.LastModified == "" || snap.Manifest == nil {
		return "", nil
	}
	return snap.LastModified, snap.Manifest
}

// Save persists the state for a profile. Hosts that send no
// Last-Modified leave nothing worth caching.
func (c *ManifestCache) Save(profileID, lastModified string, m *types.Manifest) error {
	if lastModified == "" || m == nil {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create manifest cache dir: %w", err)
	}
	return writeJSON(c.path(profileID), snapshot{LastModified: lastModified, Manifest: m})
}

// Delete removes a profile's snapshot. Missing files are not an error.
func (c *ManifestCache) Delete(profileID string) error {
	err := os.Remove(c.path(profileID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete manifest snapshot: %w", err)
	}
	return nil
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
	return os.Rename(tmpName, path)
}
