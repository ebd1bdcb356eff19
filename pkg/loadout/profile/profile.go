// Package profile manages named sync profiles. A profile binds a local
// mod folder to the remote repository it tracks; all engine operations
// run in the context of one profile.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// ErrNotFound indicates the requested profile does not exist.
var ErrNotFound = errors.New("profile not found")

// ErrExists indicates a profile with the same ID already exists.
var ErrExists = errors.New("profile already exists")

// ErrInvalidID indicates a profile ID that fails validation.
var ErrInvalidID = errors.New("invalid profile id")

// idPattern restricts profile IDs to names that are safe as file names
// and cache key components.
var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ValidateID checks that id is usable as a profile identifier.
func ValidateID(id string) error {
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%w: %q (want lowercase letters, digits, - and _)", ErrInvalidID, id)
	}
	return nil
}

// Profile binds a local folder to a remote repository.
type Profile struct {
	ID        string    `json:"id"`
	Root      string    `json:"root"`
	RepoURL   string    `json:"repo_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists profiles as individual JSON files in a directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Create adds a new profile. The ID must validate and be unused.
func (s *Store) Create(p Profile) error {
	if err := ValidateID(p.ID); err != nil {
		return err
	}
	if _, err := os.Stat(s.path(p.ID)); err == nil {
		return fmt.Errorf("%w: %s", ErrExists, p.ID)
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	return s.write(p)
}

// Get returns the profile with the given ID.
func (s *Store) Get(id string) (*Profile, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id, err)
	}
	return &p, nil
}

// Update replaces an existing profile's settings, preserving CreatedAt.
func (s *Store) Update(p Profile) error {
	existing, err := s.Get(p.ID)
	if err != nil {
		return err
	}
	p.CreatedAt = existing.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	return s.write(p)
}

// Delete removes a profile. Deleting an absent profile is an error so
// typos surface.
func (s *Store) Delete(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	err := os.Remove(s.path(id))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return err
}

// List returns all profiles sorted by ID.
func (s *Store) List() ([]Profile, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	var profiles []Profile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		id := name[:len(name)-len(".json")]
		if ValidateID(id) != nil {
			continue
		}
		p, err := s.Get(id)
		if err != nil {
			continue
		}
		profiles = append(profiles, *p)
	}
	return profiles, nil
}

func (s *Store) write(p Profile) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create profile dir: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path(p.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	if err := os.Rename(tmp, s.path(p.ID)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}
