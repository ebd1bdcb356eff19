package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/modpack-tools/loadout/pkg/loadout/pathutil"
	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// MemorySource is an in-memory Source used by tests and dry runs. File
// content is keyed by canonical mod and path.
type MemorySource struct {
	mu       sync.Mutex
	manifest *types.Manifest
	content  map[string][]byte

	// FetchErr, when set, is returned by every Open call. Corrupt maps
	// canonical keys to replacement bytes served instead of the stored
	// content.
	FetchErr error
	Corrupt  map[string][]byte

	opens int
}

func NewMemorySource(manifest *types.Manifest) *MemorySource {
	return &MemorySource{
		manifest: manifest,
		content:  make(map[string][]byte),
	}
}

func memKey(mod, rel string) string {
	return pathutil.CanonicalName(mod) + "/" + pathutil.Canonical(rel)
}

// Put stores file content for a mod-relative path.
func (s *MemorySource) Put(mod, rel string, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.content[memKey(mod, rel)] = data
}

// SetManifest replaces the manifest returned by FetchManifest.
func (s *MemorySource) SetManifest(m *types.Manifest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manifest = m
}

// Opens reports how many times Open was called.
func (s *MemorySource) Opens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opens
}

func (s *MemorySource) FetchManifest(ctx context.Context) (*types.Manifest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.manifest == nil {
		return nil, fmt.Errorf("%w: no manifest published", types.ErrRemoteUnavailable)
	}
	return s.manifest, nil
}

func (s *MemorySource) Open(ctx context.Context, mod, rel string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opens++
	if s.FetchErr != nil {
		return nil, s.FetchErr
	}
	key := memKey(mod, rel)
	if data, ok := s.Corrupt[key]; ok {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	data, ok := s.content[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s not found", types.ErrRemoteUnavailable, key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
