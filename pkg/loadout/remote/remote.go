// Package remote abstracts where target manifests and mod content come
// from. The HTTP implementation speaks to a static file host laid out
// as <base>/manifest.json plus <base>/<mod>/<path> for content.
package remote

import (
	"context"
	"io"

	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// ManifestSource provides the target manifest a profile syncs toward.
type ManifestSource interface {
	// FetchManifest returns the current target manifest.
	FetchManifest(ctx context.Context) (*types.Manifest, error)
}

// FileProvider streams the content of individual manifest files.
type FileProvider interface {
	// Open returns a reader for the file at rel inside mod. The caller
	// closes the reader. rel is in manifest wire form (forward slashes).
	Open(ctx context.Context, mod, rel string) (io.ReadCloser, error)
}

// Source is the full remote surface the sync engine needs.
type Source interface {
	ManifestSource
	FileProvider
}

// ConditionalSource is implemented by sources that can skip redundant
// manifest downloads via validator state (Last-Modified). Callers seed
// it from a persisted snapshot and persist it back after a fetch.
type ConditionalSource interface {
	Prime(lastModified string, m *types.Manifest)
	CachedState() (string, *types.Manifest)
}
