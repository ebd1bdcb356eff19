package scanner

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"github.com/modpack-tools/loadout/pkg/loadout/digest"
	"github.com/modpack-tools/loadout/pkg/loadout/pathutil"
	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// Scanner builds manifests from a local mod folder.
type Scanner struct {
	opts   Options
	hasher *digest.Hasher

	filesScanned atomic.Int64
	bytesScanned atomic.Int64
	cacheHits    atomic.Int64
	cacheMisses  atomic.Int64
	lastProgress atomic.Int64

	errors   []types.ScanError
	errorsMu sync.Mutex
}

// New creates a Scanner. Options are validated and defaults applied.
func New(opts Options) *Scanner {
	opts.Validate()
	return &Scanner{
		opts:   opts,
		hasher: digest.New(opts.BufferSize),
	}
}

// fileJob is one file awaiting digest resolution.
type fileJob struct {
	mod     string
	rel     string // wire form, relative to the mod dir
	absPath string
	size    int64
	mtime   time.Time
}

// Scan walks every mod directory under the root, reusing cached digests
// where size and mtime still match, and returns a fresh manifest together
// with rewritten cache records. Both the incoming and returned record maps
// are keyed by canonical mod name. Nothing is persisted here; the caller
// decides when the records are durable. Per-file errors are collected into
// the report, not fatal.
func (s *Scanner) Scan(ctx context.Context, records map[string]types.CacheRecord) (*types.ScanReport, error) {
	start := time.Now()

	root, err := filepath.Abs(s.opts.Root)
	if err != nil {
		return nil, types.NewIoError(s.opts.Root, err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, types.NewIoError(root, err)
	}
	if !info.IsDir() {
		return nil, types.NewIoError(root, errors.New("not a directory"))
	}

	modNames, err := listModDirs(root)
	if err != nil {
		return nil, err
	}

	jobs, empties, walkErr := s.collectFiles(ctx, root, modNames)
	if walkErr != nil {
		return nil, walkErr
	}

	results, newRecords := s.resolveDigests(ctx, jobs, records)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	mods := make([]types.ModEntry, 0, len(modNames))
	for _, name := range modNames {
		entry := types.ModEntry{Name: name, Files: results[name]}
		if entry.Files == nil && empties[name] {
			entry.Files = []types.FileEntry{}
		}
		mods = append(mods, entry)
		modKey := pathutil.CanonicalName(name)
		if _, ok := newRecords[modKey]; !ok {
			newRecords[modKey] = make(types.CacheRecord)
		}
	}

	report := &types.ScanReport{
		Manifest: types.NewManifest(mods),
		Records:  newRecords,
		Stats: types.ScanStats{
			FilesScanned: s.filesScanned.Load(),
			BytesScanned: s.bytesScanned.Load(),
			CacheHits:    s.cacheHits.Load(),
			CacheMisses:  s.cacheMisses.Load(),
			Elapsed:      time.Since(start),
		},
		Errors: s.takeErrors(),
	}
	s.reportProgress(true)
	return report, nil
}

// listModDirs returns the sorted top-level directory names under root.
// Stray regular files at the root are not mods and are ignored.
func listModDirs(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, types.NewIoError(root, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// collectFiles walks each mod directory and gathers hash jobs. Symbolic
// links are recorded as errors rather than followed; resolving them
// correctly is out of scope.
func (s *Scanner) collectFiles(ctx context.Context, root string, modNames []string) ([]fileJob, map[string]bool, error) {
	conf := fastwalk.Config{Follow: false}

	var (
		jobs    []fileJob
		jobsMu  sync.Mutex
		empties = make(map[string]bool)
	)

	for _, mod := range modNames {
		modRoot := filepath.Join(root, mod)
		sawFile := false

		walkFn := func(path string, d fs.DirEntry, err error) error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if err != nil {
				s.addError(path, err)
				return nil
			}
			if d.IsDir() {
				return nil
			}
			if d.Type()&fs.ModeSymlink != 0 {
				s.addError(path, errors.New("symbolic links are not supported in mod folders"))
				return nil
			}
			if !d.Type().IsRegular() {
				return nil
			}

			fi, err := d.Info()
			if err != nil {
				s.addError(path, err)
				return nil
			}

			rel, err := filepath.Rel(modRoot, path)
			if err != nil {
				s.addError(path, err)
				return nil
			}

			jobsMu.Lock()
			jobs = append(jobs, fileJob{
				mod:     mod,
				rel:     pathutil.Normalize(rel),
				absPath: path,
				size:    fi.Size(),
				mtime:   fi.ModTime(),
			})
			sawFile = true
			jobsMu.Unlock()
			return nil
		}

		if err := fastwalk.Walk(&conf, modRoot, walkFn); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, nil, err
			}
			s.addError(modRoot, err)
		}
		if !sawFile {
			empties[mod] = true
		}
	}

	return jobs, empties, nil
}

// addError records a per-file error thread-safely.
func (s *Scanner) addError(path string, err error) {
	s.errorsMu.Lock()
	s.errors = append(s.errors, types.ScanError{Path: path, Error: err.Error()})
	s.errorsMu.Unlock()
}

func (s *Scanner) takeErrors() []types.ScanError {
	s.errorsMu.Lock()
	defer s.errorsMu.Unlock()
	out := s.errors
	s.errors = nil
	return out
}

// reportProgress invokes the progress callback, throttled to 50ms unless
// forced.
func (s *Scanner) reportProgress(force bool) {
	if s.opts.OnProgress == nil {
		return
	}
	now := time.Now().UnixMilli()
	last := s.lastProgress.Load()
	if !force {
		if now-last < 50 {
			return
		}
		if !s.lastProgress.CompareAndSwap(last, now) {
			return
		}
	} else {
		s.lastProgress.Store(now)
	}

	s.opts.OnProgress(types.ScanStats{
		FilesScanned: s.filesScanned.Load(),
		BytesScanned: s.bytesScanned.Load(),
		CacheHits:    s.cacheHits.Load(),
		CacheMisses:  s.cacheMisses.Load(),
	})
}
