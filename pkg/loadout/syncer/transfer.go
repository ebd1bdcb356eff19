package syncer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/modpack-tools/loadout/pkg/loadout/remote"
	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// partSuffix marks in-flight downloads. A crash leaves at worst a
// .part file next to the destination, never a truncated destination.
const partSuffix = ".part"

const retryBackoff = 500 * time.Millisecond

// transferUnit fetches one file with retries and records the outcome.
func (s *Syncer) transferUnit(ctx context.Context, u unit, src remote.FileProvider) {
	result := types.FileResult{Mod: u.mod, Path: u.entry.Path}

	if err := ctx.Err(); err != nil {
		result.Outcome = types.OutcomeFailed
		result.Kind = types.ErrKindCancelled
		result.Error = err.Error()
		s.record(result)
		return
	}

	dest, err := s.localPath(u.mod, u.entry.Path)
	if err != nil {
		result.Outcome = types.OutcomeFailed
		result.Kind = types.ClassifyError(err)
		result.Error = err.Error()
		s.record(result)
		return
	}

	var lastErr error
	for attempt := 0; attempt <= s.opts.Retries; attempt++ {
		if attempt > 0 {
			s.log.Debug("retrying transfer",
				"mod", u.mod, "path", u.entry.Path, "attempt", attempt+1, "error", lastErr)
			if !sleepCtx(ctx, retryBackoff*time.Duration(attempt)) {
				break
			}
		}

		entry, err := s.fetchOnce(ctx, u, src, dest)
		if err == nil {
			s.recordEntry(u.mod, u.entry.Path, entry, u.entry.Size)
			result.Outcome = types.OutcomeSucceeded
			result.Bytes = u.entry.Size
			s.record(result)
			return
		}
		lastErr = err

		kind := types.ClassifyError(err)
		if kind == types.ErrKindCancelled {
			break
		}
	}

	if lastErr == nil {
		lastErr = ctx.Err()
	}
	result.Outcome = types.OutcomeFailed
	result.Kind = types.ClassifyError(lastErr)
	result.Error = lastErr.Error()
	s.log.Warn("transfer failed", "mod", u.mod, "path", u.entry.Path, "kind", result.Kind, "error", lastErr)
	s.record(result)
}

// fetchOnce performs a single download attempt: stream to a part file
// while hashing, verify the digest, then rename into place.
func (s *Syncer) fetchOnce(ctx context.Context, u unit, src remote.FileProvider, dest string) (types.CacheEntry, error) {
	if s.opts.UnitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.UnitTimeout)
		defer cancel()
	}

	rc, err := src.Open(ctx, u.mod, u.entry.Path)
	if err != nil {
		return types.CacheEntry{}, err
	}
	defer rc.Close()

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return types.CacheEntry{}, types.NewIoError(dest, err)
	}

	part := dest + partSuffix
	f, err := os.Create(part)
	if err != nil {
		return types.CacheEntry{}, types.NewIoError(part, err)
	}

	body := io.Reader(rc)
	if s.limiter != nil {
		body = &rateReader{ctx: ctx, r: rc, lim: s.limiter}
	}
	got, err := s.hasher.Sum(ctx, io.TeeReader(body, f))
	if err != nil {
		f.Close()
		os.Remove(part)
		return types.CacheEntry{}, err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(part)
		return types.CacheEntry{}, types.NewIoError(part, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(part)
		return types.CacheEntry{}, types.NewIoError(part, err)
	}

	if !got.Equal(u.entry.Digest) {
		os.Remove(part)
		return types.CacheEntry{}, types.NewCorruptTransferError(u.entry.Path, u.entry.Digest, got)
	}

	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return types.CacheEntry{}, types.NewIoError(dest, err)
	}

	info, err := os.Stat(dest)
	if err != nil {
		return types.CacheEntry{}, types.NewIoError(dest, err)
	}
	if info.Size() != u.entry.Size {
		return types.CacheEntry{}, fmt.Errorf("size mismatch for %s: manifest says %d, wrote %d",
			u.entry.Path, u.entry.Size, info.Size())
	}

	return types.CacheEntry{
		Size:   info.Size(),
		Mtime:  info.ModTime().UnixNano(),
		Digest: got,
	}, nil
}

// sleepCtx waits for d or until ctx is done, reporting whether the full
// wait elapsed.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
