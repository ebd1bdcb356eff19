package scanner

import (
	"context"
	"sync"

	"github.com/modpack-tools/loadout/pkg/loadout/pathutil"
	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// resolveDigests runs the hash worker pool over the collected jobs. Cached
// digests are reused when size and mtime both match; everything else is
// rehashed. The returned records contain only files that still exist, so
// entries for vanished files are dropped simply by never being re-added.
func (s *Scanner) resolveDigests(ctx context.Context, jobs []fileJob, records map[string]types.CacheRecord) (map[string][]types.FileEntry, map[string]types.CacheRecord) {
	var (
		mu         sync.Mutex
		files      = make(map[string][]types.FileEntry)
		newRecords = make(map[string]types.CacheRecord)
	)

	jobCh := make(chan fileJob)
	var wg sync.WaitGroup

	for range s.opts.HashWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobCh {
				if ctx.Err() != nil {
					continue // drain
				}
				entry, fromCache, err := s.resolveOne(ctx, job, records)
				if err != nil {
					if ctx.Err() == nil {
						s.addError(job.absPath, err)
					}
					continue
				}

				s.filesScanned.Add(1)
				s.bytesScanned.Add(job.size)
				if fromCache {
					s.cacheHits.Add(1)
				} else {
					s.cacheMisses.Add(1)
				}
				s.reportProgress(false)

				mu.Lock()
				files[job.mod] = append(files[job.mod], entry)
				modKey := pathutil.CanonicalName(job.mod)
				rec, ok := newRecords[modKey]
				if !ok {
					rec = make(types.CacheRecord)
					newRecords[modKey] = rec
				}
				rec[pathutil.Canonical(job.rel)] = types.CacheEntry{
					Size:   job.size,
					Mtime:  job.mtime.UnixNano(),
					Digest: entry.Digest,
				}
				mu.Unlock()
			}
		}()
	}

	for _, job := range jobs {
		jobCh <- job
	}
	close(jobCh)
	wg.Wait()

	return files, newRecords
}

// resolveOne produces the file entry for a single job, consulting the old
// cache record unless Force is set.
func (s *Scanner) resolveOne(ctx context.Context, job fileJob, records map[string]types.CacheRecord) (types.FileEntry, bool, error) {
	if !s.opts.Force {
		if rec, ok := records[pathutil.CanonicalName(job.mod)]; ok {
			if cached, ok := rec[pathutil.Canonical(job.rel)]; ok && cached.Fresh(job.size, job.mtime.UnixNano()) {
				return types.FileEntry{
					Path:    job.rel,
					Size:    job.size,
					ModTime: job.mtime,
					Digest:  cached.Digest,
				}, true, nil
			}
		}
	}

	d, err := s.hasher.SumFile(ctx, job.absPath)
	if err != nil {
		return types.FileEntry{}, false, err
	}
	return types.FileEntry{
		Path:    job.rel,
		Size:    job.size,
		ModTime: job.mtime,
		Digest:  d,
	}, false, nil
}
