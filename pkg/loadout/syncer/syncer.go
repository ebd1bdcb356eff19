// Package syncer executes reconciliation plans against the local mod
// folder. Removals run first, then transfers run on a bounded worker
// pool with per-unit retries. Every fetched file is hashed in flight
// and moved into place only after its digest matches the manifest.
package syncer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/modpack-tools/loadout/pkg/loadout/digest"
	"github.com/modpack-tools/loadout/pkg/loadout/logging"
	"github.com/modpack-tools/loadout/pkg/loadout/pathutil"
	"github.com/modpack-tools/loadout/pkg/loadout/remote"
	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// Result is the outcome of one sync run. Entries holds the cache
// entries recorded for every successfully transferred file, keyed by
// mod name and canonical relative path; the caller folds them into the
// profile's cache records for mods that advanced.
type Result struct {
	Report  *types.SyncReport
	Entries map[string]map[string]types.CacheEntry
}

type unitAction string

const (
	actionAdd    unitAction = "add"
	actionUpdate unitAction = "update"
	actionRemove unitAction = "remove"
)

// unit is one file operation from the plan.
type unit struct {
	action unitAction
	mod    string
	entry  types.FileEntry
}

// Syncer executes plans. One Syncer handles one run.
type Syncer struct {
	opts    Options
	hasher  *digest.Hasher
	limiter *rate.Limiter
	log     *logging.Logger

	mu      sync.Mutex
	results []types.FileResult
	entries map[string]map[string]types.CacheEntry
	bytes   int64
	done    int
	total   int
}

func New(opts Options) *Syncer {
	opts.Validate()
	return &Syncer{
		opts:    opts,
		hasher:  digest.New(0),
		limiter: newLimiter(opts.RateLimit),
		log:     logging.Get("syncer"),
		entries: make(map[string]map[string]types.CacheEntry),
	}
}

// Run executes the plan against the local folder. Unchanged entries are
// reported as skipped without touching the disk. The returned report
// lists every unit's outcome; mods with any failed unit appear in Held.
// Run returns an error only when the run could not start at all, such
// as a failed disk space preflight. Per-unit failures are reported, not
// returned.
func (s *Syncer) Run(ctx context.Context, plan *types.Plan, src remote.FileProvider) (*Result, error) {
	start := time.Now()

	units := planUnits(plan)
	s.total = len(units) + len(plan.Unchanged) + len(plan.Rename)

	if err := s.preflight(plan); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	log := s.log.With("run", runID, "profile", s.opts.ProfileID)
	log.Info("sync started",
		"transfers", plan.TransferCount(),
		"removals", len(plan.Remove),
		"bytes", plan.TransferBytes())

	for _, ref := range plan.Unchanged {
		s.record(types.FileResult{Mod: ref.Mod, Path: ref.Entry.Path, Outcome: types.OutcomeSkipped})
	}

	// Removals are cheap local operations; run them before transfers so
	// replaced mods free their space first.
	var transfers []unit
	for _, u := range units {
		if u.action == actionRemove {
			s.removeUnit(ctx, u)
			continue
		}
		transfers = append(transfers, u)
	}

	// Mod directory re-cases happen before transfers so downloads land
	// in the target-cased directory.
	for _, r := range plan.Rename {
		s.renameUnit(ctx, r)
	}

	s.runTransfers(ctx, transfers, src)

	report := s.buildReport(runID, plan, start, ctx.Err() != nil)
	log.Info("sync finished",
		"succeeded", report.Succeeded(),
		"failed", len(report.Failed()),
		"advanced", len(report.Advanced),
		"held", len(report.Held),
		"elapsed", report.Elapsed)

	return &Result{Report: report, Entries: s.entries}, nil
}

func planUnits(plan *types.Plan) []unit {
	units := make([]unit, 0, len(plan.Remove)+len(plan.Add)+len(plan.Update))
	for _, ref := range plan.Remove {
		units = append(units, unit{action: actionRemove, mod: ref.Mod, entry: ref.Entry})
	}
	for _, ref := range plan.Add {
		units = append(units, unit{action: actionAdd, mod: ref.Mod, entry: ref.Entry})
	}
	for _, pair := range plan.Update {
		units = append(units, unit{action: actionUpdate, mod: pair.Mod, entry: pair.New})
	}
	return units
}

// preflight rejects a run that would exhaust the destination disk.
func (s *Syncer) preflight(plan *types.Plan) error {
	need := plan.TransferBytes()
	if need == 0 {
		return nil
	}
	free, ok := freeBytes(s.opts.Root)
	if !ok {
		return nil
	}
	if free < need+s.opts.FreeHeadroom {
		return fmt.Errorf("insufficient disk space: need %d bytes plus headroom, %d free", need, free)
	}
	return nil
}

func (s *Syncer) runTransfers(ctx context.Context, transfers []unit, src remote.FileProvider) {
	if len(transfers) == 0 {
		return
	}

	jobCh := make(chan unit)
	var wg sync.WaitGroup
	for i := 0; i < s.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for u := range jobCh {
				s.transferUnit(ctx, u, src)
			}
		}()
	}

	for _, u := range transfers {
		select {
		case jobCh <- u:
		case <-ctx.Done():
			// Drain the rest as cancelled without dispatching.
			s.record(types.FileResult{
				Mod:     u.mod,
				Path:    u.entry.Path,
				Outcome: types.OutcomeFailed,
				Kind:    types.ErrKindCancelled,
				Error:   ctx.Err().Error(),
			})
		}
	}
	close(jobCh)
	wg.Wait()
}

// removeUnit deletes one file. A file already gone counts as success;
// removal is idempotent so an interrupted run can repeat it safely.
func (s *Syncer) removeUnit(ctx context.Context, u unit) {
	if ctx.Err() != nil {
		s.record(types.FileResult{
			Mod:     u.mod,
			Path:    u.entry.Path,
			Outcome: types.OutcomeFailed,
			Kind:    types.ErrKindCancelled,
			Error:   ctx.Err().Error(),
		})
		return
	}

	result := types.FileResult{Mod: u.mod, Path: u.entry.Path, Outcome: types.OutcomeSucceeded}

	abs, err := s.localPath(u.mod, u.entry.Path)
	if err == nil {
		err = os.Remove(abs)
		if os.IsNotExist(err) {
			err = nil
		}
	}
	if err != nil {
		result.Outcome = types.OutcomeFailed
		result.Kind = types.ClassifyError(err)
		result.Error = err.Error()
		s.log.Warn("removal failed", "mod", u.mod, "path", u.entry.Path, "error", err)
	} else {
		s.pruneEmptyDirs(abs)
	}
	s.record(result)
}

// renameUnit re-cases one top-level mod directory. The rename goes
// through an intermediate name because on case-insensitive filesystems
// source and destination are the same directory. A source that is
// already gone counts as success; the transfer phase recreates it.
func (s *Syncer) renameUnit(ctx context.Context, r types.RenameAction) {
	result := types.FileResult{Mod: r.To, Path: r.From, Outcome: types.OutcomeSucceeded}

	if ctx.Err() != nil {
		result.Outcome = types.OutcomeFailed
		result.Kind = types.ErrKindCancelled
		result.Error = ctx.Err().Error()
		s.record(result)
		return
	}

	err := s.recaseDir(r.From, r.To)
	if err != nil {
		result.Outcome = types.OutcomeFailed
		result.Kind = types.ClassifyError(err)
		result.Error = err.Error()
		s.log.Warn("rename failed", "from", r.From, "to", r.To, "error", err)
	}
	s.record(result)
}

func (s *Syncer) recaseDir(from, to string) error {
	for _, name := range []string{from, to} {
		if !pathutil.IsSafe(name) || strings.ContainsAny(name, "/\\") {
			return fmt.Errorf("%w: mod name %s", types.ErrUnsafePath, name)
		}
	}
	old := filepath.Join(s.opts.Root, from)
	if _, err := os.Lstat(old); os.IsNotExist(err) {
		return nil
	}
	tmp := filepath.Join(s.opts.Root, to+partSuffix)
	if err := os.Rename(old, tmp); err != nil {
		return types.NewIoError(old, err)
	}
	if err := os.Rename(tmp, filepath.Join(s.opts.Root, to)); err != nil {
		return types.NewIoError(tmp, err)
	}
	return nil
}

// pruneEmptyDirs removes now-empty directories between the deleted file
// and the mod root.
func (s *Syncer) pruneEmptyDirs(abs string) {
	root, err := filepath.Abs(s.opts.Root)
	if err != nil {
		return
	}
	dir := filepath.Dir(abs)
	for {
		rel, err := filepath.Rel(root, dir)
		if err != nil || rel == "." || rel == ".." {
			return
		}
		// Keep top-level mod folders even when empty.
		if !filepath.IsLocal(rel) || filepath.Dir(rel) == "." {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func (s *Syncer) localPath(mod, rel string) (string, error) {
	if !pathutil.IsSafe(rel) {
		return "", fmt.Errorf("%w: %s", types.ErrUnsafePath, rel)
	}
	if !pathutil.IsSafe(mod) || pathutil.Normalize(mod) != mod {
		return "", fmt.Errorf("%w: mod name %s", types.ErrUnsafePath, mod)
	}
	return filepath.Join(s.opts.Root, filepath.FromSlash(mod), filepath.FromSlash(pathutil.Normalize(rel))), nil
}

func (s *Syncer) record(r types.FileResult) {
	s.mu.Lock()
	s.results = append(s.results, r)
	s.done++
	progress := Progress{Done: s.done, Total: s.total, Bytes: s.bytes}
	s.mu.Unlock()

	if s.opts.OnProgress != nil {
		s.opts.OnProgress(progress)
	}
}

func (s *Syncer) recordEntry(mod, rel string, entry types.CacheEntry, bytes int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byMod := s.entries[mod]
	if byMod == nil {
		byMod = make(map[string]types.CacheEntry)
		s.entries[mod] = byMod
	}
	byMod[pathutil.Canonical(rel)] = entry
	s.bytes += bytes
}

func (s *Syncer) buildReport(runID string, plan *types.Plan, start time.Time, cancelled bool) *types.SyncReport {
	s.mu.Lock()
	defer s.mu.Unlock()

	failedMods := make(map[string]bool)
	planMods := make(map[string]bool)
	for _, r := range s.results {
		planMods[r.Mod] = true
		if r.Outcome == types.OutcomeFailed {
			failedMods[r.Mod] = true
		}
	}

	var advanced, held []string
	for mod := range planMods {
		if failedMods[mod] {
			held = append(held, mod)
		} else {
			advanced = append(advanced, mod)
		}
	}
	sort.Strings(advanced)
	sort.Strings(held)

	// Entries for held mods must not leak into the cache.
	for mod := range s.entries {
		if failedMods[mod] {
			delete(s.entries, mod)
		}
	}

	return &types.SyncReport{
		RunID:            runID,
		ProfileID:        s.opts.ProfileID,
		Files:            s.results,
		Advanced:         advanced,
		Held:             held,
		BytesTransferred: s.bytes,
		Elapsed:          time.Since(start),
		Cancelled:        cancelled,
	}
}
