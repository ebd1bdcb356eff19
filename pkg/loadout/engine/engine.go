// Package engine exposes the high-level profile operations: scan,
// check, plan, sync, repair, and rebaseline. It owns the wiring
// between the cache, baseline, and profile stores and the scanner,
// planner, and syncer.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modpack-tools/loadout/pkg/loadout/baseline"
	"github.com/modpack-tools/loadout/pkg/loadout/cache"
	"github.com/modpack-tools/loadout/pkg/loadout/logging"
	"github.com/modpack-tools/loadout/pkg/loadout/pathutil"
	"github.com/modpack-tools/loadout/pkg/loadout/planner"
	"github.com/modpack-tools/loadout/pkg/loadout/profile"
	"github.com/modpack-tools/loadout/pkg/loadout/remote"
	"github.com/modpack-tools/loadout/pkg/loadout/scanner"
	"github.com/modpack-tools/loadout/pkg/loadout/syncer"
	"github.com/modpack-tools/loadout/pkg/loadout/types"
	"github.com/modpack-tools/loadout/pkg/loadout/verify"
)

// Config carries the stores and factories an Engine needs.
type Config struct {
	Profiles  *profile.Store
	Baselines *baseline.Store
	Cache     *cache.Store

	// RemoteCache persists the last fetched remote manifest per profile
	// so repeat fetches can skip an unchanged download. Nil disables
	// the snapshot.
	RemoteCache *remote.ManifestCache

	// OpenSource builds the remote source for a repository URL. Nil
	// uses the HTTP implementation.
	OpenSource func(repoURL string) (remote.Source, error)
}

// Engine runs profile operations.
type Engine struct {
	profiles    *profile.Store
	baselines   *baseline.Store
	cache       *cache.Store
	remoteCache *remote.ManifestCache
	openSource  func(repoURL string) (remote.Source, error)
	log         *logging.Logger
}

func New(cfg Config) *Engine {
	open := cfg.OpenSource
	if open == nil {
		open = func(repoURL string) (remote.Source, error) {
			return remote.NewHTTPSource(repoURL)
		}
	}
	return &Engine{
		profiles:    cfg.Profiles,
		baselines:   cfg.Baselines,
		cache:       cfg.Cache,
		remoteCache: cfg.RemoteCache,
		openSource:  open,
		log:         logging.Get("engine"),
	}
}

// ScanOptions tunes a local scan.
type ScanOptions struct {
	Force      bool
	Workers    int
	OnProgress func(types.ScanStats)
}

// Scan walks a profile's local folder, reusing cached digests where the
// files are unchanged, and persists the refreshed cache records.
func (e *Engine) Scan(ctx context.Context, profileID string, opts ScanOptions) (*types.ScanReport, error) {
	p, err := e.profiles.Get(profileID)
	if err != nil {
		return nil, err
	}
	return e.scanProfile(ctx, p, opts)
}

// runScan walks the folder without touching the cache store. Cached
// records still feed the staleness check; they are just not rewritten.
func (e *Engine) runScan(ctx context.Context, p *profile.Profile, opts ScanOptions) (*types.ScanReport, map[string]types.CacheRecord, error) {
	records, err := e.cache.LoadProfile(p.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("load cache records: %w", err)
	}

	s := scanner.New(scanner.Options{
		Root:        p.Root,
		HashWorkers: opts.Workers,
		Force:       opts.Force,
		OnProgress:  opts.OnProgress,
	})
	report, err := s.Scan(ctx, records)
	if err != nil {
		return nil, nil, err
	}
	return report, records, nil
}

func (e *Engine) scanProfile(ctx context.Context, p *profile.Profile, opts ScanOptions) (*types.ScanReport, error) {
	report, records, err := e.runScan(ctx, p, opts)
	if err != nil {
		return nil, err
	}

	for mod, rec := range report.Records {
		if err := e.cache.SaveMod(p.ID, mod, rec); err != nil {
			return nil, fmt.Errorf("persist cache record for %s: %w", mod, err)
		}
	}
	// Mods that vanished from disk keep no cache entries.
	for mod := range records {
		if _, ok := report.Records[mod]; !ok {
			if err := e.cache.DropMod(p.ID, mod); err != nil {
				return nil, fmt.Errorf("drop cache record for %s: %w", mod, err)
			}
		}
	}

	e.log.Info("scan complete", "profile", p.ID,
		"files", report.Stats.FilesScanned,
		"cache_hits", report.Stats.CacheHits,
		"errors", len(report.Errors))
	return report, nil
}

// Check compares the local folder against the profile's baseline. It
// requires a completed sync; without a baseline there is nothing to
// verify against. Check is read-only: neither the baseline nor the
// cache records move, so a check after tampering leaves the evidence
// intact for repair.
func (e *Engine) Check(ctx context.Context, profileID string, opts ScanOptions) (*types.DriftReport, error) {
	b, err := e.baselines.Load(profileID)
	if err != nil {
		return nil, err
	}
	p, err := e.profiles.Get(profileID)
	if err != nil {
		return nil, err
	}
	scan, _, err := e.runScan(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	return verify.Compare(b, scan), nil
}

// PlanResult pairs a reconciliation plan with the manifests it was
// computed from.
type PlanResult struct {
	Plan    *types.Plan
	Target  *types.Manifest
	Scan    *types.ScanReport
	Profile *profile.Profile
}

// Plan fetches the remote manifest and computes the plan that would
// bring the local folder up to date. It changes nothing on disk.
func (e *Engine) Plan(ctx context.Context, profileID string, opts ScanOptions) (*PlanResult, error) {
	p, err := e.profiles.Get(profileID)
	if err != nil {
		return nil, err
	}
	src, err := e.openSource(p.RepoURL)
	if err != nil {
		return nil, err
	}
	return e.planAgainst(ctx, p, src, opts)
}

func (e *Engine) planAgainst(ctx context.Context, p *profile.Profile, src remote.ManifestSource, opts ScanOptions) (*PlanResult, error) {
	cond, conditional := src.(remote.ConditionalSource)
	if conditional && e.remoteCache != nil {
		cond.Prime(e.remoteCache.Load(p.ID))
	}
	target, err := src.FetchManifest(ctx)
	if err != nil {
		return nil, err
	}
	if conditional && e.remoteCache != nil {
		lastModified, m := cond.CachedState()
		if err := e.remoteCache.Save(p.ID, lastModified, m); err != nil {
			e.log.Warn("persisting remote manifest snapshot", "profile", p.ID, "error", err)
		}
	}
	scan, err := e.scanProfile(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	plan, err := planner.Diff(scan.Manifest, target)
	if err != nil {
		return nil, err
	}
	return &PlanResult{Plan: plan, Target: target, Scan: scan, Profile: p}, nil
}

// SyncOptions tunes a sync run.
type SyncOptions struct {
	Scan ScanOptions

	Workers      int
	Retries      int
	UnitTimeout  time.Duration
	FreeHeadroom int64
	RateLimit    int64
	OnProgress   func(syncer.Progress)
}

// Sync brings the local folder up to date with the remote repository.
// Mods with any failed transfer keep their previous baseline and cache
// state so the next run retries exactly what failed.
func (e *Engine) Sync(ctx context.Context, profileID string, opts SyncOptions) (*types.SyncReport, error) {
	p, err := e.profiles.Get(profileID)
	if err != nil {
		return nil, err
	}
	src, err := e.openSource(p.RepoURL)
	if err != nil {
		return nil, err
	}
	planRes, err := e.planAgainst(ctx, p, src, opts.Scan)
	if err != nil {
		return nil, err
	}
	return e.execute(ctx, planRes, src, opts, planRes.Target)
}

// Repair restores the local folder to the profile's baseline, refetching
// damaged or missing files from the remote and deleting extras. The
// baseline itself does not move. The scan is a forced full rehash, so
// corruption that kept a file's size and mtime is still caught.
func (e *Engine) Repair(ctx context.Context, profileID string, opts SyncOptions) (*types.SyncReport, error) {
	p, err := e.profiles.Get(profileID)
	if err != nil {
		return nil, err
	}
	b, err := e.baselines.Load(profileID)
	if err != nil {
		return nil, err
	}
	src, err := e.openSource(p.RepoURL)
	if err != nil {
		return nil, err
	}
	opts.Scan.Force = true
	scan, err := e.scanProfile(ctx, p, opts.Scan)
	if err != nil {
		return nil, err
	}
	plan, err := planner.Diff(scan.Manifest, b.Manifest)
	if err != nil {
		return nil, err
	}
	planRes := &PlanResult{Plan: plan, Target: b.Manifest, Scan: scan, Profile: p}
	return e.execute(ctx, planRes, src, opts, b.Manifest)
}

// Rebaseline accepts the local folder as the new truth: a forced full
// rehash of every file is persisted as the profile's baseline. This is
// how drift is adopted instead of repaired, and how a pre-populated
// folder gets its first baseline without a sync.
func (e *Engine) Rebaseline(ctx context.Context, profileID string, opts ScanOptions) (*types.ScanReport, error) {
	p, err := e.profiles.Get(profileID)
	if err != nil {
		return nil, err
	}
	opts.Force = true
	report, err := e.scanProfile(ctx, p, opts)
	if err != nil {
		return nil, err
	}
	if len(report.Errors) > 0 {
		return report, fmt.Errorf("refusing to rebaseline with %d unreadable files", len(report.Errors))
	}
	if err := e.baselines.Save(&types.Baseline{
		ProfileID:  profileID,
		ComputedAt: time.Now().UTC(),
		Manifest:   report.Manifest,
	}); err != nil {
		return report, err
	}
	e.log.Info("baseline rebuilt from local state", "profile", profileID,
		"files", report.Manifest.FileCount())
	return report, nil
}

func (e *Engine) execute(ctx context.Context, planRes *PlanResult, src remote.FileProvider, opts SyncOptions, target *types.Manifest) (*types.SyncReport, error) {
	s := syncer.New(syncer.Options{
		Root:         planRes.Profile.Root,
		ProfileID:    planRes.Profile.ID,
		Workers:      opts.Workers,
		Retries:      opts.Retries,
		UnitTimeout:  opts.UnitTimeout,
		FreeHeadroom: opts.FreeHeadroom,
		RateLimit:    opts.RateLimit,
		OnProgress:   opts.OnProgress,
	})
	result, err := s.Run(ctx, planRes.Plan, src)
	if err != nil {
		return nil, err
	}

	if err := e.advance(planRes.Profile.ID, target, planRes.Scan, result); err != nil {
		return nil, err
	}
	return result.Report, nil
}

// advance moves the baseline and cache forward for every mod without a
// failed unit. Held mods keep their previous baseline entry, so their
// pending work reappears in the next plan.
func (e *Engine) advance(profileID string, target *types.Manifest, scan *types.ScanReport, result *syncer.Result) error {
	prior, err := e.baselines.Load(profileID)
	if err != nil && !isNoBaseline(err) {
		return err
	}

	held := make(map[string]bool, len(result.Report.Held))
	for _, mod := range result.Report.Held {
		held[pathutil.CanonicalName(mod)] = true
	}

	transferred := make(map[string]map[string]types.CacheEntry, len(result.Entries))
	for mod, entries := range result.Entries {
		transferred[pathutil.CanonicalName(mod)] = entries
	}

	var mods []types.ModEntry
	for _, mod := range target.Mods {
		key := pathutil.CanonicalName(mod.Name)
		if held[key] {
			if prior != nil {
				if old, ok := prior.Manifest.Mod(mod.Name); ok {
					mods = append(mods, old)
				}
			}
			continue
		}
		mods = append(mods, mod)

		rec := e.composeRecord(key, mod, scan, transferred[key])
		if err := e.cache.SaveMod(profileID, mod.Name, rec); err != nil {
			return fmt.Errorf("persist cache record for %s: %w", mod.Name, err)
		}
	}

	// Mods the target dropped: keep them in the baseline only while
	// their removals are still pending.
	if prior != nil {
		for _, mod := range prior.Manifest.Mods {
			key := pathutil.CanonicalName(mod.Name)
			if _, inTarget := target.Mod(mod.Name); inTarget {
				continue
			}
			if held[key] {
				mods = append(mods, mod)
				continue
			}
			if err := e.cache.DropMod(profileID, mod.Name); err != nil {
				return fmt.Errorf("drop cache record for %s: %w", mod.Name, err)
			}
		}
	}

	return e.baselines.Save(&types.Baseline{
		ProfileID:  profileID,
		ComputedAt: time.Now().UTC(),
		Manifest:   types.NewManifest(mods),
	})
}

// composeRecord builds the post-sync cache record for an advanced mod:
// scanned entries for files that were already correct, overlaid with
// the entries recorded during transfer.
func (e *Engine) composeRecord(modKey string, mod types.ModEntry, scan *types.ScanReport, fetched map[string]types.CacheEntry) types.CacheRecord {
	inTarget := make(map[string]bool, len(mod.Files))
	for _, f := range mod.Files {
		inTarget[pathutil.Canonical(f.Path)] = true
	}

	rec := make(types.CacheRecord)
	for rel, entry := range scan.Records[modKey] {
		if inTarget[rel] {
			rec[rel] = entry
		}
	}
	for rel, entry := range fetched {
		rec[rel] = entry
	}
	return rec
}

func isNoBaseline(err error) bool {
	return errors.Is(err, baseline.ErrNoBaseline)
}
