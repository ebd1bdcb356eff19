// Package verify compares a fresh local scan against the persisted
// baseline manifest. It is strictly read-only and never touches the
// network; drift is reported, not repaired.
package verify

import (
	"github.com/modpack-tools/loadout/pkg/loadout/pathutil"
	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// Compare classifies every file in the baseline and the scan into the
// drift buckets. Files present in both with equal content are Matching,
// content differences are Modified, baseline files absent locally are
// Missing, and local files the baseline does not know are Extra.
func Compare(b *types.Baseline, scan *types.ScanReport) *types.DriftReport {
	report := &types.DriftReport{
		ProfileID:  b.ProfileID,
		BaselineAt: b.ComputedAt,
		ScanErrors: scan.Errors,
	}

	type local struct {
		entry types.FileEntry
		seen  bool
	}
	localIndex := make(map[string]map[string]*local)
	for _, mod := range scan.Manifest.Mods {
		byPath := make(map[string]*local, len(mod.Files))
		for _, f := range mod.Files {
			byPath[pathutil.Canonical(f.Path)] = &local{entry: f}
		}
		localIndex[pathutil.CanonicalName(mod.Name)] = byPath
	}

	for _, mod := range b.Manifest.Mods {
		byPath := localIndex[pathutil.CanonicalName(mod.Name)]
		for _, want := range mod.Files {
			ref := types.DriftEntry{Mod: mod.Name, Path: want.Path}
			have, ok := byPath[pathutil.Canonical(want.Path)]
			switch {
			case !ok:
				report.Missing = append(report.Missing, ref)
			case have.entry.ContentEqual(want):
				have.seen = true
				report.Matching = append(report.Matching, ref)
			default:
				have.seen = true
				report.Modified = append(report.Modified, ref)
			}
		}
	}

	for _, mod := range scan.Manifest.Mods {
		byPath := localIndex[pathutil.CanonicalName(mod.Name)]
		for _, f := range mod.Files {
			if !byPath[pathutil.Canonical(f.Path)].seen {
				report.Extra = append(report.Extra, types.DriftEntry{Mod: mod.Name, Path: f.Path})
			}
		}
	}

	return report
}
