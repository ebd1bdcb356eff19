// Package planner computes the reconciliation plan between the local
// state of a mod repository and a target manifest.
package planner

import (
	"fmt"

	"github.com/modpack-tools/loadout/pkg/loadout/pathutil"
	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// keyed indexes one manifest side by canonical (mod, path) pairs.
type keyed struct {
	mods  map[string]types.ModEntry
	files map[string]map[string]types.FileEntry
}

func index(m *types.Manifest) (*keyed, error) {
	k := &keyed{
		mods:  make(map[string]types.ModEntry, len(m.Mods)),
		files: make(map[string]map[string]types.FileEntry, len(m.Mods)),
	}
	for _, mod := range m.Mods {
		modKey := pathutil.CanonicalName(mod.Name)
		if _, dup := k.mods[modKey]; dup {
			return nil, fmt.Errorf("%w: mod %q listed twice", types.ErrPlanConflict, mod.Name)
		}
		k.mods[modKey] = mod
		byPath := make(map[string]types.FileEntry, len(mod.Files))
		for _, f := range mod.Files {
			pathKey := pathutil.Canonical(f.Path)
			if _, dup := byPath[pathKey]; dup {
				return nil, fmt.Errorf("%w: path %q listed twice in mod %q", types.ErrPlanConflict, f.Path, mod.Name)
			}
			byPath[pathKey] = f
		}
		k.files[modKey] = byPath
	}
	return k, nil
}

// Diff partitions the union of file paths in current and target into
// the four plan buckets. Paths and mod names compare canonically, so a
// case rename alone never produces a transfer; a mod directory whose
// casing drifted from the target gets a Rename action instead. Target
// order drives the ordering of Add and Update entries.
func Diff(current, target *types.Manifest) (*types.Plan, error) {
	cur, err := index(current)
	if err != nil {
		return nil, err
	}
	tgt, err := index(target)
	if err != nil {
		return nil, err
	}

	plan := &types.Plan{}

	for _, mod := range target.Mods {
		modKey := pathutil.CanonicalName(mod.Name)
		if curMod, ok := cur.mods[modKey]; ok && curMod.Name != mod.Name {
			// Same mod, drifted directory casing: plan a re-case so the
			// on-disk name matches the target exactly.
			plan.Rename = append(plan.Rename, types.RenameAction{From: curMod.Name, To: mod.Name})
		}
		curFiles := cur.files[modKey]
		for _, want := range mod.Files {
			have, ok := curFiles[pathutil.Canonical(want.Path)]
			switch {
			case !ok:
				plan.Add = append(plan.Add, types.FileRef{Mod: mod.Name, Entry: want})
			case have.ContentEqual(want):
				plan.Unchanged = append(plan.Unchanged, types.FileRef{Mod: mod.Name, Entry: want})
			default:
				plan.Update = append(plan.Update, types.UpdatePair{Mod: mod.Name, Old: have, New: want})
			}
		}
	}

	for _, mod := range current.Mods {
		modKey := pathutil.CanonicalName(mod.Name)
		tgtFiles := tgt.files[modKey]
		for _, have := range mod.Files {
			if _, ok := tgtFiles[pathutil.Canonical(have.Path)]; !ok {
				plan.Remove = append(plan.Remove, types.FileRef{Mod: mod.Name, Entry: have})
			}
		}
	}

	return plan, nil
}
