package planner_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/modpack-tools/loadout/pkg/loadout/planner"
	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

const (
	digestA = types.Digest("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	digestB = types.Digest("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func file(path string, size int64, d types.Digest) types.FileEntry {
	return types.FileEntry{Path: path, Size: size, ModTime: time.Unix(1700000000, 0), Digest: d}
}

func manifest(mods ...types.ModEntry) *types.Manifest {
	return types.NewManifest(mods)
}

func TestDiffIdenticalManifestsIsEmpty(t *testing.T) {
	m := manifest(types.ModEntry{Name: "cup_vehicles", Files: []types.FileEntry{
		file("addons/a.pbo", 10, digestA),
		file("addons/b.pbo", 20, digestB),
	}})

	plan, err := planner.Diff(m, m)
	if err != nil {
		t.Fatal(err)
	}
	if !plan.Empty() {
		t.Fatalf("diff of manifest with itself should be empty, got %+v", plan)
	}
	if len(plan.Unchanged) != 2 {
		t.Errorf("expected 2 unchanged entries, got %d", len(plan.Unchanged))
	}
}

func TestDiffPartitions(t *testing.T) {
	current := manifest(types.ModEntry{Name: "cup_vehicles", Files: []types.FileEntry{
		file("addons/keep.pbo", 10, digestA),
		file("addons/stale.pbo", 20, digestA),
		file("addons/extra.pbo", 30, digestA),
	}})
	target := manifest(types.ModEntry{Name: "cup_vehicles", Files: []types.FileEntry{
		file("addons/keep.pbo", 10, digestA),
		file("addons/stale.pbo", 20, digestB),
		file("addons/new.pbo", 40, digestB),
	}})

	plan, err := planner.Diff(current, target)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Add) != 1 || plan.Add[0].Entry.Path != "addons/new.pbo" {
		t.Errorf("unexpected adds: %+v", plan.Add)
	}
	if len(plan.Update) != 1 || plan.Update[0].New.Path != "addons/stale.pbo" {
		t.Errorf("unexpected updates: %+v", plan.Update)
	}
	if len(plan.Remove) != 1 || plan.Remove[0].Entry.Path != "addons/extra.pbo" {
		t.Errorf("unexpected removes: %+v", plan.Remove)
	}
	if len(plan.Unchanged) != 1 || plan.Unchanged[0].Entry.Path != "addons/keep.pbo" {
		t.Errorf("unexpected unchanged: %+v", plan.Unchanged)
	}
	if plan.TransferCount() != 2 {
		t.Errorf("expected 2 transfers, got %d", plan.TransferCount())
	}
	if plan.TransferBytes() != 60 {
		t.Errorf("expected 60 transfer bytes, got %d", plan.TransferBytes())
	}
}

func TestDiffSameSizeDifferentDigestIsUpdate(t *testing.T) {
	current := manifest(types.ModEntry{Name: "m", Files: []types.FileEntry{file("a.pbo", 10, digestA)}})
	target := manifest(types.ModEntry{Name: "m", Files: []types.FileEntry{file("a.pbo", 10, digestB)}})

	plan, err := planner.Diff(current, target)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Update) != 1 {
		t.Fatalf("same size with different digest must be an update, got %+v", plan)
	}
}

func TestDiffCaseInsensitivePaths(t *testing.T) {
	current := manifest(types.ModEntry{Name: "CUP_Vehicles", Files: []types.FileEntry{
		file("Addons/A.PBO", 10, digestA),
	}})
	target := manifest(types.ModEntry{Name: "cup_vehicles", Files: []types.FileEntry{
		file("addons/a.pbo", 10, digestA),
	}})

	plan, err := planner.Diff(current, target)
	if err != nil {
		t.Fatal(err)
	}
	if plan.TransferCount() != 0 || len(plan.Remove) != 0 {
		t.Fatalf("case-only differences must not produce transfers, got %+v", plan)
	}
	if len(plan.Unchanged) != 1 {
		t.Errorf("expected 1 unchanged entry, got %d", len(plan.Unchanged))
	}
	// The drifted mod directory casing is corrected by a rename.
	if len(plan.Rename) != 1 || plan.Rename[0].From != "CUP_Vehicles" || plan.Rename[0].To != "cup_vehicles" {
		t.Fatalf("expected a re-case rename, got %+v", plan.Rename)
	}
}

func TestDiffSameModCasingPlansNoRename(t *testing.T) {
	m := manifest(types.ModEntry{Name: "cup_vehicles", Files: []types.FileEntry{
		file("addons/a.pbo", 10, digestA),
	}})

	plan, err := planner.Diff(m, m)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Rename) != 0 {
		t.Fatalf("identical casing must not plan renames, got %+v", plan.Rename)
	}
}

func TestDiffHexCaseInsensitiveDigests(t *testing.T) {
	upper := types.Digest(strings.ToUpper(string(digestA)))
	current := manifest(types.ModEntry{Name: "m", Files: []types.FileEntry{
		file("a.pbo", 10, digestA),
	}})
	target := manifest(types.ModEntry{Name: "m", Files: []types.FileEntry{
		file("a.pbo", 10, upper),
	}})

	plan, err := planner.Diff(current, target)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Update) != 0 {
		t.Fatalf("digests differing only in hex case must not plan an update, got %+v", plan.Update)
	}
	if len(plan.Unchanged) != 1 {
		t.Errorf("expected 1 unchanged entry, got %d", len(plan.Unchanged))
	}
}

func TestDiffModMissingFromTarget(t *testing.T) {
	current := manifest(
		types.ModEntry{Name: "keep", Files: []types.FileEntry{file("a.pbo", 10, digestA)}},
		types.ModEntry{Name: "dropped", Files: []types.FileEntry{
			file("x.pbo", 10, digestA),
			file("y.pbo", 20, digestB),
		}},
	)
	target := manifest(types.ModEntry{Name: "keep", Files: []types.FileEntry{file("a.pbo", 10, digestA)}})

	plan, err := planner.Diff(current, target)
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Remove) != 2 {
		t.Fatalf("all files of a dropped mod should be removed, got %+v", plan.Remove)
	}
	for _, ref := range plan.Remove {
		if ref.Mod != "dropped" {
			t.Errorf("unexpected removal from mod %q", ref.Mod)
		}
	}
}

func TestDiffDuplicateCanonicalPathConflicts(t *testing.T) {
	target := manifest(types.ModEntry{Name: "m", Files: []types.FileEntry{
		file("a.pbo", 10, digestA),
		file("A.PBO", 10, digestB),
	}})
	current := manifest()

	_, err := planner.Diff(current, target)
	if !errors.Is(err, types.ErrPlanConflict) {
		t.Fatalf("expected plan conflict, got %v", err)
	}
}
