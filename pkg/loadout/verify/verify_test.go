package verify_test

import (
	"testing"
	"time"

	"github.com/modpack-tools/loadout/pkg/loadout/types"
	"github.com/modpack-tools/loadout/pkg/loadout/verify"
)

const (
	digestA = types.Digest("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	digestB = types.Digest("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
)

func file(path string, size int64, d types.Digest) types.FileEntry {
	return types.FileEntry{Path: path, Size: size, Digest: d}
}

func baselineWith(mods ...types.ModEntry) *types.Baseline {
	return &types.Baseline{
		ProfileID:  "main",
		ComputedAt: time.Unix(1700000000, 0),
		Manifest:   types.NewManifest(mods),
	}
}

func scanWith(mods ...types.ModEntry) *types.ScanReport {
	return &types.ScanReport{Manifest: types.NewManifest(mods)}
}

func TestCompareCleanFolder(t *testing.T) {
	mod := types.ModEntry{Name: "m", Files: []types.FileEntry{file("a.pbo", 10, digestA)}}
	report := verify.Compare(baselineWith(mod), scanWith(mod))

	if !report.Clean() {
		t.Fatalf("expected clean report, got %+v", report)
	}
	if len(report.Matching) != 1 {
		t.Errorf("expected 1 matching entry, got %d", len(report.Matching))
	}
}

func TestCompareBuckets(t *testing.T) {
	b := baselineWith(types.ModEntry{Name: "m", Files: []types.FileEntry{
		file("same.pbo", 10, digestA),
		file("changed.pbo", 20, digestA),
		file("deleted.pbo", 30, digestA),
	}})
	scan := scanWith(types.ModEntry{Name: "m", Files: []types.FileEntry{
		file("same.pbo", 10, digestA),
		file("changed.pbo", 20, digestB),
		file("added.pbo", 40, digestB),
	}})

	report := verify.Compare(b, scan)
	if report.Clean() {
		t.Fatal("report should not be clean")
	}
	check := func(name string, got []types.DriftEntry, wantPath string) {
		t.Helper()
		if len(got) != 1 || got[0].Path != wantPath {
			t.Errorf("%s = %+v, want single entry %s", name, got, wantPath)
		}
	}
	check("Matching", report.Matching, "same.pbo")
	check("Modified", report.Modified, "changed.pbo")
	check("Missing", report.Missing, "deleted.pbo")
	check("Extra", report.Extra, "added.pbo")
}

func TestCompareMissingMod(t *testing.T) {
	b := baselineWith(types.ModEntry{Name: "gone_mod", Files: []types.FileEntry{
		file("a.pbo", 10, digestA),
		file("b.pbo", 20, digestB),
	}})

	report := verify.Compare(b, scanWith())
	if len(report.Missing) != 2 {
		t.Fatalf("expected both files missing, got %+v", report.Missing)
	}
}

func TestCompareCaseOnlyDifferenceMatches(t *testing.T) {
	b := baselineWith(types.ModEntry{Name: "CUP_Vehicles", Files: []types.FileEntry{
		file("Addons/A.PBO", 10, digestA),
	}})
	scan := scanWith(types.ModEntry{Name: "cup_vehicles", Files: []types.FileEntry{
		file("addons/a.pbo", 10, digestA),
	}})

	report := verify.Compare(b, scan)
	if !report.Clean() {
		t.Fatalf("case-only differences must not be drift, got %+v", report)
	}
}

func TestCompareScanErrorsPropagate(t *testing.T) {
	scan := scanWith()
	scan.Errors = []types.ScanError{{Path: "m/locked.pbo", Error: "permission denied"}}

	report := verify.Compare(baselineWith(), scan)
	if report.Clean() {
		t.Fatal("scan errors must make the report unclean")
	}
}
