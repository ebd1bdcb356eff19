package scanner_test

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/modpack-tools/loadout/pkg/loadout/scanner"
	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// createModTree builds root/<mod>/<rel> files from the given layout.
func createModTree(t *testing.T, layout map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range layout {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestScanBuildsManifest(t *testing.T) {
	root := createModTree(t, map[string]string{
		"cup_vehicles/addons/a.pbo": "alpha",
		"cup_vehicles/addons/b.pbo": "bravo",
		"cup_weapons/w.pbo":         "whiskey",
	})

	s := scanner.New(scanner.Options{Root: root})
	report, err := s.Scan(context.Background(), nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	if len(report.Manifest.Mods) != 2 {
		t.Fatalf("expected 2 mods, got %d", len(report.Manifest.Mods))
	}
	mod, ok := report.Manifest.Mod("cup_vehicles")
	if !ok {
		t.Fatal("cup_vehicles missing from manifest")
	}
	if len(mod.Files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(mod.Files))
	}
	for _, f := range mod.Files {
		if _, err := types.ParseDigest(string(f.Digest)); err != nil {
			t.Errorf("file %s has invalid digest: %v", f.Path, err)
		}
	}
	if report.Stats.CacheMisses != 3 {
		t.Errorf("expected 3 cache misses on cold scan, got %d", report.Stats.CacheMisses)
	}
}

func TestScanEmptyModDir(t *testing.T) {
	root := t.TempDir()
	if err := os.Mkdir(filepath.Join(root, "empty_mod"), 0o755); err != nil {
		t.Fatal(err)
	}

	s := scanner.New(scanner.Options{Root: root})
	report, err := s.Scan(context.Background(), nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	mod, ok := report.Manifest.Mod("empty_mod")
	if !ok {
		t.Fatal("empty mod dir should still produce a mod entry")
	}
	if mod.Files == nil || len(mod.Files) != 0 {
		t.Errorf("expected empty file set, got %v", mod.Files)
	}
}

func TestScanReusesFreshCacheEntries(t *testing.T) {
	root := createModTree(t, map[string]string{"m/a.pbo": "content"})

	s := scanner.New(scanner.Options{Root: root})
	first, err := s.Scan(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}

	// Plant a sentinel digest in the cache record. If the second scan
	// trusts the cache, the sentinel comes back; a rehash would produce
	// the real digest instead.
	sentinel := types.Digest("cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc")
	records := map[string]types.CacheRecord{"m": first.Records["m"].Clone()}
	for k, e := range records["m"] {
		e.Digest = sentinel
		records["m"][k] = e
	}

	second, err := scanner.New(scanner.Options{Root: root}).Scan(context.Background(), records)
	if err != nil {
		t.Fatal(err)
	}
	mod, _ := second.Manifest.Mod("m")
	if mod.Files[0].Digest != sentinel {
		t.Error("fresh cache entry should be reused without rehashing")
	}
	if second.Stats.CacheHits != 1 {
		t.Errorf("expected 1 cache hit, got %d", second.Stats.CacheHits)
	}
}

func TestScanRehashesOnMtimeChange(t *testing.T) {
	root := createModTree(t, map[string]string{"m/a.pbo": "v1"})
	path := filepath.Join(root, "m", "a.pbo")

	s := scanner.New(scanner.Options{Root: root})
	first, err := s.Scan(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	firstMod, _ := first.Manifest.Mod("m")

	// Same size, different content and mtime.
	if err := os.WriteFile(path, []byte("v2"), 0o644); err != nil {
		t.Fatal(err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatal(err)
	}

	second, err := scanner.New(scanner.Options{Root: root}).Scan(context.Background(), first.Records)
	if err != nil {
		t.Fatal(err)
	}
	secondMod, _ := second.Manifest.Mod("m")
	if secondMod.Files[0].Digest == firstMod.Files[0].Digest {
		t.Error("changed file should have been rehashed")
	}
	if second.Stats.CacheMisses != 1 {
		t.Errorf("expected a cache miss, got %d", second.Stats.CacheMisses)
	}
}

func TestScanForceIgnoresCache(t *testing.T) {
	root := createModTree(t, map[string]string{"m/a.pbo": "content"})

	s := scanner.New(scanner.Options{Root: root})
	first, err := s.Scan(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}

	sentinel := types.Digest("cccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc")
	records := map[string]types.CacheRecord{"m": first.Records["m"].Clone()}
	for k, e := range records["m"] {
		e.Digest = sentinel
		records["m"][k] = e
	}

	forced, err := scanner.New(scanner.Options{Root: root, Force: true}).Scan(context.Background(), records)
	if err != nil {
		t.Fatal(err)
	}
	mod, _ := forced.Manifest.Mod("m")
	if mod.Files[0].Digest == sentinel {
		t.Error("Force scan must not trust cached digests")
	}
}

func TestScanDropsVanishedCacheEntries(t *testing.T) {
	root := createModTree(t, map[string]string{
		"m/keep.pbo": "keep",
		"m/gone.pbo": "gone",
	})

	s := scanner.New(scanner.Options{Root: root})
	first, err := s.Scan(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(filepath.Join(root, "m", "gone.pbo")); err != nil {
		t.Fatal(err)
	}

	second, err := scanner.New(scanner.Options{Root: root}).Scan(context.Background(), first.Records)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := second.Records["m"]["gone.pbo"]; ok {
		t.Error("cache entries for vanished files should be dropped")
	}
	if _, ok := second.Records["m"]["keep.pbo"]; !ok {
		t.Error("surviving file lost its cache entry")
	}
}

func TestScanReportsSymlinksAsErrors(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink creation requires privileges on windows")
	}
	root := createModTree(t, map[string]string{"m/real.pbo": "real"})
	link := filepath.Join(root, "m", "link.pbo")
	if err := os.Symlink(filepath.Join(root, "m", "real.pbo"), link); err != nil {
		t.Fatal(err)
	}

	report, err := scanner.New(scanner.Options{Root: root}).Scan(context.Background(), nil)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(report.Errors) == 0 {
		t.Fatal("symlink should surface as a scan error")
	}
	mod, _ := report.Manifest.Mod("m")
	if len(mod.Files) != 1 {
		t.Errorf("symlink must not appear in the manifest, got %d files", len(mod.Files))
	}
}

func TestScanMissingRoot(t *testing.T) {
	_, err := scanner.New(scanner.Options{Root: filepath.Join(t.TempDir(), "nope")}).Scan(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for missing root")
	}
}
