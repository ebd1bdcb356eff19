package types

import (
	"strings"
	"testing"
	"time"
)

const (
	digestA = "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	digestB = "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb"
)

func TestParseDigest(t *testing.T) {
	if _, err := ParseDigest(digestA); err != nil {
		t.Fatalf("valid digest rejected: %v", err)
	}
	if _, err := ParseDigest("short"); err == nil {
		t.Error("expected error for short digest")
	}
	if _, err := ParseDigest(strings.Repeat("z", DigestLen)); err == nil {
		t.Error("expected error for non-hex digest")
	}
}

func TestParseDigestFoldsToLowercase(t *testing.T) {
	d, err := ParseDigest(strings.ToUpper(digestA))
	if err != nil {
		t.Fatalf("uppercase hex rejected: %v", err)
	}
	if d != Digest(digestA) {
		t.Errorf("expected lowercase fold, got %s", d)
	}
}

func TestDigestEqualIgnoresHexCase(t *testing.T) {
	if !Digest(digestA).Equal(Digest(strings.ToUpper(digestA))) {
		t.Error("digests differing only in hex case should be equal")
	}
	if Digest(digestA).Equal(Digest(digestB)) {
		t.Error("different digests should not be equal")
	}
}

func TestNormalizeDigests(t *testing.T) {
	m := &Manifest{Mods: []ModEntry{
		{Name: "m", Files: []FileEntry{{Path: "a.pbo", Digest: Digest(strings.ToUpper(digestA))}}},
	}}
	if err := m.NormalizeDigests(); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if m.Mods[0].Files[0].Digest != Digest(digestA) {
		t.Errorf("expected folded digest, got %s", m.Mods[0].Files[0].Digest)
	}

	bad := &Manifest{Mods: []ModEntry{
		{Name: "m", Files: []FileEntry{{Path: "a.pbo", Digest: "nothex"}}},
	}}
	if err := bad.NormalizeDigests(); err == nil {
		t.Error("expected error for invalid digest")
	}
}

func TestContentEqualIgnoresDigestCase(t *testing.T) {
	a := FileEntry{Path: "a.pbo", Size: 10, Digest: Digest(digestA)}
	b := FileEntry{Path: "a.pbo", Size: 10, Digest: Digest(strings.ToUpper(digestA))}
	if !a.ContentEqual(b) {
		t.Error("hex case alone must not break content equality")
	}
}

func TestContentEqualIgnoresModTime(t *testing.T) {
	a := FileEntry{Path: "a.pbo", Size: 10, Digest: digestA, ModTime: time.Unix(1, 0)}
	b := FileEntry{Path: "a.pbo", Size: 10, Digest: digestA, ModTime: time.Unix(99, 0)}
	if !a.ContentEqual(b) {
		t.Error("entries with equal digests should be content-equal regardless of mtime")
	}

	b.Digest = digestB
	if a.ContentEqual(b) {
		t.Error("equal size must not imply content equality")
	}
}

func TestNewManifestCanonicalOrder(t *testing.T) {
	m1 := NewManifest([]ModEntry{
		{Name: "zeta", Files: []FileEntry{{Path: "b.pbo"}, {Path: "A.pbo"}}},
		{Name: "Alpha"},
	})
	m2 := NewManifest([]ModEntry{
		{Name: "Alpha"},
		{Name: "zeta", Files: []FileEntry{{Path: "A.pbo"}, {Path: "b.pbo"}}},
	})

	if m1.Mods[0].Name != "Alpha" {
		t.Errorf("expected Alpha first, got %s", m1.Mods[0].Name)
	}
	if m1.Mods[1].Files[0].Path != "A.pbo" {
		t.Errorf("expected files sorted canonically, got %s first", m1.Mods[1].Files[0].Path)
	}
	if len(m1.Mods) != len(m2.Mods) || m1.Mods[1].Files[0] != m2.Mods[1].Files[0] {
		t.Error("same content in different input order should build equal manifests")
	}
}

func TestManifestLookupIsCaseInsensitive(t *testing.T) {
	m := NewManifest([]ModEntry{
		{Name: "CUP_Vehicles", Files: []FileEntry{{Path: "Addons/a.pbo", Size: 3}}},
	})

	mod, ok := m.Mod("cup_vehicles")
	if !ok {
		t.Fatal("mod lookup should fold case")
	}
	if _, ok := mod.File("addons/A.PBO"); !ok {
		t.Error("file lookup should fold case")
	}
}

func TestCacheEntryFresh(t *testing.T) {
	e := CacheEntry{Size: 10, Mtime: 500, Digest: digestA}
	if !e.Fresh(10, 500) {
		t.Error("matching size+mtime should be fresh")
	}
	if e.Fresh(10, 501) {
		t.Error("mtime change should be stale")
	}
	if e.Fresh(11, 500) {
		t.Error("size change should be stale")
	}
}

func TestPlanAccounting(t *testing.T) {
	p := &Plan{
		Add:    []FileRef{{Mod: "m", Entry: FileEntry{Path: "a", Size: 5}}},
		Update: []UpdatePair{{Mod: "m", New: FileEntry{Path: "b", Size: 7}}},
	}
	if p.Empty() {
		t.Error("plan with work should not be empty")
	}
	if got := p.TransferCount(); got != 2 {
		t.Errorf("TransferCount = %d, want 2", got)
	}
	if got := p.TransferBytes(); got != 12 {
		t.Errorf("TransferBytes = %d, want 12", got)
	}
}
