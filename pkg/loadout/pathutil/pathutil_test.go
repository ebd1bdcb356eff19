package pathutil

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"addons/file.pbo", "addons/file.pbo"},
		{"addons\\file.pbo", "addons/file.pbo"},
		{"./addons/file.pbo", "addons/file.pbo"},
		{"addons//file.pbo", "addons/file.pbo"},
		{"Addons/File.PBO", "Addons/File.PBO"},
		{".", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCanonicalFoldsCaseAndSeparators(t *testing.T) {
	if Canonical("Mods/Foo.pbo") != Canonical("mods\\foo.pbo") {
		t.Error("expected case- and separator-insensitive paths to match")
	}
}

func TestIsSafe(t *testing.T) {
	safe := []string{"addons/a.pbo", "a.pbo", "deep/nested/dir/file"}
	unsafe := []string{"", "../escape", "a/../../b", "/abs/path", "\\abs", "C:evil", "C:\\evil"}

	for _, p := range safe {
		if !IsSafe(p) {
			t.Errorf("IsSafe(%q) = false, want true", p)
		}
	}
	for _, p := range unsafe {
		if IsSafe(p) {
			t.Errorf("IsSafe(%q) = true, want false", p)
		}
	}
}
