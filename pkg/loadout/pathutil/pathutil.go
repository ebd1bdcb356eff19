// Package pathutil normalizes manifest-relative paths so comparisons are
// stable across platforms. Paths have two forms: the wire form, which keeps
// the original casing but always uses forward slashes, and the canonical
// form, which additionally lowercases for case-insensitive matching.
package pathutil

import (
	"path"
	"strings"
)

// Normalize converts a relative path to wire form: forward slashes only,
// no leading "./", no duplicate separators.
func Normalize(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean(p)
	if p == "." {
		return ""
	}
	return strings.TrimPrefix(p, "./")
}

// Canonical returns the comparison key for a relative path. Target
// filesystems may be case-insensitive, so "Addons/A.pbo" and "addons/a.pbo"
// must collide here.
func Canonical(p string) string {
	return strings.ToLower(Normalize(p))
}

// CanonicalName folds a mod name for comparison.
func CanonicalName(name string) string {
	return strings.ToLower(name)
}

// IsSafe reports whether a manifest-relative path can be joined under a
// local root without escaping it. Manifests come from remote repositories,
// so traversal components are rejected outright.
func IsSafe(rel string) bool {
	if rel == "" {
		return false
	}
	n := Normalize(rel)
	if strings.HasPrefix(n, "/") || strings.HasPrefix(rel, "\\") {
		return false
	}
	// Windows drive-letter absolute paths ("C:...").
	if len(rel) > 1 && rel[1] == ':' {
		return false
	}
	for _, part := range strings.Split(n, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
