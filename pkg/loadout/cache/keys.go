package cache

import (
	"bytes"

	"github.com/modpack-tools/loadout/pkg/loadout/pathutil"
)

// keySeparator separates profile, mod, and relative path in cache keys.
const keySeparator = '\x00'

// makeKey builds the key for one file entry. Mod names and paths are
// canonicalized so a cache written on a case-insensitive filesystem reads
// back identically on any platform.
// Format: <profile>\x00<mod>\x00<rel>
func makeKey(profileID, mod, rel string) []byte {
	var b bytes.Buffer
	b.WriteString(profileID)
	b.WriteByte(keySeparator)
	b.WriteString(pathutil.CanonicalName(mod))
	b.WriteByte(keySeparator)
	b.WriteString(pathutil.Canonical(rel))
	return b.Bytes()
}

// modPrefix returns the key prefix covering all entries of one mod.
func modPrefix(profileID, mod string) []byte {
	var b bytes.Buffer
	b.WriteString(profileID)
	b.WriteByte(keySeparator)
	b.WriteString(pathutil.CanonicalName(mod))
	b.WriteByte(keySeparator)
	return b.Bytes()
}

// profilePrefix returns the key prefix covering every entry of a profile.
func profilePrefix(profileID string) []byte {
	var b bytes.Buffer
	b.WriteString(profileID)
	b.WriteByte(keySeparator)
	return b.Bytes()
}

// relFromKey extracts the canonical relative path from a full key.
func relFromKey(key, prefix []byte) string {
	return string(key[len(prefix):])
}
