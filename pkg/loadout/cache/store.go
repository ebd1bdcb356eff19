// Package cache persists per-mod cache records in a Badger key-value store.
// A record entry is trusted only while the live file's size and mtime match
// it; the store itself never decides freshness, it only round-trips what
// the scanner computed.
package cache

import (
	"bytes"
	"encoding/gob"
	"errors"

	"github.com/dgraph-io/badger/v4"

	"github.com/modpack-tools/loadout/pkg/loadout/types"
)

// ErrNotFound is returned when a cache entry doesn't exist.
var ErrNotFound = errors.New("cache entry not found")

// Store wraps Badger for cache record operations.
type Store struct {
	db *badger.DB
}

// Open opens or creates a cache store at the given path.
func Open(path string) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // Badger's own logging is too chatty for a CLI.

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store backed by memory only, for tests.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadMod reads the cache record for one mod. A mod with no persisted
// entries yields an empty record, not an error.
func (s *Store) LoadMod(profileID, mod string) (types.CacheRecord, error) {
	prefix := modPrefix(profileID, mod)
	rec := make(types.CacheRecord)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			rel := relFromKey(item.KeyCopy(nil), prefix)
			err := item.Value(func(val []byte) error {
				entry, derr := decodeEntry(val)
				if derr != nil {
					return derr
				}
				rec[rel] = entry
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// LoadProfile reads every mod's cache record for a profile, keyed by
// canonical mod name.
func (s *Store) LoadProfile(profileID string) (map[string]types.CacheRecord, error) {
	prefix := profilePrefix(profileID)
	records := make(map[string]types.CacheRecord)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			rest := item.KeyCopy(nil)[len(prefix):]
			sep := bytes.IndexByte(rest, keySeparator)
			if sep < 0 {
				continue
			}
			mod, rel := string(rest[:sep]), string(rest[sep+1:])

			err := item.Value(func(val []byte) error {
				entry, derr := decodeEntry(val)
				if derr != nil {
					return derr
				}
				rec := records[mod]
				if rec == nil {
					rec = make(types.CacheRecord)
					records[mod] = rec
				}
				rec[rel] = entry
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SaveMod replaces a mod's record in a single transaction, so a crash
// leaves either the old or the new record, never a mix.
func (s *Store) SaveMod(profileID, mod string, rec types.CacheRecord) error {
	prefix := modPrefix(profileID, mod)

	return s.db.Update(func(txn *badger.Txn) error {
		if err := deletePrefix(txn, prefix); err != nil {
			return err
		}
		for rel, entry := range rec {
			val, err := encodeEntry(entry)
			if err != nil {
				return err
			}
			if err := txn.Set(makeKey(profileID, mod, rel), val); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get reads a single entry.
func (s *Store) Get(profileID, mod, rel string) (types.CacheEntry, error) {
	var entry types.CacheEntry

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(makeKey(profileID, mod, rel))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			e, derr := decodeEntry(val)
			if derr != nil {
				return derr
			}
			entry = e
			return nil
		})
	})
	if err != nil {
		return types.CacheEntry{}, err
	}
	return entry, nil
}

// DropMod removes every entry for a mod.
func (s *Store) DropMod(profileID, mod string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return deletePrefix(txn, modPrefix(profileID, mod))
	})
}

// DropProfile removes every entry for a profile.
func (s *Store) DropProfile(profileID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return deletePrefix(txn, profilePrefix(profileID))
	})
}

// deletePrefix removes all keys under prefix within an open transaction.
func deletePrefix(txn *badger.Txn, prefix []byte) error {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := txn.Delete(it.Item().KeyCopy(nil)); err != nil {
			return err
		}
	}
	return nil
}

func encodeEntry(e types.CacheEntry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&e); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeEntry(data []byte) (types.CacheEntry, error) {
	var e types.CacheEntry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
		return types.CacheEntry{}, err
	}
	return e, nil
}
