package sindex

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/tuannm99/cellstore/internal/alias/bx"
	"github.com/tuannm99/cellstore/internal/dberr"
)

// Location identifies where a key's value lives in partition storage.
// Segment/Offset locate bytes inside a segment file; LogID carries the log
// record id when the key maps to one.
type Location struct {
	Segment int32
	Offset  int64
	LogID   int64
}

type entry struct {
	key Key
	loc Location
}

// Store is one persistent ordered map. Entries live sorted in memory and the
// backing file is rewritten on mutation; the single-writer contract of the
// engine (§ concurrency) means no internal locking.
type Store struct {
	path    string
	entries []entry
	loaded  bool
}

// Open binds a store to its backing file. The file is loaded lazily on first
// access; a missing file is an empty store.
func Open(path string) *Store {
	return &Store{path: path}
}

// on-disk entry layout: [keyLen i32][key][segment i32][offset i64][logID i64]

func (s *Store) load() error {
	if s.loaded {
		return nil
	}
	s.loaded = true

	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return dberr.WrapFile("sindex open", err)
	}
	defer func() { _ = f.Close() }()

	for {
		var lenB [4]byte
		if _, err := io.ReadFull(f, lenB[:]); err != nil {
			// torn tail tolerated like segment readers
			return nil
		}
		kl := int(bx.I32(lenB[:]))
		if kl < 0 || kl > 1<<20 {
			return dberr.Data("sindex: bad key length %d", kl)
		}
		rest := make([]byte, kl+4+8+8)
		if _, err := io.ReadFull(f, rest); err != nil {
			return nil
		}
		e := entry{key: Key(rest[:kl])}
		e.loc.Segment = bx.I32(rest[kl:])
		e.loc.Offset = bx.I64(rest[kl+4:])
		e.loc.LogID = bx.I64(rest[kl+12:])
		s.entries = append(s.entries, e)
	}
}

func (s *Store) persist() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return dberr.WrapFile("sindex mkdir", err)
	}
	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return dberr.WrapFile("sindex create", err)
	}

	var buf []byte
	for _, e := range s.entries {
		buf = bx.AppendI32(buf, int32(len(e.key)))
		buf = append(buf, e.key...)
		buf = bx.AppendI32(buf, e.loc.Segment)
		buf = bx.AppendI64(buf, e.loc.Offset)
		buf = bx.AppendI64(buf, e.loc.LogID)
	}
	if _, err := f.Write(buf); err != nil {
		_ = f.Close()
		return dberr.WrapFile("sindex write", err)
	}
	if err := f.Close(); err != nil {
		return dberr.WrapFile("sindex close", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return dberr.WrapFile("sindex rename", err)
	}
	return nil
}

// search returns the insertion position and whether an exact match sits there.
func (s *Store) search(key Key) (int, bool) {
	i := sort.Search(len(s.entries), func(i int) bool {
		return Compare(s.entries[i].key, key) >= 0
	})
	return i, i < len(s.entries) && Compare(s.entries[i].key, key) == 0
}

// Insert upserts key→loc and persists.
func (s *Store) Insert(key Key, loc Location) error {
	if err := s.load(); err != nil {
		return err
	}
	i, found := s.search(key)
	if found {
		s.entries[i].loc = loc
	} else {
		s.entries = append(s.entries, entry{})
		copy(s.entries[i+1:], s.entries[i:])
		s.entries[i] = entry{key: key, loc: loc}
	}
	return s.persist()
}

// BulkInsert upserts many pairs and persists once.
func (s *Store) BulkInsert(keys []Key, locs []Location) error {
	if len(keys) != len(locs) {
		return dberr.Data("sindex: %d keys for %d locations", len(keys), len(locs))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.load(); err != nil {
		return err
	}
	for n, key := range keys {
		i, found := s.search(key)
		if found {
			s.entries[i].loc = locs[n]
			continue
		}
		s.entries = append(s.entries, entry{})
		copy(s.entries[i+1:], s.entries[i:])
		s.entries[i] = entry{key: key, loc: locs[n]}
	}
	return s.persist()
}

// Search returns the location for an exact key.
func (s *Store) Search(key Key) (Location, bool, error) {
	if err := s.load(); err != nil {
		return Location{}, false, err
	}
	i, found := s.search(key)
	if !found {
		return Location{}, false, nil
	}
	return s.entries[i].loc, true, nil
}

// Delete removes a key if present and persists.
func (s *Store) Delete(key Key) error {
	if err := s.load(); err != nil {
		return err
	}
	i, found := s.search(key)
	if !found {
		return nil
	}
	s.entries = append(s.entries[:i], s.entries[i+1:]...)
	return s.persist()
}

// LastKey returns the greatest key in the store.
func (s *Store) LastKey() (Key, Location, bool, error) {
	if err := s.load(); err != nil {
		return nil, Location{}, false, err
	}
	if len(s.entries) == 0 {
		return nil, Location{}, false, nil
	}
	last := s.entries[len(s.entries)-1]
	return last.key, last.loc, true, nil
}

// NextInt64Key allocates the next monotonic id for stores keyed by int64.
func (s *Store) NextInt64Key() (int64, error) {
	k, _, ok, err := s.LastKey()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 1, nil
	}
	id, ok := KeyToInt64(k)
	if !ok {
		return 0, dberr.Data("sindex: last key is not an int64 key")
	}
	return id + 1, nil
}

// Len reports the entry count.
func (s *Store) Len() (int, error) {
	if err := s.load(); err != nil {
		return 0, err
	}
	return len(s.entries), nil
}
