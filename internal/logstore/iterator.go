package logstore

import (
	"path/filepath"

	"github.com/tuannm99/cellstore/internal/codec"
)

// Entry is one live record yielded by a scan, tagged with the instance hash
// of the partition it came from.
type Entry struct {
	Record codec.LogRecord
	Hash   string
}

type partRef struct {
	dir  string
	hash string
}

// Iterator is a pull-based, lazily loading scan over one or more partitions:
// newest segment first, newest record within a segment first. An id already
// seen, including as a tombstone, shadows every older record with that id;
// tombstones themselves are never yielded. Iterators are single-use but a
// fresh scan can always be started over the same partitions.
type Iterator struct {
	refs []partRef
	pi   int

	segments []int32 // descending, current partition
	si       int
	recs     []codec.LogRecord // current segment, reversed into scan order
	ri       int

	seen map[int64]bool
}

func newIterator(refs []partRef) *Iterator {
	return &Iterator{refs: refs, pi: -1, si: 0}
}

// Next yields the next live record, or (nil, nil) when the scan is done.
func (it *Iterator) Next() (*Entry, error) {
	for {
		if it.pi < 0 || it.ri >= len(it.recs) {
			if ok, err := it.advance(); err != nil || !ok {
				return nil, err
			}
			continue
		}

		rec := it.recs[it.ri]
		it.ri++

		if it.seen[rec.ID] {
			continue
		}
		it.seen[rec.ID] = true
		if rec.Deleted {
			continue
		}
		return &Entry{Record: rec, Hash: it.refs[it.pi].hash}, nil
	}
}

// advance loads the next segment (or partition) into memory.
func (it *Iterator) advance() (bool, error) {
	for {
		if it.pi >= 0 && it.si < len(it.segments) {
			seg := it.segments[it.si]
			it.si++
			recs, err := readSegment(filepath.Join(it.refs[it.pi].dir, segDataName(seg)))
			if err != nil {
				return false, err
			}
			reverse(recs)
			it.recs = recs
			it.ri = 0
			if len(recs) > 0 {
				return true, nil
			}
			continue
		}

		it.pi++
		if it.pi >= len(it.refs) {
			return false, nil
		}
		segs, err := listSegments(it.refs[it.pi].dir)
		if err != nil {
			return false, err
		}
		reverse32(segs)
		it.segments = segs
		it.si = 0
		it.seen = make(map[int64]bool)
	}
}

// Collect drains the iterator. Mostly a test and small-result convenience.
func (it *Iterator) Collect() ([]Entry, error) {
	var out []Entry
	for {
		e, err := it.Next()
		if err != nil {
			return nil, err
		}
		if e == nil {
			return out, nil
		}
		out = append(out, *e)
	}
}

func reverse(recs []codec.LogRecord) {
	for i, j := 0, len(recs)-1; i < j; i, j = i+1, j-1 {
		recs[i], recs[j] = recs[j], recs[i]
	}
}

func reverse32(v []int32) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}
