// Package wal holds the write-ahead buffer: per-partition queues of log
// records staged in memory until commit condenses and flushes them.
package wal

import (
	"sort"

	"github.com/tuannm99/cellstore/internal/codec"
)

// PartitionID names one (module, table, instance hash) partition.
type PartitionID struct {
	Module string
	Table  string
	Hash   string
}

// Buffer queues uncommitted records per partition in enqueue order.
// Single-writer: no internal locking, callers serialize access.
type Buffer struct {
	pending map[PartitionID][]codec.LogRecord
	order   []PartitionID
}

func NewBuffer() *Buffer {
	return &Buffer{pending: make(map[PartitionID][]codec.LogRecord)}
}

// Append enqueues a record for a partition.
func (b *Buffer) Append(p PartitionID, rec codec.LogRecord) {
	if _, ok := b.pending[p]; !ok {
		b.order = append(b.order, p)
	}
	b.pending[p] = append(b.pending[p], rec)
}

// Latest returns the most recently enqueued record with the given id, so an
// uncommitted write shadows disk state for reads.
func (b *Buffer) Latest(p PartitionID, id int64) (codec.LogRecord, bool) {
	q := b.pending[p]
	for i := len(q) - 1; i >= 0; i-- {
		if q[i].ID == id {
			return q[i], true
		}
	}
	return codec.LogRecord{}, false
}

// MaxID returns the highest id currently queued for a partition.
func (b *Buffer) MaxID(p PartitionID) (int64, bool) {
	var max int64
	found := false
	for _, rec := range b.pending[p] {
		if !found || rec.ID > max {
			max = rec.ID
			found = true
		}
	}
	return max, found
}

// Condense collapses a partition's queue to one record per id, last write
// wins, sorted ascending by id for the flush. Once a tombstone for an id has
// been observed, later records for that id in the same batch are dropped;
// records enqueued before the tombstone are replaced by it. That iteration-
// order dependence is load-bearing for the flush path and is kept as is.
func (b *Buffer) Condense(p PartitionID) []codec.LogRecord {
	q := b.pending[p]
	if len(q) == 0 {
		return nil
	}

	latest := make(map[int64]codec.LogRecord, len(q))
	dead := make(map[int64]bool)
	for _, rec := range q {
		if dead[rec.ID] {
			continue
		}
		latest[rec.ID] = rec
		if rec.Deleted {
			dead[rec.ID] = true
		}
	}

	out := make([]codec.LogRecord, 0, len(latest))
	for _, rec := range latest {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Partitions lists partitions with pending records in first-touch order.
func (b *Buffer) Partitions() []PartitionID {
	out := make([]PartitionID, 0, len(b.order))
	for _, p := range b.order {
		if len(b.pending[p]) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// Drop forgets one partition's queue (called after its flush succeeded).
func (b *Buffer) Drop(p PartitionID) {
	delete(b.pending, p)
	for i, q := range b.order {
		if q == p {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
}

// Reset discards everything. Rollback never touches disk.
func (b *Buffer) Reset() {
	b.pending = make(map[PartitionID][]codec.LogRecord)
	b.order = nil
}

// Empty reports whether nothing is pending.
func (b *Buffer) Empty() bool {
	for _, q := range b.pending {
		if len(q) > 0 {
			return false
		}
	}
	return true
}
