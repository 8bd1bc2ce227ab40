// Package logstore owns partition segment files: write-ahead buffered
// appends, size-based rotation, sparse indexing, point lookups and lazy
// scans. One partition is one (module, table, instance hash) triple.
package logstore

import (
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/tuannm99/cellstore/internal/codec"
	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/schema"
	"github.com/tuannm99/cellstore/internal/sindex"
	"github.com/tuannm99/cellstore/internal/wal"
)

const (
	// DefaultSegmentThreshold rotates a segment once the next batch would
	// push it past this size.
	DefaultSegmentThreshold = 1 << 20 // 1 MiB
	// DefaultSparseInterval writes a sparse entry every Kth record.
	DefaultSparseInterval = 100
)

// Manager is the log writer+reader for one database directory. Process-wide
// mutable state (buffer, segment metadata, sparse caches) carries no internal
// locking; callers serialize access.
type Manager struct {
	root             string
	segmentThreshold int64
	sparseInterval   int

	buf   *wal.Buffer
	parts map[wal.PartitionID]*partition
}

type partition struct {
	dir     string
	segment int32 // current segment number, 0 until first flush
	size    int64 // byte size of the current segment
	counts  map[int32]int
	sparse  map[int32][]codec.SparseEntry
	keys    *sindex.Store
	nextID  int64
}

// Option tweaks a Manager.
type Option func(*Manager)

func WithSegmentThreshold(n int64) Option {
	return func(m *Manager) {
		if n > 0 {
			m.segmentThreshold = n
		}
	}
}

func WithSparseInterval(k int) Option {
	return func(m *Manager) {
		if k > 0 {
			m.sparseInterval = k
		}
	}
}

// NewManager binds a manager to a database directory.
func NewManager(root string, opts ...Option) *Manager {
	m := &Manager{
		root:             root,
		segmentThreshold: DefaultSegmentThreshold,
		sparseInterval:   DefaultSparseInterval,
		buf:              wal.NewBuffer(),
		parts:            make(map[wal.PartitionID]*partition),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// PartitionID derives the partition for a set of instance key values.
func PartitionID(module, table string, instance map[string]string) wal.PartitionID {
	return wal.PartitionID{Module: module, Table: table, Hash: schema.InstanceHash(instance)}
}

func (m *Manager) partitionDir(p wal.PartitionID) string {
	return filepath.Join(m.root, p.Module, p.Table, p.Hash)
}

// loadPartition restores a partition's segment metadata, sparse cache and
// key index from disk on first touch.
func (m *Manager) loadPartition(p wal.PartitionID) (*partition, error) {
	if part, ok := m.parts[p]; ok {
		return part, nil
	}

	dir := m.partitionDir(p)
	part := &partition{
		dir:    dir,
		counts: make(map[int32]int),
		sparse: make(map[int32][]codec.SparseEntry),
		keys:   sindex.Open(filepath.Join(dir, keysFile)),
	}

	segs, err := listSegments(dir)
	if err != nil {
		return nil, err
	}
	for _, seg := range segs {
		_, entries, err := loadSparse(filepath.Join(dir, segIdxName(seg)))
		if err != nil {
			return nil, err
		}
		part.sparse[seg] = entries
	}
	if len(segs) > 0 {
		part.segment = segs[len(segs)-1]
		fi, err := os.Stat(filepath.Join(dir, segDataName(part.segment)))
		if err != nil {
			return nil, dberr.WrapFile("segment stat", err)
		}
		part.size = fi.Size()

		// Recount the active segment so the sparse checkpoint cadence keeps
		// its every-Kth-record rhythm across reopens.
		recs, err := readSegment(filepath.Join(dir, segDataName(part.segment)))
		if err != nil {
			return nil, err
		}
		part.counts[part.segment] = len(recs)
	}

	next, err := part.keys.NextInt64Key()
	if err != nil {
		return nil, err
	}
	part.nextID = next

	m.parts[p] = part
	return part, nil
}

// Put enqueues an insert record for the partition derived from the instance
// key values and allocates a fresh log id.
func (m *Manager) Put(module, table string, instance map[string]string, data []byte) (int64, error) {
	p := PartitionID(module, table, instance)
	part, err := m.loadPartition(p)
	if err != nil {
		return 0, err
	}

	id := part.nextID
	if buffered, ok := m.buf.MaxID(p); ok && buffered >= id {
		id = buffered + 1
	}
	part.nextID = id + 1

	m.buf.Append(p, codec.LogRecord{
		ID:        id,
		Timestamp: time.Now().UnixNano(),
		Tuple:     data,
	})
	return id, nil
}

// PutWithID enqueues an update record for an existing log id.
func (m *Manager) PutWithID(module, table string, instance map[string]string, id int64, data []byte) error {
	p := PartitionID(module, table, instance)
	part, err := m.loadPartition(p)
	if err != nil {
		return err
	}
	if id >= part.nextID {
		part.nextID = id + 1
	}
	m.buf.Append(p, codec.LogRecord{
		ID:        id,
		Timestamp: time.Now().UnixNano(),
		Tuple:     data,
	})
	return nil
}

// PutByHash enqueues an update record for a partition addressed by its
// precomputed instance hash.
func (m *Manager) PutByHash(module, table, hash string, id int64, data []byte) error {
	p := wal.PartitionID{Module: module, Table: table, Hash: hash}
	part, err := m.loadPartition(p)
	if err != nil {
		return err
	}
	if id >= part.nextID {
		part.nextID = id + 1
	}
	m.buf.Append(p, codec.LogRecord{
		ID:        id,
		Timestamp: time.Now().UnixNano(),
		Tuple:     data,
	})
	return nil
}

// Delete enqueues a tombstone for an existing log id.
func (m *Manager) Delete(module, table string, instance map[string]string, id int64) error {
	p := PartitionID(module, table, instance)
	if _, err := m.loadPartition(p); err != nil {
		return err
	}
	m.buf.Append(p, codec.LogRecord{
		ID:        id,
		Deleted:   true,
		Timestamp: time.Now().UnixNano(),
	})
	return nil
}

// DeleteByHash enqueues a tombstone for a partition addressed by its
// precomputed instance hash.
func (m *Manager) DeleteByHash(module, table, hash string, id int64) error {
	p := wal.PartitionID{Module: module, Table: table, Hash: hash}
	if _, err := m.loadPartition(p); err != nil {
		return err
	}
	m.buf.Append(p, codec.LogRecord{
		ID:        id,
		Deleted:   true,
		Timestamp: time.Now().UnixNano(),
	})
	return nil
}

// Commit condenses and flushes every partition with pending records, one
// partition at a time. A failure mid-way leaves earlier partitions committed
// and later ones untouched; there is no cross-partition atomicity.
func (m *Manager) Commit() error {
	for _, p := range m.buf.Partitions() {
		if err := m.flushPartition(p); err != nil {
			return err
		}
		m.buf.Drop(p)
	}
	return nil
}

// Rollback discards the whole write-ahead buffer. Disk state is untouched.
func (m *Manager) Rollback() {
	m.buf.Reset()
}

// Pending reports whether uncommitted records exist.
func (m *Manager) Pending() bool { return !m.buf.Empty() }

func (m *Manager) flushPartition(p wal.PartitionID) error {
	condensed := m.buf.Condense(p)
	if len(condensed) == 0 {
		return nil
	}

	part, err := m.loadPartition(p)
	if err != nil {
		return err
	}

	var batchSize int64
	for _, rec := range condensed {
		batchSize += rec.EncodedSize()
	}

	// Rotation is batch-granular: a segment grows past the threshold only
	// within one batch, and the next batch starts a fresh segment.
	switch {
	case part.segment == 0:
		part.segment = 1
	case part.size > 0 && part.size+batchSize > m.segmentThreshold:
		part.segment++
		part.size = 0
	}

	if err := os.MkdirAll(part.dir, 0o755); err != nil {
		return dberr.WrapFile("partition mkdir", err)
	}

	dataPath := filepath.Join(part.dir, segDataName(part.segment))
	idxPath := filepath.Join(part.dir, segIdxName(part.segment))

	if _, err := os.Stat(idxPath); os.IsNotExist(err) {
		hdr := codec.EncodeSparseHeader(codec.SparseHeader{
			Version:      codec.SparseVersion,
			Module:       p.Module,
			Table:        p.Table,
			InstanceHash: p.Hash,
			Segment:      part.segment,
		})
		if err := os.WriteFile(idxPath, hdr, 0o644); err != nil {
			return dberr.WrapFile("sparse header write", err)
		}
	}

	f, err := os.OpenFile(dataPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return dberr.WrapFile("segment open", err)
	}
	defer func() { _ = f.Close() }()

	var keyBatch []sindex.Key
	var locBatch []sindex.Location

	for _, rec := range condensed {
		offset := part.size
		if _, err := f.Write(codec.EncodeLogRecord(rec)); err != nil {
			return dberr.WrapFile("segment append", err)
		}

		if part.counts[part.segment]%m.sparseInterval == 0 {
			entry := codec.SparseEntry{Version: codec.SparseVersion, Key: rec.ID, Offset: offset}
			if err := appendSparse(idxPath, entry); err != nil {
				return err
			}
			part.sparse[part.segment] = append(part.sparse[part.segment], entry)
		}

		keyBatch = append(keyBatch, sindex.Int64Key(rec.ID))
		locBatch = append(locBatch, sindex.Location{Segment: part.segment, Offset: offset, LogID: rec.ID})

		part.counts[part.segment]++
		part.size += rec.EncodedSize()
	}

	return part.keys.BulkInsert(keyBatch, locBatch)
}

func appendSparse(path string, e codec.SparseEntry) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return dberr.WrapFile("sparse open", err)
	}
	defer func() { _ = f.Close() }()
	if _, err := f.Write(codec.EncodeSparseEntry(e)); err != nil {
		return dberr.WrapFile("sparse append", err)
	}
	return nil
}

// FindLatest resolves the logical latest record for a log id: the write-ahead
// buffer wins, then segments are searched newest first with the sparse
// entries bounding the byte range that gets scanned.
func (m *Manager) FindLatest(module, table string, instance map[string]string, id int64) (*codec.LogRecord, error) {
	p := PartitionID(module, table, instance)
	return m.findLatest(p, id)
}

func (m *Manager) findLatest(p wal.PartitionID, id int64) (*codec.LogRecord, error) {
	if rec, ok := m.buf.Latest(p, id); ok {
		return &rec, nil
	}

	part, err := m.loadPartition(p)
	if err != nil {
		return nil, err
	}
	if part.segment == 0 {
		return nil, dberr.File("log id %d not found in %s/%s", id, p.Module, p.Table)
	}

	for seg := part.segment; seg >= 1; seg-- {
		entries := part.sparse[seg]
		if skipSegment(entries, id) {
			continue
		}
		start, end := bracket(entries, id)
		recs, err := readSegmentRange(filepath.Join(part.dir, segDataName(seg)), start, end)
		if err != nil {
			return nil, err
		}
		var hit *codec.LogRecord
		for i := range recs {
			if recs[i].ID == id {
				hit = &recs[i]
			}
		}
		if hit != nil {
			return hit, nil
		}
	}
	return nil, dberr.File("log id %d not found in %s/%s", id, p.Module, p.Table)
}

// skipSegment rejects a segment whose smallest checkpointed key is already
// past the target.
func skipSegment(entries []codec.SparseEntry, id int64) bool {
	if len(entries) == 0 {
		return false
	}
	min := entries[0].Key
	for _, e := range entries[1:] {
		if e.Key < min {
			min = e.Key
		}
	}
	return min > id
}

// bracket picks the floor/ceiling sparse entries around id by key and turns
// them into a byte range. An inverted range (possible when update batches
// re-write old ids later in the segment) widens to the segment end.
func bracket(entries []codec.SparseEntry, id int64) (start, end int64) {
	end = -1
	if len(entries) == 0 {
		return 0, -1
	}

	byKey := make([]codec.SparseEntry, len(entries))
	copy(byKey, entries)
	sort.Slice(byKey, func(i, j int) bool { return byKey[i].Key < byKey[j].Key })

	i := sort.Search(len(byKey), func(i int) bool { return byKey[i].Key > id })
	if i > 0 {
		start = byKey[i-1].Offset
	}
	if i < len(byKey) {
		end = byKey[i].Offset
	}
	if end >= 0 && end <= start {
		end = -1
	}
	return start, end
}

// ScanPartition streams one partition's committed records, newest first,
// deduplicated by id with tombstoned ids suppressed.
func (m *Manager) ScanPartition(module, table string, instance map[string]string) (*Iterator, error) {
	return m.ScanPartitionHash(module, table, schema.InstanceHash(instance))
}

// ScanPartitionHash is ScanPartition for a precomputed instance hash.
func (m *Manager) ScanPartitionHash(module, table, hash string) (*Iterator, error) {
	p := wal.PartitionID{Module: module, Table: table, Hash: hash}
	part, err := m.loadPartition(p)
	if err != nil {
		return nil, err
	}
	return newIterator([]partRef{{dir: part.dir, hash: hash}}), nil
}

// ScanTable streams every partition of a (module, table) pair, partition by
// partition. Id dedup restarts per partition: log ids are partition-scoped.
func (m *Manager) ScanTable(module, table string) (*Iterator, error) {
	tableDir := filepath.Join(m.root, module, table)
	ents, err := os.ReadDir(tableDir)
	if err != nil {
		if os.IsNotExist(err) {
			return newIterator(nil), nil
		}
		return nil, dberr.WrapFile("table readdir", err)
	}

	var refs []partRef
	for _, e := range ents {
		if !e.IsDir() {
			continue
		}
		refs = append(refs, partRef{dir: filepath.Join(tableDir, e.Name()), hash: e.Name()})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].hash < refs[j].hash })
	return newIterator(refs), nil
}

// Forget drops cached state for every partition of a module (and optionally
// one table). Called after schema-level deletes remove directories.
func (m *Manager) Forget(module, table string) {
	for p := range m.parts {
		if p.Module != module {
			continue
		}
		if table != "" && p.Table != table {
			continue
		}
		delete(m.parts, p)
	}
}
