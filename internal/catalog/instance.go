package catalog

import (
	"path/filepath"

	"github.com/tuannm99/cellstore/internal/codec"
	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/logstore"
	"github.com/tuannm99/cellstore/internal/schema"
	"github.com/tuannm99/cellstore/internal/sindex"
)

// CellTable is the reserved table name instances are logged under inside
// their module directory.
const CellTable = "cells"

const hashIdxFile = "cells.sdx"

// stagedHash is one hash index entry waiting for its instance row to commit.
type stagedHash struct {
	key sindex.Key
	loc sindex.Location
}

// instanceIndex is the module-level secondary index mapping instance hash to
// the log id of the instance row.
func (c *Catalog) instanceIndex(db, module string) *sindex.Store {
	key := c.moduleKey(db, module)
	if s, ok := c.hashIdx[key]; ok {
		return s
	}
	s := sindex.Open(filepath.Join(c.moduleDir(db, module), hashIdxFile))
	c.hashIdx[key] = s
	return s
}

// CreateInstance builds an instance row from (column, value) pairs, rejects a
// duplicate hash via the secondary index, and enqueues the row on the log
// manager. The hash index entry is staged, not written: it only becomes
// durable when the caller commits the row batch, so a rollback leaves no
// residue that would block re-creating the same instance.
func (c *Catalog) CreateInstance(lm *logstore.Manager, db, module string, cols []string, vals []any) (string, int64, error) {
	m, err := c.Module(db, module)
	if err != nil {
		return "", 0, err
	}
	if len(cols) != len(vals) {
		return "", 0, dberr.Data("instance: %d columns for %d values", len(cols), len(vals))
	}

	full := make([]any, len(m.Columns))
	supplied := make(map[string]bool, len(cols))
	for i, name := range cols {
		pos := m.Column(name)
		if pos < 0 {
			return "", 0, dberr.Data("module %s has no column %s", module, name)
		}
		full[pos] = vals[i]
		supplied[name] = true
	}
	for _, col := range m.IndexColumns() {
		if !supplied[col.Name] {
			return "", 0, dberr.Data("instance key column %s must be supplied", col.Name)
		}
	}

	row, err := schema.NewRow(m.Columns, full)
	if err != nil {
		return "", 0, err
	}

	idx := c.instanceIndex(db, module)
	hashKey, err := sindex.KeyOf(row.InstanceHash)
	if err != nil {
		return "", 0, err
	}
	if _, found, err := idx.Search(hashKey); err != nil {
		return "", 0, err
	} else if found {
		return "", 0, dberr.Data("instance %s already exists in module %s", row.InstanceHash, module)
	}
	mk := c.moduleKey(db, module)
	for _, st := range c.staged[mk] {
		if sindex.Compare(st.key, hashKey) == 0 {
			return "", 0, dberr.Data("instance %s already exists in module %s", row.InstanceHash, module)
		}
	}

	data, err := codec.EncodeRowCached(row)
	if err != nil {
		return "", 0, err
	}
	id, err := lm.Put(module, CellTable, row.IndexedValues(), data)
	if err != nil {
		return "", 0, err
	}
	c.staged[mk] = append(c.staged[mk], stagedHash{key: hashKey, loc: sindex.Location{LogID: id}})
	return row.InstanceHash, id, nil
}

// CommitInstances applies the hash index entries staged for a database. Run
// after the row batch has flushed, so the index never points at a log id that
// does not exist on disk.
func (c *Catalog) CommitInstances(db string) error {
	for key, staged := range c.staged {
		if !keyInDatabase(key, db) {
			continue
		}
		module := key[len(db)+1:]
		idx := c.instanceIndex(db, module)
		for _, st := range staged {
			if err := idx.Insert(st.key, st.loc); err != nil {
				return err
			}
		}
		delete(c.staged, key)
	}
	return nil
}

// RollbackInstances discards the staged hash entries for a database without
// touching disk.
func (c *Catalog) RollbackInstances(db string) {
	for key := range c.staged {
		if keyInDatabase(key, db) {
			delete(c.staged, key)
		}
	}
}

// Instance fetches one module instance by hash.
func (c *Catalog) Instance(lm *logstore.Manager, db, module, hash string) (*schema.Row, error) {
	m, err := c.Module(db, module)
	if err != nil {
		return nil, err
	}
	it, err := lm.ScanPartitionHash(module, CellTable, hash)
	if err != nil {
		return nil, err
	}
	e, err := it.Next()
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, dberr.File("instance %s not found in module %s", hash, module)
	}
	return decodeInstance(m, e)
}

// Instances enumerates every live instance of a module, mirroring the log
// manager's dedup rule: scan all data files under the module path, keep the
// newest record per id, drop tombstoned ones.
func (c *Catalog) Instances(lm *logstore.Manager, db, module string) ([]*schema.Row, error) {
	m, err := c.Module(db, module)
	if err != nil {
		return nil, err
	}
	it, err := lm.ScanTable(module, CellTable)
	if err != nil {
		return nil, err
	}

	var out []*schema.Row
	for {
		e, err := it.Next()
		if err != nil {
			return nil, err
		}
		if e == nil {
			return out, nil
		}
		row, err := decodeInstance(m, e)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
}

// DeleteInstance tombstones an instance row and removes its hash index entry.
func (c *Catalog) DeleteInstance(lm *logstore.Manager, db, module, hash string) error {
	idx := c.instanceIndex(db, module)
	hashKey, err := sindex.KeyOf(hash)
	if err != nil {
		return err
	}
	loc, found, err := idx.Search(hashKey)
	if err != nil {
		return err
	}
	if !found {
		// The instance may exist only as a staged, uncommitted write.
		mk := c.moduleKey(db, module)
		for i, st := range c.staged[mk] {
			if sindex.Compare(st.key, hashKey) == 0 {
				c.staged[mk] = append(c.staged[mk][:i], c.staged[mk][i+1:]...)
				return lm.DeleteByHash(module, CellTable, hash, st.loc.LogID)
			}
		}
		return dberr.Data("instance %s does not exist in module %s", hash, module)
	}

	if err := lm.DeleteByHash(module, CellTable, hash, loc.LogID); err != nil {
		return err
	}
	return idx.Delete(hashKey)
}

func decodeInstance(m *schema.Module, e *logstore.Entry) (*schema.Row, error) {
	values, err := codec.DecodeRow(m.Columns, e.Record.Tuple)
	if err != nil {
		return nil, err
	}
	return schema.NewRow(m.Columns, values)
}
