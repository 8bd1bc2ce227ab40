// Package catalog persists the schema hierarchy: the root database registry,
// database descriptors and module environment files, plus module-instance
// CRUD on top of the log manager.
//
// Environment files are length-prefixed JSON blobs so a truncated file is a
// short read, not a parse crash. Module descriptors are cached after first
// load and invalidated on every write.
package catalog

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tuannm99/cellstore/internal/codec"
	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/logstore"
	"github.com/tuannm99/cellstore/internal/schema"
	"github.com/tuannm99/cellstore/internal/sindex"
)

const (
	rootEnvFile   = "root.env"
	dbEnvFile     = "db.env"
	moduleEnvFile = "module.env"

	moduleCacheSize = 128
)

type rootEnv struct {
	Databases []string `json:"databases"`
	Version   int      `json:"version"`
}

// Catalog is the schema store rooted at one working directory.
type Catalog struct {
	root    string
	modules *lru.Cache[string, *schema.Module]
	hashIdx map[string]*sindex.Store
	// Hash index entries for instances whose rows are still sitting in the
	// write-ahead buffer, keyed by moduleKey. They become durable together
	// with the rows (CommitInstances) or vanish with them (RollbackInstances).
	staged map[string][]stagedHash
}

func New(root string) (*Catalog, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, dberr.WrapFile("workdir mkdir", err)
	}
	cache, err := lru.New[string, *schema.Module](moduleCacheSize)
	if err != nil {
		return nil, dberr.Critical("module cache: %v", err)
	}
	return &Catalog{
		root:    root,
		modules: cache,
		hashIdx: make(map[string]*sindex.Store),
		staged:  make(map[string][]stagedHash),
	}, nil
}

// ---- env file plumbing ----

func (c *Catalog) readEnv(path string, v any) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return dberr.File("environment file missing: %s", path)
		}
		return dberr.WrapFile("env open", err)
	}
	defer func() { _ = f.Close() }()

	payload, err := codec.ReadBlob(f)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return dberr.Data("env decode %s: %v", filepath.Base(path), err)
	}
	return nil
}

func (c *Catalog) writeEnv(path string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return dberr.Data("env encode: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return dberr.WrapFile("env mkdir", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return dberr.WrapFile("env create", err)
	}
	defer func() { _ = f.Close() }()
	return codec.WriteBlob(f, payload)
}

func (c *Catalog) dbDir(db string) string         { return filepath.Join(c.root, db) }
func (c *Catalog) moduleDir(db, m string) string  { return filepath.Join(c.root, db, m) }
func (c *Catalog) moduleKey(db, m string) string  { return db + "/" + m }
func (c *Catalog) rootEnvPath() string            { return filepath.Join(c.root, rootEnvFile) }
func (c *Catalog) dbEnvPath(db string) string     { return filepath.Join(c.dbDir(db), dbEnvFile) }
func (c *Catalog) moduleEnvPath(db, m string) string {
	return filepath.Join(c.moduleDir(db, m), moduleEnvFile)
}

func (c *Catalog) loadRoot() (*rootEnv, error) {
	var env rootEnv
	err := c.readEnv(c.rootEnvPath(), &env)
	if err != nil {
		if errors.Is(err, dberr.ErrFile) {
			return &rootEnv{Version: 1}, nil
		}
		return nil, err
	}
	return &env, nil
}

// ---- databases ----

// CreateDatabase registers a database and creates its directory.
func (c *Catalog) CreateDatabase(name string) error {
	db, err := schema.NewDatabase(name)
	if err != nil {
		return err
	}
	env, err := c.loadRoot()
	if err != nil {
		return err
	}
	for _, existing := range env.Databases {
		if existing == name {
			return dberr.Data("database %s already exists", name)
		}
	}
	env.Databases = append(env.Databases, name)
	if err := c.writeEnv(c.rootEnvPath(), env); err != nil {
		return err
	}
	return c.writeEnv(c.dbEnvPath(name), db)
}

// DatabaseExists checks the root registry.
func (c *Catalog) DatabaseExists(name string) (bool, error) {
	env, err := c.loadRoot()
	if err != nil {
		return false, err
	}
	for _, db := range env.Databases {
		if db == name {
			return true, nil
		}
	}
	return false, nil
}

// ListDatabases returns the registered names in creation order.
func (c *Catalog) ListDatabases() ([]string, error) {
	env, err := c.loadRoot()
	if err != nil {
		return nil, err
	}
	return env.Databases, nil
}

// DropDatabase unregisters a database and removes its directory tree.
func (c *Catalog) DropDatabase(name string) error {
	env, err := c.loadRoot()
	if err != nil {
		return err
	}
	idx := -1
	for i, db := range env.Databases {
		if db == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return dberr.Data("database %s does not exist", name)
	}
	env.Databases = append(env.Databases[:idx], env.Databases[idx+1:]...)
	if err := c.writeEnv(c.rootEnvPath(), env); err != nil {
		return err
	}
	c.purgeDatabase(name)
	if err := os.RemoveAll(c.dbDir(name)); err != nil {
		return dberr.WrapFile("database remove", err)
	}
	return nil
}

func (c *Catalog) purgeDatabase(db string) {
	for _, key := range c.modules.Keys() {
		if keyInDatabase(key, db) {
			c.modules.Remove(key)
		}
	}
	for key := range c.hashIdx {
		if keyInDatabase(key, db) {
			delete(c.hashIdx, key)
		}
	}
	for key := range c.staged {
		if keyInDatabase(key, db) {
			delete(c.staged, key)
		}
	}
}

// keyInDatabase reports whether a moduleKey belongs to db.
func keyInDatabase(key, db string) bool {
	return len(key) > len(db) && key[:len(db)] == db && key[len(db)] == '/'
}

// ---- modules ----

// CreateModule persists a new module descriptor and links it into db.env.
func (c *Catalog) CreateModule(db string, m *schema.Module) error {
	var dbEnv schema.Database
	if err := c.readEnv(c.dbEnvPath(db), &dbEnv); err != nil {
		return err
	}
	for _, name := range dbEnv.Modules {
		if name == m.Name {
			return dberr.Data("module %s already exists in %s", m.Name, db)
		}
	}
	dbEnv.Modules = append(dbEnv.Modules, m.Name)
	if err := c.writeEnv(c.moduleEnvPath(db, m.Name), m); err != nil {
		return err
	}
	if err := c.writeEnv(c.dbEnvPath(db), &dbEnv); err != nil {
		return err
	}
	c.modules.Remove(c.moduleKey(db, m.Name))
	return nil
}

// Module fetches a module descriptor, from cache after the first read.
func (c *Catalog) Module(db, name string) (*schema.Module, error) {
	key := c.moduleKey(db, name)
	if m, ok := c.modules.Get(key); ok {
		return m, nil
	}
	var m schema.Module
	if err := c.readEnv(c.moduleEnvPath(db, name), &m); err != nil {
		if errors.Is(err, dberr.ErrFile) {
			return nil, dberr.Data("module %s does not exist in %s", name, db)
		}
		return nil, err
	}
	c.modules.Add(key, &m)
	return &m, nil
}

func (c *Catalog) saveModule(db string, m *schema.Module) error {
	m.Version++
	if err := c.writeEnv(c.moduleEnvPath(db, m.Name), m); err != nil {
		return err
	}
	c.modules.Remove(c.moduleKey(db, m.Name))
	return nil
}

// AlterModule adds and/or drops module columns. Instance key columns cannot
// be dropped or added: the partition hash depends on them, so changing the
// set would orphan every existing partition. Existing instance rows are
// rewritten under the new column list before the descriptor is saved; reads
// therefore never decode a row against columns it was not written with.
func (c *Catalog) AlterModule(lm *logstore.Manager, db, name string, add []schema.Column, drop []string) (*schema.Module, error) {
	m, err := c.Module(db, name)
	if err != nil {
		return nil, err
	}

	next := *m
	next.Columns = append([]schema.Column(nil), m.Columns...)

	for _, col := range add {
		if next.Column(col.Name) >= 0 {
			return nil, dberr.Data("module %s already has column %s", name, col.Name)
		}
		if col.Indexed {
			return nil, dberr.Data("cannot add instance key column %s", col.Name)
		}
		next.Columns = append(next.Columns, col)
	}
	for _, colName := range drop {
		i := next.Column(colName)
		if i < 0 {
			return nil, dberr.Data("module %s has no column %s", name, colName)
		}
		if next.Columns[i].Indexed {
			return nil, dberr.Data("cannot drop instance key column %s", colName)
		}
		next.Columns = append(next.Columns[:i], next.Columns[i+1:]...)
	}

	// Any failure below leaves rewritten rows in the buffer; drop them so
	// they cannot flush under the old descriptor.
	if err := c.migrateInstances(lm, m, &next); err != nil {
		lm.Rollback()
		return nil, err
	}
	if err := c.saveModule(db, &next); err != nil {
		lm.Rollback()
		return nil, err
	}
	return &next, nil
}

// migrateInstances re-encodes every committed instance row of old under the
// next column list and enqueues the rewrites on the log manager. The caller
// commits them together with the descriptor change.
func (c *Catalog) migrateInstances(lm *logstore.Manager, old, next *schema.Module) error {
	it, err := lm.ScanTable(old.Name, CellTable)
	if err != nil {
		return err
	}
	for {
		e, err := it.Next()
		if err != nil {
			return err
		}
		if e == nil {
			return nil
		}

		oldVals, err := codec.DecodeRow(old.Columns, e.Record.Tuple)
		if err != nil {
			return err
		}
		byName := make(map[string]any, len(old.Columns))
		for i, col := range old.Columns {
			byName[col.Name] = oldVals[i]
		}

		vals := make([]any, len(next.Columns))
		for i, col := range next.Columns {
			v, ok := byName[col.Name]
			if !ok && !col.Nullable {
				return dberr.Data("cannot add NOT NULL column %s: module %s has existing instances", col.Name, old.Name)
			}
			vals[i] = v
		}
		row, err := schema.NewRow(next.Columns, vals)
		if err != nil {
			return err
		}
		data, err := codec.EncodeRowCached(row)
		if err != nil {
			return err
		}
		if err := lm.PutByHash(old.Name, CellTable, e.Hash, e.Record.ID, data); err != nil {
			return err
		}
	}
}

// DropModule unlinks the module and removes its directory tree.
func (c *Catalog) DropModule(db, name string) error {
	var dbEnv schema.Database
	if err := c.readEnv(c.dbEnvPath(db), &dbEnv); err != nil {
		return err
	}
	idx := -1
	for i, mod := range dbEnv.Modules {
		if mod == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return dberr.Data("module %s does not exist in %s", name, db)
	}
	dbEnv.Modules = append(dbEnv.Modules[:idx], dbEnv.Modules[idx+1:]...)
	if err := c.writeEnv(c.dbEnvPath(db), &dbEnv); err != nil {
		return err
	}
	c.modules.Remove(c.moduleKey(db, name))
	delete(c.hashIdx, c.moduleKey(db, name))
	delete(c.staged, c.moduleKey(db, name))
	if err := os.RemoveAll(c.moduleDir(db, name)); err != nil {
		return dberr.WrapFile("module remove", err)
	}
	return nil
}

// ---- tables ----

// CreateTable appends a table to the module descriptor.
func (c *Catalog) CreateTable(db, module string, t schema.Table) error {
	m, err := c.Module(db, module)
	if err != nil {
		return err
	}
	if _, ok := m.Table(t.Name); ok {
		return dberr.Data("table %s already exists in module %s", t.Name, module)
	}
	next := *m
	next.Tables = append(append([]schema.Table(nil), m.Tables...), t)
	return c.saveModule(db, &next)
}

// DropTable unlinks a table and removes its partition directories.
func (c *Catalog) DropTable(db, module, table string) error {
	m, err := c.Module(db, module)
	if err != nil {
		return err
	}
	idx := -1
	for i, t := range m.Tables {
		if t.Name == table {
			idx = i
			break
		}
	}
	if idx < 0 {
		return dberr.Data("table %s does not exist in module %s", table, module)
	}
	next := *m
	next.Tables = append([]schema.Table(nil), m.Tables...)
	next.Tables = append(next.Tables[:idx], next.Tables[idx+1:]...)
	if err := c.saveModule(db, &next); err != nil {
		return err
	}
	if err := os.RemoveAll(filepath.Join(c.moduleDir(db, module), table)); err != nil {
		return dberr.WrapFile("table remove", err)
	}
	return nil
}

// TableColumns fetches the column list of one table.
func (c *Catalog) TableColumns(db, module, table string) ([]schema.Column, error) {
	m, err := c.Module(db, module)
	if err != nil {
		return nil, err
	}
	t, ok := m.Table(table)
	if !ok {
		return nil, dberr.Data("table %s does not exist in module %s", table, module)
	}
	return t.Columns, nil
}
