// Package cellstore is an embeddable log-structured database engine. Data is
// organized as database → module → table → row; each module instance gets its
// own hash-addressed log partition, and a small SQL dialect drives schema
// definition, writes and reads over it.
package cellstore

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/tuannm99/cellstore/internal/catalog"
	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/logstore"
	"github.com/tuannm99/cellstore/internal/schema"
	"github.com/tuannm99/cellstore/internal/session"
	"github.com/tuannm99/cellstore/internal/sql/statement"
)

// Engine glues the catalog and the per-database log managers together and
// executes statement batches. One Engine owns one working directory; Execute
// calls are serialized internally.
type Engine struct {
	mu       sync.Mutex
	workdir  string
	cat      *catalog.Catalog
	managers map[string]*logstore.Manager
	logOpts  []logstore.Option
	log      *slog.Logger
}

// Option tweaks an Engine.
type Option func(*Engine)

// WithSegmentThreshold overrides the segment rotation size.
func WithSegmentThreshold(n int64) Option {
	return func(e *Engine) {
		e.logOpts = append(e.logOpts, logstore.WithSegmentThreshold(n))
	}
}

// WithSparseInterval overrides the sparse indexing interval.
func WithSparseInterval(k int) Option {
	return func(e *Engine) {
		e.logOpts = append(e.logOpts, logstore.WithSparseInterval(k))
	}
}

// WithLogger routes engine logging somewhere other than slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// Open binds an engine to a working directory, creating it if needed.
func Open(workdir string, opts ...Option) (*Engine, error) {
	cat, err := catalog.New(workdir)
	if err != nil {
		return nil, err
	}
	e := &Engine{
		workdir:  workdir,
		cat:      cat,
		managers: make(map[string]*logstore.Manager),
		log:      slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Close discards any uncommitted write-ahead buffers. Committed data is
// already durable; there is nothing else to flush.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for db, lm := range e.managers {
		if lm.Pending() {
			e.log.Warn("discarding uncommitted writes on close", "database", db)
			lm.Rollback()
		}
	}
	return nil
}

// NewSession opens an isolated session with its own current database and
// transaction flag.
func (e *Engine) NewSession() *session.Session {
	return session.New(uuid.NewString())
}

// Execute parses a statement batch and runs it against the session. The batch
// aborts at the first failing statement; results for the statements that ran
// are returned alongside the error. A panic anywhere below is converted into
// a critical error rather than taking the process down.
func (e *Engine) Execute(sess *session.Session, text string) (results []*statement.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = dberr.Critical("execute: %v", r)
		}
	}()

	e.mu.Lock()
	defer e.mu.Unlock()

	stmts, err := statement.ParseBatch(text)
	if err != nil {
		return nil, err
	}

	ctx := &statement.Context{Backend: e, Session: sess}
	for _, st := range stmts {
		res, err := st.Execute(ctx)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// manager returns the log manager for a database, creating it on first use.
func (e *Engine) manager(db string) *logstore.Manager {
	if lm, ok := e.managers[db]; ok {
		return lm
	}
	lm := logstore.NewManager(e.dbDir(db), e.logOpts...)
	e.managers[db] = lm
	return lm
}

func (e *Engine) dbDir(db string) string {
	return filepath.Join(e.workdir, db)
}

// ---- statement.Backend ----

func (e *Engine) CreateDatabase(name string) error {
	return e.cat.CreateDatabase(name)
}

func (e *Engine) DropDatabase(name string) error {
	if err := e.cat.DropDatabase(name); err != nil {
		return err
	}
	delete(e.managers, name)
	return nil
}

func (e *Engine) DatabaseExists(name string) (bool, error) {
	return e.cat.DatabaseExists(name)
}

func (e *Engine) Module(db, name string) (*schema.Module, error) {
	return e.cat.Module(db, name)
}

func (e *Engine) CreateModule(db string, m *schema.Module) error {
	return e.cat.CreateModule(db, m)
}

func (e *Engine) AlterModule(db, name string, add []schema.Column, drop []string) error {
	_, err := e.cat.AlterModule(e.manager(db), db, name, add, drop)
	return err
}

func (e *Engine) DropModule(db, name string) error {
	if err := e.cat.DropModule(db, name); err != nil {
		return err
	}
	e.manager(db).Forget(name, "")
	return nil
}

func (e *Engine) CreateTable(db, module string, t schema.Table) error {
	return e.cat.CreateTable(db, module, t)
}

func (e *Engine) DropTable(db, module, table string) error {
	if err := e.cat.DropTable(db, module, table); err != nil {
		return err
	}
	e.manager(db).Forget(module, table)
	return nil
}

func (e *Engine) CreateInstance(db, module string, cols []string, vals []any) (string, error) {
	hash, _, err := e.cat.CreateInstance(e.manager(db), db, module, cols, vals)
	return hash, err
}

func (e *Engine) Instances(db, module string) ([]*schema.Row, error) {
	return e.cat.Instances(e.manager(db), db, module)
}

func (e *Engine) Put(db, module, table string, instance map[string]string, data []byte) (int64, error) {
	return e.manager(db).Put(module, table, instance, data)
}

func (e *Engine) DeleteLog(db, module, table, hash string, id int64) error {
	return e.manager(db).DeleteByHash(module, table, hash, id)
}

func (e *Engine) ScanPartition(db, module, table string, instance map[string]string) (*logstore.Iterator, error) {
	return e.manager(db).ScanPartition(module, table, instance)
}

func (e *Engine) ScanPartitionHash(db, module, table, hash string) (*logstore.Iterator, error) {
	return e.manager(db).ScanPartitionHash(module, table, hash)
}

func (e *Engine) ScanTable(db, module, table string) (*logstore.Iterator, error) {
	return e.manager(db).ScanTable(module, table)
}

func (e *Engine) Commit(db string) error {
	if err := e.manager(db).Commit(); err != nil {
		return err
	}
	// Rows are durable; now their staged hash index entries can follow.
	return e.cat.CommitInstances(db)
}

func (e *Engine) Rollback(db string) error {
	e.manager(db).Rollback()
	e.cat.RollbackInstances(db)
	return nil
}
