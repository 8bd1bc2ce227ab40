// Package statement turns token streams into executable query objects, one
// statement type per leading keyword, and executes them against session
// state and the storage engine behind the Backend seam.
package statement

import (
	"github.com/tuannm99/cellstore/internal/logstore"
	"github.com/tuannm99/cellstore/internal/schema"
	"github.com/tuannm99/cellstore/internal/session"
)

// Backend is the storage surface statements execute against. The engine
// facade implements it; tests may fake it.
type Backend interface {
	CreateDatabase(name string) error
	DropDatabase(name string) error
	DatabaseExists(name string) (bool, error)

	Module(db, name string) (*schema.Module, error)
	CreateModule(db string, m *schema.Module) error
	AlterModule(db, name string, add []schema.Column, drop []string) error
	DropModule(db, name string) error
	CreateTable(db, module string, t schema.Table) error
	DropTable(db, module, table string) error

	CreateInstance(db, module string, cols []string, vals []any) (string, error)
	Instances(db, module string) ([]*schema.Row, error)

	Put(db, module, table string, instance map[string]string, data []byte) (int64, error)
	DeleteLog(db, module, table, hash string, id int64) error
	ScanPartition(db, module, table string, instance map[string]string) (*logstore.Iterator, error)
	ScanPartitionHash(db, module, table, hash string) (*logstore.Iterator, error)
	ScanTable(db, module, table string) (*logstore.Iterator, error)

	Commit(db string) error
	Rollback(db string) error
}

// Context carries what a statement needs to run.
type Context struct {
	Backend Backend
	Session *session.Session
}

// Rows streams result rows on demand. Next returns (nil, nil) when the
// stream is exhausted; a stream is single-use.
type Rows interface {
	Next() ([]any, error)
}

// Result is the outcome of one statement: a message plus, for SELECT, a lazy
// row stream.
type Result struct {
	Message  string
	RowCount int
	Columns  []string
	Rows     Rows
}

// Statement is one parsed, executable query object.
type Statement interface {
	Execute(ctx *Context) (*Result, error)
}

// autoCommit flushes the write-ahead buffer after a mutating statement when
// no transaction is open.
func autoCommit(ctx *Context, db string) error {
	if ctx.Session.InTransaction() {
		return nil
	}
	return ctx.Backend.Commit(db)
}

// Collect drains a result's row stream. The wire layer and tests use it;
// in-process callers can consume Rows lazily instead.
func Collect(r *Result) ([][]any, error) {
	if r == nil || r.Rows == nil {
		return nil, nil
	}
	var out [][]any
	for {
		row, err := r.Rows.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			return out, nil
		}
		out = append(out, row)
	}
}
