package statement

import (
	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/sql/token"
)

func parseBegin(toks []token.Token) (Statement, error) {
	switch {
	case len(toks) == 1:
		return &Begin{}, nil
	case len(toks) == 2 && kw(toks[1], "TRANSACTION"):
		return &Begin{}, nil
	default:
		return nil, dberr.Parsing("BEGIN takes no arguments")
	}
}

// Begin opens a transaction on the session: subsequent writes stay in the
// write-ahead buffer until COMMIT.
type Begin struct{}

func (s *Begin) Execute(ctx *Context) (*Result, error) {
	if _, err := ctx.Session.Database(); err != nil {
		return nil, err
	}
	if err := ctx.Session.Begin(); err != nil {
		return nil, err
	}
	return &Result{Message: "transaction started"}, nil
}

// Commit flushes the session's buffered writes to the log partitions. Each
// touched partition is flushed independently.
type Commit struct{}

func (s *Commit) Execute(ctx *Context) (*Result, error) {
	db, err := ctx.Session.Database()
	if err != nil {
		return nil, err
	}
	if err := ctx.Session.End(); err != nil {
		return nil, err
	}
	if err := ctx.Backend.Commit(db); err != nil {
		return nil, err
	}
	return &Result{Message: "committed"}, nil
}

// Rollback discards the session's buffered writes.
type Rollback struct{}

func (s *Rollback) Execute(ctx *Context) (*Result, error) {
	db, err := ctx.Session.Database()
	if err != nil {
		return nil, err
	}
	if err := ctx.Session.End(); err != nil {
		return nil, err
	}
	if err := ctx.Backend.Rollback(db); err != nil {
		return nil, err
	}
	return &Result{Message: "rolled back"}, nil
}
