package statement

import (
	"fmt"

	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/schema"
	"github.com/tuannm99/cellstore/internal/sql/token"
)

func parseCreate(toks []token.Token) (Statement, error) {
	if len(toks) < 3 {
		return nil, dberr.Parsing("incomplete CREATE statement")
	}
	switch {
	case kw(toks[1], "DATABASE"):
		name, err := ident(toks[2], "database name")
		if err != nil {
			return nil, err
		}
		if len(toks) != 3 {
			return nil, dberr.Parsing("unexpected tokens after CREATE DATABASE %s", name)
		}
		return &CreateDatabase{Name: name}, nil

	case kw(toks[1], "MODULE"):
		name, err := ident(toks[2], "module name")
		if err != nil {
			return nil, err
		}
		cols, i, err := parseColumnDefs(toks, 3)
		if err != nil {
			return nil, err
		}
		if i != len(toks) {
			return nil, dberr.Parsing("unexpected tokens after CREATE MODULE %s", name)
		}
		return &CreateModule{Name: name, Columns: cols}, nil

	case kw(toks[1], "TABLE"):
		module, table, err := qualified(toks[2])
		if err != nil {
			return nil, err
		}
		cols, i, err := parseColumnDefs(toks, 3)
		if err != nil {
			return nil, err
		}
		if i != len(toks) {
			return nil, dberr.Parsing("unexpected tokens after CREATE TABLE %s.%s", module, table)
		}
		return &CreateTable{Module: module, Table: table, Columns: cols}, nil

	default:
		return nil, dberr.Parsing("CREATE expects DATABASE, MODULE or TABLE, got %q", toks[1].Text)
	}
}

// CreateDatabase registers a new database in the root registry.
type CreateDatabase struct {
	Name string
}

func (s *CreateDatabase) Execute(ctx *Context) (*Result, error) {
	if err := ctx.Backend.CreateDatabase(s.Name); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("database %s created", s.Name)}, nil
}

// CreateModule persists a module schema in the current database.
type CreateModule struct {
	Name    string
	Columns []schema.Column
}

func (s *CreateModule) Execute(ctx *Context) (*Result, error) {
	db, err := ctx.Session.Database()
	if err != nil {
		return nil, err
	}
	m, err := schema.NewModule(s.Name, s.Columns)
	if err != nil {
		return nil, err
	}
	if err := ctx.Backend.CreateModule(db, m); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("module %s created", s.Name)}, nil
}

// CreateTable adds a table to a module schema.
type CreateTable struct {
	Module  string
	Table   string
	Columns []schema.Column
}

func (s *CreateTable) Execute(ctx *Context) (*Result, error) {
	db, err := ctx.Session.Database()
	if err != nil {
		return nil, err
	}
	t, err := schema.NewTable(s.Table, s.Columns)
	if err != nil {
		return nil, err
	}
	if err := ctx.Backend.CreateTable(db, s.Module, t); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("table %s.%s created", s.Module, s.Table)}, nil
}
