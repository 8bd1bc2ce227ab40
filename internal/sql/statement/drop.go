package statement

import (
	"fmt"

	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/sql/token"
)

func parseDrop(toks []token.Token) (Statement, error) {
	if len(toks) != 3 {
		return nil, dberr.Parsing("DROP expects DATABASE, MODULE or TABLE and a name")
	}
	switch {
	case kw(toks[1], "DATABASE"):
		name, err := ident(toks[2], "database name")
		if err != nil {
			return nil, err
		}
		return &DropDatabase{Name: name}, nil

	case kw(toks[1], "MODULE"):
		name, err := ident(toks[2], "module name")
		if err != nil {
			return nil, err
		}
		return &DropModule{Name: name}, nil

	case kw(toks[1], "TABLE"):
		module, table, err := qualified(toks[2])
		if err != nil {
			return nil, err
		}
		return &DropTable{Module: module, Table: table}, nil

	default:
		return nil, dberr.Parsing("DROP expects DATABASE, MODULE or TABLE, got %q", toks[1].Text)
	}
}

// DropDatabase removes a database and everything under it.
type DropDatabase struct {
	Name string
}

func (s *DropDatabase) Execute(ctx *Context) (*Result, error) {
	if err := ctx.Backend.DropDatabase(s.Name); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("database %s dropped", s.Name)}, nil
}

// DropModule removes a module schema, its instances and its table data.
type DropModule struct {
	Name string
}

func (s *DropModule) Execute(ctx *Context) (*Result, error) {
	db, err := ctx.Session.Database()
	if err != nil {
		return nil, err
	}
	if err := ctx.Backend.DropModule(db, s.Name); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("module %s dropped", s.Name)}, nil
}

// DropTable removes a table from a module schema along with its partitions.
type DropTable struct {
	Module string
	Table  string
}

func (s *DropTable) Execute(ctx *Context) (*Result, error) {
	db, err := ctx.Session.Database()
	if err != nil {
		return nil, err
	}
	if err := ctx.Backend.DropTable(db, s.Module, s.Table); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("table %s.%s dropped", s.Module, s.Table)}, nil
}
