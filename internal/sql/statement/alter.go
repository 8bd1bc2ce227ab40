package statement

import (
	"fmt"

	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/schema"
	"github.com/tuannm99/cellstore/internal/sql/token"
)

// ALTER MODULE <name> ADD COLUMN <def> | DROP COLUMN <name>
func parseAlter(toks []token.Token) (Statement, error) {
	if len(toks) < 5 || !kw(toks[1], "MODULE") {
		return nil, dberr.Parsing("ALTER expects MODULE <name> ADD|DROP COLUMN")
	}
	name, err := ident(toks[2], "module name")
	if err != nil {
		return nil, err
	}
	if !kw(toks[4], "COLUMN") {
		return nil, dberr.Parsing("ALTER MODULE expects ADD COLUMN or DROP COLUMN")
	}

	switch {
	case kw(toks[3], "ADD"):
		col, i, err := parseAlterColumnDef(toks, 5)
		if err != nil {
			return nil, err
		}
		if i != len(toks) {
			return nil, dberr.Parsing("unexpected tokens after ALTER MODULE %s", name)
		}
		return &AlterModule{Module: name, Add: []schema.Column{col}}, nil

	case kw(toks[3], "DROP"):
		col, err := ident(toks[5], "column name")
		if err != nil {
			return nil, err
		}
		if len(toks) != 6 {
			return nil, dberr.Parsing("unexpected tokens after ALTER MODULE %s", name)
		}
		return &AlterModule{Module: name, Drop: []string{col}}, nil

	default:
		return nil, dberr.Parsing("ALTER MODULE expects ADD or DROP, got %q", toks[3].Text)
	}
}

// parseAlterColumnDef parses a single bare column definition (no surrounding
// parentheses): name TYPE [NULL|NOT NULL]. Added columns cannot be primary
// keys or INDEX: the instance key is fixed at CREATE MODULE time, since every
// existing partition hash depends on it.
func parseAlterColumnDef(toks []token.Token, i int) (schema.Column, int, error) {
	var zero schema.Column
	if i >= len(toks) {
		return zero, i, dberr.Parsing("ADD COLUMN missing definition")
	}
	name, err := ident(toks[i], "column name")
	if err != nil {
		return zero, i, err
	}
	i++
	if i >= len(toks) {
		return zero, i, dberr.Parsing("column %s: missing type", name)
	}
	dt, err := schema.ParseDataType(toks[i].Text)
	if err != nil {
		return zero, i, dberr.Parsing("column %s: %v", name, err)
	}
	i++

	nullable := true
	for i < len(toks) {
		switch {
		case kw(toks[i], "INDEX"):
			return zero, i, dberr.Parsing("column %s: added columns cannot join the instance key", name)
		case kw(toks[i], "NOT") && i+1 < len(toks) && kw(toks[i+1], "NULL"):
			nullable = false
			i += 2
		case kw(toks[i], "NULL"):
			nullable = true
			i++
		default:
			return zero, i, dberr.Parsing("column %s: unexpected token %q", name, toks[i].Text)
		}
	}

	col, err := schema.NewColumn(name, dt, false, false, nullable)
	if err != nil {
		return zero, i, err
	}
	return col, i, nil
}

// AlterModule adds or drops module columns and bumps the schema version.
type AlterModule struct {
	Module string
	Add    []schema.Column
	Drop   []string
}

func (s *AlterModule) Execute(ctx *Context) (*Result, error) {
	db, err := ctx.Session.Database()
	if err != nil {
		return nil, err
	}
	// The alter rewrites existing instance rows; a rollback could not undo
	// the saved descriptor, so the statement refuses to run half-covered.
	if ctx.Session.InTransaction() {
		return nil, dberr.State("ALTER MODULE cannot run inside a transaction")
	}
	if err := ctx.Backend.AlterModule(db, s.Module, s.Add, s.Drop); err != nil {
		return nil, err
	}
	if err := autoCommit(ctx, db); err != nil {
		return nil, err
	}
	return &Result{Message: fmt.Sprintf("module %s altered", s.Module)}, nil
}
