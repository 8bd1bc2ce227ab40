package statement

import (
	"fmt"

	"github.com/tuannm99/cellstore/internal/codec"
	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/schema"
	"github.com/tuannm99/cellstore/internal/sql/token"
)

func parseInsert(toks []token.Token) (Statement, error) {
	if len(toks) < 2 {
		return nil, dberr.Parsing("incomplete INSERT statement")
	}
	switch {
	case kw(toks[1], "CELL"):
		return parseInsertCell(toks)
	case kw(toks[1], "INTO"):
		return parseInsertInto(toks)
	default:
		return nil, dberr.Parsing("INSERT expects CELL or INTO, got %q", toks[1].Text)
	}
}

// INSERT CELL <module> (cols) VALUES (vals)
func parseInsertCell(toks []token.Token) (Statement, error) {
	if len(toks) < 3 {
		return nil, dberr.Parsing("INSERT CELL missing module name")
	}
	module, err := ident(toks[2], "module name")
	if err != nil {
		return nil, err
	}
	cols, i, err := parseNameList(toks, 3)
	if err != nil {
		return nil, err
	}
	if i >= len(toks) || !kw(toks[i], "VALUES") {
		return nil, dberr.Parsing("INSERT CELL missing VALUES")
	}
	vals, i, err := parseValueList(toks, i+1)
	if err != nil {
		return nil, err
	}
	if i != len(toks) {
		return nil, dberr.Parsing("unexpected tokens after INSERT CELL values")
	}
	if len(cols) != len(vals) {
		return nil, dberr.Parsing("INSERT CELL: %d columns for %d values", len(cols), len(vals))
	}
	return &InsertCell{Module: module, Columns: cols, Values: vals}, nil
}

// INSERT INTO <module>.<table> USING (preds) (cols) VALUES (vals)
func parseInsertInto(toks []token.Token) (Statement, error) {
	if len(toks) < 3 {
		return nil, dberr.Parsing("INSERT INTO missing target")
	}
	module, table, err := qualified(toks[2])
	if err != nil {
		return nil, err
	}

	i := 3
	if i >= len(toks) || !kw(toks[i], "USING") {
		return nil, dberr.Parsing("INSERT INTO requires a USING clause")
	}
	preds, i, err := parseClause(toks, i+1)
	if err != nil {
		return nil, err
	}

	cols, i, err := parseNameList(toks, i)
	if err != nil {
		return nil, err
	}
	if i >= len(toks) || !kw(toks[i], "VALUES") {
		return nil, dberr.Parsing("INSERT INTO missing VALUES")
	}
	vals, i, err := parseValueList(toks, i+1)
	if err != nil {
		return nil, err
	}
	if i != len(toks) {
		return nil, dberr.Parsing("unexpected tokens after INSERT INTO values")
	}
	if len(cols) != len(vals) {
		return nil, dberr.Parsing("INSERT INTO: %d columns for %d values", len(cols), len(vals))
	}
	return &InsertInto{Module: module, Table: table, Using: preds, Columns: cols, Values: vals}, nil
}

// InsertCell creates a module instance.
type InsertCell struct {
	Module  string
	Columns []string
	Values  []token.Token
}

func (s *InsertCell) Execute(ctx *Context) (*Result, error) {
	db, err := ctx.Session.Database()
	if err != nil {
		return nil, err
	}
	m, err := ctx.Backend.Module(db, s.Module)
	if err != nil {
		return nil, err
	}

	vals := make([]any, len(s.Values))
	for i, name := range s.Columns {
		pos := m.Column(name)
		if pos < 0 {
			return nil, dberr.Data("module %s has no column %s", s.Module, name)
		}
		v, err := schema.ParseLiteral(m.Columns[pos], s.Values[i].Text)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}

	hash, err := ctx.Backend.CreateInstance(db, s.Module, s.Columns, vals)
	if err != nil {
		return nil, err
	}
	if err := autoCommit(ctx, db); err != nil {
		return nil, err
	}
	return &Result{
		Message:  fmt.Sprintf("instance %s created in module %s", hash[:12], s.Module),
		RowCount: 1,
	}, nil
}

// InsertInto writes one row into every partition the USING clause resolves
// to (exactly one on the index path).
type InsertInto struct {
	Module  string
	Table   string
	Using   []Predicate
	Columns []string
	Values  []token.Token
}

func (s *InsertInto) Execute(ctx *Context) (*Result, error) {
	db, err := ctx.Session.Database()
	if err != nil {
		return nil, err
	}
	m, err := ctx.Backend.Module(db, s.Module)
	if err != nil {
		return nil, err
	}
	t, ok := m.Table(s.Table)
	if !ok {
		return nil, dberr.Data("table %s does not exist in module %s", s.Table, s.Module)
	}

	full := make([]any, len(t.Columns))
	supplied := make(map[int]bool, len(s.Columns))
	for i, name := range s.Columns {
		pos := t.Column(name)
		if pos < 0 {
			return nil, dberr.Data("table %s has no column %s", s.Table, name)
		}
		v, err := schema.ParseLiteral(t.Columns[pos], s.Values[i].Text)
		if err != nil {
			return nil, err
		}
		full[pos] = v
		supplied[pos] = true
	}
	for i, col := range t.Columns {
		if !supplied[i] && !col.Nullable {
			return nil, dberr.Data("column %s is NOT NULL and was not supplied", col.Name)
		}
	}

	row, err := schema.NewRow(t.Columns, full)
	if err != nil {
		return nil, err
	}
	data, err := codec.EncodeRowCached(row)
	if err != nil {
		return nil, err
	}

	targets, err := resolveUsingInstances(ctx, db, m, s.Using)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, dberr.Data("USING clause resolved no instance of module %s", s.Module)
	}

	for _, instance := range targets {
		if _, err := ctx.Backend.Put(db, s.Module, s.Table, instance, data); err != nil {
			return nil, err
		}
	}
	if err := autoCommit(ctx, db); err != nil {
		return nil, err
	}
	return &Result{
		Message:  fmt.Sprintf("inserted into %s.%s", s.Module, s.Table),
		RowCount: len(targets),
	}, nil
}
