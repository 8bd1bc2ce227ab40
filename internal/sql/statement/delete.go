package statement

import (
	"fmt"

	"github.com/tuannm99/cellstore/internal/codec"
	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/sql/token"
)

// DELETE FROM <module>.<table> [USING (preds)] [WHERE preds]
func parseDelete(toks []token.Token) (Statement, error) {
	if len(toks) < 3 || !kw(toks[1], "FROM") {
		return nil, dberr.Parsing("DELETE expects FROM")
	}
	module, table, err := qualified(toks[2])
	if err != nil {
		return nil, err
	}

	st := &Delete{Module: module, Table: table}
	i := 3
	if i < len(toks) && kw(toks[i], "USING") {
		st.Using, i, err = parseClause(toks, i+1)
		if err != nil {
			return nil, err
		}
	}
	if i < len(toks) && kw(toks[i], "WHERE") {
		st.Where, i, err = parseClause(toks, i+1)
		if err != nil {
			return nil, err
		}
	}
	if i != len(toks) {
		return nil, dberr.Parsing("unexpected token %q in DELETE", toks[i].Text)
	}
	return st, nil
}

// Delete tombstones every live row the clauses match. The data stays in the
// segments; readers stop seeing it once the tombstone is flushed.
type Delete struct {
	Module string
	Table  string
	Using  []Predicate
	Where  []Predicate
}

func (s *Delete) Execute(ctx *Context) (*Result, error) {
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

	iters, err := resolveUsing(ctx, db, m, s.Table, s.Using)
	if err != nil {
		return nil, err
	}

	deleted := 0
	for _, it := range iters {
		for {
			e, err := it.Next()
			if err != nil {
				return nil, err
			}
			if e == nil {
				break
			}
			if len(s.Where) > 0 {
				values, err := codec.DecodeRow(t.Columns, e.Record.Tuple)
				if err != nil {
					return nil, err
				}
				if !evalPredicates(t.Columns, values, s.Where, false) {
					continue
				}
			}
			if err := ctx.Backend.DeleteLog(db, s.Module, s.Table, e.Hash, e.Record.ID); err != nil {
				return nil, err
			}
			deleted++
		}
	}

	if err := autoCommit(ctx, db); err != nil {
		return nil, err
	}
	return &Result{
		Message:  fmt.Sprintf("deleted from %s.%s", s.Module, s.Table),
		RowCount: deleted,
	}, nil
}
