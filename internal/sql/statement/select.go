package statement

import (
	"fmt"

	"github.com/tuannm99/cellstore/internal/codec"
	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/logstore"
	"github.com/tuannm99/cellstore/internal/schema"
	"github.com/tuannm99/cellstore/internal/sql/token"
)

func parseSelect(toks []token.Token) (Statement, error) {
	i := 1

	var projection []string
	star := false
	for {
		if i >= len(toks) {
			return nil, dberr.Parsing("SELECT missing FROM clause")
		}
		if kw(toks[i], "FROM") {
			break
		}
		if kw(toks[i], ",") {
			i++
			continue
		}
		if kw(toks[i], "*") {
			star = true
			i++
			continue
		}
		name, err := ident(toks[i], "projection column")
		if err != nil {
			return nil, err
		}
		projection = append(projection, name)
		i++
	}
	if !star && len(projection) == 0 {
		return nil, dberr.Parsing("SELECT needs a column list or *")
	}
	if star {
		projection = nil
	}
	i++ // FROM

	if i >= len(toks) {
		return nil, dberr.Parsing("SELECT missing target after FROM")
	}

	st := &Select{Projection: projection}

	if kw(toks[i], "CELL") {
		i++
		if i >= len(toks) {
			return nil, dberr.Parsing("SELECT FROM CELL missing module name")
		}
		name, err := ident(toks[i], "module name")
		if err != nil {
			return nil, err
		}
		st.Module = name
		st.FromCell = true
		i++
	} else {
		module, table, err := qualified(toks[i])
		if err != nil {
			return nil, err
		}
		st.Module, st.Table = module, table
		i++
	}

	var err error
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
		return nil, dberr.Parsing("unexpected token %q in SELECT", toks[i].Text)
	}
	return st, nil
}

// Select streams rows from a table's resolved partitions, or a module's
// instances for the FROM CELL form, through the WHERE post-filter and the
// projection.
type Select struct {
	Module     string
	Table      string
	FromCell   bool
	Projection []string // nil means *
	Using      []Predicate
	Where      []Predicate
}

func (s *Select) Execute(ctx *Context) (*Result, error) {
	db, err := ctx.Session.Database()
	if err != nil {
		return nil, err
	}
	m, err := ctx.Backend.Module(db, s.Module)
	if err != nil {
		return nil, err
	}

	if s.FromCell {
		return s.executeCell(ctx, db, m)
	}

	t, ok := m.Table(s.Table)
	if !ok {
		return nil, dberr.Data("table %s does not exist in module %s", s.Table, s.Module)
	}

	iters, err := resolveUsing(ctx, db, m, s.Table, s.Using)
	if err != nil {
		return nil, err
	}

	names, positions := project(t.Columns, s.Projection)
	return &Result{
		Message: fmt.Sprintf("select from %s.%s", s.Module, s.Table),
		Columns: names,
		Rows: &logRows{
			iters:     iters,
			cols:      t.Columns,
			where:     s.Where,
			positions: positions,
		},
	}, nil
}

func (s *Select) executeCell(ctx *Context, db string, m *schema.Module) (*Result, error) {
	instances, err := ctx.Backend.Instances(db, s.Module)
	if err != nil {
		return nil, err
	}
	names, positions := project(m.Columns, s.Projection)

	var rows [][]any
	for _, inst := range instances {
		if len(s.Where) > 0 && !evalPredicates(m.Columns, inst.Values, s.Where, false) {
			continue
		}
		rows = append(rows, applyProjection(inst.Values, positions))
	}
	return &Result{
		Message:  fmt.Sprintf("select from cell %s", s.Module),
		Columns:  names,
		RowCount: len(rows),
		Rows:     &sliceRows{rows: rows},
	}, nil
}

// project resolves a projection list to column names and value positions.
// Unknown column names are silently skipped; a nil list selects everything.
func project(cols []schema.Column, projection []string) ([]string, []int) {
	if projection == nil {
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.Name
		}
		return names, nil
	}

	var names []string
	var positions []int
	for _, want := range projection {
		for i, c := range cols {
			if c.Name == want {
				names = append(names, c.Name)
				positions = append(positions, i)
				break
			}
		}
	}
	return names, positions
}

func applyProjection(values []any, positions []int) []any {
	if positions == nil {
		out := make([]any, len(values))
		copy(out, values)
		return out
	}
	out := make([]any, len(positions))
	for i, pos := range positions {
		out[i] = values[pos]
	}
	return out
}

// logRows lazily decodes, filters and projects records pulled from the
// resolved partition iterators.
type logRows struct {
	iters     []*logstore.Iterator
	ii        int
	cols      []schema.Column
	where     []Predicate
	positions []int
}

func (r *logRows) Next() ([]any, error) {
	for {
		if r.ii >= len(r.iters) {
			return nil, nil
		}
		e, err := r.iters[r.ii].Next()
		if err != nil {
			return nil, err
		}
		if e == nil {
			r.ii++
			continue
		}

		values, err := codec.DecodeRow(r.cols, e.Record.Tuple)
		if err != nil {
			return nil, err
		}
		if len(r.where) > 0 && !evalPredicates(r.cols, values, r.where, false) {
			continue
		}
		return applyProjection(values, r.positions), nil
	}
}

// sliceRows adapts a materialized row set to the Rows stream.
type sliceRows struct {
	rows [][]any
	i    int
}

func (r *sliceRows) Next() ([]any, error) {
	if r.i >= len(r.rows) {
		return nil, nil
	}
	row := r.rows[r.i]
	r.i++
	return row, nil
}
