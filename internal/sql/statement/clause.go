package statement

import (
	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/logstore"
	"github.com/tuannm99/cellstore/internal/schema"
	"github.com/tuannm99/cellstore/internal/sql/token"
)

// Predicate is one (column, operator, value) triple of a USING or WHERE
// clause. The value stays raw until it is typed against a schema column.
type Predicate struct {
	Column string
	Op     string
	Raw    string
	Quoted bool
}

// parsePredicates consumes "col op value [AND col op value]..." starting at
// i, stopping at end of tokens, at a clause keyword or at ')'. Returns the
// triples and the index of the first unconsumed token.
func parsePredicates(toks []token.Token, i int) ([]Predicate, int, error) {
	var preds []Predicate
	for {
		if i >= len(toks) || kw(toks[i], ")") || kw(toks[i], "WHERE") || kw(toks[i], "USING") {
			if len(preds) == 0 {
				return nil, i, dberr.Parsing("empty predicate list")
			}
			return preds, i, nil
		}

		col, err := ident(toks[i], "predicate column")
		if err != nil {
			return nil, i, err
		}
		if i+2 >= len(toks) {
			return nil, i, dberr.Parsing("incomplete predicate on column %s", col)
		}
		if !isOp(toks[i+1].Text) || toks[i+1].Quoted {
			return nil, i, dberr.Parsing("expected comparison operator after %s, got %q", col, toks[i+1].Text)
		}
		val := toks[i+2]
		preds = append(preds, Predicate{Column: col, Op: toks[i+1].Text, Raw: val.Text, Quoted: val.Quoted})
		i += 3

		if i < len(toks) && kw(toks[i], "AND") {
			i++
			continue
		}
	}
}

// parseClause parses a predicate list that may be wrapped in parentheses.
func parseClause(toks []token.Token, i int) ([]Predicate, int, error) {
	paren := i < len(toks) && kw(toks[i], "(")
	if paren {
		i++
	}
	preds, i, err := parsePredicates(toks, i)
	if err != nil {
		return nil, i, err
	}
	if paren {
		if i >= len(toks) || !kw(toks[i], ")") {
			return nil, i, dberr.Parsing("unterminated predicate clause")
		}
		i++
	}
	return preds, i, nil
}

// evalPredicates applies a left-to-right conjunction to a decoded row:
// short-circuits false on the first unmet condition, on an unresolved column
// and on an unparsable literal. equalityOnly makes any non-= operator fail
// outright (USING semantics against instance rows).
func evalPredicates(cols []schema.Column, values []any, preds []Predicate, equalityOnly bool) bool {
	for _, p := range preds {
		pos := -1
		for i := range cols {
			if cols[i].Name == p.Column {
				pos = i
				break
			}
		}
		if pos < 0 {
			return false
		}
		if equalityOnly && p.Op != "=" {
			return false
		}

		lit, err := schema.ParseLiteral(cols[pos], p.Raw)
		if err != nil {
			return false
		}
		cmp, ok := schema.CompareValues(values[pos], lit)
		if !ok {
			return false
		}
		if !opHolds(p.Op, cmp) {
			return false
		}
	}
	return true
}

func opHolds(op string, cmp int) bool {
	switch op {
	case "=":
		return cmp == 0
	case "!=", "<>":
		return cmp != 0
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	default:
		return false
	}
}

// usingIndexPath decides the engine's single optimization: the clause
// resolves by direct hash computation iff its column set exactly equals the
// module's indexed-column set and every operator is '='. Anything else
// (extra, missing or non-indexed columns, or a non-equality operator) takes
// the scan path.
func usingIndexPath(m *schema.Module, preds []Predicate) bool {
	indexed := m.IndexColumns()
	if len(preds) != len(indexed) {
		return false
	}
	seen := make(map[string]bool, len(preds))
	for _, p := range preds {
		if p.Op != "=" || seen[p.Column] {
			return false
		}
		seen[p.Column] = true
	}
	for _, col := range indexed {
		if !seen[col.Name] {
			return false
		}
	}
	return true
}

// usingInstanceValues types the clause values against the module schema and
// renders the canonical string map the partition hash is computed from.
func usingInstanceValues(m *schema.Module, preds []Predicate) (map[string]string, error) {
	out := make(map[string]string, len(preds))
	for _, p := range preds {
		pos := m.Column(p.Column)
		if pos < 0 {
			return nil, dberr.Data("module %s has no column %s", m.Name, p.Column)
		}
		v, err := schema.ParseLiteral(m.Columns[pos], p.Raw)
		if err != nil {
			return nil, err
		}
		out[p.Column] = schema.FormatValue(v)
	}
	return out, nil
}

// resolveUsing turns a USING clause into the log iterators to read. No
// clause scans the whole table; an index-path clause reads exactly one
// partition; otherwise every module instance is enumerated and the matching
// instances' partitions are concatenated.
func resolveUsing(ctx *Context, db string, m *schema.Module, table string, preds []Predicate) ([]*logstore.Iterator, error) {
	if len(preds) == 0 {
		it, err := ctx.Backend.ScanTable(db, m.Name, table)
		if err != nil {
			return nil, err
		}
		return []*logstore.Iterator{it}, nil
	}

	if usingIndexPath(m, preds) {
		instance, err := usingInstanceValues(m, preds)
		if err != nil {
			return nil, err
		}
		it, err := ctx.Backend.ScanPartition(db, m.Name, table, instance)
		if err != nil {
			return nil, err
		}
		return []*logstore.Iterator{it}, nil
	}

	hashes, err := resolveUsingHashes(ctx, db, m, preds)
	if err != nil {
		return nil, err
	}
	iters := make([]*logstore.Iterator, 0, len(hashes))
	for _, h := range hashes {
		it, err := ctx.Backend.ScanPartitionHash(db, m.Name, table, h)
		if err != nil {
			return nil, err
		}
		iters = append(iters, it)
	}
	return iters, nil
}

// resolveUsingHashes is the scan path: evaluate the clause (equality only)
// against every instance row and collect the matches' hashes.
func resolveUsingHashes(ctx *Context, db string, m *schema.Module, preds []Predicate) ([]string, error) {
	instances, err := ctx.Backend.Instances(db, m.Name)
	if err != nil {
		return nil, err
	}
	var hashes []string
	for _, inst := range instances {
		if evalPredicates(m.Columns, inst.Values, preds, true) {
			hashes = append(hashes, inst.InstanceHash)
		}
	}
	return hashes, nil
}

// resolveUsingInstances resolves a clause to the instance key maps the write
// path needs: one map on the index path, the matched instances' key values
// on the scan path.
func resolveUsingInstances(ctx *Context, db string, m *schema.Module, preds []Predicate) ([]map[string]string, error) {
	if usingIndexPath(m, preds) {
		instance, err := usingInstanceValues(m, preds)
		if err != nil {
			return nil, err
		}
		return []map[string]string{instance}, nil
	}

	instances, err := ctx.Backend.Instances(db, m.Name)
	if err != nil {
		return nil, err
	}
	var out []map[string]string
	for _, inst := range instances {
		if evalPredicates(m.Columns, inst.Values, preds, true) {
			out = append(out, inst.IndexedValues())
		}
	}
	return out, nil
}
