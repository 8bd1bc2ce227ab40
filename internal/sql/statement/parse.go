package statement

import (
	"strings"

	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/schema"
	"github.com/tuannm99/cellstore/internal/sql/token"
)

// ParseBatch tokenizes statement text, splits it on ';' and dispatches each
// statement on its leading keyword. A batch with more than one SELECT is
// rejected up front.
func ParseBatch(text string) ([]Statement, error) {
	toks, err := token.Tokenize(text)
	if err != nil {
		return nil, err
	}

	var groups [][]token.Token
	var cur []token.Token
	for _, t := range toks {
		if !t.Quoted && t.Text == ";" {
			if len(cur) > 0 {
				groups = append(groups, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}

	selects := 0
	for _, g := range groups {
		if kw(g[0], "SELECT") {
			selects++
		}
	}
	if selects > 1 {
		return nil, dberr.Parsing("batch may contain at most one SELECT")
	}

	stmts := make([]Statement, 0, len(groups))
	for _, g := range groups {
		st, err := Parse(g)
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	return stmts, nil
}

// Parse dispatches one statement's tokens on the leading keyword.
func Parse(toks []token.Token) (Statement, error) {
	if len(toks) == 0 {
		return nil, dberr.Parsing("empty statement")
	}
	toks = splitOperators(toks)

	switch strings.ToUpper(toks[0].Text) {
	case "CREATE":
		return parseCreate(toks)
	case "USE":
		return parseUse(toks)
	case "SELECT":
		return parseSelect(toks)
	case "INSERT":
		return parseInsert(toks)
	case "DELETE":
		return parseDelete(toks)
	case "ALTER":
		return parseAlter(toks)
	case "DROP":
		return parseDrop(toks)
	case "BEGIN":
		return parseBegin(toks)
	case "COMMIT":
		if len(toks) != 1 {
			return nil, dberr.Parsing("COMMIT takes no arguments")
		}
		return &Commit{}, nil
	case "ROLLBACK":
		if len(toks) != 1 {
			return nil, dberr.Parsing("ROLLBACK takes no arguments")
		}
		return &Rollback{}, nil
	default:
		return nil, dberr.Parsing("unknown statement keyword %q", toks[0].Text)
	}
}

// ---- token helpers ----

// kw reports whether an unquoted token equals a keyword, case-insensitively.
func kw(t token.Token, want string) bool {
	return !t.Quoted && strings.EqualFold(t.Text, want)
}

var comparisonOps = []string{"!=", "<=", ">=", "<>", "=", "<", ">"}

func isOp(s string) bool {
	for _, op := range comparisonOps {
		if s == op {
			return true
		}
	}
	return false
}

// splitOperators breaks unquoted tokens like "id=1" apart so clause parsing
// always sees column, operator and value as separate tokens.
func splitOperators(toks []token.Token) []token.Token {
	var out []token.Token
	for _, t := range toks {
		if t.Quoted || isOp(t.Text) {
			out = append(out, t)
			continue
		}
		out = append(out, splitOne(t)...)
	}
	return out
}

func splitOne(t token.Token) []token.Token {
	for _, op := range comparisonOps {
		i := strings.Index(t.Text, op)
		if i < 0 {
			continue
		}
		var out []token.Token
		if left := t.Text[:i]; left != "" {
			out = append(out, splitOne(token.Token{Text: left})...)
		}
		out = append(out, token.Token{Text: op})
		if right := t.Text[i+len(op):]; right != "" {
			out = append(out, splitOne(token.Token{Text: right})...)
		}
		return out
	}
	return []token.Token{t}
}

// ident validates a bare name token.
func ident(t token.Token, what string) (string, error) {
	if t.Quoted || t.Text == "" || isOp(t.Text) ||
		t.Text == "(" || t.Text == ")" || t.Text == "," {
		return "", dberr.Parsing("expected %s, got %q", what, t.Text)
	}
	return t.Text, nil
}

// qualified splits "module.table".
func qualified(t token.Token) (string, string, error) {
	name, err := ident(t, "module.table")
	if err != nil {
		return "", "", err
	}
	parts := strings.SplitN(name, ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", dberr.Parsing("expected module.table, got %q", name)
	}
	return parts[0], parts[1], nil
}

// parseColumnDefs parses "( name TYPE [PRIMARY KEY] [INDEX] [NULL|NOT NULL],
// ... )" starting at the opening parenthesis, returning the columns and the
// index after the closing parenthesis.
func parseColumnDefs(toks []token.Token, i int) ([]schema.Column, int, error) {
	if i >= len(toks) || !kw(toks[i], "(") {
		return nil, i, dberr.Parsing("expected ( to open column list")
	}
	i++

	var cols []schema.Column
	for {
		if i >= len(toks) {
			return nil, i, dberr.Parsing("unterminated column list")
		}
		if kw(toks[i], ")") {
			if len(cols) == 0 {
				return nil, i, dberr.Parsing("empty column list")
			}
			return cols, i + 1, nil
		}

		name, err := ident(toks[i], "column name")
		if err != nil {
			return nil, i, err
		}
		i++
		if i >= len(toks) {
			return nil, i, dberr.Parsing("column %s: missing type", name)
		}
		dt, err := schema.ParseDataType(toks[i].Text)
		if err != nil {
			return nil, i, dberr.Parsing("column %s: %v", name, err)
		}
		i++

		var primaryKey, indexed bool
		nullable := true
		for i < len(toks) && !kw(toks[i], ",") && !kw(toks[i], ")") {
			switch {
			case kw(toks[i], "PRIMARY") && i+1 < len(toks) && kw(toks[i+1], "KEY"):
				primaryKey = true
				i += 2
			case kw(toks[i], "INDEX"):
				indexed = true
				i++
			case kw(toks[i], "NOT") && i+1 < len(toks) && kw(toks[i+1], "NULL"):
				nullable = false
				i += 2
			case kw(toks[i], "NULL"):
				nullable = true
				i++
			default:
				return nil, i, dberr.Parsing("column %s: unexpected token %q", name, toks[i].Text)
			}
		}

		col, err := schema.NewColumn(name, dt, primaryKey, indexed, nullable)
		if err != nil {
			return nil, i, err
		}
		cols = append(cols, col)

		if i < len(toks) && kw(toks[i], ",") {
			i++
		}
	}
}

// parseNameList parses "( a, b, c )" starting at the opening parenthesis.
func parseNameList(toks []token.Token, i int) ([]string, int, error) {
	if i >= len(toks) || !kw(toks[i], "(") {
		return nil, i, dberr.Parsing("expected ( to open name list")
	}
	i++
	var names []string
	for {
		if i >= len(toks) {
			return nil, i, dberr.Parsing("unterminated name list")
		}
		if kw(toks[i], ")") {
			if len(names) == 0 {
				return nil, i, dberr.Parsing("empty name list")
			}
			return names, i + 1, nil
		}
		name, err := ident(toks[i], "column name")
		if err != nil {
			return nil, i, err
		}
		names = append(names, name)
		i++
		if i < len(toks) && kw(toks[i], ",") {
			i++
		}
	}
}

// parseValueList parses "( v1, v2, ... )" keeping raw token text and
// quoted-ness; typing happens later against the schema.
func parseValueList(toks []token.Token, i int) ([]token.Token, int, error) {
	if i >= len(toks) || !kw(toks[i], "(") {
		return nil, i, dberr.Parsing("expected ( to open value list")
	}
	i++
	var vals []token.Token
	for {
		if i >= len(toks) {
			return nil, i, dberr.Parsing("unterminated value list")
		}
		if kw(toks[i], ")") {
			if len(vals) == 0 {
				return nil, i, dberr.Parsing("empty value list")
			}
			return vals, i + 1, nil
		}
		if kw(toks[i], ",") {
			i++
			continue
		}
		vals = append(vals, toks[i])
		i++
	}
}
