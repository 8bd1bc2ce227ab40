package statement

import (
	"fmt"

	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/sql/token"
)

func parseUse(toks []token.Token) (Statement, error) {
	if len(toks) != 2 {
		return nil, dberr.Parsing("USE expects exactly one database name")
	}
	name, err := ident(toks[1], "database name")
	if err != nil {
		return nil, err
	}
	return &Use{Name: name}, nil
}

// Use selects the session's current database.
type Use struct {
	Name string
}

func (s *Use) Execute(ctx *Context) (*Result, error) {
	ok, err := ctx.Backend.DatabaseExists(s.Name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, dberr.Data("database %s does not exist", s.Name)
	}
	ctx.Session.Use(s.Name)
	return &Result{Message: fmt.Sprintf("using database %s", s.Name)}, nil
}
