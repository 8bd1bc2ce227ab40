// Package session holds per-connection state. Access is single-threaded by
// contract; there is no concurrent mutation path.
package session

import "github.com/tuannm99/cellstore/internal/dberr"

// Session owns the current database selection and the transaction flag.
type Session struct {
	ID string

	database string
	inTx     bool
}

func New(id string) *Session {
	return &Session{ID: id}
}

// Use selects the current database.
func (s *Session) Use(db string) { s.database = db }

// Database returns the current database or a StateError when none is
// selected.
func (s *Session) Database() (string, error) {
	if s.database == "" {
		return "", dberr.State("no database selected, run USE first")
	}
	return s.database, nil
}

// Begin sets the transaction flag. Nesting is rejected.
func (s *Session) Begin() error {
	if s.inTx {
		return dberr.State("transaction already in progress")
	}
	s.inTx = true
	return nil
}

// End clears the transaction flag. Committing or rolling back outside a
// transaction is rejected.
func (s *Session) End() error {
	if !s.inTx {
		return dberr.State("no transaction in progress")
	}
	s.inTx = false
	return nil
}

// InTransaction reports the flag; statements that mutate data auto-commit
// when it is unset.
func (s *Session) InTransaction() bool { return s.inTx }
