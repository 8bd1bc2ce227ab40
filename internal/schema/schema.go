// Package schema holds the value objects of the data model: columns, tables,
// modules and databases. Everything is constructed through validating
// factories and treated as immutable afterwards.
package schema

import (
	"github.com/tuannm99/cellstore/internal/dberr"
)

// Column describes one field of a table or module schema.
// PrimaryKey columns are implicitly non-nullable. Indexed columns of a module
// form its instance key.
type Column struct {
	Name       string   `json:"name"`
	Type       DataType `json:"type"`
	PrimaryKey bool     `json:"primary_key"`
	Indexed    bool     `json:"indexed"`
	Nullable   bool     `json:"nullable"`
}

// NewColumn validates and builds a Column. Empty names are rejected; a
// primary key column is forced non-nullable.
func NewColumn(name string, t DataType, primaryKey, indexed, nullable bool) (Column, error) {
	if name == "" {
		return Column{}, dberr.Data("column name must not be empty")
	}
	if t.String() == "UNKNOWN" {
		return Column{}, dberr.Data("column %s: unknown data type", name)
	}
	if primaryKey {
		nullable = false
	}
	return Column{
		Name:       name,
		Type:       t,
		PrimaryKey: primaryKey,
		Indexed:    indexed,
		Nullable:   nullable,
	}, nil
}

// Table is a named, ordered column list owned by exactly one module.
// Column order is significant for the binary row encoding.
type Table struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
}

func NewTable(name string, cols []Column) (Table, error) {
	if name == "" {
		return Table{}, dberr.Data("table name must not be empty")
	}
	if len(cols) == 0 {
		return Table{}, dberr.Data("table %s: empty column list", name)
	}
	return Table{Name: name, Columns: cols}, nil
}

// Column returns the position of a named column, or -1.
func (t Table) Column(name string) int {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return i
		}
	}
	return -1
}

// Module groups tables sharing a partitioning key. The module's own columns
// describe its instances; the Indexed subset is the instance key.
type Module struct {
	Name    string   `json:"name"`
	Columns []Column `json:"columns"`
	Tables  []Table  `json:"tables"`
	Version int      `json:"version"`
}

func NewModule(name string, cols []Column) (*Module, error) {
	if name == "" {
		return nil, dberr.Data("module name must not be empty")
	}
	if len(cols) == 0 {
		return nil, dberr.Data("module %s: empty column list", name)
	}
	m := &Module{Name: name, Columns: cols, Version: 1}
	if len(m.IndexColumns()) == 0 {
		return nil, dberr.Data("module %s: at least one INDEX column required", name)
	}
	return m, nil
}

// IndexColumns returns the instance key columns in schema order.
func (m *Module) IndexColumns() []Column {
	var out []Column
	for _, c := range m.Columns {
		if c.Indexed {
			out = append(out, c)
		}
	}
	return out
}

// Table looks a table up by name.
func (m *Module) Table(name string) (Table, bool) {
	for _, t := range m.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

func (m *Module) Column(name string) int {
	for i := range m.Columns {
		if m.Columns[i].Name == name {
			return i
		}
	}
	return -1
}

// Database is a named, ordered list of modules. Persisted through the root
// registry, so it survives restarts.
type Database struct {
	Name    string   `json:"name"`
	Modules []string `json:"modules"`
	Version int      `json:"version"`
}

func NewDatabase(name string) (*Database, error) {
	if name == "" {
		return nil, dberr.Data("database name must not be empty")
	}
	return &Database{Name: name, Version: 1}, nil
}
