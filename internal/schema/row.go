package schema

import (
	"github.com/tuannm99/cellstore/internal/dberr"
)

// Row pairs an ordered value slice with its column list. Values are stored in
// canonical form (see Coerce). A Row is immutable after construction;
// WithValues builds a new one. The InstanceHash is derived from the row's own
// indexed (or, lacking those, primary key) columns and identifies the row
// when it represents a module instance.
type Row struct {
	Columns []Column
	Values  []any

	InstanceHash string

	raw []byte // cached encoding, owned by the codec
}

// NewRow validates value count and types against the column list and derives
// the instance hash.
func NewRow(cols []Column, values []any) (*Row, error) {
	if len(values) != len(cols) {
		return nil, dberr.Data("row has %d values for %d columns", len(values), len(cols))
	}

	canon := make([]any, len(values))
	for i, col := range cols {
		v, err := Coerce(col, values[i])
		if err != nil {
			return nil, err
		}
		canon[i] = v
	}

	r := &Row{Columns: cols, Values: canon}
	r.InstanceHash = r.hashKey()
	return r, nil
}

// WithValues returns a new Row over the same columns.
func (r *Row) WithValues(values []any) (*Row, error) {
	return NewRow(r.Columns, values)
}

// Value returns the value of a named column.
func (r *Row) Value(name string) (any, bool) {
	for i := range r.Columns {
		if r.Columns[i].Name == name {
			return r.Values[i], true
		}
	}
	return nil, false
}

// IndexedValues returns the indexed-column name to string-value map used for
// partitioning.
func (r *Row) IndexedValues() map[string]string {
	out := make(map[string]string)
	for i, col := range r.Columns {
		if col.Indexed {
			out[col.Name] = FormatValue(r.Values[i])
		}
	}
	return out
}

// Raw returns the cached serialized form, nil until the codec sets it.
func (r *Row) Raw() []byte { return r.raw }

// SetRaw caches the serialized form. The codec owns this.
func (r *Row) SetRaw(b []byte) { r.raw = b }

func (r *Row) hashKey() string {
	keyed := make(map[string]string)
	for i, col := range r.Columns {
		if col.Indexed {
			keyed[col.Name] = FormatValue(r.Values[i])
		}
	}
	if len(keyed) == 0 {
		for i, col := range r.Columns {
			if col.PrimaryKey {
				keyed[col.Name] = FormatValue(r.Values[i])
			}
		}
	}
	return InstanceHash(keyed)
}
