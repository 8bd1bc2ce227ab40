// Package codec implements the fixed binary layouts of the engine: row
// tuples, log records, sparse index headers/entries and length-prefixed
// blobs. All integers are little-endian. Corrupt or truncated input decodes
// to a DataError, never a panic.
package codec

import (
	"math"

	"github.com/tuannm99/cellstore/internal/alias/bx"
	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/schema"
)

// EncodeRow writes values in schema order.
// Layout: [nullmap: ceil(N/8) bytes, bit=1 => NULL, present only when some
// column is nullable] | [field0] [field1] ...
// SMALLINT=2, INT=4, BIGINT=8, FLOAT=8, BOOLEAN=1, VARCHAR/TEXT=u32 len + UTF-8.
func EncodeRow(cols []schema.Column, values []any) ([]byte, error) {
	if len(values) != len(cols) {
		return nil, dberr.Data("rowcodec: %d values for %d columns", len(values), len(cols))
	}

	var out []byte
	withNulls := anyNullable(cols)
	if withNulls {
		out = make([]byte, (len(cols)+7)/8)
	}

	for i, col := range cols {
		v := values[i]
		if v == nil {
			if !withNulls || !col.Nullable {
				return nil, dberr.Data("rowcodec: NULL in non-nullable column %s", col.Name)
			}
			out[i/8] |= 1 << (uint(i) & 7)
			continue
		}

		switch col.Type {
		case schema.SmallInt:
			x, ok := v.(int16)
			if !ok {
				return nil, typeMismatch(col, v)
			}
			out = bx.AppendI16(out, x)
		case schema.Int:
			x, ok := v.(int32)
			if !ok {
				return nil, typeMismatch(col, v)
			}
			out = bx.AppendI32(out, x)
		case schema.BigInt:
			x, ok := v.(int64)
			if !ok {
				return nil, typeMismatch(col, v)
			}
			out = bx.AppendI64(out, x)
		case schema.Float:
			x, ok := v.(float64)
			if !ok {
				return nil, typeMismatch(col, v)
			}
			out = bx.AppendU64(out, math.Float64bits(x))
		case schema.Boolean:
			x, ok := v.(bool)
			if !ok {
				return nil, typeMismatch(col, v)
			}
			if x {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		case schema.Varchar, schema.Text:
			x, ok := v.(string)
			if !ok {
				return nil, typeMismatch(col, v)
			}
			out = bx.AppendU32(out, uint32(len(x)))
			out = append(out, x...)
		default:
			return nil, dberr.Data("rowcodec: unknown type %v on column %s", col.Type, col.Name)
		}
	}
	return out, nil
}

// DecodeRow re-walks the schema over buf. A byte-count mismatch or unknown
// type is a DataError.
func DecodeRow(cols []schema.Column, buf []byte) ([]any, error) {
	i := 0
	var nullmap []byte
	if anyNullable(cols) {
		nb := (len(cols) + 7) / 8
		if len(buf) < nb {
			return nil, dberr.Data("rowcodec: truncated null bitmap")
		}
		nullmap = buf[:nb]
		i = nb
	}

	out := make([]any, len(cols))
	for ci, col := range cols {
		if nullmap != nil && (nullmap[ci/8]>>(uint(ci)&7))&1 == 1 {
			out[ci] = nil
			continue
		}

		switch col.Type {
		case schema.SmallInt:
			if i+2 > len(buf) {
				return nil, truncated(col)
			}
			out[ci] = bx.I16(buf[i:])
			i += 2
		case schema.Int:
			if i+4 > len(buf) {
				return nil, truncated(col)
			}
			out[ci] = bx.I32(buf[i:])
			i += 4
		case schema.BigInt:
			if i+8 > len(buf) {
				return nil, truncated(col)
			}
			out[ci] = bx.I64(buf[i:])
			i += 8
		case schema.Float:
			if i+8 > len(buf) {
				return nil, truncated(col)
			}
			out[ci] = math.Float64frombits(bx.U64(buf[i:]))
			i += 8
		case schema.Boolean:
			if i+1 > len(buf) {
				return nil, truncated(col)
			}
			out[ci] = buf[i] != 0
			i++
		case schema.Varchar, schema.Text:
			if i+4 > len(buf) {
				return nil, truncated(col)
			}
			l := int(bx.U32(buf[i:]))
			i += 4
			if i+l > len(buf) {
				return nil, truncated(col)
			}
			out[ci] = string(buf[i : i+l])
			i += l
		default:
			return nil, dberr.Data("rowcodec: unknown type %v on column %s", col.Type, col.Name)
		}
	}

	if i != len(buf) {
		return nil, dberr.Data("rowcodec: %d trailing bytes after row", len(buf)-i)
	}
	return out, nil
}

// EncodeRowCached encodes the row and caches the bytes on it.
func EncodeRowCached(r *schema.Row) ([]byte, error) {
	if b := r.Raw(); b != nil {
		return b, nil
	}
	b, err := EncodeRow(r.Columns, r.Values)
	if err != nil {
		return nil, err
	}
	r.SetRaw(b)
	return b, nil
}

func anyNullable(cols []schema.Column) bool {
	for _, c := range cols {
		if c.Nullable {
			return true
		}
	}
	return false
}

func typeMismatch(col schema.Column, v any) error {
	return dberr.Data("rowcodec: column %s (%s) cannot encode %T", col.Name, col.Type, v)
}

func truncated(col schema.Column) error {
	return dberr.Data("rowcodec: truncated value for column %s", col.Name)
}
