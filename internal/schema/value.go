package schema

import (
	"fmt"
	"math"
	"strconv"

	"github.com/tuannm99/cellstore/internal/dberr"
)

// Coerce normalizes a value to the canonical Go representation of the
// column's type (int16/int32/int64/float64/bool/string). nil is accepted only
// for nullable columns.
func Coerce(col Column, v any) (any, error) {
	if v == nil {
		if !col.Nullable {
			return nil, dberr.Data("column %s is NOT NULL", col.Name)
		}
		return nil, nil
	}

	switch col.Type {
	case SmallInt:
		x, ok := asInt64(v)
		if !ok || x < math.MinInt16 || x > math.MaxInt16 {
			return nil, dberr.Data("column %s expects SMALLINT, got %v (%T)", col.Name, v, v)
		}
		return int16(x), nil
	case Int:
		x, ok := asInt64(v)
		if !ok || x < math.MinInt32 || x > math.MaxInt32 {
			return nil, dberr.Data("column %s expects INT, got %v (%T)", col.Name, v, v)
		}
		return int32(x), nil
	case BigInt:
		x, ok := asInt64(v)
		if !ok {
			return nil, dberr.Data("column %s expects BIGINT, got %T", col.Name, v)
		}
		return x, nil
	case Float:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case int:
			return float64(x), nil
		}
		return nil, dberr.Data("column %s expects FLOAT, got %T", col.Name, v)
	case Boolean:
		x, ok := v.(bool)
		if !ok {
			return nil, dberr.Data("column %s expects BOOLEAN, got %T", col.Name, v)
		}
		return x, nil
	case Varchar, Text:
		x, ok := v.(string)
		if !ok {
			return nil, dberr.Data("column %s expects %s, got %T", col.Name, col.Type, v)
		}
		return x, nil
	default:
		return nil, dberr.Data("column %s: unsupported type %v", col.Name, col.Type)
	}
}

// ParseLiteral converts a DSL literal token to the column's value type.
func ParseLiteral(col Column, raw string) (any, error) {
	if raw == "NULL" || raw == "null" {
		return Coerce(col, nil)
	}
	switch col.Type {
	case SmallInt, Int, BigInt:
		x, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, dberr.Data("column %s: bad integer literal %q", col.Name, raw)
		}
		return Coerce(col, x)
	case Float:
		x, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, dberr.Data("column %s: bad float literal %q", col.Name, raw)
		}
		return Coerce(col, x)
	case Boolean:
		x, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, dberr.Data("column %s: bad boolean literal %q", col.Name, raw)
		}
		return Coerce(col, x)
	case Varchar, Text:
		return raw, nil
	default:
		return nil, dberr.Data("column %s: unsupported type %v", col.Name, col.Type)
	}
}

// FormatValue renders a value as the canonical string used for instance
// hashing. Must stay stable across releases.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case int16:
		return strconv.FormatInt(int64(x), 10)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.FormatInt(int64(x), 10)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case string:
		return x
	default:
		return fmt.Sprintf("%v", x)
	}
}

// CompareValues orders two canonical values of the same column type.
// Returns <0, 0, >0. nil sorts before everything.
func CompareValues(a, b any) (int, bool) {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0, true
		case a == nil:
			return -1, true
		default:
			return 1, true
		}
	}

	if ai, ok := asInt64(a); ok {
		bi, ok := asInt64(b)
		if !ok {
			return 0, false
		}
		switch {
		case ai < bi:
			return -1, true
		case ai > bi:
			return 1, true
		default:
			return 0, true
		}
	}

	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case av == bv:
			return 0, true
		case !av:
			return -1, true
		default:
			return 1, true
		}
	}
	return 0, false
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int32:
		return int64(x), true
	case int16:
		return int64(x), true
	case int:
		return int64(x), true
	}
	return 0, false
}
