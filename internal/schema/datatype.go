package schema

import (
	"strings"

	"github.com/tuannm99/cellstore/internal/dberr"
)

// DataType enumerates the column types the row codec can encode.
type DataType uint8

const (
	SmallInt DataType = iota + 1 // int16, 2 bytes
	Int                          // int32, 4 bytes
	BigInt                       // int64, 8 bytes
	Float                        // float64, 8 bytes
	Boolean                      // 1 byte
	Varchar                      // u32 length + UTF-8
	Text                         // same encoding as Varchar
)

func (d DataType) String() string {
	switch d {
	case SmallInt:
		return "SMALLINT"
	case Int:
		return "INT"
	case BigInt:
		return "BIGINT"
	case Float:
		return "FLOAT"
	case Boolean:
		return "BOOLEAN"
	case Varchar:
		return "VARCHAR"
	case Text:
		return "TEXT"
	default:
		return "UNKNOWN"
	}
}

// ParseDataType maps a DSL type keyword to a DataType.
func ParseDataType(s string) (DataType, error) {
	switch strings.ToUpper(s) {
	case "SMALLINT":
		return SmallInt, nil
	case "INT", "INTEGER":
		return Int, nil
	case "BIGINT":
		return BigInt, nil
	case "FLOAT", "DOUBLE":
		return Float, nil
	case "BOOLEAN", "BOOL":
		return Boolean, nil
	case "VARCHAR":
		return Varchar, nil
	case "TEXT":
		return Text, nil
	default:
		return 0, dberr.Data("unknown data type %q", s)
	}
}
