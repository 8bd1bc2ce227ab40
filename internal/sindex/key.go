// Package sindex is the secondary index: a persistent ordered key→location
// map, one store per partition file. Keys of mixed primitive types are
// normalized to byte strings; ordering is bytewise lexicographic with a
// shorter prefix sorting first.
package sindex

import (
	"bytes"

	"github.com/tuannm99/cellstore/internal/alias/bx"
	"github.com/tuannm99/cellstore/internal/dberr"
)

// Key is the normalized byte form of an index key.
type Key []byte

// KeyOf normalizes a primitive to its sortable byte form. Integers are
// big-endian with the sign bit flipped so numeric order matches byte order.
func KeyOf(v any) (Key, error) {
	switch x := v.(type) {
	case int64:
		var b [8]byte
		bx.PutU64BE(b[:], uint64(x)^(1<<63))
		return b[:], nil
	case int32:
		return KeyOf(int64(x))
	case int16:
		return KeyOf(int64(x))
	case int:
		return KeyOf(int64(x))
	case string:
		return Key(x), nil
	case []byte:
		k := make(Key, len(x))
		copy(k, x)
		return k, nil
	default:
		return nil, dberr.Data("sindex: unsupported key type %T", v)
	}
}

// Int64Key normalizes a log id.
func Int64Key(id int64) Key {
	k, _ := KeyOf(id)
	return k
}

// KeyToInt64 reverses Int64Key.
func KeyToInt64(k Key) (int64, bool) {
	if len(k) != 8 {
		return 0, false
	}
	return int64(bx.U64BE(k) ^ (1 << 63)), true
}

// Compare orders two keys bytewise; a shorter prefix sorts first, equal
// prefixes order by length.
func Compare(a, b Key) int {
	return bytes.Compare(a, b)
}
