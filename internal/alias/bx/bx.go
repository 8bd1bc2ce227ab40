// stand for bytes helper
package bx

import "encoding/binary"

var (
	LE = binary.LittleEndian
	BE = binary.BigEndian
)

// --- LE: read ---
func U16(b []byte) uint16 { return LE.Uint16(b) }
func U32(b []byte) uint32 { return LE.Uint32(b) }
func U64(b []byte) uint64 { return LE.Uint64(b) }
func I16(b []byte) int16  { return int16(U16(b)) }
func I32(b []byte) int32  { return int32(U32(b)) }
func I64(b []byte) int64  { return int64(U64(b)) }

// --- LE: write ---
func PutU16(b []byte, v uint16) { LE.PutUint16(b, v) }
func PutU32(b []byte, v uint32) { LE.PutUint32(b, v) }
func PutU64(b []byte, v uint64) { LE.PutUint64(b, v) }
func PutI16(b []byte, v int16)  { PutU16(b, uint16(v)) }
func PutI32(b []byte, v int32)  { PutU32(b, uint32(v)) }
func PutI64(b []byte, v int64)  { PutU64(b, uint64(v)) }

// --- LE: append ---
func AppendU16(b []byte, v uint16) []byte {
	var s [2]byte
	PutU16(s[:], v)
	return append(b, s[:]...)
}

func AppendU32(b []byte, v uint32) []byte {
	var s [4]byte
	PutU32(s[:], v)
	return append(b, s[:]...)
}

func AppendU64(b []byte, v uint64) []byte {
	var s [8]byte
	PutU64(s[:], v)
	return append(b, s[:]...)
}

func AppendI16(b []byte, v int16) []byte { return AppendU16(b, uint16(v)) }
func AppendI32(b []byte, v int32) []byte { return AppendU32(b, uint32(v)) }
func AppendI64(b []byte, v int64) []byte { return AppendU64(b, uint64(v)) }

// --- BE (key/index sortable, wire frame headers) ---
func U32BE(b []byte) uint32       { return BE.Uint32(b) }
func U64BE(b []byte) uint64       { return BE.Uint64(b) }
func PutU32BE(b []byte, v uint32) { BE.PutUint32(b, v) }
func PutU64BE(b []byte, v uint64) { BE.PutUint64(b, v) }

func AppendU32BE(b []byte, v uint32) []byte {
	var s [4]byte
	PutU32BE(s[:], v)
	return append(b, s[:]...)
}
