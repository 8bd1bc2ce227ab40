package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/cellstore/internal/schema"
)

func mkCol(t *testing.T, name string, dt schema.DataType, nullable bool) schema.Column {
	t.Helper()
	c, err := schema.NewColumn(name, dt, false, false, nullable)
	require.NoError(t, err)
	return c
}

func TestRowCodec_RoundTripAllTypes(t *testing.T) {
	cols := []schema.Column{
		mkCol(t, "a", schema.SmallInt, false),
		mkCol(t, "b", schema.Int, false),
		mkCol(t, "c", schema.BigInt, false),
		mkCol(t, "d", schema.Float, false),
		mkCol(t, "e", schema.Boolean, false),
		mkCol(t, "f", schema.Varchar, false),
		mkCol(t, "g", schema.Text, false),
	}
	values := []any{int16(-3), int32(70000), int64(1) << 40, 3.25, true, "héllo", ""}

	buf, err := EncodeRow(cols, values)
	require.NoError(t, err)

	got, err := DecodeRow(cols, buf)
	require.NoError(t, err)
	require.Equal(t, values, got)
}

func TestRowCodec_NoBitmapWhenNothingNullable(t *testing.T) {
	cols := []schema.Column{mkCol(t, "a", schema.Boolean, false)}
	buf, err := EncodeRow(cols, []any{true})
	require.NoError(t, err)
	require.Len(t, buf, 1)
}

func TestRowCodec_NullBitmap(t *testing.T) {
	cols := []schema.Column{
		mkCol(t, "a", schema.Int, false),
		mkCol(t, "b", schema.Varchar, true),
		mkCol(t, "c", schema.Int, true),
	}
	values := []any{int32(5), nil, int32(9)}

	buf, err := EncodeRow(cols, values)
	require.NoError(t, err)
	// bitmap(1) + int32(4) + int32(4), the NULL consumes no value bytes
	require.Len(t, buf, 9)

	got, err := DecodeRow(cols, buf)
	require.NoError(t, err)
	require.Equal(t, values, got)
}

func TestRowCodec_NullInNotNullColumn(t *testing.T) {
	cols := []schema.Column{
		mkCol(t, "a", schema.Int, false),
		mkCol(t, "b", schema.Int, true),
	}
	_, err := EncodeRow(cols, []any{nil, int32(1)})
	require.Error(t, err)
}

func TestRowCodec_TruncatedAndTrailing(t *testing.T) {
	cols := []schema.Column{mkCol(t, "a", schema.BigInt, false)}

	_, err := DecodeRow(cols, []byte{1, 2, 3})
	require.Error(t, err)

	buf, err := EncodeRow(cols, []any{int64(1)})
	require.NoError(t, err)
	_, err = DecodeRow(cols, append(buf, 0xFF))
	require.Error(t, err)
}

func TestLogRecord_RoundTrip(t *testing.T) {
	rec := LogRecord{ID: 42, Timestamp: 12345, Tuple: []byte("payload")}
	encoded := EncodeLogRecord(rec)
	require.Equal(t, rec.EncodedSize(), int64(len(encoded)))

	got, err := ReadLogRecord(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Equal(t, rec, *got)
}

func TestLogRecord_Tombstone(t *testing.T) {
	rec := LogRecord{ID: 7, Deleted: true, Timestamp: 1}
	got, err := ReadLogRecord(bytes.NewReader(EncodeLogRecord(rec)))
	require.NoError(t, err)
	require.True(t, got.Deleted)
	require.Empty(t, got.Tuple)
}

func TestLogRecord_TornTailIsEndOfData(t *testing.T) {
	full := EncodeLogRecord(LogRecord{ID: 1, Timestamp: 1, Tuple: []byte("x")})
	torn := append(append([]byte{}, full...), full[:5]...)

	r := bytes.NewReader(torn)
	first, err := ReadLogRecord(r)
	require.NoError(t, err)
	require.EqualValues(t, 1, first.ID)

	second, err := ReadLogRecord(r)
	require.NoError(t, err)
	require.Nil(t, second)
}

func TestSparseHeader_RoundTrip(t *testing.T) {
	h := SparseHeader{
		Version:      SparseVersion,
		Module:       "sensor",
		Table:        "readings",
		InstanceHash: "abc123",
		Segment:      4,
	}
	got, err := ReadSparseHeader(bytes.NewReader(EncodeSparseHeader(h)))
	require.NoError(t, err)
	require.Equal(t, h, *got)
}

func TestSparseEntry_RoundTripAndTornTail(t *testing.T) {
	e := SparseEntry{Version: SparseVersion, Key: 100, Offset: 4096}
	encoded := EncodeSparseEntry(e)
	require.Len(t, encoded, SparseEntrySize)

	got, err := ReadSparseEntry(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Equal(t, e, *got)

	got, err = ReadSparseEntry(bytes.NewReader(encoded[:10]))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestBlob_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBlob(&buf, []byte(`{"k":"v"}`)))

	payload, err := ReadBlob(&buf)
	require.NoError(t, err)
	require.Equal(t, []byte(`{"k":"v"}`), payload)
}

func TestBlob_ShortPayloadRejected(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBlob(&buf, []byte("full payload")))
	trimmed := buf.Bytes()[:buf.Len()-3]

	_, err := ReadBlob(bytes.NewReader(trimmed))
	require.Error(t, err)
}
