package wal

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/cellstore/internal/codec"
)

var part = PartitionID{Module: "sensor", Table: "readings", Hash: "h1"}

func rec(id int64, tuple string) codec.LogRecord {
	return codec.LogRecord{ID: id, Timestamp: id, Tuple: []byte(tuple)}
}

func tomb(id int64) codec.LogRecord {
	return codec.LogRecord{ID: id, Deleted: true, Timestamp: id}
}

func TestBuffer_LatestShadowsEarlierWrites(t *testing.T) {
	b := NewBuffer()
	b.Append(part, rec(1, "v1"))
	b.Append(part, rec(1, "v2"))

	got, ok := b.Latest(part, 1)
	require.True(t, ok)
	require.Equal(t, []byte("v2"), got.Tuple)

	_, ok = b.Latest(part, 2)
	require.False(t, ok)
}

func TestBuffer_MaxID(t *testing.T) {
	b := NewBuffer()
	_, ok := b.MaxID(part)
	require.False(t, ok)

	b.Append(part, rec(3, "a"))
	b.Append(part, rec(1, "b"))

	max, ok := b.MaxID(part)
	require.True(t, ok)
	require.EqualValues(t, 3, max)
}

func TestBuffer_CondenseLastWriteWins(t *testing.T) {
	b := NewBuffer()
	b.Append(part, rec(2, "two"))
	b.Append(part, rec(1, "one"))
	b.Append(part, rec(2, "two-prime"))

	out := b.Condense(part)
	require.Len(t, out, 2)
	require.EqualValues(t, 1, out[0].ID)
	require.EqualValues(t, 2, out[1].ID)
	require.Equal(t, []byte("two-prime"), out[1].Tuple)
}

func TestBuffer_CondenseTombstoneSuppressesLaterWrites(t *testing.T) {
	b := NewBuffer()
	b.Append(part, rec(1, "before"))
	b.Append(part, tomb(1))
	b.Append(part, rec(1, "after"))

	out := b.Condense(part)
	require.Len(t, out, 1)
	require.True(t, out[0].Deleted)
}

func TestBuffer_CondenseTombstoneReplacesEarlierWrite(t *testing.T) {
	b := NewBuffer()
	b.Append(part, rec(1, "v"))
	b.Append(part, rec(2, "keep"))
	b.Append(part, tomb(1))

	out := b.Condense(part)
	require.Len(t, out, 2)
	require.True(t, out[0].Deleted)
	require.False(t, out[1].Deleted)
}

func TestBuffer_PartitionsFirstTouchOrder(t *testing.T) {
	other := PartitionID{Module: "sensor", Table: "readings", Hash: "h2"}

	b := NewBuffer()
	b.Append(other, rec(1, "x"))
	b.Append(part, rec(1, "y"))
	b.Append(other, rec(2, "z"))

	require.Equal(t, []PartitionID{other, part}, b.Partitions())
}

func TestBuffer_DropAndReset(t *testing.T) {
	other := PartitionID{Module: "m", Table: "t", Hash: "h"}

	b := NewBuffer()
	b.Append(part, rec(1, "a"))
	b.Append(other, rec(1, "b"))
	require.False(t, b.Empty())

	b.Drop(part)
	require.Equal(t, []PartitionID{other}, b.Partitions())

	b.Reset()
	require.True(t, b.Empty())
	require.Empty(t, b.Partitions())
}
