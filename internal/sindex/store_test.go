package sindex

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyOf_IntOrderMatchesByteOrder(t *testing.T) {
	ids := []int64{-1 << 40, -5, -1, 0, 1, 5, 1 << 40}
	for i := 1; i < len(ids); i++ {
		a := Int64Key(ids[i-1])
		b := Int64Key(ids[i])
		require.Negative(t, Compare(a, b), "key order for %d < %d", ids[i-1], ids[i])
	}
}

func TestKeyOf_RoundTripAndTypes(t *testing.T) {
	k := Int64Key(-42)
	id, ok := KeyToInt64(k)
	require.True(t, ok)
	require.EqualValues(t, -42, id)

	k32, err := KeyOf(int32(7))
	require.NoError(t, err)
	require.Equal(t, Int64Key(7), k32)

	ks, err := KeyOf("hash")
	require.NoError(t, err)
	require.Equal(t, Key("hash"), ks)

	_, err = KeyOf(3.14)
	require.Error(t, err)

	_, ok = KeyToInt64(Key("short"))
	require.False(t, ok)
}

func TestStore_InsertSearchDelete(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "keys.sdx"))

	for _, id := range []int64{5, 1, 3} {
		require.NoError(t, s.Insert(Int64Key(id), Location{LogID: id}))
	}

	loc, found, err := s.Search(Int64Key(3))
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 3, loc.LogID)

	_, found, err = s.Search(Int64Key(4))
	require.NoError(t, err)
	require.False(t, found)

	require.NoError(t, s.Delete(Int64Key(3)))
	_, found, err = s.Search(Int64Key(3))
	require.NoError(t, err)
	require.False(t, found)

	// deleting an absent key is a no-op
	require.NoError(t, s.Delete(Int64Key(99)))

	n, err := s.Len()
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestStore_InsertUpserts(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "keys.sdx"))
	require.NoError(t, s.Insert(Int64Key(1), Location{Segment: 1, Offset: 0}))
	require.NoError(t, s.Insert(Int64Key(1), Location{Segment: 2, Offset: 128}))

	loc, found, err := s.Search(Int64Key(1))
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 2, loc.Segment)
	require.EqualValues(t, 128, loc.Offset)

	n, err := s.Len()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys.sdx")

	s := Open(path)
	require.NoError(t, s.BulkInsert(
		[]Key{Int64Key(2), Int64Key(1)},
		[]Location{{LogID: 2}, {LogID: 1}},
	))

	reopened := Open(path)
	loc, found, err := reopened.Search(Int64Key(1))
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 1, loc.LogID)

	k, _, ok, err := reopened.LastKey()
	require.NoError(t, err)
	require.True(t, ok)
	id, _ := KeyToInt64(k)
	require.EqualValues(t, 2, id)
}

func TestStore_NextInt64Key(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "keys.sdx"))

	next, err := s.NextInt64Key()
	require.NoError(t, err)
	require.EqualValues(t, 1, next)

	require.NoError(t, s.Insert(Int64Key(7), Location{LogID: 7}))
	next, err = s.NextInt64Key()
	require.NoError(t, err)
	require.EqualValues(t, 8, next)
}

func TestStore_BulkInsertLengthMismatch(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "keys.sdx"))
	err := s.BulkInsert([]Key{Int64Key(1)}, nil)
	require.Error(t, err)
}

func TestStore_MissingFileIsEmpty(t *testing.T) {
	s := Open(filepath.Join(t.TempDir(), "absent.sdx"))
	n, err := s.Len()
	require.NoError(t, err)
	require.Zero(t, n)
}
