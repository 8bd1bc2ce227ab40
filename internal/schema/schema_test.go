package schema

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func col(t *testing.T, name string, dt DataType, pk, idx, nullable bool) Column {
	t.Helper()
	c, err := NewColumn(name, dt, pk, idx, nullable)
	require.NoError(t, err)
	return c
}

func TestNewColumn_EmptyNameRejected(t *testing.T) {
	_, err := NewColumn("", Int, false, false, true)
	require.Error(t, err)
}

func TestNewColumn_PrimaryKeyForcesNotNull(t *testing.T) {
	c, err := NewColumn("id", Int, true, false, true)
	require.NoError(t, err)
	require.False(t, c.Nullable)
}

func TestNewModule_RequiresIndexColumn(t *testing.T) {
	_, err := NewModule("sensor", []Column{
		col(t, "id", Int, true, false, false),
	})
	require.Error(t, err)

	m, err := NewModule("sensor", []Column{
		col(t, "id", Int, true, true, false),
		col(t, "region", Varchar, false, false, true),
	})
	require.NoError(t, err)
	require.Len(t, m.IndexColumns(), 1)
	require.Equal(t, 1, m.Version)
}

func TestModule_TableLookup(t *testing.T) {
	m, err := NewModule("sensor", []Column{col(t, "id", Int, false, true, false)})
	require.NoError(t, err)

	tab, err := NewTable("readings", []Column{col(t, "v", Int, false, false, false)})
	require.NoError(t, err)
	m.Tables = append(m.Tables, tab)

	got, ok := m.Table("readings")
	require.True(t, ok)
	require.Equal(t, "readings", got.Name)

	_, ok = m.Table("missing")
	require.False(t, ok)
}

func TestInstanceHash_Deterministic(t *testing.T) {
	a := InstanceHash(map[string]string{"id": "1", "region": "eu"})
	b := InstanceHash(map[string]string{"region": "eu", "id": "1"})
	require.Equal(t, a, b)
	require.Len(t, a, 64)

	c := InstanceHash(map[string]string{"id": "2", "region": "eu"})
	require.NotEqual(t, a, c)
}

func TestNewRow_CoercesAndHashes(t *testing.T) {
	cols := []Column{
		col(t, "id", Int, false, true, false),
		col(t, "region", Varchar, false, false, true),
	}
	r, err := NewRow(cols, []any{int64(7), "eu"})
	require.NoError(t, err)
	require.Equal(t, int32(7), r.Values[0])
	require.Equal(t, InstanceHash(map[string]string{"id": "7"}), r.InstanceHash)
	require.Equal(t, map[string]string{"id": "7"}, r.IndexedValues())
}

func TestNewRow_HashFallsBackToPrimaryKey(t *testing.T) {
	cols := []Column{
		col(t, "id", BigInt, true, false, false),
		col(t, "v", Int, false, false, true),
	}
	r, err := NewRow(cols, []any{int64(3), nil})
	require.NoError(t, err)
	require.Equal(t, InstanceHash(map[string]string{"id": "3"}), r.InstanceHash)
}

func TestNewRow_NullInNotNullRejected(t *testing.T) {
	cols := []Column{col(t, "id", Int, false, true, false)}
	_, err := NewRow(cols, []any{nil})
	require.Error(t, err)
}

func TestCoerce_RangeChecks(t *testing.T) {
	small := col(t, "s", SmallInt, false, false, false)
	v, err := Coerce(small, int64(300))
	require.NoError(t, err)
	require.Equal(t, int16(300), v)

	_, err = Coerce(small, int64(1<<20))
	require.Error(t, err)

	intCol := col(t, "i", Int, false, false, false)
	_, err = Coerce(intCol, int64(1)<<40)
	require.Error(t, err)

	_, err = Coerce(intCol, "nope")
	require.Error(t, err)
}

func TestParseLiteral(t *testing.T) {
	intCol := col(t, "i", Int, false, false, false)
	v, err := ParseLiteral(intCol, "42")
	require.NoError(t, err)
	require.Equal(t, int32(42), v)

	_, err = ParseLiteral(intCol, "forty")
	require.Error(t, err)

	boolCol := col(t, "b", Boolean, false, false, false)
	v, err = ParseLiteral(boolCol, "true")
	require.NoError(t, err)
	require.Equal(t, true, v)

	strCol := col(t, "s", Text, false, false, false)
	v, err = ParseLiteral(strCol, "hello world")
	require.NoError(t, err)
	require.Equal(t, "hello world", v)

	nullable := col(t, "n", Int, false, false, true)
	v, err = ParseLiteral(nullable, "NULL")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestFormatValue_Canonical(t *testing.T) {
	require.Equal(t, "1", FormatValue(int32(1)))
	require.Equal(t, "1", FormatValue(int64(1)))
	require.Equal(t, "NULL", FormatValue(nil))
	require.Equal(t, "true", FormatValue(true))
	require.Equal(t, "1.5", FormatValue(1.5))
}

func TestCompareValues(t *testing.T) {
	cmp, ok := CompareValues(int32(1), int64(2))
	require.True(t, ok)
	require.Negative(t, cmp)

	cmp, ok = CompareValues("b", "a")
	require.True(t, ok)
	require.Positive(t, cmp)

	cmp, ok = CompareValues(nil, int32(0))
	require.True(t, ok)
	require.Negative(t, cmp)

	_, ok = CompareValues("a", int32(1))
	require.False(t, ok)
}
