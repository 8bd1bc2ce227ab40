package cellstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/session"
	"github.com/tuannm99/cellstore/internal/sql/statement"
)

func newEngine(t *testing.T) (*Engine, *session.Session) {
	t.Helper()
	e, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e, e.NewSession()
}

func exec(t *testing.T, e *Engine, s *session.Session, text string) []*statement.Result {
	t.Helper()
	results, err := e.Execute(s, text)
	require.NoError(t, err, "statement: %s", text)
	return results
}

func rows(t *testing.T, res *statement.Result) [][]any {
	t.Helper()
	out, err := statement.Collect(res)
	require.NoError(t, err)
	return out
}

func setupSensor(t *testing.T, e *Engine, s *session.Session) {
	t.Helper()
	exec(t, e, s, "CREATE DATABASE app")
	exec(t, e, s, "USE app")
	exec(t, e, s, "CREATE MODULE sensor (id INT INDEX, region VARCHAR)")
	exec(t, e, s, "CREATE TABLE sensor.readings (rid INT PRIMARY KEY, amount INT)")
	exec(t, e, s, "INSERT CELL sensor (id, region) VALUES (1, 'eu')")
}

func TestEngine_RequiresDatabaseSelection(t *testing.T) {
	e, s := newEngine(t)
	exec(t, e, s, "CREATE DATABASE app")

	_, err := e.Execute(s, "CREATE MODULE sensor (id INT INDEX)")
	require.Error(t, err)
	require.True(t, errors.Is(err, dberr.ErrState))

	_, err = e.Execute(s, "USE ghost")
	require.True(t, errors.Is(err, dberr.ErrData))
}

func TestEngine_WriteAndIndexedRead(t *testing.T) {
	e, s := newEngine(t)
	setupSensor(t, e, s)

	exec(t, e, s, "INSERT INTO sensor.readings USING (id=1) (rid, amount) VALUES (1, 50)")

	res := exec(t, e, s, "SELECT * FROM sensor.readings USING (id=1)")
	require.Equal(t, []string{"rid", "amount"}, res[0].Columns)
	require.Equal(t, [][]any{{int32(1), int32(50)}}, rows(t, res[0]))
}

func TestEngine_WhereFilterAndProjection(t *testing.T) {
	e, s := newEngine(t)
	setupSensor(t, e, s)

	exec(t, e, s, "INSERT INTO sensor.readings USING (id=1) (rid, amount) VALUES (1, 50)")
	exec(t, e, s, "INSERT INTO sensor.readings USING (id=1) (rid, amount) VALUES (2, 100)")

	res := exec(t, e, s, "SELECT rid FROM sensor.readings USING (id=1) WHERE amount > 75")
	require.Equal(t, []string{"rid"}, res[0].Columns)
	require.Equal(t, [][]any{{int32(2)}}, rows(t, res[0]))

	res = exec(t, e, s, "SELECT rid FROM sensor.readings USING (id=1) WHERE amount > 200")
	require.Empty(t, rows(t, res[0]))
}

func TestEngine_ScanPathResolvesByInstanceValues(t *testing.T) {
	e, s := newEngine(t)
	setupSensor(t, e, s)
	exec(t, e, s, "INSERT CELL sensor (id, region) VALUES (2, 'us')")

	// region is not part of the instance key, so this resolves by
	// enumerating instances rather than hashing the clause
	exec(t, e, s, "INSERT INTO sensor.readings USING (region='eu') (rid, amount) VALUES (1, 10)")

	res := exec(t, e, s, "SELECT * FROM sensor.readings USING (region='eu')")
	require.Len(t, rows(t, res[0]), 1)

	res = exec(t, e, s, "SELECT * FROM sensor.readings USING (region='us')")
	require.Empty(t, rows(t, res[0]))

	// non-equality operators never match on the scan path
	res = exec(t, e, s, "SELECT * FROM sensor.readings USING (region!='us')")
	require.Empty(t, rows(t, res[0]))
}

func TestEngine_SelectFromCell(t *testing.T) {
	e, s := newEngine(t)
	setupSensor(t, e, s)
	exec(t, e, s, "INSERT CELL sensor (id, region) VALUES (2, 'us')")

	res := exec(t, e, s, "SELECT * FROM CELL sensor")
	got := rows(t, res[0])
	require.Len(t, got, 2)
	require.ElementsMatch(t, got, [][]any{{int32(1), "eu"}, {int32(2), "us"}})

	res = exec(t, e, s, "SELECT region FROM CELL sensor WHERE id = 2")
	require.Equal(t, [][]any{{"us"}}, rows(t, res[0]))
}

func TestEngine_DuplicateInstanceRejected(t *testing.T) {
	e, s := newEngine(t)
	setupSensor(t, e, s)

	_, err := e.Execute(s, "INSERT CELL sensor (id, region) VALUES (1, 'us')")
	require.True(t, errors.Is(err, dberr.ErrData))
}

func TestEngine_Delete(t *testing.T) {
	e, s := newEngine(t)
	setupSensor(t, e, s)
	exec(t, e, s, "INSERT INTO sensor.readings USING (id=1) (rid, amount) VALUES (1, 50)")
	exec(t, e, s, "INSERT INTO sensor.readings USING (id=1) (rid, amount) VALUES (2, 100)")

	res := exec(t, e, s, "DELETE FROM sensor.readings USING (id=1) WHERE rid = 2")
	require.Equal(t, 1, res[0].RowCount)

	sel := exec(t, e, s, "SELECT * FROM sensor.readings USING (id=1)")
	require.Equal(t, [][]any{{int32(1), int32(50)}}, rows(t, sel[0]))

	res = exec(t, e, s, "DELETE FROM sensor.readings")
	require.Equal(t, 1, res[0].RowCount)
	sel = exec(t, e, s, "SELECT * FROM sensor.readings USING (id=1)")
	require.Empty(t, rows(t, sel[0]))
}

func TestEngine_TransactionRollbackAndCommit(t *testing.T) {
	e, s := newEngine(t)
	setupSensor(t, e, s)
	exec(t, e, s, "INSERT INTO sensor.readings USING (id=1) (rid, amount) VALUES (1, 50)")

	exec(t, e, s, "BEGIN")
	exec(t, e, s, "INSERT INTO sensor.readings USING (id=1) (rid, amount) VALUES (2, 60)")
	exec(t, e, s, "ROLLBACK")

	res := exec(t, e, s, "SELECT * FROM sensor.readings USING (id=1)")
	require.Len(t, rows(t, res[0]), 1)

	exec(t, e, s, "BEGIN")
	exec(t, e, s, "INSERT INTO sensor.readings USING (id=1) (rid, amount) VALUES (2, 60)")
	exec(t, e, s, "COMMIT")

	res = exec(t, e, s, "SELECT * FROM sensor.readings USING (id=1)")
	require.Len(t, rows(t, res[0]), 2)
}

func TestEngine_TransactionStateErrors(t *testing.T) {
	e, s := newEngine(t)
	exec(t, e, s, "CREATE DATABASE app")
	exec(t, e, s, "USE app")

	_, err := e.Execute(s, "COMMIT")
	require.True(t, errors.Is(err, dberr.ErrState))

	exec(t, e, s, "BEGIN")
	_, err = e.Execute(s, "BEGIN")
	require.True(t, errors.Is(err, dberr.ErrState))
	exec(t, e, s, "ROLLBACK")
}

func TestEngine_BatchAbortsAtFirstFailure(t *testing.T) {
	e, s := newEngine(t)
	exec(t, e, s, "CREATE DATABASE app")

	_, err := e.Execute(s, "CREATE DATABASE app; CREATE DATABASE never")
	require.True(t, errors.Is(err, dberr.ErrData))

	ok, err2 := e.DatabaseExists("never")
	require.NoError(t, err2)
	require.False(t, ok)
}

func TestEngine_DataSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	e, err := Open(dir)
	require.NoError(t, err)
	s := e.NewSession()
	setupSensor(t, e, s)
	exec(t, e, s, "INSERT INTO sensor.readings USING (id=1) (rid, amount) VALUES (1, 50)")
	require.NoError(t, e.Close())

	e2, err := Open(dir)
	require.NoError(t, err)
	defer func() { _ = e2.Close() }()
	s2 := e2.NewSession()
	exec(t, e2, s2, "USE app")

	res := exec(t, e2, s2, "SELECT * FROM sensor.readings USING (id=1)")
	require.Equal(t, [][]any{{int32(1), int32(50)}}, rows(t, res[0]))
}

func TestEngine_RollbackDiscardsNewInstance(t *testing.T) {
	e, s := newEngine(t)
	exec(t, e, s, "CREATE DATABASE app")
	exec(t, e, s, "USE app")
	exec(t, e, s, "CREATE MODULE sensor (id INT INDEX, region VARCHAR)")

	exec(t, e, s, "BEGIN")
	exec(t, e, s, "INSERT CELL sensor (id, region) VALUES (1, 'eu')")
	exec(t, e, s, "ROLLBACK")

	res := exec(t, e, s, "SELECT * FROM CELL sensor")
	require.Empty(t, rows(t, res[0]))

	// the rolled-back key is free again
	exec(t, e, s, "INSERT CELL sensor (id, region) VALUES (1, 'eu')")
	res = exec(t, e, s, "SELECT * FROM CELL sensor")
	require.Equal(t, [][]any{{int32(1), "eu"}}, rows(t, res[0]))
}

func TestEngine_AlterKeepsInstancesReadable(t *testing.T) {
	e, s := newEngine(t)
	setupSensor(t, e, s)

	exec(t, e, s, "ALTER MODULE sensor ADD COLUMN owner VARCHAR")
	res := exec(t, e, s, "SELECT * FROM CELL sensor")
	require.Equal(t, [][]any{{int32(1), "eu", nil}}, rows(t, res[0]))

	// scan-path resolution decodes the rewritten rows too
	exec(t, e, s, "INSERT INTO sensor.readings USING (region='eu') (rid, amount) VALUES (1, 10)")
	sel := exec(t, e, s, "SELECT * FROM sensor.readings USING (region='eu')")
	require.Len(t, rows(t, sel[0]), 1)

	exec(t, e, s, "ALTER MODULE sensor DROP COLUMN owner")
	res = exec(t, e, s, "SELECT * FROM CELL sensor")
	require.Equal(t, [][]any{{int32(1), "eu"}}, rows(t, res[0]))
}

func TestEngine_AlterGuards(t *testing.T) {
	e, s := newEngine(t)
	setupSensor(t, e, s)

	exec(t, e, s, "BEGIN")
	_, err := e.Execute(s, "ALTER MODULE sensor ADD COLUMN owner VARCHAR")
	require.True(t, errors.Is(err, dberr.ErrState))
	exec(t, e, s, "ROLLBACK")

	// existing instances have no value for a NOT NULL column
	_, err = e.Execute(s, "ALTER MODULE sensor ADD COLUMN owner VARCHAR NOT NULL")
	require.True(t, errors.Is(err, dberr.ErrData))

	_, err = e.Execute(s, "ALTER MODULE sensor ADD COLUMN zone VARCHAR INDEX")
	require.True(t, errors.Is(err, dberr.ErrQueryParsing))
}

func TestEngine_AlterAndDrop(t *testing.T) {
	e, s := newEngine(t)
	setupSensor(t, e, s)

	exec(t, e, s, "ALTER MODULE sensor ADD COLUMN owner VARCHAR")
	m, err := e.Module("app", "sensor")
	require.NoError(t, err)
	require.GreaterOrEqual(t, m.Column("owner"), 0)

	_, err = e.Execute(s, "ALTER MODULE sensor DROP COLUMN id")
	require.True(t, errors.Is(err, dberr.ErrData))

	exec(t, e, s, "DROP TABLE sensor.readings")
	_, err = e.Execute(s, "SELECT * FROM sensor.readings")
	require.True(t, errors.Is(err, dberr.ErrData))

	exec(t, e, s, "DROP MODULE sensor")
	_, err = e.Execute(s, "SELECT * FROM CELL sensor")
	require.True(t, errors.Is(err, dberr.ErrData))

	exec(t, e, s, "DROP DATABASE app")
	ok, err := e.DatabaseExists("app")
	require.NoError(t, err)
	require.False(t, ok)
}
