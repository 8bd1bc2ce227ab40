package catalog

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tuannm99/cellstore/internal/dberr"
	"github.com/tuannm99/cellstore/internal/logstore"
	"github.com/tuannm99/cellstore/internal/schema"
)

func newCatalog(t *testing.T) (*Catalog, string) {
	t.Helper()
	root := t.TempDir()
	c, err := New(root)
	require.NoError(t, err)
	return c, root
}

func sensorModule(t *testing.T) *schema.Module {
	t.Helper()
	id, err := schema.NewColumn("id", schema.Int, false, true, false)
	require.NoError(t, err)
	region, err := schema.NewColumn("region", schema.Varchar, false, false, true)
	require.NoError(t, err)
	m, err := schema.NewModule("sensor", []schema.Column{id, region})
	require.NoError(t, err)
	return m
}

func TestCatalog_DatabaseLifecycle(t *testing.T) {
	c, _ := newCatalog(t)

	ok, err := c.DatabaseExists("app")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.CreateDatabase("app"))
	err = c.CreateDatabase("app")
	require.Error(t, err)
	require.True(t, errors.Is(err, dberr.ErrData))

	ok, err = c.DatabaseExists("app")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, c.CreateDatabase("other"))
	names, err := c.ListDatabases()
	require.NoError(t, err)
	require.Equal(t, []string{"app", "other"}, names)

	require.NoError(t, c.DropDatabase("app"))
	ok, err = c.DatabaseExists("app")
	require.NoError(t, err)
	require.False(t, ok)

	err = c.DropDatabase("app")
	require.True(t, errors.Is(err, dberr.ErrData))
}

func TestCatalog_ModuleLifecycle(t *testing.T) {
	c, _ := newCatalog(t)
	require.NoError(t, c.CreateDatabase("app"))

	m := sensorModule(t)
	require.NoError(t, c.CreateModule("app", m))
	err := c.CreateModule("app", m)
	require.True(t, errors.Is(err, dberr.ErrData))

	got, err := c.Module("app", "sensor")
	require.NoError(t, err)
	require.Equal(t, "sensor", got.Name)
	require.Equal(t, 1, got.Version)

	_, err = c.Module("app", "ghost")
	require.True(t, errors.Is(err, dberr.ErrData))

	require.NoError(t, c.DropModule("app", "sensor"))
	_, err = c.Module("app", "sensor")
	require.True(t, errors.Is(err, dberr.ErrData))
}

func TestCatalog_AlterModule(t *testing.T) {
	c, root := newCatalog(t)
	require.NoError(t, c.CreateDatabase("app"))
	require.NoError(t, c.CreateModule("app", sensorModule(t)))
	lm := logstore.NewManager(filepath.Join(root, "app"))

	owner, err := schema.NewColumn("owner", schema.Varchar, false, false, true)
	require.NoError(t, err)

	next, err := c.AlterModule(lm, "app", "sensor", []schema.Column{owner}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, next.Version)
	require.GreaterOrEqual(t, next.Column("owner"), 0)

	// cache was invalidated, reload sees the new column
	got, err := c.Module("app", "sensor")
	require.NoError(t, err)
	require.GreaterOrEqual(t, got.Column("owner"), 0)

	// instance key columns cannot be dropped
	_, err = c.AlterModule(lm, "app", "sensor", nil, []string{"id"})
	require.True(t, errors.Is(err, dberr.ErrData))

	// nor can new ones join the key
	zone, err := schema.NewColumn("zone", schema.Varchar, false, true, false)
	require.NoError(t, err)
	_, err = c.AlterModule(lm, "app", "sensor", []schema.Column{zone}, nil)
	require.True(t, errors.Is(err, dberr.ErrData))

	next, err = c.AlterModule(lm, "app", "sensor", nil, []string{"owner"})
	require.NoError(t, err)
	require.Negative(t, next.Column("owner"))

	_, err = c.AlterModule(lm, "app", "sensor", nil, []string{"owner"})
	require.True(t, errors.Is(err, dberr.ErrData))
}

func TestCatalog_AlterRewritesInstanceRows(t *testing.T) {
	c, root := newCatalog(t)
	require.NoError(t, c.CreateDatabase("app"))
	require.NoError(t, c.CreateModule("app", sensorModule(t)))
	lm := logstore.NewManager(filepath.Join(root, "app"))

	hash, _, err := c.CreateInstance(lm, "app", "sensor", []string{"id", "region"}, []any{int64(1), "eu"})
	require.NoError(t, err)
	require.NoError(t, lm.Commit())
	require.NoError(t, c.CommitInstances("app"))

	owner, err := schema.NewColumn("owner", schema.Varchar, false, false, true)
	require.NoError(t, err)
	_, err = c.AlterModule(lm, "app", "sensor", []schema.Column{owner}, nil)
	require.NoError(t, err)
	require.NoError(t, lm.Commit())

	// the old row decodes under the widened column list, new column NULL
	rows, err := c.Instances(lm, "app", "sensor")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, hash, rows[0].InstanceHash)
	v, ok := rows[0].Value("owner")
	require.True(t, ok)
	require.Nil(t, v)

	// a NOT NULL column has no value to backfill existing rows with
	strict, err := schema.NewColumn("tier", schema.Varchar, false, false, false)
	require.NoError(t, err)
	_, err = c.AlterModule(lm, "app", "sensor", []schema.Column{strict}, nil)
	require.True(t, errors.Is(err, dberr.ErrData))
}

func TestCatalog_TableLifecycle(t *testing.T) {
	c, _ := newCatalog(t)
	require.NoError(t, c.CreateDatabase("app"))
	require.NoError(t, c.CreateModule("app", sensorModule(t)))

	amount, err := schema.NewColumn("amount", schema.Int, false, false, false)
	require.NoError(t, err)
	tab, err := schema.NewTable("readings", []schema.Column{amount})
	require.NoError(t, err)

	require.NoError(t, c.CreateTable("app", "sensor", tab))
	err = c.CreateTable("app", "sensor", tab)
	require.True(t, errors.Is(err, dberr.ErrData))

	cols, err := c.TableColumns("app", "sensor", "readings")
	require.NoError(t, err)
	require.Len(t, cols, 1)
	require.Equal(t, "amount", cols[0].Name)

	require.NoError(t, c.DropTable("app", "sensor", "readings"))
	_, err = c.TableColumns("app", "sensor", "readings")
	require.True(t, errors.Is(err, dberr.ErrData))
}

func TestCatalog_InstanceLifecycle(t *testing.T) {
	c, root := newCatalog(t)
	require.NoError(t, c.CreateDatabase("app"))
	require.NoError(t, c.CreateModule("app", sensorModule(t)))

	lm := logstore.NewManager(filepath.Join(root, "app"))

	hash, id, err := c.CreateInstance(lm, "app", "sensor", []string{"id", "region"}, []any{int64(1), "eu"})
	require.NoError(t, err)
	require.EqualValues(t, 1, id)
	require.Equal(t, schema.InstanceHash(map[string]string{"id": "1"}), hash)

	// duplicate instance key rejected even before commit
	_, _, err = c.CreateInstance(lm, "app", "sensor", []string{"id", "region"}, []any{int64(1), "us"})
	require.True(t, errors.Is(err, dberr.ErrData))

	// the instance key must be fully supplied
	_, _, err = c.CreateInstance(lm, "app", "sensor", []string{"region"}, []any{"eu"})
	require.True(t, errors.Is(err, dberr.ErrData))

	require.NoError(t, lm.Commit())
	require.NoError(t, c.CommitInstances("app"))

	got, err := c.Instance(lm, "app", "sensor", hash)
	require.NoError(t, err)
	v, ok := got.Value("region")
	require.True(t, ok)
	require.Equal(t, "eu", v)

	_, _, err = c.CreateInstance(lm, "app", "sensor", []string{"id"}, []any{int64(2)})
	require.NoError(t, err)
	require.NoError(t, lm.Commit())
	require.NoError(t, c.CommitInstances("app"))

	rows, err := c.Instances(lm, "app", "sensor")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.NoError(t, c.DeleteInstance(lm, "app", "sensor", hash))
	require.NoError(t, lm.Commit())

	rows, err = c.Instances(lm, "app", "sensor")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	err = c.DeleteInstance(lm, "app", "sensor", hash)
	require.True(t, errors.Is(err, dberr.ErrData))
}

func TestCatalog_RollbackLeavesNoHashResidue(t *testing.T) {
	c, root := newCatalog(t)
	require.NoError(t, c.CreateDatabase("app"))
	require.NoError(t, c.CreateModule("app", sensorModule(t)))
	lm := logstore.NewManager(filepath.Join(root, "app"))

	hash, _, err := c.CreateInstance(lm, "app", "sensor", []string{"id"}, []any{int64(1)})
	require.NoError(t, err)
	lm.Rollback()
	c.RollbackInstances("app")

	// the discarded write leaves the key free
	again, _, err := c.CreateInstance(lm, "app", "sensor", []string{"id"}, []any{int64(1)})
	require.NoError(t, err)
	require.Equal(t, hash, again)

	require.NoError(t, lm.Commit())
	require.NoError(t, c.CommitInstances("app"))

	rows, err := c.Instances(lm, "app", "sensor")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestCatalog_DeleteStagedInstance(t *testing.T) {
	c, root := newCatalog(t)
	require.NoError(t, c.CreateDatabase("app"))
	require.NoError(t, c.CreateModule("app", sensorModule(t)))
	lm := logstore.NewManager(filepath.Join(root, "app"))

	hash, _, err := c.CreateInstance(lm, "app", "sensor", []string{"id"}, []any{int64(1)})
	require.NoError(t, err)

	// deleting before the row ever commits removes the staged entry too
	require.NoError(t, c.DeleteInstance(lm, "app", "sensor", hash))
	require.NoError(t, lm.Commit())
	require.NoError(t, c.CommitInstances("app"))

	rows, err := c.Instances(lm, "app", "sensor")
	require.NoError(t, err)
	require.Empty(t, rows)

	_, _, err = c.CreateInstance(lm, "app", "sensor", []string{"id"}, []any{int64(1)})
	require.NoError(t, err)
}
