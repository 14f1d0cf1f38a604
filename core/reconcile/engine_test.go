package reconcile

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"db-sync/core/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const usersSchema = `CREATE TABLE users (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT,
	address TEXT,
	modified TIMESTAMP
)`

type fixture struct {
	source *gorm.DB
	target *gorm.DB
	conn   *database.Connector
	dir    string
}

func openTestDB(t *testing.T, path string) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.Exec(usersSchema).Error)
	return db
}

func setupFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.db")
	tgtPath := filepath.Join(dir, "target.db")

	f := &fixture{
		source: openTestDB(t, srcPath),
		target: openTestDB(t, tgtPath),
		dir:    dir,
	}
	f.conn = database.NewConnector(database.Config{
		Engine:         database.EngineSQLite,
		TimeoutSeconds: 5,
		Source:         database.Endpoint{Name: "source", File: srcPath},
		Target:         database.Endpoint{Name: "target", File: tgtPath},
	}, zap.NewNop())
	return f
}

func (f *fixture) engine(t *testing.T, cfg Config) *Engine {
	d, err := database.DialectFor(database.EngineSQLite)
	require.NoError(t, err)
	e, err := NewEngine(cfg, f.conn, d, true, zap.NewNop())
	require.NoError(t, err)
	return e
}

func seed(t *testing.T, db *gorm.DB, from, to int, name, modified string) {
	for i := from; i <= to; i++ {
		err := db.Exec("INSERT INTO users (id, name, address, modified) VALUES (?, ?, ?, ?)",
			i, fmt.Sprintf("%s-%d", name, i), fmt.Sprintf("street %d", i), modified).Error
		require.NoError(t, err)
	}
}

func countRows(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM users").Scan(&n).Error)
	return n
}

func maxRowID(t *testing.T, db *gorm.DB) int64 {
	var n int64
	require.NoError(t, db.Raw("SELECT COALESCE(MAX(id), 0) FROM users").Scan(&n).Error)
	return n
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ModifiedField = "modified"
	cfg.Insert = InsertLimits{SelectWindow: 10, ApplyLimit: 10, BatchSize: 3}
	cfg.Update = OperationLimits{SelectWindow: 10, ApplyLimit: 10}
	cfg.Delete = OperationLimits{SelectWindow: 10, ApplyLimit: 10}
	return cfg
}

func TestEngine_Insert(t *testing.T) {
	ctx := context.Background()
	f := setupFixture(t)
	seed(t, f.source, 1, 100, "user", "2024-01-01 00:00:00")
	e := f.engine(t, testConfig())

	res, err := e.Insert(ctx, Table{Name: "users", TaskID: 1})
	require.NoError(t, err)
	assert.Equal(t, Result{Name: "users", RowsAffected: 10, TaskID: 1}, res)
	assert.Equal(t, int64(10), countRows(t, f.target))
	assert.Equal(t, int64(10), maxRowID(t, f.target))

	// A second call continues from the new target maximum.
	res, err = e.Insert(ctx, Table{Name: "users", TaskID: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.RowsAffected)
	assert.Equal(t, int64(20), maxRowID(t, f.target))

	var name string
	require.NoError(t, f.target.Raw("SELECT name FROM users WHERE id = 15").Scan(&name).Error)
	assert.Equal(t, "user-15", name)
}

func TestEngine_Insert_ApplyLimit(t *testing.T) {
	f := setupFixture(t)
	seed(t, f.source, 1, 50, "user", "2024-01-01 00:00:00")

	cfg := testConfig()
	cfg.Insert = InsertLimits{SelectWindow: 10, ApplyLimit: 4, BatchSize: 3}
	res, err := f.engine(t, cfg).Insert(context.Background(), Table{Name: "users"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.RowsAffected)
	assert.Equal(t, int64(4), maxRowID(t, f.target))
}

func TestEngine_Insert_NothingToDo(t *testing.T) {
	f := setupFixture(t)
	seed(t, f.source, 1, 5, "user", "2024-01-01 00:00:00")
	seed(t, f.target, 1, 5, "user", "2024-01-01 00:00:00")

	res, err := f.engine(t, testConfig()).Insert(context.Background(), Table{Name: "users"})
	require.NoError(t, err)
	assert.Zero(t, res.RowsAffected)
}

func TestEngine_Insert_DryRun(t *testing.T) {
	f := setupFixture(t)
	seed(t, f.source, 1, 20, "user", "2024-01-01 00:00:00")

	e := f.engine(t, testConfig()).WithDryRun(true)
	res, err := e.Insert(context.Background(), Table{Name: "users"})
	require.NoError(t, err)
	assert.Zero(t, res.RowsAffected)
	assert.Zero(t, countRows(t, f.target))
}

func TestEngine_Update(t *testing.T) {
	f := setupFixture(t)
	seed(t, f.target, 1, 20, "user", "2024-01-01 00:00:00")
	seed(t, f.source, 1, 20, "changed", "2026-06-01 00:00:00")

	cfg := testConfig()
	cfg.ModifiedFromDate = "2025-01-01"
	res, err := f.engine(t, cfg).Update(context.Background(), Table{Name: "users", TaskID: 3})
	require.NoError(t, err)
	assert.Equal(t, Result{Name: "users", RowsAffected: 10, TaskID: 3}, res)

	var changed int64
	require.NoError(t, f.target.Raw("SELECT COUNT(*) FROM users WHERE name LIKE 'changed-%'").Scan(&changed).Error)
	assert.Equal(t, int64(10), changed)

	var name string
	require.NoError(t, f.target.Raw("SELECT name FROM users WHERE id = 10").Scan(&name).Error)
	assert.Equal(t, "changed-10", name)
	require.NoError(t, f.target.Raw("SELECT name FROM users WHERE id = 11").Scan(&name).Error)
	assert.Equal(t, "user-11", name)
}

func TestEngine_Update_LimitCountsAffectedRows(t *testing.T) {
	f := setupFixture(t)
	seed(t, f.source, 1, 20, "changed", "2026-06-01 00:00:00")
	// Ids 1..10 are missing from target, so their updates affect no rows.
	seed(t, f.target, 11, 20, "user", "2024-01-01 00:00:00")

	cfg := testConfig()
	cfg.ModifiedFromDate = "2025-01-01"
	cfg.Update = OperationLimits{SelectWindow: 20, ApplyLimit: 10}
	res, err := f.engine(t, cfg).Update(context.Background(), Table{Name: "users"})
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.RowsAffected)

	var changed int64
	require.NoError(t, f.target.Raw("SELECT COUNT(*) FROM users WHERE name LIKE 'changed-%'").Scan(&changed).Error)
	assert.Equal(t, int64(10), changed)
}

func TestEngine_Update_TimestampCompare(t *testing.T) {
	setup := func(t *testing.T) *fixture {
		f := setupFixture(t)
		seed(t, f.source, 1, 10, "user", "2026-06-01 00:00:00")
		seed(t, f.target, 1, 10, "user", "2026-06-01 00:00:00")
		for _, id := range []int{2, 5, 8} {
			require.NoError(t, f.source.Exec(
				"UPDATE users SET name = ?, modified = ? WHERE id = ?", "renamed", "2026-07-01 00:00:00", id).Error)
		}
		return f
	}

	cfg := testConfig()
	cfg.ModifiedFromDate = "2025-01-01"
	cfg.Update = OperationLimits{SelectWindow: 100, ApplyLimit: 100}

	t.Run("Skips identical rows", func(t *testing.T) {
		f := setup(t)
		cfg.UpdateCompareMethod = CompareTimestamp
		res, err := f.engine(t, cfg).Update(context.Background(), Table{Name: "users"})
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.RowsAffected)

		var renamed int64
		require.NoError(t, f.target.Raw("SELECT COUNT(*) FROM users WHERE name = 'renamed'").Scan(&renamed).Error)
		assert.Equal(t, int64(3), renamed)
	})

	t.Run("Without compare every row is written", func(t *testing.T) {
		f := setup(t)
		cfg.UpdateCompareMethod = CompareNone
		res, err := f.engine(t, cfg).Update(context.Background(), Table{Name: "users"})
		require.NoError(t, err)
		assert.Equal(t, int64(10), res.RowsAffected)
	})
}

func TestEngine_Update_RequiresModifiedField(t *testing.T) {
	f := setupFixture(t)
	cfg := testConfig()
	cfg.ModifiedField = ""

	_, err := f.engine(t, cfg).Update(context.Background(), Table{Name: "users"})
	assert.ErrorIs(t, err, ErrConfiguration)

	// A per-table override is enough.
	_, err = f.engine(t, cfg).Update(context.Background(), Table{Name: "users", ModifiedField: "modified"})
	assert.NoError(t, err)
}

func TestEngine_Delete(t *testing.T) {
	f := setupFixture(t)
	seed(t, f.source, 1, 20, "user", "2024-01-01 00:00:00")
	seed(t, f.target, 1, 20, "user", "2024-01-01 00:00:00")
	require.NoError(t, f.source.Exec("DELETE FROM users WHERE id IN (4, 7, 10)").Error)

	res, err := f.engine(t, testConfig()).Delete(context.Background(), Table{Name: "users", TaskID: 4})
	require.NoError(t, err)
	assert.Equal(t, Result{Name: "users", RowsAffected: 3, TaskID: 4}, res)

	var left int64
	require.NoError(t, f.target.Raw("SELECT COUNT(*) FROM users WHERE id IN (4, 7, 10)").Scan(&left).Error)
	assert.Zero(t, left)
	assert.Equal(t, int64(17), countRows(t, f.target))
}

func TestEngine_Delete_AcrossWindows(t *testing.T) {
	f := setupFixture(t)
	seed(t, f.source, 1, 23, "user", "2024-01-01 00:00:00")
	seed(t, f.target, 1, 23, "user", "2024-01-01 00:00:00")
	require.NoError(t, f.source.Exec("DELETE FROM users WHERE id IN (5, 6, 12, 23)").Error)

	cfg := testConfig()
	cfg.Delete = OperationLimits{SelectWindow: 5, ApplyLimit: 10}
	res, err := f.engine(t, cfg).Delete(context.Background(), Table{Name: "users"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.RowsAffected)
	assert.Equal(t, int64(19), countRows(t, f.target))
}

func TestEngine_Delete_ApplyLimit(t *testing.T) {
	f := setupFixture(t)
	seed(t, f.source, 1, 30, "user", "2024-01-01 00:00:00")
	seed(t, f.target, 1, 30, "user", "2024-01-01 00:00:00")
	require.NoError(t, f.source.Exec("DELETE FROM users WHERE id <= 6 OR id = 25").Error)

	cfg := testConfig()
	cfg.Delete = OperationLimits{SelectWindow: 10, ApplyLimit: 4}
	res, err := f.engine(t, cfg).Delete(context.Background(), Table{Name: "users"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), res.RowsAffected)

	// The first candidates in target order go and scanning stops.
	var ids []int64
	require.NoError(t, f.target.Raw("SELECT id FROM users WHERE id <= 6 OR id = 25 ORDER BY id").Scan(&ids).Error)
	assert.Equal(t, []int64{5, 6, 25}, ids)
}

func TestEngine_Delete_DryRun(t *testing.T) {
	f := setupFixture(t)
	seed(t, f.target, 1, 5, "user", "2024-01-01 00:00:00")

	res, err := f.engine(t, testConfig()).WithDryRun(true).Delete(context.Background(), Table{Name: "users"})
	require.NoError(t, err)
	assert.Zero(t, res.RowsAffected)
	assert.Equal(t, int64(5), countRows(t, f.target))
}

func TestEngine_Errors(t *testing.T) {
	f := setupFixture(t)

	t.Run("Invalid config", func(t *testing.T) {
		cfg := testConfig()
		cfg.Update.ApplyLimit = 0
		d, _ := database.DialectFor(database.EngineSQLite)
		_, err := NewEngine(cfg, f.conn, d, false, zap.NewNop())
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("No primary field", func(t *testing.T) {
		cfg := testConfig()
		cfg.PrimaryField = ""
		_, err := f.engine(t, cfg).Insert(context.Background(), Table{Name: "users"})
		assert.ErrorIs(t, err, ErrConfiguration)
	})

	t.Run("Missing table", func(t *testing.T) {
		_, err := f.engine(t, testConfig()).Delete(context.Background(), Table{Name: "missing"})
		var engErr *database.EngineError
		assert.ErrorAs(t, err, &engErr)
		assert.ErrorContains(t, err, "delete missing")
	})

	t.Run("Unknown operation", func(t *testing.T) {
		_, err := f.engine(t, testConfig()).Strategy("merge")
		assert.ErrorIs(t, err, ErrInvalidArgument)
	})
}

func TestEngine_WithPool(t *testing.T) {
	f := setupFixture(t)
	seed(t, f.source, 1, 15, "user", "2024-01-01 00:00:00")
	e := f.engine(t, testConfig())

	p, err := NewPool(2, zap.NewNop())
	require.NoError(t, err)
	results, err := p.Run(context.Background(), []Table{{Name: "users"}}, e.Insert, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, int64(1), results[0].TaskID)
	assert.Equal(t, int64(10), results[0].RowsAffected)
}
