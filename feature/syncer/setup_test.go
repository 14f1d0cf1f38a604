package syncer

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"db-sync/core/database"
	"db-sync/core/metrics"
	"db-sync/core/reconcile"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testEnv struct {
	dir     string
	source  *gorm.DB
	target  *gorm.DB
	service *Service
	metrics *metrics.Metrics
}

func openDB(t *testing.T, path string) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, _ := db.DB()
	t.Cleanup(func() { sqlDB.Close() })
	for _, stmt := range []string{
		"CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT, modified TIMESTAMP)",
		"CREATE TABLE orders (id INTEGER PRIMARY KEY AUTOINCREMENT, total REAL)",
	} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func setupEnv(t *testing.T, reporter func(*zap.Logger) *Reporter) *testEnv {
	dir := t.TempDir()
	srcPath := filepath.Join(dir, "source.db")
	tgtPath := filepath.Join(dir, "target.db")

	env := &testEnv{
		dir:     dir,
		source:  openDB(t, srcPath),
		target:  openDB(t, tgtPath),
		metrics: metrics.New(),
	}

	connector := database.NewConnector(database.Config{
		Engine:         database.EngineSQLite,
		TimeoutSeconds: 5,
		Source:         database.Endpoint{Name: "source", File: srcPath},
		Target:         database.Endpoint{Name: "target", File: tgtPath},
	}, zap.NewNop())

	cfg := reconcile.DefaultConfig()
	cfg.ModifiedField = "modified"
	cfg.ModifiedFromDate = "2025-01-01"
	cfg.TablesDir = dir
	cfg.Insert = reconcile.InsertLimits{SelectWindow: 100, ApplyLimit: 100, BatchSize: 10}
	cfg.Update = reconcile.OperationLimits{SelectWindow: 100, ApplyLimit: 100}
	cfg.Delete = reconcile.OperationLimits{SelectWindow: 100, ApplyLimit: 100}

	d, err := database.DialectFor(database.EngineSQLite)
	require.NoError(t, err)
	engine, err := reconcile.NewEngine(cfg, connector, d, false, zap.NewNop())
	require.NoError(t, err)

	opts := Options{
		Engine:    engine,
		Connector: connector,
		Tables:    NewTableLoader(dir),
		Metrics:   env.metrics,
		Logger:    zap.NewNop(),
	}
	if reporter != nil {
		opts.Reporter = reporter(zap.NewNop())
	}
	env.service, err = NewService(opts)
	require.NoError(t, err)
	return env
}

func (e *testEnv) writeTables(t *testing.T, op, content string) {
	require.NoError(t, os.WriteFile(filepath.Join(e.dir, fmt.Sprintf("sync_tables_%s.json", op)), []byte(content), 0o644))
}

func (e *testEnv) seedUsers(t *testing.T, db *gorm.DB, from, to int, name, modified string) {
	for i := from; i <= to; i++ {
		require.NoError(t, db.Exec("INSERT INTO users (id, name, modified) VALUES (?, ?, ?)",
			i, fmt.Sprintf("%s-%d", name, i), modified).Error)
	}
}

func count(t *testing.T, db *gorm.DB, query string) int64 {
	var n int64
	require.NoError(t, db.Raw(query).Scan(&n).Error)
	return n
}
