package syncer

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"db-sync/core/loader"
	"db-sync/core/reconcile"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApp(t *testing.T, env *testEnv) *fiber.App {
	app := fiber.New()
	mgr := loader.NewManager()
	mgr.Register(NewFeature(env.service, env.metrics, zap.NewNop()))
	require.NoError(t, mgr.LoadAll(app))
	return app
}

func decode(t *testing.T, resp *http.Response, v any) {
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(body, v))
}

func TestHandler_Run(t *testing.T) {
	env := setupEnv(t, nil)
	env.seedUsers(t, env.source, 1, 6, "user", "2024-01-01 00:00:00")
	env.writeTables(t, reconcile.OpInsert, `[{"name": "users"}]`)
	app := newTestApp(t, env)

	t.Run("Dry run", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/sync/insert?dry_run=true", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var report RunReport
		decode(t, resp, &report)
		assert.True(t, report.DryRun)
		assert.Zero(t, report.TotalRows)
		assert.Zero(t, count(t, env.target, "SELECT COUNT(*) FROM users"))
	})

	t.Run("Insert", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/sync/insert", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var report RunReport
		decode(t, resp, &report)
		assert.Equal(t, int64(6), report.TotalRows)
		assert.Equal(t, "users", report.Phases[0].Results[0].Name)
	})

	t.Run("Unknown operation", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/sync/merge", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Run in progress", func(t *testing.T) {
		env.service.running.Store(true)
		defer env.service.running.Store(false)

		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/sync/insert", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("Failed run returns partial report", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/sync/delete", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

		var body struct {
			Error  string     `json:"error"`
			Report *RunReport `json:"report"`
		}
		decode(t, resp, &body)
		assert.Contains(t, body.Error, "sync_tables_delete.json")
		require.NotNil(t, body.Report)
		assert.Equal(t, reconcile.OpDelete, body.Report.Operation)
	})
}

func TestHandler_ShowTables(t *testing.T) {
	env := setupEnv(t, nil)
	app := newTestApp(t, env)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sync/tables", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var summary TablesSummary
	decode(t, resp, &summary)
	assert.Equal(t, 2, summary.TableCount)
	assert.True(t, strings.HasSuffix(summary.File, "sync_tables_show_tables.json"))
}

func TestHandler_Reports(t *testing.T) {
	env := setupEnv(t, nil)
	app := newTestApp(t, env)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sync/reports", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body map[string][]ReportInfo
	decode(t, resp, &body)
	assert.NotNil(t, body["reports"])
	assert.Empty(t, body["reports"])
}

func TestHandler_Metrics(t *testing.T) {
	env := setupEnv(t, nil)
	env.writeTables(t, reconcile.OpInsert, `[{"name": "users"}]`)
	app := newTestApp(t, env)

	_, err := app.Test(httptest.NewRequest(http.MethodPost, "/sync/insert", nil), -1)
	require.NoError(t, err)

	// Later requests reuse the request buffers the first path was read from.
	for _, target := range []string{"/sync/reports", "/sync/tables/users/columns", "/sync/tables"} {
		_, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
		require.NoError(t, err)
	}
	_, err = app.Test(httptest.NewRequest(http.MethodPost, "/sync/update", nil), -1)
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `dbsync_run_total{dry_run="false",operation="insert",status="ok"} 1`)
	assert.Contains(t, string(body), `dbsync_run_total{dry_run="false",operation="update",status="error"} 1`)
	assert.Contains(t, string(body), `dbsync_reconcile_tables_total{operation="insert",status="ok"} 1`)
}

func TestFeature(t *testing.T) {
	f := NewFeature(nil, nil, zap.NewNop())
	assert.Equal(t, "sync", f.Name())
	assert.True(t, f.IsEnabled())
}

func TestHandler_Columns(t *testing.T) {
	env := setupEnv(t, nil)
	app := newTestApp(t, env)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/sync/tables/users/columns", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Table   string `json:"table"`
		Columns []struct {
			Field string `json:"field"`
			Type  string `json:"type"`
		} `json:"columns"`
	}
	decode(t, resp, &body)
	assert.Equal(t, "users", body.Table)
	require.Len(t, body.Columns, 3)
	assert.Equal(t, "id", body.Columns[0].Field)
	assert.Equal(t, "integer", body.Columns[0].Type)
	assert.Equal(t, "modified", body.Columns[2].Field)

	for _, target := range []string{"/sync/tables/ghost/columns", "/sync/tables/users'--/columns"} {
		resp, err = app.Test(httptest.NewRequest(http.MethodGet, target, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode, target)
	}
}
