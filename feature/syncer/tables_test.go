package syncer

import (
	"os"
	"path/filepath"
	"testing"

	"db-sync/core/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableLoader_Load(t *testing.T) {
	dir := t.TempDir()
	l := NewTableLoader(dir)
	assert.Equal(t, filepath.Join(dir, "sync_tables_update.json"), l.Path("update"))

	content := `[
		{"name": "users", "modified_field": "updated_at", "modified_from_date": "2 days ago"},
		{"name": "accounts", "primary_field": "account_id"}
	]`
	require.NoError(t, os.WriteFile(l.Path("update"), []byte(content), 0o644))

	tables, err := l.Load("update")
	require.NoError(t, err)
	assert.Equal(t, []reconcile.Table{
		{Name: "users", ModifiedField: "updated_at", ModifiedFromDate: "2 days ago"},
		{Name: "accounts", PrimaryField: "account_id"},
	}, tables)
}

func TestTableLoader_LoadErrors(t *testing.T) {
	l := NewTableLoader(t.TempDir())

	_, err := l.Load("insert")
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(l.Path("insert"), []byte(`{not json`), 0o644))
	_, err = l.Load("insert")
	assert.ErrorContains(t, err, "failed to parse")

	require.NoError(t, os.WriteFile(l.Path("insert"), []byte(`[{"primary_field": "id"}]`), 0o644))
	_, err = l.Load("insert")
	assert.ErrorIs(t, err, reconcile.ErrInvalidArgument)
}

func TestTableLoader_WriteShowTables(t *testing.T) {
	l := NewTableLoader(filepath.Join(t.TempDir(), "nested"))

	path, size, err := l.WriteShowTables(nil)
	require.NoError(t, err)
	data, _ := os.ReadFile(path)
	assert.Equal(t, "[]\n", string(data))
	assert.Equal(t, int64(3), size)

	_, _, err = l.WriteShowTables([]string{"a"})
	require.NoError(t, err)
	data, _ = os.ReadFile(path)
	assert.Equal(t, "[\n    {\"name\":\"a\"}\n]\n", string(data))
}
