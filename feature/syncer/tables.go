package syncer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"db-sync/core/reconcile"

	"github.com/goccy/go-json"
)

// ShowTablesName is the pseudo operation the catalog listing is stored under.
const ShowTablesName = "show_tables"

// TableLoader reads and writes the sync_tables_<operation>.json files.
type TableLoader struct {
	dir string
}

// NewTableLoader creates a loader rooted at dir.
func NewTableLoader(dir string) *TableLoader {
	if dir == "" {
		dir = "."
	}
	return &TableLoader{dir: dir}
}

// Path returns the table list file of an operation.
func (l *TableLoader) Path(operation string) string {
	return filepath.Join(l.dir, fmt.Sprintf("sync_tables_%s.json", operation))
}

// Load reads the table list of an operation.
func (l *TableLoader) Load(operation string) ([]reconcile.Table, error) {
	path := l.Path(operation)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table list %s: %w", path, err)
	}

	var tables []reconcile.Table
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("failed to parse table list %s: %w", path, err)
	}
	for i, t := range tables {
		if t.Name == "" {
			return nil, fmt.Errorf("%w: table %d in %s has no name", reconcile.ErrInvalidArgument, i, path)
		}
	}
	return tables, nil
}

type tableName struct {
	Name string `json:"name"`
}

// WriteShowTables writes names as a JSON array with one record per line and
// returns the file path and size.
func (l *TableLoader) WriteShowTables(names []string) (string, int64, error) {
	var buf bytes.Buffer
	buf.WriteString("[")
	for i, n := range names {
		rec, err := json.Marshal(tableName{Name: n})
		if err != nil {
			return "", 0, fmt.Errorf("failed to encode table %s: %w", n, err)
		}
		if i > 0 {
			buf.WriteString(",")
		}
		buf.WriteString("\n    ")
		buf.Write(rec)
	}
	if len(names) > 0 {
		buf.WriteString("\n")
	}
	buf.WriteString("]\n")

	path := l.Path(ShowTablesName)
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("failed to create %s: %w", l.dir, err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", 0, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, int64(buf.Len()), nil
}
