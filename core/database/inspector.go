package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"gorm.io/gorm"
)

// ErrInvalidIdentifier is returned for table names that are not plain SQL identifiers.
var ErrInvalidIdentifier = errors.New("invalid identifier")

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)?$`)

// ValidIdentifier reports whether name is a plain, optionally schema-qualified, identifier.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// ColumnInfo describes one table column.
type ColumnInfo struct {
	Field string `json:"field"`
	Type  string `json:"type"`
}

// ListTablesQuery returns the catalog query listing the base tables of a
// database, with its parameters. System tables are excluded.
func ListTablesQuery(d Dialect, dbName string) (string, *Row) {
	switch d.Engine {
	case EngineSQLite:
		return "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name", nil
	case EnginePostgres:
		q := "SELECT table_name AS name FROM information_schema.tables" +
			" WHERE table_type = 'BASE TABLE' AND table_schema NOT IN ('pg_catalog', 'information_schema')" +
			" AND table_catalog = " + d.Placeholder("dbname") + " ORDER BY table_name"
		return q, RowOf("dbname", dbName)
	default:
		q := "SELECT TABLE_NAME AS name FROM information_schema.TABLES" +
			" WHERE TABLE_SCHEMA = " + d.Placeholder("dbname") + " AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME"
		return q, RowOf("dbname", dbName)
	}
}

// ListTables returns the base table names of the database behind cur, sorted by name.
func (e *Executor) ListTables(ctx context.Context, cur Cursor, dbName string) ([]string, error) {
	query, params := ListTablesQuery(e.dialect, dbName)
	rows, err := e.SelectAll(ctx, cur, query, params, false, "")
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		v, _ := r.Get("name")
		switch n := v.(type) {
		case string:
			names = append(names, n)
		case []byte:
			names = append(names, string(n))
		default:
			names = append(names, fmt.Sprint(n))
		}
	}
	return names, nil
}

// GetTableColumns retrieves the column definitions for a given table.
// Names and types are lowercased.
func GetTableColumns(db *gorm.DB, tableName string) ([]ColumnInfo, error) {
	if !ValidIdentifier(tableName) {
		return nil, fmt.Errorf("%w: table %q", ErrInvalidIdentifier, tableName)
	}

	var columns []ColumnInfo
	if db.Dialector.Name() == "sqlite" {
		type sqliteColumn struct {
			Cid  int
			Name string
			Type string
		}
		var cols []sqliteColumn
		if err := db.Raw(fmt.Sprintf("PRAGMA table_info('%s')", tableName)).Scan(&cols).Error; err != nil {
			return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
		}
		for _, col := range cols {
			columns = append(columns, ColumnInfo{
				Field: strings.ToLower(col.Name),
				Type:  strings.ToLower(col.Type),
			})
		}
		return columns, nil
	}

	types, err := db.Migrator().ColumnTypes(tableName)
	if err != nil {
		return nil, fmt.Errorf("failed to get columns for table %s: %w", tableName, err)
	}
	for _, ct := range types {
		columns = append(columns, ColumnInfo{
			Field: strings.ToLower(ct.Name()),
			Type:  strings.ToLower(ct.DatabaseTypeName()),
		})
	}
	return columns, nil
}
