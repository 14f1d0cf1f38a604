package database

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Supported engine identifiers.
const (
	EngineSQLite   = "sqlite"
	EngineMySQL    = "mysql"
	EngineMariaDB  = "mariadb"
	EnginePostgres = "postgres"
)

// BindStyle is the parameter binding convention of a driver.
type BindStyle int

const (
	// StylePositional binds anonymous "?" placeholders from an ordered value list.
	StylePositional BindStyle = iota
	// StyleNamedColon binds ":field" placeholders from sql.Named arguments.
	StyleNamedColon
	// StyleNamedAt binds "@field" placeholders from a single pgx.NamedArgs map.
	StyleNamedAt
)

func (s BindStyle) String() string {
	switch s {
	case StylePositional:
		return "positional"
	case StyleNamedColon:
		return "named_colon"
	case StyleNamedAt:
		return "named_at"
	default:
		return fmt.Sprintf("BindStyle(%d)", int(s))
	}
}

// Kind selects which token Style returns.
type Kind int

const (
	// KindPosition is the anonymous positional token.
	KindPosition Kind = iota
	// KindName is the prefix of a named placeholder.
	KindName
)

// Dialect captures the statement rules of one engine.
// It is resolved once per engine and shared read-only by every connection.
type Dialect struct {
	Engine  string
	Binding BindStyle
}

// DialectFor resolves the dialect of an engine identifier.
func DialectFor(engine string) (Dialect, error) {
	switch strings.ToLower(engine) {
	case EngineSQLite, "sqlite3":
		return Dialect{Engine: EngineSQLite, Binding: StyleNamedColon}, nil
	case EngineMySQL:
		return Dialect{Engine: EngineMySQL, Binding: StylePositional}, nil
	case EngineMariaDB:
		return Dialect{Engine: EngineMariaDB, Binding: StylePositional}, nil
	case EnginePostgres, "postgresql":
		return Dialect{Engine: EnginePostgres, Binding: StyleNamedAt}, nil
	default:
		return Dialect{}, fmt.Errorf("unknown database engine: %q", engine)
	}
}

// Style returns the token used for the given kind of placeholder.
// For StyleNamedAt the positional token is the "$" ordinal prefix.
func (d Dialect) Style(kind Kind) string {
	switch d.Binding {
	case StyleNamedColon:
		if kind == KindName {
			return ":"
		}
		return "?"
	case StyleNamedAt:
		if kind == KindName {
			return "@"
		}
		return "$"
	default:
		return "?"
	}
}

// Placeholder returns the bind token for a field.
func (d Dialect) Placeholder(field string) string {
	switch d.Binding {
	case StyleNamedColon, StyleNamedAt:
		return d.Style(KindName) + field
	default:
		return d.Style(KindPosition)
	}
}

// Placeholders returns the bind tokens for fields, joined by ", ".
func (d Dialect) Placeholders(fields []string) string {
	tokens := make([]string, len(fields))
	for i, f := range fields {
		tokens[i] = d.Placeholder(f)
	}
	return strings.Join(tokens, ", ")
}

// Bind converts a parameter row into driver arguments.
// Positional styles rely on the row order matching the placeholder order.
func (d Dialect) Bind(params *Row) []any {
	if params == nil || params.Len() == 0 {
		return nil
	}

	switch d.Binding {
	case StyleNamedColon:
		args := make([]any, 0, params.Len())
		for _, col := range params.Columns() {
			v, _ := params.Get(col)
			args = append(args, sql.Named(col, v))
		}
		return args
	case StyleNamedAt:
		named := make(pgx.NamedArgs, params.Len())
		for _, col := range params.Columns() {
			v, _ := params.Get(col)
			named[col] = v
		}
		return []any{named}
	default:
		return params.Values()
	}
}

var ddlPattern = regexp.MustCompile(`(?i)^\s*(DROP|CREATE)\b`)

// NormalizeCount maps the raw affected-row count reported by a driver to a
// non-negative count. A successful DDL statement counts as one row.
func (d Dialect) NormalizeCount(statement string, raw int64) int64 {
	isDDL := ddlPattern.MatchString(statement)
	if d.Engine == EngineSQLite && isDDL {
		// sqlite reports the change count of the last DML statement for DDL.
		return 1
	}
	if raw < 0 {
		if isDDL {
			return 1
		}
		return 0
	}
	return raw
}
