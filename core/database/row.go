package database

import (
	"database/sql"
	"fmt"
)

// Row is an ordered mapping of column name to value.
// Column order follows the order the columns were set, which for rows read
// from a query is the result column order.
type Row struct {
	columns []string
	values  map[string]any
}

// NewRow creates an empty row with room for n columns.
func NewRow(n int) *Row {
	return &Row{
		columns: make([]string, 0, n),
		values:  make(map[string]any, n),
	}
}

// RowOf builds a row from alternating column/value pairs.
func RowOf(pairs ...any) *Row {
	r := NewRow(len(pairs) / 2)
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(fmt.Sprint(pairs[i]), pairs[i+1])
	}
	return r
}

// Set assigns a column value, appending the column if it is new.
func (r *Row) Set(column string, value any) {
	if _, ok := r.values[column]; !ok {
		r.columns = append(r.columns, column)
	}
	r.values[column] = value
}

// Get returns the value of a column.
func (r *Row) Get(column string) (any, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Columns returns the column names in order.
func (r *Row) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Values returns the values in column order.
func (r *Row) Values() []any {
	out := make([]any, len(r.columns))
	for i, col := range r.columns {
		out[i] = r.values[col]
	}
	return out
}

// Len returns the number of columns.
func (r *Row) Len() int {
	return len(r.columns)
}

// Select returns a new row holding only the given columns, in the given order.
func (r *Row) Select(columns ...string) *Row {
	out := NewRow(len(columns))
	for _, col := range columns {
		out.Set(col, r.values[col])
	}
	return out
}

// Map returns the row as a plain map, mostly for logging.
func (r *Row) Map() map[string]any {
	out := make(map[string]any, len(r.columns))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// scanRow reads the current row of rows into a Row.
func scanRow(rows *sql.Rows, columns []string) (*Row, error) {
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := NewRow(len(columns))
	for i, col := range columns {
		// Drivers may reuse byte buffers between rows.
		if b, ok := values[i].([]byte); ok {
			c := make([]byte, len(b))
			copy(c, b)
			values[i] = c
		}
		row.Set(col, values[i])
	}
	return row, nil
}
