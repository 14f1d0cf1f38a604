package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrQueryEmpty is returned when a query asserted to produce rows returned none.
	ErrQueryEmpty = errors.New("query returned no rows")
	// ErrInvalidBatch is returned when a batch execution receives no rows.
	ErrInvalidBatch = errors.New("batch has no rows")
)

// EngineError wraps a failure reported by the database driver.
type EngineError struct {
	Op        string
	Statement string
	Err       error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Cursor is the subset of a database handle the executor needs.
// Both *sql.Conn and *sql.DB satisfy it.
type Cursor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Executor runs statements against a cursor using one dialect.
// When dry-run is enabled, reads still run but modifications are only logged.
type Executor struct {
	dialect Dialect
	dryRun  bool
	logSQL  bool
	log     *zap.Logger
}

// NewExecutor creates an executor.
func NewExecutor(dialect Dialect, dryRun, logSQL bool, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{dialect: dialect, dryRun: dryRun, logSQL: logSQL, log: log}
}

// Dialect returns the dialect statements are bound with.
func (e *Executor) Dialect() Dialect {
	return e.dialect
}

// DryRun reports whether modifications are simulated.
func (e *Executor) DryRun() bool {
	return e.dryRun
}

// RowIter streams the rows of a query.
type RowIter struct {
	rows    *sql.Rows
	columns []string
	current *Row
	err     error
}

// Next advances to the next row.
func (it *RowIter) Next() bool {
	if it.err != nil || !it.rows.Next() {
		return false
	}
	it.current, it.err = scanRow(it.rows, it.columns)
	return it.err == nil
}

// Row returns the current row.
func (it *RowIter) Row() *Row {
	return it.current
}

// Columns returns the result column names.
func (it *RowIter) Columns() []string {
	return it.columns
}

// Err returns the first error met while iterating.
func (it *RowIter) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.rows.Err()
}

// Close releases the underlying result set.
func (it *RowIter) Close() error {
	return it.rows.Close()
}

// Select runs a query and returns an iterator over its rows.
// The caller must Close the iterator.
func (e *Executor) Select(ctx context.Context, cur Cursor, query string, params *Row) (*RowIter, error) {
	start := time.Now()
	rows, err := cur.QueryContext(ctx, query, e.dialect.Bind(params)...)
	if err != nil {
		return nil, e.fail("select", query, params, err)
	}

	columns, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, e.fail("select", query, params, err)
	}

	e.trace("select", query, params, -1, time.Since(start))
	return &RowIter{rows: rows, columns: columns}, nil
}

// SelectAll runs a query and collects every row.
// When assert is set and the result is empty, ErrQueryEmpty is returned wrapped with errMsg.
func (e *Executor) SelectAll(ctx context.Context, cur Cursor, query string, params *Row, assert bool, errMsg string) ([]*Row, error) {
	it, err := e.Select(ctx, cur, query, params)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var out []*Row
	for it.Next() {
		out = append(out, it.Row())
	}
	if err := it.Err(); err != nil {
		return nil, e.fail("select", query, params, err)
	}

	if assert && len(out) == 0 {
		return nil, e.empty(query, params, errMsg)
	}
	return out, nil
}

// SelectOne runs a query and returns its first row, or nil when there is none.
// When assert is set and the result is empty, ErrQueryEmpty is returned wrapped with errMsg.
func (e *Executor) SelectOne(ctx context.Context, cur Cursor, query string, params *Row, assert bool, errMsg string) (*Row, error) {
	it, err := e.Select(ctx, cur, query, params)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	if it.Next() {
		return it.Row(), nil
	}
	if err := it.Err(); err != nil {
		return nil, e.fail("select", query, params, err)
	}

	if assert {
		return nil, e.empty(query, params, errMsg)
	}
	return nil, nil
}

// Execute runs a single modifying statement in autocommit mode and returns
// the normalized affected-row count.
func (e *Executor) Execute(ctx context.Context, cur Cursor, statement string, params *Row) (int64, error) {
	if e.dryRun {
		e.log.Info("Dry-run, statement simulated",
			zap.String("statement", statement),
			zap.Any("params", paramsField(params)))
		return 0, nil
	}

	start := time.Now()
	res, err := cur.ExecContext(ctx, statement, e.dialect.Bind(params)...)
	if err != nil {
		return 0, e.fail("execute", statement, params, err)
	}

	raw, err := res.RowsAffected()
	if err != nil {
		raw = -1
	}
	count := e.dialect.NormalizeCount(statement, raw)
	e.trace("execute", statement, params, count, time.Since(start))
	return count, nil
}

// ExecuteMany runs one statement for every row of a batch inside a single
// transaction and returns the total affected-row count.
func (e *Executor) ExecuteMany(ctx context.Context, cur Cursor, statement string, batch []*Row) (int64, error) {
	if len(batch) == 0 {
		return 0, ErrInvalidBatch
	}

	if e.dryRun {
		e.log.Info("Dry-run, batch simulated",
			zap.String("statement", statement),
			zap.Int("rows", len(batch)))
		return 0, nil
	}

	start := time.Now()
	tx, err := cur.BeginTx(ctx, nil)
	if err != nil {
		return 0, e.fail("execute_many", statement, nil, err)
	}

	total, err := e.execBatch(ctx, tx, statement, batch)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, e.fail("execute_many", statement, nil, err)
	}

	if e.logSQL {
		e.log.Debug("SQL batch",
			zap.String("statement", statement),
			zap.Int("rows", len(batch)),
			zap.Int64("affected", total),
			zap.Duration("duration", time.Since(start)))
	}
	return total, nil
}

func (e *Executor) execBatch(ctx context.Context, tx *sql.Tx, statement string, batch []*Row) (int64, error) {
	exec := tx.ExecContext

	// Postgres rewrites @name placeholders per call, so the statement is not prepared up front.
	if e.dialect.Binding != StyleNamedAt {
		stmt, err := tx.PrepareContext(ctx, statement)
		if err != nil {
			return 0, e.fail("execute_many", statement, nil, err)
		}
		defer stmt.Close()
		exec = func(ctx context.Context, _ string, args ...any) (sql.Result, error) {
			return stmt.ExecContext(ctx, args...)
		}
	}

	var total int64
	for _, row := range batch {
		res, err := exec(ctx, statement, e.dialect.Bind(row)...)
		if err != nil {
			return 0, e.fail("execute_many", statement, row, err)
		}
		raw, err := res.RowsAffected()
		if err != nil {
			raw = -1
		}
		total += e.dialect.NormalizeCount(statement, raw)
	}
	return total, nil
}

func (e *Executor) empty(query string, params *Row, errMsg string) error {
	if errMsg == "" {
		errMsg = "expected at least one row"
	}
	err := fmt.Errorf("%s: %w", errMsg, ErrQueryEmpty)
	e.log.Error("Query returned no rows",
		zap.String("statement", query),
		zap.Any("params", paramsField(params)),
		zap.String("reason", errMsg))
	return err
}

func (e *Executor) fail(op, statement string, params *Row, err error) error {
	e.log.Error("SQL statement failed",
		zap.String("op", op),
		zap.String("statement", statement),
		zap.Any("params", paramsField(params)),
		zap.Error(err))
	return &EngineError{Op: op, Statement: statement, Err: err}
}

func (e *Executor) trace(op, statement string, params *Row, rows int64, elapsed time.Duration) {
	if !e.logSQL {
		return
	}
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("statement", statement),
		zap.Any("params", paramsField(params)),
		zap.Duration("duration", elapsed),
	}
	if rows >= 0 {
		fields = append(fields, zap.Int64("rows", rows))
	}
	e.log.Debug("SQL", fields...)
}

func paramsField(params *Row) map[string]any {
	if params == nil {
		return nil
	}
	return params.Map()
}
