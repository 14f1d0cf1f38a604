package reconcile

import (
	"context"
	"fmt"
	"strings"

	"db-sync/core/database"

	"go.uber.org/zap"
)

// Update propagates source rows modified at or after the watermark.
// With the timestamp compare method, rows whose target modified value
// already equals the source value are skipped. Scanning stops once the
// affected rows reach Update.ApplyLimit.
func (e *Engine) Update(ctx context.Context, t Table) (Result, error) {
	res := Result{Name: t.Name, TaskID: t.TaskID}

	pk, err := e.primaryField(t)
	if err != nil {
		return res, e.fail(OpUpdate, t.Name, err)
	}
	modified := firstNonEmpty(t.ModifiedField, e.cfg.ModifiedField)
	if modified == "" {
		return res, e.fail(OpUpdate, t.Name, fmt.Errorf("%w: no modified field for table %s", ErrConfiguration, t.Name))
	}
	fromText := firstNonEmpty(t.ModifiedFromDate, e.cfg.ModifiedFromDate)
	if fromText == "" {
		return res, e.fail(OpUpdate, t.Name, fmt.Errorf("%w: no modified_from_date for table %s", ErrConfiguration, t.Name))
	}
	watermark, err := ParseWatermark(fromText, e.now())
	if err != nil {
		return res, e.fail(OpUpdate, t.Name, err)
	}
	compare := strings.ToLower(e.cfg.UpdateCompareMethod) == CompareTimestamp

	src, tgt, err := e.openPairs(ctx)
	if err != nil {
		return res, e.fail(OpUpdate, t.Name, err)
	}
	defer e.closePairs(t.Name, src, tgt)

	d := e.exec.Dialect()
	since := database.RowOf("modified_from", FormatWatermark(watermark))

	pending, err := e.count(ctx, src.Conn,
		fmt.Sprintf("SELECT COUNT(*) AS total FROM %s WHERE %s >= %s", t.Name, modified, d.Placeholder("modified_from")),
		since)
	if err != nil {
		return res, e.fail(OpUpdate, t.Name, err)
	}
	e.log.Info("Update scan",
		zap.String("table", t.Name),
		zap.Int64("task_id", t.TaskID),
		zap.String("modified_from", FormatWatermark(watermark)),
		zap.Int64("pending", pending))

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s >= %s ORDER BY %s LIMIT %s",
		t.Name, modified, d.Placeholder("modified_from"), pk, d.Placeholder("select_window"))
	it, err := e.exec.Select(ctx, src.Conn, query,
		database.RowOf("modified_from", FormatWatermark(watermark), "select_window", int64(e.cfg.Update.SelectWindow)))
	if err != nil {
		return res, e.fail(OpUpdate, t.Name, err)
	}
	defer it.Close()

	lookup := fmt.Sprintf("SELECT %s AS modified FROM %s WHERE %s = %s", modified, t.Name, pk, d.Placeholder(pk))

	var (
		statement string
		order     []string
		applied   int
		skipped   int
	)

	for it.Next() {
		row := it.Row()
		if statement == "" {
			var sets []string
			for _, col := range row.Columns() {
				if col == pk {
					continue
				}
				sets = append(sets, fmt.Sprintf("%s = %s", col, d.Placeholder(col)))
				order = append(order, col)
			}
			if len(sets) == 0 {
				e.log.Warn("Table has no columns besides the primary key, nothing to update",
					zap.String("table", t.Name))
				return res, nil
			}
			// Params follow the SET ... WHERE placeholder order.
			order = append(order, pk)
			statement = fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
				t.Name, strings.Join(sets, ", "), pk, d.Placeholder(pk))
		}

		if compare {
			id, _ := row.Get(pk)
			current, err := e.exec.SelectOne(ctx, tgt.Conn, lookup, database.RowOf(pk, id), false, "")
			if err != nil {
				return res, e.fail(OpUpdate, t.Name, err)
			}
			if current != nil {
				srcValue, _ := row.Get(modified)
				tgtValue, _ := current.Get("modified")
				if SameValue(srcValue, tgtValue) {
					skipped++
					continue
				}
			}
		}

		n, err := e.exec.Execute(ctx, tgt.Conn, statement, row.Select(order...))
		if err != nil {
			return res, e.fail(OpUpdate, t.Name, err)
		}
		res.RowsAffected += n
		applied++

		if res.RowsAffected >= int64(e.cfg.Update.ApplyLimit) {
			break
		}
	}
	if err := it.Err(); err != nil {
		return res, e.fail(OpUpdate, t.Name, err)
	}

	e.log.Info("Update done",
		zap.String("table", t.Name),
		zap.Int64("task_id", t.TaskID),
		zap.Int("applied", applied),
		zap.Int("skipped", skipped),
		zap.Int64("rows", res.RowsAffected))
	return res, nil
}
