package reconcile

import (
	"context"
	"fmt"
	"strings"

	"db-sync/core/database"

	"go.uber.org/zap"
)

// Insert copies source rows whose primary key is above the target maximum.
// At most Insert.SelectWindow rows are streamed and Insert.ApplyLimit rows
// written, in transactions of Insert.BatchSize rows.
func (e *Engine) Insert(ctx context.Context, t Table) (Result, error) {
	res := Result{Name: t.Name, TaskID: t.TaskID}

	pk, err := e.primaryField(t)
	if err != nil {
		return res, e.fail(OpInsert, t.Name, err)
	}

	src, tgt, err := e.openPairs(ctx)
	if err != nil {
		return res, e.fail(OpInsert, t.Name, err)
	}
	defer e.closePairs(t.Name, src, tgt)

	srcMax, tgtMax, err := e.maxIDs(ctx, src.Conn, tgt.Conn, t.Name, pk)
	if err != nil {
		return res, e.fail(OpInsert, t.Name, err)
	}

	d := e.exec.Dialect()
	after := database.RowOf("max_target_id", tgtMax)

	pending, err := e.count(ctx, src.Conn,
		fmt.Sprintf("SELECT COUNT(*) AS total FROM %s WHERE %s > %s", t.Name, pk, d.Placeholder("max_target_id")),
		after)
	if err != nil {
		return res, e.fail(OpInsert, t.Name, err)
	}
	e.log.Info("Insert scan",
		zap.String("table", t.Name),
		zap.Int64("task_id", t.TaskID),
		zap.Int64("source_max", srcMax),
		zap.Int64("target_max", tgtMax),
		zap.Int64("pending", pending))

	if srcMax <= tgtMax {
		return res, nil
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s > %s ORDER BY %s LIMIT %s",
		t.Name, pk, d.Placeholder("max_target_id"), pk, d.Placeholder("select_window"))
	it, err := e.exec.Select(ctx, src.Conn, query,
		database.RowOf("max_target_id", tgtMax, "select_window", int64(e.cfg.Insert.SelectWindow)))
	if err != nil {
		return res, e.fail(OpInsert, t.Name, err)
	}
	defer it.Close()

	var (
		statement string
		columns   []string
		batch     = make([]*database.Row, 0, e.cfg.Insert.BatchSize)
		consumed  int
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := e.exec.ExecuteMany(ctx, tgt.Conn, statement, batch)
		if err != nil {
			return err
		}
		res.RowsAffected += n
		batch = batch[:0]
		return nil
	}

	for it.Next() {
		row := it.Row()
		if statement == "" {
			columns = row.Columns()
			statement = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
				t.Name, strings.Join(columns, ", "), d.Placeholders(columns))
		}

		batch = append(batch, row.Select(columns...))
		consumed++

		if len(batch) >= e.cfg.Insert.BatchSize {
			if err := flush(); err != nil {
				return res, e.fail(OpInsert, t.Name, err)
			}
		}
		if consumed >= e.cfg.Insert.ApplyLimit {
			break
		}
	}
	if err := it.Err(); err != nil {
		return res, e.fail(OpInsert, t.Name, err)
	}
	if err := flush(); err != nil {
		return res, e.fail(OpInsert, t.Name, err)
	}

	e.log.Info("Insert done",
		zap.String("table", t.Name),
		zap.Int64("task_id", t.TaskID),
		zap.Int("consumed", consumed),
		zap.Int64("rows", res.RowsAffected))
	return res, nil
}
