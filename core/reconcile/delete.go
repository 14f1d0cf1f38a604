package reconcile

import (
	"context"
	"fmt"

	"db-sync/core/database"
	"db-sync/core/utils"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Delete removes target rows whose primary key no longer exists in source.
// The target id space is scanned in windows of Delete.SelectWindow ids; each
// window deletes at most Delete.ApplyLimit rows, and scanning stops after the
// first window that reaches the limit.
func (e *Engine) Delete(ctx context.Context, t Table) (Result, error) {
	res := Result{Name: t.Name, TaskID: t.TaskID}

	pk, err := e.primaryField(t)
	if err != nil {
		return res, e.fail(OpDelete, t.Name, err)
	}

	src, tgt, err := e.openPairs(ctx)
	if err != nil {
		return res, e.fail(OpDelete, t.Name, err)
	}
	defer e.closePairs(t.Name, src, tgt)

	tgtMax, err := e.maxID(ctx, tgt.Conn, t.Name, pk)
	if err != nil {
		return res, e.fail(OpDelete, t.Name, err)
	}

	d := e.exec.Dialect()
	idsQuery := fmt.Sprintf("SELECT %s AS id FROM %s WHERE %s BETWEEN %s AND %s ORDER BY %s",
		pk, t.Name, pk, d.Placeholder("window_start"), d.Placeholder("window_end"), pk)

	windows := Windows(tgtMax, int64(e.cfg.Delete.SelectWindow))
	e.log.Info("Delete scan",
		zap.String("table", t.Name),
		zap.Int64("task_id", t.TaskID),
		zap.Int64("target_max", tgtMax),
		zap.Int("windows", len(windows)))

	limit := e.cfg.Delete.ApplyLimit
	for _, w := range windows {
		bounds := database.RowOf("window_start", w.Start, "window_end", w.End)

		var srcRows, tgtRows []*database.Row
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			var err error
			srcRows, err = e.exec.SelectAll(gctx, src.Conn, idsQuery, bounds, false, "")
			return err
		})
		g.Go(func() error {
			var err error
			tgtRows, err = e.exec.SelectAll(gctx, tgt.Conn, idsQuery, bounds, false, "")
			return err
		})
		if err := g.Wait(); err != nil {
			return res, e.fail(OpDelete, t.Name, err)
		}

		present := mapset.NewThreadUnsafeSetWithSize[string](len(srcRows))
		for _, r := range srcRows {
			v, _ := r.Get("id")
			present.Add(utils.ToString(v))
		}

		var candidates []any
		for _, r := range tgtRows {
			v, _ := r.Get("id")
			if !present.Contains(utils.ToString(v)) {
				candidates = append(candidates, v)
			}
		}

		found := len(candidates)
		if found == 0 {
			continue
		}
		if found > limit {
			e.log.Warn("Delete candidates truncated to apply limit",
				zap.String("table", t.Name),
				zap.Int64("window_start", w.Start),
				zap.Int64("window_end", w.End),
				zap.Int("candidates", found),
				zap.Int("apply_limit", limit))
			candidates = candidates[:limit]
		}

		params := database.NewRow(len(candidates))
		names := make([]string, len(candidates))
		for i, id := range candidates {
			names[i] = fmt.Sprintf("id_%d", i)
			params.Set(names[i], id)
		}
		statement := fmt.Sprintf("DELETE FROM %s WHERE %s IN (%s)", t.Name, pk, d.Placeholders(names))

		n, err := e.exec.Execute(ctx, tgt.Conn, statement, params)
		if err != nil {
			return res, e.fail(OpDelete, t.Name, err)
		}
		res.RowsAffected += n

		if found >= limit {
			break
		}
	}

	e.log.Info("Delete done",
		zap.String("table", t.Name),
		zap.Int64("task_id", t.TaskID),
		zap.Int64("rows", res.RowsAffected))
	return res, nil
}

