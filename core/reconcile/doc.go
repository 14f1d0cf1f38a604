// Package reconcile brings a target database in line with a source database,
// one table and one change category at a time.
//
// # Strategies
//
// Each strategy reconciles a single table and opens its own source and target
// connections, released on every exit path:
//
//   - Insert copies source rows whose primary key is above the target maximum.
//   - Update re-applies source rows modified at or after a watermark.
//   - Delete removes target rows missing from source, scanning fixed id windows.
//
// Select windows bound how much is read per call and apply limits bound how
// much is written. All writes go through the database Executor, so dry-run
// turns every strategy into a read-only report.
//
// # Scheduling
//
// Pool runs one strategy over a list of tables with bounded parallelism,
// stamps each table with a task id when it is dispatched and stops at the
// first failure.
//
// # Usage
//
//	engine, err := reconcile.NewEngine(cfg.Sync, connector, dialect, cfg.Database.LogSQL, log)
//	if err != nil {
//	    return err
//	}
//	pool, _ := reconcile.NewPool(cfg.Sync.MaxParallelism, log)
//	results, err := pool.Run(ctx, tables, engine.Insert, nil)
package reconcile
