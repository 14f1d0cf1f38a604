// Package database handles database connections and statement execution for
// both sides of a sync.
//
// # Connect
//
// Connect opens a GORM handle for one endpoint using the configured engine
// (sqlite, mysql, mariadb or postgres). A Connector hands out Pairs, each an
// exclusive *sql.Conn with the handle that owns it. Pairs are opened per task
// and must be closed by the caller.
//
// # Dialects
//
// A Dialect resolves the parameter binding convention of an engine once:
// positional "?" for mysql/mariadb, ":name" for sqlite and "@name" (pgx named
// arguments) for postgres. Statements are built with Placeholder and their
// parameters, an ordered Row, are turned into driver arguments with Bind.
//
// # Execution
//
// The Executor is the only path statements take to a database. Reads always
// run. Modifications are skipped and logged when dry-run is enabled. Driver
// failures are logged and returned as *EngineError.
//
// # Usage
//
//	d, _ := database.DialectFor(cfg.Database.Engine)
//	ex := database.NewExecutor(d, dryRun, cfg.Database.LogSQL, log)
//
//	pair, err := database.NewConnector(cfg.Database, log).Source(ctx)
//	if err != nil {
//	    return err
//	}
//	defer pair.Close()
//
//	row, err := ex.SelectOne(ctx, pair.Conn, "SELECT MAX(id) AS max_id FROM users", nil, true, "")
package database
