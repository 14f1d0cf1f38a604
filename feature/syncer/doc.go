// Package syncer orchestrates sync runs.
//
// A run loads the table list of an operation (sync_tables_<operation>.json),
// reconciles every table through the bounded pool and aggregates the results
// into a RunReport. The "full" operation runs insert, update and delete in
// that order, each with its own table list. Only one run is active at a time.
//
// # Show Tables
//
// ShowTables lists the base tables of the source catalog and writes them to
// sync_tables_show_tables.json, a convenient starting point for the
// per-operation lists.
//
// # Reports
//
// When storage is enabled, each finished run report is uploaded as JSON to
// the configured bucket. Publishing failures are logged and do not fail the run.
//
// # HTTP
//
//	POST /sync/:operation?dry_run=true
//	GET  /sync/tables
//	GET  /sync/reports
//	GET  /metrics
package syncer
