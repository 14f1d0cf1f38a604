package reconcile

import "context"

// Operation names.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Table describes one table to reconcile.
// Empty fields fall back to the Config defaults.
type Table struct {
	// Name is the table name, identical on both sides.
	Name string `json:"name"`

	// PrimaryField overrides Config.PrimaryField.
	PrimaryField string `json:"primary_field,omitempty"`

	// ModifiedField overrides Config.ModifiedField.
	ModifiedField string `json:"modified_field,omitempty"`

	// ModifiedFromDate overrides Config.ModifiedFromDate.
	ModifiedFromDate string `json:"modified_from_date,omitempty"`

	// TaskID is stamped by the Pool at dispatch time.
	TaskID int64 `json:"-"`
}

// Result is the outcome of reconciling one table.
type Result struct {
	// Name is the table name.
	Name string `json:"name"`

	// RowsAffected is the number of rows written.
	RowsAffected int64 `json:"rowsAffected"`

	// TaskID is the id assigned at dispatch.
	TaskID int64 `json:"taskId"`
}

// StrategyFunc reconciles a single table.
type StrategyFunc func(ctx context.Context, table Table) (Result, error)
