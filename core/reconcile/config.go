package reconcile

import (
	"fmt"
	"strings"
)

// Compare methods for the update strategy.
const (
	CompareNone      = "none"
	CompareTimestamp = "timestamp"
)

// OperationLimits bounds one reconciliation call.
type OperationLimits struct {
	// SelectWindow is the maximum number of rows (or ids, for delete) inspected per call.
	SelectWindow int `mapstructure:"select_window" default:"10000"`
	// ApplyLimit is the maximum number of rows written per call.
	ApplyLimit int `mapstructure:"apply_limit" default:"1"`
}

// InsertLimits adds the batch size to the insert bounds.
type InsertLimits struct {
	// SelectWindow is the maximum number of source rows streamed per call.
	SelectWindow int `mapstructure:"select_window" default:"10000"`
	// ApplyLimit is the maximum number of rows inserted per call.
	ApplyLimit int `mapstructure:"apply_limit" default:"1"`
	// BatchSize is the number of rows written per transaction.
	BatchSize int `mapstructure:"batch_size" default:"1000"`
}

// Config holds the sync settings shared by every strategy.
type Config struct {
	// MaxParallelism is the number of tables reconciled at once.
	MaxParallelism int `mapstructure:"max_parallelism" default:"2"`
	// DryRun suppresses every write; reads still run.
	DryRun bool `mapstructure:"dry_run" default:"false"`
	// PrimaryField is the default primary key column.
	PrimaryField string `mapstructure:"primary_field" default:"id"`
	// ModifiedField is the default last-modified column used by update.
	ModifiedField string `mapstructure:"modified_field" default:""`
	// ModifiedFromDate is the default update watermark ("today", "2 days ago", "2024-01-31").
	ModifiedFromDate string `mapstructure:"modified_from_date" default:"today"`
	// UpdateCompareMethod is "none" or "timestamp".
	UpdateCompareMethod string `mapstructure:"update_compare_method" default:"none"`
	// TablesDir holds the sync_tables_<operation>.json files.
	TablesDir string `mapstructure:"tables_dir" default:"."`

	Insert InsertLimits    `mapstructure:"insert"`
	Update OperationLimits `mapstructure:"update"`
	Delete OperationLimits `mapstructure:"delete"`
}

// Validate checks that every limit is positive and the compare method is known.
func (c Config) Validate() error {
	checks := []struct {
		name  string
		value int
	}{
		{"max_parallelism", c.MaxParallelism},
		{"insert.select_window", c.Insert.SelectWindow},
		{"insert.apply_limit", c.Insert.ApplyLimit},
		{"insert.batch_size", c.Insert.BatchSize},
		{"update.select_window", c.Update.SelectWindow},
		{"update.apply_limit", c.Update.ApplyLimit},
		{"delete.select_window", c.Delete.SelectWindow},
		{"delete.apply_limit", c.Delete.ApplyLimit},
	}
	for _, chk := range checks {
		if chk.value < 1 {
			return fmt.Errorf("%w: %s must be positive, got %d", ErrConfiguration, chk.name, chk.value)
		}
	}

	switch strings.ToLower(c.UpdateCompareMethod) {
	case "", CompareNone, CompareTimestamp:
	default:
		return fmt.Errorf("%w: unknown update compare method %q", ErrConfiguration, c.UpdateCompareMethod)
	}
	return nil
}

// DefaultConfig returns the configuration used when no overrides are set.
func DefaultConfig() Config {
	return Config{
		MaxParallelism:      2,
		PrimaryField:        "id",
		ModifiedFromDate:    "today",
		UpdateCompareMethod: CompareNone,
		TablesDir:           ".",
		Insert:              InsertLimits{SelectWindow: 10000, ApplyLimit: 1, BatchSize: 1000},
		Update:              OperationLimits{SelectWindow: 10000, ApplyLimit: 1},
		Delete:              OperationLimits{SelectWindow: 10000, ApplyLimit: 1},
	}
}
