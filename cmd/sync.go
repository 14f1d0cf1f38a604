package cmd

import (
	"fmt"
	"os"

	"db-sync/feature/syncer"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the sync command
	dryRunSync bool
	testSync   bool
)

// syncCmd runs one sync operation, or all three with "full".
var syncCmd = &cobra.Command{
	Use:   "sync <insert|update|delete|full>",
	Short: "Reconcile the configured tables from source into target",
	Long: `Reconcile the tables listed in sync_tables_<operation>.json.

insert copies rows whose primary key is above the target maximum,
update rewrites rows modified since the configured watermark and
delete removes target rows that no longer exist in the source.
full runs insert, update and delete in that order.

Examples:
  # Insert new rows
  sync insert

  # Simulate a full run without writing
  sync full --dry-run`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"insert", "update", "delete", syncer.OpFull},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(nil)
		if err != nil {
			return err
		}
		defer app.logger.Sync()

		report, err := app.service.Run(cmd.Context(), args[0], syncer.RunOptions{DryRun: dryRunSync || testSync})
		if report != nil {
			out, mErr := json.MarshalIndent(report, "", "  ")
			if mErr != nil {
				return fmt.Errorf("failed to encode report: %w", mErr)
			}
			fmt.Fprintln(os.Stdout, string(out))
		}
		if err != nil {
			return err
		}

		app.logger.Info("Sync completed",
			zap.String("operation", args[0]),
			zap.Int64("rows", report.TotalRows),
			zap.Bool("dry_run", report.DryRun))
		return nil
	},
}

func init() {
	syncCmd.Flags().BoolVar(&dryRunSync, "dry-run", false, "Simulate every write")
	syncCmd.Flags().BoolVar(&testSync, "test", false, "Alias for --dry-run")
	RootCmd.AddCommand(syncCmd)
}
