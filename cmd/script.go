package cmd

import (
	"fmt"

	"db-sync/core/database"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the script command
	scriptSide   string
	dryRunScript bool
)

// scriptCmd runs a SQL script against one side of the sync.
var scriptCmd = &cobra.Command{
	Use:   "script <file>",
	Short: "Execute a SQL script against the source or target database",
	Long: `Executes every statement of a SQL script in order.
Statements are separated by ';'. Write '$$' where a literal ';' is needed.

Examples:
  # Prepare the target schema
  script schema.sql --side target`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(nil)
		if err != nil {
			return err
		}
		defer app.logger.Sync()

		var pair *database.Pair
		switch scriptSide {
		case "source":
			pair, err = app.connector.Source(cmd.Context())
		case "target":
			pair, err = app.connector.Target(cmd.Context())
		default:
			return fmt.Errorf("invalid side %q: must be source or target", scriptSide)
		}
		if err != nil {
			return err
		}
		defer pair.Close()

		engine := app.engine
		if dryRunScript {
			engine = engine.WithDryRun(true)
		}

		rows, err := engine.Executor().ExecuteScript(cmd.Context(), pair.Conn, args[0])
		if err != nil {
			return err
		}
		app.logger.Info("Script executed",
			zap.String("file", args[0]),
			zap.String("side", scriptSide),
			zap.Int64("rows", rows),
			zap.Bool("dry_run", engine.Config().DryRun))
		return nil
	},
}

func init() {
	scriptCmd.Flags().StringVar(&scriptSide, "side", "target", "Database to run the script on (source|target)")
	scriptCmd.Flags().BoolVar(&dryRunScript, "dry-run", false, "Log the statements without executing them")
	RootCmd.AddCommand(scriptCmd)
}
