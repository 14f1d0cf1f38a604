package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// showTablesCmd writes the source table list to sync_tables_show_tables.json.
var showTablesCmd = &cobra.Command{
	Use:   "show-tables",
	Short: "List the base tables of the source database",
	Long: `Reads the source catalog and writes every base table name to
sync_tables_show_tables.json in the configured tables directory.
The file can be copied into a sync_tables_<operation>.json list.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := bootstrap(nil)
		if err != nil {
			return err
		}
		defer app.logger.Sync()

		summary, err := app.service.ShowTables(cmd.Context())
		if err != nil {
			return err
		}
		app.logger.Info("Source tables listed",
			zap.String("file", summary.File),
			zap.Int("tables", summary.TableCount),
			zap.Int64("size", summary.Size))
		fmt.Printf("%d tables written to %s (%d bytes)\n", summary.TableCount, summary.File, summary.Size)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(showTablesCmd)
}
