package cmd

import (
	"fmt"
	"os"

	"db-sync/core/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// configPath is the directory the .env file is read from.
var configPath string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "db-sync",
	Short: "Database Sync Service",
	Long: `db-sync reconciles tables from a source database into a target database.
It inserts new rows, updates modified rows and deletes rows missing from the source,
in bounded batches over sqlite, mysql, mariadb or postgres.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		// Use the application's standard logger for error reporting
		// We default to console format to match user expectations (CLI tool)
		cfg := &logger.Config{
			Level:  "debug",
			Format: "console",
		}

		l, logErr := logger.New(cfg)
		if logErr == nil {
			l.Error("command failed", zap.Error(err))
			_ = l.Sync()
		} else {
			// Absolute fallback if logger creation fails (rare)
			fmt.Println(err)
		}
		os.Exit(1)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", ".", "directory containing the .env file")
}
