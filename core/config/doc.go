// Package config provides configuration management for db-sync.
//
// It utilizes Viper for loading configuration from environment variables and
// an optional .env file loaded with godotenv.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Database: engine and source/target connection details (DATABASE_*)
//   - Sync: parallelism, dry-run, default fields and per-operation limits (SYNC_*)
//   - Server: HTTP trigger settings (SERVER_*)
//   - Storage: S3/MinIO settings for run reports (STORAGE_*)
//   - Log: Logging level and format (LOG_*)
//
// Defaults come from the `default` struct tags of each section.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Sync.MaxParallelism)
package config
