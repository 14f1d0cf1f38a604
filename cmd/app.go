package cmd

import (
	"fmt"

	"db-sync/core/config"
	"db-sync/core/database"
	"db-sync/core/logger"
	"db-sync/core/metrics"
	"db-sync/core/reconcile"
	"db-sync/core/storage"
	"db-sync/feature/syncer"

	"go.uber.org/zap"
)

// application bundles everything a command needs to run syncs.
type application struct {
	cfg       *config.Config
	logger    *zap.Logger
	connector *database.Connector
	engine    *reconcile.Engine
	service   *syncer.Service
}

// bootstrap loads the configuration and wires the sync service. m may be nil.
func bootstrap(m *metrics.Metrics) (*application, error) {
	// 1. Load Configuration
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// 2. Initialize Logger
	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	zap.ReplaceGlobals(logg)
	logg = logg.With(zap.String("engine", cfg.Database.Engine))

	// 3. Database Connector and Engine
	dialect, err := database.DialectFor(cfg.Database.Engine)
	if err != nil {
		return nil, err
	}
	connector := database.NewConnector(cfg.Database, logg)
	engine, err := reconcile.NewEngine(cfg.Sync, connector, dialect, cfg.Database.LogSQL, logg)
	if err != nil {
		return nil, err
	}

	// 4. Report Storage (Optional)
	var reporter *syncer.Reporter
	if cfg.Storage.Enabled {
		store, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, err
		}
		reporter = syncer.NewReporter(store, cfg.Storage, logg)
	}

	service, err := syncer.NewService(syncer.Options{
		Engine:    engine,
		Connector: connector,
		SourceDB:  cfg.Database.Source.DBName,
		Tables:    syncer.NewTableLoader(cfg.Sync.TablesDir),
		Reporter:  reporter,
		Metrics:   m,
		Logger:    logg,
	})
	if err != nil {
		return nil, err
	}

	return &application{
		cfg:       cfg,
		logger:    logg,
		connector: connector,
		engine:    engine,
		service:   service,
	}, nil
}
