package syncer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync/atomic"
	"time"

	"db-sync/core/database"
	"db-sync/core/metrics"
	"db-sync/core/reconcile"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// OpFull runs insert, update and delete in that order.
const OpFull = "full"

// ErrRunInProgress is returned when a run is requested while another one is active.
var ErrRunInProgress = errors.New("a sync run is already in progress")

// RunOptions tunes a single run.
type RunOptions struct {
	// DryRun simulates every write. It is combined with the configured dry-run flag.
	DryRun bool
}

// Options wires the service collaborators. Reporter and Metrics are optional.
type Options struct {
	Engine    *reconcile.Engine
	Connector reconcile.Connector
	SourceDB  string
	Tables    *TableLoader
	Reporter  *Reporter
	Metrics   *metrics.Metrics
	Logger    *zap.Logger
}

// Service orchestrates sync runs.
type Service struct {
	engine    *reconcile.Engine
	pool      *reconcile.Pool
	connector reconcile.Connector
	sourceDB  string
	tables    *TableLoader
	reporter  *Reporter
	metrics   *metrics.Metrics
	logger    *zap.Logger

	running atomic.Bool
	catalog singleflight.Group
}

// NewService creates a sync service.
func NewService(opts Options) (*Service, error) {
	if opts.Engine == nil || opts.Connector == nil || opts.Tables == nil {
		return nil, fmt.Errorf("%w: engine, connector and table loader are required", reconcile.ErrInvalidArgument)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	pool, err := reconcile.NewPool(opts.Engine.Config().MaxParallelism, logger)
	if err != nil {
		return nil, err
	}

	return &Service{
		engine:    opts.Engine,
		pool:      pool,
		connector: opts.Connector,
		sourceDB:  opts.SourceDB,
		tables:    opts.Tables,
		reporter:  opts.Reporter,
		metrics:   opts.Metrics,
		logger:    logger,
	}, nil
}

// Operations returns the operations a run performs for op.
func Operations(op string) ([]string, error) {
	switch op {
	case reconcile.OpInsert, reconcile.OpUpdate, reconcile.OpDelete:
		return []string{op}, nil
	case OpFull:
		return []string{reconcile.OpInsert, reconcile.OpUpdate, reconcile.OpDelete}, nil
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", reconcile.ErrInvalidArgument, op)
	}
}

// Run executes op over its table list. Only one run is active at a time.
// On failure the report carries the phases completed before the failing one.
func (s *Service) Run(ctx context.Context, op string, opts RunOptions) (*RunReport, error) {
	ops, err := Operations(op)
	if err != nil {
		return nil, err
	}

	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	dryRun := opts.DryRun || s.engine.Config().DryRun
	engine := s.engine
	if dryRun != engine.Config().DryRun {
		engine = engine.WithDryRun(dryRun)
	}

	report := &RunReport{
		RunID:     uuid.New(),
		Operation: op,
		DryRun:    dryRun,
		StartedAt: time.Now(),
	}
	log := s.logger.With(zap.String("run_id", report.RunID.String()), zap.String("operation", op))
	log.Info("Sync run started", zap.Bool("dry_run", dryRun))

	if s.metrics != nil {
		s.metrics.RunsActive.Inc()
		defer s.metrics.RunsActive.Dec()
	}

	runErr := s.runPhases(ctx, engine, ops, report, log)
	report.Duration = time.Since(report.StartedAt)
	if runErr != nil {
		report.Error = runErr.Error()
	}

	if s.metrics != nil {
		s.metrics.ObserveRun(op, dryRun, report.Duration, runErr)
	}
	s.publish(ctx, report, log)

	if runErr != nil {
		log.Error("Sync run failed", zap.Duration("duration", report.Duration), zap.Error(runErr))
		return report, runErr
	}
	log.Info("Sync run finished",
		zap.Int64("rows", report.TotalRows),
		zap.Duration("duration", report.Duration))
	return report, nil
}

func (s *Service) runPhases(ctx context.Context, engine *reconcile.Engine, ops []string, report *RunReport, log *zap.Logger) error {
	for _, op := range ops {
		tables, err := s.tables.Load(op)
		if err != nil {
			return err
		}
		fn, err := engine.Strategy(op)
		if err != nil {
			return err
		}

		log.Info("Phase started", zap.String("phase", op), zap.Int("tables", len(tables)))
		results, err := s.pool.Run(ctx, tables, fn, func(r reconcile.Result, err error) {
			if s.metrics != nil {
				s.metrics.ObserveTable(op, r.Name, r.RowsAffected, err)
			}
		})
		if err != nil {
			return fmt.Errorf("%s phase: %w", op, err)
		}

		phase := Phase{Operation: op, Results: results}
		for _, r := range results {
			phase.TotalRows += r.RowsAffected
		}
		report.Phases = append(report.Phases, phase)
		report.TotalRows += phase.TotalRows
	}
	return nil
}

func (s *Service) publish(ctx context.Context, report *RunReport, log *zap.Logger) {
	if s.reporter == nil {
		return
	}
	// Publishing is best effort.
	if _, err := s.reporter.Publish(ctx, report); err != nil {
		log.Warn("Failed to publish run report", zap.Error(err))
	}
}

// ShowTables lists the base tables of the source database, writes them to
// the show_tables file and returns its summary. Concurrent calls share one
// catalog read.
func (s *Service) ShowTables(ctx context.Context) (*TablesSummary, error) {
	v, err, _ := s.catalog.Do(ShowTablesName, func() (any, error) {
		pair, err := s.connector.Source(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to open source connection: %w", err)
		}
		defer pair.Close()

		names, err := s.engine.Executor().ListTables(ctx, pair.Conn, s.sourceDB)
		if err != nil {
			return nil, err
		}
		sort.Strings(names)

		path, size, err := s.tables.WriteShowTables(names)
		if err != nil {
			return nil, err
		}
		s.logger.Info("Wrote source table list", zap.String("file", path), zap.Int("tables", len(names)))
		return &TablesSummary{File: path, Size: size, TableCount: len(names)}, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*TablesSummary), nil
}

// Columns describes the columns of a source table. Only tables listed in
// the source catalog are described.
func (s *Service) Columns(ctx context.Context, table string) ([]database.ColumnInfo, error) {
	if !database.ValidIdentifier(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", reconcile.ErrInvalidArgument, table)
	}
	pair, err := s.connector.Source(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open source connection: %w", err)
	}
	defer pair.Close()

	names, err := s.engine.Executor().ListTables(ctx, pair.Conn, s.sourceDB)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(names, table) {
		return nil, fmt.Errorf("%w: table %s not found", reconcile.ErrInvalidArgument, table)
	}

	return database.GetTableColumns(pair.DB.WithContext(ctx), table)
}

// Reports lists published run reports. It returns nil when publishing is off.
func (s *Service) Reports(ctx context.Context) ([]ReportInfo, error) {
	if s.reporter == nil {
		return nil, nil
	}
	return s.reporter.List(ctx)
}
