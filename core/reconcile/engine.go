package reconcile

import (
	"context"
	"fmt"
	"time"

	"db-sync/core/database"
	"db-sync/core/utils"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Connector opens exclusive connection pairs to both sides of a sync.
type Connector interface {
	Source(ctx context.Context) (*database.Pair, error)
	Target(ctx context.Context) (*database.Pair, error)
}

// Engine runs the insert, update and delete strategies for single tables.
// An Engine is safe for concurrent use; every call opens its own pairs.
type Engine struct {
	cfg       Config
	connector Connector
	exec      *database.Executor
	logSQL    bool
	now       func() time.Time
	log       *zap.Logger
}

// NewEngine creates an engine. The dry-run flag of cfg is captured here and
// never changes for the lifetime of the engine.
func NewEngine(cfg Config, connector Connector, dialect database.Dialect, logSQL bool, log *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		cfg:       cfg,
		connector: connector,
		exec:      database.NewExecutor(dialect, cfg.DryRun, logSQL, log),
		logSQL:    logSQL,
		now:       time.Now,
		log:       log,
	}, nil
}

// WithDryRun returns a copy of the engine with the given dry-run flag.
func (e *Engine) WithDryRun(dryRun bool) *Engine {
	cp := *e
	cp.cfg.DryRun = dryRun
	cp.exec = database.NewExecutor(e.exec.Dialect(), dryRun, e.logSQL, e.log)
	return &cp
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Executor returns the executor statements run through.
func (e *Engine) Executor() *database.Executor {
	return e.exec
}

// Strategy returns the strategy function for an operation name.
func (e *Engine) Strategy(op string) (StrategyFunc, error) {
	switch op {
	case OpInsert:
		return e.Insert, nil
	case OpUpdate:
		return e.Update, nil
	case OpDelete:
		return e.Delete, nil
	default:
		return nil, fmt.Errorf("%w: unknown operation %q", ErrInvalidArgument, op)
	}
}

func (e *Engine) primaryField(t Table) (string, error) {
	pk := firstNonEmpty(t.PrimaryField, e.cfg.PrimaryField)
	if pk == "" {
		return "", fmt.Errorf("%w: no primary field for table %s", ErrConfiguration, t.Name)
	}
	return pk, nil
}

// openPairs opens a source and a target pair. On failure nothing is left open.
func (e *Engine) openPairs(ctx context.Context) (src, tgt *database.Pair, err error) {
	src, err = e.connector.Source(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open source connection: %w", err)
	}
	tgt, err = e.connector.Target(ctx)
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("failed to open target connection: %w", err)
	}
	return src, tgt, nil
}

func (e *Engine) closePairs(table string, pairs ...*database.Pair) {
	for _, p := range pairs {
		if err := p.Close(); err != nil {
			e.log.Warn("Failed to close connection", zap.String("table", table), zap.Error(err))
		}
	}
}

// maxID reads MAX(pk) from one side; an empty table yields 0.
func (e *Engine) maxID(ctx context.Context, cur database.Cursor, table, pk string) (int64, error) {
	query := fmt.Sprintf("SELECT MAX(%s) AS max_id FROM %s", pk, table)
	row, err := e.exec.SelectOne(ctx, cur, query, nil, false, "")
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, nil
	}
	v, _ := row.Get("max_id")
	return utils.ToInt64(v), nil
}

// maxIDs reads MAX(pk) from source and target concurrently.
func (e *Engine) maxIDs(ctx context.Context, src, tgt database.Cursor, table, pk string) (srcMax, tgtMax int64, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		srcMax, err = e.maxID(gctx, src, table, pk)
		return err
	})
	g.Go(func() error {
		var err error
		tgtMax, err = e.maxID(gctx, tgt, table, pk)
		return err
	})
	if err := g.Wait(); err != nil {
		return 0, 0, err
	}
	return srcMax, tgtMax, nil
}

// count runs a COUNT(*) query for diagnostics.
func (e *Engine) count(ctx context.Context, cur database.Cursor, query string, params *database.Row) (int64, error) {
	row, err := e.exec.SelectOne(ctx, cur, query, params, true, "count query returned no rows")
	if err != nil {
		return 0, err
	}
	v, _ := row.Get("total")
	return utils.ToInt64(v), nil
}

func (e *Engine) fail(op, table string, err error) error {
	e.log.Error("Reconciliation failed",
		zap.String("operation", op),
		zap.String("table", table),
		zap.Error(err))
	return fmt.Errorf("%s %s: %w", op, table, err)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
