package reconcile

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Pool runs a strategy over many tables with bounded parallelism.
// Task ids are unique per pool and keep increasing across runs.
type Pool struct {
	parallelism int
	nextID      atomic.Int64
	log         *zap.Logger
}

// NewPool creates a pool running at most parallelism tables at once.
func NewPool(parallelism int, log *zap.Logger) (*Pool, error) {
	if parallelism < 1 {
		return nil, fmt.Errorf("%w: parallelism must be at least 1, got %d", ErrConfiguration, parallelism)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Pool{parallelism: parallelism, log: log}, nil
}

type completion struct {
	table  Table
	result Result
	err    error
}

// Run reconciles every table with fn. onDone, if set, is called from the
// coordinating goroutine after each table completes.
//
// The first failure stops further dispatch; tables already running are
// awaited, then the failure is returned and no results are. On success the
// results are in completion order.
func (p *Pool) Run(ctx context.Context, tables []Table, fn StrategyFunc, onDone func(Result, error)) ([]Result, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("%w: no tables to reconcile", ErrInvalidArgument)
	}
	if fn == nil {
		return nil, fmt.Errorf("%w: nil strategy", ErrInvalidArgument)
	}

	workers := min(p.parallelism, len(tables))
	dispatch := make(chan Table)
	done := make(chan completion, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range dispatch {
				r, err := fn(ctx, t)
				done <- completion{table: t, result: r, err: err}
			}
		}()
	}

	results := make([]Result, 0, len(tables))
	var (
		next     int
		inFlight int
		firstErr error
	)
	for {
		for firstErr == nil && next < len(tables) && inFlight < workers {
			if err := ctx.Err(); err != nil {
				firstErr = err
				break
			}
			t := tables[next]
			t.TaskID = p.nextID.Add(1)
			dispatch <- t
			next++
			inFlight++
		}
		if inFlight == 0 {
			break
		}

		c := <-done
		inFlight--
		if onDone != nil {
			onDone(c.result, c.err)
		}
		if c.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("table %s (task %d): %w", c.table.Name, c.table.TaskID, c.err)
			}
			continue
		}
		results = append(results, c.result)
	}

	close(dispatch)
	wg.Wait()

	if firstErr != nil {
		p.log.Error("Run aborted",
			zap.Int("tables", len(tables)),
			zap.Int("dispatched", next),
			zap.Error(firstErr))
		return nil, firstErr
	}
	return results, nil
}
