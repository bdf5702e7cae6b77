package engine

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/apexsim/racesim/internal/domain/model"
	"github.com/apexsim/racesim/pkg/logger"
	"github.com/apexsim/racesim/pkg/metrics"
)

// BatchOption applies a configuration option to the MonteCarlo driver.
type BatchOption func(*MonteCarlo)

// WithIterations sets the replay count per batch.
func WithIterations(n int) BatchOption {
	return func(mc *MonteCarlo) {
		if n > 0 {
			mc.iterations = n
		}
	}
}

// WithWorkers bounds the parallel replay workers.
func WithWorkers(n int) BatchOption {
	return func(mc *MonteCarlo) {
		if n > 0 {
			mc.workers = n
		}
	}
}

// WithSeed sets the base seed. Iteration i replays with its own stream
// seeded base+i, so iterations never share generator state and any
// single iteration can be reproduced in isolation.
func WithSeed(seed int64) BatchOption {
	return func(mc *MonteCarlo) { mc.seed = seed }
}

// WithBatchLogger sets the batch logger.
func WithBatchLogger(log logger.Logger) BatchOption {
	return func(mc *MonteCarlo) {
		if log != nil {
			mc.log = log
		}
	}
}

// BatchResult is the collected output of one Monte Carlo batch.
type BatchResult struct {
	ID         uuid.UUID
	Iterations int
	Elapsed    time.Duration
	Outcomes   []model.RaceOutcome
}

// MonteCarlo replays a race many times over shared read-only fits.
type MonteCarlo struct {
	engine     *Engine
	iterations int
	workers    int
	seed       int64
	log        logger.Logger
}

// NewMonteCarlo creates a batch driver around the engine.
func NewMonteCarlo(engine *Engine, opts ...BatchOption) (*MonteCarlo, error) {
	if engine == nil {
		return nil, fmt.Errorf("%w: engine is required", ErrInvalidParams)
	}
	mc := &MonteCarlo{
		engine:     engine,
		iterations: 1000,
		workers:    runtime.NumCPU(),
		seed:       1,
		log:        logger.Get().Named("montecarlo"),
	}
	for _, opt := range opts {
		opt(mc)
	}
	return mc, nil
}

// RunBatch executes the configured number of independent replays and
// collects one outcome per iteration, in iteration order.
//
// Iterations are embarrassingly parallel; a bounded worker pool runs
// them concurrently. Cancellation is cooperative at iteration
// boundaries. One failed replay fails the whole batch: a mid-replay
// error is a setup defect that would taint every iteration identically,
// so partial results are never returned.
func (mc *MonteCarlo) RunBatch(ctx context.Context, entries []*model.Entry) (*BatchResult, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}

	batchID := uuid.New()
	start := time.Now()
	metrics.RecordBatchStarted()
	metrics.UpdateGridSize(len(entries))
	metrics.UpdateActiveWorkers(mc.workers)
	defer metrics.UpdateActiveWorkers(0)

	mc.log.Info(ctx, "batch started",
		logger.String("batch_id", batchID.String()),
		logger.Int("iterations", mc.iterations),
		logger.Int("workers", mc.workers),
		logger.Int("grid_size", len(entries)))

	outcomes := make([]model.RaceOutcome, mc.iterations)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(mc.workers)

	for i := 0; i < mc.iterations; i++ {
		if err := gctx.Err(); err != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			replayStart := time.Now()
			rng := rand.New(rand.NewSource(mc.seed + int64(i)))
			outcome, err := mc.engine.Run(i, entries, rng)
			if err != nil {
				metrics.RecordReplayFailed()
				return fmt.Errorf("replay %d: %w", i, err)
			}
			metrics.RecordReplayCompleted(time.Since(replayStart).Seconds())
			outcomes[i] = outcome
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		// The loop bails out silently when the context dies before all
		// iterations are scheduled; surface that as a batch failure.
		err = ctx.Err()
	}
	if err != nil {
		mc.log.Error(ctx, "batch failed",
			logger.String("batch_id", batchID.String()),
			logger.Error(err))
		return nil, err
	}

	elapsed := time.Since(start)
	mc.log.Info(ctx, "batch completed",
		logger.String("batch_id", batchID.String()),
		logger.Int("iterations", mc.iterations),
		logger.String("elapsed", elapsed.String()))

	return &BatchResult{
		ID:         batchID,
		Iterations: mc.iterations,
		Elapsed:    elapsed,
		Outcomes:   outcomes,
	}, nil
}
