// Package runner fans the shard range out over a fixed worker pool. Workers
// share nothing mutable: each gets its own driver, chain, and statistics,
// and a worker's failure stays confined to its own shards.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ntuwsl/indexselect/internal/driver"
	"github.com/ntuwsl/indexselect/internal/metrics"
	"github.com/ntuwsl/indexselect/internal/pipeline"
	"github.com/ntuwsl/indexselect/internal/pusher"
	"github.com/ntuwsl/indexselect/internal/report"
	"github.com/ntuwsl/indexselect/internal/store"
)

// Config controls the orchestrated run.
type Config struct {
	// Shards is the shard-index range; indices 0..Shards-1 are processed.
	Shards int
	// Workers is the pool size.
	Workers int
	// Driver configures each worker's shard driver.
	Driver driver.Config
}

// Runner executes one full selection run.
type Runner struct {
	store  store.ShardStore
	push   pusher.Pusher
	logger *zap.Logger
	cfg    Config
}

// New builds a Runner, filling config defaults.
func New(st store.ShardStore, push pusher.Pusher, logger *zap.Logger, cfg Config) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Workers > cfg.Shards && cfg.Shards > 0 {
		cfg.Workers = cfg.Shards
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{store: st, push: push, logger: logger, cfg: cfg}
}

// Run partitions shard indices across the pool (modulo striping), waits for
// every worker, and returns the merged run report.
func (r *Runner) Run(ctx context.Context) *report.RunReport {
	runID := uuid.NewString()
	log := r.logger.With(zap.String("run_id", runID))
	start := time.Now()

	log.Info("run starting",
		zap.Int("shards", r.cfg.Shards),
		zap.Int("workers", r.cfg.Workers),
		zap.Bool("reset", r.cfg.Driver.Reset),
	)

	reports := make([]report.ShardReport, r.cfg.Shards)
	var wg sync.WaitGroup
	for w := 0; w < r.cfg.Workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			wlog := log.With(zap.Int("worker", worker))
			d := driver.New(r.store, pipeline.NewChain(), r.push, wlog, r.cfg.Driver)
			for shard := worker; shard < r.cfg.Shards; shard += r.cfg.Workers {
				metrics.IncActiveWorkers()
				reports[shard] = processShardSafe(ctx, d, shard, wlog)
				metrics.DecActiveWorkers()
			}
		}(w)
	}
	wg.Wait()

	run := &report.RunReport{
		RunID:     runID,
		StartedAt: start,
		Duration:  time.Since(start),
		Shards:    reports,
	}
	total, _, _ := run.Totals()
	log.Info("run finished",
		zap.Int("documents", total),
		zap.Duration("duration", run.Duration),
	)
	return run
}

// processShardSafe isolates a shard's unhandled failure to its report.
func processShardSafe(ctx context.Context, d *driver.Driver, shard int, log *zap.Logger) (rep report.ShardReport) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error("shard processing panicked", zap.Int("shard", shard), zap.Any("panic", rec))
			rep = report.ShardReport{
				Shard:          shard,
				StageBreakdown: map[string]int{},
				ErrorBreakdown: map[string]int{},
				Error:          fmt.Sprintf("panic: %v", rec),
			}
			metrics.ObserveShard("failed")
		}
	}()
	return d.ProcessShard(ctx, shard)
}
