// Package driver runs the per-shard batch state machine: an optional reset
// sweep, then a keyset-paginated scan that feeds every eligible document
// through the evaluation chain, committing outcomes once per page.
package driver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ntuwsl/indexselect/internal/metrics"
	"github.com/ntuwsl/indexselect/internal/pipeline"
	"github.com/ntuwsl/indexselect/internal/pusher"
	"github.com/ntuwsl/indexselect/internal/report"
	"github.com/ntuwsl/indexselect/internal/store"
)

// Config controls one driver instance.
type Config struct {
	// BatchSize is the scan page size.
	BatchSize int
	// ResetPageSize bounds each reset sweep statement.
	ResetPageSize int
	// Reset clears processed flags before scanning, starting a new epoch.
	Reset bool
	// RowLimit bounds total rows per shard for test runs; 0 means no limit.
	RowLimit int
	// TablePrefix only labels reports; the store owns actual naming.
	TablePrefix string
}

// Driver processes shards sequentially with one chain instance. Not safe
// for concurrent use; the runner gives each worker its own Driver.
type Driver struct {
	store  store.ShardStore
	chain  *pipeline.Chain
	push   pusher.Pusher
	logger *zap.Logger
	retry  retryPolicy
	cfg    Config
}

// New builds a Driver, filling config defaults.
func New(st store.ShardStore, chain *pipeline.Chain, push pusher.Pusher, logger *zap.Logger, cfg Config) *Driver {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.ResetPageSize <= 0 {
		cfg.ResetPageSize = 5000
	}
	if cfg.TablePrefix == "" {
		cfg.TablePrefix = "url_state"
	}
	if push == nil {
		push = pusher.Noop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		store:  st,
		chain:  chain,
		push:   push,
		logger: logger,
		retry:  defaultRetryPolicy(),
		cfg:    cfg,
	}
}

// ProcessShard runs the full state machine for one shard. Per-document
// failures are absorbed into outcomes; per-shard failures are absorbed into
// the report and never abort sibling shards.
func (d *Driver) ProcessShard(ctx context.Context, shard int) report.ShardReport {
	rep := report.ShardReport{
		Shard:          shard,
		Table:          fmt.Sprintf("%s_%03d", d.cfg.TablePrefix, shard),
		StageBreakdown: map[string]int{},
		ErrorBreakdown: map[string]int{},
	}
	log := d.logger.With(zap.Int("shard", shard))

	if d.cfg.Reset {
		switch err := d.resetShard(ctx, shard); {
		case errors.Is(err, store.ErrShardMissing):
			log.Warn("shard table missing, skipping")
			rep.Skipped = true
			metrics.ObserveShard("skipped")
			return rep
		case err != nil:
			log.Warn("reset abandoned after retries", zap.Error(err))
			rep.ResetAbandoned = true
			rep.Error = err.Error()
		}
	}

	d.scanShard(ctx, shard, log, &rep)

	switch {
	case rep.Skipped:
		metrics.ObserveShard("skipped")
	case rep.Error != "" && !rep.ResetAbandoned:
		metrics.ObserveShard("failed")
	default:
		metrics.ObserveShard("processed")
	}
	return rep
}

func (d *Driver) scanShard(ctx context.Context, shard int, log *zap.Logger, rep *report.ShardReport) {
	stats := pipeline.NewStats()
	cursor := ""
	processed := 0

	for {
		if d.cfg.RowLimit > 0 && processed >= d.cfg.RowLimit {
			log.Info("row limit reached", zap.Int("processed", processed))
			break
		}

		start := time.Now()
		page, err := d.store.AcquirePage(ctx, shard, cursor, d.cfg.BatchSize)
		if errors.Is(err, store.ErrShardMissing) {
			log.Warn("shard table missing, skipping")
			rep.Skipped = true
			return
		}
		if err != nil {
			log.Error("page acquisition failed", zap.Error(err))
			rep.Error = err.Error()
			break
		}

		docs := page.Docs()
		if len(docs) == 0 {
			_ = page.Release(ctx)
			break // drained
		}

		results := make([]store.Result, 0, len(docs))
		for _, doc := range docs {
			cursor = doc.URL
			results = append(results, d.evaluate(ctx, doc, stats, log))
		}

		if err := page.Finish(ctx, results); err != nil {
			log.Error("page commit failed", zap.Error(err), zap.String("cursor", cursor))
			rep.Error = err.Error()
			break
		}
		processed += len(docs)
		metrics.ObservePage(len(docs), time.Since(start))
	}

	rep.TotalProcessed = processed
	rep.StageBreakdown = stats.Stages
	rep.ErrorBreakdown = stats.Reasons
	log.Info("shard scan finished", zap.Int("processed", processed))
}

// evaluate runs one document through the chain and translates the outcome
// into the flags to persist. Nothing a document does escapes this function.
func (d *Driver) evaluate(
	ctx context.Context,
	doc *pipeline.Document,
	stats *pipeline.Stats,
	log *zap.Logger,
) store.Result {
	out := d.chain.Run(doc)
	stats.Observe(out)

	if !out.Success {
		metrics.ObserveDocument("rejected")
		metrics.ObserveRejection(out.Reason)
		return store.Result{URL: doc.URL, Accepted: false, Reason: out.Reason}
	}

	metrics.ObserveDocument("accepted")
	if doc.Work.Payload != nil {
		if err := d.push.Push(ctx, doc.Work.Payload); err != nil {
			log.Warn("payload push failed", zap.String("url", doc.URL), zap.Error(err))
		}
	}
	return store.Result{URL: doc.URL, Accepted: true, Priority: doc.IndexPriority}
}

// resetShard sweeps processed flags page by page until a sweep clears zero
// rows. Individual sweep errors retry with backoff; exhaustion abandons the
// reset without failing the run.
func (d *Driver) resetShard(ctx context.Context, shard int) error {
	for {
		cleared, err := d.resetPage(ctx, shard)
		if err != nil {
			return err
		}
		if cleared == 0 {
			return nil
		}
	}
}

func (d *Driver) resetPage(ctx context.Context, shard int) (int64, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		cleared, err := d.store.ResetPage(ctx, shard, d.cfg.ResetPageSize)
		if err == nil {
			return cleared, nil
		}
		lastErr = err
		if !d.retry.shouldRetry(err, attempt+1) {
			return 0, lastErr
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(d.retry.backoff(attempt)):
		}
	}
}
