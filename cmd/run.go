package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ntuwsl/indexselect/internal/api"
	"github.com/ntuwsl/indexselect/internal/config"
	"github.com/ntuwsl/indexselect/internal/driver"
	"github.com/ntuwsl/indexselect/internal/logging"
	"github.com/ntuwsl/indexselect/internal/pusher"
	"github.com/ntuwsl/indexselect/internal/runner"
	"github.com/ntuwsl/indexselect/internal/store/postgres"
)

// newRunCmd creates the 'run' subcommand, which executes one full selection
// run over the configured shard range.
func newRunCmd() *cobra.Command {
	var (
		shards    int
		batchSize int
		workers   int
		limit     int
		reset     bool
		reportDir string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluates crawled documents and writes index priorities",
		Long: `Scans every configured shard for documents the crawler fetched but this
pipeline has not yet attempted, runs each one through the evaluation chain,
and commits accept/reject outcomes page by page. With --reset, processed
flags are cleared first so the whole corpus is re-evaluated.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("shards") {
				cfg.Run.Shards = shards
			}
			if flags.Changed("batch-size") {
				cfg.Run.BatchSize = batchSize
			}
			if flags.Changed("workers") {
				cfg.Run.Workers = workers
			}
			if flags.Changed("limit") {
				cfg.Run.RowLimit = limit
			}
			if flags.Changed("reset") {
				cfg.Run.Reset = reset
			}
			if flags.Changed("report-dir") {
				cfg.Run.ReportDir = reportDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return runSelection(cmd, cfg)
		},
	}

	cmd.Flags().IntVar(&shards, "shards", 0, "number of shard tables to process")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "scan page size")
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size")
	cmd.Flags().IntVar(&limit, "limit", 0, "per-shard row limit for test runs (0 = no limit)")
	cmd.Flags().BoolVar(&reset, "reset", false, "clear processed flags before scanning")
	cmd.Flags().StringVar(&reportDir, "report-dir", "", "directory for per-shard breakdown files")

	return cmd
}

func runSelection(cmd *cobra.Command, cfg config.Config) error {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := postgres.New(ctx, postgres.Config{
		DSN:         cfg.DB.DSN,
		TablePrefix: cfg.DB.TablePrefix,
		MaxConns:    cfg.DB.MaxConns,
		MinConns:    cfg.DB.MinConns,
	})
	if err != nil {
		return fmt.Errorf("init shard store: %w", err)
	}
	defer st.Close()

	if cfg.Metrics.Enabled {
		ops := api.NewServer(cfg.Metrics.Port, logger)
		ops.Start()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := ops.Shutdown(shutdownCtx); err != nil {
				logger.Warn("ops server shutdown failed", zap.Error(err))
			}
		}()
	}

	r := runner.New(st, pusher.Noop{}, logger, runner.Config{
		Shards:  cfg.Run.Shards,
		Workers: cfg.Run.Workers,
		Driver: driver.Config{
			BatchSize:   cfg.Run.BatchSize,
			Reset:       cfg.Run.Reset,
			RowLimit:    cfg.Run.RowLimit,
			TablePrefix: cfg.DB.TablePrefix,
		},
	})

	run := r.Run(ctx)

	if err := run.WriteFiles(cfg.Run.ReportDir); err != nil {
		logger.Warn("failed to write breakdown files", zap.Error(err))
	}
	fmt.Fprintln(cmd.OutOrStdout(), run.Summary())
	return nil
}
