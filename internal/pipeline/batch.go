package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/prefixscan/internal/crawler"
	"github.com/nao1215/prefixscan/internal/model"
)

// Factory builds the pipeline for one run. Each run gets its own client
// and pacer, so the factory is called once per run.
type Factory func(run *model.Run) (*Pipeline, error)

// BatchProcessor crawls multiple targets concurrently.
type BatchProcessor struct {
	factory     Factory
	concurrency int
	logger      *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of targets crawled at once.
// Default is 4.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(factory Factory, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		factory:     factory,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch executes one pipeline per run. Results and errors are stored
// on the runs themselves; one failed target never stops the others.
// The returned error is ctx.Err() when the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, runs []*model.Run) error {
	return bp.ProcessBatchWithCallback(ctx, runs, nil)
}

// ProcessBatchWithCallback is ProcessBatch with a callback invoked after
// each run completes. The callback runs on the worker goroutine, so it must
// be safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	runs []*model.Run,
	callback func(run *model.Run, index int),
) error {
	bp.logger.Info("starting batch",
		"targets", len(runs),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	var g errgroup.Group
	g.SetLimit(bp.concurrency)

	for i, run := range runs {
		g.Go(func() error {
			bp.process(ctx, run, i, len(runs))
			if callback != nil {
				callback(run, i)
			}
			return nil
		})
	}
	_ = g.Wait()

	bp.logger.Info("batch complete",
		"targets", len(runs),
		"elapsed", time.Since(startTime),
	)
	return ctx.Err()
}

func (bp *BatchProcessor) process(ctx context.Context, run *model.Run, index, total int) {
	if err := ctx.Err(); err != nil {
		run.SetError(err)
		run.Truncate(crawler.ReasonCancelled)
		return
	}

	bp.logger.Info("crawling target",
		"target", run.Target.Name,
		"index", index+1,
		"total", total,
	)

	p, err := bp.factory(run)
	if err != nil {
		run.SetError(fmt.Errorf("failed to build pipeline: %w", err))
		bp.logger.Warn("crawl failed", "target", run.Target.Name, "error", err)
		return
	}

	if err := p.Execute(ctx, run); err != nil {
		bp.logger.Warn("crawl failed",
			"target", run.Target.Name,
			"error", err,
		)
		return
	}

	bp.logger.Info("crawl completed",
		"target", run.Target.Name,
		"terms", len(run.Terms),
	)
}
