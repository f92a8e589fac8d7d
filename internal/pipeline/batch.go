package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/depscout/internal/event"
	"github.com/nao1215/depscout/internal/model"
)

// DefaultConcurrency is the number of packages analyzed at once.
const DefaultConcurrency = 4

// Result is the outcome of one package analysis.
// Package is always set; Err is the error that aborted the analysis.
type Result struct {
	Package *model.Package
	Err     error
}

// BatchProcessor handles concurrent analysis of multiple packages.
// It uses errgroup to bound the number of analyses in flight.
//
// Design decision: a failed analysis never fails the batch. Each goroutine
// returns nil to the group and the error travels in its Result, so one
// unknown package cannot cancel its siblings.
type BatchProcessor struct {
	analyzer    *Analyzer
	concurrency int
	logger      *slog.Logger
	events      *event.Multiplexer
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent analyses.
// Non-positive values keep DefaultConcurrency.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithEvents attaches every analysis to mux. The caller reads mux.Events
// while the batch runs and calls mux.Close once it returns.
func WithEvents(mux *event.Multiplexer) BatchOption {
	return func(b *BatchProcessor) {
		b.events = mux
	}
}

// NewBatchProcessor creates a new BatchProcessor around analyzer.
func NewBatchProcessor(analyzer *Analyzer, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		analyzer:    analyzer,
		concurrency: DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch analyzes packages concurrently and returns one Result per
// name, in input order. The error is only set when ctx was cancelled
// before every analysis could start.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, names []string) ([]Result, error) {
	results := make([]Result, len(names))

	err := bp.ProcessBatchWithCallback(ctx, names, func(r Result, index int) {
		results[index] = r
	})

	return results, err
}

// ProcessBatchWithCallback analyzes packages concurrently and calls
// callback as each analysis finishes, with the index of the package in
// names. The callback runs on the analysis goroutine and must be safe for
// concurrent use unless it only touches its own index.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	names []string,
	callback func(r Result, index int),
) error {
	bp.logger.Debug("starting batch analysis",
		"total_packages", len(names),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, name := range names {
		g.Go(func() error {
			pkg := model.NewPackage(name)

			select {
			case <-ctx.Done():
				pkg.SetError(ctx.Err())
				callback(Result{Package: pkg, Err: ctx.Err()}, i)
				return ctx.Err()
			default:
			}

			var em *event.Emitter
			if bp.events != nil {
				em = bp.events.Attach(name)
			}

			err := bp.analyzer.Analyze(ctx, pkg, em)
			callback(Result{Package: pkg, Err: err}, i)

			// The error is carried by the Result.
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Debug("batch analysis complete",
		"total_packages", len(names),
		"elapsed", time.Since(startTime),
	)

	return err
}
