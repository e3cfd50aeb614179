package mirror

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// BatchProcessor mirrors multiple start URLs concurrently. It uses
// errgroup to manage goroutines and respect concurrency limits.
type BatchProcessor struct {
	// sessionFactory creates a new session for each start URL.
	// Each session should carry its own Gate so concurrent runs in
	// the same batch don't block each other.
	sessionFactory func() *Session

	// concurrency is the maximum number of concurrent runs.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed run results. Failed runs leave a nil
	// slot at their URL's index. Access is synchronized via mutex.
	results []*Result
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithBatchConcurrency sets the maximum number of concurrent runs.
// Default is 3 if not specified.
func WithBatchConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The sessionFactory function is called for each start URL to create a
// fresh session. This ensures dedup registries and visited sets don't
// leak between runs.
func NewBatchProcessor(sessionFactory func() *Session, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		sessionFactory: sessionFactory,
		concurrency:    3,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch mirrors multiple start URLs concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Returns one result slot per start URL in input order; slots for
// failed runs are nil. The error return indicates cancellation, not
// individual run failures.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, startURLs []string) ([]*Result, error) {
	bp.logger.Info("starting batch processing",
		"total_urls", len(startURLs),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*Result, len(startURLs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, startURL := range startURLs {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("mirroring site",
				"start_url", startURL,
				"index", i+1,
				"total", len(startURLs),
			)

			session := bp.sessionFactory()
			result, err := session.Mirror(ctx, startURL)
			if err != nil {
				// Don't return the error to the errgroup; the other
				// runs should still complete.
				bp.logger.Warn("mirror failed",
					"start_url", startURL,
					"error", err,
				)
				return nil
			}

			bp.mu.Lock()
			bp.results[i] = result
			bp.mu.Unlock()

			bp.logger.Info("mirror finished", "start_url", startURL)
			return nil
		})
	}

	err := g.Wait()

	bp.logger.Info("batch processing complete",
		"total_urls", len(startURLs),
		"elapsed", time.Since(startTime),
	)

	return bp.results, err
}
