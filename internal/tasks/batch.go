package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/services"
	"github.com/desertthunder/cadence/internal/shared"
	"golang.org/x/time/rate"
)

const (
	defaultMaxConcurrency = 8
	defaultBatchDelay     = 100 * time.Millisecond
	defaultRateLimit      = 5.0 // requests per second

	// batchDelayCap bounds the adaptive inter-chunk delay.
	batchDelayCap = 5 * time.Second

	// throttleTripCount is the number of consecutive rate-limited chunks
	// before concurrency is halved and the delay doubled.
	throttleTripCount = 3
)

// Operation performs the work for a single batch item.
type Operation func(ctx context.Context, itemID string) error

// ItemResult reports the outcome for one input item. Results preserve input
// order regardless of completion order and are never mutated after the
// batch returns.
type ItemResult struct {
	ItemID    string
	Succeeded bool
	Err       error
}

// BatchOpts contains tuning for a batch run. Zero values take defaults.
type BatchOpts struct {
	MaxConcurrency int           // concurrent operations per chunk (default 8)
	BatchDelay     time.Duration // pause between chunks (default 100ms)
	RateLimit      float64       // outbound pacing in requests/second (default 5)
}

// Engine orchestrates batch operations.
type Engine struct {
	logger *log.Logger
}

// NewEngine creates a batch engine.
func NewEngine(logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Engine{logger: logger}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default so progress reporting never stalls execution.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// RunBatch invokes op for every item under a concurrency cap and returns one
// result per item, in input order.
//
// Items are partitioned into sequential chunks of the current concurrency;
// a chunk fully settles (every item succeeded or failed) before the next
// starts, and a failing item never aborts the batch. Repeated throttling
// adapts the shape of subsequent chunks: after three consecutive chunks
// containing a rate-limited failure, concurrency is halved (floor 1) and
// the inter-chunk delay doubled (cap 5s). A chunk with no rate-limited
// failure resets the streak.
//
// Cancelling ctx stops the run between operations; items never attempted
// are reported as failed with the context error.
func (e *Engine) RunBatch(ctx context.Context, progress chan<- ProgressUpdate, items []string, op Operation, opts BatchOpts) []ItemResult {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = defaultMaxConcurrency
	}
	if opts.BatchDelay <= 0 {
		opts.BatchDelay = defaultBatchDelay
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = defaultRateLimit
	}

	results := make([]ItemResult, len(items))
	for i, id := range items {
		results[i] = ItemResult{ItemID: id}
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	concurrency := opts.MaxConcurrency
	delay := opts.BatchDelay
	consecutiveThrottled := 0
	total := len(items)
	succeeded := 0
	failed := 0

	start := 0
	for start < total {
		if ctx.Err() != nil {
			for i := start; i < total; i++ {
				results[i].Err = ctx.Err()
				failed++
			}
			break
		}

		end := start + concurrency
		if end > total {
			end = total
		}
		chunk := results[start:end]

		e.sendProgress(progress, chunkStartUpdate(start+1, total, len(chunk)))

		// Settle-all join: every item in the chunk completes before the
		// adaptive logic inspects the outcomes.
		var wg sync.WaitGroup
		for i := range chunk {
			wg.Add(1)
			go func(res *ItemResult) {
				defer wg.Done()
				if err := limiter.Wait(ctx); err != nil {
					res.Err = err
					return
				}
				res.Err = op(ctx, res.ItemID)
				res.Succeeded = res.Err == nil
			}(&chunk[i])
		}
		wg.Wait()

		chunkThrottled := false
		for i := range chunk {
			step := start + i + 1
			if chunk[i].Succeeded {
				succeeded++
				e.sendProgress(progress, itemDoneUpdate(step, total, chunk[i].ItemID))
				continue
			}
			failed++
			e.sendProgress(progress, itemFailedUpdate(step, total, chunk[i].ItemID, chunk[i].Err))
			if services.IsRateLimited(chunk[i].Err) {
				chunkThrottled = true
			}
		}

		if chunkThrottled {
			consecutiveThrottled++
			if consecutiveThrottled >= throttleTripCount {
				if concurrency > 1 {
					concurrency = concurrency / 2
					if concurrency < 1 {
						concurrency = 1
					}
				}
				delay = delay * 2
				if delay > batchDelayCap {
					delay = batchDelayCap
				}
				consecutiveThrottled = 0
				e.logger.Warn("sustained throttling, adapting batch shape",
					"concurrency", concurrency, "delay", delay)
				e.sendProgress(progress, throttledUpdate(start+1, total, concurrency, delay))
			}
		} else {
			consecutiveThrottled = 0
		}

		start = end

		if start < total {
			pause := delay
			if chunkThrottled {
				pause = pause * 2
				if pause > batchDelayCap {
					pause = batchDelayCap
				}
			}
			if err := sleepCtx(ctx, pause); err != nil {
				continue // the next loop iteration reports remaining items
			}
		}
	}

	e.sendProgress(progress, batchDoneUpdate(succeeded, failed, total))
	return results
}

// Succeeded counts successful results.
func Succeeded(results []ItemResult) int {
	n := 0
	for _, r := range results {
		if r.Succeeded {
			n++
		}
	}
	return n
}

// Failed counts failed results.
func Failed(results []ItemResult) int {
	return len(results) - Succeeded(results)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
