package batch

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// Task produces one result. Tasks are independent; a failure is recorded
// and never aborts siblings.
type Task[T any] func(ctx context.Context) (T, error)

// Result holds one task's outcome at its original index. A failed or
// skipped task leaves Value at the zero value with Err set.
type Result[T any] struct {
	Value T
	Err   error
}

// Config holds batcher settings.
type Config struct {
	Concurrency int           // Max simultaneous tasks (default: 5)
	Pause       time.Duration // Wait between full batches (default: 250ms)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency: 5,
		Pause:       250 * time.Millisecond,
	}
}

// Run executes tasks with at most cfg.Concurrency in flight, pausing
// cfg.Pause after each full batch drains. Results preserve input order.
// Context cancellation stops scheduling further tasks; already-running
// tasks complete and their results are kept. Run never returns an error:
// per-task failures live in the result slice.
func Run[T any](ctx context.Context, cfg Config, tasks []Task[T]) []Result[T] {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	results := make([]Result[T], len(tasks))
	sem := semaphore.NewWeighted(int64(cfg.Concurrency))
	full := int64(cfg.Concurrency)

	// drain blocks until every in-flight task has finished, so the result
	// slice is stable when Run returns even after cancellation.
	drain := func() {
		if err := sem.Acquire(context.Background(), full); err == nil {
			sem.Release(full)
		}
	}

	for i, task := range tasks {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context cancelled: mark the remainder as skipped.
			drain()
			for j := i; j < len(tasks); j++ {
				results[j].Err = err
			}
			return results
		}

		go func(i int, task Task[T]) {
			defer sem.Release(1)
			results[i].Value, results[i].Err = runOne(ctx, task)
		}(i, task)

		// Batch boundary: drain all slots, then pace before the next batch.
		if (i+1)%cfg.Concurrency == 0 && i+1 < len(tasks) {
			if err := sem.Acquire(ctx, full); err != nil {
				drain()
				for j := i + 1; j < len(tasks); j++ {
					results[j].Err = err
				}
				return results
			}
			sem.Release(full)

			select {
			case <-time.After(cfg.Pause):
			case <-ctx.Done():
				for j := i + 1; j < len(tasks); j++ {
					results[j].Err = ctx.Err()
				}
				return results
			}
		}
	}

	// Wait for the tail batch.
	drain()

	return results
}

// runOne executes a single task, converting a panic into an error so one
// bad task cannot take down the whole cycle.
func runOne[T any](ctx context.Context, task Task[T]) (val T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return task(ctx)
}
