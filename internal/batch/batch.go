// Package batch runs ordered task lists with a concurrency ceiling while
// keeping results index-aligned to the input, regardless of completion order.
package batch

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"scriber/internal/services"
)

// Task produces one result. Tasks must be safe to run concurrently with each
// other.
type Task[T any] func(ctx context.Context) (T, error)

// Run executes tasks with at most limit in flight at once. Tasks launch in
// index order; as one finishes, the next not-yet-started task is launched.
// Results are returned in task order.
//
// The batch is fail-fast: after the first failure no further tasks are
// launched and the results of in-flight siblings are discarded. The siblings
// are not cancelled: they own resources such as external processes and temp
// files that they must release themselves. The error returned is the one
// from the lowest-index failing task, wrapped with that index, so a
// multi-failure batch reports deterministically.
func Run[T any](ctx context.Context, tasks []Task[T], limit int) ([]T, error) {
	if limit < 1 {
		return nil, services.Wrap(services.ErrValidation, "batch", "",
			fmt.Sprintf("concurrency limit must be positive, got %d", limit), nil)
	}

	results := make([]T, len(tasks))
	errs := make([]error, len(tasks))
	sem := make(chan struct{}, limit)

	var wg sync.WaitGroup
	var failed atomic.Bool

	for i, task := range tasks {
		if failed.Load() {
			break
		}
		if err := ctx.Err(); err != nil {
			errs[i] = err
			break
		}

		sem <- struct{}{}
		if failed.Load() {
			<-sem
			break
		}

		wg.Add(1)
		go func(i int, task Task[T]) {
			defer wg.Done()
			defer func() { <-sem }()

			value, err := task(ctx)
			if err != nil {
				errs[i] = err
				failed.Store(true)
				return
			}
			results[i] = value
		}(i, task)
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
	}
	return results, nil
}
