// Package fanout delivers independent jobs over a fixed pool of workers.
// The transaction coordinator uses it to run post-commit effects, where one
// slow or failing delivery must not hold up or abort the rest.
package fanout

import (
	"context"
	"fmt"
	"sync"
)

// Failure records a job that returned an error or panicked.
type Failure struct {
	Index int
	Err   error
}

func (f Failure) Error() string {
	return fmt.Sprintf("job %d: %v", f.Index, f.Err)
}

func (f Failure) Unwrap() error {
	return f.Err
}

// Each calls fn once per item with at most workers calls in flight and
// returns the failures sorted by item index. A nil result means every job
// succeeded.
//
// Items that have not been handed to a worker when ctx is done are not run;
// they fail with ctx.Err(). A panic in fn is recovered and reported as that
// item's failure.
func Each[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) []Failure {
	if len(items) == 0 {
		return nil
	}
	workers = max(1, min(workers, len(items)))

	errs := make([]error, len(items))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for range workers {
		wg.Go(func() {
			for i := range jobs {
				errs[i] = call(ctx, items[i], fn)
			}
		})
	}

dispatch:
	for i := range items {
		if err := ctx.Err(); err != nil {
			markSkipped(errs[i:], err)
			break
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			markSkipped(errs[i:], ctx.Err())
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	var failures []Failure
	for i, err := range errs {
		if err != nil {
			failures = append(failures, Failure{Index: i, Err: err})
		}
	}
	return failures
}

func markSkipped(errs []error, cause error) {
	for i := range errs {
		errs[i] = cause
	}
}

func call[T any](ctx context.Context, item T, fn func(context.Context, T) error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return fn(ctx, item)
}
