package pipeline

import (
	"context"
	"runtime"
	"sync"
)

// Func handles one item. i is the item's position in the input slice.
type Func[T any] func(ctx context.Context, i int, item T) error

// Run fans items out to a bounded number of workers and collects every error; one failure does not
// stop the others. Items not yet dispatched when ctx is cancelled are skipped and ctx.Err() is
// reported once.
func Run[T any](ctx context.Context, items []T, workers int, fn Func[T]) []error {
	if len(items) == 0 || fn == nil {
		return nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
		if workers < 1 {
			workers = 1
		}
	}
	workers = min(workers, len(items))

	type job struct {
		i    int
		item T
	}
	jobs := make(chan job)
	errs := make(chan error, len(items)+1)
	var wg sync.WaitGroup

	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := fn(ctx, j.i, j.item); err != nil {
					errs <- err
				}
			}
		}()
	}

dispatch:
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			errs <- err
			break
		}
		select {
		case jobs <- job{i: i, item: item}:
		case <-ctx.Done():
			errs <- ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	close(errs)

	out := make([]error, 0, len(errs))
	for err := range errs {
		out = append(out, err)
	}
	return out
}
