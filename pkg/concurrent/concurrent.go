package concurrent

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Each runs action for every element of items with at most workers goroutines in flight.
// A non-positive workers value means one goroutine per element.
// It waits for all goroutines to finish and returns the first error encountered; the context
// passed to action is cancelled as soon as one action fails.
func Each[T any](ctx context.Context, items []T, workers int, action func(context.Context, T) error) error {
	group, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		group.SetLimit(workers)
	}

	for _, item := range items {
		if gctx.Err() != nil {
			break
		}
		group.Go(func() error {
			return action(gctx, item)
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// ParallelMap applies mapFn to each element of items in parallel, preserving order.
// The workers parameter controls the number of goroutines.
func ParallelMap[T any, R any](items []T, workers int, mapFn func(T) R) []R {
	out := make([]R, len(items))
	if workers <= 0 {
		workers = len(items)
	}
	var wg sync.WaitGroup
	sem := make(chan struct{}, max(workers, 1))

	for idx, val := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, v T) {
			defer wg.Done()
			out[i] = mapFn(v)
			<-sem
		}(idx, val)
	}
	wg.Wait()
	return out
}
