// Package workerpool fans independent per-item work out over a bounded
// number of goroutines and joins before returning.
package workerpool

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit is used when a caller passes a non-positive limit
var DefaultLimit = runtime.GOMAXPROCS(0)

// Map runs fn for every item with at most limit calls in flight.
// Results and errors are positional: errs[i] belongs to items[i]. One
// item failing never stops the others. Cancelling ctx stops dispatch;
// items that never ran report ctx.Err().
func Map[T, R any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, []error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := make([]R, len(items))
	errs := make([]error, len(items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range items {
		if err := gctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = fn(gctx, items[i])
			return nil
		})
	}
	_ = g.Wait()

	return results, errs
}
