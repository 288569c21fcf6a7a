package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapIsolatesFailures(t *testing.T) {
	items := []int{1, 2, 3, 4}
	results, errs := Map(context.Background(), 2, items, func(ctx context.Context, n int) (int, error) {
		if n == 3 {
			return 0, errors.New("boom")
		}
		return n * 10, nil
	})

	assert.Equal(t, []int{10, 20, 0, 40}, results)
	require.Len(t, errs, 4)
	assert.NoError(t, errs[0])
	assert.EqualError(t, errs[2], "boom")
	assert.NoError(t, errs[3])
}

func TestMapRespectsLimit(t *testing.T) {
	var inFlight, peak int32
	items := make([]int, 20)
	Map(context.Background(), 3, items, func(ctx context.Context, _ int) (struct{}, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return struct{}{}, nil
	})
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(3))
}

func TestMapCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, errs := Map(ctx, 2, []int{1, 2}, func(ctx context.Context, n int) (int, error) {
		return n, nil
	})
	for _, err := range errs {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
