package pipeline

import (
	"context"
	"time"
)

// Interval emits 0, 1, 2, ... once per period, starting one period after the
// drive begins. It never completes on its own: the drive ends only when its
// context is cancelled, at which point the ticker is released.
func Interval(period time.Duration) *Pipeline[int64] {
	if period <= 0 {
		period = time.Millisecond
	}
	return &Pipeline[int64]{
		create: func(_ context.Context) Iterator[int64] {
			return &intervalIter{ticker: time.NewTicker(period)}
		},
	}
}

type intervalIter struct {
	ticker *time.Ticker
	next   int64
}

func (it *intervalIter) Next(ctx context.Context) (int64, bool, error) {
	select {
	case <-it.ticker.C:
		n := it.next
		it.next++
		return n, true, nil
	case <-ctx.Done():
		return 0, false, ctx.Err()
	}
}

func (it *intervalIter) Close() error {
	it.ticker.Stop()
	return nil
}
