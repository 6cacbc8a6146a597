package pipeline

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// DelayFunc returns how long the next item should wait before it is emitted.
type DelayFunc func() time.Duration

// FixedDelay delays every item by d.
func FixedDelay(d time.Duration) DelayFunc {
	return func() time.Duration { return d }
}

// RandomDelay draws an independent delay in [0, max) for every item.
// src may be nil, in which case a time-seeded source is used; pass a seeded
// source for reproducible runs. The returned func is safe for concurrent use.
func RandomDelay(max time.Duration, src *rand.Rand) DelayFunc {
	if max <= 0 {
		return FixedDelay(0)
	}
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	var mu sync.Mutex
	return func() time.Duration {
		mu.Lock()
		defer mu.Unlock()
		return time.Duration(src.Int63n(int64(max)))
	}
}

// Delay holds back each value by the duration returned from delay.
// The wait is cancelled together with the drive's context.
func Delay[T any](p *Pipeline[T], delay DelayFunc) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &delayIter[T]{source: p.create(ctx), delay: delay}
		},
	}
}

type delayIter[T any] struct {
	source Iterator[T]
	delay  DelayFunc
}

func (it *delayIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return val, ok, err
	}
	d := it.delay()
	if d <= 0 {
		return val, true, nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return val, true, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

func (it *delayIter[T]) Close() error { return it.source.Close() }
