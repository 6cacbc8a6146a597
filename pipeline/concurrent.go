package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Buffer adds a buffered channel between pipeline stages.
// This decouples the production rate from the consumption rate.
func Buffer[T any](p *Pipeline[T], size int) *Pipeline[T] {
	if size <= 0 {
		size = 1
	}
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			bufCtx, cancel := context.WithCancel(ctx)
			ch := make(chan result[T], size)
			done := make(chan struct{})

			go func() {
				defer close(done)
				defer close(ch)
				if err := drainInto(bufCtx, p, ch); err != nil {
					trySend(bufCtx, ch, result[T]{err: err})
				}
			}()

			return &channelIter[T]{
				ch: ch,
				closer: func() error {
					cancel()
					<-done
					return nil
				},
			}
		},
	}
}

// Merge combines multiple pipelines concurrently.
// Values are yielded as they become available from any source, so the
// emission order follows completion timing. The first failure cancels the
// remaining sources and becomes the terminal error.
func Merge[T any](pipelines ...*Pipeline[T]) *Pipeline[T] {
	sources := append([]*Pipeline[T](nil), pipelines...)
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			mergeCtx, cancel := context.WithCancel(ctx)
			ch := make(chan result[T], max(len(sources), 1))
			done := make(chan struct{})

			go func() {
				defer close(done)
				defer close(ch)
				g, gctx := errgroup.WithContext(mergeCtx)
				for _, p := range sources {
					g.Go(func() error {
						return drainInto(gctx, p, ch)
					})
				}
				if err := g.Wait(); err != nil {
					trySend(mergeCtx, ch, result[T]{err: err})
				}
			}()

			return &channelIter[T]{
				ch: ch,
				closer: func() error {
					cancel()
					<-done
					return nil
				},
			}
		},
	}
}

// MergeWith combines p with other. When sequential is true the values are
// emitted in the same order as ConcatWith; otherwise they interleave as in Merge.
func MergeWith[T any](p, other *Pipeline[T], sequential bool) *Pipeline[T] {
	if sequential {
		return MergeSequential(p, other)
	}
	return Merge(p, other)
}

// MergeSequential starts every source at once but emits their values in
// source order: all of the first, then all of the second, and so on. Values
// from later sources wait in a bounded buffer until their turn.
func MergeSequential[T any](pipelines ...*Pipeline[T]) *Pipeline[T] {
	sources := append([]*Pipeline[T](nil), pipelines...)
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			iters := make([]Iterator[T], len(sources))
			for i, p := range sources {
				iters[i] = Buffer(p, DefaultConcurrency).create(ctx)
			}
			return &sequenceIter[T]{iters: iters}
		},
	}
}

// sequenceIter yields from already-started iterators one after another.
type sequenceIter[T any] struct {
	iters []Iterator[T]
	index int
}

func (it *sequenceIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	for it.index < len(it.iters) {
		val, ok, err := it.iters[it.index].Next(ctx)
		if err != nil {
			return val, false, err
		}
		if ok {
			return val, true, nil
		}
		it.index++
	}
	var zero T
	return zero, false, nil
}

func (it *sequenceIter[T]) Close() error {
	var firstErr error
	for _, iter := range it.iters {
		if err := iter.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
