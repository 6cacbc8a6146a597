package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// DefaultConcurrency bounds how many inner pipelines an unordered FlatExpand
// drains at the same time.
const DefaultConcurrency = 256

// ErrNilInner is the cause reported when a FlatExpand function returns a nil
// pipeline without an error.
var ErrNilInner = errors.New("nil inner pipeline")

type expandConfig struct {
	ordered     bool
	concurrency int
	delay       DelayFunc
}

// ExpandOption configures FlatExpand.
type ExpandOption func(*expandConfig)

// Ordered drains each inner pipeline completely, in upstream order, before
// starting the next one. This is the default.
func Ordered() ExpandOption {
	return func(c *expandConfig) { c.ordered = true }
}

// Unordered drains inner pipelines concurrently and forwards their values as
// they become ready. Only the multiset of values is guaranteed.
func Unordered() ExpandOption {
	return func(c *expandConfig) { c.ordered = false }
}

// WithConcurrency limits the number of inner pipelines drained at once in
// unordered mode. n <= 0 removes the limit.
func WithConcurrency(n int) ExpandOption {
	return func(c *expandConfig) { c.concurrency = n }
}

// WithDelay delays every value of every inner pipeline by delay().
func WithDelay(delay DelayFunc) ExpandOption {
	return func(c *expandConfig) { c.delay = delay }
}

// FlatExpand maps each value to an inner pipeline and flattens the results.
//
// Ordered mode (default) yields inner values in strict upstream order regardless
// of any delay. Unordered mode runs inner pipelines on a worker pool and merges
// them first-ready-first-delivered, so a slow inner pipeline never holds back
// values that are already available from its siblings.
func FlatExpand[I, O any](p *Pipeline[I], fn func(context.Context, I) (*Pipeline[O], error), opts ...ExpandOption) *Pipeline[O] {
	cfg := expandConfig{ordered: true, concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(&cfg)
	}

	expand := func(ctx context.Context, in I) (*Pipeline[O], error) {
		sub, err := fn(ctx, in)
		switch {
		case err != nil:
			return nil, err
		case sub == nil:
			return nil, ErrNilInner
		case cfg.delay != nil:
			return Delay(sub, cfg.delay), nil
		}
		return sub, nil
	}

	if cfg.ordered {
		return &Pipeline[O]{
			create: func(ctx context.Context) Iterator[O] {
				return &flatExpandIter[I, O]{ctx: ctx, source: p.create(ctx), fn: expand}
			},
		}
	}
	return &Pipeline[O]{
		create: func(ctx context.Context) Iterator[O] {
			return startUnordered(ctx, p, expand, cfg.concurrency)
		},
	}
}

// ConcatMap is FlatExpand in ordered mode.
func ConcatMap[I, O any](p *Pipeline[I], fn func(context.Context, I) (*Pipeline[O], error), opts ...ExpandOption) *Pipeline[O] {
	return FlatExpand(p, fn, append(opts, Ordered())...)
}

// FlatMap is FlatExpand in unordered mode.
func FlatMap[I, O any](p *Pipeline[I], fn func(context.Context, I) (*Pipeline[O], error), opts ...ExpandOption) *Pipeline[O] {
	return FlatExpand(p, fn, append(opts, Unordered())...)
}

// --- ordered ---

type flatExpandIter[I, O any] struct {
	ctx     context.Context
	source  Iterator[I]
	fn      func(context.Context, I) (*Pipeline[O], error)
	current Iterator[O]
	index   int
}

func (it *flatExpandIter[I, O]) Next(ctx context.Context) (result O, ok bool, err error) {
	for {
		if it.current != nil {
			val, ok, err := it.current.Next(ctx)
			if err != nil {
				var zero O
				return zero, false, err
			}
			if ok {
				return val, true, nil
			}
			_ = it.current.Close()
			it.current = nil
		}
		in, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			var zero O
			return zero, false, err
		}
		sub, err := invoke(ctx, "flatExpand", it.index, it.fn, in)
		it.index++
		if err != nil {
			var zero O
			return zero, false, err
		}
		it.current = sub.create(it.ctx)
	}
}

func (it *flatExpandIter[I, O]) Close() error {
	if it.current != nil {
		_ = it.current.Close()
	}
	return it.source.Close()
}

// --- unordered ---

func startUnordered[I, O any](ctx context.Context, p *Pipeline[I], fn func(context.Context, I) (*Pipeline[O], error), concurrency int) Iterator[O] {
	runCtx, cancel := context.WithCancel(ctx)
	out := make(chan result[O], max(concurrency, 1))
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		if err := expandUnordered(runCtx, p, fn, concurrency, out); err != nil {
			trySend(runCtx, out, result[O]{err: err})
		}
	}()

	return &channelIter[O]{
		ch: out,
		closer: func() error {
			cancel()
			<-done
			return nil
		},
	}
}

// expandUnordered pulls the upstream and hands every inner pipeline to the
// worker pool. It returns once all workers have exited.
func expandUnordered[I, O any](ctx context.Context, p *Pipeline[I], fn func(context.Context, I) (*Pipeline[O], error), concurrency int, out chan<- result[O]) error {
	loopCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		once     sync.Once
		firstErr error
	)
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			stop()
		})
	}

	workers := pool.New().WithContext(loopCtx).WithCancelOnError()
	if concurrency > 0 {
		workers = workers.WithMaxGoroutines(concurrency)
	}

	source := p.create(loopCtx)
	for index := 0; ; index++ {
		in, ok, err := source.Next(loopCtx)
		if err != nil {
			fail(err)
			break
		}
		if !ok {
			break
		}
		sub, err := invoke(loopCtx, "flatExpand", index, fn, in)
		if err != nil {
			fail(err)
			break
		}
		workers.Go(func(ctx context.Context) error {
			var drainErr error
			if rec := panics.Try(func() { drainErr = drainInto(ctx, sub, out) }); rec != nil {
				drainErr = &TransformError{Stage: "flatExpand", Index: index, Cause: rec.AsError()}
			}
			if drainErr != nil {
				fail(drainErr)
			}
			return drainErr
		})
	}

	_ = workers.Wait()
	closeErr := source.Close()
	if firstErr != nil {
		return firstErr
	}
	return closeErr
}

// drainInto forwards every value of p to out until p is exhausted or ctx ends.
func drainInto[T any](ctx context.Context, p *Pipeline[T], out chan<- result[T]) error {
	iter := p.create(ctx)
	defer iter.Close()
	for {
		val, ok, err := iter.Next(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if !trySend(ctx, out, result[T]{val: val, ok: true}) {
			return ctx.Err()
		}
	}
}
