package pipeline

import (
	"context"

	"github.com/sourcegraph/conc/panics"
)

// Map transforms each value using fn. Order is preserved.
// A failing fn terminates the pipeline with a *TransformError.
func Map[I, O any](p *Pipeline[I], fn func(context.Context, I) (O, error)) *Pipeline[O] {
	return &Pipeline[O]{
		create: func(ctx context.Context) Iterator[O] {
			return &mapIter[I, O]{source: p.create(ctx), fn: fn}
		},
	}
}

// Filter keeps only values that satisfy the predicate. Order is preserved.
func Filter[T any](p *Pipeline[T], fn func(T) bool) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &filterIter[T]{source: p.create(ctx), fn: fn}
		},
	}
}

// Tap calls fn as a side-effect for each value, then passes the value through unchanged.
func Tap[T any](p *Pipeline[T], fn func(context.Context, T) error) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &tapIter[T]{source: p.create(ctx), fn: fn}
		},
	}
}

// Reduce accumulates all values into a single result.
// The pipeline yields exactly one value: the final accumulator.
func Reduce[T, R any](p *Pipeline[T], init R, fn func(R, T) R) *Pipeline[R] {
	return &Pipeline[R]{
		create: func(ctx context.Context) Iterator[R] {
			return &reduceIter[T, R]{source: p.create(ctx), acc: init, fn: fn}
		},
	}
}

// Transform applies a reusable combination of stages as a unit.
//
//	upperLong := func(p *Pipeline[string]) *Pipeline[string] { ... }
//	out := pipeline.Transform(names, upperLong)
func Transform[I, O any](p *Pipeline[I], fn func(*Pipeline[I]) *Pipeline[O]) *Pipeline[O] {
	return fn(p)
}

// Concat joins multiple pipelines sequentially.
// All values from the first pipeline are yielded before the second is started.
func Concat[T any](pipelines ...*Pipeline[T]) *Pipeline[T] {
	sources := append([]*Pipeline[T](nil), pipelines...)
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &concatIter[T]{sources: sources, ctx: ctx}
		},
	}
}

// ConcatWith drains p and then other.
func ConcatWith[T any](p, other *Pipeline[T]) *Pipeline[T] {
	return Concat(p, other)
}

// DefaultIfEmpty emits value if p completes without producing anything.
func DefaultIfEmpty[T any](p *Pipeline[T], value T) *Pipeline[T] {
	return SwitchIfEmpty(p, Single(value))
}

// SwitchIfEmpty continues with alternate if p completes without producing anything.
// alternate is not started unless it is needed.
func SwitchIfEmpty[T any](p, alternate *Pipeline[T]) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &switchIfEmptyIter[T]{source: p.create(ctx), alternate: alternate, ctx: ctx}
		},
	}
}

// Take emits at most n values and then completes. The upstream is closed as
// soon as the n-th value has been read.
func Take[T any](p *Pipeline[T], n int) *Pipeline[T] {
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			return &takeIter[T]{source: p.create(ctx), remaining: n}
		},
	}
}

// --- Iterator implementations ---

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(context.Context, I) (O, error)
	index  int
}

func (it *mapIter[I, O]) Next(ctx context.Context) (result O, ok bool, err error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		var zero O
		return zero, false, err
	}
	out, err := invoke(ctx, "map", it.index, it.fn, val)
	it.index++
	if err != nil {
		var zero O
		return zero, false, err
	}
	return out, true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

type filterIter[T any] struct {
	source Iterator[T]
	fn     func(T) bool
	index  int
}

func (it *filterIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return val, false, err
		}
		var keep bool
		if rec := panics.Try(func() { keep = it.fn(val) }); rec != nil {
			var zero T
			return zero, false, &TransformError{Stage: "filter", Index: it.index, Cause: rec.AsError()}
		}
		it.index++
		if keep {
			return val, true, nil
		}
	}
}

func (it *filterIter[T]) Close() error { return it.source.Close() }

type tapIter[T any] struct {
	source Iterator[T]
	fn     func(context.Context, T) error
}

func (it *tapIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return val, ok, err
	}
	if err := it.fn(ctx, val); err != nil {
		var zero T
		return zero, false, err
	}
	return val, true, nil
}

func (it *tapIter[T]) Close() error { return it.source.Close() }

type reduceIter[T, R any] struct {
	source Iterator[T]
	acc    R
	fn     func(R, T) R
	done   bool
}

func (it *reduceIter[T, R]) Next(ctx context.Context) (result R, ok bool, err error) {
	if it.done {
		var zero R
		return zero, false, nil
	}
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil {
			var zero R
			return zero, false, err
		}
		if !ok {
			it.done = true
			return it.acc, true, nil
		}
		it.acc = it.fn(it.acc, val)
	}
}

func (it *reduceIter[T, R]) Close() error { return it.source.Close() }

// concatIter creates each source only when the previous one is exhausted.
type concatIter[T any] struct {
	ctx     context.Context
	sources []*Pipeline[T]
	index   int
	current Iterator[T]
}

func (it *concatIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	for it.index < len(it.sources) {
		if it.current == nil {
			it.current = it.sources[it.index].create(it.ctx)
		}
		val, ok, err := it.current.Next(ctx)
		if err != nil {
			return val, false, err
		}
		if ok {
			return val, true, nil
		}
		if err := it.current.Close(); err != nil {
			it.current = nil
			return val, false, err
		}
		it.current = nil
		it.index++
	}
	var zero T
	return zero, false, nil
}

func (it *concatIter[T]) Close() error {
	if it.current == nil {
		return nil
	}
	err := it.current.Close()
	it.current = nil
	return err
}

type switchIfEmptyIter[T any] struct {
	ctx       context.Context
	source    Iterator[T]
	alternate *Pipeline[T]
	emitted   bool
	switched  bool
}

func (it *switchIfEmptyIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil {
		return val, false, err
	}
	if ok {
		it.emitted = true
		return val, true, nil
	}
	if it.emitted || it.switched {
		return val, false, nil
	}
	// Upstream completed empty: hand over to the alternate sequence.
	if err := it.source.Close(); err != nil {
		return val, false, err
	}
	it.switched = true
	it.source = it.alternate.create(it.ctx)
	return it.source.Next(ctx)
}

func (it *switchIfEmptyIter[T]) Close() error { return it.source.Close() }

type takeIter[T any] struct {
	source    Iterator[T]
	remaining int
	closed    bool
	closeErr  error
}

func (it *takeIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	if it.remaining <= 0 {
		var zero T
		return zero, false, it.Close()
	}
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		return val, false, err
	}
	it.remaining--
	if it.remaining == 0 {
		_ = it.Close()
	}
	return val, true, nil
}

func (it *takeIter[T]) Close() error {
	if !it.closed {
		it.closed = true
		it.closeErr = it.source.Close()
	}
	return it.closeErr
}
