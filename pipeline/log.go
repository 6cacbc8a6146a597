package pipeline

import (
	"context"

	"github.com/kbukum/reactivekit/logger"
)

// Log records every signal passing through this point at debug level:
// subscription, each value, completion, failure and release. A nil log uses
// the "pipeline" component logger.
func Log[T any](p *Pipeline[T], log *logger.Logger, name string) *Pipeline[T] {
	if log == nil {
		log = logger.Get("pipeline")
	}
	return &Pipeline[T]{
		create: func(ctx context.Context) Iterator[T] {
			l := log.WithContext(ctx).WithFields(logger.Fields("sequence", name))
			l.Debug("onSubscribe")
			return &logIter[T]{source: p.create(ctx), log: l}
		},
	}
}

type logIter[T any] struct {
	source   Iterator[T]
	log      *logger.Logger
	index    int
	terminal bool
}

func (it *logIter[T]) Next(ctx context.Context) (result T, ok bool, err error) {
	val, ok, err := it.source.Next(ctx)
	switch {
	case err != nil && IsCancellation(err):
		it.terminal = true
		it.log.Debug("cancel")
	case err != nil:
		it.terminal = true
		it.log.Debug("onError", logger.Fields(logger.FieldError, err.Error()))
	case !ok:
		if !it.terminal {
			it.terminal = true
			it.log.Debug("onComplete", logger.Fields("count", it.index))
		}
	default:
		it.log.Debug("onNext", logger.Fields("index", it.index, "value", val))
		it.index++
	}
	return val, ok, err
}

func (it *logIter[T]) Close() error {
	if !it.terminal {
		it.log.Debug("cancel")
	}
	return it.source.Close()
}
