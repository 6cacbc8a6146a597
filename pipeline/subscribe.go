package pipeline

import "context"

// Consumer receives the signals of one drive.
// OnNext is called for every value in order; then exactly one of OnComplete or
// OnError, unless the drive is cancelled, in which case neither is called.
type Consumer[T any] interface {
	OnNext(value T)
	OnComplete()
	OnError(err error)
}

// ConsumerFuncs adapts plain functions to Consumer. Nil fields are ignored.
type ConsumerFuncs[T any] struct {
	Next     func(T)
	Complete func()
	Error    func(error)
}

func (c ConsumerFuncs[T]) OnNext(value T) {
	if c.Next != nil {
		c.Next(value)
	}
}

func (c ConsumerFuncs[T]) OnComplete() {
	if c.Complete != nil {
		c.Complete()
	}
}

func (c ConsumerFuncs[T]) OnError(err error) {
	if c.Error != nil {
		c.Error(err)
	}
}

// Terminal describes how a drive ended.
type Terminal int

const (
	TerminalComplete Terminal = iota
	TerminalError
	TerminalCancelled
)

func (t Terminal) String() string {
	switch t {
	case TerminalComplete:
		return "complete"
	case TerminalError:
		return "error"
	case TerminalCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// DriveTo evaluates the pipeline against consumer and blocks until a terminal
// state is reached. All iterator resources are released before the terminal
// callback runs, and no OnNext is delivered once ctx is done.
func DriveTo[T any](ctx context.Context, p *Pipeline[T], consumer Consumer[T]) Terminal {
	iter := p.create(ctx)
	closed := false
	release := func() error {
		if closed {
			return nil
		}
		closed = true
		return iter.Close()
	}
	defer release()

	for {
		val, ok, err := iter.Next(ctx)
		if ctx.Err() != nil {
			_ = release()
			return TerminalCancelled
		}
		if err != nil {
			_ = release()
			consumer.OnError(err)
			return TerminalError
		}
		if !ok {
			if err := release(); err != nil {
				consumer.OnError(err)
				return TerminalError
			}
			consumer.OnComplete()
			return TerminalComplete
		}
		consumer.OnNext(val)
	}
}

// Subscription is a drive running on its own goroutine.
type Subscription struct {
	cancel   context.CancelFunc
	done     chan struct{}
	terminal Terminal
}

// Subscribe starts driving p into consumer in the background.
func Subscribe[T any](ctx context.Context, p *Pipeline[T], consumer Consumer[T]) *Subscription {
	ctx, cancel := context.WithCancel(ctx)
	s := &Subscription{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(s.done)
		defer cancel()
		s.terminal = DriveTo(ctx, p, consumer)
	}()
	return s
}

// Cancel stops the drive. It is safe to call from inside consumer callbacks
// and more than once.
func (s *Subscription) Cancel() { s.cancel() }

// Done is closed once the drive has ended and released its resources.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Wait blocks until the drive ends and reports how it ended.
func (s *Subscription) Wait() Terminal {
	<-s.done
	return s.terminal
}

// SignalKind tags a Signal.
type SignalKind int

const (
	SignalItem SignalKind = iota
	SignalComplete
	SignalError
)

// Signal is one event of a drive: an item, completion or an error.
type Signal[T any] struct {
	Kind  SignalKind
	Value T
	Err   error
}

// Signals drives p and delivers its events on the returned channel.
// The channel carries at most one terminal signal and is closed afterwards;
// on cancellation it is closed without one.
func Signals[T any](ctx context.Context, p *Pipeline[T]) <-chan Signal[T] {
	ch := make(chan Signal[T])
	go func() {
		defer close(ch)
		DriveTo[T](ctx, p, &signalConsumer[T]{ctx: ctx, ch: ch})
	}()
	return ch
}

type signalConsumer[T any] struct {
	ctx context.Context
	ch  chan<- Signal[T]
}

func (c *signalConsumer[T]) send(s Signal[T]) {
	select {
	case c.ch <- s:
	case <-c.ctx.Done():
	}
}

func (c *signalConsumer[T]) OnNext(value T) { c.send(Signal[T]{Kind: SignalItem, Value: value}) }

func (c *signalConsumer[T]) OnComplete() { c.send(Signal[T]{Kind: SignalComplete}) }

func (c *signalConsumer[T]) OnError(err error) { c.send(Signal[T]{Kind: SignalError, Err: err}) }
