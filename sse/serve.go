package sse

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/kbukum/reactivekit/errors"
	"github.com/kbukum/reactivekit/logger"
	"github.com/kbukum/reactivekit/pipeline"
)

// DefaultKeepAlive is below the idle timeout of common proxies.
const DefaultKeepAlive = 30 * time.Second

// ErrStreamingUnsupported is returned by Serve when the response writer
// cannot flush.
var ErrStreamingUnsupported = errors.New("sse: streaming not supported")

type options struct {
	keepAlive time.Duration
	event     string
	retry     int
	streamID  string
	tracker   *Tracker
	encode    func(any) ([]byte, error)
	errorBody func(error) any
}

// Option configures Serve.
type Option func(*options)

// WithKeepAlive sets the keepalive comment interval. Zero disables it.
func WithKeepAlive(d time.Duration) Option {
	return func(o *options) { o.keepAlive = d }
}

// WithEventName sets the event field of item events.
func WithEventName(name string) Option {
	return func(o *options) { o.event = name }
}

// WithRetry sends a retry hint, in milliseconds, with the first event.
func WithRetry(ms int) Option {
	return func(o *options) { o.retry = ms }
}

// WithStreamID sets the id the stream is tracked under. Defaults to the
// request id, or a new UUID.
func WithStreamID(id string) Option {
	return func(o *options) { o.streamID = id }
}

// WithTracker registers the stream with t while it is open.
func WithTracker(t *Tracker) Option {
	return func(o *options) { o.tracker = t }
}

// WithEncoder sets how items become event data. Defaults to JSON.
func WithEncoder(fn func(any) ([]byte, error)) Option {
	return func(o *options) { o.encode = fn }
}

// WithErrorMapper sets the JSON body of the error event sent when the
// pipeline fails.
func WithErrorMapper(fn func(error) any) Option {
	return func(o *options) { o.errorBody = fn }
}

func defaultErrorBody(err error) any {
	return apperrors.Wrap(err).ToResponse()
}

// Serve drives p and writes each item to w as a server-sent event until the
// pipeline ends or the client goes away. A pipeline error is sent as an
// "error" event and returned with TerminalError. The pipeline's resources are
// released before Serve returns.
func Serve[T any](w http.ResponseWriter, r *http.Request, p *pipeline.Pipeline[T], opts ...Option) (pipeline.Terminal, error) {
	o := options{
		keepAlive: DefaultKeepAlive,
		encode:    json.Marshal,
		errorBody: defaultErrorBody,
	}
	for _, opt := range opts {
		opt(&o)
	}

	log := logger.Get("sse").WithContext(r.Context())
	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("Streaming not supported by response writer")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return pipeline.TerminalError, ErrStreamingUnsupported
	}

	id := o.streamID
	if id == "" {
		id = logger.RequestIDFromContext(r.Context())
	}
	if id == "" {
		id = uuid.NewString()
	}

	ctx := r.Context()
	var tracked *trackedStream
	if o.tracker != nil {
		var release func()
		ctx, tracked, release = o.tracker.attach(ctx, id, r.URL.Path)
		defer release()
	}

	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Warn("Could not clear write deadline", logger.ErrorFields("stream", err))
	}

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ctx, cancel := context.WithCancel(ctx)
	signals := pipeline.Signals(ctx, p)
	defer func() {
		cancel()
		for range signals {
		}
	}()

	var keepAlive <-chan time.Time
	if o.keepAlive > 0 {
		ticker := time.NewTicker(o.keepAlive)
		defer ticker.Stop()
		keepAlive = ticker.C
	}

	start := time.Now()
	var seq int64
	end := func(t pipeline.Terminal, err error) (pipeline.Terminal, error) {
		log.Debug("Stream ended", logger.DriveFields(id, int(seq), t.String(), time.Since(start)))
		return t, err
	}

	for {
		select {
		case sig, ok := <-signals:
			if !ok {
				return end(pipeline.TerminalCancelled, nil)
			}
			switch sig.Kind {
			case pipeline.SignalItem:
				data, err := o.encode(sig.Value)
				if err != nil {
					writeError(w, flusher, o, err)
					return end(pipeline.TerminalError, err)
				}
				ev := Event{ID: strconv.FormatInt(seq, 10), Event: o.event, Data: data}
				if seq == 0 {
					ev.Retry = o.retry
				}
				if _, err := ev.WriteTo(w); err != nil {
					return end(pipeline.TerminalCancelled, nil)
				}
				flusher.Flush()
				seq++
				if tracked != nil {
					tracked.sent.Add(1)
				}
			case pipeline.SignalComplete:
				return end(pipeline.TerminalComplete, nil)
			case pipeline.SignalError:
				writeError(w, flusher, o, sig.Err)
				return end(pipeline.TerminalError, sig.Err)
			}
		case <-keepAlive:
			if err := writeComment(w, "keepalive"); err != nil {
				return end(pipeline.TerminalCancelled, nil)
			}
			flusher.Flush()
		}
	}
}

func writeError(w http.ResponseWriter, flusher http.Flusher, o options, err error) {
	data, merr := json.Marshal(o.errorBody(err))
	if merr != nil {
		data = []byte(`{"error":{"code":"INTERNAL_ERROR"}}`)
	}
	_, _ = Event{Event: EventTypeError, Data: data}.WriteTo(w)
	flusher.Flush()
}
