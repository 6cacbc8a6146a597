package observability

import (
	"context"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/reactivekit/logger"
	"github.com/kbukum/reactivekit/pipeline"
)

// Drive tracks one pipeline drive: a span around it, the items delivered
// and the terminal it ended with.
type Drive struct {
	sequence string
	start    time.Time
	span     trace.Span
	metrics  *Metrics
	items    atomic.Int64
	ended    atomic.Bool
}

// StartDrive opens a span for a drive of sequence. m may be nil, in which
// case only the span is recorded.
func StartDrive(ctx context.Context, m *Metrics, sequence string) (context.Context, *Drive) {
	ctx, span := StartSpan(ctx, SpanDrive, trace.WithAttributes(attribute.String(AttrSequence, sequence)))
	if id := logger.RequestIDFromContext(ctx); id != "" {
		span.SetAttributes(attribute.String(AttrRequestID, id))
	}
	d := &Drive{sequence: sequence, start: time.Now(), span: span, metrics: m}
	if m != nil {
		m.active.Add(ctx, 1, d.attrs())
	}
	return ctx, d
}

func (d *Drive) attrs() metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("sequence", d.sequence))
}

// Item records one delivered item.
func (d *Drive) Item(ctx context.Context) {
	d.items.Add(1)
	if d.metrics != nil {
		d.metrics.items.Add(ctx, 1, d.attrs())
	}
}

// Items returns the number of items recorded so far.
func (d *Drive) Items() int64 { return d.items.Load() }

// End closes the span and records the drive. Only the first call counts.
func (d *Drive) End(ctx context.Context, t pipeline.Terminal, err error) {
	if !d.ended.CompareAndSwap(false, true) {
		return
	}
	d.span.SetAttributes(
		attribute.String(AttrTerminal, t.String()),
		attribute.Int64(AttrItems, d.items.Load()),
	)
	if err != nil && t == pipeline.TerminalError {
		d.span.RecordError(err)
		d.span.SetStatus(codes.Error, err.Error())
	}
	d.span.End()

	if d.metrics != nil {
		ctx = context.WithoutCancel(ctx)
		d.metrics.active.Add(ctx, -1, d.attrs())
		d.metrics.drives.Add(ctx, 1, metric.WithAttributes(
			attribute.String("sequence", d.sequence),
			attribute.String("terminal", t.String()),
		))
		d.metrics.driveDuration.Record(ctx, time.Since(d.start).Seconds(), d.attrs())
	}
}

// Instrument counts every item p delivers against d.
func Instrument[T any](d *Drive, p *pipeline.Pipeline[T]) *pipeline.Pipeline[T] {
	return pipeline.Tap(p, func(ctx context.Context, _ T) error {
		d.Item(ctx)
		return nil
	})
}
