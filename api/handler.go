package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/reactivekit/errors"
	"github.com/kbukum/reactivekit/generator"
	"github.com/kbukum/reactivekit/logger"
	"github.com/kbukum/reactivekit/observability"
	"github.com/kbukum/reactivekit/pipeline"
	"github.com/kbukum/reactivekit/server"
	"github.com/kbukum/reactivekit/sse"
	"github.com/kbukum/reactivekit/validation"
)

// MIMENDJSON is the newline-delimited JSON media type /flux can stream.
const MIMENDJSON = "application/x-ndjson"

// MetricsSource supplies the drive instruments. It is consulted per request
// because telemetry starts after routes are registered.
type MetricsSource interface {
	Metrics() *observability.Metrics
}

// Handler serves the sequence endpoints.
type Handler struct {
	cfg     Config
	tracker *sse.Tracker
	metrics MetricsSource
	names   *generator.Service
	log     *logger.Logger

	flux  func() *pipeline.Pipeline[int]
	mono  func() *pipeline.Pipeline[string]
	ticks func(period time.Duration) *pipeline.Pipeline[int64]
}

// Option configures a Handler.
type Option func(*Handler)

// WithTracker registers /stream connections with t so they can be listed
// and cancelled on shutdown.
func WithTracker(t *sse.Tracker) Option {
	return func(h *Handler) { h.tracker = t }
}

// WithMetrics records drive instruments from m.
func WithMetrics(m MetricsSource) Option {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler validates cfg and builds the handler.
func NewHandler(cfg Config, opts ...Option) (*Handler, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Handler{cfg: cfg, log: logger.Get("api")}
	for _, opt := range opts {
		opt(h)
	}
	h.flux = func() *pipeline.Pipeline[int] { return pipeline.FromSlice(h.cfg.FluxValues) }
	h.mono = func() *pipeline.Pipeline[string] {
		return pipeline.Log(pipeline.Single(h.cfg.MonoMessage), h.log, "mono")
	}
	h.ticks = pipeline.Interval
	return h, nil
}

// Register mounts the endpoints on r. /names is mounted only with a
// generator and /streams only with a tracker.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/flux", h.Flux)
	r.GET("/mono", h.Mono)
	r.GET("/stream", h.Stream)
	if h.names != nil {
		r.GET("/names", h.ListNames)
		r.GET("/names/:operation", h.Names)
	}
	if h.tracker != nil {
		r.GET("/streams", h.Streams)
		r.DELETE("/streams", h.CancelStreams)
	}
}

func (h *Handler) startDrive(ctx context.Context, sequence string) (context.Context, *observability.Drive) {
	var m *observability.Metrics
	if h.metrics != nil {
		m = h.metrics.Metrics()
	}
	return observability.StartDrive(ctx, m, sequence)
}

// Flux drives the integer sequence. The whole array is buffered for JSON;
// NDJSON writes one line per item as it arrives.
func (h *Handler) Flux(c *gin.Context) {
	switch c.NegotiateFormat(gin.MIMEJSON, MIMENDJSON) {
	case gin.MIMEJSON:
		h.fluxJSON(c)
	case MIMENDJSON:
		h.fluxNDJSON(c)
	default:
		server.RespondWithError(c, apperrors.NotAcceptable(c.GetHeader("Accept"), gin.MIMEJSON, MIMENDJSON))
	}
}

func (h *Handler) fluxJSON(c *gin.Context) {
	ctx, d := h.startDrive(c.Request.Context(), "flux")
	items := make([]int, 0, len(h.cfg.FluxValues))
	var driveErr error
	t := pipeline.DriveTo(ctx, observability.Instrument(d, h.flux()), pipeline.ConsumerFuncs[int]{
		Next:  func(v int) { items = append(items, v) },
		Error: func(err error) { driveErr = err },
	})
	d.End(ctx, t, driveErr)

	if t != pipeline.TerminalComplete {
		h.respondDriveError(c, t, driveErr)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) fluxNDJSON(c *gin.Context) {
	ctx, d := h.startDrive(c.Request.Context(), "flux")
	enc := json.NewEncoder(c.Writer)
	started := false
	begin := func() {
		if !started {
			started = true
			c.Header("Content-Type", MIMENDJSON)
			c.Status(http.StatusOK)
		}
	}

	var driveErr error
	t := pipeline.DriveTo(ctx, observability.Instrument(d, h.flux()), pipeline.ConsumerFuncs[int]{
		Next: func(v int) {
			begin()
			if err := enc.Encode(v); err != nil {
				h.log.WithContext(ctx).Debug("NDJSON write failed", logger.ErrorFields("flux", err))
				return
			}
			c.Writer.Flush()
		},
		Error: func(err error) { driveErr = err },
	})
	d.End(ctx, t, driveErr)

	switch {
	case t == pipeline.TerminalComplete:
		begin()
	case !started:
		h.respondDriveError(c, t, driveErr)
	case t == pipeline.TerminalError:
		// Headers are out; the failure goes in the body as a last line.
		_ = enc.Encode(driveError(driveErr).ToResponse())
	}
}

// Mono drives the single greeting.
func (h *Handler) Mono(c *gin.Context) {
	format := c.NegotiateFormat(gin.MIMEPlain, gin.MIMEJSON)
	if format == "" {
		server.RespondWithError(c, apperrors.NotAcceptable(c.GetHeader("Accept"), gin.MIMEPlain, gin.MIMEJSON))
		return
	}

	ctx, d := h.startDrive(c.Request.Context(), "mono")
	var (
		value    string
		got      bool
		driveErr error
	)
	t := pipeline.DriveTo(ctx, observability.Instrument(d, h.mono()), pipeline.ConsumerFuncs[string]{
		Next:  func(v string) { value, got = v, true },
		Error: func(err error) { driveErr = err },
	})
	d.End(ctx, t, driveErr)

	switch {
	case t != pipeline.TerminalComplete:
		h.respondDriveError(c, t, driveErr)
	case !got:
		c.Status(http.StatusNoContent)
	case format == gin.MIMEJSON:
		c.JSON(http.StatusOK, value)
	default:
		c.String(http.StatusOK, value)
	}
}

// Stream sends an interval counter as server-sent events. The drive ends
// when the client disconnects, after ?limit events, or on shutdown.
func (h *Handler) Stream(c *gin.Context) {
	v := validation.New()
	period := v.Duration("period", c.Query("period"), h.cfg.StreamPeriod)
	limit := v.Int("limit", c.Query("limit"), 0)
	v.DurationRange("period", period, h.cfg.MinStreamPeriod, h.cfg.StreamPeriod*60)
	v.Range("limit", limit, 0, h.cfg.MaxStreamLimit)
	if appErr := v.Validate(); appErr != nil {
		server.RespondWithError(c, appErr)
		return
	}

	ticks := h.ticks(period)
	if limit > 0 {
		ticks = pipeline.Take(ticks, limit)
	}
	ticks = pipeline.Log(ticks, h.log, "stream")

	ctx, d := h.startDrive(c.Request.Context(), "stream")
	opts := []sse.Option{
		sse.WithKeepAlive(h.cfg.KeepAlive),
		sse.WithErrorMapper(func(err error) any { return driveError(err).ToResponse() }),
	}
	if h.tracker != nil {
		opts = append(opts, sse.WithTracker(h.tracker))
	}
	t, err := sse.Serve(c.Writer, c.Request.WithContext(ctx), observability.Instrument(d, ticks), opts...)
	d.End(ctx, t, err)
}

func (h *Handler) respondDriveError(c *gin.Context, t pipeline.Terminal, err error) {
	if t == pipeline.TerminalCancelled {
		h.log.WithContext(c.Request.Context()).Debug("Client went away before the sequence finished",
			logger.Fields("path", c.Request.URL.Path))
		server.RespondWithError(c, apperrors.StreamCancelled())
		return
	}
	server.RespondWithError(c, driveError(err))
}

// driveError maps a terminal pipeline error to the error body.
func driveError(err error) *apperrors.AppError {
	if te, ok := pipeline.AsTransformError(err); ok {
		return apperrors.TransformFailed(te.Stage, te.Index, te.Cause)
	}
	return apperrors.Wrap(err)
}
