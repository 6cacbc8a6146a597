package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/reactivekit/errors"
	"github.com/kbukum/reactivekit/generator"
	"github.com/kbukum/reactivekit/observability"
	"github.com/kbukum/reactivekit/pipeline"
	"github.com/kbukum/reactivekit/server"
	"github.com/kbukum/reactivekit/sse"
	"github.com/kbukum/reactivekit/validation"
)

// MaxThreshold bounds the n query parameter of /names/:operation.
const MaxThreshold = 64

// WithGenerator mounts the names sequences under /names.
func WithGenerator(svc *generator.Service) Option {
	return func(h *Handler) { h.names = svc }
}

// ListNames returns the available sequence names.
func (h *Handler) ListNames(c *gin.Context) {
	server.RespondOK(c, gin.H{"operations": generator.OperationNames()})
}

// Names drives one named sequence. JSON collects the whole sequence; an
// event-stream client receives every name as it is produced.
func (h *Handler) Names(c *gin.Context) {
	v := validation.New()
	n := v.Int("n", c.Query("n"), 3)
	v.Range("n", n, 0, MaxThreshold)
	if appErr := v.Validate(); appErr != nil {
		server.RespondWithError(c, appErr)
		return
	}

	operation := c.Param("operation")
	p, ok := h.names.Operation(operation, n)
	if !ok {
		server.RespondWithError(c, apperrors.NotFound("operation", operation))
		return
	}

	switch c.NegotiateFormat(gin.MIMEJSON, "text/event-stream") {
	case gin.MIMEJSON:
		ctx, d := h.startDrive(c.Request.Context(), operation)
		items, err := pipeline.Collect(ctx, observability.Instrument(d, p))
		t := terminalOf(err)
		d.End(ctx, t, err)
		if t != pipeline.TerminalComplete {
			h.respondDriveError(c, t, err)
			return
		}
		if items == nil {
			items = []string{}
		}
		c.JSON(http.StatusOK, items)
	case "text/event-stream":
		ctx, d := h.startDrive(c.Request.Context(), operation)
		opts := []sse.Option{
			sse.WithKeepAlive(h.cfg.KeepAlive),
			sse.WithEventName(operation),
			sse.WithErrorMapper(func(err error) any { return driveError(err).ToResponse() }),
		}
		if h.tracker != nil {
			opts = append(opts, sse.WithTracker(h.tracker))
		}
		t, err := sse.Serve(c.Writer, c.Request.WithContext(ctx), observability.Instrument(d, p), opts...)
		d.End(ctx, t, err)
	default:
		server.RespondWithError(c, apperrors.NotAcceptable(c.GetHeader("Accept"), gin.MIMEJSON, "text/event-stream"))
	}
}

func terminalOf(err error) pipeline.Terminal {
	switch {
	case err == nil:
		return pipeline.TerminalComplete
	case pipeline.IsCancellation(err):
		return pipeline.TerminalCancelled
	default:
		return pipeline.TerminalError
	}
}

// Streams lists the open event streams.
func (h *Handler) Streams(c *gin.Context) {
	server.RespondOK(c, gin.H{"streams": h.tracker.Streams()})
}

// CancelStreams cancels the open streams whose id matches the match glob.
func (h *Handler) CancelStreams(c *gin.Context) {
	pattern := c.Query("match")
	if pattern == "" {
		server.RespondWithError(c, apperrors.MissingField("match"))
		return
	}
	n, err := h.tracker.CancelMatching(pattern)
	if err != nil {
		server.RespondWithError(c, apperrors.InvalidFormat("match", "glob pattern"))
		return
	}
	server.RespondOK(c, gin.H{"cancelled": n})
}
