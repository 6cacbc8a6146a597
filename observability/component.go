package observability

import (
	"context"
	"errors"
	"fmt"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/reactivekit/component"
)

var (
	_ component.Component   = (*Component)(nil)
	_ component.Describable = (*Component)(nil)
)

// Component owns the tracer and meter providers and flushes them on stop.
type Component struct {
	cfg     Config
	id      Identity
	tracer  *sdktrace.TracerProvider
	meter   *sdkmetric.MeterProvider
	metrics *Metrics
}

// NewComponent returns a telemetry component for cfg.
func NewComponent(cfg Config, id Identity) *Component {
	return &Component{cfg: cfg, id: id}
}

// Name returns the component name.
func (c *Component) Name() string { return "telemetry" }

// Start initializes both providers and the drive instruments.
func (c *Component) Start(ctx context.Context) error {
	tp, err := InitTracer(ctx, c.cfg, c.id)
	if err != nil {
		return err
	}
	mp, err := InitMeter(ctx, c.cfg, c.id)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return err
	}
	m, err := NewMetrics(Meter())
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return err
	}
	c.tracer, c.meter, c.metrics = tp, mp, m
	return nil
}

// Stop flushes and shuts down both providers.
func (c *Component) Stop(ctx context.Context) error {
	var errs []error
	if c.tracer != nil {
		if err := c.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer: %w", err))
		}
	}
	if c.meter != nil {
		if err := c.meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Metrics returns the drive instruments, nil before Start.
func (c *Component) Metrics() *Metrics { return c.metrics }

// Health reports unhealthy until the providers exist.
func (c *Component) Health(context.Context) component.Health {
	if c.tracer == nil || c.meter == nil {
		return component.Health{Name: c.Name(), Status: component.StatusUnhealthy, Message: "not started"}
	}
	if !c.cfg.Enabled {
		return component.Health{Name: c.Name(), Status: component.StatusHealthy, Message: "export disabled"}
	}
	return component.Health{Name: c.Name(), Status: component.StatusHealthy}
}

// Describe returns the startup log entry.
func (c *Component) Describe() component.Description {
	details := "in-process only"
	if c.cfg.Enabled {
		details = fmt.Sprintf("otlp http %s, sample %.2f", c.cfg.Endpoint, c.cfg.SampleRate)
	}
	return component.Description{Name: "Telemetry", Type: "telemetry", Details: details}
}
