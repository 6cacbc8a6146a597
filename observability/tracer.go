package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/reactivekit/logger"
)

const instrumentationName = "github.com/kbukum/reactivekit"

// Span names.
const (
	SpanDrive = "pipeline.drive"
)

// Attribute keys.
const (
	AttrSequence  = "pipeline.sequence"
	AttrTerminal  = "pipeline.terminal"
	AttrItems     = "pipeline.items"
	AttrRequestID = "request.id"
)

// Identity names the service on every span and metric.
type Identity struct {
	Name        string
	Version     string
	Environment string
}

// NewResource creates a resource describing the service.
func NewResource(id Identity) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", id.Name),
			attribute.String("service.version", id.Version),
			attribute.String("deployment.environment", id.Environment),
		),
	)
}

// NewTracerProvider builds a tracer provider exporting to exp. A nil
// exporter records spans without exporting them.
func NewTracerProvider(res *resource.Resource, sampleRate float64, exp sdktrace.SpanExporter) *sdktrace.TracerProvider {
	var sampler sdktrace.Sampler
	switch {
	case sampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case sampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(sampleRate)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler)),
	}
	if exp != nil {
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...)
}

// InitTracer creates the OTLP tracer provider for cfg and installs it as the
// global provider together with the W3C propagators.
func InitTracer(ctx context.Context, cfg Config, id Identity) (*sdktrace.TracerProvider, error) {
	res, err := NewResource(id)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var exp sdktrace.SpanExporter
	if cfg.Enabled {
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exp, err = otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("creating trace exporter: %w", err)
		}
	}

	tp := NewTracerProvider(res, cfg.SampleRate, exp)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Get("telemetry").Info("Tracer initialized", logger.Fields(
		logger.FieldService, id.Name,
		"export", cfg.Enabled,
		"endpoint", cfg.Endpoint,
		"sample_rate", cfg.SampleRate,
	))
	return tp, nil
}

// Tracer returns the package tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// StartSpan starts a span with the package tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}
