package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/reactivekit/logger"
)

// InitMeter creates the meter provider for cfg and installs it as the
// global provider. Without export enabled the provider has no reader and
// instruments are no-ops.
func InitMeter(ctx context.Context, cfg Config, id Identity) (*sdkmetric.MeterProvider, error) {
	res, err := NewResource(id)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.Enabled {
		expOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			expOpts = append(expOpts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, expOpts...)
		if err != nil {
			return nil, fmt.Errorf("creating metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exp, sdkmetric.WithInterval(cfg.MetricInterval)),
		))
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	otel.SetMeterProvider(mp)

	logger.Get("telemetry").Info("Meter initialized", logger.Fields(
		logger.FieldService, id.Name,
		"export", cfg.Enabled,
		"interval", cfg.MetricInterval.String(),
	))
	return mp, nil
}

// Meter returns the package meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the pipeline drive instruments.
type Metrics struct {
	drives        metric.Int64Counter
	items         metric.Int64Counter
	active        metric.Int64UpDownCounter
	driveDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	drives, err := meter.Int64Counter("pipeline.drives",
		metric.WithDescription("Completed pipeline drives by sequence and terminal"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.drives counter: %w", err)
	}

	items, err := meter.Int64Counter("pipeline.items",
		metric.WithDescription("Items delivered to consumers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.items counter: %w", err)
	}

	active, err := meter.Int64UpDownCounter("pipeline.active",
		metric.WithDescription("Drives in progress"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.active counter: %w", err)
	}

	driveDuration, err := meter.Float64Histogram("pipeline.drive.duration",
		metric.WithDescription("Duration of pipeline drives"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating pipeline.drive.duration histogram: %w", err)
	}

	return &Metrics{
		drives:        drives,
		items:         items,
		active:        active,
		driveDuration: driveDuration,
	}, nil
}
