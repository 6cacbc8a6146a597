// Package observability wires OpenTelemetry tracing and metrics for
// pipeline drives.
//
// The telemetry component installs the global providers on start and
// flushes them on stop. Each HTTP drive is wrapped in a Drive, which opens a
// "pipeline.drive" span, counts delivered items and records the terminal:
//
//	ctx, d := observability.StartDrive(ctx, metrics, "flux")
//	terminal := pipeline.DriveTo(ctx, observability.Instrument(d, p), consumer)
//	d.End(ctx, terminal, err)
package observability
