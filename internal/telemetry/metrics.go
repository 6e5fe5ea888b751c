package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc flushes and stops the meter provider.
type ShutdownFunc func(context.Context) error

// InitMetrics installs a global meter provider that periodically writes
// metrics as JSON to output. Callers must invoke the returned ShutdownFunc
// to flush the final export.
func InitMetrics(serviceName, version string, output io.Writer, interval time.Duration) (ShutdownFunc, error) {
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(output))
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	if interval <= 0 {
		interval = time.Minute
	}
	mp := metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter, metric.WithInterval(interval))),
		metric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	return mp.Shutdown, nil
}
