package main

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// setupTracing wires the validator pipeline's spans (internal/validator's
// "validator.Validate"/"validator.canonicalize"/"validator.prefilter"/
// "validator.resolve"/"validator.classify") to an OTLP collector when
// OTEL_EXPORTER_OTLP_ENDPOINT is set. With no endpoint configured, the
// global tracer stays the default no-op implementation and span creation
// costs nothing — this is optional observability, never required for
// aegish to run. Returns a shutdown func to flush on exit.
func setupTracing(ctx context.Context, logger *slog.Logger) func(context.Context) error {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return func(context.Context) error { return nil }
	}

	exporter, err := otlptracegrpc.New(ctx)
	if err != nil {
		logger.Warn("cannot start OTLP trace exporter, tracing disabled", "error", err)
		return func(context.Context) error { return nil }
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}
