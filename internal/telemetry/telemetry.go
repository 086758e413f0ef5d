// Package telemetry configures the global OpenTelemetry tracer provider.
// Tracing is opt-in: without OTEL_EXPORTER_OTLP_ENDPOINT set, Init is a
// no-op and spans recorded elsewhere in the codebase go nowhere.
package telemetry

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const endpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

// Init installs an OTLP/HTTP trace exporter as the global tracer provider
// when an endpoint is configured. The returned shutdown func flushes pending
// spans; callers must invoke it on exit. It is safe to call when tracing is
// disabled.
func Init(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	endpoint := os.Getenv(endpointEnv)
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("create otlp exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(attribute.String("service.name", serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	log.Printf("telemetry tracing enabled service=%s endpoint=%s", serviceName, endpoint)
	return provider.Shutdown, nil
}
