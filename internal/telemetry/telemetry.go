package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// EndpointEnv enables tracing when set.
const EndpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"

// TracerName names the tracer used for pipeline spans.
const TracerName = "github.com/lacer2k/n8n-lacer2k-chatbot"

// Init installs an OTLP/HTTP tracer provider when EndpointEnv is set. The
// exporter reads the standard OTEL_EXPORTER_OTLP_* variables itself.
// Without an endpoint it installs nothing and returns a no-op shutdown.
func Init(ctx context.Context, serviceName string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if serviceName == "" {
		return noop, errors.New("telemetry: service name is required")
	}
	if os.Getenv(EndpointEnv) == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return noop, fmt.Errorf("telemetry: create exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return noop, fmt.Errorf("telemetry: create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// Transport wraps base so every outbound request gets a client span and
// trace context headers.
func Transport(base http.RoundTripper) http.RoundTripper {
	return otelhttp.NewTransport(base)
}

// Tracer returns the tracer for pipeline spans. It is a no-op tracer until
// Init installs a provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}
