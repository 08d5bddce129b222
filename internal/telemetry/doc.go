// Package telemetry wires OpenTelemetry tracing for a single CLI run.
//
// Tracing is off unless OTEL_EXPORTER_OTLP_ENDPOINT is set:
//
//	shutdown, err := telemetry.Init(ctx, "audiohook")
//	defer shutdown(context.Background())
//
//	client := http.NewClient(http.Options{WrapTransport: telemetry.Transport})
package telemetry
