package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Config selects where spans are exported.
type Config struct {
	ServiceName string
	// ProjectName groups traces in OpenInference-aware backends.
	ProjectName string
	// Endpoint is the full OTLP/HTTP traces URL, e.g. http://localhost:6006/v1/traces.
	Endpoint string
	Headers  map[string]string
}

// Setup installs a batching SDK tracer provider exporting over OTLP/HTTP,
// registers the W3C propagator globally and returns the adapter together
// with a shutdown function that flushes pending spans.
func Setup(ctx context.Context, cfg Config) (*Tracer, func(context.Context) error, error) {
	if cfg.ServiceName == "" {
		cfg.ServiceName = "go-swarm"
	}
	opts := []otlptracehttp.Option{}
	if cfg.Endpoint != "" {
		opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
	}
	if len(cfg.Headers) > 0 {
		opts = append(opts, otlptracehttp.WithHeaders(cfg.Headers))
	}
	exp, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create otlp exporter: %w", err)
	}
	tracer, tp := install(sdktrace.WithBatcher(exp), cfg)
	return tracer, tp.Shutdown, nil
}

func install(processor sdktrace.TracerProviderOption, cfg Config) (*Tracer, *sdktrace.TracerProvider) {
	attrs := []attribute.KeyValue{attribute.String("service.name", cfg.ServiceName)}
	if cfg.ProjectName != "" {
		attrs = append(attrs, attribute.String("openinference.project.name", cfg.ProjectName))
	}
	tp := sdktrace.NewTracerProvider(processor, sdktrace.WithResource(resource.NewSchemaless(attrs...)))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return NewTracer(cfg.ServiceName, tp), tp
}
