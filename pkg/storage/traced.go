package storage

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for storage spans.
const defaultTracerName = "fusion/storage"

// TraceOption configures Traced.
type TraceOption func(*traceConfig)

type traceConfig struct {
	tracerName string
	provider   trace.TracerProvider
	backend    string
}

// WithTracerName sets the tracer name. Default: "fusion/storage".
func WithTracerName(name string) TraceOption {
	return func(c *traceConfig) {
		c.tracerName = name
	}
}

// WithTracerProvider uses provider instead of the global tracer provider.
func WithTracerProvider(provider trace.TracerProvider) TraceOption {
	return func(c *traceConfig) {
		c.provider = provider
	}
}

// WithBackendName sets the fusion.storage.backend span attribute.
func WithBackendName(name string) TraceOption {
	return func(c *traceConfig) {
		c.backend = name
	}
}

type traced struct {
	next    Adapter
	tracer  trace.Tracer
	backend string
}

// Traced wraps next so every call runs inside a span. Errors are recorded on
// the span and returned unchanged.
//
// The tracer comes from the global OpenTelemetry provider unless
// WithTracerProvider is given. Configure it in main():
//
//	otel.SetTracerProvider(tp)
//	adapter := storage.Traced(storage.NewS3(client, "bucket"), storage.WithBackendName("s3"))
func Traced(next Adapter, opts ...TraceOption) Adapter {
	cfg := traceConfig{tracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&cfg)
	}

	provider := cfg.provider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}

	return &traced{
		next:    next,
		tracer:  provider.Tracer(cfg.tracerName),
		backend: cfg.backend,
	}
}

func (t *traced) start(ctx context.Context, op, key string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("fusion.storage.key", key),
	}
	if t.backend != "" {
		attrs = append(attrs, attribute.String("fusion.storage.backend", t.backend))
	}
	return t.tracer.Start(ctx, "storage."+op, trace.WithAttributes(attrs...))
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (t *traced) GetItem(ctx context.Context, key string) (string, bool, error) {
	ctx, span := t.start(ctx, "GetItem", key)
	value, ok, err := t.next.GetItem(ctx, key)
	span.SetAttributes(
		attribute.Bool("fusion.storage.found", ok),
		attribute.Int("fusion.storage.bytes", len(value)),
	)
	finish(span, err)
	return value, ok, err
}

func (t *traced) SetItem(ctx context.Context, key, value string) error {
	ctx, span := t.start(ctx, "SetItem", key)
	span.SetAttributes(attribute.Int("fusion.storage.bytes", len(value)))
	err := t.next.SetItem(ctx, key, value)
	finish(span, err)
	return err
}

func (t *traced) RemoveItem(ctx context.Context, key string) error {
	ctx, span := t.start(ctx, "RemoveItem", key)
	err := t.next.RemoveItem(ctx, key)
	finish(span, err)
	return err
}
