package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

type recordingSpan struct {
	tracenoop.Span
	name   string
	attrs  map[attribute.Key]attribute.Value
	status codes.Code
	err    error
	ended  bool
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	for _, a := range kv {
		s.attrs[a.Key] = a.Value
	}
}

func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) { s.err = err }
func (s *recordingSpan) SetStatus(c codes.Code, _ string)              { s.status = c }
func (s *recordingSpan) End(...trace.SpanEndOption)                    { s.ended = true }

type recordingTracer struct {
	tracenoop.Tracer
	spans *[]*recordingSpan
}

func (t recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	span := &recordingSpan{name: name, attrs: make(map[attribute.Key]attribute.Value)}
	span.SetAttributes(cfg.Attributes()...)
	*t.spans = append(*t.spans, span)
	return ctx, span
}

type recordingProvider struct {
	tracenoop.TracerProvider
	spans []*recordingSpan
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return recordingTracer{spans: &p.spans}
}

func TestTracedRecordsSpans(t *testing.T) {
	provider := &recordingProvider{}
	a := Traced(NewLocal(NewMemoryBackend()),
		WithTracerProvider(provider),
		WithBackendName("memory"),
	)
	ctx := context.Background()

	require.NoError(t, a.SetItem(ctx, "app", "{}"))
	_, ok, err := a.GetItem(ctx, "app")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, a.RemoveItem(ctx, "app"))

	require.Len(t, provider.spans, 3)
	assert.Equal(t, "storage.SetItem", provider.spans[0].name)
	assert.Equal(t, "storage.GetItem", provider.spans[1].name)
	assert.Equal(t, "storage.RemoveItem", provider.spans[2].name)

	get := provider.spans[1]
	assert.True(t, get.ended)
	assert.Equal(t, codes.Ok, get.status)
	assert.Equal(t, "app", get.attrs["fusion.storage.key"].AsString())
	assert.Equal(t, "memory", get.attrs["fusion.storage.backend"].AsString())
	assert.True(t, get.attrs["fusion.storage.found"].AsBool())
}

func TestTracedRecordsErrors(t *testing.T) {
	provider := &recordingProvider{}
	client := newFakeClient()
	client.err = errors.New("unavailable")
	a := Traced(NewAsync(client), WithTracerProvider(provider))

	err := a.SetItem(context.Background(), "app", "{}")
	assert.EqualError(t, err, "unavailable")

	require.Len(t, provider.spans, 1)
	assert.Equal(t, codes.Error, provider.spans[0].status)
	assert.Equal(t, err, provider.spans[0].err)
}
