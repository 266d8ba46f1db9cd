package util

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracerWithoutCollector(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer func() {
		otel.SetTracerProvider(prev)
		tracer = nil
	}()

	tp, err := InitTracer(TraceOptions{Env: "test", SampleRatio: 1})
	require.NoError(t, err)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := StartSpanWithReference(context.Background(), "DeliveryResolver.Resolve", "ref-1")
	defer span.End()
	assert.True(t, span.SpanContext().IsSampled())
}

func TestInitTracerHonoursZeroRatio(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer func() {
		otel.SetTracerProvider(prev)
		tracer = nil
	}()

	tp, err := InitTracer(TraceOptions{Env: "test", SampleRatio: 0})
	require.NoError(t, err)
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := StartSpan(context.Background(), "CatalogService.Explore")
	defer span.End()
	assert.True(t, span.SpanContext().IsValid())
	assert.False(t, span.SpanContext().IsSampled())
}
