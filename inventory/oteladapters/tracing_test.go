package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory/oteladapters"
	"github.com/AntonStoeckl/rental-reservation-engine/testutil/observability/testdoubles"
)

func Test_TracingCollector_FinishesSpansWithStatusAndAttributes(t *testing.T) {
	testCases := []struct {
		status   string
		wantCode codes.Code
	}{
		{status: "success", wantCode: codes.Ok},
		{status: "error", wantCode: codes.Error},
		{status: "canceled", wantCode: codes.Error},
		{status: "rejected", wantCode: codes.Unset},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			// arrange
			exporter, collector := givenTracingCollector()

			// act
			_, span := collector.StartSpan(context.Background(), "booking.accept_quote", map[string]string{"operation": "accept_quote"})
			span.AddAttribute("reservation_id", "r-1")
			collector.FinishSpan(span, tc.status, map[string]string{"duration_ms": "1.25"})

			// assert
			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, "booking.accept_quote", spans[0].Name)
			assert.Equal(t, tc.wantCode, spans[0].Status.Code)
			assertSpanAttribute(t, spans[0], "operation", "accept_quote")
			assertSpanAttribute(t, spans[0], "reservation_id", "r-1")
			assertSpanAttribute(t, spans[0], "duration_ms", "1.25")
		})
	}
}

func Test_TracingCollector_RecordsUnknownStatusAsAttribute(t *testing.T) {
	exporter, collector := givenTracingCollector()

	_, span := collector.StartSpan(context.Background(), "inventory_store.tx", nil)
	collector.FinishSpan(span, "concurrency_conflict", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assertSpanAttribute(t, spans[0], "status", "concurrency_conflict")
}

func Test_TracingCollector_PropagatesTheSpanInTheContext(t *testing.T) {
	// arrange
	exporter, collector := givenTracingCollector()

	// act
	ctx, parent := collector.StartSpan(context.Background(), "booking.create_quote", nil)
	_, child := collector.StartSpan(ctx, "inventory_store.tx", nil)
	collector.FinishSpan(child, "success", nil)
	collector.FinishSpan(parent, "success", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID(), "Should nest the store span under the engine span")
	assert.True(t, trace.SpanContextFromContext(ctx).IsValid())
}

func Test_TracingCollector_IgnoresForeignSpans(t *testing.T) {
	exporter, collector := givenTracingCollector()

	assert.NotPanics(t, func() {
		collector.FinishSpan(&testdoubles.SpanSpy{}, "success", nil)
	})
	assert.Empty(t, exporter.GetSpans())
}

func givenTracingCollector() (*tracetest.InMemoryExporter, *oteladapters.TracingCollector) {
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return exporter, oteladapters.NewTracingCollector(provider.Tracer("rental-test"))
}

func assertSpanAttribute(t *testing.T, span tracetest.SpanStub, key, want string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key(key) {
			assert.Equal(t, want, attr.Value.AsString(), "Should record attribute %s", key)
			return
		}
	}

	assert.Failf(t, "attribute missing", "span %s has no attribute %s", span.Name, key)
}
