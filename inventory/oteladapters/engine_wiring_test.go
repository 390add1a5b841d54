package oteladapters_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/AntonStoeckl/rental-reservation-engine/booking"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory/memengine"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory/oteladapters"
)

func Test_Engine_ReportsOperationsThroughOpenTelemetry(t *testing.T) {
	// arrange
	exporter := tracetest.NewInMemoryExporter()
	tracer := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter)).Tracer("rental-test")
	reader := sdkmetric.NewManualReader()
	meter := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)).Meter("rental-test")
	var logs bytes.Buffer

	store, err := memengine.NewStore()
	require.NoError(t, err)

	engine, err := booking.NewEngine(store,
		booking.WithTracing(oteladapters.NewTracingCollector(tracer)),
		booking.WithMetrics(oteladapters.NewMetricsCollector(meter)),
		booking.WithContextualLogger(oteladapters.NewSlogBridgeLoggerWithHandler(slog.NewJSONHandler(&logs, nil))),
	)
	require.NoError(t, err)

	// act
	_, err = engine.RegisterProduct(context.Background(), booking.RegisterProduct{
		Name:      "Chair",
		UnitPrice: decimal.RequireFromString("2.50"),
		Mode:      inventory.ModePooled,
		Capacity:  10,
	})

	// assert
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, booking.SpanNameOperation+"register_product", spans[0].Name)
	assertSpanAttribute(t, spans[0], "status", booking.StatusSuccess)

	findMetric(t, reader, booking.OperationDurationMetric)
	findMetric(t, reader, booking.OperationCallsMetric)

	assert.Contains(t, logs.String(), booking.LogMsgOperationCompleted)
}
