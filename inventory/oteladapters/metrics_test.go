package oteladapters_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory/oteladapters"
)

func Test_MetricsCollector_RecordsDurationsInSeconds(t *testing.T) {
	// arrange
	reader, collector := givenMetricsCollector()
	labels := map[string]string{"operation": "create_quote", "status": "success"}

	// act
	collector.RecordDuration("booking_operation_duration_seconds", 150*time.Millisecond, labels)
	collector.RecordDurationContext(context.Background(), "booking_operation_duration_seconds", 50*time.Millisecond, labels)

	// assert
	histogram := findMetric(t, reader, "booking_operation_duration_seconds").Data.(metricdata.Histogram[float64])
	require.Len(t, histogram.DataPoints, 1, "Should aggregate equal label sets into one data point")

	point := histogram.DataPoints[0]
	assert.Equal(t, uint64(2), point.Count)
	assert.InDelta(t, 0.2, point.Sum, 0.001)

	want := attribute.NewSet(attribute.String("operation", "create_quote"), attribute.String("status", "success"))
	assert.True(t, point.Attributes.Equals(&want), "Should convert labels to attributes")
}

func Test_MetricsCollector_CountsPerLabelSet(t *testing.T) {
	// arrange
	reader, collector := givenMetricsCollector()

	// act
	collector.IncrementCounter("scheduler_pass_items_total", map[string]string{"pass": "expiration", "status": "processed"})
	collector.IncrementCounterContext(context.Background(), "scheduler_pass_items_total", map[string]string{"pass": "expiration", "status": "processed"})
	collector.IncrementCounter("scheduler_pass_items_total", map[string]string{"pass": "expiration", "status": "failed"})

	// assert
	sum := findMetric(t, reader, "scheduler_pass_items_total").Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 2)

	totals := map[string]int64{}
	for _, point := range sum.DataPoints {
		status, _ := point.Attributes.Value("status")
		totals[status.AsString()] = point.Value
	}

	assert.Equal(t, map[string]int64{"processed": 2, "failed": 1}, totals)
}

func Test_MetricsCollector_RecordsGaugeValues(t *testing.T) {
	reader, collector := givenMetricsCollector()

	collector.RecordValue("inventory_available_units", 7, map[string]string{"product": "Chair"})
	collector.RecordValueContext(context.Background(), "inventory_available_units", 4, map[string]string{"product": "Chair"})

	gauge := findMetric(t, reader, "inventory_available_units").Data.(metricdata.Gauge[float64])
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, float64(4), gauge.DataPoints[0].Value, "Should keep the last value")
}

func Test_MetricsCollector_IsSafeForConcurrentUse(t *testing.T) {
	// arrange
	reader, collector := givenMetricsCollector()
	var wg sync.WaitGroup

	// act
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			collector.IncrementCounter("booking_operation_calls_total", map[string]string{"operation": "check_availability"})
		}()
	}
	wg.Wait()

	// assert
	sum := findMetric(t, reader, "booking_operation_calls_total").Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(20), sum.DataPoints[0].Value)
}

func givenMetricsCollector() (*sdkmetric.ManualReader, *oteladapters.MetricsCollector) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return reader, oteladapters.NewMetricsCollector(provider.Meter("rental-test"))
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) metricdata.Metrics {
	t.Helper()

	var resourceMetrics metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &resourceMetrics))

	for _, scope := range resourceMetrics.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name == name {
				return m
			}
		}
	}

	require.Failf(t, "metric not found", "metric %s was not recorded", name)

	return metricdata.Metrics{}
}
