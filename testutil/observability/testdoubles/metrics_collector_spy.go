package testdoubles

import (
	"context"
	"maps"
	"sync"
	"time"
)

// MetricsCollectorSpy implements inventory.ContextualMetricsCollector and records every call.
type MetricsCollectorSpy struct {
	mu        sync.Mutex
	durations []MetricRecord
	counters  []MetricRecord
	values    []MetricRecord
}

// MetricRecord is one recorded metric call. Duration is only set for durations, Value only for values.
type MetricRecord struct {
	Metric   string
	Duration time.Duration
	Value    float64
	Labels   map[string]string
	Context  context.Context
}

// NewMetricsCollectorSpy creates an empty MetricsCollectorSpy.
func NewMetricsCollectorSpy() *MetricsCollectorSpy {
	return &MetricsCollectorSpy{}
}

func (s *MetricsCollectorSpy) RecordDuration(metric string, duration time.Duration, labels map[string]string) {
	s.RecordDurationContext(context.Background(), metric, duration, labels)
}

func (s *MetricsCollectorSpy) IncrementCounter(metric string, labels map[string]string) {
	s.IncrementCounterContext(context.Background(), metric, labels)
}

func (s *MetricsCollectorSpy) RecordValue(metric string, value float64, labels map[string]string) {
	s.RecordValueContext(context.Background(), metric, value, labels)
}

func (s *MetricsCollectorSpy) RecordDurationContext(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.durations = append(s.durations, MetricRecord{Metric: metric, Duration: duration, Labels: maps.Clone(labels), Context: ctx})
}

func (s *MetricsCollectorSpy) IncrementCounterContext(ctx context.Context, metric string, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = append(s.counters, MetricRecord{Metric: metric, Labels: maps.Clone(labels), Context: ctx})
}

func (s *MetricsCollectorSpy) RecordValueContext(ctx context.Context, metric string, value float64, labels map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values = append(s.values, MetricRecord{Metric: metric, Value: value, Labels: maps.Clone(labels), Context: ctx})
}

// Durations returns the recorded durations of the given metric.
func (s *MetricsCollectorSpy) Durations(metric string) []MetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return filterRecords(s.durations, metric)
}

// Counters returns the recorded counter increments of the given metric.
func (s *MetricsCollectorSpy) Counters(metric string) []MetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return filterRecords(s.counters, metric)
}

// Values returns the recorded values of the given metric.
func (s *MetricsCollectorSpy) Values(metric string) []MetricRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return filterRecords(s.values, metric)
}

// CounterWithLabels counts the increments of metric whose labels contain all the given labels.
func (s *MetricsCollectorSpy) CounterWithLabels(metric string, labels map[string]string) int {
	count := 0
	for _, r := range s.Counters(metric) {
		if containsLabels(r.Labels, labels) {
			count++
		}
	}

	return count
}

func filterRecords(records []MetricRecord, metric string) []MetricRecord {
	var matching []MetricRecord
	for _, r := range records {
		if r.Metric == metric {
			matching = append(matching, r)
		}
	}

	return matching
}

func containsLabels(have, want map[string]string) bool {
	for k, v := range want {
		if have[k] != v {
			return false
		}
	}

	return true
}
