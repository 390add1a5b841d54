package testdoubles

import (
	"context"
	"maps"
	"sync"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// SpanSpy is the SpanContext handed out by TracingCollectorSpy.
type SpanSpy struct {
	mu         sync.Mutex
	name       string
	status     string
	attributes map[string]string
	finished   bool
}

func (s *SpanSpy) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.status = status
}

func (s *SpanSpy) AddAttribute(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attributes[key] = value
}

// Name returns the span name.
func (s *SpanSpy) Name() string {
	return s.name
}

// Status returns the status the span was finished with.
func (s *SpanSpy) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

// Attributes returns a copy of the start and finish attributes.
func (s *SpanSpy) Attributes() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return maps.Clone(s.attributes)
}

// Finished reports whether FinishSpan was called for the span.
func (s *SpanSpy) Finished() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.finished
}

// TracingCollectorSpy implements inventory.TracingCollector and records every span.
type TracingCollectorSpy struct {
	mu    sync.Mutex
	spans []*SpanSpy
}

// NewTracingCollectorSpy creates an empty TracingCollectorSpy.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

func (c *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, inventory.SpanContext) {
	span := &SpanSpy{name: name, attributes: maps.Clone(attrs)}
	if span.attributes == nil {
		span.attributes = make(map[string]string)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.spans = append(c.spans, span)

	return ctx, span
}

func (c *TracingCollectorSpy) FinishSpan(spanCtx inventory.SpanContext, status string, attrs map[string]string) {
	span, ok := spanCtx.(*SpanSpy)
	if !ok {
		return
	}

	span.SetStatus(status)
	for k, v := range attrs {
		span.AddAttribute(k, v)
	}

	span.mu.Lock()
	span.finished = true
	span.mu.Unlock()
}

// Spans returns the recorded spans with the given name.
func (c *TracingCollectorSpy) Spans(name string) []*SpanSpy {
	c.mu.Lock()
	defer c.mu.Unlock()

	var spans []*SpanSpy
	for _, s := range c.spans {
		if s.name == name {
			spans = append(spans, s)
		}
	}

	return spans
}
