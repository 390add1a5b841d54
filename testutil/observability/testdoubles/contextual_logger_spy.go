package testdoubles

import (
	"context"
	"slices"
	"sync"
)

// ContextualLoggerSpy implements inventory.ContextualLogger and records every call.
type ContextualLoggerSpy struct {
	mu      sync.Mutex
	records []LogRecord
}

// LogRecord is one recorded log call.
type LogRecord struct {
	Level   string
	Message string
	Args    []any
	Context context.Context
}

// Attr returns the value logged for key, if any.
func (r LogRecord) Attr(key string) (any, bool) {
	for i := 0; i+1 < len(r.Args); i += 2 {
		if k, ok := r.Args[i].(string); ok && k == key {
			return r.Args[i+1], true
		}
	}

	return nil, false
}

// NewContextualLoggerSpy creates an empty ContextualLoggerSpy.
func NewContextualLoggerSpy() *ContextualLoggerSpy {
	return &ContextualLoggerSpy{}
}

func (s *ContextualLoggerSpy) DebugContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "debug", msg, args)
}

func (s *ContextualLoggerSpy) InfoContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "info", msg, args)
}

func (s *ContextualLoggerSpy) WarnContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "warn", msg, args)
}

func (s *ContextualLoggerSpy) ErrorContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "error", msg, args)
}

func (s *ContextualLoggerSpy) record(ctx context.Context, level, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, LogRecord{Level: level, Message: msg, Args: slices.Clone(args), Context: ctx})
}

// Records returns the recorded calls of the given level.
func (s *ContextualLoggerSpy) Records(level string) []LogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var records []LogRecord
	for _, r := range s.records {
		if r.Level == level {
			records = append(records, r)
		}
	}

	return records
}

// HasMessage reports whether msg was logged at the given level.
func (s *ContextualLoggerSpy) HasMessage(level, msg string) bool {
	return slices.ContainsFunc(s.Records(level), func(r LogRecord) bool { return r.Message == msg })
}

// Reset clears all records.
func (s *ContextualLoggerSpy) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = nil
}
