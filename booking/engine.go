package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// DefaultQuoteGracePeriod is how long a PENDING quote stays valid after creation or modification.
const DefaultQuoteGracePeriod = 48 * time.Hour

var (
	ErrNilStore              = errors.New("nil store supplied")
	ErrInvalidGracePeriod    = errors.New("quote grace period must be positive")
	ErrNilClock              = errors.New("nil clock supplied")
	ErrNilIDGenerator        = errors.New("nil id generator supplied")
	ErrNilCollaborator       = errors.New("nil collaborator supplied")
	ErrCommittedPendingQuote = errors.New("pending quote holds committed stock")
)

// Engine is the reservation and inventory availability engine.
// It is safe for concurrent use; all shared state lives in the Store.
type Engine struct {
	store                   inventory.Store
	notifier                inventory.Notifier
	invoicer                inventory.Invoicer
	logger                  inventory.Logger
	contextualLogger        inventory.ContextualLogger
	metricsCollector        inventory.MetricsCollector
	tracingCollector        inventory.TracingCollector
	clock                   func() time.Time
	newID                   func() uuid.UUID
	quoteGracePeriod        time.Duration
	strictQuoteAvailability bool
}

// Option defines a functional option for configuring Engine.
type Option func(*Engine) error

// WithNotifier sets the notification collaborator.
func WithNotifier(notifier inventory.Notifier) Option {
	return func(e *Engine) error {
		if notifier == nil {
			return ErrNilCollaborator
		}

		e.notifier = notifier

		return nil
	}
}

// WithInvoicer sets the invoicing collaborator which is called after a quote was accepted.
func WithInvoicer(invoicer inventory.Invoicer) Option {
	return func(e *Engine) error {
		if invoicer == nil {
			return ErrNilCollaborator
		}

		e.invoicer = invoicer

		return nil
	}
}

// WithLogger sets the logger for the Engine.
//
// Info level: operation outcomes, including business rejections
// Warn level: failed notification or invoicing calls
// Error level: infrastructure failures.
func WithLogger(logger inventory.Logger) Option {
	return func(e *Engine) error {
		e.logger = logger
		return nil
	}
}

// WithContextualLogger sets a context-aware logger, which takes precedence over the plain logger.
func WithContextualLogger(logger inventory.ContextualLogger) Option {
	return func(e *Engine) error {
		e.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Engine.
func WithMetrics(collector inventory.MetricsCollector) Option {
	return func(e *Engine) error {
		e.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Engine.
func WithTracing(collector inventory.TracingCollector) Option {
	return func(e *Engine) error {
		e.tracingCollector = collector
		return nil
	}
}

// WithClock replaces time.Now, mainly for tests and the scheduler.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) error {
		if clock == nil {
			return ErrNilClock
		}

		e.clock = clock

		return nil
	}
}

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(e *Engine) error {
		if newID == nil {
			return ErrNilIDGenerator
		}

		e.newID = newID

		return nil
	}
}

// WithQuoteGracePeriod sets how long a PENDING quote stays valid. The default is DefaultQuoteGracePeriod.
func WithQuoteGracePeriod(period time.Duration) Option {
	return func(e *Engine) error {
		if period <= 0 {
			return ErrInvalidGracePeriod
		}

		e.quoteGracePeriod = period

		return nil
	}
}

// WithStrictQuoteAvailability makes CreateQuote reject a quote if any line is not available at creation
// time. By default such a quote is created anyway and the shortfalls are returned with it, because a
// quote never holds stock and the mandatory re-check happens on accept.
func WithStrictQuoteAvailability(strict bool) Option {
	return func(e *Engine) error {
		e.strictQuoteAvailability = strict
		return nil
	}
}

// NewEngine creates an Engine working on the given Store.
func NewEngine(store inventory.Store, options ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	e := &Engine{
		store:            store,
		clock:            time.Now,
		newID:            func() uuid.UUID { return uuid.Must(uuid.NewV7()) },
		quoteGracePeriod: DefaultQuoteGracePeriod,
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

func (e *Engine) now() time.Time {
	return e.clock().UTC()
}
