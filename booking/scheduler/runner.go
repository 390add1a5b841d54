package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

const (
	// DefaultInterval is the time between two runs.
	DefaultInterval = time.Minute

	// DefaultBatchLimit caps the number of items one pass picks up.
	DefaultBatchLimit = 500
)

var (
	ErrNilEngine       = errors.New("nil engine supplied")
	ErrInvalidInterval = errors.New("interval must be positive")
	ErrInvalidLimit    = errors.New("batch limit must be positive")
	ErrNilClock        = errors.New("nil clock supplied")
)

// Engine is the part of the booking engine the passes need. *booking.Engine satisfies it.
type Engine interface {
	ReservationIDs(ctx context.Context, query inventory.ReservationQuery) ([]uuid.UUID, error)
	ExpireQuote(ctx context.Context, reservationID uuid.UUID) (inventory.Reservation, error)
	MarkDeliveryDue(ctx context.Context, reservationID uuid.UUID, day time.Time) (inventory.Reservation, error)
}

// Report sums up one run.
type Report struct {
	Expired      int
	ExpireFailed int
	MarkedDue    int
	MarkFailed   int
}

// Runner executes the expiration and delivery readiness passes periodically.
type Runner struct {
	engine           Engine
	logger           inventory.Logger
	contextualLogger inventory.ContextualLogger
	metricsCollector inventory.MetricsCollector
	clock            func() time.Time
	interval         time.Duration
	batchLimit       int
}

// Option defines a functional option for configuring Runner.
type Option func(*Runner) error

// WithInterval sets the time between two runs.
func WithInterval(interval time.Duration) Option {
	return func(r *Runner) error {
		if interval <= 0 {
			return ErrInvalidInterval
		}

		r.interval = interval

		return nil
	}
}

// WithBatchLimit caps the number of items one pass picks up.
func WithBatchLimit(limit int) Option {
	return func(r *Runner) error {
		if limit <= 0 {
			return ErrInvalidLimit
		}

		r.batchLimit = limit

		return nil
	}
}

// WithClock replaces time.Now.
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) error {
		if clock == nil {
			return ErrNilClock
		}

		r.clock = clock

		return nil
	}
}

// WithLogger sets the logger for pass summaries and item failures.
func WithLogger(logger inventory.Logger) Option {
	return func(r *Runner) error {
		r.logger = logger

		return nil
	}
}

// WithContextualLogger sets the context-aware logger. It takes precedence over WithLogger.
func WithContextualLogger(logger inventory.ContextualLogger) Option {
	return func(r *Runner) error {
		r.contextualLogger = logger

		return nil
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(collector inventory.MetricsCollector) Option {
	return func(r *Runner) error {
		r.metricsCollector = collector

		return nil
	}
}

// NewRunner creates a Runner with the default interval and batch limit.
func NewRunner(engine Engine, options ...Option) (*Runner, error) {
	if engine == nil {
		return nil, ErrNilEngine
	}

	runner := &Runner{
		engine:     engine,
		clock:      time.Now,
		interval:   DefaultInterval,
		batchLimit: DefaultBatchLimit,
	}

	for _, option := range options {
		if err := option(runner); err != nil {
			return nil, err
		}
	}

	return runner, nil
}

// Run executes RunOnce immediately and then once per interval until ctx is done.
// Errors of a single run are logged; Run itself only returns when ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		if _, err := r.RunOnce(ctx); err != nil && ctx.Err() == nil {
			r.logError(ctx, LogMsgRunFailed, LogAttrError, err.Error())
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce executes both passes once. The returned error is only set if listing the due items failed.
func (r *Runner) RunOnce(ctx context.Context) (Report, error) {
	ctx = inventory.WithActor(ctx, inventory.SystemActor)
	now := r.clock().UTC()

	var report Report
	var errs []error

	expired, expireFailed, err := r.ExpirationPass(ctx, now)
	report.Expired, report.ExpireFailed = expired, expireFailed
	if err != nil {
		errs = append(errs, err)
	}

	marked, markFailed, err := r.DeliveryReadinessPass(ctx, now)
	report.MarkedDue, report.MarkFailed = marked, markFailed
	if err != nil {
		errs = append(errs, err)
	}

	r.logInfo(ctx, LogMsgRunCompleted,
		LogAttrExpired, report.Expired,
		LogAttrExpireFailed, report.ExpireFailed,
		LogAttrMarkedDue, report.MarkedDue,
		LogAttrMarkFailed, report.MarkFailed,
	)

	return report, errors.Join(errs...)
}
