package shell

import (
	"context"
	"errors"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

const (
	defaultMaxAttempts  = 5
	defaultBaseDelay    = 10 * time.Millisecond
	defaultJitterFactor = 0.3
)

const (
	// RetriesMetric counts retries by operation, attempt number and error type.
	RetriesMetric = "shell_retries_total"

	// RetryDelayMetric tracks the backoff delay before each retry.
	RetryDelayMetric = "shell_retry_delay_seconds"

	// MaxRetriesReachedMetric counts operations that still failed after the last attempt.
	MaxRetriesReachedMetric = "shell_max_retries_reached_total"

	LogMsgRetrying = "retrying after concurrency conflict"

	LogAttrOperation     = "operation"
	LogAttrAttemptNumber = "attempt_number"
	LogAttrErrorType     = "error_type"
	LogAttrDelayMS       = "delay_ms"
)

var (
	ErrNilMetricsCollector = errors.New("metrics collector must not be nil")
	ErrNilLogger           = errors.New("logger must not be nil")
	ErrEmptyOperation      = errors.New("operation must not be empty")
	ErrInvalidMaxAttempts  = errors.New("max attempts must be positive")
	ErrNegativeBaseDelay   = errors.New("base delay must not be negative")
	ErrInvalidJitterFactor = errors.New("jitter factor must be between 0.0 and 1.0")
)

// RetryableFunc is an operation that may be executed more than once.
type RetryableFunc func(ctx context.Context) error

type retryConfig struct {
	maxAttempts      int
	baseDelay        time.Duration
	jitterFactor     float64
	metricsCollector inventory.MetricsCollector
	logger           inventory.ContextualLogger
	operation        string
}

// RetryOption configures retry behavior.
type RetryOption func(*retryConfig) error

// WithMaxAttempts sets the number of attempts including the first one.
func WithMaxAttempts(attempts int) RetryOption {
	return func(config *retryConfig) error {
		if attempts <= 0 {
			return ErrInvalidMaxAttempts
		}

		config.maxAttempts = attempts

		return nil
	}
}

// WithBaseDelay sets the delay before the first retry. Each further retry doubles it.
func WithBaseDelay(delay time.Duration) RetryOption {
	return func(config *retryConfig) error {
		if delay < 0 {
			return ErrNegativeBaseDelay
		}

		config.baseDelay = delay

		return nil
	}
}

// WithJitterFactor adds up to factor * delay of random jitter to every backoff delay.
func WithJitterFactor(factor float64) RetryOption {
	return func(config *retryConfig) error {
		if factor < 0.0 || factor > 1.0 {
			return ErrInvalidJitterFactor
		}

		config.jitterFactor = factor

		return nil
	}
}

// WithMetrics records retry metrics labeled with operation.
func WithMetrics(collector inventory.MetricsCollector, operation string) RetryOption {
	return func(config *retryConfig) error {
		if collector == nil {
			return ErrNilMetricsCollector
		}

		if operation == "" {
			return ErrEmptyOperation
		}

		config.metricsCollector = collector
		config.operation = operation

		return nil
	}
}

// WithLogger logs every retry at info level.
func WithLogger(logger inventory.ContextualLogger) RetryOption {
	return func(config *retryConfig) error {
		if logger == nil {
			return ErrNilLogger
		}

		config.logger = logger

		return nil
	}
}

// RetryWithExponentialBackoff runs fn until it succeeds, fails with a non-retryable error, the context
// is done or the attempts are used up. It returns the last error.
//
// Default schedule: 0 ms, 10 ms, 20 ms, 40 ms, 80 ms, each plus up to 30% jitter.
func RetryWithExponentialBackoff(ctx context.Context, fn RetryableFunc, options ...RetryOption) error {
	config := &retryConfig{
		maxAttempts:  defaultMaxAttempts,
		baseDelay:    defaultBaseDelay,
		jitterFactor: defaultJitterFactor,
	}

	for _, option := range options {
		if err := option(config); err != nil {
			return err
		}
	}

	var lastErr error

	for attempt := 0; attempt < config.maxAttempts; attempt++ {
		if attempt > 0 {
			delay := config.backoff(attempt)
			config.recordRetry(ctx, attempt, lastErr, delay)

			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if !isRetryable(lastErr) {
			return lastErr
		}
	}

	config.recordMaxRetriesReached(ctx, lastErr)

	return lastErr
}

// Retry is RetryWithExponentialBackoff for operations that return a value.
func Retry[T any](ctx context.Context, fn func(ctx context.Context) (T, error), options ...RetryOption) (T, error) {
	var result T

	err := RetryWithExponentialBackoff(ctx, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)

		return err
	}, options...)

	return result, err
}

// isRetryable only accepts concurrency conflicts. Timeouts fail fast.
func isRetryable(err error) bool {
	return errors.Is(err, inventory.ErrConcurrencyConflict)
}

func (c *retryConfig) backoff(attempt int) time.Duration {
	delay := c.baseDelay * time.Duration(1<<(attempt-1))
	jitter := rand.Float64() * float64(delay) * c.jitterFactor //nolint:gosec // jitter needs no crypto randomness

	return delay + time.Duration(jitter)
}

func (c *retryConfig) recordRetry(ctx context.Context, attempt int, lastErr error, delay time.Duration) {
	errorType := inventory.ErrorType(lastErr)

	if c.logger != nil {
		c.logger.InfoContext(ctx, LogMsgRetrying,
			LogAttrOperation, c.operation,
			LogAttrAttemptNumber, attempt,
			LogAttrErrorType, errorType,
			LogAttrDelayMS, float64(delay.Nanoseconds())/1e6,
		)
	}

	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		LogAttrOperation:     c.operation,
		LogAttrAttemptNumber: strconv.Itoa(attempt),
		LogAttrErrorType:     errorType,
	}

	if contextual, ok := c.metricsCollector.(inventory.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, RetriesMetric, labels)
		contextual.RecordDurationContext(ctx, RetryDelayMetric, delay, labels)

		return
	}

	c.metricsCollector.IncrementCounter(RetriesMetric, labels)
	c.metricsCollector.RecordDuration(RetryDelayMetric, delay, labels)
}

func (c *retryConfig) recordMaxRetriesReached(ctx context.Context, lastErr error) {
	if c.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		LogAttrOperation:   c.operation,
		"final_error_type": inventory.ErrorType(lastErr),
	}

	if contextual, ok := c.metricsCollector.(inventory.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, MaxRetriesReachedMetric, labels)
		return
	}

	c.metricsCollector.IncrementCounter(MaxRetriesReachedMetric, labels)
}
