package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/booking/scheduler"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
	"github.com/AntonStoeckl/rental-reservation-engine/shell"
)

const (
	operationExpireQuote     = "expire_quote"
	operationMarkDeliveryDue = "mark_delivery_due"
)

// retryingEngine retries the per-reservation scheduler steps that lost a concurrency race.
// A step that keeps losing is reported to the runner as failed and picked up by the next pass.
type retryingEngine struct {
	scheduler.Engine
	logger  inventory.ContextualLogger
	metrics inventory.MetricsCollector
	options []shell.RetryOption
}

func newRetryingEngine(
	engine scheduler.Engine,
	logger inventory.ContextualLogger,
	metrics inventory.MetricsCollector,
	options ...shell.RetryOption,
) *retryingEngine {
	return &retryingEngine{Engine: engine, logger: logger, metrics: metrics, options: options}
}

func (e *retryingEngine) ExpireQuote(ctx context.Context, reservationID uuid.UUID) (inventory.Reservation, error) {
	return shell.Retry(ctx, func(ctx context.Context) (inventory.Reservation, error) {
		return e.Engine.ExpireQuote(ctx, reservationID)
	}, e.retryOptions(operationExpireQuote)...)
}

func (e *retryingEngine) MarkDeliveryDue(ctx context.Context, reservationID uuid.UUID, day time.Time) (inventory.Reservation, error) {
	return shell.Retry(ctx, func(ctx context.Context) (inventory.Reservation, error) {
		return e.Engine.MarkDeliveryDue(ctx, reservationID, day)
	}, e.retryOptions(operationMarkDeliveryDue)...)
}

func (e *retryingEngine) retryOptions(operation string) []shell.RetryOption {
	options := make([]shell.RetryOption, 0, len(e.options)+2)
	options = append(options, e.options...)

	if e.logger != nil {
		options = append(options, shell.WithLogger(e.logger))
	}

	if e.metrics != nil {
		options = append(options, shell.WithMetrics(e.metrics, operation))
	}

	return options
}
