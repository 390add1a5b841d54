package scheduler

import (
	"context"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

const (
	// PassItemsMetric counts the items processed by a pass, labeled by pass and status.
	PassItemsMetric = "scheduler_pass_items_total"

	StatusProcessed = "processed"
	StatusFailed    = "failed"

	LogMsgRunCompleted = "scheduler run completed"
	LogMsgRunFailed    = "scheduler run failed"
	LogMsgItemFailed   = "scheduler item failed"

	LogAttrPass          = "pass"
	LogAttrReservationID = "reservation_id"
	LogAttrErrorType     = "error_type"
	LogAttrError         = "error"
	LogAttrExpired       = "expired"
	LogAttrExpireFailed  = "expire_failed"
	LogAttrMarkedDue     = "marked_due"
	LogAttrMarkFailed    = "mark_failed"

	passExpiration        = "expiration"
	passDeliveryReadiness = "delivery_readiness"
)

func (r *Runner) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if r.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := r.metricsCollector.(inventory.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	r.metricsCollector.IncrementCounter(metric, labels)
}

func (r *Runner) logInfo(ctx context.Context, msg string, args ...any) {
	if r.contextualLogger != nil {
		r.contextualLogger.InfoContext(ctx, msg, args...)
	} else if r.logger != nil {
		r.logger.Info(msg, args...)
	}
}

func (r *Runner) logWarn(ctx context.Context, msg string, args ...any) {
	if r.contextualLogger != nil {
		r.contextualLogger.WarnContext(ctx, msg, args...)
	} else if r.logger != nil {
		r.logger.Warn(msg, args...)
	}
}

func (r *Runner) logError(ctx context.Context, msg string, args ...any) {
	if r.contextualLogger != nil {
		r.contextualLogger.ErrorContext(ctx, msg, args...)
	} else if r.logger != nil {
		r.logger.Error(msg, args...)
	}
}
