package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

const (
	// OperationDurationMetric tracks engine operation duration (OpenTelemetry-compatible).
	OperationDurationMetric = "booking_operation_duration_seconds"

	// OperationCallsMetric tracks total engine operation calls.
	OperationCallsMetric = "booking_operation_calls_total"

	// StockUnavailableMetric tracks operations rejected because of a capacity or instance conflict.
	StockUnavailableMetric = "booking_stock_unavailable_total"

	// ConcurrencyConflictMetric tracks operations that lost an optimistic version check.
	ConcurrencyConflictMetric = "booking_concurrency_conflicts_total"

	// CollaboratorFailuresMetric tracks failed best-effort calls to the notifier or invoicer.
	CollaboratorFailuresMetric = "booking_collaborator_failures_total"

	// StatusSuccess indicates successful completion.
	StatusSuccess = "success"

	// StatusRejected indicates a business rejection: validation, not found, stock unavailable or illegal transition.
	StatusRejected = "rejected"

	// StatusError indicates an infrastructure failure.
	StatusError = "error"

	// StatusCanceled indicates the operation was canceled due to context cancellation.
	StatusCanceled = "canceled"

	// StatusTimeout indicates the operation timed out due to context deadline exceeded.
	StatusTimeout = "timeout"

	// StatusConcurrencyConflict indicates the operation failed due to optimistic concurrency control.
	StatusConcurrencyConflict = "concurrency_conflict"

	// SpanNameOperation prefixes the tracing span name of every engine operation.
	SpanNameOperation = "booking."

	LogMsgOperationCompleted = "booking operation completed"
	LogMsgOperationRejected  = "booking operation rejected"
	LogMsgOperationFailed    = "booking operation failed"
	LogMsgNotifyFailed       = "notification failed"
	LogMsgInvoicingFailed    = "pro-forma invoicing failed"

	LogAttrOperation     = "operation"
	LogAttrStatus        = "status"
	LogAttrErrorType     = "error_type"
	LogAttrError         = "error"
	LogAttrDurationMS    = "duration_ms"
	LogAttrReservationID = "reservation_id"
	LogAttrSubjectID     = "subject_id"
	LogAttrMovementRows  = "movement_rows"
	LogAttrEventType     = "event_type"
	LogAttrCollaborator  = "collaborator"

	collaboratorNotifier = "notifier"
	collaboratorInvoicer = "invoicer"
)

// Operation names used for logs, metric labels and span names.
const (
	opCheckAvailability     = "check_availability"
	opReadReservation       = "read_reservation"
	opReadLedger            = "read_ledger"
	opReadStockState        = "read_stock_state"
	opListReservations      = "list_reservations"
	opCreateQuote           = "create_quote"
	opModifyQuote           = "modify_quote"
	opAcceptQuote           = "accept_quote"
	opRefuseQuote           = "refuse_quote"
	opCancel                = "cancel"
	opExpireQuote           = "expire_quote"
	opModifyLineDates       = "modify_line_dates"
	opShiftAllLines         = "shift_all_lines"
	opModifyManyLines       = "modify_many_lines"
	opAddLine               = "add_line"
	opRemoveLine            = "remove_line"
	opMarkDeliveryDue       = "mark_delivery_due"
	opStartDelivery         = "start_delivery"
	opMarkLineDelivered     = "mark_line_delivered"
	opComplete              = "complete"
	opRecordPayment         = "record_payment"
	opRegisterProduct       = "register_product"
	opRegisterInstance      = "register_instance"
	opAdjustStock           = "adjust_stock"
	opReportDamage          = "report_damage"
	opReturnFromMaintenance = "return_from_maintenance"
)

// StatusOf classifies an operation error for metric labels and logs.
func StatusOf(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, context.Canceled):
		return StatusCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return StatusTimeout
	case errors.Is(err, inventory.ErrConcurrencyConflict):
		return StatusConcurrencyConflict
	case errors.Is(err, inventory.ErrValidation),
		errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, inventory.ErrStockUnavailable),
		errors.Is(err, inventory.ErrIllegalStateTransition):
		return StatusRejected
	default:
		return StatusError
	}
}

// operationObserver encapsulates logging, metrics and tracing of one engine operation.
type operationObserver struct {
	e         *Engine
	ctx       context.Context
	operation string
	span      inventory.SpanContext
	start     time.Time
}

// observe starts the observation of an operation and returns the context carrying the span.
func (e *Engine) observe(ctx context.Context, operation string) (context.Context, *operationObserver) {
	o := &operationObserver{e: e, operation: operation, start: time.Now()}

	if e.tracingCollector != nil {
		ctx, o.span = e.tracingCollector.StartSpan(ctx, SpanNameOperation+operation, map[string]string{
			LogAttrOperation: operation,
		})
	}

	o.ctx = ctx

	return ctx, o
}

// finish records the outcome. args are added to the log entry.
func (o *operationObserver) finish(err error, args ...any) {
	duration := time.Since(o.start)
	status := StatusOf(err)

	o.recordMetrics(status, err, duration)
	o.finishSpan(status, err, duration)

	logArgs := []any{
		LogAttrOperation, o.operation,
		LogAttrStatus, status,
		LogAttrDurationMS, toMilliseconds(duration),
	}
	logArgs = append(logArgs, args...)

	switch status {
	case StatusSuccess:
		o.e.logInfo(o.ctx, LogMsgOperationCompleted, logArgs...)
	case StatusRejected, StatusConcurrencyConflict:
		logArgs = append(logArgs, LogAttrErrorType, inventory.ErrorType(err), LogAttrError, err.Error())
		o.e.logInfo(o.ctx, LogMsgOperationRejected, logArgs...)
	default:
		logArgs = append(logArgs, LogAttrError, err.Error())
		o.e.logError(o.ctx, LogMsgOperationFailed, logArgs...)
	}
}

func (o *operationObserver) recordMetrics(status string, err error, duration time.Duration) {
	if o.e.metricsCollector == nil {
		return
	}

	labels := map[string]string{
		LogAttrOperation: o.operation,
		LogAttrStatus:    status,
	}

	o.e.recordDuration(o.ctx, OperationDurationMetric, duration, labels)
	o.e.incrementCounter(o.ctx, OperationCallsMetric, labels)

	if errors.Is(err, inventory.ErrStockUnavailable) {
		o.e.incrementCounter(o.ctx, StockUnavailableMetric, map[string]string{LogAttrOperation: o.operation})
	}

	if status == StatusConcurrencyConflict {
		o.e.incrementCounter(o.ctx, ConcurrencyConflictMetric, map[string]string{LogAttrOperation: o.operation})
	}
}

func (o *operationObserver) finishSpan(status string, err error, duration time.Duration) {
	if o.e.tracingCollector == nil || o.span == nil {
		return
	}

	attrs := map[string]string{
		LogAttrStatus:     status,
		LogAttrDurationMS: fmt.Sprintf("%.2f", toMilliseconds(duration)),
	}

	if err != nil {
		attrs[LogAttrErrorType] = inventory.ErrorType(err)
		attrs[LogAttrError] = err.Error()
	}

	o.e.tracingCollector.FinishSpan(o.span, status, attrs)
}

func (e *Engine) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if contextualCollector, ok := e.metricsCollector.(inventory.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	e.metricsCollector.RecordDuration(metric, duration, labels)
}

func (e *Engine) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if contextualCollector, ok := e.metricsCollector.(inventory.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	e.metricsCollector.IncrementCounter(metric, labels)
}

// recordCollaboratorFailure logs and counts a failed best-effort call.
func (e *Engine) recordCollaboratorFailure(ctx context.Context, collaborator, msg string, err error, args ...any) {
	logArgs := append([]any{LogAttrCollaborator, collaborator, LogAttrError, err.Error()}, args...)
	e.logWarn(ctx, msg, logArgs...)

	if e.metricsCollector != nil {
		e.incrementCounter(ctx, CollaboratorFailuresMetric, map[string]string{LogAttrCollaborator: collaborator})
	}
}

func (e *Engine) logInfo(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.InfoContext(ctx, msg, args...)
	} else if e.logger != nil {
		e.logger.Info(msg, args...)
	}
}

func (e *Engine) logWarn(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.WarnContext(ctx, msg, args...)
	} else if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}

func (e *Engine) logError(ctx context.Context, msg string, args ...any) {
	if e.contextualLogger != nil {
		e.contextualLogger.ErrorContext(ctx, msg, args...)
	} else if e.logger != nil {
		e.logger.Error(msg, args...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds.
func toMilliseconds(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1e6
}
