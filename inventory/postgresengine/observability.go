package postgresengine

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory/postgresengine/internal/adapters"
)

const (
	// TxDurationMetric tracks the duration of View and Update transactions.
	TxDurationMetric = "inventory_store_tx_duration_seconds"

	// DatabaseErrorsMetric counts failed transactions by operation and error type.
	DatabaseErrorsMetric = "inventory_store_errors_total"

	// ConcurrencyConflictsMetric counts lost version checks on reservation rows.
	ConcurrencyConflictsMetric = "inventory_store_concurrency_conflicts_total"

	// SpanNameTx is the name of the span covering one transaction.
	SpanNameTx = "inventory_store.tx"
)

const (
	operationView   = "view"
	operationUpdate = "update"
	operationOutbox = "outbox"

	statusSuccess = "success"
	statusError   = "error"

	actionReadProduct       = "read product"
	actionReadProducts      = "read products"
	actionReadInstances     = "read instances"
	actionLockProducts      = "lock products"
	actionSaveProduct       = "save product"
	actionSaveInstance      = "save instance"
	actionReadCommitments   = "read commitments"
	actionReadReservation   = "read reservation"
	actionListReservations  = "list reservations"
	actionInsertReservation = "insert reservation"
	actionUpdateReservation = "update reservation"
	actionWriteLines        = "write lines"
	actionReadMovements     = "read movements"
	actionAppendMovements   = "append movements"
	actionWriteOutbox       = "write outbox"
	actionReadOutbox        = "read outbox"

	logMsgSQLExecuted         = "executed sql for: "
	logMsgBuildQueryFailed    = "failed to build query"
	logMsgDBQueryFailed       = "database query execution failed"
	logMsgDBExecFailed        = "database execution failed"
	logMsgRowsAffectedFailed  = "failed to get rows affected count"
	logMsgBeginTxFailed       = "failed to begin transaction"
	logMsgCommitFailed        = "failed to commit transaction"
	logMsgRollbackFailed      = "failed to roll back transaction"
	logMsgConcurrencyConflict = "concurrency conflict detected"
	logMsgCreateSchemaFailed  = "failed to create schema"

	logAttrError           = "error"
	logAttrQuery           = "query"
	logAttrAction          = "action"
	logAttrDurationMS      = "duration_ms"
	logAttrReservationID   = "reservation_id"
	logAttrExpectedVersion = "expected_version"

	spanAttrOperation  = "operation"
	spanAttrTxMode     = "tx_mode"
	spanAttrErrorType  = "error_type"
	spanAttrDurationMS = "duration_ms"
)

// logQueryWithDuration logs SQL statements with execution time at debug level.
func (s *Store) logQueryWithDuration(ctx context.Context, sqlQuery, action string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action, args...)
		return
	}

	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+action, args...)
	}
}

func (s *Store) logConcurrencyConflict(ctx context.Context, reservationID uuid.UUID, expectedVersion int) {
	args := []any{logAttrReservationID, reservationID.String(), logAttrExpectedVersion, expectedVersion}

	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, logMsgConcurrencyConflict, args...)
	} else if s.logger != nil {
		s.logger.Info(logMsgConcurrencyConflict, args...)
	}

	s.incrementCounter(ctx, ConcurrencyConflictsMetric, map[string]string{spanAttrOperation: operationUpdate})
}

func (s *Store) logWarn(ctx context.Context, msg string, args ...any) {
	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, msg, args...)
		return
	}

	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

// logError logs error information at the error level.
func (s *Store) logError(ctx context.Context, msg string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, msg, allArgs...)
		return
	}

	if s.logger != nil {
		s.logger.Error(msg, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

func (s *Store) recordTxMetrics(ctx context.Context, operation, status string, duration time.Duration) {
	if s.metricsCollector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operation, "status": status}

	if contextual, ok := s.metricsCollector.(inventory.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(ctx, TxDurationMetric, duration, labels)
		return
	}

	s.metricsCollector.RecordDuration(TxDurationMetric, duration, labels)
}

func (s *Store) recordErrorMetrics(ctx context.Context, operation, errorType string) {
	s.incrementCounter(ctx, DatabaseErrorsMetric, map[string]string{
		spanAttrOperation: operation,
		"status":          statusError,
		spanAttrErrorType: errorType,
	})
}

func (s *Store) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if s.metricsCollector == nil {
		return
	}

	if contextual, ok := s.metricsCollector.(inventory.ContextualMetricsCollector); ok {
		contextual.IncrementCounterContext(ctx, metric, labels)
		return
	}

	s.metricsCollector.IncrementCounter(metric, labels)
}

// txTracingObserver encapsulates the span lifecycle of one transaction.
type txTracingObserver struct {
	store *Store
	span  inventory.SpanContext
}

func (s *Store) startTxTracing(ctx context.Context, operation string, mode adapters.TxMode) (*txTracingObserver, context.Context) {
	if s.tracingCollector == nil {
		return &txTracingObserver{store: s}, ctx
	}

	newCtx, span := s.tracingCollector.StartSpan(ctx, SpanNameTx, map[string]string{
		spanAttrOperation: operation,
		spanAttrTxMode:    mode.String(),
	})

	return &txTracingObserver{store: s, span: span}, newCtx
}

func (o *txTracingObserver) finishSuccess(duration time.Duration) {
	if o.span == nil {
		return
	}

	o.store.tracingCollector.FinishSpan(o.span, statusSuccess, map[string]string{
		spanAttrDurationMS: fmt.Sprintf("%.2f", toMilliseconds(duration)),
	})
}

func (o *txTracingObserver) finishError(errorType string, duration time.Duration) {
	if o.span == nil {
		return
	}

	o.store.tracingCollector.FinishSpan(o.span, statusError, map[string]string{
		spanAttrErrorType:  errorType,
		spanAttrDurationMS: fmt.Sprintf("%.2f", toMilliseconds(duration)),
	})
}
