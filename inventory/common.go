package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrValidation marks a request that was rejected before any write because its input is invalid.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks an unknown product, instance, reservation or line.
	ErrNotFound = errors.New("not found")

	// ErrStockUnavailable marks a capacity or instance conflict.
	ErrStockUnavailable = errors.New("stock unavailable")

	// ErrIllegalStateTransition marks an operation that is not allowed in the reservation's current state.
	ErrIllegalStateTransition = errors.New("illegal state transition")

	// ErrConcurrencyConflict is returned when a reservation was modified by a concurrent transaction.
	ErrConcurrencyConflict = errors.New("concurrency error, no rows were affected")

	ErrNilDatabaseConnection  = errors.New("nil database connection supplied")
	ErrEmptyTableNameSupplied = errors.New("empty table name supplied")
	ErrBuildingQueryFailed    = errors.New("building query failed")
	ErrQueryingFailed         = errors.New("querying failed")
	ErrWritingFailed          = errors.New("writing failed")
	ErrScanningDBRowFailed    = errors.New("scanning db row failed")
	ErrTransactionFailed      = errors.New("transaction failed")
)

// ValidationError carries the field and the reason of a rejected input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

// Is makes errors.Is(err, ErrValidation) work.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError names the entity kind and the identifier that could not be found.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s: %s", e.Entity, e.ID, ErrNotFound)
}

// Is makes errors.Is(err, ErrNotFound) work.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError builds a NotFoundError.
func NewNotFoundError(entity string, id uuid.UUID) error {
	return &NotFoundError{Entity: entity, ID: id.String()}
}

// Shortfall describes one product/period that could not be satisfied.
type Shortfall struct {
	LineID       uuid.UUID
	ProductID    uuid.UUID
	ProductName  string
	Period       DateRange
	Requested    int
	FreeCapacity int
}

func (s Shortfall) String() string {
	return fmt.Sprintf("%s for %s: requested %d, available %d", s.ProductName, s.Period, s.Requested, s.FreeCapacity)
}

// StockUnavailableError lists every product/period that failed the availability check.
type StockUnavailableError struct {
	Shortfalls []Shortfall
}

func (e *StockUnavailableError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, s.String())
	}

	return fmt.Sprintf("%s: %s", ErrStockUnavailable, strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrStockUnavailable) work.
func (e *StockUnavailableError) Is(target error) bool {
	return target == ErrStockUnavailable
}

// IllegalTransitionError names the reservation, the state it was in and the rejected operation.
type IllegalTransitionError struct {
	ReservationID uuid.UUID
	From          ReservationStatus
	InProgress    bool
	Operation     string
}

func (e *IllegalTransitionError) Error() string {
	state := string(e.From)
	if e.InProgress {
		state += "/IN_PROGRESS"
	}

	return fmt.Sprintf("%s: cannot %s reservation %s in state %s", ErrIllegalStateTransition, e.Operation, e.ReservationID, state)
}

// Is makes errors.Is(err, ErrIllegalStateTransition) work.
func (e *IllegalTransitionError) Is(target error) bool {
	return target == ErrIllegalStateTransition
}

// NewIllegalTransitionError builds an IllegalTransitionError from the reservation's current state.
func NewIllegalTransitionError(r Reservation, operation string) error {
	return &IllegalTransitionError{
		ReservationID: r.ID,
		From:          r.Status,
		InProgress:    r.InProgress,
		Operation:     operation,
	}
}

// ErrorType classifies an error for metric labels and span attributes.
func ErrorType(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrStockUnavailable):
		return "stock_unavailable"
	case errors.Is(err, ErrIllegalStateTransition):
		return "illegal_state_transition"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	default:
		return "other"
	}
}
