package inventory

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

/***** MovementFilter *****/

// MovementFilter selects rows of the stock ledger. Criteria of different kinds are combined with AND,
// several values of the same criterion with OR. An empty filter matches every movement.
type MovementFilter struct {
	productIDs     []uuid.UUID
	instanceIDs    []uuid.UUID
	reservationIDs []uuid.UUID
	kinds          []MovementKind
	occurredFrom   time.Time
	occurredUntil  time.Time
	limit          int
}

func (f MovementFilter) ProductIDs() []uuid.UUID {
	return f.productIDs
}

func (f MovementFilter) InstanceIDs() []uuid.UUID {
	return f.instanceIDs
}

func (f MovementFilter) ReservationIDs() []uuid.UUID {
	return f.reservationIDs
}

func (f MovementFilter) Kinds() []MovementKind {
	return f.kinds
}

// OccurredFrom is the inclusive lower bound; zero means unbounded.
func (f MovementFilter) OccurredFrom() time.Time {
	return f.occurredFrom
}

// OccurredUntil is the exclusive upper bound; zero means unbounded.
func (f MovementFilter) OccurredUntil() time.Time {
	return f.occurredUntil
}

// Limit is the max number of rows; 0 means no limit.
func (f MovementFilter) Limit() int {
	return f.limit
}

// Matches evaluates the filter against a single movement. Limit is not considered.
func (f MovementFilter) Matches(m StockMovement) bool {
	if len(f.productIDs) > 0 && !slices.Contains(f.productIDs, m.ProductID) {
		return false
	}

	if len(f.instanceIDs) > 0 && !slices.Contains(f.instanceIDs, m.InstanceID) {
		return false
	}

	if len(f.reservationIDs) > 0 && !slices.Contains(f.reservationIDs, m.ReservationID) {
		return false
	}

	if len(f.kinds) > 0 && !slices.Contains(f.kinds, m.Kind) {
		return false
	}

	if !f.occurredFrom.IsZero() && m.OccurredAt.Before(f.occurredFrom) {
		return false
	}

	if !f.occurredUntil.IsZero() && !m.OccurredAt.Before(f.occurredUntil) {
		return false
	}

	return true
}

/***** MovementFilterBuilder *****/

// MovementFilterBuilder builds a MovementFilter for the Store implementations, which translate it
// into their query language.
//
// Every criterion method sanitizes its input:
//   - removing empty values (uuid.Nil, "")
//   - sorting the values
//   - removing duplicate values
type MovementFilterBuilder interface {
	ForProducts(productID uuid.UUID, productIDs ...uuid.UUID) MovementFilterBuilder
	ForInstances(instanceID uuid.UUID, instanceIDs ...uuid.UUID) MovementFilterBuilder
	ForReservations(reservationID uuid.UUID, reservationIDs ...uuid.UUID) MovementFilterBuilder
	OfKinds(kind MovementKind, kinds ...MovementKind) MovementFilterBuilder
	OccurredFrom(from time.Time) MovementFilterBuilder
	OccurredUntil(until time.Time) MovementFilterBuilder
	WithLimit(limit int) MovementFilterBuilder

	// Finalize returns the MovementFilter.
	Finalize() MovementFilter
}

// movementFilterBuilder implements MovementFilterBuilder
type movementFilterBuilder struct {
	filter MovementFilter
}

// BuildMovementFilter creates a MovementFilterBuilder which must eventually be finalized with Finalize().
func BuildMovementFilter() MovementFilterBuilder {
	return movementFilterBuilder{}
}

// AllMovements is the filter that matches the whole ledger.
func AllMovements() MovementFilter {
	return MovementFilter{}
}

func (fb movementFilterBuilder) ForProducts(productID uuid.UUID, productIDs ...uuid.UUID) MovementFilterBuilder {
	fb.filter.productIDs = sanitizeIDs(append(slices.Clone(fb.filter.productIDs), append([]uuid.UUID{productID}, productIDs...)...))

	return fb
}

func (fb movementFilterBuilder) ForInstances(instanceID uuid.UUID, instanceIDs ...uuid.UUID) MovementFilterBuilder {
	fb.filter.instanceIDs = sanitizeIDs(append(slices.Clone(fb.filter.instanceIDs), append([]uuid.UUID{instanceID}, instanceIDs...)...))

	return fb
}

func (fb movementFilterBuilder) ForReservations(reservationID uuid.UUID, reservationIDs ...uuid.UUID) MovementFilterBuilder {
	fb.filter.reservationIDs = sanitizeIDs(append(slices.Clone(fb.filter.reservationIDs), append([]uuid.UUID{reservationID}, reservationIDs...)...))

	return fb
}

func (fb movementFilterBuilder) OfKinds(kind MovementKind, kinds ...MovementKind) MovementFilterBuilder {
	allKinds := append(slices.Clone(fb.filter.kinds), append([]MovementKind{kind}, kinds...)...)
	allKinds = slices.DeleteFunc(allKinds, func(k MovementKind) bool { return k == "" })
	slices.Sort(allKinds)
	allKinds = slices.Compact(allKinds)
	fb.filter.kinds = slices.Clip(allKinds)

	return fb
}

func (fb movementFilterBuilder) OccurredFrom(from time.Time) MovementFilterBuilder {
	fb.filter.occurredFrom = from

	return fb
}

func (fb movementFilterBuilder) OccurredUntil(until time.Time) MovementFilterBuilder {
	fb.filter.occurredUntil = until

	return fb
}

// WithLimit ignores negative values.
func (fb movementFilterBuilder) WithLimit(limit int) MovementFilterBuilder {
	fb.filter.limit = max(limit, 0)

	return fb
}

func (fb movementFilterBuilder) Finalize() MovementFilter {
	return fb.filter
}

func sanitizeIDs(ids []uuid.UUID) []uuid.UUID {
	ids = slices.DeleteFunc(ids, func(id uuid.UUID) bool { return id == uuid.Nil })

	return slices.Clip(SortedUniqueIDs(ids))
}
