package inventory

import (
	"time"

	"github.com/google/uuid"
)

// MovementKind is the type of a stock ledger row.
type MovementKind string

const (
	MovementReserve   MovementKind = "RESERVE"
	MovementRelease   MovementKind = "RELEASE"
	MovementAdjustIn  MovementKind = "ADJUST_IN"
	MovementAdjustOut MovementKind = "ADJUST_OUT"
	MovementDamage    MovementKind = "DAMAGE"
)

// IsValid reports whether k is one of the known kinds.
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementReserve, MovementRelease, MovementAdjustIn, MovementAdjustOut, MovementDamage:
		return true
	default:
		return false
	}
}

// StockMovements is an alias type for a slice of StockMovement
type StockMovements = []StockMovement

// CountSnapshot is the before/after state of a pooled product's counters.
type CountSnapshot struct {
	CapacityBefore  int
	CapacityAfter   int
	AvailableBefore int
	AvailableAfter  int
}

// StockMovement is one immutable row of the stock ledger.
//
// Pooled movements carry a Snapshot, instance movements carry the InstanceID and the status the
// instance had after the movement. ReservationID and LineID are uuid.Nil for stock administration.
//
// While its properties are exported, it should only be constructed with the supplied factory methods:
//   - BuildPooledMovement
//   - BuildInstanceMovement
type StockMovement struct {
	ID                  uuid.UUID
	ProductID           uuid.UUID
	InstanceID          uuid.UUID
	Kind                MovementKind
	Quantity            int
	Snapshot            *CountSnapshot
	InstanceStatusAfter InstanceStatus
	ReservationID       uuid.UUID
	LineID              uuid.UUID
	ActorID             string
	Reason              string
	OccurredAt          time.Time
}

// IsInstanceMovement reports whether the movement refers to a single serialized instance.
func (m StockMovement) IsInstanceMovement() bool {
	return m.InstanceID != uuid.Nil
}

// MovementRef carries the context that is shared by all movements written in one operation.
type MovementRef struct {
	ReservationID uuid.UUID
	LineID        uuid.UUID
	Actor         Actor
	Reason        string
	OccurredAt    time.Time
}

// ForLine returns a copy of the ref pointing to the given line.
func (r MovementRef) ForLine(lineID uuid.UUID) MovementRef {
	r.LineID = lineID
	return r
}

// BuildPooledMovement is a factory method for a StockMovement of a pooled product.
//
// The snapshot is taken from the product before and after the change.
// Returns a ValidationError if the kind is unknown or the quantity is not positive.
func BuildPooledMovement(kind MovementKind, quantity int, before, after Product, ref MovementRef) (StockMovement, error) {
	if err := validateMovement(kind, quantity); err != nil {
		return StockMovement{}, err
	}

	return StockMovement{
		ID:        newMovementID(),
		ProductID: after.ID,
		Kind:      kind,
		Quantity:  quantity,
		Snapshot: &CountSnapshot{
			CapacityBefore:  before.TotalCapacity,
			CapacityAfter:   after.TotalCapacity,
			AvailableBefore: before.AvailableCount,
			AvailableAfter:  after.AvailableCount,
		},
		ReservationID: ref.ReservationID,
		LineID:        ref.LineID,
		ActorID:       ref.Actor.ID,
		Reason:        ref.Reason,
		OccurredAt:    ref.OccurredAt,
	}, nil
}

// BuildInstanceMovement is a factory method for a StockMovement of one serialized instance.
// The instance must already carry its new status.
func BuildInstanceMovement(kind MovementKind, after ProductInstance, ref MovementRef) (StockMovement, error) {
	if err := validateMovement(kind, 1); err != nil {
		return StockMovement{}, err
	}

	if after.ID == uuid.Nil {
		return StockMovement{}, NewValidationError("movement.instanceId", "must be set")
	}

	return StockMovement{
		ID:                  newMovementID(),
		ProductID:           after.ProductID,
		InstanceID:          after.ID,
		Kind:                kind,
		Quantity:            1,
		InstanceStatusAfter: after.Status,
		ReservationID:       ref.ReservationID,
		LineID:              ref.LineID,
		ActorID:             ref.Actor.ID,
		Reason:              ref.Reason,
		OccurredAt:          ref.OccurredAt,
	}, nil
}

func validateMovement(kind MovementKind, quantity int) error {
	if !kind.IsValid() {
		return NewValidationError("movement.kind", "unknown kind "+string(kind))
	}

	if quantity < 1 {
		return NewValidationError("movement.quantity", "must be at least 1")
	}

	return nil
}

func newMovementID() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}
