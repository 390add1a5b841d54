package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// CommitmentQuery selects the commitments of CONFIRMED reservations whose stock is committed.
type CommitmentQuery struct {
	ProductIDs           []uuid.UUID
	Overlapping          *DateRange
	ExcludeReservationID uuid.UUID
}

// ReservationQuery selects reservations for the scheduler and for reporting.
// Zero values mean "any".
type ReservationQuery struct {
	Status             ReservationStatus
	ExpiresBefore      time.Time
	LineStartsOn       time.Time
	LineDeliveryStatus DeliveryStatus
	Limit              int
}

// ReadTx is a read-only view of the persisted state.
//
// Lookups of a single entity return a NotFoundError if it does not exist.
// Instances are returned in ascending serial order, movements in the order they were appended.
type ReadTx interface {
	Product(ctx context.Context, id uuid.UUID) (Product, error)
	Products(ctx context.Context) ([]Product, error)
	Instances(ctx context.Context, productID uuid.UUID) ([]ProductInstance, error)
	Instance(ctx context.Context, id uuid.UUID) (ProductInstance, error)
	Commitments(ctx context.Context, query CommitmentQuery) ([]Commitment, error)
	Reservation(ctx context.Context, id uuid.UUID) (Reservation, error)
	ReservationIDByLine(ctx context.Context, lineID uuid.UUID) (uuid.UUID, error)
	ReservationIDs(ctx context.Context, query ReservationQuery) ([]uuid.UUID, error)
	Movements(ctx context.Context, filter MovementFilter) ([]StockMovement, error)
}

// Tx is a read-write transaction.
//
// LockProducts takes exclusive locks on the product rows, in ascending id order, and must be called
// before commitments of those products are read for a decision that leads to a write.
// UpdateReservation replaces the reservation with the given one if the persisted version equals
// expectedVersion; otherwise it returns ErrConcurrencyConflict.
type Tx interface {
	ReadTx
	LockProducts(ctx context.Context, ids ...uuid.UUID) error
	SaveProduct(ctx context.Context, product Product) error
	SaveInstance(ctx context.Context, instance ProductInstance) error
	InsertReservation(ctx context.Context, reservation Reservation) error
	UpdateReservation(ctx context.Context, reservation Reservation, expectedVersion int) error
	AppendMovements(ctx context.Context, movements ...StockMovement) error
}

// Store is the persistence collaborator.
//
// Update runs fn in one transaction that is committed if fn returns nil and rolled back otherwise.
// View runs fn read-only; it may read from a replica if the context asks for EventualConsistency.
type Store interface {
	View(ctx context.Context, fn func(ctx context.Context, tx ReadTx) error) error
	Update(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// ApplyChanges persists what an Inventory changed.
func ApplyChanges(ctx context.Context, tx Tx, changes Changes) error {
	if changes.Product != nil {
		if err := tx.SaveProduct(ctx, *changes.Product); err != nil {
			return err
		}
	}

	for _, instance := range changes.Instances {
		if err := tx.SaveInstance(ctx, instance); err != nil {
			return err
		}
	}

	return nil
}
