package inventory

import (
	"github.com/google/uuid"
)

// Commitment is stock held by a CONFIRMED reservation line. Pooled lines yield one commitment with
// the line quantity, serialized lines one commitment per assigned instance with quantity 1.
type Commitment struct {
	ReservationID uuid.UUID
	LineID        uuid.UUID
	ProductID     uuid.UUID
	InstanceID    uuid.UUID
	Quantity      int
	Period        DateRange
	OutOnRental   bool
}

// LineCommitments lists what the given line holds once its reservation is committed.
func LineCommitments(reservationID uuid.UUID, line ReservationLine) []Commitment {
	if len(line.InstanceIDs) == 0 {
		return []Commitment{{
			ReservationID: reservationID,
			LineID:        line.ID,
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			Period:        line.Period,
			OutOnRental:   line.DeliveryStatus.IsOutOnRental(),
		}}
	}

	commitments := make([]Commitment, 0, len(line.InstanceIDs))
	for _, instanceID := range line.InstanceIDs {
		commitments = append(commitments, Commitment{
			ReservationID: reservationID,
			LineID:        line.ID,
			ProductID:     line.ProductID,
			InstanceID:    instanceID,
			Quantity:      1,
			Period:        line.Period,
			OutOnRental:   line.DeliveryStatus.IsOutOnRental(),
		})
	}

	return commitments
}

// LineDemand is a line that asks for stock in a Plan.
// Preferred instances are tried first, so a line keeps its instances when only its dates change.
type LineDemand struct {
	LineID    uuid.UUID
	Quantity  int
	Period    DateRange
	Preferred []uuid.UUID
}

// DemandOf builds a LineDemand from a reservation line.
func DemandOf(line ReservationLine) LineDemand {
	return LineDemand{
		LineID:    line.ID,
		Quantity:  line.Quantity,
		Period:    line.Period,
		Preferred: line.InstanceIDs,
	}
}

// Allocation is what a Plan granted to one line, or what a line gives back on release.
// InstanceIDs is empty for pooled products.
type Allocation struct {
	LineID      uuid.UUID
	Quantity    int
	Period      DateRange
	InstanceIDs []uuid.UUID
}

// AllocationOf builds the Allocation a committed line currently holds.
func AllocationOf(line ReservationLine) Allocation {
	return Allocation{
		LineID:      line.ID,
		Quantity:    line.Quantity,
		Period:      line.Period,
		InstanceIDs: line.InstanceIDs,
	}
}

// Availability is the result of a read-only availability check.
// CandidateInstances are the serials of the first free instances in ascending serial order.
type Availability struct {
	Available            bool
	FreeCapacity         int
	CandidateInstances   []string
	CandidateInstanceIDs []uuid.UUID
}

// Changes is the state an Inventory wants persisted after Commit or Release.
type Changes struct {
	Product   *Product
	Instances []ProductInstance
}

// Inventory is the stock of one product. PooledInventory and SerializedInventory share this contract.
//
// Availability and Plan are pure: they decide from the given commitments only.
// Commit and Release mutate the in-memory state and return the ledger rows describing the change;
// the caller persists Changes and the rows in the same transaction.
type Inventory interface {
	Product() Product
	Availability(period DateRange, quantity int, commitments []Commitment) Availability
	Plan(demands []LineDemand, external []Commitment) ([]Allocation, []Shortfall)
	Commit(allocation Allocation, ref MovementRef) ([]StockMovement, error)
	Release(allocation Allocation, remaining []Commitment, ref MovementRef) ([]StockMovement, error)
	Changes() Changes
}

// InventoryOf returns the Inventory variant that matches the product's mode.
func InventoryOf(product Product, instances []ProductInstance) Inventory {
	if product.Mode == ModeSerialized {
		return NewSerializedInventory(product, instances)
	}

	return NewPooledInventory(product)
}

func commitmentsOf(productID uuid.UUID, commitments []Commitment) []Commitment {
	own := make([]Commitment, 0, len(commitments))
	for _, c := range commitments {
		if c.ProductID == productID {
			own = append(own, c)
		}
	}

	return own
}
