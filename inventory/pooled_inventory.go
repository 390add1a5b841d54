package inventory

import (
	"fmt"
)

// PooledInventory is the stock of a product tracked as an interchangeable count.
type PooledInventory struct {
	product Product
	changed bool
}

// NewPooledInventory wraps a pooled product.
func NewPooledInventory(product Product) *PooledInventory {
	return &PooledInventory{product: product}
}

func (inv *PooledInventory) Product() Product {
	return inv.product
}

// CommittedQuantity sums the quantities of all commitments overlapping the period.
func (inv *PooledInventory) CommittedQuantity(period DateRange, commitments []Commitment) int {
	committed := 0
	for _, c := range commitmentsOf(inv.product.ID, commitments) {
		if c.Period.Overlaps(period) {
			committed += c.Quantity
		}
	}

	return committed
}

// Availability computes totalCapacity minus the quantity committed in overlapping periods.
func (inv *PooledInventory) Availability(period DateRange, quantity int, commitments []Commitment) Availability {
	free := max(inv.product.TotalCapacity-inv.CommittedQuantity(period, commitments), 0)

	return Availability{
		Available:    free >= quantity,
		FreeCapacity: free,
	}
}

// Plan checks each demand against the external commitments and against every other demand of the
// same plan that overlaps it.
func (inv *PooledInventory) Plan(demands []LineDemand, external []Commitment) ([]Allocation, []Shortfall) {
	var allocations []Allocation
	var shortfalls []Shortfall

	for i, demand := range demands {
		others := 0
		for j, other := range demands {
			if i != j && other.Period.Overlaps(demand.Period) {
				others += other.Quantity
			}
		}

		free := inv.product.TotalCapacity - inv.CommittedQuantity(demand.Period, external) - others
		if free < demand.Quantity {
			shortfalls = append(shortfalls, Shortfall{
				LineID:       demand.LineID,
				ProductID:    inv.product.ID,
				ProductName:  inv.product.Name,
				Period:       demand.Period,
				Requested:    demand.Quantity,
				FreeCapacity: max(free, 0),
			})
			continue
		}

		allocations = append(allocations, Allocation{
			LineID:   demand.LineID,
			Quantity: demand.Quantity,
			Period:   demand.Period,
		})
	}

	return allocations, shortfalls
}

// Commit decrements the availableCount hint and returns one RESERVE row.
func (inv *PooledInventory) Commit(allocation Allocation, ref MovementRef) ([]StockMovement, error) {
	return inv.move(MovementReserve, -allocation.Quantity, 0, allocation.Quantity, ref.ForLine(allocation.LineID))
}

// Release increments the availableCount hint and returns one RELEASE row.
func (inv *PooledInventory) Release(allocation Allocation, _ []Commitment, ref MovementRef) ([]StockMovement, error) {
	return inv.move(MovementRelease, allocation.Quantity, 0, allocation.Quantity, ref.ForLine(allocation.LineID))
}

// Adjust changes total capacity and availableCount by delta and returns one ADJUST_IN or ADJUST_OUT row.
func (inv *PooledInventory) Adjust(delta int, ref MovementRef) ([]StockMovement, error) {
	if delta == 0 {
		return nil, NewValidationError("delta", "must not be zero")
	}

	if inv.product.TotalCapacity+delta < 0 {
		return nil, NewValidationError("delta", fmt.Sprintf("would reduce capacity of %s below zero", inv.product.Name))
	}

	kind := MovementAdjustIn
	quantity := delta
	if delta < 0 {
		kind = MovementAdjustOut
		quantity = -delta
	}

	return inv.move(kind, delta, delta, quantity, ref)
}

func (inv *PooledInventory) move(kind MovementKind, availableDelta, capacityDelta, quantity int, ref MovementRef) ([]StockMovement, error) {
	before := inv.product
	after := inv.product
	after.AvailableCount += availableDelta
	after.TotalCapacity += capacityDelta

	movement, err := BuildPooledMovement(kind, quantity, before, after, ref)
	if err != nil {
		return nil, err
	}

	inv.product = after
	inv.changed = true

	return []StockMovement{movement}, nil
}

func (inv *PooledInventory) Changes() Changes {
	if !inv.changed {
		return Changes{}
	}

	product := inv.product

	return Changes{Product: &product}
}
