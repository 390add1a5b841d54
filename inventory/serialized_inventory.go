package inventory

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
)

// SerializedInventory is the stock of a product tracked as individually identified instances.
type SerializedInventory struct {
	product   Product
	instances []ProductInstance
	changed   map[uuid.UUID]bool
}

// NewSerializedInventory wraps a serialized product and its instances, ordered by ascending serial.
func NewSerializedInventory(product Product, instances []ProductInstance) *SerializedInventory {
	sorted := slices.Clone(instances)
	slices.SortFunc(sorted, func(a, b ProductInstance) int { return strings.Compare(a.Serial, b.Serial) })

	return &SerializedInventory{
		product:   product,
		instances: sorted,
		changed:   make(map[uuid.UUID]bool),
	}
}

func (inv *SerializedInventory) Product() Product {
	return inv.product
}

// Instances returns the current instances in ascending serial order.
func (inv *SerializedInventory) Instances() []ProductInstance {
	return slices.Clone(inv.instances)
}

// Instance returns the instance with the given id.
func (inv *SerializedInventory) Instance(id uuid.UUID) (ProductInstance, bool) {
	idx := inv.indexOf(id)
	if idx < 0 {
		return ProductInstance{}, false
	}

	return inv.instances[idx], true
}

// Availability enumerates rentable instances without an overlapping commitment.
// The first quantity of them, in ascending serial order, are returned as candidates.
func (inv *SerializedInventory) Availability(period DateRange, quantity int, commitments []Commitment) Availability {
	busy := busyInstances(period, commitmentsOf(inv.product.ID, commitments))
	free := inv.freeInstances(busy, nil)

	result := Availability{
		Available:    len(free) >= quantity,
		FreeCapacity: len(free),
	}

	for _, instance := range free[:min(quantity, len(free))] {
		result.CandidateInstances = append(result.CandidateInstances, instance.Serial)
		result.CandidateInstanceIDs = append(result.CandidateInstanceIDs, instance.ID)
	}

	return result
}

// Plan assigns instances to the demands in the given order. An instance granted to an earlier demand
// counts as busy for every later demand with an overlapping period.
func (inv *SerializedInventory) Plan(demands []LineDemand, external []Commitment) ([]Allocation, []Shortfall) {
	var allocations []Allocation
	var shortfalls []Shortfall

	planned := slices.Clone(commitmentsOf(inv.product.ID, external))

	for _, demand := range demands {
		busy := busyInstances(demand.Period, planned)
		free := inv.freeInstances(busy, demand.Preferred)

		if len(free) < demand.Quantity {
			shortfalls = append(shortfalls, Shortfall{
				LineID:       demand.LineID,
				ProductID:    inv.product.ID,
				ProductName:  inv.product.Name,
				Period:       demand.Period,
				Requested:    demand.Quantity,
				FreeCapacity: len(free),
			})
			continue
		}

		allocation := Allocation{LineID: demand.LineID, Quantity: demand.Quantity, Period: demand.Period}
		for _, instance := range free[:demand.Quantity] {
			allocation.InstanceIDs = append(allocation.InstanceIDs, instance.ID)
			planned = append(planned, Commitment{
				LineID:     demand.LineID,
				ProductID:  inv.product.ID,
				InstanceID: instance.ID,
				Quantity:   1,
				Period:     demand.Period,
			})
		}

		allocations = append(allocations, allocation)
	}

	return allocations, shortfalls
}

// Commit returns one RESERVE row per allocated instance and flips AVAILABLE instances to RESERVED.
// An instance that is IN_USE for an earlier, non-overlapping rental stays IN_USE.
func (inv *SerializedInventory) Commit(allocation Allocation, ref MovementRef) ([]StockMovement, error) {
	if len(allocation.InstanceIDs) != allocation.Quantity {
		return nil, NewValidationError(
			"allocation.instances",
			fmt.Sprintf("%d instances assigned for quantity %d", len(allocation.InstanceIDs), allocation.Quantity),
		)
	}

	ref = ref.ForLine(allocation.LineID)
	movements := make([]StockMovement, 0, len(allocation.InstanceIDs))

	for _, id := range allocation.InstanceIDs {
		idx := inv.indexOf(id)
		if idx < 0 {
			return nil, NewNotFoundError("instance", id)
		}

		if !inv.instances[idx].Status.IsRentable() {
			return nil, &StockUnavailableError{Shortfalls: []Shortfall{{
				LineID:      allocation.LineID,
				ProductID:   inv.product.ID,
				ProductName: inv.product.Name + " " + inv.instances[idx].Serial,
				Period:      allocation.Period,
				Requested:   1,
			}}}
		}

		next := inv.instances[idx].Status
		if next == InstanceAvailable {
			next = InstanceReserved
		}

		movement, err := inv.setStatus(idx, next, MovementReserve, ref)
		if err != nil {
			return nil, err
		}

		movements = append(movements, movement)
	}

	return movements, nil
}

// Release returns one RELEASE row per instance. An instance becomes AVAILABLE again unless one of the
// remaining commitments still holds it. It stays IN_USE while a remaining commitment whose goods are
// out on rental holds it. Instances in MAINTENANCE or DISPOSED keep their status.
func (inv *SerializedInventory) Release(allocation Allocation, remaining []Commitment, ref MovementRef) ([]StockMovement, error) {
	ref = ref.ForLine(allocation.LineID)
	movements := make([]StockMovement, 0, len(allocation.InstanceIDs))

	for _, id := range allocation.InstanceIDs {
		idx := inv.indexOf(id)
		if idx < 0 {
			return nil, NewNotFoundError("instance", id)
		}

		next := inv.instances[idx].Status
		switch {
		case next == InstanceInUse && holdsOutOnRental(id, remaining):
		case next == InstanceReserved || next == InstanceInUse:
			next = InstanceAvailable
			if holdsInstance(id, remaining) {
				next = InstanceReserved
			}
		}

		movement, err := inv.setStatus(idx, next, MovementRelease, ref)
		if err != nil {
			return nil, err
		}

		movements = append(movements, movement)
	}

	return movements, nil
}

// SetInUse flips the given instances to IN_USE on dispatch. No ledger row is written for it.
func (inv *SerializedInventory) SetInUse(ids []uuid.UUID) error {
	for _, id := range ids {
		idx := inv.indexOf(id)
		if idx < 0 {
			return NewNotFoundError("instance", id)
		}

		if inv.instances[idx].Status == InstanceReserved {
			inv.instances[idx].Status = InstanceInUse
			inv.changed[id] = true
		}
	}

	return nil
}

// Damage moves an instance to MAINTENANCE or DISPOSED and returns one DAMAGE row.
func (inv *SerializedInventory) Damage(id uuid.UUID, disposition InstanceStatus, ref MovementRef) ([]StockMovement, error) {
	if disposition != InstanceMaintenance && disposition != InstanceDisposed {
		return nil, NewValidationError("disposition", "must be MAINTENANCE or DISPOSED")
	}

	idx := inv.indexOf(id)
	if idx < 0 {
		return nil, NewNotFoundError("instance", id)
	}

	if inv.instances[idx].Status == InstanceDisposed {
		return nil, NewValidationError("instance.status", "instance "+inv.instances[idx].Serial+" is already disposed")
	}

	movement, err := inv.setStatus(idx, disposition, MovementDamage, ref)
	if err != nil {
		return nil, err
	}

	return []StockMovement{movement}, nil
}

// Restore moves an instance from MAINTENANCE back to AVAILABLE and returns one ADJUST_IN row.
func (inv *SerializedInventory) Restore(id uuid.UUID, ref MovementRef) ([]StockMovement, error) {
	idx := inv.indexOf(id)
	if idx < 0 {
		return nil, NewNotFoundError("instance", id)
	}

	if inv.instances[idx].Status != InstanceMaintenance {
		return nil, NewValidationError("instance.status", "instance "+inv.instances[idx].Serial+" is not in maintenance")
	}

	movement, err := inv.setStatus(idx, InstanceAvailable, MovementAdjustIn, ref)
	if err != nil {
		return nil, err
	}

	return []StockMovement{movement}, nil
}

// Add registers a new instance and returns one ADJUST_IN row.
func (inv *SerializedInventory) Add(instance ProductInstance, ref MovementRef) ([]StockMovement, error) {
	if err := instance.Validate(); err != nil {
		return nil, err
	}

	for _, existing := range inv.instances {
		if existing.Serial == instance.Serial {
			return nil, NewValidationError("instance.serial", "serial "+instance.Serial+" already exists")
		}
	}

	movement, err := BuildInstanceMovement(MovementAdjustIn, instance, ref)
	if err != nil {
		return nil, err
	}

	inv.instances = append(inv.instances, instance)
	slices.SortFunc(inv.instances, func(a, b ProductInstance) int { return strings.Compare(a.Serial, b.Serial) })
	inv.changed[instance.ID] = true

	return []StockMovement{movement}, nil
}

func (inv *SerializedInventory) Changes() Changes {
	var changed []ProductInstance
	for _, instance := range inv.instances {
		if inv.changed[instance.ID] {
			changed = append(changed, instance)
		}
	}

	return Changes{Instances: changed}
}

func (inv *SerializedInventory) setStatus(idx int, status InstanceStatus, kind MovementKind, ref MovementRef) (StockMovement, error) {
	after := inv.instances[idx]
	after.Status = status

	movement, err := BuildInstanceMovement(kind, after, ref)
	if err != nil {
		return StockMovement{}, err
	}

	inv.instances[idx] = after
	inv.changed[after.ID] = true

	return movement, nil
}

// freeInstances returns the rentable instances that are not busy, preferred ones first,
// the rest in ascending serial order.
func (inv *SerializedInventory) freeInstances(busy map[uuid.UUID]bool, preferred []uuid.UUID) []ProductInstance {
	free := make([]ProductInstance, 0, len(inv.instances))

	for _, id := range preferred {
		idx := inv.indexOf(id)
		if idx >= 0 && inv.instances[idx].Status.IsRentable() && !busy[id] {
			free = append(free, inv.instances[idx])
		}
	}

	for _, instance := range inv.instances {
		if !instance.Status.IsRentable() || busy[instance.ID] || slices.Contains(preferred, instance.ID) {
			continue
		}

		free = append(free, instance)
	}

	return free
}

func (inv *SerializedInventory) indexOf(id uuid.UUID) int {
	return slices.IndexFunc(inv.instances, func(i ProductInstance) bool { return i.ID == id })
}

func busyInstances(period DateRange, commitments []Commitment) map[uuid.UUID]bool {
	busy := make(map[uuid.UUID]bool)
	for _, c := range commitments {
		if c.InstanceID != uuid.Nil && c.Period.Overlaps(period) {
			busy[c.InstanceID] = true
		}
	}

	return busy
}

func holdsInstance(id uuid.UUID, commitments []Commitment) bool {
	return slices.ContainsFunc(commitments, func(c Commitment) bool { return c.InstanceID == id })
}

func holdsOutOnRental(id uuid.UUID, commitments []Commitment) bool {
	return slices.ContainsFunc(commitments, func(c Commitment) bool { return c.InstanceID == id && c.OutOnRental })
}
