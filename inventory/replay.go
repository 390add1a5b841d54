package inventory

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrLedgerDiverged is returned by ReplayLedger when a movement's snapshot does not match the replayed state.
var ErrLedgerDiverged = errors.New("ledger replay diverged")

// PooledCounts are the replayable counters of a pooled product.
type PooledCounts struct {
	TotalCapacity  int
	AvailableCount int
}

// StockState is the part of the inventory state that is driven by the ledger.
type StockState struct {
	Pooled    map[uuid.UUID]PooledCounts
	Instances map[uuid.UUID]InstanceStatus
}

// NewStockState returns an empty StockState, which is the state before the first ledger row.
func NewStockState() StockState {
	return StockState{
		Pooled:    make(map[uuid.UUID]PooledCounts),
		Instances: make(map[uuid.UUID]InstanceStatus),
	}
}

// StockStateOf captures the current state of the given products and instances.
func StockStateOf(products []Product, instances []ProductInstance) StockState {
	state := NewStockState()
	for _, p := range products {
		if p.Mode == ModePooled {
			state.Pooled[p.ID] = PooledCounts{TotalCapacity: p.TotalCapacity, AvailableCount: p.AvailableCount}
		}
	}

	for _, i := range instances {
		state.Instances[i.ID] = i.Status
	}

	return state
}

// ReplayLedger applies the movements, in the given order, to a copy of the initial state.
//
// Pooled movements are applied as deltas and cross-checked against their snapshot; a mismatch
// returns ErrLedgerDiverged. Instance movements set the status recorded on the row.
// Status changes that are not ledger driven, like IN_USE during delivery, are not reproduced.
func ReplayLedger(initial StockState, movements []StockMovement) (StockState, error) {
	state := NewStockState()
	for id, counts := range initial.Pooled {
		state.Pooled[id] = counts
	}

	for id, status := range initial.Instances {
		state.Instances[id] = status
	}

	for _, m := range movements {
		if m.IsInstanceMovement() {
			state.Instances[m.InstanceID] = m.InstanceStatusAfter
			continue
		}

		counts := state.Pooled[m.ProductID]
		if m.Snapshot != nil && (counts.AvailableCount != m.Snapshot.AvailableBefore || counts.TotalCapacity != m.Snapshot.CapacityBefore) {
			return StockState{}, fmt.Errorf("%w: movement %s expected %d/%d before, replayed %d/%d", ErrLedgerDiverged, m.ID,
				m.Snapshot.AvailableBefore, m.Snapshot.CapacityBefore, counts.AvailableCount, counts.TotalCapacity)
		}

		switch m.Kind {
		case MovementReserve:
			counts.AvailableCount -= m.Quantity
		case MovementRelease:
			counts.AvailableCount += m.Quantity
		case MovementAdjustIn:
			counts.TotalCapacity += m.Quantity
			counts.AvailableCount += m.Quantity
		case MovementAdjustOut, MovementDamage:
			counts.TotalCapacity -= m.Quantity
			counts.AvailableCount -= m.Quantity
		}

		state.Pooled[m.ProductID] = counts
	}

	return state, nil
}
