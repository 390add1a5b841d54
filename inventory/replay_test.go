package inventory_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

func Test_ReplayLedger_ReproducesPooledCountsAndInstanceStatuses(t *testing.T) {
	// arrange
	chairs := givenPooledProduct("Chair", 0)
	pooled := inventory.NewPooledInventory(chairs)
	projector := givenSerializedProduct("Projector")
	serialized := inventory.NewSerializedInventory(projector, nil)
	instance := givenInstances(projector.ID, "P-001")[0]
	allocation := inventory.Allocation{LineID: uuid.New(), Quantity: 4, Period: june(1, 2)}
	instanceAllocation := inventory.Allocation{LineID: uuid.New(), Quantity: 1, Period: june(1, 2), InstanceIDs: []uuid.UUID{instance.ID}}

	var ledger []inventory.StockMovement
	record := func(movements []inventory.StockMovement, err error) {
		require.NoError(t, err)
		ledger = append(ledger, movements...)
	}

	record(pooled.Adjust(10, givenRef()))
	record(serialized.Add(instance, givenRef()))
	record(pooled.Commit(allocation, givenRef()))
	record(serialized.Commit(instanceAllocation, givenRef()))
	record(pooled.Release(allocation, nil, givenRef()))
	record(pooled.Commit(allocation, givenRef()))

	current := inventory.StockStateOf([]inventory.Product{pooled.Product(), projector}, serialized.Instances())

	// act
	replayed, err := inventory.ReplayLedger(inventory.NewStockState(), ledger)

	// assert
	require.NoError(t, err)
	assert.Equal(t, current, replayed)
	assert.Equal(t, inventory.PooledCounts{TotalCapacity: 10, AvailableCount: 6}, replayed.Pooled[chairs.ID])
	assert.Equal(t, inventory.InstanceReserved, replayed.Instances[instance.ID])
}

func Test_ReplayLedger_DetectsDivergingSnapshot(t *testing.T) {
	chairs := givenPooledProduct("Chair", 10)
	pooled := inventory.NewPooledInventory(chairs)
	movements, err := pooled.Commit(inventory.Allocation{LineID: uuid.New(), Quantity: 2, Period: june(1, 1)}, givenRef())
	require.NoError(t, err)

	_, err = inventory.ReplayLedger(inventory.NewStockState(), movements)

	assert.ErrorIs(t, err, inventory.ErrLedgerDiverged)
}
