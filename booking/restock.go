package booking

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// restock moves the stock of one reservation inside a transaction.
//
// The lines in release give back what they held; the lines of after whose ids are in demand get
// stock committed. Product rows are locked before the commitments are read, so the check always
// runs against persisted, already committed rows. The lines of after that are neither released nor
// demanded keep their commitment and count as taken if after is still committed.
//
// Either every demanded line gets its stock or nothing is written and a StockUnavailableError
// lists all shortfalls. It returns the number of ledger rows appended.
func (e *Engine) restock(
	ctx context.Context,
	tx inventory.Tx,
	after *inventory.Reservation,
	release []inventory.ReservationLine,
	demand []uuid.UUID,
	ref inventory.MovementRef,
) (int, error) {
	demanded := make([]inventory.ReservationLine, 0, len(demand))
	for _, id := range demand {
		line, ok := after.Line(id)
		if !ok {
			return 0, inventory.NewNotFoundError("line", id)
		}

		demanded = append(demanded, line)
	}

	productIDs := make([]uuid.UUID, 0, len(release)+len(demanded))
	for _, line := range slices.Concat(release, demanded) {
		productIDs = append(productIDs, line.ProductID)
	}
	productIDs = inventory.SortedUniqueIDs(productIDs)

	if len(productIDs) == 0 {
		return 0, nil
	}

	if err := tx.LockProducts(ctx, productIDs...); err != nil {
		return 0, err
	}

	taken, err := tx.Commitments(ctx, inventory.CommitmentQuery{
		ProductIDs:           productIDs,
		ExcludeReservationID: after.ID,
	})
	if err != nil {
		return 0, err
	}

	if after.Status == inventory.StatusConfirmed && after.StockCommitted {
		for _, line := range after.Lines {
			if !slices.Contains(demand, line.ID) {
				taken = append(taken, inventory.LineCommitments(after.ID, line)...)
			}
		}
	}

	stocks, err := loadInventories(ctx, tx, productIDs)
	if err != nil {
		return 0, err
	}

	allocations, shortfalls := planDemands(stocks, demanded, taken)
	if len(shortfalls) > 0 {
		return 0, &inventory.StockUnavailableError{Shortfalls: shortfalls}
	}

	var movements []inventory.StockMovement

	for _, line := range release {
		rows, err := stocks[line.ProductID].Release(inventory.AllocationOf(line), taken, ref)
		if err != nil {
			return 0, err
		}

		movements = append(movements, rows...)
	}

	for _, line := range demanded {
		allocation := allocations[line.ID]

		rows, err := stocks[line.ProductID].Commit(allocation, ref)
		if err != nil {
			return 0, err
		}

		movements = append(movements, rows...)
		after.Lines[after.LineIndex(line.ID)].InstanceIDs = allocation.InstanceIDs
	}

	for _, id := range productIDs {
		if err := inventory.ApplyChanges(ctx, tx, stocks[id].Changes()); err != nil {
			return 0, err
		}
	}

	if len(movements) == 0 {
		return 0, nil
	}

	if err := tx.AppendMovements(ctx, movements...); err != nil {
		return 0, err
	}

	return len(movements), nil
}

// loadInventories reads the products and, for serialized ones, their instances.
func loadInventories(ctx context.Context, tx inventory.ReadTx, productIDs []uuid.UUID) (map[uuid.UUID]inventory.Inventory, error) {
	stocks := make(map[uuid.UUID]inventory.Inventory, len(productIDs))

	for _, id := range productIDs {
		stock, err := loadInventory(ctx, tx, id)
		if err != nil {
			return nil, err
		}

		stocks[id] = stock
	}

	return stocks, nil
}

func loadInventory(ctx context.Context, tx inventory.ReadTx, productID uuid.UUID) (inventory.Inventory, error) {
	product, err := tx.Product(ctx, productID)
	if err != nil {
		return nil, err
	}

	var instances []inventory.ProductInstance
	if product.Mode == inventory.ModeSerialized {
		if instances, err = tx.Instances(ctx, productID); err != nil {
			return nil, err
		}
	}

	return inventory.InventoryOf(product, instances), nil
}

// planDemands plans the lines per product, keeping the order of the lines within each product.
func planDemands(
	stocks map[uuid.UUID]inventory.Inventory,
	lines []inventory.ReservationLine,
	taken []inventory.Commitment,
) (map[uuid.UUID]inventory.Allocation, []inventory.Shortfall) {
	demands := make(map[uuid.UUID][]inventory.LineDemand)
	var order []uuid.UUID

	for _, line := range lines {
		if _, ok := demands[line.ProductID]; !ok {
			order = append(order, line.ProductID)
		}

		demands[line.ProductID] = append(demands[line.ProductID], inventory.DemandOf(line))
	}

	allocations := make(map[uuid.UUID]inventory.Allocation, len(lines))
	var shortfalls []inventory.Shortfall

	for _, productID := range order {
		granted, missing := stocks[productID].Plan(demands[productID], taken)
		for _, allocation := range granted {
			allocations[allocation.LineID] = allocation
		}

		shortfalls = append(shortfalls, missing...)
	}

	return allocations, shortfalls
}
