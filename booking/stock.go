package booking

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// RegisterProduct creates a product. The initial capacity of a pooled product is booked as an ADJUST_IN
// ledger row, so that the ledger can be replayed from an empty state.
func (e *Engine) RegisterProduct(ctx context.Context, cmd RegisterProduct) (inventory.Product, error) {
	id := e.newID()

	return runUpdate(ctx, e, opRegisterProduct, id, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Product], error) {
		if cmd.Capacity < 0 {
			return outcome[inventory.Product]{}, inventory.NewValidationError("capacity", "must not be negative")
		}

		if cmd.Mode == inventory.ModeSerialized && cmd.Capacity != 0 {
			return outcome[inventory.Product]{}, inventory.NewValidationError("capacity", "serialized products get their capacity from registered instances")
		}

		product := inventory.Product{
			ID:        id,
			Name:      strings.TrimSpace(cmd.Name),
			UnitPrice: cmd.UnitPrice,
			Mode:      cmd.Mode,
			CreatedAt: e.now(),
		}

		if err := product.Validate(); err != nil {
			return outcome[inventory.Product]{}, err
		}

		if err := tx.SaveProduct(ctx, product); err != nil {
			return outcome[inventory.Product]{}, err
		}

		if cmd.Capacity == 0 {
			return outcome[inventory.Product]{result: product}, nil
		}

		pooled := inventory.NewPooledInventory(product)

		movements, err := pooled.Adjust(cmd.Capacity, e.ref(ctx, uuid.Nil, reasonOr(cmd.Reason, "initial capacity")))
		if err != nil {
			return outcome[inventory.Product]{}, err
		}

		if err := e.persist(ctx, tx, pooled, movements); err != nil {
			return outcome[inventory.Product]{}, err
		}

		return outcome[inventory.Product]{result: pooled.Product(), movements: len(movements)}, nil
	})
}

// RegisterInstance adds a serialized unit to a serialized product. The serial must be unique per product.
func (e *Engine) RegisterInstance(ctx context.Context, cmd RegisterInstance) (inventory.ProductInstance, error) {
	id := e.newID()

	return runUpdate(ctx, e, opRegisterInstance, id, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.ProductInstance], error) {
		serialized, err := e.lockSerialized(ctx, tx, cmd.ProductID)
		if err != nil {
			return outcome[inventory.ProductInstance]{}, err
		}

		instance := inventory.ProductInstance{
			ID:        id,
			ProductID: cmd.ProductID,
			Serial:    strings.TrimSpace(cmd.Serial),
			Status:    inventory.InstanceAvailable,
		}

		movements, err := serialized.Add(instance, e.ref(ctx, uuid.Nil, reasonOr(cmd.Reason, "instance registered")))
		if err != nil {
			return outcome[inventory.ProductInstance]{}, err
		}

		if err := e.persist(ctx, tx, serialized, movements); err != nil {
			return outcome[inventory.ProductInstance]{}, err
		}

		return outcome[inventory.ProductInstance]{result: instance, movements: len(movements)}, nil
	})
}

// AdjustStock changes the capacity of a pooled product by Delta and writes an ADJUST_IN or ADJUST_OUT row.
//
// A reduction is rejected if the quantity committed by confirmed reservations in any period would then
// exceed the new capacity.
func (e *Engine) AdjustStock(ctx context.Context, cmd AdjustStock) (inventory.Product, error) {
	return runUpdate(ctx, e, opAdjustStock, cmd.ProductID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Product], error) {
		if err := tx.LockProducts(ctx, cmd.ProductID); err != nil {
			return outcome[inventory.Product]{}, err
		}

		product, err := tx.Product(ctx, cmd.ProductID)
		if err != nil {
			return outcome[inventory.Product]{}, err
		}

		if product.Mode != inventory.ModePooled {
			return outcome[inventory.Product]{}, inventory.NewValidationError("productId", "capacity of a serialized product changes by registering or damaging instances")
		}

		pooled := inventory.NewPooledInventory(product)

		if cmd.Delta < 0 {
			if err := e.checkReduction(ctx, tx, pooled, product.TotalCapacity+cmd.Delta); err != nil {
				return outcome[inventory.Product]{}, err
			}
		}

		movements, err := pooled.Adjust(cmd.Delta, e.ref(ctx, uuid.Nil, cmd.Reason))
		if err != nil {
			return outcome[inventory.Product]{}, err
		}

		if err := e.persist(ctx, tx, pooled, movements); err != nil {
			return outcome[inventory.Product]{}, err
		}

		return outcome[inventory.Product]{result: pooled.Product(), movements: len(movements)}, nil
	})
}

func (e *Engine) checkReduction(ctx context.Context, tx inventory.Tx, pooled *inventory.PooledInventory, capacity int) error {
	commitments, err := tx.Commitments(ctx, inventory.CommitmentQuery{ProductIDs: []uuid.UUID{pooled.Product().ID}})
	if err != nil {
		return err
	}

	for _, c := range commitments {
		if committed := pooled.CommittedQuantity(c.Period, commitments); committed > capacity {
			return inventory.NewValidationError(
				"delta",
				fmt.Sprintf("capacity %d is below the %d units committed for %s", capacity, committed, c.Period),
			)
		}
	}

	return nil
}

// ReportDamage moves a serialized unit to MAINTENANCE or DISPOSED and writes a DAMAGE row.
// Reservations that hold the unit keep it; staff reassign them by modifying the affected lines.
func (e *Engine) ReportDamage(ctx context.Context, cmd ReportDamage) (inventory.ProductInstance, error) {
	return runUpdate(ctx, e, opReportDamage, cmd.InstanceID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.ProductInstance], error) {
		return e.changeInstance(ctx, tx, cmd.InstanceID, func(serialized *inventory.SerializedInventory) ([]inventory.StockMovement, error) {
			return serialized.Damage(cmd.InstanceID, cmd.Disposition, e.ref(ctx, uuid.Nil, cmd.Reason))
		})
	})
}

// ReturnFromMaintenance puts a repaired unit back into rotation and writes an ADJUST_IN row.
func (e *Engine) ReturnFromMaintenance(ctx context.Context, instanceID uuid.UUID, reason string) (inventory.ProductInstance, error) {
	return runUpdate(ctx, e, opReturnFromMaintenance, instanceID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.ProductInstance], error) {
		return e.changeInstance(ctx, tx, instanceID, func(serialized *inventory.SerializedInventory) ([]inventory.StockMovement, error) {
			return serialized.Restore(instanceID, e.ref(ctx, uuid.Nil, reasonOr(reason, "returned from maintenance")))
		})
	})
}

func (e *Engine) changeInstance(
	ctx context.Context,
	tx inventory.Tx,
	instanceID uuid.UUID,
	apply func(serialized *inventory.SerializedInventory) ([]inventory.StockMovement, error),
) (outcome[inventory.ProductInstance], error) {
	instance, err := tx.Instance(ctx, instanceID)
	if err != nil {
		return outcome[inventory.ProductInstance]{}, err
	}

	serialized, err := e.lockSerialized(ctx, tx, instance.ProductID)
	if err != nil {
		return outcome[inventory.ProductInstance]{}, err
	}

	movements, err := apply(serialized)
	if err != nil {
		return outcome[inventory.ProductInstance]{}, err
	}

	if err := e.persist(ctx, tx, serialized, movements); err != nil {
		return outcome[inventory.ProductInstance]{}, err
	}

	changed, _ := serialized.Instance(instanceID)

	return outcome[inventory.ProductInstance]{result: changed, movements: len(movements)}, nil
}

func (e *Engine) lockSerialized(ctx context.Context, tx inventory.Tx, productID uuid.UUID) (*inventory.SerializedInventory, error) {
	if err := tx.LockProducts(ctx, productID); err != nil {
		return nil, err
	}

	stock, err := loadInventory(ctx, tx, productID)
	if err != nil {
		return nil, err
	}

	serialized, ok := stock.(*inventory.SerializedInventory)
	if !ok {
		return nil, inventory.NewValidationError("productId", "product "+stock.Product().Name+" is not serialized")
	}

	return serialized, nil
}

func (e *Engine) persist(ctx context.Context, tx inventory.Tx, stock inventory.Inventory, movements []inventory.StockMovement) error {
	if err := inventory.ApplyChanges(ctx, tx, stock.Changes()); err != nil {
		return err
	}

	return tx.AppendMovements(ctx, movements...)
}

func reasonOr(reason, fallback string) string {
	if strings.TrimSpace(reason) == "" {
		return fallback
	}

	return reason
}
