package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// Reservation reads one reservation. Pass a context built with inventory.WithEventualConsistency to
// allow the read from a replica.
func (e *Engine) Reservation(ctx context.Context, reservationID uuid.UUID) (inventory.Reservation, error) {
	return runView(ctx, e, opReadReservation, func(ctx context.Context, tx inventory.ReadTx) (inventory.Reservation, error) {
		return tx.Reservation(ctx, reservationID)
	})
}

// Ledger reads the stock movements matching the filter in the order they were written.
func (e *Engine) Ledger(ctx context.Context, filter inventory.MovementFilter) ([]inventory.StockMovement, error) {
	return runView(ctx, e, opReadLedger, func(ctx context.Context, tx inventory.ReadTx) ([]inventory.StockMovement, error) {
		return tx.Movements(ctx, filter)
	})
}

// StockState reads the current pooled counters and instance statuses of all products, in the shape
// produced by inventory.ReplayLedger.
func (e *Engine) StockState(ctx context.Context) (inventory.StockState, error) {
	return runView(ctx, e, opReadStockState, func(ctx context.Context, tx inventory.ReadTx) (inventory.StockState, error) {
		products, err := tx.Products(ctx)
		if err != nil {
			return inventory.StockState{}, err
		}

		var instances []inventory.ProductInstance
		for _, product := range products {
			if product.Mode != inventory.ModeSerialized {
				continue
			}

			own, err := tx.Instances(ctx, product.ID)
			if err != nil {
				return inventory.StockState{}, err
			}

			instances = append(instances, own...)
		}

		return inventory.StockStateOf(products, instances), nil
	})
}

// ReservationIDs lists the reservations matching the query, oldest first. The scheduler uses it to
// find quotes to expire and lines that become due for delivery.
func (e *Engine) ReservationIDs(ctx context.Context, query inventory.ReservationQuery) ([]uuid.UUID, error) {
	return runView(ctx, e, opListReservations, func(ctx context.Context, tx inventory.ReadTx) ([]uuid.UUID, error) {
		return tx.ReservationIDs(ctx, query)
	})
}
