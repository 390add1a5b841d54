// Package inventory provides the core types of the rental reservation engine.
//
// It defines the inventory model (pooled and serialized products), reservations and their lines,
// the stock ledger (StockMovement), the amount calculator and the pure availability planning that
// decides whether requested quantities are free over a date range.
//
// Nothing in this package touches a database. Persistence is abstracted behind the Store and Tx
// interfaces, which are implemented by the postgresengine and memengine packages.
//
// Key types:
//   - Product, ProductInstance: what can be rented
//   - Reservation, ReservationLine: quotes and confirmed bookings
//   - StockMovement: one append-only ledger row
//   - Inventory: the pooled/serialized variants sharing the plan/commit/release contract
//   - MovementFilter: criteria for querying the ledger
//
// Common usage pattern:
//
//	period, err := inventory.NewDateRange(start, end)
//	if err != nil {
//		// handle validation error
//	}
//
//	stock := inventory.InventoryOf(product, instances)
//	result := stock.Availability(period, quantity, commitments)
//	if !result.Available {
//		// result.FreeCapacity tells how much is left
//	}
package inventory
