// Package booking implements the reservation engine on top of an inventory.Store.
//
// The Engine covers the availability checker, the quote/booking state machine with soft-booking
// semantics, the date-range modification service, the delivery lifecycle and stock administration.
//
// Every writing operation runs in exactly one Store.Update transaction:
//
//	load reservation → decide → lock products → re-check availability → commit/release stock →
//	append ledger rows → update reservation (optimistic version check)
//
// Availability is always recomputed from persisted CONFIRMED reservation lines inside that
// transaction, so two concurrent accepts competing for the same capacity cannot both succeed.
// PENDING quotes never hold stock.
//
// Notification and invoicing collaborators are called after the transaction was committed.
// Their failures are logged and never roll back the operation.
//
// Common usage pattern:
//
//	engine, err := booking.NewEngine(store, booking.WithLogger(logger))
//	quote, err := engine.CreateQuote(ctx, booking.CreateQuote{CustomerID: "c-42", Lines: lines})
//	confirmed, err := engine.AcceptQuote(ctx, quote.Reservation.ID)
//	if errors.Is(err, inventory.ErrStockUnavailable) {
//		// re-quote
//	}
package booking
