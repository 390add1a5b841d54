// Package scheduler runs the periodic passes of the rental engine.
//
// The passes call the same public engine operations as interactive callers:
//   - the expiration pass cancels PENDING quotes whose expiration time has passed (ExpireQuote)
//   - the delivery readiness pass flips lines that start today to AWAITING_DISPATCH (MarkDeliveryDue)
//
// Each item is processed in its own transaction. A failing item is logged and counted,
// it never aborts the pass and it is picked up again by the next run.
package scheduler
