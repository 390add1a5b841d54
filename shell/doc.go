// Package shell holds caller-side policies around the booking engine.
//
// The engine never retries on its own. A caller that wants to absorb lost optimistic version checks
// wraps the engine call in RetryWithExponentialBackoff, or in Retry when it needs the result:
//
//	reservation, err := shell.Retry(ctx, func(ctx context.Context) (inventory.Reservation, error) {
//		return engine.AcceptQuote(ctx, reservationID)
//	}, shell.WithMetrics(collector, "accept_quote"))
//
// Only inventory.ErrConcurrencyConflict is retried.
package shell
