package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// CreateQuote creates a PENDING quote which holds no stock.
//
// Every product must exist and every line must be valid, otherwise nothing is written. The quote's
// lines are checked for availability at creation time: lines that are not available are reported as
// Shortfalls of the returned Quote, or reject the whole request if the engine runs with strict quote
// availability. With AutoConfirm the quote is accepted in the same transaction and the request fails
// with a StockUnavailableError unless every line can be committed.
func (e *Engine) CreateQuote(ctx context.Context, cmd CreateQuote) (Quote, error) {
	id := e.newID()

	quote, err := runUpdate(ctx, e, opCreateQuote, id, func(ctx context.Context, tx inventory.Tx) (outcome[Quote], error) {
		return e.createQuote(ctx, tx, id, cmd)
	})
	if err != nil {
		return Quote{}, err
	}

	if quote.Reservation.Status == inventory.StatusConfirmed {
		e.invoice(ctx, quote.Reservation)
	}

	return quote, nil
}

func (e *Engine) createQuote(ctx context.Context, tx inventory.Tx, id uuid.UUID, cmd CreateQuote) (outcome[Quote], error) {
	if strings.TrimSpace(cmd.CustomerID) == "" {
		return outcome[Quote]{}, inventory.NewValidationError("customerId", "must be set")
	}

	if len(cmd.Lines) == 0 {
		return outcome[Quote]{}, inventory.NewValidationError("lines", "must not be empty")
	}

	if err := cmd.Discount.Validate(); err != nil {
		return outcome[Quote]{}, err
	}

	now := e.now()
	r := inventory.Reservation{
		ID:         id,
		Reference:  newReference(id, now),
		CustomerID: cmd.CustomerID,
		Status:     inventory.StatusPending,
		Amounts:    inventory.Amounts{DiscountPercent: cmd.Discount.Percent, DiscountFixed: cmd.Discount.Fixed},
		ExpiresAt:  now.Add(e.quoteGracePeriod),
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	products := make(map[uuid.UUID]inventory.Product)

	for i, request := range cmd.Lines {
		period, err := request.validate()
		if err != nil {
			return outcome[Quote]{}, fmt.Errorf("line %d: %w", i+1, err)
		}

		product, ok := products[request.ProductID]
		if !ok {
			if product, err = tx.Product(ctx, request.ProductID); err != nil {
				return outcome[Quote]{}, err
			}
			products[request.ProductID] = product
		}

		line, err := buildLine(e.newID(), product, request, period)
		if err != nil {
			return outcome[Quote]{}, fmt.Errorf("line %d: %w", i+1, err)
		}

		r.Lines = append(r.Lines, line)
	}

	r.Rederive()

	if comment := strings.TrimSpace(cmd.Comment); comment != "" {
		e.comment(ctx, &r, comment)
	}

	quote := Quote{}
	out := outcome[Quote]{}

	if cmd.AutoConfirm {
		r.Status = inventory.StatusConfirmed
		r.StockCommitted = true
		r.ExpiresAt = time.Time{}

		movements, err := e.restock(ctx, tx, &r, nil, lineIDs(r.Lines), e.ref(ctx, r.ID, "auto-confirmed quote"))
		if err != nil {
			return outcome[Quote]{}, err
		}

		e.comment(ctx, &r, "quote auto-confirmed")
		out.movements = movements
		out.events = []inventory.Event{
			e.event(ctx, inventory.EventQuoteCreated, r, map[string]string{"autoConfirmed": "true"}),
			e.event(ctx, inventory.EventQuoteAccepted, r, nil),
		}
	} else {
		shortfalls, err := e.previewShortfalls(ctx, tx, r, products)
		if err != nil {
			return outcome[Quote]{}, err
		}

		if len(shortfalls) > 0 {
			if e.strictQuoteAvailability {
				return outcome[Quote]{}, &inventory.StockUnavailableError{Shortfalls: shortfalls}
			}

			notes := make([]string, 0, len(shortfalls))
			for _, s := range shortfalls {
				notes = append(notes, s.String())
			}
			e.comment(ctx, &r, auditText("not available at quote time", "", notes))
		}

		quote.Shortfalls = shortfalls
		out.events = []inventory.Event{e.event(ctx, inventory.EventQuoteCreated, r, nil)}
	}

	if err := tx.InsertReservation(ctx, r); err != nil {
		return outcome[Quote]{}, err
	}

	quote.Reservation = r
	out.result = quote

	return out, nil
}

// previewShortfalls plans all lines of a quote against the current commitments without locking.
func (e *Engine) previewShortfalls(
	ctx context.Context,
	tx inventory.ReadTx,
	r inventory.Reservation,
	products map[uuid.UUID]inventory.Product,
) ([]inventory.Shortfall, error) {
	productIDs := r.ProductIDs()

	taken, err := tx.Commitments(ctx, inventory.CommitmentQuery{ProductIDs: productIDs})
	if err != nil {
		return nil, err
	}

	stocks, err := loadInventories(ctx, tx, productIDs)
	if err != nil {
		return nil, err
	}

	_, shortfalls := planDemands(stocks, r.Lines, taken)

	return shortfalls, nil
}

// ModifyQuote applies staff changes to a PENDING quote: line quantities and prices, the discount and
// an optional comment. Amounts are re-derived and the expiration clock restarts. Stock is not touched.
func (e *Engine) ModifyQuote(ctx context.Context, cmd ModifyQuote) (inventory.Reservation, error) {
	return runUpdate(ctx, e, opModifyQuote, cmd.ReservationID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Reservation], error) {
		return e.transitionOutcome(ctx, tx, cmd.ReservationID, inventory.EventQuoteModified, nil,
			func(_ context.Context, before inventory.Reservation, after *inventory.Reservation) (int, error) {
				if err := requirePending(before, "modify"); err != nil {
					return 0, err
				}

				notes, err := applyLineEdits(after, cmd.LineEdits)
				if err != nil {
					return 0, err
				}

				if cmd.Discount != nil {
					if err := cmd.Discount.Validate(); err != nil {
						return 0, err
					}

					after.Amounts.DiscountPercent = cmd.Discount.Percent
					after.Amounts.DiscountFixed = cmd.Discount.Fixed
					notes = append(notes, fmt.Sprintf("discount %s%% + %s", cmd.Discount.Percent.String(), cmd.Discount.Fixed.StringFixed(2)))
				}

				after.Rederive()
				after.ExpiresAt = e.now().Add(e.quoteGracePeriod)
				e.comment(ctx, after, auditText("quote modified", cmd.Comment, notes))

				return 0, nil
			})
	})
}

// AcceptQuote confirms a PENDING quote and commits its stock.
//
// Availability of every line is re-checked against the persisted commitments inside the transaction.
// If any line is short the accept fails with a StockUnavailableError, the quote stays PENDING and no
// ledger row is written. An expired quote can no longer be accepted.
func (e *Engine) AcceptQuote(ctx context.Context, reservationID uuid.UUID) (inventory.Reservation, error) {
	accepted, err := runUpdate(ctx, e, opAcceptQuote, reservationID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Reservation], error) {
		return e.transitionOutcome(ctx, tx, reservationID, inventory.EventQuoteAccepted, nil,
			func(ctx context.Context, before inventory.Reservation, after *inventory.Reservation) (int, error) {
				if err := decideAccept(before, e.now()); err != nil {
					return 0, err
				}

				after.Status = inventory.StatusConfirmed
				after.StockCommitted = true
				after.ExpiresAt = time.Time{}

				movements, err := e.restock(ctx, tx, after, nil, lineIDs(after.Lines), e.ref(ctx, after.ID, "quote accepted"))
				if err != nil {
					return 0, err
				}

				e.comment(ctx, after, "quote accepted")

				return movements, nil
			})
	})
	if err != nil {
		return inventory.Reservation{}, err
	}

	e.invoice(ctx, accepted)

	return accepted, nil
}

// RefuseQuote cancels a PENDING quote on the customer's request. Nothing was committed, so nothing is released.
func (e *Engine) RefuseQuote(ctx context.Context, reservationID uuid.UUID, reason string) (inventory.Reservation, error) {
	return runUpdate(ctx, e, opRefuseQuote, reservationID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Reservation], error) {
		return e.transitionOutcome(ctx, tx, reservationID, inventory.EventQuoteRefused, nil,
			func(ctx context.Context, before inventory.Reservation, after *inventory.Reservation) (int, error) {
				if err := requirePending(before, "refuse"); err != nil {
					return 0, err
				}

				after.Status = inventory.StatusCancelled
				e.comment(ctx, after, auditText("quote refused", reason, nil))

				return 0, nil
			})
	})
}

// Cancel cancels a PENDING or CONFIRMED reservation.
//
// Cancelling a PENDING quote is equivalent to RefuseQuote. A CONFIRMED reservation releases all of its
// committed stock. Cancelling is rejected once delivery started or any line reached the customer.
func (e *Engine) Cancel(ctx context.Context, reservationID uuid.UUID, reason string) (inventory.Reservation, error) {
	return runUpdate(ctx, e, opCancel, reservationID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Reservation], error) {
		return e.transitionOutcome(ctx, tx, reservationID, inventory.EventReservationCancelled, nil,
			func(ctx context.Context, before inventory.Reservation, after *inventory.Reservation) (int, error) {
				if err := decideCancel(before); err != nil {
					return 0, err
				}

				after.Status = inventory.StatusCancelled
				after.StockCommitted = false
				e.comment(ctx, after, auditText("reservation cancelled", reason, nil))

				if !before.StockCommitted {
					return 0, nil
				}

				return e.restock(ctx, tx, after, before.Lines, nil, e.ref(ctx, after.ID, "reservation cancelled"))
			})
	})
}

// ExpireQuote cancels a PENDING quote whose expiration has passed. It is a pure status change with
// an audit comment; no stock is released and no ledger row is written.
func (e *Engine) ExpireQuote(ctx context.Context, reservationID uuid.UUID) (inventory.Reservation, error) {
	return runUpdate(ctx, e, opExpireQuote, reservationID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Reservation], error) {
		return e.transitionOutcome(ctx, tx, reservationID, inventory.EventQuoteExpired, nil,
			func(ctx context.Context, before inventory.Reservation, after *inventory.Reservation) (int, error) {
				if err := decideExpire(before, e.now()); err != nil {
					return 0, err
				}

				after.Status = inventory.StatusCancelled
				e.comment(ctx, after, fmt.Sprintf("quote expired at %s", before.ExpiresAt.Format("2006-01-02 15:04 MST")))

				return 0, nil
			})
	})
}
