package booking

import (
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// AddLine adds a line to a PENDING quote or to a CONFIRMED reservation without delivery hold.
//
// On a quote the amounts are re-derived and the expiration clock restarts. On a confirmed reservation
// the new line must be available and its stock is committed in the same transaction.
func (e *Engine) AddLine(ctx context.Context, cmd AddLine) (inventory.Reservation, error) {
	lineID := e.newID()

	return runUpdate(ctx, e, opAddLine, cmd.ReservationID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Reservation], error) {
		period, err := cmd.Line.validate()
		if err != nil {
			return outcome[inventory.Reservation]{}, err
		}

		product, err := tx.Product(ctx, cmd.Line.ProductID)
		if err != nil {
			return outcome[inventory.Reservation]{}, err
		}

		line, err := buildLine(lineID, product, cmd.Line, period)
		if err != nil {
			return outcome[inventory.Reservation]{}, err
		}

		details := map[string]string{"added": lineID.String()}

		return e.transitionOutcome(ctx, tx, cmd.ReservationID, inventory.EventLinesChanged, details,
			func(ctx context.Context, before inventory.Reservation, after *inventory.Reservation) (int, error) {
				if err := requireEditable(before, "add a line to"); err != nil {
					return 0, err
				}

				after.Lines = append(after.Lines, line)
				after.Rederive()
				e.comment(ctx, after, auditText(
					"line added", cmd.Comment,
					[]string{fmt.Sprintf("%d x %s for %s", line.Quantity, product.Name, line.Period)},
				))

				if before.Status == inventory.StatusPending {
					after.ExpiresAt = e.now().Add(e.quoteGracePeriod)
					return 0, nil
				}

				return e.restock(ctx, tx, after, nil, []uuid.UUID{lineID}, e.ref(ctx, after.ID, "line added"))
			})
	})
}

// RemoveLine removes a line from a PENDING quote or from a CONFIRMED reservation without delivery hold.
// The last line cannot be removed; cancel the reservation instead. A confirmed line releases its stock.
func (e *Engine) RemoveLine(ctx context.Context, lineID uuid.UUID, reason string) (inventory.Reservation, error) {
	return runUpdate(ctx, e, opRemoveLine, lineID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Reservation], error) {
		reservationID, err := tx.ReservationIDByLine(ctx, lineID)
		if err != nil {
			return outcome[inventory.Reservation]{}, err
		}

		details := map[string]string{"removed": lineID.String()}

		return e.transitionOutcome(ctx, tx, reservationID, inventory.EventLinesChanged, details,
			func(ctx context.Context, before inventory.Reservation, after *inventory.Reservation) (int, error) {
				if err := requireEditable(before, "remove a line from"); err != nil {
					return 0, err
				}

				if len(before.Lines) == 1 {
					return 0, inventory.NewValidationError("lineId", "cannot remove the last line of a reservation")
				}

				removed, _ := before.Line(lineID)
				after.Lines = slices.DeleteFunc(after.Lines, func(l inventory.ReservationLine) bool { return l.ID == lineID })
				after.Rederive()
				e.comment(ctx, after, auditText("line removed", reason, []string{fmt.Sprintf("line %s for %s", lineID, removed.Period)}))

				if before.Status == inventory.StatusPending {
					after.ExpiresAt = e.now().Add(e.quoteGracePeriod)
					return 0, nil
				}

				if !before.StockCommitted {
					return 0, nil
				}

				return e.restock(ctx, tx, after, []inventory.ReservationLine{removed}, nil, e.ref(ctx, after.ID, "line removed"))
			})
	})
}
