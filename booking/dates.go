package booking

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// ModifyLineDates moves one line of a CONFIRMED reservation to a new period.
//
// The new period is checked against all other commitments, the reservation's own current commitment
// for that line excluded, and the stock is re-committed for the new period.
// Reservation period and amounts are re-derived.
func (e *Engine) ModifyLineDates(ctx context.Context, cmd ModifyLineDates) (inventory.Reservation, error) {
	return runUpdate(ctx, e, opModifyLineDates, cmd.LineID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Reservation], error) {
		reservationID, err := tx.ReservationIDByLine(ctx, cmd.LineID)
		if err != nil {
			return outcome[inventory.Reservation]{}, err
		}

		return e.modifyDates(ctx, tx, reservationID, cmd.Reason, func(inventory.Reservation) []DateChange {
			return []DateChange{cmd.DateChange}
		})
	})
}

// ShiftAllLines moves every line of a CONFIRMED reservation by the same number of days.
// The duration of each line is unchanged, so the amounts stay the same.
func (e *Engine) ShiftAllLines(ctx context.Context, cmd ShiftAllLines) (inventory.Reservation, error) {
	return runUpdate(ctx, e, opShiftAllLines, cmd.ReservationID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Reservation], error) {
		if cmd.Days == 0 {
			return outcome[inventory.Reservation]{}, inventory.NewValidationError("days", "must not be zero")
		}

		reason := cmd.Reason
		if reason == "" {
			reason = fmt.Sprintf("shifted by %+d days", cmd.Days)
		}

		return e.modifyDates(ctx, tx, cmd.ReservationID, reason, func(current inventory.Reservation) []DateChange {
			changes := make([]DateChange, 0, len(current.Lines))
			for _, line := range current.Lines {
				shifted := line.Period.Shift(cmd.Days)
				changes = append(changes, DateChange{LineID: line.ID, Start: shifted.Start, End: shifted.End})
			}

			return changes
		})
	})
}

// ModifyManyLines changes the periods of several lines of one CONFIRMED reservation.
// Every change is validated before any is applied; one failing line aborts the whole batch.
func (e *Engine) ModifyManyLines(ctx context.Context, cmd ModifyManyLines) (inventory.Reservation, error) {
	return runUpdate(ctx, e, opModifyManyLines, cmd.ReservationID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Reservation], error) {
		return e.modifyDates(ctx, tx, cmd.ReservationID, cmd.Reason, func(inventory.Reservation) []DateChange {
			return cmd.Changes
		})
	})
}

func (e *Engine) modifyDates(
	ctx context.Context,
	tx inventory.Tx,
	reservationID uuid.UUID,
	reason string,
	changesOf func(current inventory.Reservation) []DateChange,
) (outcome[inventory.Reservation], error) {
	return e.transitionOutcome(ctx, tx, reservationID, inventory.EventDatesModified, nil,
		func(ctx context.Context, before inventory.Reservation, after *inventory.Reservation) (int, error) {
			if err := requireConfirmedEditable(before, "modify dates of"); err != nil {
				return 0, err
			}

			old, changed, notes, err := applyDateChanges(after, changesOf(before))
			if err != nil {
				return 0, err
			}

			after.Rederive()
			e.comment(ctx, after, auditText("dates modified", reason, notes))

			if len(changed) == 0 {
				return 0, nil
			}

			return e.restock(ctx, tx, after, old, changed, e.ref(ctx, after.ID, reason))
		})
}
