package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// MarkDeliveryDue flips every NOT_DUE line of a CONFIRMED reservation that starts on day to
// AWAITING_DISPATCH. A reservation without such a line is returned unchanged and nothing is written.
func (e *Engine) MarkDeliveryDue(ctx context.Context, reservationID uuid.UUID, day time.Time) (inventory.Reservation, error) {
	day = inventory.StartOfDay(day)

	return runUpdate(ctx, e, opMarkDeliveryDue, reservationID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Reservation], error) {
		current, err := tx.Reservation(ctx, reservationID)
		if err != nil {
			return outcome[inventory.Reservation]{}, err
		}

		if current.Status != inventory.StatusConfirmed {
			return outcome[inventory.Reservation]{}, inventory.NewIllegalTransitionError(current, "mark delivery due for")
		}

		if len(dueLines(current, day)) == 0 {
			return outcome[inventory.Reservation]{result: current}, nil
		}

		return e.transitionOutcome(ctx, tx, reservationID, inventory.EventDeliveryDue, map[string]string{"day": day.Format(time.DateOnly)},
			func(_ context.Context, before inventory.Reservation, after *inventory.Reservation) (int, error) {
				for _, idx := range dueLines(before, day) {
					after.Lines[idx].DeliveryStatus = inventory.DeliveryAwaitingDispatch
				}

				return 0, nil
			})
	})
}

func dueLines(r inventory.Reservation, day time.Time) []int {
	var due []int
	for i, line := range r.Lines {
		if line.DeliveryStatus == inventory.DeliveryNotDue && line.Period.Start.Equal(day) {
			due = append(due, i)
		}
	}

	return due
}

// StartDelivery puts a CONFIRMED reservation on delivery hold. All lines are dispatched and the
// assigned serialized instances become IN_USE. From now on the reservation can neither be edited nor
// cancelled.
func (e *Engine) StartDelivery(ctx context.Context, reservationID uuid.UUID) (inventory.Reservation, error) {
	return runUpdate(ctx, e, opStartDelivery, reservationID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Reservation], error) {
		return e.transitionOutcome(ctx, tx, reservationID, inventory.EventDeliveryStarted, nil,
			func(ctx context.Context, before inventory.Reservation, after *inventory.Reservation) (int, error) {
				if err := decideStartDelivery(before); err != nil {
					return 0, err
				}

				after.InProgress = true
				for i := range after.Lines {
					after.Lines[i].DeliveryStatus = inventory.DeliveryDispatched
				}

				if err := e.setInUse(ctx, tx, *after); err != nil {
					return 0, err
				}

				e.comment(ctx, after, "delivery started")

				return 0, nil
			})
	})
}

func (e *Engine) setInUse(ctx context.Context, tx inventory.Tx, r inventory.Reservation) error {
	productIDs := r.ProductIDs()
	if err := tx.LockProducts(ctx, productIDs...); err != nil {
		return err
	}

	stocks, err := loadInventories(ctx, tx, productIDs)
	if err != nil {
		return err
	}

	for _, line := range r.Lines {
		serialized, ok := stocks[line.ProductID].(*inventory.SerializedInventory)
		if !ok {
			continue
		}

		if err := serialized.SetInUse(line.InstanceIDs); err != nil {
			return err
		}
	}

	for _, id := range productIDs {
		if err := inventory.ApplyChanges(ctx, tx, stocks[id].Changes()); err != nil {
			return err
		}
	}

	return nil
}

// MarkLineDelivered records that the goods of a dispatched line reached the customer.
func (e *Engine) MarkLineDelivered(ctx context.Context, lineID uuid.UUID) (inventory.Reservation, error) {
	return runUpdate(ctx, e, opMarkLineDelivered, lineID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Reservation], error) {
		reservationID, err := tx.ReservationIDByLine(ctx, lineID)
		if err != nil {
			return outcome[inventory.Reservation]{}, err
		}

		return e.transitionOutcome(ctx, tx, reservationID, inventory.EventLineDelivered, map[string]string{"lineId": lineID.String()},
			func(_ context.Context, before inventory.Reservation, after *inventory.Reservation) (int, error) {
				idx := before.LineIndex(lineID)
				if before.Status != inventory.StatusConfirmed || before.Lines[idx].DeliveryStatus != inventory.DeliveryDispatched {
					return 0, inventory.NewIllegalTransitionError(before, "mark a line delivered for")
				}

				after.Lines[idx].DeliveryStatus = inventory.DeliveryDelivered

				return 0, nil
			})
	})
}

// Complete closes a reservation whose delivery started: the goods are back, every line is RETURNED
// and the committed stock is released.
func (e *Engine) Complete(ctx context.Context, reservationID uuid.UUID) (inventory.Reservation, error) {
	return runUpdate(ctx, e, opComplete, reservationID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Reservation], error) {
		return e.transitionOutcome(ctx, tx, reservationID, inventory.EventReservationCompleted, nil,
			func(ctx context.Context, before inventory.Reservation, after *inventory.Reservation) (int, error) {
				if err := decideComplete(before); err != nil {
					return 0, err
				}

				after.Status = inventory.StatusCompleted
				after.InProgress = false
				after.StockCommitted = false
				for i := range after.Lines {
					after.Lines[i].DeliveryStatus = inventory.DeliveryReturned
				}

				e.comment(ctx, after, "reservation completed")

				return e.restock(ctx, tx, after, before.Lines, nil, e.ref(ctx, after.ID, "reservation completed"))
			})
	})
}

// RecordPayment adds amount to what the customer paid. The paid amount never exceeds the net amount.
func (e *Engine) RecordPayment(ctx context.Context, reservationID uuid.UUID, amount inventory.Money) (inventory.Reservation, error) {
	details := map[string]string{"amount": amount.StringFixed(2)}

	return runUpdate(ctx, e, opRecordPayment, reservationID, func(ctx context.Context, tx inventory.Tx) (outcome[inventory.Reservation], error) {
		return e.transitionOutcome(ctx, tx, reservationID, inventory.EventPaymentRecorded, details,
			func(ctx context.Context, before inventory.Reservation, after *inventory.Reservation) (int, error) {
				if err := decidePayment(before, amount); err != nil {
					return 0, err
				}

				after.Amounts.Paid = before.Amounts.Paid.Add(amount).Round(2)
				e.comment(ctx, after, "payment of "+amount.StringFixed(2)+" recorded")

				return 0, nil
			})
	})
}
