package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// ExpirationPass expires every PENDING quote whose expiration time lies before now.
// It returns how many quotes were expired and how many failed.
func (r *Runner) ExpirationPass(ctx context.Context, now time.Time) (int, int, error) {
	ids, err := r.engine.ReservationIDs(ctx, inventory.ReservationQuery{
		Status:        inventory.StatusPending,
		ExpiresBefore: now,
		Limit:         r.batchLimit,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("listing expired quotes: %w", err)
	}

	done, failed := r.forEach(ctx, passExpiration, ids, func(ctx context.Context, id uuid.UUID) error {
		_, err := r.engine.ExpireQuote(ctx, id)

		return err
	})

	return done, failed, nil
}

// DeliveryReadinessPass marks the lines of CONFIRMED reservations that start on the day of now as
// AWAITING_DISPATCH. It returns how many reservations were processed and how many failed.
func (r *Runner) DeliveryReadinessPass(ctx context.Context, now time.Time) (int, int, error) {
	today := inventory.StartOfDay(now)

	ids, err := r.engine.ReservationIDs(ctx, inventory.ReservationQuery{
		Status:             inventory.StatusConfirmed,
		LineStartsOn:       today,
		LineDeliveryStatus: inventory.DeliveryNotDue,
		Limit:              r.batchLimit,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("listing reservations due for delivery: %w", err)
	}

	done, failed := r.forEach(ctx, passDeliveryReadiness, ids, func(ctx context.Context, id uuid.UUID) error {
		_, err := r.engine.MarkDeliveryDue(ctx, id, today)

		return err
	})

	return done, failed, nil
}

func (r *Runner) forEach(ctx context.Context, pass string, ids []uuid.UUID, process func(ctx context.Context, id uuid.UUID) error) (int, int) {
	var done, failed int

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		if err := process(ctx, id); err != nil {
			failed++
			r.incrementCounter(ctx, PassItemsMetric, map[string]string{"pass": pass, "status": StatusFailed})
			r.logWarn(ctx, LogMsgItemFailed,
				LogAttrPass, pass,
				LogAttrReservationID, id.String(),
				LogAttrErrorType, inventory.ErrorType(err),
				LogAttrError, err.Error(),
			)

			continue
		}

		done++
		r.incrementCounter(ctx, PassItemsMetric, map[string]string{"pass": pass, "status": StatusProcessed})
	}

	return done, failed
}
