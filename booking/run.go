package booking

import (
	"context"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// outcome is what an operation produced inside its transaction.
type outcome[T any] struct {
	result    T
	events    []inventory.Event
	movements int
}

// runUpdate executes fn in one store transaction with logging, metrics and tracing around it.
// Events are published only after the transaction was committed.
func runUpdate[T any](
	ctx context.Context,
	e *Engine,
	operation string,
	subjectID uuid.UUID,
	fn func(ctx context.Context, tx inventory.Tx) (outcome[T], error),
) (T, error) {
	ctx, observer := e.observe(ctx, operation)

	var out outcome[T]
	err := e.store.Update(ctx, func(ctx context.Context, tx inventory.Tx) error {
		var fnErr error
		out, fnErr = fn(ctx, tx)

		return fnErr
	})

	logArgs := []any{LogAttrSubjectID, subjectID.String()}
	if err != nil {
		observer.finish(err, logArgs...)

		var zero T
		return zero, err
	}

	observer.finish(nil, append(logArgs, LogAttrMovementRows, out.movements)...)
	e.publish(ctx, out.events...)

	return out.result, nil
}

// runView executes fn read-only with logging, metrics and tracing around it.
func runView[T any](
	ctx context.Context,
	e *Engine,
	operation string,
	fn func(ctx context.Context, tx inventory.ReadTx) (T, error),
) (T, error) {
	ctx, observer := e.observe(ctx, operation)

	var result T
	err := e.store.View(ctx, func(ctx context.Context, tx inventory.ReadTx) error {
		var fnErr error
		result, fnErr = fn(ctx, tx)

		return fnErr
	})

	observer.finish(err)

	return result, err
}

// change is applied to a copy of the persisted reservation. before is the persisted state.
type change func(ctx context.Context, before inventory.Reservation, after *inventory.Reservation) (int, error)

// transition loads a reservation, lets apply change a copy and writes the copy back with an
// optimistic version check.
func (e *Engine) transition(ctx context.Context, tx inventory.Tx, id uuid.UUID, apply change) (inventory.Reservation, int, error) {
	current, err := tx.Reservation(ctx, id)
	if err != nil {
		return inventory.Reservation{}, 0, err
	}

	after := current.Clone()

	movements, err := apply(ctx, current, &after)
	if err != nil {
		return inventory.Reservation{}, 0, err
	}

	after.Version = current.Version + 1
	after.UpdatedAt = e.now()

	if err := tx.UpdateReservation(ctx, after, current.Version); err != nil {
		return inventory.Reservation{}, 0, err
	}

	return after, movements, nil
}

// transitionOutcome runs transition and wraps the result together with one event.
func (e *Engine) transitionOutcome(
	ctx context.Context,
	tx inventory.Tx,
	id uuid.UUID,
	eventType inventory.EventType,
	details map[string]string,
	apply change,
) (outcome[inventory.Reservation], error) {
	updated, movements, err := e.transition(ctx, tx, id, apply)
	if err != nil {
		return outcome[inventory.Reservation]{}, err
	}

	return outcome[inventory.Reservation]{
		result:    updated,
		events:    []inventory.Event{e.event(ctx, eventType, updated, details)},
		movements: movements,
	}, nil
}

func (e *Engine) ref(ctx context.Context, reservationID uuid.UUID, reason string) inventory.MovementRef {
	return inventory.MovementRef{
		ReservationID: reservationID,
		Actor:         inventory.ActorFrom(ctx),
		Reason:        reason,
		OccurredAt:    e.now(),
	}
}

func (e *Engine) comment(ctx context.Context, r *inventory.Reservation, text string) {
	r.AddComment(e.newID(), inventory.ActorFrom(ctx), text, e.now())
}

func (e *Engine) event(ctx context.Context, eventType inventory.EventType, r inventory.Reservation, details map[string]string) inventory.Event {
	return inventory.NewEvent(eventType, r, inventory.ActorFrom(ctx), e.now(), details)
}
