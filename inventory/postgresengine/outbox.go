package postgresengine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory/postgresengine/internal/adapters"
)

// OutboxNotifier is an inventory.Notifier that stores every event in the outbox table.
// A relay process reads PendingEvents, publishes them and calls MarkPublished.
// Writing the same event twice is a no-op.
type OutboxNotifier struct {
	store *Store
	now   func() time.Time
}

// NewOutboxNotifier creates an OutboxNotifier that writes through store.
func NewOutboxNotifier(store *Store) *OutboxNotifier {
	return &OutboxNotifier{store: store, now: time.Now}
}

// Notify writes the event to the outbox in its own transaction.
func (n *OutboxNotifier) Notify(ctx context.Context, event inventory.Event) error {
	payload, err := json.MarshalToString(event)
	if err != nil {
		return err
	}

	return n.store.run(ctx, operationOutbox, adapters.ReadWrite, func(ctx context.Context, t *tx) error {
		sqlQuery, err := t.qb.insertOutboxEvent(event, payload)
		_, err = t.exec(ctx, actionWriteOutbox, sqlQuery, err)

		return err
	})
}

// PendingEvents returns up to limit unpublished events in the order they were written.
// A limit of zero or less means no limit.
func (n *OutboxNotifier) PendingEvents(ctx context.Context, limit int) ([]inventory.Event, error) {
	var events []inventory.Event

	err := n.store.run(ctx, operationOutbox, adapters.ReadOnlyPrimary, func(ctx context.Context, t *tx) error {
		sqlQuery, err := t.qb.selectUnpublishedEvents(limit)

		rows, err := t.query(ctx, actionReadOutbox, sqlQuery, err)
		if err != nil {
			return err
		}

		events, err = collect(rows, scanOutboxEvent)

		return err
	})

	return events, err
}

// MarkPublished flags the given events as published.
func (n *OutboxNotifier) MarkPublished(ctx context.Context, ids ...uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	return n.store.run(ctx, operationOutbox, adapters.ReadWrite, func(ctx context.Context, t *tx) error {
		sqlQuery, err := t.qb.markPublished(ids, n.now().UTC())
		_, err = t.exec(ctx, actionWriteOutbox, sqlQuery, err)

		return err
	})
}

func scanOutboxEvent(rows adapters.DBRows) (inventory.Event, error) {
	var payload string
	if err := rows.Scan(&payload); err != nil {
		return inventory.Event{}, scanFailed(err)
	}

	var event inventory.Event
	if err := json.UnmarshalFromString(payload, &event); err != nil {
		return inventory.Event{}, scanFailed(err)
	}

	return event, nil
}
