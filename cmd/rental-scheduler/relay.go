package main

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

const (
	logMsgRelayFailed  = "outbox relay failed"
	logMsgRelayedBatch = "relayed outbox events"
	logAttrError       = "error"
	logAttrEventCount  = "event_count"
)

// outboxSource is the part of postgresengine.OutboxNotifier the relay reads from.
type outboxSource interface {
	PendingEvents(ctx context.Context, limit int) ([]inventory.Event, error)
	MarkPublished(ctx context.Context, ids ...uuid.UUID) error
}

// outboxRelay hands persisted reservation events to a downstream notifier and marks them published.
// Delivery is at least once: an event whose MarkPublished fails is relayed again.
type outboxRelay struct {
	source    outboxSource
	sink      inventory.Notifier
	logger    inventory.ContextualLogger
	batchSize int
}

// relayOnce publishes pending events in insertion order and stops at the first sink failure.
func (r *outboxRelay) relayOnce(ctx context.Context) (int, error) {
	events, err := r.source.PendingEvents(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	published := make([]uuid.UUID, 0, len(events))
	var sinkErr error

	for _, event := range events {
		if sinkErr = r.sink.Notify(ctx, event); sinkErr != nil {
			break
		}

		published = append(published, event.ID)
	}

	if len(published) > 0 {
		if err := r.source.MarkPublished(ctx, published...); err != nil {
			return 0, err
		}
	}

	return len(published), sinkErr
}

func (r *outboxRelay) run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		count, err := r.relayOnce(ctx)

		switch {
		case err != nil && ctx.Err() == nil:
			r.logger.ErrorContext(ctx, logMsgRelayFailed, logAttrError, err.Error())
		case count > 0:
			r.logger.InfoContext(ctx, logMsgRelayedBatch, logAttrEventCount, count)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
