package booking

import (
	"context"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

const LogMsgReservationEvent = "reservation event"

// LogNotifier is a Notifier that only writes the events to a logger.
type LogNotifier struct {
	logger inventory.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger inventory.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, event inventory.Event) error {
	if n.logger == nil {
		return nil
	}

	n.logger.Info(
		LogMsgReservationEvent,
		LogAttrEventType, string(event.Type),
		LogAttrReservationID, event.ReservationID.String(),
		"reference", event.Reference,
		"status", string(event.Status),
		"net_amount", event.NetAmount,
		"actor_id", event.ActorID,
	)

	return nil
}

// publish hands the events to the notifier. Failures are logged and counted, never returned.
func (e *Engine) publish(ctx context.Context, events ...inventory.Event) {
	if e.notifier == nil {
		return
	}

	for _, event := range events {
		if err := e.notifier.Notify(ctx, event); err != nil {
			e.recordCollaboratorFailure(
				ctx, collaboratorNotifier, LogMsgNotifyFailed, err,
				LogAttrEventType, string(event.Type),
				LogAttrReservationID, event.ReservationID.String(),
			)
		}
	}
}

// invoice asks the invoicer for a pro-forma document. Failures are logged and counted, never returned.
func (e *Engine) invoice(ctx context.Context, r inventory.Reservation) {
	if e.invoicer == nil {
		return
	}

	if err := e.invoicer.IssueProForma(ctx, r); err != nil {
		e.recordCollaboratorFailure(ctx, collaboratorInvoicer, LogMsgInvoicingFailed, err, LogAttrReservationID, r.ID.String())
	}
}
