package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// EventType names a reservation state transition reported to the Notifier.
type EventType string

const (
	EventQuoteCreated         EventType = "QuoteCreated"
	EventQuoteModified        EventType = "QuoteModified"
	EventQuoteAccepted        EventType = "QuoteAccepted"
	EventQuoteRefused         EventType = "QuoteRefused"
	EventQuoteExpired         EventType = "QuoteExpired"
	EventReservationCancelled EventType = "ReservationCancelled"
	EventLinesChanged         EventType = "LinesChanged"
	EventDatesModified        EventType = "DatesModified"
	EventDeliveryDue          EventType = "DeliveryDue"
	EventDeliveryStarted      EventType = "DeliveryStarted"
	EventLineDelivered        EventType = "LineDelivered"
	EventReservationCompleted EventType = "ReservationCompleted"
	EventPaymentRecorded      EventType = "PaymentRecorded"
)

// Event is the structured notification emitted after a state transition was committed.
type Event struct {
	ID            uuid.UUID         `json:"id"`
	Type          EventType         `json:"type"`
	ReservationID uuid.UUID         `json:"reservationId"`
	Reference     string            `json:"reference"`
	CustomerID    string            `json:"customerId"`
	Status        ReservationStatus `json:"status"`
	NetAmount     string            `json:"netAmount"`
	ActorID       string            `json:"actorId"`
	OccurredAt    time.Time         `json:"occurredAt"`
	Details       map[string]string `json:"details,omitempty"`
}

// NewEvent builds an Event describing the given reservation.
func NewEvent(eventType EventType, r Reservation, actor Actor, at time.Time, details map[string]string) Event {
	return Event{
		ID:            uuid.Must(uuid.NewV7()),
		Type:          eventType,
		ReservationID: r.ID,
		Reference:     r.Reference,
		CustomerID:    r.CustomerID,
		Status:        r.Status,
		NetAmount:     r.Amounts.Net.StringFixed(moneyPlaces),
		ActorID:       actor.ID,
		OccurredAt:    at,
		Details:       details,
	}
}

// Notifier is the notification collaborator. It is called after the transaction was committed;
// failures are logged and never roll back the operation.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, event Event) error

func (f NotifierFunc) Notify(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Invoicer is the invoicing collaborator. It is invoked after a successful accept to generate or
// update a pro-forma document; failures are logged and never roll back the booking.
type Invoicer interface {
	IssueProForma(ctx context.Context, reservation Reservation) error
}
