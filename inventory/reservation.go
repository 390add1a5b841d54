package inventory

import (
	"bytes"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ReservationStatus is the state of a quote or booking.
type ReservationStatus string

const (
	StatusPending   ReservationStatus = "PENDING"
	StatusConfirmed ReservationStatus = "CONFIRMED"
	StatusCancelled ReservationStatus = "CANCELLED"
	StatusCompleted ReservationStatus = "COMPLETED"
)

// IsFinal reports whether no further transition is possible.
func (s ReservationStatus) IsFinal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// DeliveryStatus is the per-line fulfillment signal consumed by the delivery subsystem.
type DeliveryStatus string

const (
	DeliveryNotDue           DeliveryStatus = "NOT_DUE"
	DeliveryAwaitingDispatch DeliveryStatus = "AWAITING_DISPATCH"
	DeliveryDispatched       DeliveryStatus = "DISPATCHED"
	DeliveryDelivered        DeliveryStatus = "DELIVERED"
	DeliveryReturned         DeliveryStatus = "RETURNED"
)

// HasReachedCustomer reports whether the goods of the line were handed over.
// A reservation with such a line can no longer be cancelled.
func (s DeliveryStatus) HasReachedCustomer() bool {
	return s == DeliveryDelivered || s == DeliveryReturned
}

// IsOutOnRental reports whether the goods of the line left the warehouse and are not back yet.
func (s DeliveryStatus) IsOutOnRental() bool {
	return s == DeliveryDispatched || s == DeliveryDelivered
}

// ReservationLine is one product, quantity and period of a reservation.
//
// UnitPrice is a snapshot taken when the line was created. InstanceIDs is only used for serialized
// products; once the reservation is committed its size equals Quantity.
type ReservationLine struct {
	ID             uuid.UUID
	ProductID      uuid.UUID
	Quantity       int
	UnitPrice      Money
	Period         DateRange
	DeliveryStatus DeliveryStatus
	InstanceIDs    []uuid.UUID
}

// Subtotal is quantity × unit price × day count of the line.
func (l ReservationLine) Subtotal() Money {
	return LineSubtotal(l.Quantity, l.UnitPrice, l.Period)
}

// Validate checks the line's own fields.
func (l ReservationLine) Validate() error {
	if l.ProductID == uuid.Nil {
		return NewValidationError("line.productId", "must be set")
	}

	if l.Quantity < 1 {
		return NewValidationError("line.quantity", "must be at least 1")
	}

	if l.UnitPrice.IsNegative() {
		return NewValidationError("line.unitPrice", "must not be negative")
	}

	if l.Period.IsZero() {
		return NewValidationError("line.period", "must be set")
	}

	if l.Period.Start.After(l.Period.End) {
		return NewValidationError("line.period", "start is after end")
	}

	return nil
}

// Comment is one entry of a reservation's audit trail.
type Comment struct {
	ID        uuid.UUID
	ActorID   string
	ActorRole string
	Text      string
	CreatedAt time.Time
}

// Reservation is a quote (PENDING) or a booking.
//
// Period and Amounts are derived from the lines, see Rederive. Version is incremented by the store
// on every successful update and is used for optimistic concurrency control.
type Reservation struct {
	ID             uuid.UUID
	Reference      string
	CustomerID     string
	Status         ReservationStatus
	InProgress     bool
	Period         DateRange
	Lines          []ReservationLine
	Amounts        Amounts
	ExpiresAt      time.Time
	StockCommitted bool
	Version        int
	Comments       []Comment
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone returns a deep copy, so that changes can be prepared without touching the original.
func (r Reservation) Clone() Reservation {
	c := r
	c.Lines = make([]ReservationLine, len(r.Lines))
	for i, line := range r.Lines {
		line.InstanceIDs = slices.Clone(line.InstanceIDs)
		c.Lines[i] = line
	}
	c.Comments = slices.Clone(r.Comments)

	return c
}

// LineIndex returns the index of the line with the given id, or -1.
func (r Reservation) LineIndex(lineID uuid.UUID) int {
	return slices.IndexFunc(r.Lines, func(l ReservationLine) bool { return l.ID == lineID })
}

// Line returns a copy of the line with the given id.
func (r Reservation) Line(lineID uuid.UUID) (ReservationLine, bool) {
	idx := r.LineIndex(lineID)
	if idx < 0 {
		return ReservationLine{}, false
	}

	return r.Lines[idx], true
}

// ProductIDs returns the distinct products of all lines in ascending order.
func (r Reservation) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(r.Lines))
	for _, line := range r.Lines {
		ids = append(ids, line.ProductID)
	}

	return SortedUniqueIDs(ids)
}

// Rederive recomputes the reservation period from its lines and the amounts from lines and discount.
func (r *Reservation) Rederive() {
	periods := make([]DateRange, 0, len(r.Lines))
	for _, line := range r.Lines {
		periods = append(periods, line.Period)
	}

	r.Period = Span(periods...)
	r.Amounts = CalculateAmounts(r.Lines, r.Amounts.Discount(), r.Amounts.Paid)
}

// IsEditable reports whether lines may be changed: the reservation is neither final nor on delivery hold.
func (r Reservation) IsEditable() bool {
	return !r.Status.IsFinal() && !r.InProgress
}

// HasHandedOverLines reports whether any line's goods reached the customer.
func (r Reservation) HasHandedOverLines() bool {
	return slices.ContainsFunc(r.Lines, func(l ReservationLine) bool { return l.DeliveryStatus.HasReachedCustomer() })
}

// AddComment appends an audit comment.
func (r *Reservation) AddComment(id uuid.UUID, actor Actor, text string, at time.Time) {
	r.Comments = append(r.Comments, Comment{
		ID:        id,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Text:      text,
		CreatedAt: at,
	})
}

// Commitments lists what this reservation holds when it is committed: one entry per pooled line,
// one entry per assigned instance for serialized lines.
func (r Reservation) Commitments() []Commitment {
	var commitments []Commitment
	for _, line := range r.Lines {
		commitments = append(commitments, LineCommitments(r.ID, line)...)
	}

	return commitments
}

// SortedUniqueIDs sorts the ids ascending and removes duplicates.
func SortedUniqueIDs(ids []uuid.UUID) []uuid.UUID {
	sorted := slices.Clone(ids)
	slices.SortFunc(sorted, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })

	return slices.Compact(sorted)
}
