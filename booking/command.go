package booking

import (
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// AvailabilityQuery asks whether quantity units of a product are free from Start to End, both inclusive.
type AvailabilityQuery struct {
	ProductID uuid.UUID
	Quantity  int
	Start     time.Time
	End       time.Time
}

// AvailabilityResult answers one AvailabilityQuery.
// In a batch check Err carries the rejection of this entry only.
type AvailabilityResult struct {
	Query              AvailabilityQuery
	Available          bool
	FreeCapacity       int
	CandidateInstances []string
	CandidateIDs       []uuid.UUID
	Err                error
}

// LineRequest describes a line to be created. UnitPrice overrides the product's price if set.
type LineRequest struct {
	ProductID uuid.UUID
	Quantity  int
	Start     time.Time
	End       time.Time
	UnitPrice *inventory.Money
}

// CreateQuote is a booking request.
//
// AutoConfirm skips the staff/customer round-trip and commits stock immediately, with the same
// all-or-nothing re-check as AcceptQuote.
type CreateQuote struct {
	CustomerID  string
	Lines       []LineRequest
	Discount    inventory.Discount
	Comment     string
	AutoConfirm bool
}

// Quote is the result of CreateQuote. Shortfalls lists lines that were not available when the quote
// was created; the quote exists anyway and the check is repeated on accept.
type Quote struct {
	Reservation inventory.Reservation
	Shortfalls  []inventory.Shortfall
}

// LineEdit changes price or quantity of one line of a PENDING quote. Nil fields are left untouched.
type LineEdit struct {
	LineID    uuid.UUID
	Quantity  *int
	UnitPrice *inventory.Money
}

// ModifyQuote is a staff modification of a PENDING quote.
type ModifyQuote struct {
	ReservationID uuid.UUID
	LineEdits     []LineEdit
	Discount      *inventory.Discount
	Comment       string
}

// DateChange moves one line to a new period.
type DateChange struct {
	LineID uuid.UUID
	Start  time.Time
	End    time.Time
}

// ModifyLineDates changes the period of one line of a CONFIRMED reservation.
type ModifyLineDates struct {
	DateChange
	Reason string
}

// ShiftAllLines moves every line of a CONFIRMED reservation by the same number of days.
type ShiftAllLines struct {
	ReservationID uuid.UUID
	Days          int
	Reason        string
}

// ModifyManyLines changes the periods of several lines of one CONFIRMED reservation at once.
type ModifyManyLines struct {
	ReservationID uuid.UUID
	Changes       []DateChange
	Reason        string
}

// AddLine adds a line to a PENDING quote or to a CONFIRMED reservation that is not on delivery hold.
type AddLine struct {
	ReservationID uuid.UUID
	Line          LineRequest
	Comment       string
}

// RegisterProduct creates a product. Capacity is only used for pooled products.
type RegisterProduct struct {
	Name      string
	UnitPrice inventory.Money
	Mode      inventory.Mode
	Capacity  int
	Reason    string
}

// RegisterInstance adds a serialized unit to a product.
type RegisterInstance struct {
	ProductID uuid.UUID
	Serial    string
	Reason    string
}

// AdjustStock changes the total capacity of a pooled product by Delta.
type AdjustStock struct {
	ProductID uuid.UUID
	Delta     int
	Reason    string
}

// ReportDamage takes a serialized unit out of rotation.
type ReportDamage struct {
	InstanceID  uuid.UUID
	Disposition inventory.InstanceStatus
	Reason      string
}

func (q AvailabilityQuery) validate() (inventory.DateRange, error) {
	if q.ProductID == uuid.Nil {
		return inventory.DateRange{}, inventory.NewValidationError("productId", "must be set")
	}

	if q.Quantity < 1 {
		return inventory.DateRange{}, inventory.NewValidationError("quantity", "must be at least 1")
	}

	return inventory.NewDateRange(q.Start, q.End)
}

func (r LineRequest) validate() (inventory.DateRange, error) {
	return AvailabilityQuery{ProductID: r.ProductID, Quantity: r.Quantity, Start: r.Start, End: r.End}.validate()
}
