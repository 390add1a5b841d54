package booking

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

// The functions in this file are pure: they decide on a reservation without touching the store.

func requirePending(r inventory.Reservation, operation string) error {
	if r.Status != inventory.StatusPending {
		return inventory.NewIllegalTransitionError(r, operation)
	}

	return nil
}

// requireEditable allows line changes on a PENDING quote or on a CONFIRMED reservation without delivery hold.
func requireEditable(r inventory.Reservation, operation string) error {
	if !r.IsEditable() {
		return inventory.NewIllegalTransitionError(r, operation)
	}

	return nil
}

func requireConfirmedEditable(r inventory.Reservation, operation string) error {
	if r.Status != inventory.StatusConfirmed || r.InProgress {
		return inventory.NewIllegalTransitionError(r, operation)
	}

	return nil
}

func isExpired(r inventory.Reservation, now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}

func decideAccept(r inventory.Reservation, now time.Time) error {
	if err := requirePending(r, "accept"); err != nil {
		return err
	}

	if isExpired(r, now) {
		return inventory.NewIllegalTransitionError(r, "accept expired")
	}

	return nil
}

func decideCancel(r inventory.Reservation) error {
	if r.Status.IsFinal() || r.InProgress || r.HasHandedOverLines() {
		return inventory.NewIllegalTransitionError(r, "cancel")
	}

	return nil
}

// decideExpire only lets PENDING quotes past their expiration through. A PENDING quote that holds
// stock would be a corrupted record; expiring it must never release anything, so it is refused.
func decideExpire(r inventory.Reservation, now time.Time) error {
	if err := requirePending(r, "expire"); err != nil {
		return err
	}

	if r.StockCommitted {
		return errors.Join(ErrCommittedPendingQuote, inventory.NewIllegalTransitionError(r, "expire"))
	}

	if !isExpired(r, now) {
		return inventory.NewIllegalTransitionError(r, "expire unexpired")
	}

	return nil
}

func decideStartDelivery(r inventory.Reservation) error {
	return requireConfirmedEditable(r, "start delivery of")
}

func decideComplete(r inventory.Reservation) error {
	if r.Status != inventory.StatusConfirmed || !r.InProgress {
		return inventory.NewIllegalTransitionError(r, "complete")
	}

	return nil
}

func decidePayment(r inventory.Reservation, amount inventory.Money) error {
	if !amount.IsPositive() {
		return inventory.NewValidationError("amount", "must be positive")
	}

	if r.Status != inventory.StatusConfirmed && r.Status != inventory.StatusCompleted {
		return inventory.NewIllegalTransitionError(r, "record payment for")
	}

	if r.Amounts.Paid.Add(amount).GreaterThan(r.Amounts.Net) {
		return inventory.NewValidationError(
			"amount",
			fmt.Sprintf("would exceed the net amount, outstanding is %s", r.Amounts.Outstanding().StringFixed(2)),
		)
	}

	return nil
}

// buildLine creates a line from a request. The unit price is snapshotted from the product unless
// the request overrides it.
func buildLine(id uuid.UUID, product inventory.Product, request LineRequest, period inventory.DateRange) (inventory.ReservationLine, error) {
	unitPrice := product.UnitPrice
	if request.UnitPrice != nil {
		unitPrice = *request.UnitPrice
	}

	line := inventory.ReservationLine{
		ID:             id,
		ProductID:      product.ID,
		Quantity:       request.Quantity,
		UnitPrice:      unitPrice,
		Period:         period,
		DeliveryStatus: inventory.DeliveryNotDue,
	}

	return line, line.Validate()
}

func applyLineEdits(r *inventory.Reservation, edits []LineEdit) ([]string, error) {
	var notes []string

	for _, edit := range edits {
		idx := r.LineIndex(edit.LineID)
		if idx < 0 {
			return nil, inventory.NewNotFoundError("line", edit.LineID)
		}

		line := &r.Lines[idx]

		if edit.Quantity != nil {
			if *edit.Quantity < 1 {
				return nil, inventory.NewValidationError("lineEdit.quantity", "must be at least 1")
			}

			notes = append(notes, fmt.Sprintf("line %s quantity %d -> %d", line.ID, line.Quantity, *edit.Quantity))
			line.Quantity = *edit.Quantity
		}

		if edit.UnitPrice != nil {
			if edit.UnitPrice.IsNegative() {
				return nil, inventory.NewValidationError("lineEdit.unitPrice", "must not be negative")
			}

			notes = append(notes, fmt.Sprintf("line %s unit price %s -> %s", line.ID, line.UnitPrice.StringFixed(2), edit.UnitPrice.StringFixed(2)))
			line.UnitPrice = *edit.UnitPrice
		}
	}

	return notes, nil
}

// applyDateChanges validates every change before it applies any of them. Lines whose period does
// not change are skipped. It returns the changed lines as they were before and their ids.
func applyDateChanges(r *inventory.Reservation, changes []DateChange) ([]inventory.ReservationLine, []uuid.UUID, []string, error) {
	if len(changes) == 0 {
		return nil, nil, nil, inventory.NewValidationError("changes", "must not be empty")
	}

	periods := make([]inventory.DateRange, len(changes))
	seen := make(map[uuid.UUID]bool, len(changes))

	for i, change := range changes {
		if r.LineIndex(change.LineID) < 0 {
			return nil, nil, nil, inventory.NewNotFoundError("line", change.LineID)
		}

		if seen[change.LineID] {
			return nil, nil, nil, inventory.NewValidationError("changes", "line "+change.LineID.String()+" is listed twice")
		}
		seen[change.LineID] = true

		period, err := inventory.NewDateRange(change.Start, change.End)
		if err != nil {
			return nil, nil, nil, err
		}

		periods[i] = period
	}

	var before []inventory.ReservationLine
	var ids []uuid.UUID
	var notes []string

	for i, change := range changes {
		idx := r.LineIndex(change.LineID)
		if r.Lines[idx].Period.Equal(periods[i]) {
			continue
		}

		old := r.Lines[idx]
		old.InstanceIDs = slices.Clone(old.InstanceIDs)
		before = append(before, old)
		ids = append(ids, change.LineID)
		notes = append(notes, fmt.Sprintf("line %s %s -> %s", change.LineID, old.Period, periods[i]))

		r.Lines[idx].Period = periods[i]
	}

	return before, ids, notes, nil
}

func auditText(headline, reason string, notes []string) string {
	var b strings.Builder
	b.WriteString(headline)

	if len(notes) > 0 {
		b.WriteString(": ")
		b.WriteString(strings.Join(notes, "; "))
	}

	if reason = strings.TrimSpace(reason); reason != "" {
		b.WriteString(" (reason: ")
		b.WriteString(reason)
		b.WriteString(")")
	}

	return b.String()
}

func lineIDs(lines []inventory.ReservationLine) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ID)
	}

	return ids
}
