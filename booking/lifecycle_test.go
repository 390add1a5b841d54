package booking_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/rental-reservation-engine/booking"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

func Test_AddLine_ToQuote_RederivesWithoutTouchingStock(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")
	quote := givenQuote(t, f, lineRequest(chairs.ID, 2, 1, 2))
	f.clock.Advance(time.Hour)

	// act
	modified, err := f.engine.AddLine(f.ctx, booking.AddLine{ReservationID: quote.ID, Line: lineRequest(chairs.ID, 4, 5, 6)})

	// assert
	require.NoError(t, err)
	require.Len(t, modified.Lines, 2)
	assert.Equal(t, inventory.MustDateRange(june(1), june(6)), modified.Period)
	assert.Equal(t, "30.00", modified.Amounts.Net.StringFixed(2))
	assert.Equal(t, f.clock.Now().Add(booking.DefaultQuoteGracePeriod), modified.ExpiresAt)
	assert.Empty(t, reservationLedger(t, f, quote.ID))
}

func Test_AddLine_ToConfirmed_CommitsOnlyTheNewLine(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")
	confirmed := givenConfirmed(t, f, lineRequest(chairs.ID, 6, 1, 2))

	// act
	modified, err := f.engine.AddLine(f.ctx, booking.AddLine{ReservationID: confirmed.ID, Line: lineRequest(chairs.ID, 4, 2, 3)})

	// assert
	require.NoError(t, err)
	assert.Equal(t, 0, checkFree(t, f, chairs.ID, 1, 2, 2).FreeCapacity)
	assert.Equal(t, 0, readProduct(t, f, chairs.ID).AvailableCount)
	assert.Len(t, reservationLedger(t, f, confirmed.ID), 2)

	_, err = f.engine.AddLine(f.ctx, booking.AddLine{ReservationID: modified.ID, Line: lineRequest(chairs.ID, 1, 2, 2)})
	assert.ErrorIs(t, err, inventory.ErrStockUnavailable, "The existing lines of the same reservation must count as taken")
}

func Test_AddLine_RejectsUnknownProductAndFinalReservation(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")
	quote := givenQuote(t, f, lineRequest(chairs.ID, 2, 1, 2))
	_, err := f.engine.RefuseQuote(f.ctx, quote.ID, "")
	require.NoError(t, err)

	// act
	_, errProduct := f.engine.AddLine(f.ctx, booking.AddLine{ReservationID: quote.ID, Line: lineRequest(uuid.New(), 1, 1, 2)})
	_, errFinal := f.engine.AddLine(f.ctx, booking.AddLine{ReservationID: quote.ID, Line: lineRequest(chairs.ID, 1, 1, 2)})

	// assert
	assert.ErrorIs(t, errProduct, inventory.ErrNotFound)
	assert.ErrorIs(t, errFinal, inventory.ErrIllegalStateTransition)
}

func Test_RemoveLine_FromConfirmed_ReleasesItsStock(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")
	projectors, _ := givenSerializedProduct(t, f, "Projector", "40.00", "P-001")
	confirmed := givenConfirmed(t, f, lineRequest(chairs.ID, 6, 1, 2), lineRequest(projectors.ID, 1, 3, 4))

	// act
	modified, err := f.engine.RemoveLine(f.ctx, confirmed.Lines[1].ID, "not needed")

	// assert
	require.NoError(t, err)
	require.Len(t, modified.Lines, 1)
	assert.Equal(t, inventory.MustDateRange(june(1), june(2)), modified.Period)
	assert.Equal(t, "30.00", modified.Amounts.Net.StringFixed(2))
	assert.Equal(t, inventory.InstanceAvailable, readInstanceStatuses(t, f, projectors.ID)["P-001"])
	assert.Equal(t, 4, readProduct(t, f, chairs.ID).AvailableCount, "The remaining line keeps its commitment")

	_, err = f.engine.RemoveLine(f.ctx, modified.Lines[0].ID, "")
	assert.ErrorIs(t, err, inventory.ErrValidation, "The last line cannot be removed")
}

func Test_MarkDeliveryDue_FlipsOnlyLinesStartingThatDay(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")
	confirmed := givenConfirmed(t, f, lineRequest(chairs.ID, 1, 1, 2), lineRequest(chairs.ID, 1, 3, 4))

	// act
	marked, err := f.engine.MarkDeliveryDue(f.ctx, confirmed.ID, june(1).Add(9*time.Hour))

	// assert
	require.NoError(t, err)
	assert.Equal(t, inventory.DeliveryAwaitingDispatch, marked.Lines[0].DeliveryStatus)
	assert.Equal(t, inventory.DeliveryNotDue, marked.Lines[1].DeliveryStatus)

	again, err := f.engine.MarkDeliveryDue(f.ctx, confirmed.ID, june(1))
	require.NoError(t, err)
	assert.Equal(t, marked.Version, again.Version, "Nothing is written when no line is due")
}

func Test_MarkDeliveryDue_RejectsPendingQuote(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")
	quote := givenQuote(t, f, lineRequest(chairs.ID, 1, 1, 2))

	// act
	_, err := f.engine.MarkDeliveryDue(f.ctx, quote.ID, june(1))

	// assert
	assert.ErrorIs(t, err, inventory.ErrIllegalStateTransition)
}

func Test_DeliveryLifecycle_StartDeliverComplete(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")
	projectors, _ := givenSerializedProduct(t, f, "Projector", "40.00", "P-001", "P-002")
	confirmed := givenConfirmed(t, f, lineRequest(chairs.ID, 6, 1, 2), lineRequest(projectors.ID, 1, 1, 2))

	// act
	delivering, err := f.engine.StartDelivery(f.ctx, confirmed.ID)
	require.NoError(t, err)
	statusesInDelivery := readInstanceStatuses(t, f, projectors.ID)

	delivered, err := f.engine.MarkLineDelivered(f.ctx, confirmed.Lines[0].ID)
	require.NoError(t, err)

	completed, err := f.engine.Complete(f.ctx, confirmed.ID)
	require.NoError(t, err)

	// assert
	assert.True(t, delivering.InProgress)
	assert.Equal(t, inventory.DeliveryDispatched, delivering.Lines[1].DeliveryStatus)
	assert.Equal(t, inventory.InstanceInUse, statusesInDelivery["P-001"])
	assert.Equal(t, inventory.DeliveryDelivered, delivered.Lines[0].DeliveryStatus)

	assert.Equal(t, inventory.StatusCompleted, completed.Status)
	assert.False(t, completed.InProgress)
	assert.False(t, completed.StockCommitted)
	assert.Equal(t, inventory.DeliveryReturned, completed.Lines[0].DeliveryStatus)
	assert.Equal(t, 10, readProduct(t, f, chairs.ID).AvailableCount)
	assert.Equal(t, inventory.InstanceAvailable, readInstanceStatuses(t, f, projectors.ID)["P-001"])
	assert.Equal(t, 10, checkFree(t, f, chairs.ID, 10, 1, 2).FreeCapacity)
	assertLedgerReplaysToCurrentState(t, f)
}

func Test_DeliveryLifecycle_LaterBookingKeepsInstanceInUse(t *testing.T) {
	// arrange
	f := setupEngine(t)
	projectors, _ := givenSerializedProduct(t, f, "Projector", "40.00", "P-001")
	delivering := givenDelivering(t, f, lineRequest(projectors.ID, 1, 1, 3))

	// act
	later := givenConfirmed(t, f, lineRequest(projectors.ID, 1, 10, 12))
	statusAfterLaterBooking := readInstanceStatuses(t, f, projectors.ID)["P-001"]

	_, err := f.engine.Cancel(f.ctx, later.ID, "customer changed plans")
	require.NoError(t, err)
	statusAfterCancel := readInstanceStatuses(t, f, projectors.ID)["P-001"]

	// assert
	assert.Equal(t, inventory.InstanceInUse, statusAfterLaterBooking, "Should not relabel an instance that is out on rental")
	assert.Equal(t, inventory.InstanceInUse, statusAfterCancel, "Should keep the instance in use while the first rental is out")

	kinds := make([]inventory.MovementKind, 0, 2)
	for _, m := range reservationLedger(t, f, later.ID) {
		kinds = append(kinds, m.Kind)
	}
	assert.Equal(t, []inventory.MovementKind{inventory.MovementReserve, inventory.MovementRelease}, kinds,
		"Should still write the ledger rows of the later booking")
	assert.True(t, delivering.InProgress)
	assertLedgerReplaysToCurrentState(t, f)
}

func Test_DeliveryLifecycle_CompleteHandsInstanceToLaterBooking(t *testing.T) {
	// arrange
	f := setupEngine(t)
	projectors, _ := givenSerializedProduct(t, f, "Projector", "40.00", "P-001")
	delivering := givenDelivering(t, f, lineRequest(projectors.ID, 1, 1, 3))
	givenConfirmed(t, f, lineRequest(projectors.ID, 1, 10, 12))

	// act
	_, err := f.engine.Complete(f.ctx, delivering.ID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, inventory.InstanceReserved, readInstanceStatuses(t, f, projectors.ID)["P-001"],
		"Should reserve the returned instance for the later booking")
	assertLedgerReplaysToCurrentState(t, f)
}

func Test_DeliveryLifecycle_RejectsIllegalSteps(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")
	confirmed := givenConfirmed(t, f, lineRequest(chairs.ID, 1, 1, 2))
	quote := givenQuote(t, f, lineRequest(chairs.ID, 1, 1, 2))

	// act
	_, errComplete := f.engine.Complete(f.ctx, confirmed.ID)
	_, errDelivered := f.engine.MarkLineDelivered(f.ctx, confirmed.Lines[0].ID)
	_, errStart := f.engine.StartDelivery(f.ctx, quote.ID)

	// assert
	assert.ErrorIs(t, errComplete, inventory.ErrIllegalStateTransition, "Only a delivering reservation can be completed")
	assert.ErrorIs(t, errDelivered, inventory.ErrIllegalStateTransition, "Only a dispatched line can be delivered")
	assert.ErrorIs(t, errStart, inventory.ErrIllegalStateTransition)
}

func Test_RecordPayment_AddsUpToNetAmount(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")
	confirmed := givenConfirmed(t, f, lineRequest(chairs.ID, 4, 1, 2))

	// act
	paid, err := f.engine.RecordPayment(f.ctx, confirmed.ID, money("15.00"))
	require.NoError(t, err)
	_, errTooMuch := f.engine.RecordPayment(f.ctx, confirmed.ID, money("5.01"))
	_, errNegative := f.engine.RecordPayment(f.ctx, confirmed.ID, money("-1"))

	// assert
	assert.Equal(t, "15.00", paid.Amounts.Paid.StringFixed(2))
	assert.Equal(t, "5.00", paid.Amounts.Outstanding().StringFixed(2))
	assert.ErrorIs(t, errTooMuch, inventory.ErrValidation)
	assert.ErrorIs(t, errNegative, inventory.ErrValidation)
}

func Test_RecordPayment_RejectsPendingQuote(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")
	quote := givenQuote(t, f, lineRequest(chairs.ID, 4, 1, 2))

	// act
	_, err := f.engine.RecordPayment(f.ctx, quote.ID, money("1"))

	// assert
	assert.ErrorIs(t, err, inventory.ErrIllegalStateTransition)
}
