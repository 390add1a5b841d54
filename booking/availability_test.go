package booking_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/rental-reservation-engine/booking"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

func Test_CheckAvailability_FullCapacityWithoutBookings(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")

	// act
	result := checkFree(t, f, chairs.ID, 10, 1, 3)

	// assert
	assert.True(t, result.Available)
	assert.Equal(t, 10, result.FreeCapacity)
}

func Test_CheckAvailability_OverlappingConfirmedReservationReducesFreeCapacity(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")
	givenConfirmed(t, f, lineRequest(chairs.ID, 6, 2, 4))

	// act
	overlapping := checkFree(t, f, chairs.ID, 5, 1, 3)
	adjacent := checkFree(t, f, chairs.ID, 10, 5, 6)

	// assert
	assert.False(t, overlapping.Available)
	assert.Equal(t, 4, overlapping.FreeCapacity)
	assert.True(t, adjacent.Available, "A period starting the day after should not overlap")
	assert.Equal(t, 10, adjacent.FreeCapacity)
}

func Test_CheckAvailability_PendingQuotesDoNotCount(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")
	givenConfirmed(t, f, lineRequest(chairs.ID, 6, 2, 4))

	// act
	quote, err := f.engine.CreateQuote(f.ctx, booking.CreateQuote{CustomerID: "customer-2", Lines: []booking.LineRequest{lineRequest(chairs.ID, 8, 1, 3)}})
	require.NoError(t, err, "A quote should be created even if it cannot be accepted right now")

	// assert
	assert.Equal(t, inventory.StatusPending, quote.Reservation.Status)
	assert.Equal(t, 4, checkFree(t, f, chairs.ID, 5, 1, 3).FreeCapacity)
}

func Test_CheckAvailability_IsIdempotent(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")
	givenConfirmed(t, f, lineRequest(chairs.ID, 3, 1, 2))
	ledgerBefore := readLedger(t, f, inventory.AllMovements())

	// act
	first := checkFree(t, f, chairs.ID, 5, 1, 3)
	second := checkFree(t, f, chairs.ID, 5, 1, 3)

	// assert
	assert.Equal(t, first, second)
	assert.Equal(t, ledgerBefore, readLedger(t, f, inventory.AllMovements()), "Checking should not write")
}

func Test_CheckAvailability_SerializedListsCandidatesInSerialOrder(t *testing.T) {
	// arrange
	f := setupEngine(t)
	projectors, instances := givenSerializedProduct(t, f, "Projector", "40.00", "P-003", "P-001", "P-002")
	givenConfirmed(t, f, lineRequest(projectors.ID, 1, 1, 2))

	// act
	result := checkFree(t, f, projectors.ID, 3, 2, 3)

	// assert
	assert.False(t, result.Available)
	assert.Equal(t, 2, result.FreeCapacity)
	assert.Equal(t, []string{"P-002", "P-003"}, result.CandidateInstances)
	assert.Equal(t, []uuid.UUID{instances[2].ID, instances[0].ID}, result.CandidateIDs,
		"Should expose the ids of the candidate instances in serial order")
}

func Test_CheckAvailability_RejectsInvalidQueries(t *testing.T) {
	testCases := []struct {
		name    string
		query   func(productID uuid.UUID) booking.AvailabilityQuery
		wantErr error
	}{
		{
			name: "zero quantity",
			query: func(productID uuid.UUID) booking.AvailabilityQuery {
				return booking.AvailabilityQuery{ProductID: productID, Start: june(1), End: june(2)}
			},
			wantErr: inventory.ErrValidation,
		},
		{
			name: "end before start",
			query: func(productID uuid.UUID) booking.AvailabilityQuery {
				return booking.AvailabilityQuery{ProductID: productID, Quantity: 1, Start: june(3), End: june(2)}
			},
			wantErr: inventory.ErrValidation,
		},
		{
			name: "unknown product",
			query: func(uuid.UUID) booking.AvailabilityQuery {
				return booking.AvailabilityQuery{ProductID: uuid.New(), Quantity: 1, Start: june(1), End: june(2)}
			},
			wantErr: inventory.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// arrange
			f := setupEngine(t)
			chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")

			// act
			_, err := f.engine.CheckAvailability(f.ctx, tc.query(chairs.ID))

			// assert
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func Test_CheckAvailabilities_ReportsEachEntryIndependently(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")
	projectors, _ := givenSerializedProduct(t, f, "Projector", "40.00", "P-001")

	queries := []booking.AvailabilityQuery{
		{ProductID: chairs.ID, Quantity: 10, Start: june(1), End: june(2)},
		{ProductID: uuid.New(), Quantity: 1, Start: june(1), End: june(2)},
		{ProductID: projectors.ID, Quantity: 2, Start: june(1), End: june(2)},
	}

	// act
	results, err := f.engine.CheckAvailabilities(f.ctx, queries)

	// assert
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.True(t, results[0].Available)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, inventory.ErrNotFound)
	assert.Equal(t, queries[1], results[1].Query)
	assert.False(t, results[2].Available)
	assert.Equal(t, 1, results[2].FreeCapacity)
}

func Test_CheckAvailabilities_AbortsOnCanceledContext(t *testing.T) {
	// arrange
	f := setupEngine(t)
	chairs := givenPooledProduct(t, f, "Chair", 10, "2.50")
	ctx, cancel := context.WithCancel(f.ctx)
	cancel()

	// act
	results, err := f.engine.CheckAvailabilities(ctx, []booking.AvailabilityQuery{
		{ProductID: chairs.ID, Quantity: 1, Start: june(1), End: june(2)},
	})

	// assert
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, results)
}
