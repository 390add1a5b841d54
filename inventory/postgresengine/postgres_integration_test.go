package postgresengine_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/rental-reservation-engine/booking"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory/postgresengine"
	"github.com/AntonStoeckl/rental-reservation-engine/testutil/postgresengine/pgtesthelpers"
)

func Test_Integration_QuoteAcceptCommitsStockAndWritesOutbox(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := pgtesthelpers.OpenTestStore(t)
	outbox := postgresengine.NewOutboxNotifier(store)
	engine := givenIntegrationEngine(t, store, booking.WithNotifier(outbox))
	product := givenIntegrationPooledProduct(t, engine, 5)
	start, end := givenIntegrationPeriod()

	quote, err := engine.CreateQuote(ctx, booking.CreateQuote{
		CustomerID: "customer-1",
		Lines:      []booking.LineRequest{{ProductID: product.ID, Quantity: 3, Start: start, End: end}},
	})
	require.NoError(t, err)

	// act
	accepted, err := engine.AcceptQuote(ctx, quote.Reservation.ID)

	// assert
	require.NoError(t, err)
	assert.Equal(t, inventory.StatusConfirmed, accepted.Status, "Should confirm the quote")
	assert.True(t, accepted.StockCommitted, "Should commit the stock")

	reloaded, err := engine.Reservation(ctx, accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, accepted.Version, reloaded.Version, "Should persist the reservation version")
	require.Len(t, reloaded.Lines, 1)
	assert.Equal(t, 3, reloaded.Lines[0].Quantity)

	availability, err := engine.CheckAvailability(ctx, booking.AvailabilityQuery{
		ProductID: product.ID, Quantity: 3, Start: start, End: end,
	})
	require.NoError(t, err)
	assert.False(t, availability.Available, "Should see the committed units")
	assert.Equal(t, 2, availability.FreeCapacity)

	movements, err := engine.Ledger(ctx, inventory.BuildMovementFilter().ForProducts(product.ID).Finalize())
	require.NoError(t, err)
	assert.NotEmpty(t, movements, "Should append ledger rows")

	pending, err := outbox.PendingEvents(ctx, 10)
	require.NoError(t, err)
	require.NotEmpty(t, pending, "Should persist reservation events in the outbox")

	ids := make([]uuid.UUID, 0, len(pending))
	for _, event := range pending {
		ids = append(ids, event.ID)
	}
	require.NoError(t, outbox.MarkPublished(ctx, ids...))

	pending, err = outbox.PendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "Should not return published events again")
}

func Test_Integration_ConcurrentAcceptsNeverOverbook(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := pgtesthelpers.OpenTestStore(t)
	engine := givenIntegrationEngine(t, store)
	product := givenIntegrationPooledProduct(t, engine, 5)
	start, end := givenIntegrationPeriod()

	quotes := make([]inventory.Reservation, 0, 2)
	for range 2 {
		quote, err := engine.CreateQuote(ctx, booking.CreateQuote{
			CustomerID: "customer-1",
			Lines:      []booking.LineRequest{{ProductID: product.ID, Quantity: 3, Start: start, End: end}},
		})
		require.NoError(t, err)
		quotes = append(quotes, quote.Reservation)
	}

	// act
	errs := make([]error, len(quotes))
	var wg sync.WaitGroup
	for i, quote := range quotes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = engine.AcceptQuote(ctx, quote.ID)
		}()
	}
	wg.Wait()

	// assert
	var confirmed, unavailable int
	for _, err := range errs {
		switch {
		case err == nil:
			confirmed++
		case inventory.ErrorType(err) == "stock_unavailable":
			unavailable++
		}
	}

	assert.Equal(t, 1, confirmed, "Should confirm exactly one quote")
	assert.Equal(t, 1, unavailable, "Should reject the other quote for lack of stock")
}

func Test_Integration_ReservationIDsFindsExpiredQuotes(t *testing.T) {
	// arrange
	ctx := context.Background()
	store := pgtesthelpers.OpenTestStore(t)
	engine := givenIntegrationEngine(t, store, booking.WithQuoteGracePeriod(time.Hour))
	product := givenIntegrationPooledProduct(t, engine, 5)
	start, end := givenIntegrationPeriod()

	quote, err := engine.CreateQuote(ctx, booking.CreateQuote{
		CustomerID: "customer-1",
		Lines:      []booking.LineRequest{{ProductID: product.ID, Quantity: 1, Start: start, End: end}},
	})
	require.NoError(t, err)

	// act
	ids, err := engine.ReservationIDs(ctx, inventory.ReservationQuery{
		Status:        inventory.StatusPending,
		ExpiresBefore: time.Now().Add(2 * time.Hour),
		Limit:         10,
	})

	// assert
	require.NoError(t, err)
	assert.Contains(t, ids, quote.Reservation.ID, "Should list the quote whose expiry has passed")
}

func givenIntegrationEngine(t *testing.T, store *postgresengine.Store, options ...booking.Option) *booking.Engine {
	t.Helper()

	engine, err := booking.NewEngine(store, options...)
	require.NoError(t, err, "error in arranging test data")

	return engine
}

func givenIntegrationPooledProduct(t *testing.T, engine *booking.Engine, capacity int) inventory.Product {
	t.Helper()

	product, err := engine.RegisterProduct(context.Background(), booking.RegisterProduct{
		Name:      "Folding chair",
		UnitPrice: decimal.RequireFromString("4.50"),
		Mode:      inventory.ModePooled,
		Capacity:  capacity,
		Reason:    "initial stock",
	})
	require.NoError(t, err, "error in arranging test data")

	return product
}

func givenIntegrationPeriod() (time.Time, time.Time) {
	start := time.Now().UTC().Truncate(24*time.Hour).AddDate(0, 0, 30)

	return start, start.AddDate(0, 0, 2)
}
