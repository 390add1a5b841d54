package booking_test

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
	"github.com/AntonStoeckl/rental-reservation-engine/inventory/memengine"
)

// fakeClock is a settable clock, safe for concurrent use.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, time.May, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type fixture struct {
	ctx    context.Context
	engine *booking.Engine
	store  *memengine.Store
	clock  *fakeClock
}

func setupEngine(t *testing.T, options ...booking.Option) fixture {
	t.Helper()

	store, err := memengine.NewStore()
	require.NoError(t, err)

	clock := newFakeClock()
	options = append([]booking.Option{booking.WithClock(clock.Now)}, options...)

	engine, err := booking.NewEngine(store, options...)
	require.NoError(t, err)

	ctx := inventory.WithActor(context.Background(), inventory.Actor{ID: "staff-1", Role: "staff"})

	return fixture{ctx: ctx, engine: engine, store: store, clock: clock}
}

func june(day int) time.Time {
	return inventory.Day(2025, time.June, day)
}

func money(value string) inventory.Money {
	return decimal.RequireFromString(value)
}

func givenPooledProduct(t *testing.T, f fixture, name string, capacity int, price string) inventory.Product {
	t.Helper()

	product, err := f.engine.RegisterProduct(f.ctx, booking.RegisterProduct{
		Name:      name,
		UnitPrice: money(price),
		Mode:      inventory.ModePooled,
		Capacity:  capacity,
	})
	require.NoError(t, err, "Should register pooled product %s", name)

	return product
}

func givenSerializedProduct(t *testing.T, f fixture, name, price string, serials ...string) (inventory.Product, []inventory.ProductInstance) {
	t.Helper()

	product, err := f.engine.RegisterProduct(f.ctx, booking.RegisterProduct{
		Name:      name,
		UnitPrice: money(price),
		Mode:      inventory.ModeSerialized,
	})
	require.NoError(t, err, "Should register serialized product %s", name)

	instances := make([]inventory.ProductInstance, 0, len(serials))
	for _, serial := range serials {
		instance, err := f.engine.RegisterInstance(f.ctx, booking.RegisterInstance{ProductID: product.ID, Serial: serial})
		require.NoError(t, err, "Should register instance %s", serial)

		instances = append(instances, instance)
	}

	return product, instances
}

func lineRequest(productID uuid.UUID, quantity, startDay, endDay int) booking.LineRequest {
	return booking.LineRequest{ProductID: productID, Quantity: quantity, Start: june(startDay), End: june(endDay)}
}

func givenQuote(t *testing.T, f fixture, lines ...booking.LineRequest) inventory.Reservation {
	t.Helper()

	quote, err := f.engine.CreateQuote(f.ctx, booking.CreateQuote{CustomerID: "customer-1", Lines: lines})
	require.NoError(t, err, "Should create quote")

	return quote.Reservation
}

func givenConfirmed(t *testing.T, f fixture, lines ...booking.LineRequest) inventory.Reservation {
	t.Helper()

	quote := givenQuote(t, f, lines...)

	confirmed, err := f.engine.AcceptQuote(f.ctx, quote.ID)
	require.NoError(t, err, "Should accept quote")

	return confirmed
}

func givenDelivering(t *testing.T, f fixture, lines ...booking.LineRequest) inventory.Reservation {
	t.Helper()

	confirmed := givenConfirmed(t, f, lines...)

	delivering, err := f.engine.StartDelivery(f.ctx, confirmed.ID)
	require.NoError(t, err, "Should start delivery")

	return delivering
}

func checkFree(t *testing.T, f fixture, productID uuid.UUID, quantity, startDay, endDay int) booking.AvailabilityResult {
	t.Helper()

	result, err := f.engine.CheckAvailability(f.ctx, booking.AvailabilityQuery{
		ProductID: productID,
		Quantity:  quantity,
		Start:     june(startDay),
		End:       june(endDay),
	})
	require.NoError(t, err)

	return result
}

func readProduct(t *testing.T, f fixture, id uuid.UUID) inventory.Product {
	t.Helper()

	var product inventory.Product
	err := f.store.View(f.ctx, func(ctx context.Context, tx inventory.ReadTx) error {
		var err error
		product, err = tx.Product(ctx, id)

		return err
	})
	require.NoError(t, err)

	return product
}

func readInstanceStatuses(t *testing.T, f fixture, productID uuid.UUID) map[string]inventory.InstanceStatus {
	t.Helper()

	statuses := make(map[string]inventory.InstanceStatus)
	err := f.store.View(f.ctx, func(ctx context.Context, tx inventory.ReadTx) error {
		instances, err := tx.Instances(ctx, productID)
		for _, instance := range instances {
			statuses[instance.Serial] = instance.Status
		}

		return err
	})
	require.NoError(t, err)

	return statuses
}

func readLedger(t *testing.T, f fixture, filter inventory.MovementFilter) []inventory.StockMovement {
	t.Helper()

	movements, err := f.engine.Ledger(f.ctx, filter)
	require.NoError(t, err)

	return movements
}

func reservationLedger(t *testing.T, f fixture, reservationID uuid.UUID) []inventory.StockMovement {
	t.Helper()

	return readLedger(t, f, inventory.BuildMovementFilter().ForReservations(reservationID).Finalize())
}

func serialsOf(t *testing.T, f fixture, line inventory.ReservationLine) []string {
	t.Helper()

	serials := make([]string, 0, len(line.InstanceIDs))
	err := f.store.View(f.ctx, func(ctx context.Context, tx inventory.ReadTx) error {
		for _, id := range line.InstanceIDs {
			instance, err := tx.Instance(ctx, id)
			if err != nil {
				return err
			}

			serials = append(serials, instance.Serial)
		}

		return nil
	})
	require.NoError(t, err)

	return serials
}

func assertLedgerReplaysToCurrentState(t *testing.T, f fixture) {
	t.Helper()

	current, err := f.engine.StockState(f.ctx)
	require.NoError(t, err)

	replayed, err := inventory.ReplayLedger(inventory.NewStockState(), readLedger(t, f, inventory.AllMovements()))
	require.NoError(t, err, "Ledger replay should not diverge")

	assert.Equal(t, current.Pooled, replayed.Pooled, "Replayed pooled counters should match current state")
	for id, status := range current.Instances {
		if status == inventory.InstanceInUse {
			continue
		}

		assert.Equal(t, status, replayed.Instances[id], "Replayed instance status should match current state")
	}
}

func givenStore(t *testing.T) inventory.Store {
	t.Helper()

	store, err := memengine.NewStore()
	require.NoError(t, err)

	return store
}

func allReservationIDs(t *testing.T, f fixture) []uuid.UUID {
	t.Helper()

	var ids []uuid.UUID
	err := f.store.View(f.ctx, func(ctx context.Context, tx inventory.ReadTx) error {
		var err error
		ids, err = tx.ReservationIDs(ctx, inventory.ReservationQuery{})

		return err
	})
	require.NoError(t, err)

	return ids
}
