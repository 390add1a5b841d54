package pgtesthelpers

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory/postgresengine"
	"github.com/AntonStoeckl/rental-reservation-engine/shell/config"
)

const (
	EnvTestDSN     = "RENTAL_TEST_DB_DSN"
	EnvAdapterType = "ADAPTER_TYPE"
)

const truncateAll = `TRUNCATE TABLE outbox_events, stock_movements, line_instances, reservation_lines,
	reservations, product_instances, products`

// OpenTestStore connects with the adapter from ADAPTER_TYPE, creates the schema and empties all tables.
// The connections are closed when the test finishes.
func OpenTestStore(t testing.TB, options ...postgresengine.Option) *postgresengine.Store {
	t.Helper()

	dsn := os.Getenv(EnvTestDSN)
	if dsn == "" {
		t.Skipf("%s not set, skipping PostgreSQL test", EnvTestDSN)
	}

	adapter, err := config.ParseAdapter(os.Getenv(EnvAdapterType))
	require.NoError(t, err, "error in test setup")

	ctx := context.Background()

	store, closeStore, err := config.OpenStore(ctx, adapter, dsn, "", options...)
	require.NoError(t, err, "error connecting to the test database")
	t.Cleanup(closeStore)

	require.NoError(t, store.CreateSchema(ctx), "error creating the schema")
	CleanUp(t, dsn)

	return store
}

// CleanUp removes all rows of the default tables.
func CleanUp(t testing.TB, dsn string) {
	t.Helper()

	db, err := config.NewSQLDB(dsn)
	require.NoError(t, err, "error opening cleanup connection")
	defer func() { _ = db.Close() }() // ignore error

	_, err = db.Exec(truncateAll)
	require.NoError(t, err, "error cleaning up the tables")
}
