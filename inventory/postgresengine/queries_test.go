package postgresengine_test

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory/postgresengine"
)

func Test_LockProducts_LocksInAscendingIDOrder(t *testing.T) {
	// arrange
	low := uuid.MustParse("10000000-0000-0000-0000-000000000000")
	high := uuid.MustParse("f0000000-0000-0000-0000-000000000000")

	// act
	sqlQuery, err := postgresengine.LockProductsSQL(high, low, high)

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, "FOR UPDATE")
	assert.Contains(t, sqlQuery, `ORDER BY "id" ASC`)
	assert.Equal(t, 1, strings.Count(sqlQuery, high.String()), "Should lock every product once")
	assert.Less(t, strings.Index(sqlQuery, low.String()), strings.Index(sqlQuery, high.String()), "Should list the ids in ascending order")
}

func Test_Commitments_FiltersConfirmedOverlappingLines(t *testing.T) {
	// arrange
	excluded := uuid.New()
	product := uuid.New()
	period := inventory.MustDateRange(inventory.Day(2025, 6, 1), inventory.Day(2025, 6, 5))

	// act
	sqlQuery, err := postgresengine.CommitmentsSQL(inventory.CommitmentQuery{
		ProductIDs:           []uuid.UUID{product},
		Overlapping:          &period,
		ExcludeReservationID: excluded,
	})

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `"r"."status" = 'CONFIRMED'`)
	assert.Contains(t, sqlQuery, `"r"."stock_committed" IS TRUE`)
	assert.Contains(t, sqlQuery, `"l"."start_day" <= '2025-06-05'`, "Should include lines starting on the last day")
	assert.Contains(t, sqlQuery, `"l"."end_day" >= '2025-06-01'`, "Should include lines ending on the first day")
	assert.Contains(t, sqlQuery, `"l"."reservation_id" != '`+excluded.String()+`'`)
	assert.Contains(t, sqlQuery, product.String())
	assert.Contains(t, sqlQuery, `LEFT JOIN "line_instances" AS "li"`)
	assert.Contains(t, sqlQuery, `"l"."delivery_status"`, "Should read whether the goods are out on rental")
}

func Test_Commitments_WithoutFiltersReadsAllCommittedLines(t *testing.T) {
	sqlQuery, err := postgresengine.CommitmentsSQL(inventory.CommitmentQuery{})

	require.NoError(t, err)
	assert.NotContains(t, sqlQuery, `"l"."start_day" <=`)
	assert.NotContains(t, sqlQuery, `"l"."reservation_id" !=`)
}

func Test_ReservationIDs_BuildsSchedulerQueries(t *testing.T) {
	t.Run("expiring quotes", func(t *testing.T) {
		sqlQuery, err := postgresengine.ReservationIDsSQL(inventory.ReservationQuery{
			Status:        inventory.StatusPending,
			ExpiresBefore: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
			Limit:         500,
		})

		require.NoError(t, err)
		assert.Contains(t, sqlQuery, `"status" = 'PENDING'`)
		assert.Contains(t, sqlQuery, `"expires_at" < '2025-06-01T12:00:00Z'`, "Should only match quotes that expired strictly before now")
		assert.Contains(t, sqlQuery, "LIMIT 500")
		assert.NotContains(t, sqlQuery, "reservation_lines")
	})

	t.Run("lines starting today", func(t *testing.T) {
		sqlQuery, err := postgresengine.ReservationIDsSQL(inventory.ReservationQuery{
			Status:             inventory.StatusConfirmed,
			LineStartsOn:       inventory.Day(2025, 6, 1),
			LineDeliveryStatus: inventory.DeliveryNotDue,
		})

		require.NoError(t, err)
		assert.Contains(t, sqlQuery, `"id" IN ((SELECT "reservation_id" FROM "reservation_lines"`)
		assert.Contains(t, sqlQuery, `"start_day" = '2025-06-01'`)
		assert.Contains(t, sqlQuery, `"delivery_status" = 'NOT_DUE'`)
		assert.NotContains(t, sqlQuery, "LIMIT")
	})
}

func Test_UpdateReservation_ChecksTheExpectedVersion(t *testing.T) {
	// arrange
	reservation := givenReservation()

	// act
	sqlQuery, err := postgresengine.UpdateReservationSQL(reservation, 7)

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `"version" = 7`)
	assert.Contains(t, sqlQuery, `"version"=3`, "Should write the new version")
	assert.NotContains(t, sqlQuery, `"created_at"`, "Should never rewrite the creation time")
}

func Test_Movements_UsesTheConfiguredTableAndFilters(t *testing.T) {
	// arrange
	product := uuid.New()
	filter := inventory.BuildMovementFilter().
		ForProducts(product).
		OfKinds(inventory.MovementReserve, inventory.MovementRelease).
		WithLimit(20).
		Finalize()

	// act
	sqlQuery, err := postgresengine.MovementsSQL(filter, postgresengine.WithMovementTableName("ledger"))

	// assert
	require.NoError(t, err)
	assert.Contains(t, sqlQuery, `FROM "ledger"`)
	assert.Contains(t, sqlQuery, `ORDER BY "sequence_number" ASC`)
	assert.Contains(t, sqlQuery, `"kind" IN ('RELEASE', 'RESERVE')`)
	assert.Contains(t, sqlQuery, product.String())
	assert.Contains(t, sqlQuery, "LIMIT 20")
}
