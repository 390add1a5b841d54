package postgresengine

import (
	"github.com/google/uuid"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory/postgresengine/internal/adapters"
)

// NewStoreWithAdapter creates a Store on an arbitrary adapter, e.g. a fake.
func NewStoreWithAdapter(db adapters.DBAdapter, options ...Option) (*Store, error) {
	return newStore(db, options)
}

func MapDBError(err error) error {
	return mapDBError(err)
}

func LockProductsSQL(ids ...uuid.UUID) (string, error) {
	return queryBuilder{t: defaultTables()}.lockProducts(ids)
}

func CommitmentsSQL(query inventory.CommitmentQuery) (string, error) {
	return queryBuilder{t: defaultTables()}.selectCommitments(query)
}

func ReservationIDsSQL(query inventory.ReservationQuery) (string, error) {
	return queryBuilder{t: defaultTables()}.selectReservationIDs(query)
}

func UpdateReservationSQL(r inventory.Reservation, expectedVersion int) (string, error) {
	return queryBuilder{t: defaultTables()}.updateReservation(r, "[]", expectedVersion)
}

func MovementsSQL(filter inventory.MovementFilter, options ...Option) (string, error) {
	s, err := newStore(nil, options)
	if err != nil {
		return "", err
	}

	return queryBuilder{t: s.tables}.selectMovements(filter)
}
