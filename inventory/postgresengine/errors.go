package postgresengine

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
)

// mapDBError marks serialization failures and deadlocks as inventory.ErrConcurrencyConflict,
// so callers can retry them like a lost version check.
func mapDBError(err error) error {
	if err == nil || errors.Is(err, inventory.ErrConcurrencyConflict) {
		return err
	}

	if isRetryableSQLState(sqlState(err)) {
		return errors.Join(inventory.ErrConcurrencyConflict, err)
	}

	return err
}

func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}

	return ""
}

func isRetryableSQLState(code string) bool {
	return code == sqlStateSerializationFailure || code == sqlStateDeadlockDetected
}
