package adapters

import (
	"context"
	"database/sql"
)

// SQLAdapter implements DBAdapter for sql.DB, e.g. opened with the lib/pq driver.
type SQLAdapter struct {
	db        *sql.DB
	replicaDB *sql.DB // optional replica for read-only transactions
}

// NewSQLAdapter creates a new SQL adapter.
func NewSQLAdapter(db *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db}
}

// NewSQLAdapterWithReplica creates a new SQL adapter with a primary and a replica database.
func NewSQLAdapterWithReplica(db *sql.DB, replica *sql.DB) *SQLAdapter {
	return &SQLAdapter{db: db, replicaDB: replica}
}

// Begin starts a transaction on the database selected by mode.
func (s *SQLAdapter) Begin(ctx context.Context, mode TxMode) (DBTx, error) {
	db := s.db
	if mode == ReadOnlyReplica && s.replicaDB != nil {
		db = s.replicaDB
	}

	tx, err := db.BeginTx(ctx, stdTxOptions(mode))
	if err != nil {
		return nil, err
	}

	return &stdTx{tx: tx}, nil
}

// Exec executes a statement on the primary outside a transaction.
func (s *SQLAdapter) Exec(ctx context.Context, query string) (DBResult, error) {
	result, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return nil, err
	}

	return &stdResult{result: result}, nil
}
