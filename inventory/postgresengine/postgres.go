package postgresengine

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory/postgresengine/internal/adapters"
)

// Store is the PostgreSQL implementation of inventory.Store.
type Store struct {
	db               adapters.DBAdapter
	tables           tables
	logger           inventory.Logger
	contextualLogger inventory.ContextualLogger
	metricsCollector inventory.MetricsCollector
	tracingCollector inventory.TracingCollector
}

// NewStoreFromPGXPool creates a new Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options)
}

// NewStoreFromPGXPoolAndReplica creates a new Store that reads from replica when the context asks for
// eventual consistency. A nil replica is allowed and means that all reads go to the primary.
func NewStoreFromPGXPoolAndReplica(db *pgxpool.Pool, replica *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapterWithReplica(db, replica), options)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options)
}

// NewStoreFromSQLDBAndReplica creates a new Store on a sql.DB primary and an optional replica.
func NewStoreFromSQLDBAndReplica(db *sql.DB, replica *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapterWithReplica(db, replica), options)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options)
}

// NewStoreFromSQLXAndReplica creates a new Store on a sqlx.DB primary and an optional replica.
func NewStoreFromSQLXAndReplica(db *sqlx.DB, replica *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, inventory.ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapterWithReplica(db, replica), options)
}

func newStore(db adapters.DBAdapter, options []Option) (*Store, error) {
	s := &Store{
		db:     db,
		tables: defaultTables(),
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// View runs fn in a read-only transaction.
// The transaction is always rolled back, so fn can never persist anything.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx inventory.ReadTx) error) error {
	mode := adapters.ReadOnlyPrimary
	if inventory.GetConsistencyLevel(ctx) == inventory.EventualConsistency {
		mode = adapters.ReadOnlyReplica
	}

	return s.run(ctx, operationView, mode, func(ctx context.Context, t *tx) error {
		return fn(ctx, t)
	})
}

// Update runs fn in a read-write transaction that is committed if fn returns nil.
func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, tx inventory.Tx) error) error {
	return s.run(ctx, operationUpdate, adapters.ReadWrite, func(ctx context.Context, t *tx) error {
		return fn(ctx, t)
	})
}

func (s *Store) run(ctx context.Context, operation string, mode adapters.TxMode, fn func(ctx context.Context, t *tx) error) error {
	tracer, ctx := s.startTxTracing(ctx, operation, mode)
	start := time.Now()

	err := s.runTx(ctx, mode, fn)
	duration := time.Since(start)

	if err != nil {
		errorType := inventory.ErrorType(err)
		s.recordTxMetrics(ctx, operation, statusError, duration)
		s.recordErrorMetrics(ctx, operation, errorType)
		tracer.finishError(errorType, duration)

		return err
	}

	s.recordTxMetrics(ctx, operation, statusSuccess, duration)
	tracer.finishSuccess(duration)

	return nil
}

func (s *Store) runTx(ctx context.Context, mode adapters.TxMode, fn func(ctx context.Context, t *tx) error) error {
	dbTx, err := s.db.Begin(ctx, mode)
	if err != nil {
		s.logError(ctx, logMsgBeginTxFailed, err)
		return mapDBError(errors.Join(inventory.ErrTransactionFailed, err))
	}

	t := &tx{store: s, db: dbTx, qb: queryBuilder{t: s.tables}}

	if fnErr := fn(ctx, t); fnErr != nil {
		s.rollback(ctx, dbTx)
		return mapDBError(fnErr)
	}

	if mode != adapters.ReadWrite {
		s.rollback(ctx, dbTx)
		return nil
	}

	if err := dbTx.Commit(ctx); err != nil {
		s.logError(ctx, logMsgCommitFailed, err)
		return mapDBError(errors.Join(inventory.ErrTransactionFailed, err))
	}

	return nil
}

func (s *Store) rollback(ctx context.Context, dbTx adapters.DBTx) {
	// a canceled context has already rolled the transaction back on the server side
	if err := dbTx.Rollback(context.WithoutCancel(ctx)); err != nil {
		s.logWarn(ctx, logMsgRollbackFailed, logAttrError, err.Error())
	}
}
