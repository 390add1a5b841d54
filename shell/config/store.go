package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory/postgresengine"
)

// Adapter selects the database driver the store runs on.
type Adapter string

const (
	AdapterPGX  Adapter = "pgx"
	AdapterSQL  Adapter = "sql"
	AdapterSQLX Adapter = "sqlx"
)

// ErrUnknownAdapter is returned for a DB_ADAPTER value other than pgx, sql or sqlx.
var ErrUnknownAdapter = errors.New("unknown database adapter")

// ParseAdapter parses an adapter name. The empty string selects pgx.
func ParseAdapter(name string) (Adapter, error) {
	switch Adapter(name) {
	case "", AdapterPGX:
		return AdapterPGX, nil
	case AdapterSQL, AdapterSQLX:
		return Adapter(name), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAdapter, name)
	}
}

// AdapterFromEnv reads DB_ADAPTER.
func AdapterFromEnv() (Adapter, error) {
	return ParseAdapter(os.Getenv(EnvDBAdapter))
}

// OpenStore connects to the primary and, if configured, the replica with the given adapter and
// creates a postgresengine.Store on them. The returned function closes all connections.
func OpenStore(ctx context.Context, adapter Adapter, primaryDSN, replicaDSN string, options ...postgresengine.Option) (*postgresengine.Store, func(), error) {
	switch adapter {
	case AdapterPGX:
		return openPGXStore(ctx, primaryDSN, replicaDSN, options)
	case AdapterSQL:
		return openSQLStore(ctx, primaryDSN, replicaDSN, options)
	case AdapterSQLX:
		return openSQLXStore(ctx, primaryDSN, replicaDSN, options)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, adapter)
	}
}

func openPGXPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	dbConfig, err := PGXPoolConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, dbConfig)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

func openPGXStore(ctx context.Context, primaryDSN, replicaDSN string, options []postgresengine.Option) (*postgresengine.Store, func(), error) {
	primary, err := openPGXPool(ctx, primaryDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to primary database: %w", err)
	}

	var replica *pgxpool.Pool
	if replicaDSN != "" {
		if replica, err = openPGXPool(ctx, replicaDSN); err != nil {
			primary.Close()
			return nil, nil, fmt.Errorf("failed to connect to replica database: %w", err)
		}
	}

	closeAll := func() {
		primary.Close()
		if replica != nil {
			replica.Close()
		}
	}

	store, err := postgresengine.NewStoreFromPGXPoolAndReplica(primary, replica, options...)
	if err != nil {
		closeAll()
		return nil, nil, err
	}

	return store, closeAll, nil
}

func openSQLStore(ctx context.Context, primaryDSN, replicaDSN string, options []postgresengine.Option) (*postgresengine.Store, func(), error) {
	primary, err := NewSQLDB(primaryDSN)
	if err == nil {
		err = primary.PingContext(ctx)
	}

	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to primary database: %w", err)
	}

	closers := []func() error{primary.Close}

	if replicaDSN == "" {
		store, err := postgresengine.NewStoreFromSQLDB(primary, options...)
		return finishOpen(store, closers, err)
	}

	replica, err := NewSQLDB(replicaDSN)
	if err == nil {
		closers = append(closers, replica.Close)
		err = replica.PingContext(ctx)
	}

	if err != nil {
		closeQuietly(closers)
		return nil, nil, fmt.Errorf("failed to connect to replica database: %w", err)
	}

	store, err := postgresengine.NewStoreFromSQLDBAndReplica(primary, replica, options...)

	return finishOpen(store, closers, err)
}

func openSQLXStore(ctx context.Context, primaryDSN, replicaDSN string, options []postgresengine.Option) (*postgresengine.Store, func(), error) {
	primary, err := NewSQLX(primaryDSN)
	if err == nil {
		err = primary.PingContext(ctx)
	}

	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to primary database: %w", err)
	}

	closers := []func() error{primary.Close}

	var replica *sqlx.DB
	if replicaDSN != "" {
		replica, err = NewSQLX(replicaDSN)
		if err == nil {
			closers = append(closers, replica.Close)
			err = replica.PingContext(ctx)
		}

		if err != nil {
			closeQuietly(closers)
			return nil, nil, fmt.Errorf("failed to connect to replica database: %w", err)
		}
	}

	store, err := postgresengine.NewStoreFromSQLXAndReplica(primary, replica, options...)

	return finishOpen(store, closers, err)
}

func finishOpen(store *postgresengine.Store, closers []func() error, err error) (*postgresengine.Store, func(), error) {
	if err != nil {
		closeQuietly(closers)
		return nil, nil, err
	}

	return store, func() { closeQuietly(closers) }, nil
}

func closeQuietly(closers []func() error) {
	for _, closeFn := range closers {
		_ = closeFn() // ignore error
	}
}
