package config

import (
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgxMaxConnections    = int32(50)
	pgxMinConnections    = int32(2)
	pgxMaxConnLifetime   = time.Hour
	pgxMaxConnIdleTime   = 5 * time.Minute
	pgxHealthCheckPeriod = time.Minute
	pgxConnectTimeout    = 5 * time.Second
)

// PGXPoolConfig parses dsn and applies the pool tuning. It does not connect.
func PGXPoolConfig(dsn string) (*pgxpool.Config, error) {
	dbConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	dbConfig.MaxConns = pgxMaxConnections
	dbConfig.MinConns = pgxMinConnections
	dbConfig.MaxConnLifetime = pgxMaxConnLifetime
	dbConfig.MaxConnIdleTime = pgxMaxConnIdleTime
	dbConfig.HealthCheckPeriod = pgxHealthCheckPeriod
	dbConfig.ConnConfig.ConnectTimeout = pgxConnectTimeout

	return dbConfig, nil
}
