package config

import (
	"database/sql"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

const (
	driverPostgres = "postgres"

	sqlMaxOpenConnections = 50
	sqlMaxIdleConnections = 2
	sqlMaxConnLifetime    = time.Hour
	sqlMaxConnIdleTime    = 5 * time.Minute
)

// NewSQLDB opens a lib/pq backed *sql.DB with the pool tuning applied. It does not connect.
func NewSQLDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open(driverPostgres, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(sqlMaxOpenConnections)
	db.SetMaxIdleConns(sqlMaxIdleConnections)
	db.SetConnMaxLifetime(sqlMaxConnLifetime)
	db.SetConnMaxIdleTime(sqlMaxConnIdleTime)

	return db, nil
}
