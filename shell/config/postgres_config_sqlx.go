package config

import (
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

// NewSQLX opens a lib/pq backed *sqlx.DB with the same pool tuning as NewSQLDB. It does not connect.
func NewSQLX(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverPostgres, dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(sqlMaxOpenConnections)
	db.SetMaxIdleConns(sqlMaxIdleConnections)
	db.SetConnMaxLifetime(sqlMaxConnLifetime)
	db.SetConnMaxIdleTime(sqlMaxConnIdleTime)

	return db, nil
}
