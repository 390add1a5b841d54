// Package pgtesthelpers provides test utilities for running the PostgreSQL store against a real database
// with any of the supported adapters.
//
// Tests using it are skipped unless a database is configured.
//
// Environment Variables:
//
//	RENTAL_TEST_DB_DSN: DSN of a disposable test database; tests are skipped when unset
//	ADAPTER_TYPE: selects adapter (pgx, sql, sqlx), default pgx
package pgtesthelpers
