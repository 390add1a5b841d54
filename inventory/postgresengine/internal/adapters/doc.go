// Package adapters provide database adapter implementations for the PostgreSQL store.
//
// This package implements the adapter pattern to support multiple PostgreSQL database libraries:
// pgx.Pool, sql.DB, and sqlx.DB. All adapters provide equivalent functionality through
// a common DBAdapter interface, so the store works with any supported connection type.
//
// Read-only transactions are routed to an optional replica, read-write transactions and
// plain statements always use the primary.
package adapters
