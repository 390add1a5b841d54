// Package postgresengine implements inventory.Store on PostgreSQL.
//
// It supports three connection types through internal adapters:
//   - pgx/v5 connection pools (NewStoreFromPGXPool)
//   - database/sql, e.g. with the lib/pq driver (NewStoreFromSQLDB)
//   - sqlx (NewStoreFromSQLX)
//
// Every Update runs in one READ COMMITTED transaction. Product rows are locked with SELECT ... FOR UPDATE
// in ascending id order before commitments are read for a decision, and reservation rows are written
// with an optimistic version check. Lost version checks, serialization failures and deadlocks are
// reported as inventory.ErrConcurrencyConflict.
//
// View runs a read-only transaction. With a replica configured and a context built with
// inventory.WithEventualConsistency it reads from the replica.
//
// All SQL is built with goqu. The schema is created with Store.CreateSchema.
package postgresengine
