// Package config builds database connections, the PostgreSQL store and the OpenTelemetry providers
// for the rental binaries from environment variables.
//
// Environment:
//   - RENTAL_DB_DSN: primary DSN (default: a local development database)
//   - RENTAL_DB_REPLICA_DSN: optional read replica DSN
//   - DB_ADAPTER: pgx (default), sql or sqlx
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP gRPC endpoint for traces and metrics (default localhost:4317)
package config
