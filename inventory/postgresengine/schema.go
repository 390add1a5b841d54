package postgresengine

import (
	"context"
	"errors"
	"fmt"

	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
)

type tables struct {
	products      string
	instances     string
	reservations  string
	lines         string
	lineInstances string
	movements     string
	outbox        string
}

func defaultTables() tables {
	return tables{
		products:      "products",
		instances:     "product_instances",
		reservations:  "reservations",
		lines:         "reservation_lines",
		lineInstances: "line_instances",
		movements:     "stock_movements",
		outbox:        "outbox_events",
	}
}

// schemaDDL is idempotent. Money columns are NUMERIC, line periods are inclusive DATE ranges.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	unit_price NUMERIC(14,2) NOT NULL CHECK (unit_price >= 0),
	mode TEXT NOT NULL,
	total_capacity INTEGER NOT NULL DEFAULT 0 CHECK (total_capacity >= 0),
	available_count INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS %[2]s (
	id UUID PRIMARY KEY,
	product_id UUID NOT NULL REFERENCES %[1]s (id),
	serial TEXT NOT NULL,
	status TEXT NOT NULL,
	UNIQUE (product_id, serial)
);

CREATE TABLE IF NOT EXISTS %[3]s (
	id UUID PRIMARY KEY,
	reference TEXT NOT NULL UNIQUE,
	customer_id TEXT NOT NULL,
	status TEXT NOT NULL,
	in_progress BOOLEAN NOT NULL DEFAULT FALSE,
	period_start DATE NOT NULL,
	period_end DATE NOT NULL,
	gross NUMERIC(14,2) NOT NULL,
	discount_percent NUMERIC(5,2) NOT NULL DEFAULT 0,
	discount_fixed NUMERIC(14,2) NOT NULL DEFAULT 0,
	net NUMERIC(14,2) NOT NULL,
	paid NUMERIC(14,2) NOT NULL DEFAULT 0,
	expires_at TIMESTAMPTZ NULL,
	stock_committed BOOLEAN NOT NULL DEFAULT FALSE,
	version INTEGER NOT NULL,
	comments JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS %[3]s_status_expires_idx ON %[3]s (status, expires_at);

CREATE TABLE IF NOT EXISTS %[4]s (
	id UUID PRIMARY KEY,
	reservation_id UUID NOT NULL REFERENCES %[3]s (id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	product_id UUID NOT NULL REFERENCES %[1]s (id),
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	unit_price NUMERIC(14,2) NOT NULL,
	start_day DATE NOT NULL,
	end_day DATE NOT NULL CHECK (end_day >= start_day),
	delivery_status TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS %[4]s_product_period_idx ON %[4]s (product_id, start_day, end_day);
CREATE INDEX IF NOT EXISTS %[4]s_reservation_idx ON %[4]s (reservation_id);

CREATE TABLE IF NOT EXISTS %[5]s (
	line_id UUID NOT NULL REFERENCES %[4]s (id) ON DELETE CASCADE,
	instance_id UUID NOT NULL REFERENCES %[2]s (id),
	position INTEGER NOT NULL,
	PRIMARY KEY (line_id, instance_id)
);

CREATE TABLE IF NOT EXISTS %[6]s (
	sequence_number BIGSERIAL PRIMARY KEY,
	id UUID NOT NULL UNIQUE,
	product_id UUID NOT NULL,
	instance_id UUID NULL,
	kind TEXT NOT NULL,
	quantity INTEGER NOT NULL,
	snapshot JSONB NULL,
	instance_status_after TEXT NULL,
	reservation_id UUID NULL,
	line_id UUID NULL,
	actor_id TEXT NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	occurred_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS %[6]s_product_idx ON %[6]s (product_id, sequence_number);
CREATE INDEX IF NOT EXISTS %[6]s_reservation_idx ON %[6]s (reservation_id);

CREATE TABLE IF NOT EXISTS %[7]s (
	sequence_number BIGSERIAL PRIMARY KEY,
	id UUID NOT NULL UNIQUE,
	event_type TEXT NOT NULL,
	reservation_id UUID NOT NULL,
	payload JSONB NOT NULL,
	occurred_at TIMESTAMPTZ NOT NULL,
	published_at TIMESTAMPTZ NULL
);

CREATE INDEX IF NOT EXISTS %[7]s_unpublished_idx ON %[7]s (sequence_number) WHERE published_at IS NULL;
`

// SchemaDDL returns the CREATE statements for the configured table names.
func (s *Store) SchemaDDL() string {
	t := s.tables

	return fmt.Sprintf(schemaDDL, t.products, t.instances, t.reservations, t.lines, t.lineInstances, t.movements, t.outbox)
}

// CreateSchema creates all tables and indexes that do not exist yet.
func (s *Store) CreateSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, s.SchemaDDL()); err != nil {
		s.logError(ctx, logMsgCreateSchemaFailed, err)
		return errors.Join(inventory.ErrWritingFailed, err)
	}

	return nil
}
