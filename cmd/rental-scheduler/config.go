package main

import (
	"flag"
	"time"

	"github.com/AntonStoeckl/rental-reservation-engine/booking/scheduler"
)

const (
	serviceName    = "rental-scheduler"
	serviceVersion = "dev"

	defaultRelayInterval  = 5 * time.Second
	defaultRelayBatchSize = 100
	shutdownTimeout       = 5 * time.Second
)

// Config holds the command line settings of the scheduler binary.
type Config struct {
	Interval             time.Duration
	BatchLimit           int
	RelayInterval        time.Duration
	RelayBatchSize       int
	RunOnce              bool
	CreateSchema         bool
	ObservabilityEnabled bool
	Debug                bool
}

func parseFlags(args []string) (Config, error) {
	var cfg Config

	flags := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	flags.DurationVar(&cfg.Interval, "interval", scheduler.DefaultInterval, "Time between two scheduler runs")
	flags.IntVar(&cfg.BatchLimit, "batch-limit", scheduler.DefaultBatchLimit, "Maximum number of reservations one pass picks up")
	flags.DurationVar(&cfg.RelayInterval, "relay-interval", defaultRelayInterval, "Time between two outbox relay runs (0 disables the relay)")
	flags.IntVar(&cfg.RelayBatchSize, "relay-batch-size", defaultRelayBatchSize, "Maximum number of outbox events relayed per run")
	flags.BoolVar(&cfg.RunOnce, "run-once", false, "Run both passes once and exit")
	flags.BoolVar(&cfg.CreateSchema, "create-schema", false, "Create the database schema if it does not exist")
	flags.BoolVar(&cfg.ObservabilityEnabled, "observability-enabled", false, "Export traces and metrics via OTLP")
	flags.BoolVar(&cfg.Debug, "debug", false, "Log SQL statements and timings")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	return cfg, nil
}
