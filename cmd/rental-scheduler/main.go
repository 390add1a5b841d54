// Command rental-scheduler runs the quote expiration and delivery readiness passes against PostgreSQL
// and relays persisted reservation events from the outbox to the log.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/AntonStoeckl/rental-reservation-engine/booking"
	"github.com/AntonStoeckl/rental-reservation-engine/booking/scheduler"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory/oteladapters"
	"github.com/AntonStoeckl/rental-reservation-engine/inventory/postgresengine"
	"github.com/AntonStoeckl/rental-reservation-engine/shell/config"
)

func main() {
	if err := run(); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}

		log.Fatalf("rental-scheduler failed: %v", err)
	}
}

func run() error {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logLevel := slog.LevelInfo
	if cfg.Debug {
		logLevel = slog.LevelDebug
	}

	slogLogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	logger := oteladapters.NewSlogBridgeLoggerWithHandler(slogLogger.Handler())

	var metrics inventory.MetricsCollector
	var tracing inventory.TracingCollector

	if cfg.ObservabilityEnabled {
		providers, err := config.NewObservabilityConfig(ctx, serviceName, serviceVersion, config.OTLPEndpoint())
		if err != nil {
			return fmt.Errorf("failed to set up observability: %w", err)
		}

		defer func() {
			if err := providers.Shutdown(); err != nil {
				log.Printf("observability shutdown failed: %v", err)
			}
		}()

		metrics = oteladapters.NewMetricsCollector(otel.Meter(serviceName))
		tracing = oteladapters.NewTracingCollector(otel.Tracer(serviceName))
	}

	adapter, err := config.AdapterFromEnv()
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "using database adapter", "adapter", string(adapter))

	storeOptions := []postgresengine.Option{postgresengine.WithContextualLogger(logger)}
	if cfg.ObservabilityEnabled {
		storeOptions = append(storeOptions, postgresengine.WithMetrics(metrics), postgresengine.WithTracing(tracing))
	}

	store, closeStore, err := config.OpenStore(ctx, adapter, config.PrimaryDSN(), config.ReplicaDSN(), storeOptions...)
	if err != nil {
		return err
	}
	defer closeStore()

	if cfg.CreateSchema {
		if err := store.CreateSchema(ctx); err != nil {
			return fmt.Errorf("failed to create schema: %w", err)
		}
	}

	outbox := postgresengine.NewOutboxNotifier(store)

	engineOptions := []booking.Option{
		booking.WithNotifier(outbox),
		booking.WithContextualLogger(logger),
	}
	if cfg.ObservabilityEnabled {
		engineOptions = append(engineOptions, booking.WithMetrics(metrics), booking.WithTracing(tracing))
	}

	engine, err := booking.NewEngine(store, engineOptions...)
	if err != nil {
		return fmt.Errorf("failed to create booking engine: %w", err)
	}

	runnerOptions := []scheduler.Option{
		scheduler.WithInterval(cfg.Interval),
		scheduler.WithBatchLimit(cfg.BatchLimit),
		scheduler.WithContextualLogger(logger),
	}
	if cfg.ObservabilityEnabled {
		runnerOptions = append(runnerOptions, scheduler.WithMetrics(metrics))
	}

	runner, err := scheduler.NewRunner(newRetryingEngine(engine, logger, metrics), runnerOptions...)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	relay := &outboxRelay{
		source:    outbox,
		sink:      booking.NewLogNotifier(slogLogger),
		logger:    logger,
		batchSize: cfg.RelayBatchSize,
	}

	if cfg.RunOnce {
		report, err := runner.RunOnce(ctx)
		if err != nil {
			return err
		}

		if _, err := relay.relayOnce(ctx); err != nil {
			return err
		}

		log.Printf("expired %d (%d failed), marked due %d (%d failed)",
			report.Expired, report.ExpireFailed, report.MarkedDue, report.MarkFailed)

		return nil
	}

	if cfg.RelayInterval > 0 {
		go relay.run(ctx, cfg.RelayInterval)
	}

	logger.InfoContext(ctx, "scheduler started", "interval", cfg.Interval.String(), "batch_limit", cfg.BatchLimit)

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx)
	}()

	<-ctx.Done()
	logger.InfoContext(context.WithoutCancel(ctx), "shutdown signal received")

	select {
	case err := <-done:
		return err
	case <-time.After(shutdownTimeout):
		return errors.New("scheduler shutdown timeout")
	}
}
