package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/backend"
	"fintrack/internal/config"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.Config{
		Component: applog.ComponentWorker,
	})
	applog.SetDefault(logger)

	logger.Info("Starting overdue-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	factory := backend.NewFactory(logger.Logger)
	result, err := factory.CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", "error", err)
			}
		}
	}()

	var events services.EventPublisher
	if result.Events != nil {
		events = result.Events
	}
	sweeper := services.NewOverdueSweeper(result.Store, events)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Periodic sweep: pending transactions whose due date has passed are
	// flipped to overdue in the store.
	g.Go(func() error {
		logger.Info("Overdue sweeper configured", "interval", cfg.SweepInterval)

		if count, err := sweeper.Sweep(ctx, time.Now()); err != nil {
			logger.Error("Initial sweep failed", "error", err)
		} else {
			logger.Info("Initial sweep complete", applog.FieldSweptCount, count)
		}

		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				count, err := sweeper.Sweep(ctx, now)
				if err != nil {
					logger.Error("Periodic sweep failed", "error", err)
					continue
				}
				logger.Info("Periodic sweep complete",
					applog.FieldSweptCount, count,
					"next_check", now.Add(cfg.SweepInterval).Format("15:04:05"))
			}
		}
	})

	// When a broker is configured, mirror the change-event stream into the
	// worker log. Consumers reconnect with backoff after a dropped channel.
	if result.Events != nil {
		client := result.Events
		g.Go(func() error {
			for {
				err := client.ConsumeLedgerEvents(ctx, func(e *amqp.LedgerEvent) error {
					logger.Info("Ledger changed",
						"kind", e.Kind,
						"entity_id", e.EntityID,
						applog.FieldGroupID, e.GroupID)
					return nil
				})
				if errors.Is(err, context.Canceled) {
					return err
				}
				logger.Warn("Consume loop ended, reconnecting", "error", err)
				if err := client.Reconnect(ctx); err != nil {
					return err
				}
			}
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Overdue-worker shutdown complete")
}
