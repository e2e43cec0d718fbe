package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tourcrm_backend/internal/events"
	"tourcrm_backend/internal/funnel"
	"tourcrm_backend/internal/leads"
	"tourcrm_backend/internal/notification"
	"tourcrm_backend/internal/pipeline"
	"tourcrm_backend/internal/scheduler"
	"tourcrm_backend/platform/config"
	"tourcrm_backend/platform/db"
	"tourcrm_backend/platform/logger"
	"tourcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	// Sweeps publish domain events; the notification handlers deliver them
	// from this process too.
	notificationModule := notification.NewModule(cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	leadsModule, err := leads.NewModule(pool, eventBus, val, cfg, log)
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	pipelineModule, err := pipeline.NewModule(pool, leadsModule.Repository(), eventBus, val, cfg, log)
	if err != nil {
		log.Error("failed to initialize pipeline module", "error", err)
		panic("failed to initialize pipeline module: " + err.Error())
	}

	funnelModule := funnel.NewModule(pool, eventBus, log)
	funnelModule.RegisterHandlers(eventBus)

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	sweeps := scheduler.NewSweepDispatcher(client, log)
	go sweeps.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, scheduler.WorkerDeps{
		Scoring:     leadsModule.ScoringService(),
		Funnels:     funnelModule.Service(),
		Pipeline:    pipelineModule.Service(),
		Predictions: pipelineModule.Predictor(),
		Leads:       leadsModule.Repository(),
		Bus:         eventBus,
	}, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
