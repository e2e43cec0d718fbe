package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tourcrm_backend/internal/analytics"
	"tourcrm_backend/internal/events"
	"tourcrm_backend/internal/followup"
	followuprepo "tourcrm_backend/internal/followup/repository"
	"tourcrm_backend/internal/funnel"
	apphttp "tourcrm_backend/internal/http"
	"tourcrm_backend/internal/http/router"
	"tourcrm_backend/internal/journey"
	"tourcrm_backend/internal/leads"
	"tourcrm_backend/internal/notification"
	"tourcrm_backend/internal/payments"
	"tourcrm_backend/internal/pipeline"
	ticketrepo "tourcrm_backend/internal/ticketing/repository"
	ticketsvc "tourcrm_backend/internal/ticketing/service"
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

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

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
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notification module subscribes to domain events (not HTTP-facing)
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

	// Funnel module listens to lead and pipeline events (not HTTP-facing)
	funnelModule := funnel.NewModule(pool, eventBus, log)
	funnelModule.RegisterHandlers(eventBus)

	analyticsModule := analytics.NewModule(pool, funnelModule.Repository(), val, log)

	// Collaborator services for the journey orchestrator
	tickets := ticketsvc.New(ticketrepo.New(pool), log)
	paymentGateway := payments.NewGateway(cfg, log)
	sequencer := followup.NewSequencer(cfg, followuprepo.New(pool), log)
	if cfg.IsPaymentEnabled() {
		log.Info("stripe payment gateway enabled")
	}
	if cfg.IsFollowUpEnabled() {
		log.Info("follow-up sequencer enabled", "model", cfg.GetFollowUpModel())
	}

	journeyModule := journey.NewModule(
		pool,
		leadsModule.Service(),
		pipelineModule.Service(),
		funnelModule.Service(),
		tickets,
		notificationModule.Dispatcher(),
		paymentGateway,
		sequencer,
		eventBus,
		val,
		cfg,
		log,
	)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			pipelineModule,
			analyticsModule,
			journeyModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
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

	return fmt.Errorf("%s: %w", name, lastErr)
}
