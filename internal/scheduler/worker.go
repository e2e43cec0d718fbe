package scheduler

import (
	"context"
	"fmt"
	"time"

	"tourcrm_backend/internal/events"
	funnelsvc "tourcrm_backend/internal/funnel/service"
	leadsrepo "tourcrm_backend/internal/leads/repository"
	"tourcrm_backend/internal/leads/scoring"
	"tourcrm_backend/internal/pipeline/prediction"
	pipesvc "tourcrm_backend/internal/pipeline/service"
	"tourcrm_backend/platform/config"
	"tourcrm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const (
	defaultScoreWindowHours    = 24
	defaultScorePerTenantLimit = 200
	defaultFollowUpSweepLimit  = 100
	defaultFunnelIdleHours     = 72
)

// WorkerDeps carries the services the background worker drives.
type WorkerDeps struct {
	Scoring     *scoring.Service
	Funnels     *funnelsvc.Service
	Pipeline    *pipesvc.Service
	Predictions *prediction.Engine
	Leads       leadsrepo.LeadsRepository
	Bus         events.Bus
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	deps   WorkerDeps
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, deps WorkerDeps, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		deps:   deps,
		log:    log,
	}

	mux.HandleFunc(TaskScoreRefresh, w.handleScoreRefresh)
	mux.HandleFunc(TaskFollowUpSweep, w.handleFollowUpSweep)
	mux.HandleFunc(TaskFunnelStaleSweep, w.handleFunnelStaleSweep)
	mux.HandleFunc(TaskSLACheck, w.handleSLACheck)
	mux.HandleFunc(TaskPredictionRefresh, w.handlePredictionRefresh)

	return w, nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}

func (w *Worker) handleScoreRefresh(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseScoreRefreshPayload(task)
	if err != nil {
		return err
	}
	if payload.WindowHours < 1 {
		payload.WindowHours = defaultScoreWindowHours
	}
	if payload.PerTenantLimit < 1 {
		payload.PerTenantLimit = defaultScorePerTenantLimit
	}

	since := time.Now().UTC().Add(-time.Duration(payload.WindowHours) * time.Hour)
	refreshed, err := w.deps.Scoring.RefreshRecentlyTouched(ctx, since, payload.PerTenantLimit)
	if err != nil {
		return err
	}
	if refreshed > 0 {
		w.log.Info("lead scores refreshed", "count", refreshed)
	}
	return nil
}

func (w *Worker) handleFollowUpSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFollowUpSweepPayload(task)
	if err != nil {
		return err
	}
	if payload.Limit < 1 {
		payload.Limit = defaultFollowUpSweepLimit
	}

	due, err := w.deps.Leads.ListDueFollowUps(ctx, time.Now().UTC(), payload.Limit)
	if err != nil {
		return err
	}

	for _, interaction := range due {
		if err := w.deps.Leads.CompleteFollowUp(ctx, interaction.ID, interaction.TenantID); err != nil {
			w.log.Warn("follow-up completion failed", "interaction_id", interaction.ID, "error", err)
			continue
		}

		notes := ""
		if interaction.Notes != nil {
			notes = *interaction.Notes
		}
		w.deps.Bus.Publish(ctx, events.LeadFollowUpDue{
			BaseEvent:     events.NewBaseEvent(),
			LeadID:        interaction.LeadID,
			InteractionID: interaction.ID,
			TenantID:      interaction.TenantID,
			Notes:         notes,
		})
	}
	return nil
}

func (w *Worker) handleFunnelStaleSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseFunnelStaleSweepPayload(task)
	if err != nil {
		return err
	}
	if payload.IdleHours < 1 {
		payload.IdleHours = defaultFunnelIdleHours
	}

	flagged, err := w.deps.Funnels.SweepStale(ctx, time.Duration(payload.IdleHours)*time.Hour)
	if err != nil {
		return err
	}
	if flagged > 0 {
		w.log.Info("stale funnels flagged", "count", flagged)
	}
	return nil
}

func (w *Worker) handleSLACheck(ctx context.Context, _ *asynq.Task) error {
	breached, err := w.deps.Pipeline.CheckSLABreaches(ctx)
	if err != nil {
		return err
	}
	if breached > 0 {
		w.log.Info("sla breaches detected", "count", breached)
	}
	return nil
}

func (w *Worker) handlePredictionRefresh(ctx context.Context, _ *asynq.Task) error {
	refreshed, err := w.deps.Predictions.RefreshOpen(ctx)
	if err != nil {
		return err
	}
	if refreshed > 0 {
		w.log.Info("stage predictions refreshed", "count", refreshed)
	}
	return nil
}
