package scheduler

import (
	"context"
	"time"

	"tourcrm_backend/platform/logger"
)

const (
	followUpSweepEvery     = time.Minute
	scoreRefreshEvery      = 15 * time.Minute
	slaCheckEvery          = 15 * time.Minute
	funnelStaleSweepEvery  = time.Hour
	predictionRefreshEvery = time.Hour
)

// SweepDispatcher periodically enqueues the recurring maintenance tasks.
// It runs alongside the worker so sweeps keep firing even when the API
// process restarts.
type SweepDispatcher struct {
	client *Client
	log    *logger.Logger
}

func NewSweepDispatcher(client *Client, log *logger.Logger) *SweepDispatcher {
	return &SweepDispatcher{client: client, log: log}
}

func (d *SweepDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	followUp := time.NewTicker(followUpSweepEvery)
	defer followUp.Stop()
	scores := time.NewTicker(scoreRefreshEvery)
	defer scores.Stop()
	sla := time.NewTicker(slaCheckEvery)
	defer sla.Stop()
	stale := time.NewTicker(funnelStaleSweepEvery)
	defer stale.Stop()
	predictions := time.NewTicker(predictionRefreshEvery)
	defer predictions.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-followUp.C:
			d.dispatch("followup sweep", d.client.EnqueueFollowUpSweep(ctx, FollowUpSweepPayload{}))
		case <-scores.C:
			d.dispatch("score refresh", d.client.EnqueueScoreRefresh(ctx, ScoreRefreshPayload{}))
		case <-sla.C:
			d.dispatch("sla check", d.client.EnqueueSLACheck(ctx))
		case <-stale.C:
			d.dispatch("funnel stale sweep", d.client.EnqueueFunnelStaleSweep(ctx, FunnelStaleSweepPayload{}))
		case <-predictions.C:
			d.dispatch("prediction refresh", d.client.EnqueuePredictionRefresh(ctx))
		}
	}
}

func (d *SweepDispatcher) dispatch(name string, err error) {
	if err != nil {
		d.log.Warn("sweep enqueue failed", "task", name, "error", err)
	}
}
