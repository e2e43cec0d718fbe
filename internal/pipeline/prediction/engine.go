// Package prediction estimates win probability for open opportunities.
// Predictions are advisory: they ride alongside the template probability and
// never gate a stage transition.
package prediction

import (
	"context"
	"math"
	"time"

	"tourcrm_backend/internal/leads/repository"
	"tourcrm_backend/internal/pipeline/domain"
	pipelinerepo "tourcrm_backend/internal/pipeline/repository"
	"tourcrm_backend/platform/cache"
	"tourcrm_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const (
	modelVersion = "logistic-2026a"

	cacheTTL     = 15 * time.Minute
	refreshBatch = 200
)

// Result is one advisory prediction set: win probability plus the deal-size,
// closing-time, and churn annotations, each carrying its own confidence.
type Result struct {
	OpportunityID  uuid.UUID
	WinProbability float64
	Confidence     float64
	DealSize       DealSizePrediction
	ClosingTime    ClosingTimePrediction
	ChurnRisk      ChurnRiskPrediction
	ModelVersion   string
	ComputedAt     time.Time
}

// Engine blends opportunity, lead, and engagement features into a logistic
// estimate. It is deterministic for a given input so repeated calls agree.
type Engine struct {
	pipeline  pipelinerepo.PipelineRepository
	leads     repository.LeadsRepository
	templates domain.Templates
	cache     *cache.TTL[Result]
	workers   int64
	log       *logger.Logger
	now       func() time.Time
}

func NewEngine(pipeline pipelinerepo.PipelineRepository, leads repository.LeadsRepository, templates domain.Templates, workers int, log *logger.Logger) *Engine {
	if workers < 1 {
		workers = 1
	}
	return &Engine{
		pipeline:  pipeline,
		leads:     leads,
		templates: templates,
		cache:     cache.NewTTL[Result](cacheTTL),
		workers:   int64(workers),
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Predict returns the advisory win probability for one opportunity, serving
// from cache when warm.
func (e *Engine) Predict(ctx context.Context, opportunityID uuid.UUID, tenantID uuid.UUID) (Result, error) {
	if result, ok := e.cache.Get(opportunityID.String()); ok {
		return result, nil
	}

	opp, err := e.pipeline.GetByID(ctx, opportunityID, tenantID)
	if err != nil {
		return Result{}, err
	}
	result := e.compute(ctx, opp)
	e.cache.Set(opportunityID.String(), result)
	return result, nil
}

// Invalidate drops a cached prediction, typically after a stage change.
func (e *Engine) Invalidate(opportunityID uuid.UUID) {
	e.cache.Invalidate(opportunityID.String())
}

// RefreshOpen recomputes predictions for open opportunities with a bounded
// worker pool. Individual failures are logged and skipped so one bad row
// cannot stall the sweep.
func (e *Engine) RefreshOpen(ctx context.Context) (int, error) {
	opportunities, err := e.pipeline.ListOpen(ctx, refreshBatch)
	if err != nil {
		return 0, err
	}

	sem := semaphore.NewWeighted(e.workers)
	for _, opp := range opportunities {
		if err := sem.Acquire(ctx, 1); err != nil {
			return 0, err
		}
		opp := opp
		go func() {
			defer sem.Release(1)
			result := e.compute(ctx, opp)
			e.cache.Set(opp.ID.String(), result)
		}()
	}
	if err := sem.Acquire(ctx, e.workers); err != nil {
		return 0, err
	}
	return len(opportunities), nil
}

// compute never fails: when lead context cannot be loaded the template
// probability is returned with low confidence so callers always get an
// answer.
func (e *Engine) compute(ctx context.Context, opp pipelinerepo.Opportunity) Result {
	now := e.now()
	template := e.templates[opp.Template]

	lead, leadErr := e.leads.GetByID(ctx, opp.LeadID, opp.TenantID)
	if leadErr != nil {
		e.log.Warn("prediction degraded to template probability",
			"opportunityId", opp.ID, "error", leadErr)
		baseline := template.Probability(opp.CurrentStage)
		return Result{
			OpportunityID:  opp.ID,
			WinProbability: baseline,
			Confidence:     0.2,
			DealSize:       predictDealSize(opp),
			ClosingTime:    predictClosingTime(opp, template, baseline, now),
			ChurnRisk:      ChurnRiskPrediction{Score: 0.5},
			ModelVersion:   modelVersion,
			ComputedAt:     now,
		}
	}

	interactions, err := e.leads.ListInteractions(ctx, opp.LeadID, opp.TenantID)
	if err != nil {
		interactions = nil
	}

	features := extractFeatures(opp, lead, interactions, template, now)
	probability := logistic(score(features))

	return Result{
		OpportunityID:  opp.ID,
		WinProbability: probability,
		Confidence:     confidence(features, len(interactions)),
		DealSize:       predictDealSize(opp),
		ClosingTime:    predictClosingTime(opp, template, probability, now),
		ChurnRisk:      predictChurn(features, len(interactions)),
		ModelVersion:   modelVersion,
		ComputedAt:     now,
	}
}

func logistic(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
