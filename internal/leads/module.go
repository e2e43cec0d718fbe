// Package leads provides the lead management bounded context module.
// This file defines the module that encapsulates all leads setup and route registration.
package leads

import (
	"context"

	"tourcrm_backend/internal/events"
	apphttp "tourcrm_backend/internal/http"
	"tourcrm_backend/internal/leads/handler"
	"tourcrm_backend/internal/leads/repository"
	"tourcrm_backend/internal/leads/scoring"
	"tourcrm_backend/internal/leads/service"
	"tourcrm_backend/platform/config"
	"tourcrm_backend/platform/logger"
	"tourcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	scoring *scoring.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module with all its dependencies.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, val *validator.Validator, cfg config.ScoringConfig, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)

	scoringCfg, err := scoring.LoadConfig(cfg.GetScoringWeightsFile())
	if err != nil {
		return nil, err
	}
	scoringSvc := scoring.New(repo, scoringCfg, cfg.GetScoreCacheTTL(), eventBus, log)

	// Every capture and interaction triggers a score recompute off the request
	// path. The cache entry is dropped first so concurrent reads never serve
	// the pre-interaction score.
	recalculate := events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		switch e := event.(type) {
		case events.LeadCaptured:
			scoringSvc.Invalidate(e.LeadID, e.TenantID)
			if _, err := scoringSvc.Recalculate(ctx, e.LeadID, e.TenantID); err != nil {
				log.Error("lead score recompute failed", "error", err, "leadId", e.LeadID)
			}
		case events.LeadInteractionRecorded:
			scoringSvc.Invalidate(e.LeadID, e.TenantID)
			if _, err := scoringSvc.Recalculate(ctx, e.LeadID, e.TenantID); err != nil {
				log.Error("lead score recompute failed", "error", err, "leadId", e.LeadID)
			}
		}
		return nil
	})
	eventBus.Subscribe(events.LeadCaptured{}.EventName(), recalculate)
	eventBus.Subscribe(events.LeadInteractionRecorded{}.EventName(), recalculate)

	svc := service.New(repo, scoringSvc, eventBus)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		scoring: scoringSvc,
		repo:    repo,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the lead service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// ScoringService returns the scoring engine for external use.
func (m *Module) ScoringService() *scoring.Service {
	return m.scoring
}

// Repository returns the leads repository for modules that compose on top of
// leads data, like the journey orchestrator.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	public := ctx.V1.Group("/leads")
	public.Use(ctx.CaptureRateLimiter.RateLimit())
	m.handler.RegisterPublicRoutes(public)

	leadsGroup := ctx.Protected.Group("/leads")
	m.handler.RegisterRoutes(leadsGroup)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
