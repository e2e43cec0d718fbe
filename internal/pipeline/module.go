// Package pipeline provides the sales pipeline bounded context module.
package pipeline

import (
	"context"

	"tourcrm_backend/internal/events"
	apphttp "tourcrm_backend/internal/http"
	leadsrepo "tourcrm_backend/internal/leads/repository"
	"tourcrm_backend/internal/pipeline/domain"
	"tourcrm_backend/internal/pipeline/handler"
	"tourcrm_backend/internal/pipeline/prediction"
	"tourcrm_backend/internal/pipeline/repository"
	"tourcrm_backend/internal/pipeline/service"
	"tourcrm_backend/platform/config"
	"tourcrm_backend/platform/logger"
	"tourcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the pipeline bounded context module implementing http.Module.
type Module struct {
	handler   *handler.Handler
	service   *service.Service
	predictor *prediction.Engine
}

// NewModule creates and initializes the pipeline module with all its dependencies.
func NewModule(pool *pgxpool.Pool, leadsRepo leadsrepo.LeadsRepository, eventBus events.Bus, val *validator.Validator, cfg config.PipelineConfig, log *logger.Logger) (*Module, error) {
	repo := repository.New(pool)

	templates, err := domain.LoadTemplates(cfg.GetPipelineTemplatesFile())
	if err != nil {
		return nil, err
	}

	svc := service.New(repo, templates, eventBus, log)
	predictor := prediction.NewEngine(repo, leadsRepo, templates, cfg.GetPredictionWorkers(), log)

	// Stage changes invalidate the advisory prediction so the next read
	// reflects the new stage.
	eventBus.Subscribe(events.OpportunityStageChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		if e, ok := event.(events.OpportunityStageChanged); ok {
			predictor.Invalidate(e.OpportunityID)
		}
		return nil
	}))

	h := handler.New(svc, predictor, val)

	return &Module{
		handler:   h,
		service:   svc,
		predictor: predictor,
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "pipeline"
}

// Service returns the pipeline service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Predictor returns the advisory prediction engine.
func (m *Module) Predictor() *prediction.Engine {
	return m.predictor
}

// RegisterRoutes mounts pipeline routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/opportunities")
	m.handler.RegisterRoutes(group)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
