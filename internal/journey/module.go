// Package journey provides the lead journey orchestration module.
package journey

import (
	"tourcrm_backend/internal/events"
	apphttp "tourcrm_backend/internal/http"
	"tourcrm_backend/internal/journey/handler"
	"tourcrm_backend/internal/journey/ports"
	"tourcrm_backend/internal/journey/repository"
	"tourcrm_backend/internal/journey/service"
	"tourcrm_backend/platform/config"
	"tourcrm_backend/platform/logger"
	"tourcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the journey bounded context module implementing http.Module.
// It composes on top of the other modules through the ports package.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

func NewModule(
	pool *pgxpool.Pool,
	leads ports.Leads,
	pipeline ports.Pipeline,
	funnel ports.Attribution,
	tickets ports.Ticketing,
	notifier ports.Notifier,
	paymentGateway ports.PaymentGateway,
	followUp ports.FollowUp,
	eventBus events.Bus,
	val *validator.Validator,
	cfg config.CollaboratorConfig,
	log *logger.Logger,
) *Module {
	repo := repository.New(pool)
	svc := service.New(leads, pipeline, funnel, tickets, notifier, paymentGateway, followUp, repo, eventBus, cfg, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "journey"
}

// Service returns the orchestrator for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts journey routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/journeys"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
