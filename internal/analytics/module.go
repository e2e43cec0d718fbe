// Package analytics provides the conversion analytics bounded context module.
package analytics

import (
	"tourcrm_backend/internal/analytics/handler"
	"tourcrm_backend/internal/analytics/repository"
	"tourcrm_backend/internal/analytics/service"
	funnelrepo "tourcrm_backend/internal/funnel/repository"
	apphttp "tourcrm_backend/internal/http"
	"tourcrm_backend/platform/logger"
	"tourcrm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the analytics bounded context module implementing http.Module.
// It is a pure read model over funnel records and closed deals.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates the analytics module. It reads funnel records through the
// funnel context's repository rather than duplicating that persistence layer.
func NewModule(pool *pgxpool.Pool, funnels funnelrepo.FunnelRepository, val *validator.Validator, log *logger.Logger) *Module {
	deals := repository.New(pool)
	svc := service.New(funnels, deals, log)

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "analytics"
}

// Service returns the analytics service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts analytics routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/analytics"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
