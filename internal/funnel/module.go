package funnel

import (
	"context"

	"tourcrm_backend/internal/events"
	funneldomain "tourcrm_backend/internal/funnel/domain"
	"tourcrm_backend/internal/funnel/repository"
	"tourcrm_backend/internal/funnel/service"
	leadsdomain "tourcrm_backend/internal/leads/domain"
	"tourcrm_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the funnel tracking module. It is not HTTP-facing: records are
// driven by domain events and read through the analytics module.
type Module struct {
	service *service.Service
	repo    *repository.Repository
	log     *logger.Logger
}

func NewModule(pool *pgxpool.Pool, eventBus events.Bus, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)
	return &Module{service: svc, repo: repo, log: log}
}

func (m *Module) Name() string {
	return "funnel"
}

// Service returns the funnel service for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the funnel repository for analytics reads.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterHandlers subscribes the funnel to lead lifecycle events so records
// stay current without any caller having to remember the funnel exists.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadCaptured{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadCaptured)
		if !ok {
			return nil
		}
		_, err := m.service.RecordStageEvent(ctx, service.StageEventParams{
			TenantID: e.TenantID,
			LeadID:   e.LeadID,
			Stage:    funneldomain.StageLeadCaptured,
			Channel:  e.Channel,
		})
		if err != nil {
			m.log.Error("funnel capture record failed", "error", err, "leadId", e.LeadID)
		}
		return nil
	}))

	bus.Subscribe(events.LeadStatusChanged{}.EventName(), events.HandlerFunc(func(ctx context.Context, event events.Event) error {
		e, ok := event.(events.LeadStatusChanged)
		if !ok {
			return nil
		}
		stage, ok := statusToFunnelStage(e.NewStatus)
		if !ok {
			return nil
		}
		_, err := m.service.RecordStageEvent(ctx, service.StageEventParams{
			TenantID: e.TenantID,
			LeadID:   e.LeadID,
			Stage:    stage,
		})
		if err != nil {
			m.log.Error("funnel stage record failed", "error", err, "leadId", e.LeadID, "stage", stage)
		}
		return nil
	}))
}

// statusToFunnelStage maps lead lifecycle statuses onto the funnel analysis
// stages. Statuses outside the happy path (lost, nurturing) do not advance
// the funnel.
func statusToFunnelStage(status string) (string, bool) {
	switch status {
	case leadsdomain.StatusContacted:
		return funneldomain.StageContacted, true
	case leadsdomain.StatusQualified:
		return funneldomain.StageQualified, true
	case leadsdomain.StatusProposalSent:
		return funneldomain.StageProposalSent, true
	case leadsdomain.StatusWon:
		return funneldomain.StageClosedWon, true
	default:
		return "", false
	}
}
