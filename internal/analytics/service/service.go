package service

import (
	"context"
	"time"

	"tourcrm_backend/internal/analytics/repository"
	"tourcrm_backend/internal/analytics/transport"
	funnelrepo "tourcrm_backend/internal/funnel/repository"
	"tourcrm_backend/platform/apperr"
	"tourcrm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultWindowDays  = 30
	cohortLookbackDays = 365
)

// Service is the read-only analytics engine. It loads raw funnel records and
// closed deals and reduces them with the pure aggregation functions in this
// package; nothing here mutates state.
type Service struct {
	funnels funnelrepo.FunnelRepository
	deals   repository.DealsRepository
	log     *logger.Logger
	now     func() time.Time
}

func New(funnels funnelrepo.FunnelRepository, deals repository.DealsRepository, log *logger.Logger) *Service {
	return &Service{
		funnels: funnels,
		deals:   deals,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) FunnelReport(ctx context.Context, tenantID uuid.UUID, days int) (transport.FunnelAnalysisResponse, error) {
	days = normalizeWindow(days)
	records, err := s.funnels.ListByTenantSince(ctx, tenantID, s.now().AddDate(0, 0, -days))
	if err != nil {
		return transport.FunnelAnalysisResponse{}, err
	}
	return AnalyzeFunnel(records, days), nil
}

func (s *Service) ChannelReport(ctx context.Context, tenantID uuid.UUID, days int) (transport.ChannelPerformanceResponse, error) {
	days = normalizeWindow(days)
	records, err := s.funnels.ListByTenantSince(ctx, tenantID, s.now().AddDate(0, 0, -days))
	if err != nil {
		return transport.ChannelPerformanceResponse{}, err
	}
	return ChannelPerformance(records, days), nil
}

// Attribution distributes a converted lead's value across its touchpoints.
// Leads that have not converted carry no value to distribute.
func (s *Service) Attribution(ctx context.Context, tenantID uuid.UUID, leadID uuid.UUID, model string) (transport.AttributionResponse, error) {
	rec, err := s.funnels.GetByLeadID(ctx, leadID, tenantID)
	if err != nil {
		return transport.AttributionResponse{}, err
	}
	if !rec.IsConverted {
		return transport.AttributionResponse{}, apperr.Validation("lead has not converted")
	}
	resp, err := Attribute(rec, model)
	if err != nil {
		return transport.AttributionResponse{}, apperr.Validation(err.Error())
	}
	return resp, nil
}

func (s *Service) CohortReport(ctx context.Context, tenantID uuid.UUID, period string) (transport.CohortAnalysisResponse, error) {
	now := s.now()
	records, err := s.funnels.ListByTenantSince(ctx, tenantID, now.AddDate(0, 0, -cohortLookbackDays))
	if err != nil {
		return transport.CohortAnalysisResponse{}, err
	}
	resp, err := AnalyzeCohorts(records, period, now)
	if err != nil {
		return transport.CohortAnalysisResponse{}, apperr.Validation(err.Error())
	}
	return resp, nil
}

func (s *Service) CLV(ctx context.Context, tenantID uuid.UUID, customerID uuid.UUID) (transport.CLVResponse, error) {
	deals, err := s.deals.ListWonDealsByCustomer(ctx, customerID, tenantID)
	if err != nil {
		return transport.CLVResponse{}, err
	}
	return CustomerLifetimeValue(customerID, deals, s.now()), nil
}

func normalizeWindow(days int) int {
	if days <= 0 {
		return defaultWindowDays
	}
	return days
}
