// Package service exposes tracking tickets to the rest of the system. The
// journey orchestrator opens one per captured lead and closes them on
// conversion.
package service

import (
	"context"

	"tourcrm_backend/internal/ticketing/repository"
	"tourcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type Service struct {
	repo *repository.Repository
	log  *logger.Logger
}

func New(repo *repository.Repository, log *logger.Logger) *Service {
	return &Service{repo: repo, log: log}
}

func (s *Service) Create(ctx context.Context, tenantID uuid.UUID, leadID uuid.UUID, title string, priority string) (uuid.UUID, error) {
	if priority == "" {
		priority = "normal"
	}
	ticket, err := s.repo.Create(ctx, repository.CreateParams{
		TenantID: tenantID,
		LeadID:   leadID,
		Title:    title,
		Priority: priority,
	})
	if err != nil {
		return uuid.Nil, err
	}
	return ticket.ID, nil
}

func (s *Service) Close(ctx context.Context, tenantID uuid.UUID, ticketID uuid.UUID, reason string) error {
	_, err := s.repo.Close(ctx, ticketID, tenantID, reason)
	return err
}

// CloseOpenForLead closes every open ticket attached to a lead. Used when a
// lead converts and its tracking work is done.
func (s *Service) CloseOpenForLead(ctx context.Context, tenantID uuid.UUID, leadID uuid.UUID, reason string) (int, error) {
	tickets, err := s.repo.ListOpenByLead(ctx, leadID, tenantID)
	if err != nil {
		return 0, err
	}
	closed := 0
	for _, ticket := range tickets {
		if _, err := s.repo.Close(ctx, ticket.ID, tenantID, reason); err != nil {
			s.log.Error("ticket close failed", "error", err, "ticketId", ticket.ID)
			continue
		}
		closed++
	}
	return closed, nil
}
