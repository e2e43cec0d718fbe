package service

import (
	"context"
	"errors"

	"tourcrm_backend/internal/events"
	"tourcrm_backend/internal/leads/domain"
	"tourcrm_backend/internal/leads/repository"
	"tourcrm_backend/internal/leads/scoring"
	"tourcrm_backend/internal/leads/transport"
	"tourcrm_backend/platform/apperr"
	"tourcrm_backend/platform/phone"

	"github.com/google/uuid"
)

var ErrLeadNotFound = errors.New("lead not found")

const defaultListLimit = 50

type Service struct {
	repo    repository.LeadsRepository
	scoring *scoring.Service
	bus     events.Bus
}

func New(repo repository.LeadsRepository, scoringSvc *scoring.Service, bus events.Bus) *Service {
	return &Service{repo: repo, scoring: scoringSvc, bus: bus}
}

// Capture creates a lead from an intake form and kicks off the initial score.
func (s *Service) Capture(ctx context.Context, tenantID uuid.UUID, req transport.CaptureLeadRequest) (transport.LeadResponse, error) {
	req.Phone = phone.NormalizeE164(req.Phone)
	if req.Priority == "" {
		req.Priority = transport.PriorityNormal
	}

	params := repository.CreateLeadParams{
		TenantID:        tenantID,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Phone:           req.Phone,
		Channel:         req.Channel,
		CustomerType:    string(req.CustomerType),
		Interests:       req.Interests,
		EstimatedValue:  req.EstimatedValue,
		AssignedAgentID: req.AssignedAgentID,
		Priority:        string(req.Priority),
	}
	params.Email = optional(req.Email)
	params.Company = optional(req.Company)
	params.Source = optional(req.Source)
	params.Country = optional(req.Country)
	params.TourPreferences = optional(req.TourPreferences)
	params.BudgetRange = optional(req.BudgetRange)
	params.UTMSource = optional(req.UTMSource)
	params.UTMMedium = optional(req.UTMMedium)
	params.UTMCampaign = optional(req.UTMCampaign)

	lead, err := s.repo.Create(ctx, params)
	if err != nil {
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadCaptured{
		BaseEvent:    events.NewBaseEvent(),
		LeadID:       lead.ID,
		TenantID:     tenantID,
		Channel:      lead.Channel,
		Source:       req.Source,
		ContactName:  lead.FirstName + " " + lead.LastName,
		ContactPhone: lead.Phone,
		ContactEmail: req.Email,
		UTMCampaign:  req.UTMCampaign,
	})

	return toLeadResponse(lead), nil
}

func (s *Service) Get(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, leadID, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, ErrLeadNotFound
		}
		return transport.LeadResponse{}, err
	}
	return toLeadResponse(lead), nil
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID, req transport.ListLeadsRequest) ([]transport.LeadResponse, error) {
	limit := req.Limit
	if limit == 0 {
		limit = defaultListLimit
	}
	status := req.Status
	if status == "" {
		status = domain.StatusNew
	}

	leads, err := s.repo.ListByStatus(ctx, tenantID, status, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		responses = append(responses, toLeadResponse(lead))
	}
	return responses, nil
}

// RecordInteraction logs a contact event and triggers a score recompute via
// the event bus.
func (s *Service) RecordInteraction(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID, req transport.RecordInteractionRequest) (transport.InteractionResponse, error) {
	if _, err := s.repo.GetByID(ctx, leadID, tenantID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.InteractionResponse{}, ErrLeadNotFound
		}
		return transport.InteractionResponse{}, err
	}

	interaction, err := s.repo.CreateInteraction(ctx, repository.CreateInteractionParams{
		LeadID:           leadID,
		TenantID:         tenantID,
		Type:             string(req.Type),
		Direction:        req.Direction,
		Sentiment:        req.Sentiment,
		DurationSeconds:  req.DurationSeconds,
		Notes:            optional(req.Notes),
		FollowUpRequired: req.FollowUpRequired,
		FollowUpAt:       req.FollowUpAt,
	})
	if err != nil {
		return transport.InteractionResponse{}, err
	}

	sentiment := 0.0
	if interaction.Sentiment != nil {
		sentiment = *interaction.Sentiment
	}
	s.bus.Publish(ctx, events.LeadInteractionRecorded{
		BaseEvent:     events.NewBaseEvent(),
		LeadID:        leadID,
		InteractionID: interaction.ID,
		TenantID:      tenantID,
		Type:          interaction.Type,
		Direction:     interaction.Direction,
		Sentiment:     sentiment,
	})

	return toInteractionResponse(interaction), nil
}

func (s *Service) ListInteractions(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) ([]transport.InteractionResponse, error) {
	interactions, err := s.repo.ListInteractions(ctx, leadID, tenantID)
	if err != nil {
		return nil, err
	}
	responses := make([]transport.InteractionResponse, 0, len(interactions))
	for _, in := range interactions {
		responses = append(responses, toInteractionResponse(in))
	}
	return responses, nil
}

// ChangeStatus moves a lead through its lifecycle. The transition is checked
// against the status machine first, then applied with a compare-and-swap so
// two agents editing the same lead cannot both win.
func (s *Service) ChangeStatus(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID, newStatus string) (transport.LeadResponse, error) {
	if !domain.IsKnownStatus(newStatus) {
		return transport.LeadResponse{}, apperr.Validation("unknown lead status " + newStatus)
	}

	lead, err := s.repo.GetByID(ctx, leadID, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, ErrLeadNotFound
		}
		return transport.LeadResponse{}, err
	}

	if !domain.CanTransition(lead.Status, newStatus) {
		return transport.LeadResponse{}, apperr.InvalidTransition(lead.Status, newStatus)
	}

	updated, err := s.repo.UpdateStatus(ctx, leadID, tenantID, lead.Status, newStatus)
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			return transport.LeadResponse{}, apperr.ConcurrentModification("lead was modified by another request")
		}
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, ErrLeadNotFound
		}
		return transport.LeadResponse{}, err
	}

	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    leadID,
		TenantID:  tenantID,
		OldStatus: lead.Status,
		NewStatus: newStatus,
	})

	return toLeadResponse(updated), nil
}

// Score returns the current lead score, computing it when the cache is cold.
func (s *Service) Score(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) (transport.ScoreResponse, error) {
	result, err := s.scoring.Get(ctx, leadID, tenantID)
	if err != nil {
		return transport.ScoreResponse{}, err
	}
	return transport.ScoreResponse{
		LeadID:                leadID,
		Score:                 result.Score,
		ConversionProbability: result.ConversionProbability,
		Factors:               result.Factors,
		Version:               result.Version,
		UpdatedAt:             result.UpdatedAt,
	}, nil
}

func (s *Service) Delete(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) error {
	err := s.repo.SoftDelete(ctx, leadID, tenantID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrLeadNotFound
	}
	return err
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:                    lead.ID,
		FirstName:             lead.FirstName,
		LastName:              lead.LastName,
		Phone:                 lead.Phone,
		Email:                 lead.Email,
		Company:               lead.Company,
		Channel:               lead.Channel,
		Source:                lead.Source,
		Status:                lead.Status,
		LeadScore:             lead.LeadScore,
		ConversionProbability: lead.ConversionProbability,
		EstimatedValue:        lead.EstimatedValue,
		CustomerType:          lead.CustomerType,
		Country:               lead.Country,
		Interests:             lead.Interests,
		TourPreferences:       lead.TourPreferences,
		BudgetRange:           lead.BudgetRange,
		Priority:              lead.Priority,
		AssignedAgentID:       lead.AssignedAgentID,
		CreatedAt:             lead.CreatedAt,
		UpdatedAt:             lead.UpdatedAt,
	}
}

func toInteractionResponse(in repository.Interaction) transport.InteractionResponse {
	return transport.InteractionResponse{
		ID:               in.ID,
		LeadID:           in.LeadID,
		Type:             in.Type,
		Direction:        in.Direction,
		Sentiment:        in.Sentiment,
		DurationSeconds:  in.DurationSeconds,
		Notes:            in.Notes,
		FollowUpRequired: in.FollowUpRequired,
		FollowUpAt:       in.FollowUpAt,
		FollowUpDone:     in.FollowUpDone,
		CreatedAt:        in.CreatedAt,
	}
}
