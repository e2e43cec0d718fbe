package service

import (
	"context"
	"errors"
	"time"

	"tourcrm_backend/internal/events"
	"tourcrm_backend/internal/pipeline/domain"
	"tourcrm_backend/internal/pipeline/repository"
	"tourcrm_backend/internal/pipeline/transport"
	"tourcrm_backend/platform/apperr"
	"tourcrm_backend/platform/logger"

	"github.com/google/uuid"
)

var ErrOpportunityNotFound = errors.New("opportunity not found")

const (
	// casRetries bounds how often a stage transition is retried after losing
	// the compare-and-swap race before giving up with a conflict error.
	casRetries = 3

	defaultListLimit = 50
	slaSweepBatch    = 200
)

const (
	activityStageChanged = "stage_changed"
	activityCreated      = "created"
	activitySLABreach    = "sla_breach"
)

type Service struct {
	repo      repository.PipelineRepository
	templates domain.Templates
	bus       events.Bus
	log       *logger.Logger
	now       func() time.Time
}

func New(repo repository.PipelineRepository, templates domain.Templates, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:      repo,
		templates: templates,
		bus:       bus,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Templates exposes the loaded stage templates to composing modules.
func (s *Service) Templates() domain.Templates {
	return s.templates
}

// CreateOpportunity promotes a lead into the pipeline at a chosen stage,
// defaulting to lead_capture. The probability always comes from the template.
func (s *Service) CreateOpportunity(ctx context.Context, tenantID uuid.UUID, req transport.CreateOpportunityRequest) (transport.OpportunityResponse, error) {
	template, ok := s.templates[req.Template]
	if !ok {
		return transport.OpportunityResponse{}, apperr.Validation("unknown pipeline template " + req.Template)
	}

	stage := req.Stage
	if stage == "" {
		stage = domain.StageLeadCapture
	}
	if !domain.IsKnownStage(stage) || domain.IsTerminal(stage) {
		return transport.OpportunityResponse{}, apperr.Validation("invalid starting stage " + stage)
	}

	opp, err := s.repo.Create(ctx, repository.CreateOpportunityParams{
		TenantID:        tenantID,
		LeadID:          req.LeadID,
		Title:           req.Title,
		Template:        req.Template,
		CurrentStage:    stage,
		Probability:     template.Probability(stage),
		EstimatedValue:  req.EstimatedValue,
		OwnerID:         req.OwnerID,
		ExpectedCloseAt: req.ExpectedCloseAt,
	})
	if err != nil {
		return transport.OpportunityResponse{}, err
	}

	if _, err := s.repo.CreateActivity(ctx, repository.CreateActivityParams{
		OpportunityID: opp.ID,
		TenantID:      tenantID,
		Type:          activityCreated,
		ToStage:       &opp.CurrentStage,
		Actor:         req.Actor,
	}); err != nil {
		s.log.Error("opportunity activity write failed", "error", err, "opportunityId", opp.ID)
	}

	s.bus.Publish(ctx, events.OpportunityCreated{
		BaseEvent:     events.NewBaseEvent(),
		OpportunityID: opp.ID,
		LeadID:        opp.LeadID,
		TenantID:      tenantID,
		Template:      opp.Template,
		Stage:         opp.CurrentStage,
	})

	return s.toResponse(opp), nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) (transport.OpportunityResponse, error) {
	opp, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.OpportunityResponse{}, ErrOpportunityNotFound
		}
		return transport.OpportunityResponse{}, err
	}
	return s.toResponse(opp), nil
}

func (s *Service) ListByStage(ctx context.Context, tenantID uuid.UUID, stage string, limit int) ([]transport.OpportunityResponse, error) {
	if limit == 0 {
		limit = defaultListLimit
	}
	opportunities, err := s.repo.ListByStage(ctx, tenantID, stage, limit)
	if err != nil {
		return nil, err
	}
	responses := make([]transport.OpportunityResponse, 0, len(opportunities))
	for _, opp := range opportunities {
		responses = append(responses, s.toResponse(opp))
	}
	return responses, nil
}

func (s *Service) ListActivities(ctx context.Context, id uuid.UUID, tenantID uuid.UUID) ([]transport.ActivityResponse, error) {
	activities, err := s.repo.ListActivities(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}
	responses := make([]transport.ActivityResponse, 0, len(activities))
	for _, a := range activities {
		responses = append(responses, transport.ActivityResponse{
			ID:        a.ID,
			Type:      a.Type,
			FromStage: a.FromStage,
			ToStage:   a.ToStage,
			Actor:     a.Actor,
			Notes:     a.Notes,
			CreatedAt: a.CreatedAt,
		})
	}
	return responses, nil
}

// AdvanceStage moves an opportunity to a new stage. The transition is
// validated against the stage machine on every attempt, then applied with a
// compare-and-swap. Losing the race re-reads and retries up to casRetries
// times; a transition that became invalid after a re-read fails immediately.
func (s *Service) AdvanceStage(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, req transport.AdvanceStageRequest) (transport.OpportunityResponse, error) {
	if !domain.IsKnownStage(req.Stage) {
		return transport.OpportunityResponse{}, apperr.Validation("unknown pipeline stage " + req.Stage)
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		opp, err := s.repo.GetByID(ctx, id, tenantID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return transport.OpportunityResponse{}, ErrOpportunityNotFound
			}
			return transport.OpportunityResponse{}, err
		}

		if !domain.CanTransition(opp.CurrentStage, req.Stage) {
			return transport.OpportunityResponse{}, apperr.InvalidTransition(opp.CurrentStage, req.Stage)
		}

		template := s.templates[opp.Template]
		daysInStage := opp.DaysInCurrentStage(s.now())

		updated, err := s.repo.UpdateStage(ctx, repository.UpdateStageParams{
			ID:            id,
			TenantID:      tenantID,
			ExpectedStage: opp.CurrentStage,
			NewStage:      req.Stage,
			Probability:   template.Probability(req.Stage),
			ActualValue:   req.ActualValue,
			Terminal:      domain.IsTerminal(req.Stage),
		})
		if errors.Is(err, repository.ErrStageConflict) {
			s.log.Warn("stage transition lost compare-and-swap race",
				"opportunityId", id, "attempt", attempt+1)
			continue
		}
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return transport.OpportunityResponse{}, ErrOpportunityNotFound
			}
			return transport.OpportunityResponse{}, err
		}

		fromStage := opp.CurrentStage
		if _, err := s.repo.CreateActivity(ctx, repository.CreateActivityParams{
			OpportunityID: id,
			TenantID:      tenantID,
			Type:          activityStageChanged,
			FromStage:     &fromStage,
			ToStage:       &updated.CurrentStage,
			Actor:         req.Actor,
			Notes:         req.Notes,
		}); err != nil {
			s.log.Error("opportunity activity write failed", "error", err, "opportunityId", id)
		}

		s.bus.Publish(ctx, events.OpportunityStageChanged{
			BaseEvent:     events.NewBaseEvent(),
			OpportunityID: id,
			LeadID:        updated.LeadID,
			TenantID:      tenantID,
			OldStage:      fromStage,
			NewStage:      updated.CurrentStage,
			Probability:   updated.Probability,
			DaysInStage:   daysInStage,
			Actor:         req.Actor,
		})

		return s.toResponse(updated), nil
	}

	return transport.OpportunityResponse{}, apperr.ConcurrentModification("opportunity was modified by another request")
}

// LinkCustomer attaches a customer record to an opportunity once the lead
// behind it converts.
func (s *Service) LinkCustomer(ctx context.Context, id uuid.UUID, tenantID uuid.UUID, customerID uuid.UUID) error {
	return s.repo.LinkCustomer(ctx, id, tenantID, customerID)
}

// CheckSLABreaches scans open opportunities and flags those that outstayed
// their stage budget. A breach is reported once per stage entry.
func (s *Service) CheckSLABreaches(ctx context.Context) (int, error) {
	opportunities, err := s.repo.ListOpen(ctx, slaSweepBatch)
	if err != nil {
		return 0, err
	}

	now := s.now()
	breached := 0
	for _, opp := range opportunities {
		template, ok := s.templates[opp.Template]
		if !ok {
			continue
		}
		slaHours := template.SLAHours(opp.CurrentStage)
		if slaHours <= 0 {
			continue
		}
		hoursInStage := now.Sub(opp.StageEnteredAt).Hours()
		if hoursInStage <= float64(slaHours) {
			continue
		}

		already, err := s.breachAlreadyRecorded(ctx, opp)
		if err != nil {
			s.log.Error("sla breach lookup failed", "error", err, "opportunityId", opp.ID)
			continue
		}
		if already {
			continue
		}

		stage := opp.CurrentStage
		if _, err := s.repo.CreateActivity(ctx, repository.CreateActivityParams{
			OpportunityID: opp.ID,
			TenantID:      opp.TenantID,
			Type:          activitySLABreach,
			ToStage:       &stage,
			Actor:         "system",
		}); err != nil {
			s.log.Error("sla breach activity write failed", "error", err, "opportunityId", opp.ID)
			continue
		}

		s.bus.Publish(ctx, events.OpportunitySLABreached{
			BaseEvent:     events.NewBaseEvent(),
			OpportunityID: opp.ID,
			TenantID:      opp.TenantID,
			Stage:         opp.CurrentStage,
			HoursInStage:  hoursInStage,
			SLAHours:      float64(slaHours),
		})
		breached++
	}
	return breached, nil
}

func (s *Service) breachAlreadyRecorded(ctx context.Context, opp repository.Opportunity) (bool, error) {
	activities, err := s.repo.ListActivities(ctx, opp.ID, opp.TenantID)
	if err != nil {
		return false, err
	}
	for _, a := range activities {
		if a.Type == activitySLABreach && !a.CreatedAt.Before(opp.StageEnteredAt) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) toResponse(opp repository.Opportunity) transport.OpportunityResponse {
	template := s.templates[opp.Template]
	return transport.OpportunityResponse{
		ID:                 opp.ID,
		LeadID:             opp.LeadID,
		CustomerID:         opp.CustomerID,
		Title:              opp.Title,
		Template:           opp.Template,
		CurrentStage:       opp.CurrentStage,
		Probability:        opp.Probability,
		EstimatedValue:     opp.EstimatedValue,
		ActualValue:        opp.ActualValue,
		OwnerID:            opp.OwnerID,
		DaysInCurrentStage: opp.DaysInCurrentStage(s.now()),
		SLAHours:           template.SLAHours(opp.CurrentStage),
		StageEnteredAt:     opp.StageEnteredAt,
		ExpectedCloseAt:    opp.ExpectedCloseAt,
		ClosedAt:           opp.ClosedAt,
		CreatedAt:          opp.CreatedAt,
		UpdatedAt:          opp.UpdatedAt,
	}
}
