package service

import (
	"context"
	"errors"
	"time"

	"tourcrm_backend/internal/events"
	funneldomain "tourcrm_backend/internal/funnel/domain"
	"tourcrm_backend/internal/funnel/repository"
	"tourcrm_backend/platform/apperr"
	"tourcrm_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	staleSweepBatch = 200

	// casRetries bounds how often an append is replayed after losing the
	// updated_at compare-and-swap to a concurrent writer.
	casRetries = 3
)

type Service struct {
	repo repository.FunnelRepository
	bus  events.Bus
	log  *logger.Logger
	now  func() time.Time
}

func New(repo repository.FunnelRepository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo: repo,
		bus:  bus,
		log:  log,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// StageEventParams describes a funnel progression for one lead.
type StageEventParams struct {
	TenantID uuid.UUID
	LeadID   uuid.UUID
	Stage    string
	At       time.Time
	Value    float64
	Channel  string
}

// RecordStageEvent appends a stage event to a lead's funnel record, creating
// the record on the first lead_captured event. History is append-only and
// time-ordered: an event dated before the last recorded one is rejected.
// Appends are replayed against fresh state when a concurrent writer wins the
// updated_at compare-and-swap, so no history entry is ever lost.
func (s *Service) RecordStageEvent(ctx context.Context, params StageEventParams) (repository.Record, error) {
	if !funneldomain.IsKnownStage(params.Stage) {
		return repository.Record{}, apperr.Validation("unknown funnel stage " + params.Stage)
	}
	at := params.At
	if at.IsZero() {
		at = s.now()
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		rec, err := s.repo.GetByLeadID(ctx, params.LeadID, params.TenantID)
		if errors.Is(err, repository.ErrNotFound) {
			return s.createRecord(ctx, params, at)
		}
		if err != nil {
			return repository.Record{}, err
		}

		if last := lastEvent(rec.StageHistory); last != nil && at.Before(last.At) {
			return repository.Record{}, apperr.Validation("stage event predates the last recorded event")
		}

		rec.StageHistory = append(rec.StageHistory, repository.StageEvent{
			Stage: params.Stage,
			At:    at,
			Value: params.Value,
		})
		applyStageTimestamp(&rec, params.Stage, at)

		// The headline stage only moves forward through the analysis order;
		// repeat or earlier-stage events still land in the history.
		if funneldomain.StageIndex(params.Stage) > funneldomain.StageIndex(rec.CurrentStage) {
			rec.CurrentStage = params.Stage
		}
		if params.Stage == funneldomain.StageClosedWon {
			rec.IsConverted = true
			if params.Value > 0 {
				rec.ConversionValue = params.Value
			}
		}

		updated, err := s.repo.Update(ctx, updateParams(rec))
		if errors.Is(err, repository.ErrStaleRecord) {
			s.log.Warn("funnel append lost compare-and-swap race",
				"leadId", params.LeadID, "stage", params.Stage, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return repository.Record{}, err
		}

		s.publishStageRecorded(ctx, params)
		return updated, nil
	}

	return repository.Record{}, apperr.ConcurrentModification("funnel record was modified by another request")
}

func (s *Service) createRecord(ctx context.Context, params StageEventParams, at time.Time) (repository.Record, error) {
	if params.Stage != funneldomain.StageLeadCaptured {
		return repository.Record{}, apperr.Validation("funnel record must start with lead_captured")
	}

	var touchpoints []repository.Touchpoint
	if params.Channel != "" {
		touchpoints = append(touchpoints, repository.Touchpoint{Channel: params.Channel, At: at})
	}
	rec, err := s.repo.Create(ctx, repository.CreateParams{
		TenantID:       params.TenantID,
		LeadID:         params.LeadID,
		Channel:        params.Channel,
		LeadCapturedAt: at,
		InitialHistory: []repository.StageEvent{{Stage: params.Stage, At: at, Value: params.Value}},
		Touchpoints:    touchpoints,
	})
	if err != nil {
		return repository.Record{}, err
	}

	s.publishStageRecorded(ctx, params)
	return rec, nil
}

// RecordTouchpoint appends a marketing contact used later by attribution.
func (s *Service) RecordTouchpoint(ctx context.Context, tenantID uuid.UUID, leadID uuid.UUID, channel string, cost float64) error {
	for attempt := 0; attempt < casRetries; attempt++ {
		rec, err := s.repo.GetByLeadID(ctx, leadID, tenantID)
		if err != nil {
			return err
		}

		rec.Touchpoints = append(rec.Touchpoints, repository.Touchpoint{
			Channel: channel,
			At:      s.now(),
			Cost:    cost,
		})

		_, err = s.repo.Update(ctx, updateParams(rec))
		if errors.Is(err, repository.ErrStaleRecord) {
			s.log.Warn("touchpoint append lost compare-and-swap race",
				"leadId", leadID, "channel", channel, "attempt", attempt+1)
			continue
		}
		return err
	}

	return apperr.ConcurrentModification("funnel record was modified by another request")
}

// updateParams carries the record's updated_at along so the write only lands
// on the revision that was read.
func updateParams(rec repository.Record) repository.UpdateParams {
	return repository.UpdateParams{
		LeadID:            rec.LeadID,
		TenantID:          rec.TenantID,
		ExpectedUpdatedAt: rec.UpdatedAt,
		CurrentStage:      rec.CurrentStage,
		StageHistory:      rec.StageHistory,
		Touchpoints:       rec.Touchpoints,
		ConversionValue:   rec.ConversionValue,
		IsConverted:       rec.IsConverted,
		ContactedAt:       rec.ContactedAt,
		QualifiedAt:       rec.QualifiedAt,
		ProposalSentAt:    rec.ProposalSentAt,
		ClosedWonAt:       rec.ClosedWonAt,
	}
}

func (s *Service) Get(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) (repository.Record, error) {
	return s.repo.GetByLeadID(ctx, leadID, tenantID)
}

// SweepStale flags unconverted funnel records idle beyond the window.
func (s *Service) SweepStale(ctx context.Context, idleAfter time.Duration) (int, error) {
	now := s.now()
	records, err := s.repo.ListStale(ctx, now.Add(-idleAfter), staleSweepBatch)
	if err != nil {
		return 0, err
	}

	for _, rec := range records {
		s.bus.Publish(ctx, events.FunnelStale{
			BaseEvent:    events.NewBaseEvent(),
			LeadID:       rec.LeadID,
			TenantID:     rec.TenantID,
			CurrentStage: rec.CurrentStage,
			IdleHours:    now.Sub(rec.UpdatedAt).Hours(),
		})
	}
	return len(records), nil
}

func (s *Service) publishStageRecorded(ctx context.Context, params StageEventParams) {
	s.bus.Publish(ctx, events.FunnelStageRecorded{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    params.LeadID,
		TenantID:  params.TenantID,
		Stage:     params.Stage,
		Value:     params.Value,
	})
}

func lastEvent(history []repository.StageEvent) *repository.StageEvent {
	if len(history) == 0 {
		return nil
	}
	return &history[len(history)-1]
}

func applyStageTimestamp(rec *repository.Record, stage string, at time.Time) {
	switch stage {
	case funneldomain.StageContacted:
		if rec.ContactedAt == nil {
			rec.ContactedAt = &at
		}
	case funneldomain.StageQualified:
		if rec.QualifiedAt == nil {
			rec.QualifiedAt = &at
		}
	case funneldomain.StageProposalSent:
		if rec.ProposalSentAt == nil {
			rec.ProposalSentAt = &at
		}
	case funneldomain.StageClosedWon:
		if rec.ClosedWonAt == nil {
			rec.ClosedWonAt = &at
		}
	}
}
