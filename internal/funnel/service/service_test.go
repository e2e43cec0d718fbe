package service

import (
	"context"
	"testing"
	"time"

	"tourcrm_backend/internal/events"
	funneldomain "tourcrm_backend/internal/funnel/domain"
	"tourcrm_backend/internal/funnel/repository"
	"tourcrm_backend/platform/apperr"
	"tourcrm_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeFunnelRepo struct {
	records map[uuid.UUID]repository.Record
}

func newFakeFunnelRepo() *fakeFunnelRepo {
	return &fakeFunnelRepo{records: map[uuid.UUID]repository.Record{}}
}

func (f *fakeFunnelRepo) Create(_ context.Context, params repository.CreateParams) (repository.Record, error) {
	now := time.Now().UTC()
	rec := repository.Record{
		ID:             uuid.New(),
		TenantID:       params.TenantID,
		LeadID:         params.LeadID,
		Channel:        params.Channel,
		CurrentStage:   funneldomain.StageLeadCaptured,
		StageHistory:   params.InitialHistory,
		Touchpoints:    params.Touchpoints,
		LeadCapturedAt: params.LeadCapturedAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.records[params.LeadID] = rec
	return rec, nil
}

func (f *fakeFunnelRepo) GetByLeadID(_ context.Context, leadID uuid.UUID, _ uuid.UUID) (repository.Record, error) {
	rec, ok := f.records[leadID]
	if !ok {
		return repository.Record{}, repository.ErrNotFound
	}
	return rec, nil
}

func (f *fakeFunnelRepo) Update(_ context.Context, params repository.UpdateParams) (repository.Record, error) {
	rec, ok := f.records[params.LeadID]
	if !ok {
		return repository.Record{}, repository.ErrNotFound
	}
	if !params.ExpectedUpdatedAt.Equal(rec.UpdatedAt) {
		return repository.Record{}, repository.ErrStaleRecord
	}
	rec.CurrentStage = params.CurrentStage
	rec.StageHistory = params.StageHistory
	rec.Touchpoints = params.Touchpoints
	rec.ConversionValue = params.ConversionValue
	rec.IsConverted = params.IsConverted
	rec.ContactedAt = params.ContactedAt
	rec.QualifiedAt = params.QualifiedAt
	rec.ProposalSentAt = params.ProposalSentAt
	rec.ClosedWonAt = params.ClosedWonAt
	now := time.Now().UTC()
	if !now.After(rec.UpdatedAt) {
		now = rec.UpdatedAt.Add(time.Microsecond)
	}
	rec.UpdatedAt = now
	f.records[params.LeadID] = rec
	return rec, nil
}

// racingFunnelRepo lets another writer land between a service read and its
// write, exactly once.
type racingFunnelRepo struct {
	*fakeFunnelRepo
	raced    bool
	competer func()
}

func (r *racingFunnelRepo) Update(ctx context.Context, params repository.UpdateParams) (repository.Record, error) {
	if !r.raced {
		r.raced = true
		r.competer()
	}
	return r.fakeFunnelRepo.Update(ctx, params)
}

func (f *fakeFunnelRepo) ListStale(_ context.Context, cutoff time.Time, _ int) ([]repository.Record, error) {
	var out []repository.Record
	for _, rec := range f.records {
		if !rec.IsConverted && rec.UpdatedAt.Before(cutoff) {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeFunnelRepo) ListByTenantSince(_ context.Context, _ uuid.UUID, _ time.Time) ([]repository.Record, error) {
	var out []repository.Record
	for _, rec := range f.records {
		out = append(out, rec)
	}
	return out, nil
}

func newTestService(repo repository.FunnelRepository) *Service {
	log := logger.New("test")
	return New(repo, events.NewInMemoryBus(log), log)
}

func TestRecordStageEventCreatesOnFirstCapture(t *testing.T) {
	svc := newTestService(newFakeFunnelRepo())
	tenantID, leadID := uuid.New(), uuid.New()

	rec, err := svc.RecordStageEvent(context.Background(), StageEventParams{
		TenantID: tenantID,
		LeadID:   leadID,
		Stage:    funneldomain.StageLeadCaptured,
		Channel:  "google_ads",
	})
	if err != nil {
		t.Fatalf("RecordStageEvent failed: %v", err)
	}
	if rec.CurrentStage != funneldomain.StageLeadCaptured {
		t.Fatalf("current stage = %s, want lead_captured", rec.CurrentStage)
	}
	if len(rec.StageHistory) != 1 {
		t.Fatalf("history length = %d, want 1", len(rec.StageHistory))
	}
	if len(rec.Touchpoints) != 1 || rec.Touchpoints[0].Channel != "google_ads" {
		t.Fatalf("expected initial touchpoint for the capture channel, got %+v", rec.Touchpoints)
	}
}

func TestRecordStageEventRejectsMidFunnelStart(t *testing.T) {
	svc := newTestService(newFakeFunnelRepo())

	_, err := svc.RecordStageEvent(context.Background(), StageEventParams{
		TenantID: uuid.New(),
		LeadID:   uuid.New(),
		Stage:    funneldomain.StageQualified,
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("error kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestRecordStageEventHistoryIsAppendOnly(t *testing.T) {
	repo := newFakeFunnelRepo()
	svc := newTestService(repo)
	tenantID, leadID := uuid.New(), uuid.New()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	stages := []string{funneldomain.StageLeadCaptured, funneldomain.StageContacted, funneldomain.StageQualified}
	for i, stage := range stages {
		if _, err := svc.RecordStageEvent(context.Background(), StageEventParams{
			TenantID: tenantID,
			LeadID:   leadID,
			Stage:    stage,
			At:       base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("RecordStageEvent(%s) failed: %v", stage, err)
		}
	}

	rec := repo.records[leadID]
	if len(rec.StageHistory) != 3 {
		t.Fatalf("history length = %d, want 3", len(rec.StageHistory))
	}
	for i, stage := range stages {
		if rec.StageHistory[i].Stage != stage {
			t.Fatalf("history[%d] = %s, want %s", i, rec.StageHistory[i].Stage, stage)
		}
	}
	if rec.ContactedAt == nil || rec.QualifiedAt == nil {
		t.Fatal("per-stage timestamps must be set on first occurrence")
	}
}

func TestRecordStageEventRejectsTimeTravel(t *testing.T) {
	svc := newTestService(newFakeFunnelRepo())
	tenantID, leadID := uuid.New(), uuid.New()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	if _, err := svc.RecordStageEvent(context.Background(), StageEventParams{
		TenantID: tenantID, LeadID: leadID, Stage: funneldomain.StageLeadCaptured, At: base,
	}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	_, err := svc.RecordStageEvent(context.Background(), StageEventParams{
		TenantID: tenantID, LeadID: leadID, Stage: funneldomain.StageContacted, At: base.Add(-time.Hour),
	})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("error kind = %v, want validation for backdated event", apperr.GetKind(err))
	}
}

func TestClosedWonMarksConverted(t *testing.T) {
	repo := newFakeFunnelRepo()
	svc := newTestService(repo)
	tenantID, leadID := uuid.New(), uuid.New()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	if _, err := svc.RecordStageEvent(context.Background(), StageEventParams{
		TenantID: tenantID, LeadID: leadID, Stage: funneldomain.StageLeadCaptured, At: base,
	}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	rec, err := svc.RecordStageEvent(context.Background(), StageEventParams{
		TenantID: tenantID, LeadID: leadID, Stage: funneldomain.StageClosedWon, At: base.Add(48 * time.Hour), Value: 3600,
	})
	if err != nil {
		t.Fatalf("RecordStageEvent(closed_won) failed: %v", err)
	}
	if !rec.IsConverted {
		t.Fatal("closed_won must mark the record converted")
	}
	if rec.ConversionValue != 3600 {
		t.Fatalf("conversion value = %v, want 3600", rec.ConversionValue)
	}
	if rec.ClosedWonAt == nil {
		t.Fatal("closed_won timestamp must be set")
	}
}

func TestEarlierStageEventKeepsHeadlineStage(t *testing.T) {
	repo := newFakeFunnelRepo()
	svc := newTestService(repo)
	tenantID, leadID := uuid.New(), uuid.New()

	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	for i, stage := range []string{funneldomain.StageLeadCaptured, funneldomain.StageContacted, funneldomain.StageQualified} {
		if _, err := svc.RecordStageEvent(context.Background(), StageEventParams{
			TenantID: tenantID, LeadID: leadID, Stage: stage, At: base.Add(time.Duration(i) * time.Hour),
		}); err != nil {
			t.Fatalf("setup failed: %v", err)
		}
	}

	// A second contact after qualification is recorded but does not move
	// the headline stage backward.
	rec, err := svc.RecordStageEvent(context.Background(), StageEventParams{
		TenantID: tenantID, LeadID: leadID, Stage: funneldomain.StageContacted, At: base.Add(5 * time.Hour),
	})
	if err != nil {
		t.Fatalf("RecordStageEvent failed: %v", err)
	}
	if rec.CurrentStage != funneldomain.StageQualified {
		t.Fatalf("current stage = %s, want qualified", rec.CurrentStage)
	}
	if len(rec.StageHistory) != 4 {
		t.Fatalf("history length = %d, want 4", len(rec.StageHistory))
	}
}

func TestConcurrentAppendDoesNotLoseClosedWon(t *testing.T) {
	base := newFakeFunnelRepo()
	tenantID, leadID := uuid.New(), uuid.New()
	start := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	competing := newTestService(base)
	if _, err := competing.RecordStageEvent(context.Background(), StageEventParams{
		TenantID: tenantID, LeadID: leadID, Stage: funneldomain.StageLeadCaptured, At: start,
	}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	// The competing writer converts the lead after our read but before
	// our write lands.
	racing := &racingFunnelRepo{fakeFunnelRepo: base, competer: func() {
		if _, err := competing.RecordStageEvent(context.Background(), StageEventParams{
			TenantID: tenantID, LeadID: leadID, Stage: funneldomain.StageClosedWon,
			At: start.Add(2 * time.Hour), Value: 900,
		}); err != nil {
			t.Fatalf("competing RecordStageEvent failed: %v", err)
		}
	}}
	svc := newTestService(racing)

	rec, err := svc.RecordStageEvent(context.Background(), StageEventParams{
		TenantID: tenantID, LeadID: leadID, Stage: funneldomain.StageContacted, At: start.Add(3 * time.Hour),
	})
	if err != nil {
		t.Fatalf("RecordStageEvent failed: %v", err)
	}
	if !racing.raced {
		t.Fatal("competing write never ran")
	}
	if !rec.IsConverted || rec.ConversionValue != 900 {
		t.Fatalf("conversion lost to concurrent append: converted=%v value=%v", rec.IsConverted, rec.ConversionValue)
	}
	if rec.CurrentStage != funneldomain.StageClosedWon {
		t.Fatalf("current stage = %s, want closed_won", rec.CurrentStage)
	}
	if len(rec.StageHistory) != 3 {
		t.Fatalf("history length = %d, want 3", len(rec.StageHistory))
	}
}

func TestSweepStale(t *testing.T) {
	repo := newFakeFunnelRepo()
	svc := newTestService(repo)
	tenantID, leadID := uuid.New(), uuid.New()

	if _, err := svc.RecordStageEvent(context.Background(), StageEventParams{
		TenantID: tenantID, LeadID: leadID, Stage: funneldomain.StageLeadCaptured,
	}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	rec := repo.records[leadID]
	rec.UpdatedAt = time.Now().UTC().Add(-100 * time.Hour)
	repo.records[leadID] = rec

	count, err := svc.SweepStale(context.Background(), 72*time.Hour)
	if err != nil {
		t.Fatalf("SweepStale failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("stale count = %d, want 1", count)
	}
}
