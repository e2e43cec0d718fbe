package scoring

import (
	"context"
	"math"
	"testing"
	"time"

	"tourcrm_backend/internal/events"
	"tourcrm_backend/internal/leads/repository"
	"tourcrm_backend/platform/logger"

	"github.com/google/uuid"
)

func newTestService(repo repository.LeadsRepository) *Service {
	return New(repo, DefaultConfig(), time.Minute, events.NewInMemoryBus(logger.New("test")), logger.New("test"))
}

func strPtr(s string) *string   { return &s }
func f64Ptr(f float64) *float64 { return &f }

func TestComputeHotWebsiteLead(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := newTestService(nil)
	svc.now = func() time.Time { return now }

	lead := repository.Lead{
		FirstName:    "Ana",
		LastName:     "Silva",
		Phone:        "+14155550101",
		Channel:      "website_direct",
		CustomerType: "b2c_individual",
		Interests:    []string{"adventure", "culture"},
		BudgetRange:  strPtr("2000-5000"),
		Priority:     "normal",
		CreatedAt:    now.Add(-6 * time.Hour),
	}
	interactions := []repository.Interaction{
		{Sentiment: f64Ptr(0.6), CreatedAt: now.Add(-5 * time.Hour)},
		{Sentiment: f64Ptr(0.8), CreatedAt: now.Add(-2 * time.Hour)},
	}

	result := svc.Compute(lead, interactions)

	if result.Factors["behavioral"] < 0.6 {
		t.Fatalf("behavioral = %.2f, want >= 0.6", result.Factors["behavioral"])
	}
	if result.Factors["engagement"] < 0.5 {
		t.Fatalf("engagement = %.2f, want >= 0.5", result.Factors["engagement"])
	}
	if result.Factors["urgency"] != 1.0 {
		t.Fatalf("urgency = %.2f, want 1.0 for a lead under a day old", result.Factors["urgency"])
	}
	if result.Score < 50 {
		t.Fatalf("score = %.2f, want >= 50", result.Score)
	}
	want := math.Min(result.Score/100, 1.0)
	if result.ConversionProbability != want {
		t.Fatalf("conversion probability = %.4f, want %.4f", result.ConversionProbability, want)
	}
}

func TestComputeEmptyLeadScoresLow(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := newTestService(nil)
	svc.now = func() time.Time { return now }

	lead := repository.Lead{
		Channel:      "purchased_list",
		CustomerType: "b2c_individual",
		Priority:     "low",
		CreatedAt:    now.AddDate(0, -2, 0),
	}

	result := svc.Compute(lead, nil)

	if result.Factors["engagement"] != 0 {
		t.Fatalf("engagement = %.2f, want 0 without interactions", result.Factors["engagement"])
	}
	if result.Factors["urgency"] != 0 {
		t.Fatalf("urgency = %.2f, want 0 for a two month old low priority lead", result.Factors["urgency"])
	}
	if result.Score >= 20 {
		t.Fatalf("score = %.2f, want < 20 for an empty stale lead", result.Score)
	}
}

func TestComputeFactorsStayInRange(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := newTestService(nil)
	svc.now = func() time.Time { return now }

	// Everything maxed out: every factor must clamp to 1 and the total to 100.
	lead := repository.Lead{
		FirstName:       "Max",
		LastName:        "Overmars",
		Phone:           "+31612345678",
		Company:         strPtr("Overmars Reizen BV"),
		Channel:         "referral",
		Country:         strPtr("NL"),
		CustomerType:    "b2b_corporate",
		Interests:       []string{"safari", "culture", "adventure"},
		TourPreferences: strPtr("two week private safari"),
		BudgetRange:     strPtr("10000+"),
		UTMCampaign:     strPtr("summer"),
		Priority:        "urgent",
		CreatedAt:       now.Add(-time.Hour),
	}
	interactions := make([]repository.Interaction, 0, 8)
	for i := 0; i < 8; i++ {
		interactions = append(interactions, repository.Interaction{
			Sentiment: f64Ptr(1.0),
			CreatedAt: now.Add(-time.Duration(i) * time.Hour),
		})
	}

	result := svc.Compute(lead, interactions)

	for name, value := range result.Factors {
		if value < 0 || value > 1 {
			t.Fatalf("factor %s = %.4f, want within [0,1]", name, value)
		}
	}
	if result.Score > 100 {
		t.Fatalf("score = %.2f, want <= 100", result.Score)
	}
	if result.ConversionProbability > 1 {
		t.Fatalf("conversion probability = %.4f, want <= 1", result.ConversionProbability)
	}
}

func TestNegativeSentimentEarnsNoEngagementCredit(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := newTestService(nil)
	svc.now = func() time.Time { return now }

	lead := repository.Lead{Channel: "website_direct", CreatedAt: now.Add(-6 * time.Hour)}
	sour := []repository.Interaction{
		{Sentiment: f64Ptr(-0.8), CreatedAt: now.Add(-5 * time.Hour)},
		{Sentiment: f64Ptr(-0.2), CreatedAt: now.Add(-2 * time.Hour)},
	}
	silent := []repository.Interaction{
		{CreatedAt: now.Add(-5 * time.Hour)},
		{CreatedAt: now.Add(-2 * time.Hour)},
	}

	sourResult := svc.Compute(lead, sour)
	silentResult := svc.Compute(lead, silent)

	if sourResult.Factors["engagement"] != silentResult.Factors["engagement"] {
		t.Fatalf("negative sentiment changed engagement: %.2f vs %.2f without sentiment",
			sourResult.Factors["engagement"], silentResult.Factors["engagement"])
	}
}

func TestComputeCorporateNeedsCompany(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	svc := newTestService(nil)
	svc.now = func() time.Time { return now }

	base := repository.Lead{
		FirstName:    "Jan",
		LastName:     "Visser",
		Phone:        "+31687654321",
		Channel:      "email",
		CustomerType: "b2b_corporate",
		CreatedAt:    now,
	}
	withCompany := base
	withCompany.Company = strPtr("Visser Travel Group")

	without := svc.Compute(base, nil)
	with := svc.Compute(withCompany, nil)

	if with.Factors["demographic"] <= without.Factors["demographic"] {
		t.Fatalf("demographic with company = %.2f, without = %.2f, want company to raise it",
			with.Factors["demographic"], without.Factors["demographic"])
	}
}

func TestConfigRejectsBadWeights(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Weights.Urgency = 0.5
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected validation error for weights not summing to 1.0")
	}
}

type scoreRecordingRepo struct {
	repository.LeadsRepository

	leads        map[uuid.UUID]repository.Lead
	interactions map[uuid.UUID][]repository.Interaction
	savedScore   float64
	savedProb    float64
}

func (r *scoreRecordingRepo) GetByID(_ context.Context, id uuid.UUID, _ uuid.UUID) (repository.Lead, error) {
	lead, ok := r.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return lead, nil
}

func (r *scoreRecordingRepo) ListInteractions(_ context.Context, leadID uuid.UUID, _ uuid.UUID) ([]repository.Interaction, error) {
	return r.interactions[leadID], nil
}

func (r *scoreRecordingRepo) UpdateScore(_ context.Context, _ uuid.UUID, _ uuid.UUID, score, probability float64) error {
	r.savedScore = score
	r.savedProb = probability
	return nil
}

func TestRecalculateMissingLeadScoresZero(t *testing.T) {
	repo := &scoreRecordingRepo{leads: map[uuid.UUID]repository.Lead{}}
	svc := newTestService(repo)

	result, err := svc.Recalculate(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("Recalculate returned error for missing lead: %v", err)
	}
	if result.Score != 0 {
		t.Fatalf("score = %.2f, want 0 for missing lead", result.Score)
	}
}

func TestRecalculatePersistsScore(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	leadID := uuid.New()
	repo := &scoreRecordingRepo{
		leads: map[uuid.UUID]repository.Lead{
			leadID: {
				ID:           leadID,
				FirstName:    "Ana",
				LastName:     "Silva",
				Phone:        "+14155550101",
				Channel:      "referral",
				CustomerType: "b2c_individual",
				Priority:     "high",
				CreatedAt:    now.Add(-time.Hour),
			},
		},
		interactions: map[uuid.UUID][]repository.Interaction{},
	}
	svc := newTestService(repo)
	svc.now = func() time.Time { return now }

	result, err := svc.Recalculate(context.Background(), leadID, uuid.New())
	if err != nil {
		t.Fatalf("Recalculate failed: %v", err)
	}
	if repo.savedScore != result.Score {
		t.Fatalf("persisted score = %.2f, result score = %.2f", repo.savedScore, result.Score)
	}
	if repo.savedProb != result.ConversionProbability {
		t.Fatalf("persisted probability = %.4f, result probability = %.4f", repo.savedProb, result.ConversionProbability)
	}
}
