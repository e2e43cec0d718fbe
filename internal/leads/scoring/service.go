package scoring

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"tourcrm_backend/internal/events"
	"tourcrm_backend/internal/leads/repository"
	"tourcrm_backend/platform/cache"
	"tourcrm_backend/platform/logger"

	"github.com/google/uuid"
)

// scoreVersion tracks the scoring model for debugging and analysis.
// Bump this when changing scoring logic significantly.
const scoreVersion = "2026-v1"

// Result holds scoring output and per-factor sub-scores.
type Result struct {
	Score                 float64
	ConversionProbability float64
	Factors               map[string]float64
	Version               string
	UpdatedAt             time.Time
}

// Service computes lead scores from profile and interaction data.
type Service struct {
	repo  repository.LeadsRepository
	cfg   Config
	cache *cache.TTL[Result]
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

func New(repo repository.LeadsRepository, cfg Config, cacheTTL time.Duration, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:  repo,
		cfg:   cfg,
		cache: cache.NewTTL[Result](cacheTTL),
		bus:   bus,
		log:   log,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the cached score for a lead, recomputing on a cache miss.
func (s *Service) Get(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) (Result, error) {
	if result, ok := s.cache.Get(cacheKey(leadID, tenantID)); ok {
		return result, nil
	}
	return s.Recalculate(ctx, leadID, tenantID)
}

// Recalculate computes and persists a fresh score for a lead. A missing lead
// scores 0 and is logged rather than surfaced, so callers driving batch
// refreshes or journeys never fail on a deleted lead.
func (s *Service) Recalculate(ctx context.Context, leadID uuid.UUID, tenantID uuid.UUID) (Result, error) {
	lead, err := s.repo.GetByID(ctx, leadID, tenantID)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warn("lead score requested for missing lead", "lead_id", leadID, "tenant_id", tenantID)
		return Result{Version: scoreVersion, UpdatedAt: s.now()}, nil
	}
	if err != nil {
		return Result{}, err
	}

	interactions, err := s.repo.ListInteractions(ctx, leadID, tenantID)
	if err != nil {
		return Result{}, err
	}

	result := s.Compute(lead, interactions)

	if err := s.repo.UpdateScore(ctx, leadID, tenantID, result.Score, result.ConversionProbability); err != nil {
		return Result{}, err
	}
	s.cache.Set(cacheKey(leadID, tenantID), result)

	s.bus.Publish(ctx, events.LeadScoreUpdated{
		BaseEvent:             events.NewBaseEvent(),
		LeadID:                leadID,
		TenantID:              tenantID,
		Score:                 result.Score,
		ConversionProbability: result.ConversionProbability,
	})

	return result, nil
}

// RefreshRecentlyTouched recomputes scores for every lead with activity after
// the cutoff, tenant by tenant. Per-lead failures are logged and skipped so
// one bad row cannot stall the sweep.
func (s *Service) RefreshRecentlyTouched(ctx context.Context, since time.Time, perTenantLimit int) (int, error) {
	tenants, err := s.repo.ListTenantsTouchedSince(ctx, since)
	if err != nil {
		return 0, err
	}

	refreshed := 0
	for _, tenantID := range tenants {
		leads, err := s.repo.ListRecentlyTouched(ctx, tenantID, since, perTenantLimit)
		if err != nil {
			s.log.Warn("score sweep list failed", "tenant_id", tenantID, "error", err)
			continue
		}
		for _, lead := range leads {
			if _, err := s.Recalculate(ctx, lead.ID, tenantID); err != nil {
				s.log.Warn("score sweep recalculation failed", "lead_id", lead.ID, "tenant_id", tenantID, "error", err)
				continue
			}
			refreshed++
		}
	}
	return refreshed, nil
}

// Invalidate drops the cached score so the next read recomputes.
func (s *Service) Invalidate(leadID uuid.UUID, tenantID uuid.UUID) {
	s.cache.Invalidate(cacheKey(leadID, tenantID))
}

func cacheKey(leadID uuid.UUID, tenantID uuid.UUID) string {
	return tenantID.String() + ":" + leadID.String()
}

// Compute scores a lead from its profile and interaction history. Each factor
// produces a sub-score in [0,1]; the weighted sum lands on a 0-100 scale and
// the conversion probability is the score normalized back to [0,1].
func (s *Service) Compute(lead repository.Lead, interactions []repository.Interaction) Result {
	now := s.now()
	factors := map[string]float64{
		"demographic": s.scoreDemographic(lead),
		"behavioral":  s.scoreBehavioral(lead),
		"engagement":  s.scoreEngagement(lead, interactions, now),
		"fit":         s.scoreFit(lead),
		"urgency":     s.scoreUrgency(lead, now),
	}

	w := s.cfg.Weights
	total := 100 * (w.Demographic*factors["demographic"] +
		w.Behavioral*factors["behavioral"] +
		w.Engagement*factors["engagement"] +
		w.Fit*factors["fit"] +
		w.Urgency*factors["urgency"])
	total = math.Round(total*100) / 100

	return Result{
		Score:                 total,
		ConversionProbability: math.Min(total/100, 1.0),
		Factors:               factors,
		Version:               scoreVersion,
		UpdatedAt:             now,
	}
}

// scoreDemographic measures profile completeness. Contact details dominate;
// corporate leads additionally need a company name to count as complete.
func (s *Service) scoreDemographic(lead repository.Lead) float64 {
	b2b := lead.CustomerType == "b2b_corporate"

	nameWeight, phoneWeight, locationWeight, companyWeight := 0.35, 0.35, 0.30, 0.0
	if b2b {
		nameWeight, phoneWeight, locationWeight, companyWeight = 0.25, 0.25, 0.20, 0.30
	}

	score := 0.0
	if strings.TrimSpace(lead.FirstName) != "" && strings.TrimSpace(lead.LastName) != "" {
		score += nameWeight
	}
	if strings.TrimSpace(lead.Phone) != "" {
		score += phoneWeight
	}
	if lead.Country != nil && strings.TrimSpace(*lead.Country) != "" {
		score += locationWeight
	}
	if b2b && lead.Company != nil && strings.TrimSpace(*lead.Company) != "" {
		score += companyWeight
	}
	return clamp01(score)
}

// sourceQualityTable maps acquisition source keywords to a base credit.
// Direct and referral traffic converts best; paid social the worst.
var sourceQualityTable = []struct {
	keywords []string
	credit   float64
}{
	{[]string{"referral", "direct", "phone", "inbound"}, 0.4},
	{[]string{"organic", "website", "email"}, 0.35},
	{[]string{"google", "search"}, 0.3},
	{[]string{"social", "facebook", "instagram", "tiktok"}, 0.25},
	{[]string{"purchased", "list", "cold"}, 0.05},
}

// scoreBehavioral measures intent signals captured at intake: where the lead
// came from and how much trip context they volunteered.
func (s *Service) scoreBehavioral(lead repository.Lead) float64 {
	score := 0.1
	source := strings.ToLower(lead.Channel)
	if lead.Source != nil {
		source += " " + strings.ToLower(*lead.Source)
	}
	for _, entry := range sourceQualityTable {
		if containsAny(source, entry.keywords) {
			score = entry.credit
			break
		}
	}

	if lead.UTMCampaign != nil && *lead.UTMCampaign != "" {
		score += 0.2
	}
	if lead.TourPreferences != nil && strings.TrimSpace(*lead.TourPreferences) != "" {
		score += 0.2
	}
	if lead.BudgetRange != nil && *lead.BudgetRange != "" {
		score += 0.2
	}
	return clamp01(score)
}

// scoreEngagement measures interaction volume, sentiment, and recency.
func (s *Service) scoreEngagement(lead repository.Lead, interactions []repository.Interaction, now time.Time) float64 {
	if len(interactions) == 0 {
		return 0
	}

	// Volume saturates at five touches.
	score := math.Min(float64(len(interactions)), 5) / 5 * 0.4

	sentimentSum, sentimentCount := 0.0, 0
	latest := interactions[0].CreatedAt
	for _, in := range interactions {
		if in.Sentiment != nil {
			sentimentSum += clampFloat(*in.Sentiment, -1, 1)
			sentimentCount++
		}
		if in.CreatedAt.After(latest) {
			latest = in.CreatedAt
		}
	}
	if sentimentCount > 0 {
		// Only positive sentiment contributes; a sour average earns
		// nothing rather than dragging volume credit below zero.
		avg := sentimentSum / float64(sentimentCount)
		score += math.Max(avg, 0) * 0.4
	}

	if now.Sub(latest) <= 7*24*time.Hour {
		score += 0.2
	}
	return clamp01(score)
}

// scoreFit measures how well the lead matches the operator's target market:
// corporate accounts, target countries, and tourism interest overlap.
func (s *Service) scoreFit(lead repository.Lead) float64 {
	score := 0.0
	if lead.CustomerType == "b2b_corporate" {
		score += 0.3
	}
	if lead.Country != nil {
		country := strings.ToUpper(strings.TrimSpace(*lead.Country))
		for _, target := range s.cfg.TargetCountries {
			if country == strings.ToUpper(target) {
				score += 0.3
				break
			}
		}
	}

	matched := 0
	for _, interest := range lead.Interests {
		lower := strings.ToLower(interest)
		for _, known := range s.cfg.TourismInterests {
			if strings.Contains(lower, known) {
				matched++
				break
			}
		}
	}
	switch {
	case matched >= 2:
		score += 0.4
	case matched == 1:
		score += 0.25
	}
	return clamp01(score)
}

// scoreUrgency measures how hot the lead is: fresh leads get full credit,
// decaying to zero after a week, with a boost from the declared priority.
func (s *Service) scoreUrgency(lead repository.Lead, now time.Time) float64 {
	age := now.Sub(lead.CreatedAt)
	score := 0.0
	switch {
	case age <= 24*time.Hour:
		score = 1.0
	case age <= 72*time.Hour:
		score = 0.6
	case age <= 7*24*time.Hour:
		score = 0.3
	}

	switch lead.Priority {
	case "urgent":
		score += 0.3
	case "high":
		score += 0.2
	case "normal":
		score += 0.1
	}
	return clamp01(score)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func clamp01(value float64) float64 {
	return clampFloat(value, 0, 1)
}

func clampFloat(value float64, min float64, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
