package service

import (
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"tourcrm_backend/internal/analytics/repository"
	funnelrepo "tourcrm_backend/internal/funnel/repository"
)

var testBase = time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)

func funnelRecord(reached []string, converted bool, value float64) funnelrepo.Record {
	rec := funnelrepo.Record{
		ID:             uuid.New(),
		TenantID:       uuid.New(),
		LeadID:         uuid.New(),
		Channel:        "website",
		LeadCapturedAt: testBase,
	}
	for i, stage := range reached {
		at := testBase.Add(time.Duration(i*24) * time.Hour)
		rec.StageHistory = append(rec.StageHistory, funnelrepo.StageEvent{Stage: stage, At: at})
		switch stage {
		case "contacted":
			rec.ContactedAt = &at
		case "qualified":
			rec.QualifiedAt = &at
		case "proposal_sent":
			rec.ProposalSentAt = &at
		case "closed_won":
			rec.ClosedWonAt = &at
		}
		rec.CurrentStage = stage
	}
	rec.IsConverted = converted
	rec.ConversionValue = value
	return rec
}

func TestAnalyzeFunnelCountsAreMonotone(t *testing.T) {
	records := []funnelrepo.Record{
		funnelRecord([]string{"lead_captured"}, false, 0),
		funnelRecord([]string{"lead_captured", "contacted"}, false, 0),
		funnelRecord([]string{"lead_captured", "contacted", "qualified"}, false, 0),
		funnelRecord([]string{"lead_captured", "contacted", "qualified", "proposal_sent", "closed_won"}, true, 2500),
	}

	resp := AnalyzeFunnel(records, 30)
	if len(resp.Stages) != 5 {
		t.Fatalf("expected 5 stages, got %d", len(resp.Stages))
	}
	wantCounts := []int{4, 3, 2, 1, 1}
	for i, stage := range resp.Stages {
		if stage.Count != wantCounts[i] {
			t.Fatalf("stage %s: count = %d, want %d", stage.Stage, stage.Count, wantCounts[i])
		}
		if i > 0 && stage.Count > resp.Stages[i-1].Count {
			t.Fatalf("stage %s count %d exceeds previous %d", stage.Stage, stage.Count, resp.Stages[i-1].Count)
		}
	}
	if resp.TotalLeads != 4 {
		t.Fatalf("total leads = %d, want 4", resp.TotalLeads)
	}
	if math.Abs(resp.OverallConversion-0.25) > 1e-9 {
		t.Fatalf("overall conversion = %v, want 0.25", resp.OverallConversion)
	}
	// contacted -> qualified: 2 of 3
	if math.Abs(resp.Stages[2].ConversionRate-2.0/3.0) > 1e-9 {
		t.Fatalf("qualified rate = %v", resp.Stages[2].ConversionRate)
	}
}

func TestAnalyzeFunnelEmpty(t *testing.T) {
	resp := AnalyzeFunnel(nil, 30)
	if resp.TotalLeads != 0 || resp.OverallConversion != 0 {
		t.Fatalf("expected zeroed report, got %+v", resp)
	}
}

func TestChannelPerformanceMetrics(t *testing.T) {
	won := funnelRecord([]string{"lead_captured", "contacted", "closed_won"}, true, 3000)
	won.AcquisitionCost = 100
	won.Touchpoints = []funnelrepo.Touchpoint{{Channel: "website", At: testBase, Cost: 50}}
	lost := funnelRecord([]string{"lead_captured"}, false, 0)
	lost.AcquisitionCost = 150

	resp := ChannelPerformance([]funnelrepo.Record{won, lost}, 30)
	if len(resp.Channels) != 1 {
		t.Fatalf("expected one channel, got %d", len(resp.Channels))
	}
	m := resp.Channels[0]
	if m.Leads != 2 || m.Conversions != 1 {
		t.Fatalf("leads/conversions = %d/%d", m.Leads, m.Conversions)
	}
	if m.Cost != 300 {
		t.Fatalf("cost = %v, want 300", m.Cost)
	}
	if m.CostPerLead != 150 {
		t.Fatalf("CPL = %v, want 150", m.CostPerLead)
	}
	if m.CostPerAcquisition != 300 {
		t.Fatalf("CPA = %v, want 300", m.CostPerAcquisition)
	}
	if m.RevenuePerLead != 1500 {
		t.Fatalf("RPL = %v, want 1500", m.RevenuePerLead)
	}
	if math.Abs(m.ROIPercent-900) > 1e-9 {
		t.Fatalf("ROI = %v, want 900", m.ROIPercent)
	}
	if math.Abs(m.ROAS-10) > 1e-9 {
		t.Fatalf("ROAS = %v, want 10", m.ROAS)
	}
	if m.AvgHoursToContact != 24 {
		t.Fatalf("hours to contact = %v, want 24", m.AvgHoursToContact)
	}
	if m.AvgHoursToConvert != 48 {
		t.Fatalf("hours to convert = %v, want 48", m.AvgHoursToConvert)
	}
}

func TestChannelPerformanceStageRates(t *testing.T) {
	records := []funnelrepo.Record{
		funnelRecord([]string{"lead_captured"}, false, 0),
		funnelRecord([]string{"lead_captured", "contacted"}, false, 0),
		funnelRecord([]string{"lead_captured", "contacted", "qualified"}, false, 0),
		funnelRecord([]string{"lead_captured", "contacted", "qualified", "proposal_sent", "closed_won"}, true, 2500),
	}

	resp := ChannelPerformance(records, 30)
	m := resp.Channels[0]
	if m.Qualified != 2 {
		t.Fatalf("qualified = %d, want 2", m.Qualified)
	}
	if math.Abs(m.QualificationRate-0.5) > 1e-9 {
		t.Fatalf("qualification rate = %v, want 0.5", m.QualificationRate)
	}
	if math.Abs(m.ConversionRate-0.5) > 1e-9 {
		t.Fatalf("conversion rate = %v, want 0.5 of qualified", m.ConversionRate)
	}
}

func TestChannelPerformanceZeroCost(t *testing.T) {
	rec := funnelRecord([]string{"lead_captured", "closed_won"}, true, 1000)
	resp := ChannelPerformance([]funnelrepo.Record{rec}, 7)
	m := resp.Channels[0]
	if m.ROIPercent != 0 || m.ROAS != 0 || m.CostPerLead != 0 {
		t.Fatalf("zero-cost channel must report zero ratios, got %+v", m)
	}
	if m.RevenuePerLead != 1000 {
		t.Fatalf("RPL = %v, want 1000", m.RevenuePerLead)
	}
}

func attributedRecord(value float64, channels ...string) funnelrepo.Record {
	rec := funnelRecord([]string{"lead_captured", "closed_won"}, true, value)
	rec.Touchpoints = nil
	for i, ch := range channels {
		rec.Touchpoints = append(rec.Touchpoints, funnelrepo.Touchpoint{
			Channel: ch,
			At:      testBase.Add(time.Duration(i) * time.Hour),
		})
	}
	return rec
}

func TestAttributePositionBasedThreeTouches(t *testing.T) {
	rec := attributedRecord(900, "google_ads", "email", "website")

	resp, err := Attribute(rec, ModelPositionBased)
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}
	want := map[string]float64{"google_ads": 360, "email": 180, "website": 360}
	if len(resp.Credits) != 3 {
		t.Fatalf("expected 3 credits, got %d", len(resp.Credits))
	}
	for _, credit := range resp.Credits {
		if math.Abs(credit.Credit-want[credit.Channel]) > 1e-6 {
			t.Fatalf("channel %s: credit = %v, want %v", credit.Channel, credit.Credit, want[credit.Channel])
		}
	}
}

func TestAttributeCreditsSumToConversionValue(t *testing.T) {
	rec := attributedRecord(1234.56, "google_ads", "email", "social", "email", "website")
	models := []string{ModelFirstTouch, ModelLastTouch, ModelLinear, ModelTimeDecay, ModelPositionBased}

	for _, model := range models {
		resp, err := Attribute(rec, model)
		if err != nil {
			t.Fatalf("%s: %v", model, err)
		}
		sum := 0.0
		for _, credit := range resp.Credits {
			sum += credit.Credit
		}
		if math.Abs(sum-1234.56) > 1e-6 {
			t.Fatalf("%s: credits sum to %v, want 1234.56", model, sum)
		}
	}
}

func TestAttributeTimeDecayFavorsRecentTouches(t *testing.T) {
	rec := attributedRecord(700, "first", "middle", "last")

	resp, err := Attribute(rec, ModelTimeDecay)
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}
	credits := map[string]float64{}
	for _, c := range resp.Credits {
		credits[c.Channel] = c.Credit
	}
	if !(credits["last"] > credits["middle"] && credits["middle"] > credits["first"]) {
		t.Fatalf("expected decay toward older touches, got %v", credits)
	}
	// weights 1/7, 2/7, 4/7
	if math.Abs(credits["last"]-400) > 1e-6 {
		t.Fatalf("last credit = %v, want 400", credits["last"])
	}
}

func TestAttributeMergesRepeatedChannels(t *testing.T) {
	rec := attributedRecord(100, "email", "website", "email")

	resp, err := Attribute(rec, ModelLinear)
	if err != nil {
		t.Fatalf("attribute: %v", err)
	}
	if len(resp.Credits) != 2 {
		t.Fatalf("expected merged channels, got %d credits", len(resp.Credits))
	}
	if resp.Credits[0].Channel != "email" {
		t.Fatalf("expected first-seen channel order, got %s", resp.Credits[0].Channel)
	}
	if math.Abs(resp.Credits[0].Credit-100*2.0/3.0) > 1e-6 {
		t.Fatalf("email credit = %v", resp.Credits[0].Credit)
	}
}

func TestAttributeSingleTouchModels(t *testing.T) {
	rec := attributedRecord(500, "referral")
	for _, model := range []string{ModelFirstTouch, ModelLastTouch, ModelPositionBased} {
		resp, err := Attribute(rec, model)
		if err != nil {
			t.Fatalf("%s: %v", model, err)
		}
		if len(resp.Credits) != 1 || math.Abs(resp.Credits[0].Credit-500) > 1e-6 {
			t.Fatalf("%s: expected full credit to single touch, got %+v", model, resp.Credits)
		}
	}
}

func TestAttributeRejectsUnknownModel(t *testing.T) {
	if _, err := Attribute(attributedRecord(100, "email"), "u_shaped"); err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestAnalyzeCohortsFlagsProjectedMonths(t *testing.T) {
	now := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	jan := funnelRecord([]string{"lead_captured", "closed_won"}, true, 5000)
	jan.LeadCapturedAt = time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	may := funnelRecord([]string{"lead_captured"}, false, 0)
	may.LeadCapturedAt = time.Date(2026, time.May, 3, 0, 0, 0, 0, time.UTC)

	resp, err := AnalyzeCohorts([]funnelrepo.Record{jan, may}, PeriodMonthly, now)
	if err != nil {
		t.Fatalf("AnalyzeCohorts failed: %v", err)
	}
	if resp.Method != "exponential_decay_v1" {
		t.Fatalf("method = %s", resp.Method)
	}
	if len(resp.Cohorts) != 2 {
		t.Fatalf("expected 2 cohorts, got %d", len(resp.Cohorts))
	}
	first := resp.Cohorts[0]
	if first.Cohort != "2026-01" || first.Size != 1 || first.Revenue != 5000 {
		t.Fatalf("unexpected january cohort: %+v", first)
	}
	if len(first.Retention) != 12 {
		t.Fatalf("expected 12 retention points, got %d", len(first.Retention))
	}
	if first.Retention[0].Retention != 1.0 {
		t.Fatalf("month 0 retention = %v, want 1", first.Retention[0].Retention)
	}
	// January data is observable through May, projected afterwards.
	if first.Retention[4].Projected {
		t.Fatal("month 4 for january cohort should be observed")
	}
	if !first.Retention[6].Projected {
		t.Fatal("month 6 for january cohort should be projected")
	}
	for i := 1; i < len(first.Retention); i++ {
		if first.Retention[i].Retention >= first.Retention[i-1].Retention {
			t.Fatalf("retention must decay, point %d", i)
		}
	}
}

func TestAnalyzeCohortsQuarterly(t *testing.T) {
	now := time.Date(2026, time.June, 15, 0, 0, 0, 0, time.UTC)
	jan := funnelRecord([]string{"lead_captured", "closed_won"}, true, 5000)
	jan.LeadCapturedAt = time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	feb := funnelRecord([]string{"lead_captured"}, false, 0)
	feb.LeadCapturedAt = time.Date(2026, time.February, 3, 0, 0, 0, 0, time.UTC)
	may := funnelRecord([]string{"lead_captured"}, false, 0)
	may.LeadCapturedAt = time.Date(2026, time.May, 3, 0, 0, 0, 0, time.UTC)

	resp, err := AnalyzeCohorts([]funnelrepo.Record{jan, feb, may}, PeriodQuarterly, now)
	if err != nil {
		t.Fatalf("AnalyzeCohorts failed: %v", err)
	}
	if resp.Period != PeriodQuarterly {
		t.Fatalf("period = %s, want quarterly", resp.Period)
	}
	if len(resp.Cohorts) != 2 {
		t.Fatalf("expected 2 quarterly cohorts, got %d", len(resp.Cohorts))
	}
	q1 := resp.Cohorts[0]
	if q1.Cohort != "2026-Q1" || q1.Size != 2 || q1.Revenue != 5000 {
		t.Fatalf("unexpected Q1 cohort: %+v", q1)
	}
	if resp.Cohorts[1].Cohort != "2026-Q2" {
		t.Fatalf("second cohort = %s, want 2026-Q2", resp.Cohorts[1].Cohort)
	}
}

func TestAnalyzeCohortsRejectsUnknownPeriod(t *testing.T) {
	if _, err := AnalyzeCohorts(nil, "weekly", time.Now()); err == nil {
		t.Fatal("expected an error for an unknown cohort period")
	}
}

func TestCustomerLifetimeValue(t *testing.T) {
	customerID := uuid.New()
	first := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	deals := []repository.Deal{
		{CustomerID: &customerID, LeadID: uuid.New(), Value: 1500, ClosedAt: first},
		{CustomerID: &customerID, LeadID: uuid.New(), Value: 900, ClosedAt: first.AddDate(0, 0, 60)},
	}

	resp := CustomerLifetimeValue(customerID, deals, first.AddDate(0, 3, 0))
	if resp.Method != "heuristic_v1" {
		t.Fatalf("method = %s", resp.Method)
	}
	if resp.AvgOrderValue != 1200 {
		t.Fatalf("avg order value = %v, want 1200", resp.AvgOrderValue)
	}
	if math.Abs(resp.MonthlyFrequency-1.0) > 1e-9 {
		t.Fatalf("monthly frequency = %v, want 1", resp.MonthlyFrequency)
	}
	if math.Abs(resp.AnnualValue-14400) > 1e-9 {
		t.Fatalf("annual value = %v, want 14400", resp.AnnualValue)
	}
	if math.Abs(resp.ThreeYearValue-36000) > 1e-9 {
		t.Fatalf("three year value = %v, want 36000", resp.ThreeYearValue)
	}
}

func TestCustomerLifetimeValueNoDeals(t *testing.T) {
	resp := CustomerLifetimeValue(uuid.New(), nil, testBase)
	if resp.AnnualValue != 0 || resp.ThreeYearValue != 0 {
		t.Fatalf("expected zero value, got %+v", resp)
	}
}
