package service

import (
	"fmt"
	"math"
	"sort"
	"time"

	"tourcrm_backend/internal/analytics/transport"
	funnelrepo "tourcrm_backend/internal/funnel/repository"
)

const (
	cohortMethod        = "exponential_decay_v1"
	cohortHorizonMonths = 12
)

// Cohort grouping periods.
const (
	PeriodMonthly   = "monthly"
	PeriodQuarterly = "quarterly"
)

// AnalyzeCohorts groups funnel records into monthly or quarterly acquisition
// cohorts and attaches a retention curve per cohort. Months that have already
// elapsed use the decay model against observed conversion strength; months
// beyond the present are flagged Projected so callers can tell model output
// from observation.
func AnalyzeCohorts(records []funnelrepo.Record, period string, now time.Time) (transport.CohortAnalysisResponse, error) {
	if period == "" {
		period = PeriodMonthly
	}
	if period != PeriodMonthly && period != PeriodQuarterly {
		return transport.CohortAnalysisResponse{}, fmt.Errorf("unknown cohort period %q", period)
	}

	type cohortAcc struct {
		start     time.Time
		size      int
		converted int
		revenue   float64
	}

	acc := make(map[string]*cohortAcc)
	for _, rec := range records {
		start, key := cohortBucket(rec.LeadCapturedAt, period)
		a := acc[key]
		if a == nil {
			a = &cohortAcc{start: start}
			acc[key] = a
		}
		a.size++
		if rec.IsConverted {
			a.converted++
			a.revenue += rec.ConversionValue
		}
	}

	cohorts := make([]transport.CohortMetrics, 0, len(acc))
	for key, a := range acc {
		rate := 0.0
		if a.size > 0 {
			rate = float64(a.converted) / float64(a.size)
		}
		cohorts = append(cohorts, transport.CohortMetrics{
			Cohort:    key,
			Size:      a.size,
			Revenue:   a.revenue,
			Retention: retentionCurve(a.start, rate, now),
		})
	}
	sort.Slice(cohorts, func(i, j int) bool { return cohorts[i].Cohort < cohorts[j].Cohort })

	return transport.CohortAnalysisResponse{
		Cohorts:       cohorts,
		Period:        period,
		Method:        cohortMethod,
		HorizonMonths: cohortHorizonMonths,
	}, nil
}

// cohortBucket maps an acquisition date onto its period start and label,
// "2006-01" for monthly and "2006-Q1" for quarterly cohorts.
func cohortBucket(capturedAt time.Time, period string) (time.Time, string) {
	if period == PeriodQuarterly {
		quarter := (int(capturedAt.Month()) - 1) / 3
		start := time.Date(capturedAt.Year(), time.Month(quarter*3+1), 1, 0, 0, 0, 0, time.UTC)
		return start, fmt.Sprintf("%d-Q%d", capturedAt.Year(), quarter+1)
	}
	start := time.Date(capturedAt.Year(), capturedAt.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.Format("2006-01")
}

// retentionCurve models retention as exponential decay. Cohorts that convert
// better decay slower. Decay rate stays within [0.1, 1.0] so a fully
// converting cohort still loses some customers month over month.
func retentionCurve(cohortStart time.Time, conversionRate float64, now time.Time) []transport.CohortRetentionPoint {
	lambda := 1.0 - 0.9*conversionRate
	if lambda < 0.1 {
		lambda = 0.1
	}

	points := make([]transport.CohortRetentionPoint, 0, cohortHorizonMonths)
	for m := 0; m < cohortHorizonMonths; m++ {
		points = append(points, transport.CohortRetentionPoint{
			MonthOffset: m,
			Retention:   math.Exp(-lambda * float64(m)),
			Projected:   cohortStart.AddDate(0, m+1, 0).After(now),
		})
	}
	return points
}
