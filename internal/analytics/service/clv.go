package service

import (
	"time"

	"github.com/google/uuid"

	"tourcrm_backend/internal/analytics/repository"
	"tourcrm_backend/internal/analytics/transport"
)

const clvMethod = "heuristic_v1"

// CustomerLifetimeValue projects value from a customer's closed deals.
// Annual value is average order value times purchases per month times 12;
// the three-year figure applies a 2.5x retention multiplier instead of a
// straight 3x to price in churn. Labeled a heuristic so consumers do not
// mistake it for a fitted model.
func CustomerLifetimeValue(customerID uuid.UUID, deals []repository.Deal, now time.Time) transport.CLVResponse {
	resp := transport.CLVResponse{
		CustomerID: customerID,
		Method:     clvMethod,
		ComputedAt: now,
	}
	if len(deals) == 0 {
		return resp
	}

	total := 0.0
	first, last := deals[0].ClosedAt, deals[0].ClosedAt
	for _, d := range deals {
		total += d.Value
		if d.ClosedAt.Before(first) {
			first = d.ClosedAt
		}
		if d.ClosedAt.After(last) {
			last = d.ClosedAt
		}
	}

	months := last.Sub(first).Hours() / (24 * 30)
	if months < 1 {
		months = 1
	}

	resp.AvgOrderValue = total / float64(len(deals))
	resp.MonthlyFrequency = float64(len(deals)) / months
	resp.AnnualValue = resp.AvgOrderValue * resp.MonthlyFrequency * 12
	resp.ThreeYearValue = resp.AnnualValue * 2.5
	return resp
}
