package service

import (
	"time"

	"tourcrm_backend/internal/analytics/transport"
	funneldomain "tourcrm_backend/internal/funnel/domain"
	funnelrepo "tourcrm_backend/internal/funnel/repository"
)

// AnalyzeFunnel walks the fixed stage order and counts how many leads
// reached each stage. A lead counts for a stage when its history contains
// that stage or any later one, which keeps counts monotonically
// non-increasing by construction.
func AnalyzeFunnel(records []funnelrepo.Record, windowDays int) transport.FunnelAnalysisResponse {
	counts := make([]int, len(funneldomain.StageOrder))
	for _, rec := range records {
		reached := maxStageIndex(rec)
		for i := 0; i <= reached && i < len(counts); i++ {
			counts[i]++
		}
	}

	stages := make([]transport.FunnelStageMetrics, 0, len(funneldomain.StageOrder))
	for i, stage := range funneldomain.StageOrder {
		metrics := transport.FunnelStageMetrics{
			Stage: stage,
			Count: counts[i],
		}
		if i == 0 {
			metrics.ConversionRate = 1.0
		} else if counts[i-1] > 0 {
			metrics.ConversionRate = float64(counts[i]) / float64(counts[i-1])
		}
		if i < len(funneldomain.StageOrder)-1 {
			metrics.AvgHoursToNext = avgHoursBetween(records, stage, funneldomain.StageOrder[i+1])
		}
		stages = append(stages, metrics)
	}

	overall := 0.0
	if counts[0] > 0 {
		overall = float64(counts[len(counts)-1]) / float64(counts[0])
	}

	return transport.FunnelAnalysisResponse{
		Stages:            stages,
		OverallConversion: overall,
		TotalLeads:        counts[0],
		WindowDays:        windowDays,
	}
}

func maxStageIndex(rec funnelrepo.Record) int {
	max := -1
	for _, event := range rec.StageHistory {
		if idx := funneldomain.StageIndex(event.Stage); idx > max {
			max = idx
		}
	}
	return max
}

func avgHoursBetween(records []funnelrepo.Record, from, to string) float64 {
	total, count := 0.0, 0
	for _, rec := range records {
		fromAt := stageTimestamp(rec, from)
		toAt := stageTimestamp(rec, to)
		if fromAt == nil || toAt == nil {
			continue
		}
		total += toAt.Sub(*fromAt).Hours()
		count++
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func stageTimestamp(rec funnelrepo.Record, stage string) *time.Time {
	switch stage {
	case funneldomain.StageLeadCaptured:
		t := rec.LeadCapturedAt
		return &t
	case funneldomain.StageContacted:
		return rec.ContactedAt
	case funneldomain.StageQualified:
		return rec.QualifiedAt
	case funneldomain.StageProposalSent:
		return rec.ProposalSentAt
	case funneldomain.StageClosedWon:
		return rec.ClosedWonAt
	}
	return nil
}
