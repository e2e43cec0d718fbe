package service

import (
	"sort"
	"time"

	"tourcrm_backend/internal/analytics/transport"
	funnelrepo "tourcrm_backend/internal/funnel/repository"
)

type channelAccumulator struct {
	leads       int
	qualified   int
	conversions int
	revenue     float64
	cost        float64

	contactHours float64
	contactCount int
	qualifyHours float64
	qualifyCount int
	convertHours float64
	convertCount int
}

// ChannelPerformance aggregates funnel records per acquisition channel.
// Rate metrics guard against zero denominators, reporting 0 rather than Inf.
func ChannelPerformance(records []funnelrepo.Record, windowDays int) transport.ChannelPerformanceResponse {
	acc := make(map[string]*channelAccumulator)
	for _, rec := range records {
		channel := rec.Channel
		if channel == "" {
			channel = "unknown"
		}
		a := acc[channel]
		if a == nil {
			a = &channelAccumulator{}
			acc[channel] = a
		}
		a.leads++
		if rec.QualifiedAt != nil {
			a.qualified++
		}
		a.cost += rec.AcquisitionCost
		for _, tp := range rec.Touchpoints {
			a.cost += tp.Cost
		}
		if rec.IsConverted {
			a.conversions++
			a.revenue += rec.ConversionValue
		}
		addElapsed(&a.contactHours, &a.contactCount, rec.LeadCapturedAt, rec.ContactedAt)
		addElapsed(&a.qualifyHours, &a.qualifyCount, rec.LeadCapturedAt, rec.QualifiedAt)
		addElapsed(&a.convertHours, &a.convertCount, rec.LeadCapturedAt, rec.ClosedWonAt)
	}

	channels := make([]transport.ChannelMetrics, 0, len(acc))
	for name, a := range acc {
		m := transport.ChannelMetrics{
			Channel:     name,
			Leads:       a.leads,
			Qualified:   a.qualified,
			Conversions: a.conversions,
			Revenue:     a.revenue,
			Cost:        a.cost,
		}
		if a.leads > 0 {
			m.QualificationRate = float64(a.qualified) / float64(a.leads)
			m.CostPerLead = a.cost / float64(a.leads)
			m.RevenuePerLead = a.revenue / float64(a.leads)
		}
		if a.qualified > 0 {
			m.ConversionRate = float64(a.conversions) / float64(a.qualified)
		}
		if a.conversions > 0 {
			m.CostPerAcquisition = a.cost / float64(a.conversions)
		}
		if a.cost > 0 {
			m.ROIPercent = (a.revenue - a.cost) / a.cost * 100
			m.ROAS = a.revenue / a.cost
		}
		if a.contactCount > 0 {
			m.AvgHoursToContact = a.contactHours / float64(a.contactCount)
		}
		if a.qualifyCount > 0 {
			m.AvgHoursToQualify = a.qualifyHours / float64(a.qualifyCount)
		}
		if a.convertCount > 0 {
			m.AvgHoursToConvert = a.convertHours / float64(a.convertCount)
		}
		channels = append(channels, m)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i].Revenue > channels[j].Revenue })

	return transport.ChannelPerformanceResponse{
		Channels:   channels,
		WindowDays: windowDays,
	}
}

func addElapsed(total *float64, count *int, from time.Time, to *time.Time) {
	if to == nil {
		return
	}
	*total += to.Sub(from).Hours()
	*count++
}
