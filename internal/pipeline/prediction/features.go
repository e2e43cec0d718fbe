package prediction

import (
	"math"
	"time"

	leadsrepo "tourcrm_backend/internal/leads/repository"
	"tourcrm_backend/internal/pipeline/domain"
	pipelinerepo "tourcrm_backend/internal/pipeline/repository"
)

// featureVector holds the model inputs, each normalized to roughly [-1,1].
type featureVector struct {
	stageProgress      float64 // position of the current stage in the funnel
	templateBaseline   float64 // template probability for the stage
	stageDwellPressure float64 // dwell time relative to the stage SLA, negative when overdue
	leadScore          float64 // normalized lead score
	conversionSignal   float64 // lead conversion probability
	interactionVolume  float64 // touch count, saturating
	sentiment          float64 // average interaction sentiment
	recency            float64 // freshness of the last touch
	dealSize           float64 // estimated value on a log scale
	corporate          float64 // 1 for b2b_corporate deals
	priority           float64 // declared lead priority
}

// Model weights. Hand-fit against historical win rates, not trained online.
var weights = featureVector{
	stageProgress:      1.6,
	templateBaseline:   2.2,
	stageDwellPressure: 0.9,
	leadScore:          1.1,
	conversionSignal:   0.8,
	interactionVolume:  0.6,
	sentiment:          0.7,
	recency:            0.5,
	dealSize:           0.3,
	corporate:          0.2,
	priority:           0.4,
}

const bias = -2.4

func extractFeatures(opp pipelinerepo.Opportunity, lead leadsrepo.Lead, interactions []leadsrepo.Interaction, template domain.Template, now time.Time) featureVector {
	var f featureVector

	f.stageProgress = float64(stagePosition(opp.CurrentStage)) / float64(len(stageOrder)-1)
	f.templateBaseline = template.Probability(opp.CurrentStage)

	if slaHours := template.SLAHours(opp.CurrentStage); slaHours > 0 {
		dwell := now.Sub(opp.StageEnteredAt).Hours() / float64(slaHours)
		// On-budget dwell is neutral; overdue pulls the estimate down.
		f.stageDwellPressure = clamp(1-dwell, -1, 1)
	}

	f.leadScore = clamp(lead.LeadScore/100, 0, 1)
	f.conversionSignal = clamp(lead.ConversionProbability, 0, 1)
	f.interactionVolume = math.Min(float64(len(interactions)), 10) / 10

	sentimentSum, sentimentCount := 0.0, 0
	var latest time.Time
	for _, in := range interactions {
		if in.Sentiment != nil {
			sentimentSum += clamp(*in.Sentiment, -1, 1)
			sentimentCount++
		}
		if in.CreatedAt.After(latest) {
			latest = in.CreatedAt
		}
	}
	if sentimentCount > 0 {
		f.sentiment = sentimentSum / float64(sentimentCount)
	}
	if !latest.IsZero() {
		idleDays := now.Sub(latest).Hours() / 24
		f.recency = clamp(1-idleDays/14, -1, 1)
	}

	if opp.EstimatedValue > 0 {
		f.dealSize = clamp(math.Log10(opp.EstimatedValue)/6, 0, 1)
	}
	if opp.Template == domain.TemplateB2BCorporate {
		f.corporate = 1
	}
	switch lead.Priority {
	case "urgent":
		f.priority = 1
	case "high":
		f.priority = 0.6
	case "normal":
		f.priority = 0.3
	}

	return f
}

func score(f featureVector) float64 {
	return bias +
		weights.stageProgress*f.stageProgress +
		weights.templateBaseline*f.templateBaseline +
		weights.stageDwellPressure*f.stageDwellPressure +
		weights.leadScore*f.leadScore +
		weights.conversionSignal*f.conversionSignal +
		weights.interactionVolume*f.interactionVolume +
		weights.sentiment*f.sentiment +
		weights.recency*f.recency +
		weights.dealSize*f.dealSize +
		weights.corporate*f.corporate +
		weights.priority*f.priority
}

// confidence grows with the amount of signal behind the estimate: engaged
// leads with scores and recent touches produce trustworthy predictions.
func confidence(f featureVector, interactionCount int) float64 {
	c := 0.4
	if f.leadScore > 0 {
		c += 0.2
	}
	if interactionCount >= 3 {
		c += 0.2
	} else if interactionCount > 0 {
		c += 0.1
	}
	if f.recency > 0 {
		c += 0.2
	}
	return clamp(c, 0, 1)
}

// stageOrder lists the non-terminal stages in funnel order.
var stageOrder = []string{
	domain.StageLeadCapture,
	domain.StageQualification,
	domain.StageDiscovery,
	domain.StagePresentation,
	domain.StageProposal,
	domain.StageNegotiation,
	domain.StageClosing,
}

func stagePosition(stage string) int {
	for i, s := range stageOrder {
		if s == stage {
			return i
		}
	}
	return 0
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
