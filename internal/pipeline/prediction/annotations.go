package prediction

import (
	"math"
	"time"

	"tourcrm_backend/internal/pipeline/domain"
	pipelinerepo "tourcrm_backend/internal/pipeline/repository"
)

// Deal-size buckets, smallest to largest.
const (
	BucketSmall      = "small"
	BucketMedium     = "medium"
	BucketLarge      = "large"
	BucketEnterprise = "enterprise"
)

// DealSizePrediction buckets the expected deal value.
type DealSizePrediction struct {
	Bucket     string
	Confidence float64
}

// ClosingTimePrediction estimates days until the deal closes.
type ClosingTimePrediction struct {
	Days       int
	Confidence float64
}

// ChurnRiskPrediction scores the risk of the prospect going cold, in [0,1].
type ChurnRiskPrediction struct {
	Score      float64
	Confidence float64
}

func predictDealSize(opp pipelinerepo.Opportunity) DealSizePrediction {
	if opp.EstimatedValue <= 0 {
		return DealSizePrediction{Bucket: BucketMedium, Confidence: 0.2}
	}

	bucket := BucketEnterprise
	switch {
	case opp.EstimatedValue < 5_000:
		bucket = BucketSmall
	case opp.EstimatedValue < 25_000:
		bucket = BucketMedium
	case opp.EstimatedValue < 100_000:
		bucket = BucketLarge
	}
	return DealSizePrediction{Bucket: bucket, Confidence: 0.8}
}

// predictClosingTime walks the SLA budget of the current and remaining
// stages. Deals with a strong win estimate are expected to move faster than
// their SLA budget, weak ones slower.
func predictClosingTime(opp pipelinerepo.Opportunity, template domain.Template, probability float64, now time.Time) ClosingTimePrediction {
	remainingHours := 0.0
	sawSLA := false

	if sla := template.SLAHours(opp.CurrentStage); sla > 0 {
		sawSLA = true
		left := float64(sla) - now.Sub(opp.StageEnteredAt).Hours()
		if left > 0 {
			remainingHours += left
		}
	}
	for i := stagePosition(opp.CurrentStage) + 1; i < len(stageOrder); i++ {
		if sla := template.SLAHours(stageOrder[i]); sla > 0 {
			sawSLA = true
			remainingHours += float64(sla)
		}
	}
	if !sawSLA {
		return ClosingTimePrediction{Days: 0, Confidence: 0}
	}

	days := int(math.Ceil(remainingHours / 24 * (1.6 - 0.8*clamp(probability, 0, 1))))
	if days < 1 {
		days = 1
	}
	return ClosingTimePrediction{Days: days, Confidence: 0.7}
}

// predictChurn reads disengagement out of the interaction features. With no
// interactions there is nothing to read, so the score stays neutral at
// confidence zero.
func predictChurn(f featureVector, interactionCount int) ChurnRiskPrediction {
	if interactionCount == 0 {
		return ChurnRiskPrediction{Score: 0.5, Confidence: 0}
	}

	score := clamp(0.5-0.2*f.sentiment-0.2*f.recency-0.2*(f.interactionVolume-0.5), 0, 1)
	return ChurnRiskPrediction{Score: score, Confidence: confidence(f, interactionCount)}
}
