package service

import (
	"fmt"
	"math"

	"tourcrm_backend/internal/analytics/transport"
	funnelrepo "tourcrm_backend/internal/funnel/repository"
)

const (
	ModelFirstTouch    = "first_touch"
	ModelLastTouch     = "last_touch"
	ModelLinear        = "linear"
	ModelTimeDecay     = "time_decay"
	ModelPositionBased = "position_based"
)

// Attribute distributes a funnel record's conversion value across its
// touchpoints under the requested model. Per-touchpoint credits are merged
// by channel, keeping first-seen channel order. The credits always sum to
// the conversion value.
func Attribute(rec funnelrepo.Record, model string) (transport.AttributionResponse, error) {
	n := len(rec.Touchpoints)
	if n == 0 {
		return transport.AttributionResponse{
			LeadID:  rec.LeadID,
			Model:   model,
			Credits: []transport.AttributionCredit{},
		}, nil
	}

	weights, err := touchpointWeights(model, n)
	if err != nil {
		return transport.AttributionResponse{}, err
	}

	order := make([]string, 0, n)
	byChannel := make(map[string]*transport.AttributionCredit)
	for i, tp := range rec.Touchpoints {
		credit := byChannel[tp.Channel]
		if credit == nil {
			credit = &transport.AttributionCredit{Channel: tp.Channel}
			byChannel[tp.Channel] = credit
			order = append(order, tp.Channel)
		}
		credit.Weight += weights[i]
		credit.Credit += weights[i] * rec.ConversionValue
	}

	credits := make([]transport.AttributionCredit, 0, len(order))
	for _, channel := range order {
		credits = append(credits, *byChannel[channel])
	}

	return transport.AttributionResponse{
		LeadID:          rec.LeadID,
		Model:           model,
		ConversionValue: rec.ConversionValue,
		Credits:         credits,
	}, nil
}

func touchpointWeights(model string, n int) ([]float64, error) {
	weights := make([]float64, n)
	switch model {
	case ModelFirstTouch:
		weights[0] = 1
	case ModelLastTouch:
		weights[n-1] = 1
	case ModelLinear:
		for i := range weights {
			weights[i] = 1 / float64(n)
		}
	case ModelTimeDecay:
		// Each earlier touch carries half the weight of the next one.
		total := 0.0
		for i := range weights {
			weights[i] = math.Pow(0.5, float64(n-i-1))
			total += weights[i]
		}
		for i := range weights {
			weights[i] /= total
		}
	case ModelPositionBased:
		switch n {
		case 1:
			weights[0] = 1
		case 2:
			weights[0], weights[1] = 0.5, 0.5
		default:
			weights[0], weights[n-1] = 0.4, 0.4
			middle := 0.2 / float64(n-2)
			for i := 1; i < n-1; i++ {
				weights[i] = middle
			}
		}
	default:
		return nil, fmt.Errorf("unknown attribution model %q", model)
	}
	return weights, nil
}
