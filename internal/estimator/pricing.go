package estimator

import "strings"

// ModelPricing is USD per million tokens for one model family.
type ModelPricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// PricingForModel classifies by substring match on the model name, mirroring
// Anthropic's own family naming convention (haiku/sonnet/opus):
// haiku-family models get cheap pricing, opus-family get premium pricing,
// and everything else (sonnet, or an unrecognized name) gets the sonnet
// mid-tier rate as a safe default.
func PricingForModel(model string) ModelPricing {
	switch {
	case strings.Contains(model, "haiku"):
		return ModelPricing{InputPerMTok: 1.0, OutputPerMTok: 5.0}
	case strings.Contains(model, "opus"):
		return ModelPricing{InputPerMTok: 15.0, OutputPerMTok: 75.0}
	default:
		return ModelPricing{InputPerMTok: 3.0, OutputPerMTok: 15.0}
	}
}

func (p ModelPricing) CalculateCost(inputTokens, outputTokens int64) float64 {
	return float64(inputTokens)/1_000_000.0*p.InputPerMTok +
		float64(outputTokens)/1_000_000.0*p.OutputPerMTok
}
