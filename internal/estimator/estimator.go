// Package estimator implements the two-tier LLM pipeline: a cheap triage
// call filters out markets not worth deep analysis, and an expensive
// analysis call produces the fair-value estimate edge detection needs.
//
// Grounded on original_source/estimator.rs: ModelPricing::for_model,
// render_prompt's conditional-block splicing, parse_estimate's
// markdown-fence-tolerant JSON parsing and range validation, and
// evaluate's two-point budget check.
package estimator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
)

// Estimator runs the triage/analyze pipeline against an LLMClient.
type Estimator struct {
	client      ports.LLMClient
	haikuModel  string
	sonnetModel string
}

func New(client ports.LLMClient, haikuModel, sonnetModel string) *Estimator {
	return &Estimator{client: client, haikuModel: haikuModel, sonnetModel: sonnetModel}
}

// Triage asks the cheap model whether a market is worth deep analysis.
func (e *Estimator) Triage(ctx context.Context, market domain.Market, yesPrice float64) (domain.TriageDecision, domain.APICallCost, error) {
	prompt := fmt.Sprintf(
		"You are a prediction market analyst. A market asks: \"%s\"\n"+
			"Current YES price: %.2f (implied %.0f%% probability). Category: %s. Volume: $%.0f.\n\n"+
			"Could a well-informed analyst find >8%% mispricing here? "+
			"Answer ONLY \"YES\" or \"NO\" with one brief sentence of explanation.",
		market.Question, yesPrice, yesPrice*100.0, "General", market.Volume24h,
	)

	text, inputTokens, outputTokens, err := e.client.Complete(ctx, e.haikuModel, 100, prompt)
	if err != nil {
		return "", domain.APICallCost{}, fmt.Errorf("estimator: triage %q: %w", market.ConditionID, err)
	}

	decision := domain.TriageSkip
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(text)), "YES") {
		decision = domain.TriageAnalyze
	}

	pricing := PricingForModel(e.haikuModel)
	cost := domain.APICallCost{
		Model:        e.haikuModel,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      pricing.CalculateCost(inputTokens, outputTokens),
		Kind:         domain.CallKindTriage,
	}
	return decision, cost, nil
}

// Analyze asks the expensive model for a fair value estimate.
func (e *Estimator) Analyze(ctx context.Context, market domain.Market, yesPrice float64, weather *domain.WeatherContext) (domain.FairValueEstimate, domain.APICallCost, error) {
	prompt := renderPrompt(market, yesPrice, weather)

	text, inputTokens, outputTokens, err := e.client.Complete(ctx, e.sonnetModel, 1024, prompt)
	if err != nil {
		return domain.FairValueEstimate{}, domain.APICallCost{}, fmt.Errorf("estimator: analyze %q: %w", market.ConditionID, err)
	}

	estimate, err := parseEstimate(text)
	if err != nil {
		return domain.FairValueEstimate{}, domain.APICallCost{}, fmt.Errorf("estimator: analyze %q: %w", market.ConditionID, err)
	}

	pricing := PricingForModel(e.sonnetModel)
	cost := domain.APICallCost{
		Model:        e.sonnetModel,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      pricing.CalculateCost(inputTokens, outputTokens),
		Kind:         domain.CallKindAnalysis,
	}
	return estimate, cost, nil
}

// Evaluate runs the full two-tier pipeline with cost budget enforcement,
// checked once before triage and once after triage (before the expensive
// analysis call).
func (e *Estimator) Evaluate(ctx context.Context, market domain.Market, yesPrice, cycleCostSoFar, maxCostPerCycle float64, weather *domain.WeatherContext) (*domain.AnalysisResult, error) {
	if cycleCostSoFar >= maxCostPerCycle {
		return nil, nil
	}

	decision, triageCost, err := e.Triage(ctx, market, yesPrice)
	if err != nil {
		return nil, err
	}
	totalCost := triageCost.CostUSD
	apiCalls := []domain.APICallCost{triageCost}

	if decision == domain.TriageSkip {
		return nil, nil
	}

	if cycleCostSoFar+totalCost >= maxCostPerCycle {
		return nil, nil
	}

	estimate, analysisCost, err := e.Analyze(ctx, market, yesPrice, weather)
	if err != nil {
		return nil, err
	}
	totalCost += analysisCost.CostUSD
	apiCalls = append(apiCalls, analysisCost)

	return &domain.AnalysisResult{
		ConditionID:    market.ConditionID,
		Question:       market.Question,
		Estimate:       estimate,
		MarketYesPrice: yesPrice,
		TotalCostUSD:   totalCost,
		APICalls:       apiCalls,
	}, nil
}

var validDataQualities = map[string]bool{"high": true, "medium": true, "low": true}

// parseEstimate parses the model's response as a FairValueEstimate,
// tolerating a ```json ... ``` or ``` ... ``` markdown fence around the
// object, and validates the probability/confidence ranges and
// data_quality enum.
func parseEstimate(text string) (domain.FairValueEstimate, error) {
	var raw struct {
		Probability float64 `json:"probability"`
		Confidence  float64 `json:"confidence"`
		Reasoning   string  `json:"reasoning"`
		DataQuality string  `json:"data_quality"`
	}

	err := json.Unmarshal([]byte(text), &raw)
	if err != nil {
		stripped := strings.TrimSpace(text)
		stripped = strings.TrimPrefix(stripped, "```json")
		stripped = strings.TrimPrefix(stripped, "```")
		stripped = strings.TrimSuffix(stripped, "```")
		stripped = strings.TrimSpace(stripped)
		err = json.Unmarshal([]byte(stripped), &raw)
	}
	if err != nil {
		return domain.FairValueEstimate{}, fmt.Errorf("parse estimate JSON: %w", err)
	}

	if raw.Probability < 0.0 || raw.Probability > 1.0 {
		return domain.FairValueEstimate{}, fmt.Errorf("probability %v out of range [0, 1]", raw.Probability)
	}
	if raw.Confidence < 0.0 || raw.Confidence > 1.0 {
		return domain.FairValueEstimate{}, fmt.Errorf("confidence %v out of range [0, 1]", raw.Confidence)
	}
	if !validDataQualities[raw.DataQuality] {
		return domain.FairValueEstimate{}, fmt.Errorf("invalid data_quality: %s", raw.DataQuality)
	}

	return domain.FairValueEstimate{
		Probability: raw.Probability,
		Confidence:  raw.Confidence,
		Reasoning:   raw.Reasoning,
		DataQuality: raw.DataQuality,
	}, nil
}
