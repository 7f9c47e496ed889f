package estimator

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLLM struct {
	text         string
	inputTokens  int64
	outputTokens int64
	called       int
	lastModel    string
	lastPrompt   string
}

func (f *fakeLLM) Complete(ctx context.Context, model string, maxTokens int, prompt string) (string, int64, int64, error) {
	f.called++
	f.lastModel = model
	f.lastPrompt = prompt
	return f.text, f.inputTokens, f.outputTokens, nil
}

func sampleMarket() domain.Market {
	return domain.Market{
		ConditionID: "0xcond1",
		Question:    "Will it rain in NYC tomorrow?",
		Volume24h:   5000.0,
		Liquidity:   2000.0,
		EndDate:     time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestModelPricingHaiku(t *testing.T) {
	p := PricingForModel("claude-haiku-4-5-20251001")
	assert.Equal(t, 1.0, p.InputPerMTok)
	assert.Equal(t, 5.0, p.OutputPerMTok)
	assert.InDelta(t, 0.00075, p.CalculateCost(500, 50), 1e-10)
}

func TestModelPricingSonnet(t *testing.T) {
	p := PricingForModel("claude-sonnet-4-5-20250929")
	assert.Equal(t, 3.0, p.InputPerMTok)
	assert.Equal(t, 15.0, p.OutputPerMTok)
}

func TestModelPricingUnknownDefaultsToSonnet(t *testing.T) {
	p := PricingForModel("some-unknown-model")
	assert.Equal(t, 3.0, p.InputPerMTok)
	assert.Equal(t, 15.0, p.OutputPerMTok)
}

func TestRenderPromptBasic(t *testing.T) {
	prompt := renderPrompt(sampleMarket(), 0.65, nil)
	assert.Contains(t, prompt, "Will it rain in NYC tomorrow?")
	assert.Contains(t, prompt, "0.65")
	assert.Contains(t, prompt, "0.35")
	assert.Contains(t, prompt, "5000")
	assert.Contains(t, prompt, "2000")
}

func TestRenderPromptRemovesConditionalBlocksWithoutWeather(t *testing.T) {
	prompt := renderPrompt(sampleMarket(), 0.65, nil)
	assert.NotContains(t, prompt, "{{#if weather_data}}")
	assert.NotContains(t, prompt, "{{/if}}")
	assert.NotContains(t, prompt, "{{#if sports_data}}")
}

func TestRenderPromptWithWeatherFillsBlock(t *testing.T) {
	bias := 0.5
	wx := domain.WeatherContext{
		Probs: domain.WeatherProbabilities{
			City: "NYC", StationICAO: "KLGA", ForecastDate: "2026-02-20",
			Buckets: []domain.BucketProbability{
				{BucketLabel: "74-76", Lower: 74, Upper: 76, Probability: 0.35},
			},
			EnsembleMean: 75.8, EnsembleStd: 2.3, GEFSCount: 31, ECMWFCount: 51,
			BiasCorrection: &bias,
		},
		ModelProbability: floatPtr(0.35),
	}
	prompt := renderPrompt(sampleMarket(), 0.65, &wx)
	assert.NotContains(t, prompt, "{{#if weather_data}}")
	assert.Contains(t, prompt, "KLGA")
	assert.Contains(t, prompt, "2026-02-20")
	assert.Contains(t, prompt, "75.8")
	assert.Contains(t, prompt, "31 GEFS")
	assert.Contains(t, prompt, "74-76")
	assert.Contains(t, prompt, "35.0%")
}

func floatPtr(f float64) *float64 { return &f }

func TestParseEstimateValidJSON(t *testing.T) {
	est, err := parseEstimate(`{"probability": 0.72, "confidence": 0.85, "reasoning": "Test reasoning", "data_quality": "high"}`)
	require.NoError(t, err)
	assert.InDelta(t, 0.72, est.Probability, 1e-10)
	assert.InDelta(t, 0.85, est.Confidence, 1e-10)
	assert.Equal(t, "Test reasoning", est.Reasoning)
	assert.Equal(t, "high", est.DataQuality)
}

func TestParseEstimateFencedJSON(t *testing.T) {
	est, err := parseEstimate("```json\n{\"probability\": 0.60, \"confidence\": 0.70, \"reasoning\": \"Fenced test\", \"data_quality\": \"medium\"}\n```")
	require.NoError(t, err)
	assert.InDelta(t, 0.60, est.Probability, 1e-10)
	assert.Equal(t, "medium", est.DataQuality)
}

func TestParseEstimateInvalidProbability(t *testing.T) {
	_, err := parseEstimate(`{"probability": 1.5, "confidence": 0.85, "reasoning": "Bad", "data_quality": "high"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "probability")
}

func TestParseEstimateInvalidDataQuality(t *testing.T) {
	_, err := parseEstimate(`{"probability": 0.72, "confidence": 0.85, "reasoning": "Bad quality", "data_quality": "excellent"}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "data_quality")
}

func TestTriageReturnsDecision(t *testing.T) {
	llm := &fakeLLM{text: "YES. This weather market likely has mispricing based on ensemble data.", inputTokens: 500, outputTokens: 50}
	e := New(llm, "claude-haiku-4-5-20251001", "claude-sonnet-4-5-20250929")

	decision, cost, err := e.Triage(context.Background(), sampleMarket(), 0.65)
	require.NoError(t, err)
	assert.Equal(t, domain.TriageAnalyze, decision)
	assert.Greater(t, cost.CostUSD, 0.0)
	assert.Equal(t, int64(500), cost.InputTokens)
	assert.Equal(t, int64(50), cost.OutputTokens)
}

func TestEvaluateBudgetEnforcement(t *testing.T) {
	llm := &fakeLLM{text: "NO", inputTokens: 1, outputTokens: 1}
	e := New(llm, "claude-haiku-4-5-20251001", "claude-sonnet-4-5-20250929")

	result, err := e.Evaluate(context.Background(), sampleMarket(), 0.65, 0.50, 0.50, nil)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, llm.called)

	result, err = e.Evaluate(context.Background(), sampleMarket(), 0.65, 1.00, 0.50, nil)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 0, llm.called)
}

func TestEvaluateSkipsAnalysisOnTriageSkip(t *testing.T) {
	llm := &fakeLLM{text: "NO, nothing interesting here.", inputTokens: 100, outputTokens: 10}
	e := New(llm, "claude-haiku-4-5-20251001", "claude-sonnet-4-5-20250929")

	result, err := e.Evaluate(context.Background(), sampleMarket(), 0.65, 0.0, 0.50, nil)
	require.NoError(t, err)
	assert.Nil(t, result)
	assert.Equal(t, 1, llm.called)
}
