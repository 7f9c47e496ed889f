package controller

import (
	"context"
	"testing"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/estimator"
	"github.com/alejandrodnm/polyagent/internal/weatherparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const analyzeJSON = `{"probability":0.65,"confidence":0.8,"reasoning":"looks mispriced","data_quality":"high"}`

func TestEnrichWeatherCachesByCityAndDate(t *testing.T) {
	question := "Will the high temperature in New York City on February 20, 2026 be between 74°F and 76°F?"
	info, ok := weatherparse.ParseQuestion(question)
	require.True(t, ok)

	m1 := baseMarket("w1")
	m1.Question = question
	m2 := baseMarket("w2")
	m2.Question = question // same city/date, should hit the cache

	weather := &fakeWeather{probs: map[string]domain.WeatherProbabilities{
		info.City + "|" + info.Date: {
			City: info.City, ForecastDate: info.Date,
			Buckets: []domain.BucketProbability{{BucketLabel: info.BucketLabel, Lower: info.BucketLower, Upper: info.BucketUpper, Probability: 0.3}},
		},
	}}

	c := New(openLedger(t), nil, nil, weather, nil, nil, nil, nil, nil, Config{})
	out := c.enrichWeather(context.Background(), []QuotedMarket{{Market: m1}, {Market: m2}})

	require.Len(t, out, 2)
	require.NotNil(t, out["w1"].ModelProbability)
	assert.InDelta(t, 0.3, *out["w1"].ModelProbability, 1e-9)
	require.NotNil(t, out["w2"].ModelProbability)
}

func TestEnrichWeatherSkipsNonWeatherMarkets(t *testing.T) {
	c := New(openLedger(t), nil, nil, &fakeWeather{}, nil, nil, nil, nil, nil, Config{})
	out := c.enrichWeather(context.Background(), []QuotedMarket{{Market: baseMarket("plain")}})
	assert.Empty(t, out)
}

func TestEnrichWeatherNilClientReturnsEmpty(t *testing.T) {
	c := New(openLedger(t), nil, nil, nil, nil, nil, nil, nil, nil, Config{})
	out := c.enrichWeather(context.Background(), []QuotedMarket{{Market: baseMarket("plain")}})
	assert.Empty(t, out)
}

func TestEstimateAccumulatesCostAndLogsAPICalls(t *testing.T) {
	db := openLedger(t)
	llm := &fakeLLM{triageYes: true, analyzeJSON: analyzeJSON}
	est := estimator.New(llm, "haiku-model", "sonnet-model")

	c := New(db, nil, nil, nil, est, nil, nil, nil, nil, Config{MaxAPICostPerCycle: 10.0})
	quoted := []QuotedMarket{
		{Market: baseMarket("x"), Quote: domain.Quote{Mid: 0.4}},
		{Market: baseMarket("y"), Quote: domain.Quote{Mid: 0.5}},
	}

	results, cost := c.estimate(context.Background(), 1, quoted, nil)
	require.Len(t, results, 2)
	assert.Greater(t, cost, 0.0)
	assert.Equal(t, 0.65, results[0].Estimate.Probability)

	cycleCost, err := db.GetCycleAPICost(context.Background(), 1)
	require.NoError(t, err)
	assert.InDelta(t, cost, cycleCost, 1e-9)
}

func TestEstimateSkipsWhenTriageDeclines(t *testing.T) {
	db := openLedger(t)
	llm := &fakeLLM{triageYes: false}
	est := estimator.New(llm, "haiku-model", "sonnet-model")

	c := New(db, nil, nil, nil, est, nil, nil, nil, nil, Config{MaxAPICostPerCycle: 10.0})
	quoted := []QuotedMarket{{Market: baseMarket("x"), Quote: domain.Quote{Mid: 0.4}}}

	results, cost := c.estimate(context.Background(), 1, quoted, nil)
	assert.Empty(t, results)
	assert.Equal(t, 0.0, cost)
	assert.Equal(t, 1, llm.callsByModel["haiku-model"])
	assert.Equal(t, 0, llm.callsByModel["sonnet-model"])
}

func TestEstimateStopsSpendingOnceCycleBudgetExhausted(t *testing.T) {
	db := openLedger(t)
	llm := &fakeLLM{triageYes: true, analyzeJSON: analyzeJSON}
	est := estimator.New(llm, "haiku-model", "sonnet-model")

	c := New(db, nil, nil, nil, est, nil, nil, nil, nil, Config{MaxAPICostPerCycle: 0.0001})
	quoted := []QuotedMarket{{Market: baseMarket("x"), Quote: domain.Quote{Mid: 0.4}}}

	results, cost := c.estimate(context.Background(), 1, quoted, nil)
	assert.Empty(t, results)
	assert.Equal(t, 0.0, cost)
}
