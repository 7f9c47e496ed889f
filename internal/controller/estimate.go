package controller

import (
	"context"
	"log/slog"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/weatherparse"
)

// enrichWeather fetches and caches ensemble probabilities by (city, date)
// for every quoted weather market, recording one snapshot per cache miss.
func (c *Controller) enrichWeather(ctx context.Context, quoted []QuotedMarket) map[string]*domain.WeatherContext {
	out := make(map[string]*domain.WeatherContext)
	if c.weather == nil {
		return out
	}

	cache := make(map[string]domain.WeatherProbabilities)
	for _, qm := range quoted {
		info, ok := weatherparse.ParseQuestion(qm.Market.Question)
		if !ok {
			continue
		}

		cacheKey := info.City + "|" + info.Date
		probs, cached := cache[cacheKey]
		if !cached {
			var err error
			probs, err = c.weather.GetProbabilities(ctx, info.City, info.Date)
			if err != nil {
				slog.Debug("controller: weather probabilities fetch failed", "city", info.City, "date", info.Date, "err", err)
				continue
			}
			cache[cacheKey] = probs
			if err := c.ledger.InsertWeatherSnapshot(ctx, domain.WeatherSnapshot{
				City:         info.City,
				ForecastDate: info.Date,
				EnsembleMean: probs.EnsembleMean,
				EnsembleStd:  probs.EnsembleStd,
				GEFSCount:    probs.GEFSCount,
				ECMWFCount:   probs.ECMWFCount,
			}); err != nil {
				slog.Warn("controller: insert weather snapshot failed", "err", err)
			}
		}

		modelProb, ok := weatherparse.ModelProbability(info, probs)
		wctx := &domain.WeatherContext{Probs: probs}
		if ok {
			wctx.ModelProbability = &modelProb
		}
		out[qm.Market.ConditionID] = wctx
	}
	return out
}

// estimate runs the estimator pipeline over every quoted market,
// accumulating cycle cost and logging every returned API call.
func (c *Controller) estimate(ctx context.Context, cycleNumber int64, quoted []QuotedMarket, weatherCtx map[string]*domain.WeatherContext) ([]domain.AnalysisResult, float64) {
	var cycleCost float64
	var results []domain.AnalysisResult

	for _, qm := range quoted {
		result, err := c.estimator.Evaluate(ctx, qm.Market, qm.Quote.Mid, cycleCost, c.cfg.MaxAPICostPerCycle, weatherCtx[qm.Market.ConditionID])
		if err != nil {
			slog.Debug("controller: estimate failed", "condition_id", qm.Market.ConditionID, "err", err)
			continue
		}
		if result == nil {
			continue
		}

		for _, call := range result.APICalls {
			if err := c.ledger.LogAPICost(ctx, domain.APICostRecord{
				CycleNumber:  cycleNumber,
				ConditionID:  qm.Market.ConditionID,
				Model:        call.Model,
				InputTokens:  call.InputTokens,
				OutputTokens: call.OutputTokens,
				CostUSD:      call.CostUSD,
				Kind:         call.Kind,
			}); err != nil {
				slog.Warn("controller: log api cost failed", "err", err)
			}
		}

		cycleCost += result.TotalCostUSD
		results = append(results, *result)
	}

	return results, cycleCost
}
