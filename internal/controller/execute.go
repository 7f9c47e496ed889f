package controller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/sizer"
	"github.com/alejandrodnm/polyagent/internal/weatherparse"
)

// executeOpportunities walks opportunities in the order given (already
// sorted by descending net edge), sizing and executing each that clears
// every portfolio-level check. It returns the number of trades placed.
func (c *Controller) executeOpportunities(
	ctx context.Context,
	opportunities []domain.EdgeOpportunity,
	opportunityIDs map[string]int64,
	quoted []QuotedMarket,
	weatherBreakerActive bool,
	cycleSizer *sizer.Sizer,
) (int, error) {
	marketsByID := make(map[string]domain.Market, len(quoted))
	for _, qm := range quoted {
		marketsByID[qm.Market.ConditionID] = qm.Market
	}

	trades := 0
	for _, opp := range opportunities {
		id, hasID := opportunityIDs[opportunityKey(opp.ConditionID, opp.Side)]

		market, ok := marketsByID[opp.ConditionID]
		if !ok {
			c.rejectOpportunity(ctx, id, hasID, "market_not_found")
			continue
		}
		tokenID := market.YesTokenID
		if opp.Side == domain.SideNo {
			tokenID = market.NoTokenID
		}

		_, isWeather := weatherparse.ParseQuestion(opp.Question)

		positions, err := c.ledger.GetOpenPositions(ctx)
		if err != nil {
			return trades, fmt.Errorf("controller: read open positions: %w", err)
		}

		if isWeather {
			hasOpen, err := c.ledger.HasOpenPosition(ctx, opp.ConditionID)
			if err != nil {
				return trades, fmt.Errorf("controller: check open position: %w", err)
			}
			if hasOpen {
				c.rejectOpportunity(ctx, id, hasID, "already_positioned")
				continue
			}
			if weatherBreakerActive {
				c.rejectOpportunity(ctx, id, hasID, "daily_loss_limit")
				continue
			}
		}

		bankroll, err := c.ledger.GetCurrentBankroll(ctx)
		if err != nil {
			return trades, fmt.Errorf("controller: read bankroll: %w", err)
		}

		if isWeather && c.posManager != nil {
			if c.posManager.IsCorrelatedGroupOverLimit(opp.Question, positions, bankroll) {
				c.rejectOpportunity(ctx, id, hasID, "correlation_limit")
				continue
			}
			if c.posManager.IsTotalWeatherOverLimit(positions, bankroll) {
				c.rejectOpportunity(ctx, id, hasID, "weather_exposure_limit")
				continue
			}
		}

		currentExposure, err := c.ledger.GetTotalExposure(ctx)
		if err != nil {
			return trades, fmt.Errorf("controller: read total exposure: %w", err)
		}

		var daysUntilResolution *int64
		if isWeather {
			daysUntilResolution = market.DaysToResolution(time.Now())
		}

		sizing := cycleSizer.SizePositionWithTime(opp, bankroll, currentExposure, daysUntilResolution)
		if !sizing.Accepted() {
			c.rejectOpportunity(ctx, id, hasID, sizing.RejectReason)
			continue
		}

		intent := domain.TradeIntent{
			ConditionID: opp.ConditionID,
			TokenID:     tokenID,
			Question:    opp.Question,
			Side:        opp.Side,
			LimitPrice:  sizing.LimitPrice,
			PositionUSD: sizing.PositionUSD,
			Shares:      sizing.Shares,
			FeeRate:     c.cfg.TradingFeeRate,
			Estimated:   opp.EstimatedProbability,
		}

		if _, err := c.executor.Execute(ctx, c.ledger, intent); err != nil {
			slog.Warn("controller: execute failed", "condition_id", opp.ConditionID, "err", err)
			c.rejectOpportunity(ctx, id, hasID, "execution_failed")
			continue
		}

		trades++
		if hasID {
			if err := c.ledger.UpdateOpportunityStatus(ctx, id, domain.OpportunityExecuted, ""); err != nil {
				slog.Warn("controller: update opportunity status failed", "id", id, "err", err)
			}
		}
	}

	return trades, nil
}

func (c *Controller) rejectOpportunity(ctx context.Context, id int64, hasID bool, reason string) {
	if !hasID {
		return
	}
	if err := c.ledger.UpdateOpportunityStatus(ctx, id, domain.OpportunityRejected, reason); err != nil {
		slog.Warn("controller: update opportunity status failed", "id", id, "err", err)
	}
}

// weatherDailyLossBreakerActive reports whether today's realized weather
// losses have reached the configured daily limit.
func (c *Controller) weatherDailyLossBreakerActive(ctx context.Context) (bool, error) {
	since := time.Now().Add(-24 * time.Hour)
	entries, err := c.ledger.GetBankrollEntriesSince(ctx, domain.CategoryWeather, since)
	if err != nil {
		return false, err
	}
	var netLoss float64
	for _, e := range entries {
		if e.Amount < 0 {
			netLoss += -e.Amount
		}
	}
	return netLoss >= c.cfg.WeatherDailyLossLimit, nil
}

// exitTriggeredPositions exits each position the position manager's sweep
// already flagged for exit, reusing its verdict instead of re-evaluating.
func (c *Controller) exitTriggeredPositions(ctx context.Context, triggered []domain.Position) error {
	for _, pos := range triggered {
		exitPrice := pos.CurrentPrice
		if exitPrice == 0 {
			exitPrice = pos.EntryPrice
		}
		if _, err := c.executor.ExitPosition(ctx, c.ledger, pos, exitPrice); err != nil {
			slog.Warn("controller: exit position failed", "condition_id", pos.ConditionID, "err", err)
		}
	}
	return nil
}
