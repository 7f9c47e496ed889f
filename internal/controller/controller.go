// Package controller runs the agent's main cycle loop: discover, quote,
// enrich, estimate, detect edges, size, execute, manage positions, close
// the cycle, and sleep adaptively.
//
// Grounded on the teacher's internal/application/engine/paper/engine.go
// RunOnce shape (one method returning a cycle result) and
// original_source/market_scanner.rs / executor.rs for the
// discover/quote/execute step ordering.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/alejandrodnm/polyagent/internal/accountant"
	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/edgedetector"
	"github.com/alejandrodnm/polyagent/internal/estimator"
	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/alejandrodnm/polyagent/internal/positionmanager"
	"github.com/alejandrodnm/polyagent/internal/sizer"
	"github.com/alejandrodnm/polyagent/internal/weatherparse"
)

const quoteFanOut = 5

// Config is every tunable the cycle loop reads. Field grouping mirrors
// spec.md §6's configuration table.
type Config struct {
	MinLiquidity, MinVolume float64

	MaxAPICostPerCycle float64

	KellyFraction, MaxPositionPct, MaxTotalExposurePct, TradingFeeRate float64

	MaxCorrelatedExposurePct, MaxTotalWeatherExposurePct float64
	WeatherDailyLossLimit                                float64

	DrawdownCircuitBreakerPct, DrawdownSizingReduction float64

	CycleFrequencyHighSecs, CycleFrequencyLowSecs uint64
	LowBankrollThreshold                          float64

	MaxCycles     int64
	DeathExitCode int
}

// Controller wires every component together and drives one cycle at a
// time.
type Controller struct {
	ledger     ports.Ledger
	catalog    ports.CatalogProvider
	quotes     ports.QuoteProvider
	weather    ports.WeatherClient // nil disables weather enrichment
	estimator  *estimator.Estimator
	detector   *edgedetector.Detector
	accountant *accountant.Accountant
	posManager *positionmanager.Manager
	executor   ports.Executor
	cfg        Config
}

func New(
	l ports.Ledger,
	catalog ports.CatalogProvider,
	quotes ports.QuoteProvider,
	weather ports.WeatherClient,
	est *estimator.Estimator,
	detector *edgedetector.Detector,
	acc *accountant.Accountant,
	posManager *positionmanager.Manager,
	executor ports.Executor,
	cfg Config,
) *Controller {
	return &Controller{
		ledger:     l,
		catalog:    catalog,
		quotes:     quotes,
		weather:    weather,
		estimator:  est,
		detector:   detector,
		accountant: acc,
		posManager: posManager,
		executor:   executor,
		cfg:        cfg,
	}
}

// DeathError signals the agent ran out of bankroll; cmd/agent translates
// it into the configured process exit code.
type DeathError struct{ ExitCode int }

func (e *DeathError) Error() string { return "agent bankroll depleted" }

// Run drives the cycle loop until the agent dies, ctx is cancelled, or
// cfg.MaxCycles is reached (0 means unbounded).
func (c *Controller) Run(ctx context.Context) error {
	var cyclesRun int64
	for {
		if ctx.Err() != nil {
			return nil
		}
		if c.cfg.MaxCycles > 0 && cyclesRun >= c.cfg.MaxCycles {
			slog.Info("controller: max cycles reached, stopping", "cycles", cyclesRun)
			return nil
		}

		started := time.Now()
		summary, alive, err := c.RunCycle(ctx)
		if err != nil {
			slog.Error("controller: cycle failed", "err", err)
			return err
		}
		cyclesRun++

		if !alive {
			report, rerr := c.accountant.GenerateDeathReport(ctx, c.ledger)
			if rerr != nil {
				slog.Error("controller: generate death report", "err", rerr)
			} else {
				fmt.Println(accountant.String(report))
			}
			return &DeathError{ExitCode: c.cfg.DeathExitCode}
		}

		targetSecs := c.accountant.CycleDurationSecs(summary.BankrollAfter, c.cfg.CycleFrequencyHighSecs, c.cfg.CycleFrequencyLowSecs)
		elapsed := time.Since(started)
		sleepFor := time.Duration(targetSecs)*time.Second - elapsed
		if sleepFor < 0 {
			sleepFor = 0
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(sleepFor):
		}
	}
}

// RunCycle performs one full iteration of the twelve-step cycle and
// returns its summary plus whether the agent is still alive.
func (c *Controller) RunCycle(ctx context.Context) (domain.CycleSummary, bool, error) {
	cycleNumber, err := c.ledger.NextCycleNumber(ctx)
	if err != nil {
		return domain.CycleSummary{}, false, fmt.Errorf("controller: next cycle number: %w", err)
	}
	bankrollBefore, err := c.ledger.GetCurrentBankroll(ctx)
	if err != nil {
		return domain.CycleSummary{}, false, fmt.Errorf("controller: read bankroll: %w", err)
	}

	// 1. Discover.
	markets, scanned, err := c.discover(ctx)
	if err != nil {
		return domain.CycleSummary{}, false, err
	}

	// 2. Quote.
	quoted := c.quoteMarkets(ctx, markets)

	// 3. Enrich (optional).
	weatherCtxByMarket := c.enrichWeather(ctx, quoted)

	// 4. Estimate.
	results, cycleCost := c.estimate(ctx, cycleNumber, quoted, weatherCtxByMarket)
	slog.Info("controller: cycle estimate complete", "cycle", cycleNumber, "cost_usd", cycleCost, "results", len(results))
	metricAPICostPerCycle.Observe(cycleCost)

	// 5. Detect edges, persist each as pending.
	opportunities := c.detector.DetectBatch(results)
	metricOpportunitiesDetectedTotal.Add(float64(len(opportunities)))
	opportunityIDs := make(map[string]int64, len(opportunities))
	for _, opp := range opportunities {
		id, err := c.ledger.InsertOpportunity(ctx, domain.Opportunity{
			CycleNumber:          cycleNumber,
			ConditionID:          opp.ConditionID,
			Question:             opp.Question,
			Side:                 opp.Side,
			EstimatedProbability: opp.EstimatedProbability,
			MarketPrice:          opp.MarketPrice,
			Edge:                 opp.Edge,
			NetEdge:              opp.NetEdge,
			Confidence:           opp.Confidence,
			DataQuality:          opp.DataQuality,
			Reasoning:            opp.Reasoning,
			AnalysisCostUSD:      opp.AnalysisCostUSD,
			Status:               domain.OpportunityPending,
		})
		if err != nil {
			slog.Warn("controller: insert opportunity failed", "condition_id", opp.ConditionID, "err", err)
			continue
		}
		opportunityIDs[opportunityKey(opp.ConditionID, opp.Side)] = id
	}

	// 6. Drawdown state and effective kelly; build a fresh sizer for this cycle.
	drawdown, err := positionmanager.CheckDrawdown(ctx, c.ledger, bankrollBefore, c.cfg.DrawdownCircuitBreakerPct)
	if err != nil {
		return domain.CycleSummary{}, false, fmt.Errorf("controller: check drawdown: %w", err)
	}
	effectiveKelly := c.cfg.KellyFraction
	if drawdown.IsCircuitBreakerActive {
		effectiveKelly *= c.cfg.DrawdownSizingReduction
		slog.Warn("controller: drawdown circuit breaker active", "drawdown_pct", drawdown.DrawdownPct)
	}
	cycleSizer := sizer.New(effectiveKelly, c.cfg.MaxPositionPct, c.cfg.MaxTotalExposurePct)

	// 7. Weather daily-loss breaker.
	weatherBreakerActive, err := c.weatherDailyLossBreakerActive(ctx)
	if err != nil {
		return domain.CycleSummary{}, false, fmt.Errorf("controller: weather loss breaker: %w", err)
	}

	// 8. Execute loop, descending net edge.
	sort.SliceStable(opportunities, func(i, j int) bool {
		return opportunities[i].NetEdge > opportunities[j].NetEdge
	})
	tradesPlaced, err := c.executeOpportunities(ctx, opportunities, opportunityIDs, quoted, weatherBreakerActive, cycleSizer)
	if err != nil {
		return domain.CycleSummary{}, false, err
	}

	// 9. Manage positions.
	if c.posManager != nil {
		if result, err := c.posManager.CheckPositions(ctx, c.ledger, c.quotes, c.weather, cycleNumber); err != nil {
			slog.Warn("controller: position management failed", "err", err)
		} else if err := c.exitTriggeredPositions(ctx, result.ExitsTriggered); err != nil {
			slog.Warn("controller: exit triggered positions failed", "err", err)
		}
	}

	// 10. Close cycle.
	accounting, err := c.accountant.CloseCycle(ctx, c.ledger, cycleNumber)
	if err != nil {
		return domain.CycleSummary{}, false, fmt.Errorf("controller: close cycle: %w", err)
	}
	summary := domain.CycleSummary{
		CycleNumber:     cycleNumber,
		MarketsScanned:  scanned,
		MarketsFiltered: len(markets),
		TradesPlaced:    tradesPlaced,
		APICostUSD:      accounting.APICostUSD,
		BankrollBefore:  accounting.BankrollBefore,
		BankrollAfter:   accounting.BankrollAfter,
	}
	if err := c.ledger.InsertCycleSummary(ctx, summary); err != nil {
		return domain.CycleSummary{}, false, fmt.Errorf("controller: insert cycle summary: %w", err)
	}

	metricCyclesTotal.Inc()
	metricBankrollUSD.Set(accounting.BankrollAfter)
	metricTradesPlacedTotal.Add(float64(tradesPlaced))

	return summary, accounting.IsAlive, nil
}

func opportunityKey(conditionID string, side domain.TradeSide) string {
	return conditionID + "|" + string(side)
}

func categoryForQuestion(question string) domain.BankrollCategory {
	if _, ok := weatherparse.ParseQuestion(question); ok {
		return domain.CategoryWeather
	}
	return domain.CategoryGeneral
}
