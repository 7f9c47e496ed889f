// Package positionmanager runs the per-cycle checks over open positions:
// stop-loss, take-profit, edge decay, correlated-exposure and drawdown
// circuit breakers. Weather positions skip the price-based exits and
// refresh their model estimate from the weather sidecar before the edge
// decay check.
//
// Grounded on original_source/position_manager.rs.
package positionmanager

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
	"github.com/alejandrodnm/polyagent/internal/weatherparse"
)

// Action is what evaluatePosition decided for one open position.
type ActionKind int

const (
	Hold ActionKind = iota
	Exit
)

type Action struct {
	Kind   ActionKind
	Reason string
}

// CorrelationGroup is a fixed set of nearby weather-station cities whose
// outcomes are expected to move together.
type CorrelationGroup struct {
	Name   string
	Cities []string
}

var correlationGroups = []CorrelationGroup{
	{Name: "Northeast", Cities: []string{"NYC", "PHL", "BOS", "DCA"}},
	{Name: "Southeast", Cities: []string{"MIA", "ATL", "TPA"}},
	{Name: "Midwest", Cities: []string{"CHI", "DTW", "MSP", "STL"}},
	{Name: "Texas", Cities: []string{"HOU", "DAL", "SAN"}},
	{Name: "West Coast", Cities: []string{"LAX", "SDG", "SJC", "SEA"}},
}

// Manager holds the thresholds used by every check.
type Manager struct {
	StopLossPct              float64
	TakeProfitPct             float64
	MinExitEdge               float64
	VolumeSpikeFactor         float64
	WhaleMoveThreshold        float64
	MaxCorrelatedExposurePct  float64
	MaxTotalWeatherExposurePct float64
}

func New(stopLossPct, takeProfitPct, minExitEdge, volumeSpikeFactor, whaleMoveThreshold, maxCorrelatedExposurePct, maxTotalWeatherExposurePct float64) *Manager {
	return &Manager{
		StopLossPct:                stopLossPct,
		TakeProfitPct:              takeProfitPct,
		MinExitEdge:                minExitEdge,
		VolumeSpikeFactor:          volumeSpikeFactor,
		WhaleMoveThreshold:         whaleMoveThreshold,
		MaxCorrelatedExposurePct:   maxCorrelatedExposurePct,
		MaxTotalWeatherExposurePct: maxTotalWeatherExposurePct,
	}
}

// Result summarizes one sweep over open positions.
type Result struct {
	PositionsChecked  int
	ExitsTriggered    []domain.Position
	ReAnalysesTriggered int
	Alerts            []domain.PositionAlert
}

// CheckPositions fetches current midpoints for every open position,
// refreshes weather estimates, evaluates exit/re-analyze actions, and
// logs an alert row for anything other than Hold.
func (m *Manager) CheckPositions(ctx context.Context, l ports.Ledger, quotes ports.QuoteProvider, weather ports.WeatherClient, cycleNumber int64) (Result, error) {
	positions, err := l.GetOpenPositions(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("positionmanager: check positions: %w", err)
	}

	var result Result
	result.PositionsChecked = len(positions)

	for _, pos := range positions {
		quote, err := quotes.GetQuote(ctx, pos.ConditionID, pos.TokenID)
		if err != nil {
			slog.Warn("positionmanager: quote failed, skipping checks", "condition_id", pos.ConditionID, "error", err)
			continue
		}
		currentPrice := quote.Mid
		pos.CurrentPrice = currentPrice
		if err := l.UpdatePositionPrice(ctx, pos.ConditionID, pos.Side, currentPrice); err != nil {
			slog.Warn("positionmanager: update position price failed", "error", err)
		}

		if weather != nil && pos.Question != "" {
			if info, ok := weatherparse.ParseQuestion(pos.Question); ok {
				probs, err := weather.GetProbabilities(ctx, info.City, info.Date)
				if err != nil {
					slog.Warn("positionmanager: weather refresh failed, using stale estimate", "condition_id", pos.ConditionID, "error", err)
				} else if freshProb, ok := weatherparse.ModelProbability(info, probs); ok {
					pos.EstimatedProbability = &freshProb
					if err := l.UpdatePositionEstimate(ctx, pos.ConditionID, pos.Side, freshProb); err != nil {
						slog.Warn("positionmanager: update position estimate failed", "error", err)
					}
				}
			}
		}

		action := m.EvaluatePosition(pos, currentPrice)
		switch action.Kind {
		case Hold:
		case Exit:
			alert := domain.PositionAlert{
				ConditionID: pos.ConditionID,
				Kind:        domain.AlertExit,
				Details:     action.Reason,
				ActionTaken: "exit_triggered",
				CycleNumber: cycleNumber,
			}
			if err := l.LogPositionAlert(ctx, alert); err != nil {
				slog.Warn("positionmanager: log alert failed", "error", err)
			}
			result.Alerts = append(result.Alerts, alert)
			result.ExitsTriggered = append(result.ExitsTriggered, pos)
		}
	}

	slog.Info("position management swept", "checked", result.PositionsChecked, "exits", len(result.ExitsTriggered))
	return result, nil
}

// EvaluatePosition decides what to do with a single position given its
// current market price. Weather positions skip stop-loss/take-profit —
// small binary bets that resolve in days, held to resolution — and only
// exit on edge decay.
func (m *Manager) EvaluatePosition(pos domain.Position, currentPrice float64) Action {
	_, isWeather := weatherparse.ParseQuestion(pos.Question)

	if !isWeather {
		if action, ok := m.checkStopLoss(pos, currentPrice); ok {
			return action
		}
		if action, ok := m.checkTakeProfit(pos, currentPrice); ok {
			return action
		}
	}

	if action, ok := m.checkEdgeDecay(pos, currentPrice); ok {
		return action
	}

	return Action{Kind: Hold}
}

func (m *Manager) checkStopLoss(pos domain.Position, currentPrice float64) (Action, bool) {
	if pos.EntryPrice <= 0.0 {
		return Action{}, false
	}
	lossPct := (pos.EntryPrice - currentPrice) / pos.EntryPrice
	if lossPct > m.StopLossPct {
		return Action{Kind: Exit, Reason: fmt.Sprintf(
			"Stop-loss: down %.1f%% (entry=%.3f, current=%.3f, threshold=%.1f%%)",
			lossPct*100.0, pos.EntryPrice, currentPrice, m.StopLossPct*100.0,
		)}, true
	}
	return Action{}, false
}

func (m *Manager) checkTakeProfit(pos domain.Position, currentPrice float64) (Action, bool) {
	if pos.EntryPrice >= 1.0 {
		return Action{}, false
	}
	maxProfit := 1.0 - pos.EntryPrice
	if maxProfit <= 0.0 {
		return Action{}, false
	}
	capturedPct := (currentPrice - pos.EntryPrice) / maxProfit
	if capturedPct >= m.TakeProfitPct {
		return Action{Kind: Exit, Reason: fmt.Sprintf(
			"Take-profit: captured %.1f%% of max (entry=%.3f, current=%.3f, threshold=%.1f%%)",
			capturedPct*100.0, pos.EntryPrice, currentPrice, m.TakeProfitPct*100.0,
		)}, true
	}
	return Action{}, false
}

func (m *Manager) checkEdgeDecay(pos domain.Position, currentPrice float64) (Action, bool) {
	if pos.EstimatedProbability == nil {
		return Action{}, false
	}
	estimatedProb := *pos.EstimatedProbability
	currentEdge := estimatedProb - currentPrice
	if currentEdge < 0 {
		currentEdge = -currentEdge
	}
	if currentEdge < m.MinExitEdge {
		return Action{Kind: Exit, Reason: fmt.Sprintf(
			"Edge decay: edge=%.1f%% < threshold %.1f%% (est=%.3f, current=%.3f)",
			currentEdge*100.0, m.MinExitEdge*100.0, estimatedProb, currentPrice,
		)}, true
	}
	return Action{}, false
}

// CheckVolumeSpike reports whether current volume has spiked enough over
// average volume to warrant re-analysis.
func (m *Manager) CheckVolumeSpike(currentVolume, avgVolume float64) bool {
	if avgVolume <= 0.0 {
		return false
	}
	return currentVolume/avgVolume > m.VolumeSpikeFactor
}

// CheckWhaleActivity is a stub: on-chain whale monitoring requires a
// Polygon RPC integration not built yet.
func (m *Manager) CheckWhaleActivity(conditionID string) []domain.PositionAlert {
	return nil
}

// CheckCorrelatedExposure returns an alert for every correlation group
// whose weather-market exposure exceeds MaxCorrelatedExposurePct of
// bankroll.
func (m *Manager) CheckCorrelatedExposure(positions []domain.Position, bankroll float64) []domain.PositionAlert {
	if bankroll <= 0.0 {
		return nil
	}
	maxGroupExposure := m.MaxCorrelatedExposurePct * bankroll

	var alerts []domain.PositionAlert
	for _, group := range correlationGroups {
		exposure := groupExposure(positions, group)
		if exposure > maxGroupExposure {
			alerts = append(alerts, domain.PositionAlert{
				ConditionID: "group:" + group.Name,
				Kind:        domain.AlertCorrelatedExposure,
				Details: fmt.Sprintf(
					"%s group exposure $%.2f > limit $%.2f (%.0f%% of $%.2f bankroll)",
					group.Name, exposure, maxGroupExposure, m.MaxCorrelatedExposurePct*100.0, bankroll,
				),
				ActionTaken: "block_new_trades",
			})
		}
	}
	return alerts
}

// IsCorrelatedGroupOverLimit reports whether a new trade on marketQuestion
// should be blocked because its correlation group is already at or past
// the exposure cap.
func (m *Manager) IsCorrelatedGroupOverLimit(marketQuestion string, positions []domain.Position, bankroll float64) bool {
	if bankroll <= 0.0 {
		return false
	}
	info, ok := weatherparse.ParseQuestion(marketQuestion)
	if !ok {
		return false
	}
	group, ok := findGroup(info.City)
	if !ok {
		return false
	}
	maxGroupExposure := m.MaxCorrelatedExposurePct * bankroll
	return groupExposure(positions, group) >= maxGroupExposure
}

// IsTotalWeatherOverLimit reports whether total weather exposure across
// all cities is at or past the global weather cap.
func (m *Manager) IsTotalWeatherOverLimit(positions []domain.Position, bankroll float64) bool {
	if bankroll <= 0.0 {
		return false
	}
	maxWeatherExposure := m.MaxTotalWeatherExposurePct * bankroll
	var total float64
	for _, p := range positions {
		if _, ok := weatherparse.ParseQuestion(p.Question); ok {
			total += p.Exposure()
		}
	}
	return total >= maxWeatherExposure
}

func groupExposure(positions []domain.Position, group CorrelationGroup) float64 {
	var total float64
	for _, p := range positions {
		info, ok := weatherparse.ParseQuestion(p.Question)
		if !ok {
			continue
		}
		if contains(group.Cities, info.City) {
			total += p.Exposure()
		}
	}
	return total
}

func findGroup(city string) (CorrelationGroup, bool) {
	for _, g := range correlationGroups {
		if contains(g.Cities, city) {
			return g, true
		}
	}
	return CorrelationGroup{}, false
}

func contains(xs []string, x string) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// DrawdownState is the result of comparing current bankroll against its
// all-time peak.
type DrawdownState struct {
	PeakBankroll            float64
	CurrentBankroll         float64
	DrawdownPct             float64
	IsCircuitBreakerActive  bool
}

// CheckDrawdown updates the stored peak bankroll (if current is a new
// high) and reports whether the drawdown from peak has crossed threshold.
func CheckDrawdown(ctx context.Context, l ports.Ledger, currentBankroll, threshold float64) (DrawdownState, error) {
	peak, err := l.UpdatePeakBankroll(ctx, currentBankroll)
	if err != nil {
		return DrawdownState{}, fmt.Errorf("positionmanager: check drawdown: %w", err)
	}

	var drawdownPct float64
	if peak > 0.0 {
		drawdownPct = (peak - currentBankroll) / peak
	}
	isActive := drawdownPct >= threshold

	if isActive {
		slog.Info("drawdown circuit breaker active", "drawdown_pct", drawdownPct, "peak", peak, "current", currentBankroll)
	}

	return DrawdownState{
		PeakBankroll:           peak,
		CurrentBankroll:        currentBankroll,
		DrawdownPct:            drawdownPct,
		IsCircuitBreakerActive: isActive,
	}, nil
}
