// Package sizer turns a detected edge into a dollar position using
// fractional Kelly sizing, layered with per-position and total-exposure
// caps and an optional weather-market time-decay multiplier.
//
// Grounded on original_source/position_sizer.rs: the Kelly formula, the
// cap stack (adjusted*bankroll, max_position_pct*bankroll,
// remaining_exposure), the $1.00 minimum trade size, and the time
// multiplier table are ported verbatim.
package sizer

import (
	"fmt"

	"github.com/alejandrodnm/polyagent/internal/domain"
)

const minPositionUSD = 1.0

// Sizer computes SizingResult from a detected edge.
type Sizer struct {
	KellyFraction        float64
	MaxPositionPct       float64
	MaxTotalExposurePct  float64
}

func New(kellyFraction, maxPositionPct, maxTotalExposurePct float64) *Sizer {
	return &Sizer{
		KellyFraction:       kellyFraction,
		MaxPositionPct:      maxPositionPct,
		MaxTotalExposurePct: maxTotalExposurePct,
	}
}

func rejected(reason string) domain.SizingResult {
	return domain.SizingResult{RejectReason: reason}
}

// SizePosition sizes a non-weather opportunity.
func (s *Sizer) SizePosition(opp domain.EdgeOpportunity, bankroll, currentExposure float64) domain.SizingResult {
	return s.SizePositionWithTime(opp, bankroll, currentExposure, nil)
}

// SizePositionWithTime sizes an opportunity, applying the weather
// time-decay multiplier when daysUntilResolution is non-nil:
//
//	0-2 days:  1.0x
//	3-4 days:  0.7x
//	5-7 days:  0.4x
//	>7 days:   0.2x
func (s *Sizer) SizePositionWithTime(opp domain.EdgeOpportunity, bankroll, currentExposure float64, daysUntilResolution *int64) domain.SizingResult {
	var buyPrice, winProb float64
	switch opp.Side {
	case domain.SideNo:
		buyPrice = 1.0 - opp.MarketPrice
		winProb = 1.0 - opp.EstimatedProbability
	default:
		buyPrice = opp.MarketPrice
		winProb = opp.EstimatedProbability
	}

	if buyPrice >= 1.0 {
		return rejected("buy price >= 1.0")
	}

	rawKelly := (winProb - buyPrice) / (1.0 - buyPrice)
	if rawKelly <= 0.0 {
		return rejected("negative Kelly — no edge")
	}

	adjustedKelly := rawKelly * s.KellyFraction

	if daysUntilResolution != nil {
		adjustedKelly *= timeMultiplier(*daysUntilResolution)
	}

	maxExposure := s.MaxTotalExposurePct * bankroll
	remainingExposure := maxExposure - currentExposure
	if remainingExposure < 0 {
		remainingExposure = 0
	}
	if remainingExposure <= 0.0 {
		return rejected("exposure limit reached")
	}

	positionUSD := min3(adjustedKelly*bankroll, s.MaxPositionPct*bankroll, remainingExposure)
	if positionUSD < minPositionUSD {
		return rejected(fmt.Sprintf("position too small: $%.2f < $%.2f minimum", positionUSD, minPositionUSD))
	}

	shares := positionUSD / buyPrice

	return domain.SizingResult{
		RawKelly:      rawKelly,
		AdjustedKelly: adjustedKelly,
		PositionUSD:   positionUSD,
		Shares:        shares,
		LimitPrice:    buyPrice,
	}
}

func timeMultiplier(days int64) float64 {
	switch {
	case days <= 2:
		return 1.0
	case days <= 4:
		return 0.7
	case days <= 7:
		return 0.4
	default:
		return 0.2
	}
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
