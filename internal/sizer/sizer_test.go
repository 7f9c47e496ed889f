package sizer

import (
	"testing"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/stretchr/testify/assert"
)

func opp(side domain.TradeSide, estProb, marketPrice, edge float64) domain.EdgeOpportunity {
	return domain.EdgeOpportunity{
		ConditionID: "0xtest", Question: "Test market?", Side: side,
		EstimatedProbability: estProb, MarketPrice: marketPrice, Edge: edge,
		Confidence: 0.85, DataQuality: "high", Reasoning: "Test reasoning", AnalysisCostUSD: 0.01,
	}
}

func TestPositiveEdgeYesSide(t *testing.T) {
	s := New(0.5, 0.06, 0.40)
	r := s.SizePosition(opp(domain.SideYes, 0.75, 0.55, 0.20), 50.0, 0.0)
	assert.True(t, r.Accepted())
	assert.InDelta(t, 0.4444, r.RawKelly, 0.001)
	assert.InDelta(t, 0.2222, r.AdjustedKelly, 0.001)
	assert.InDelta(t, 3.0, r.PositionUSD, 0.01)
	assert.InDelta(t, 0.55, r.LimitPrice, 1e-9)
	assert.Greater(t, r.Shares, 0.0)
}

func TestPositiveEdgeNoSide(t *testing.T) {
	s := New(0.5, 0.06, 0.40)
	r := s.SizePosition(opp(domain.SideNo, 0.30, 0.55, 0.25), 50.0, 0.0)
	assert.True(t, r.Accepted())
	assert.InDelta(t, 0.4545, r.RawKelly, 0.001)
	assert.InDelta(t, 0.45, r.LimitPrice, 1e-9)
}

func TestNegativeKellyRejected(t *testing.T) {
	s := New(0.5, 0.06, 0.40)
	r := s.SizePosition(opp(domain.SideYes, 0.50, 0.55, 0.0), 50.0, 0.0)
	assert.False(t, r.Accepted())
	assert.Contains(t, r.RejectReason, "negative Kelly")
}

func TestHalfKellyApplied(t *testing.T) {
	s := New(0.5, 1.0, 1.0)
	r := s.SizePosition(opp(domain.SideYes, 0.80, 0.50, 0.30), 100.0, 0.0)
	assert.True(t, r.Accepted())
	assert.InDelta(t, 0.60, r.RawKelly, 1e-10)
	assert.InDelta(t, 0.30, r.AdjustedKelly, 1e-10)
	assert.InDelta(t, 30.0, r.PositionUSD, 0.01)
}

func TestPositionCappedByMaxPct(t *testing.T) {
	s := New(1.0, 0.06, 1.0)
	r := s.SizePosition(opp(domain.SideYes, 0.95, 0.50, 0.45), 100.0, 0.0)
	assert.True(t, r.Accepted())
	assert.InDelta(t, 6.0, r.PositionUSD, 0.01)
}

func TestExposureLimitConstrainsPosition(t *testing.T) {
	s := New(0.5, 0.06, 0.40)
	r := s.SizePosition(opp(domain.SideYes, 0.75, 0.55, 0.20), 50.0, 19.5)
	assert.False(t, r.Accepted())
	assert.Contains(t, r.RejectReason, "too small")
}

func TestExposureLimitPartiallyConstrains(t *testing.T) {
	s := New(0.5, 0.06, 0.40)
	r := s.SizePosition(opp(domain.SideYes, 0.75, 0.55, 0.20), 50.0, 18.0)
	assert.True(t, r.Accepted())
	assert.InDelta(t, 2.0, r.PositionUSD, 0.01)
}

func TestMinTradeSizeRejected(t *testing.T) {
	s := New(0.5, 0.06, 0.40)
	r := s.SizePosition(opp(domain.SideYes, 0.75, 0.55, 0.20), 5.0, 0.0)
	assert.False(t, r.Accepted())
	assert.Contains(t, r.RejectReason, "too small")
}

func TestSharesCalculation(t *testing.T) {
	s := New(0.5, 1.0, 1.0)
	r := s.SizePosition(opp(domain.SideYes, 0.80, 0.50, 0.30), 100.0, 0.0)
	assert.InDelta(t, 60.0, r.Shares, 0.01)
}

func TestZeroBankrollRejects(t *testing.T) {
	s := New(0.5, 0.06, 0.40)
	r := s.SizePosition(opp(domain.SideYes, 0.75, 0.55, 0.20), 0.0, 0.0)
	assert.False(t, r.Accepted())
}

func TestTimeBasedSizing(t *testing.T) {
	s := New(0.5, 1.0, 1.0)
	o := opp(domain.SideYes, 0.80, 0.50, 0.30)

	two := int64(2)
	r2 := s.SizePositionWithTime(o, 100.0, 0.0, &two)
	assert.InDelta(t, 30.0, r2.PositionUSD, 0.01)

	three := int64(3)
	r3 := s.SizePositionWithTime(o, 100.0, 0.0, &three)
	assert.InDelta(t, 21.0, r3.PositionUSD, 0.01)

	six := int64(6)
	r6 := s.SizePositionWithTime(o, 100.0, 0.0, &six)
	assert.InDelta(t, 12.0, r6.PositionUSD, 0.01)

	ten := int64(10)
	r10 := s.SizePositionWithTime(o, 100.0, 0.0, &ten)
	assert.InDelta(t, 6.0, r10.PositionUSD, 0.01)

	rn := s.SizePositionWithTime(o, 100.0, 0.0, nil)
	assert.InDelta(t, 30.0, rn.PositionUSD, 0.01)
}
