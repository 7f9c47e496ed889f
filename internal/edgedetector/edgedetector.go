// Package edgedetector compares an analysis result's fair-value estimate
// against the current market price and turns a sufficiently large,
// fee-adjusted, confident mispricing into an EdgeOpportunity.
//
// Grounded on original_source/edge_detector.rs: pick the larger of the
// YES/NO edge, subtract round-trip fees, reject below threshold or below
// the confidence floor, otherwise emit and log.
package edgedetector

import (
	"github.com/alejandrodnm/polyagent/internal/domain"
	"sort"
)

const minConfidence = 0.50

// Detector evaluates one AnalysisResult at a time.
type Detector struct {
	MinEdgeThreshold float64
	MinConfidence    float64
	FeeRate          float64
}

func New(minEdgeThreshold, feeRate float64) *Detector {
	return &Detector{
		MinEdgeThreshold: minEdgeThreshold,
		MinConfidence:    minConfidence,
		FeeRate:          feeRate,
	}
}

// Detect returns the opportunity found in analysis, or nil if the edge
// doesn't clear the threshold after fees or the estimate's confidence is
// too low.
func (d *Detector) Detect(analysis domain.AnalysisResult) *domain.EdgeOpportunity {
	estimatedYes := analysis.Estimate.Probability
	marketYes := analysis.MarketYesPrice

	yesEdge := estimatedYes - marketYes
	noEdge := marketYes - estimatedYes

	side := domain.SideYes
	edge := yesEdge
	if noEdge > yesEdge {
		side = domain.SideNo
		edge = noEdge
	}

	netEdge := edge - 2.0*d.FeeRate

	if netEdge < d.MinEdgeThreshold {
		return nil
	}
	if analysis.Estimate.Confidence < d.MinConfidence {
		return nil
	}

	return &domain.EdgeOpportunity{
		ConditionID:          analysis.ConditionID,
		Question:             analysis.Question,
		Side:                 side,
		EstimatedProbability: estimatedYes,
		MarketPrice:          marketYes,
		Edge:                 edge,
		NetEdge:              netEdge,
		Confidence:           analysis.Estimate.Confidence,
		DataQuality:          analysis.Estimate.DataQuality,
		Reasoning:            analysis.Estimate.Reasoning,
		AnalysisCostUSD:      analysis.TotalCostUSD,
	}
}

// DetectBatch detects across every analysis and returns the surviving
// opportunities sorted by descending net edge.
func (d *Detector) DetectBatch(analyses []domain.AnalysisResult) []domain.EdgeOpportunity {
	var opportunities []domain.EdgeOpportunity
	for _, a := range analyses {
		if opp := d.Detect(a); opp != nil {
			opportunities = append(opportunities, *opp)
		}
	}
	sort.Slice(opportunities, func(i, j int) bool {
		return opportunities[i].NetEdge > opportunities[j].NetEdge
	})
	return opportunities
}
