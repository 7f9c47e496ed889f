package domain

// SizingResult is the outcome of the Sizer's pure sizing function. On reject,
// RejectReason is non-empty and the numeric fields are zeroed.
type SizingResult struct {
	RawKelly      float64
	AdjustedKelly float64
	PositionUSD   float64
	Shares        float64
	LimitPrice    float64
	RejectReason  string
}

// Accepted reports whether the sizer produced a tradeable result.
func (s SizingResult) Accepted() bool {
	return s.RejectReason == ""
}

// EdgeOpportunity is the output of the Edge Detector for one market.
type EdgeOpportunity struct {
	ConditionID          string
	Question             string
	Side                 TradeSide
	EstimatedProbability float64
	MarketPrice          float64
	Edge                 float64
	NetEdge              float64
	Confidence           float64
	DataQuality          string
	Reasoning            string
	AnalysisCostUSD      float64
}
