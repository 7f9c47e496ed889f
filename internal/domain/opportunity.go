package domain

import "time"

// OpportunityStatus is the terminal/pending state of a detected edge.
type OpportunityStatus string

const (
	OpportunityPending  OpportunityStatus = "pending"
	OpportunityExecuted OpportunityStatus = "executed"
	OpportunityRejected OpportunityStatus = "rejected"
	OpportunitySkipped  OpportunityStatus = "skipped"
)

// Opportunity is a detected mispricing, persisted as pending at detection
// time and transitioned to a terminal status by the sizer/executor.
type Opportunity struct {
	ID                   int64
	CycleNumber          int64
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
	Status               OpportunityStatus
	RejectReason         string
	CreatedAt            time.Time
}
