package domain

import "time"

// APICallKind distinguishes the cheap triage call from the deep analysis
// call in the two-tier estimator pipeline.
type APICallKind string

const (
	CallKindTriage   APICallKind = "triage"
	CallKindAnalysis APICallKind = "analysis"
)

// APICostRecord is one append-only row per LLM call.
type APICostRecord struct {
	ID           int64
	CycleNumber  int64
	ConditionID  string // empty if not market-scoped
	Model        string
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
	Kind         APICallKind
	CreatedAt    time.Time
}

// APICallCost is the cost of a single LLM call, returned by the estimator
// before it is persisted.
type APICallCost struct {
	Model        string
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
	Kind         APICallKind
}
