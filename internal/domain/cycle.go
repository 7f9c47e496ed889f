package domain

import "time"

// CycleSummary is the one row per completed cycle.
type CycleSummary struct {
	CycleNumber     int64
	MarketsScanned  int
	MarketsFiltered int
	TradesPlaced    int
	APICostUSD      float64
	BankrollBefore  float64
	BankrollAfter   float64
	CreatedAt       time.Time
}

// PeakBankroll is one row appended every time a new all-time-high balance
// is observed.
type PeakBankroll struct {
	ID        int64
	Balance   float64
	CreatedAt time.Time
}

// PositionAlertKind tags the kind of alert a position management sweep
// emitted.
type PositionAlertKind string

const (
	AlertExit              PositionAlertKind = "exit"
	AlertReAnalyze         PositionAlertKind = "re_analyze"
	AlertCorrelatedExposure PositionAlertKind = "correlated_exposure"
)

// PositionAlert is an append-only diagnostic row emitted by the Position
// Manager.
type PositionAlert struct {
	ID          int64
	ConditionID string
	Kind        PositionAlertKind
	Details     string
	ActionTaken string
	CycleNumber int64
	CreatedAt   time.Time
}
