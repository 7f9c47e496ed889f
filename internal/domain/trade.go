package domain

import "time"

// TradeSide is the side of a placed order.
type TradeSide string

const (
	SideYes    TradeSide = "YES"
	SideNo     TradeSide = "NO"
	SideSellYes TradeSide = "SELL_YES"
	SideSellNo  TradeSide = "SELL_NO"
)

// TradeStatus is the lifecycle state of a placed order.
type TradeStatus string

const (
	TradeStatusFilled   TradeStatus = "filled"
	TradeStatusRejected TradeStatus = "rejected"
)

// Trade is an immutable record of one placed (and, in paper mode,
// immediately filled) order.
type Trade struct {
	ID          string
	ConditionID string
	TokenID     string
	Side        TradeSide
	Price       float64
	Size        float64
	Status      TradeStatus
	Simulated   bool
	EntryFee    float64
	CreatedAt   time.Time
}
