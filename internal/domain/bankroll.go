// Package domain holds the plain value types shared by every component of
// the trading agent: markets, trades, positions, bankroll entries, cycle
// summaries, and the records that back the Ledger's auxiliary tables.
package domain

import "time"

// BankrollKind tags the reason a bankroll_log row exists.
type BankrollKind string

const (
	BankrollKindSeed       BankrollKind = "seed"
	BankrollKindAPICost    BankrollKind = "api_cost"
	BankrollKindTrade      BankrollKind = "trade"
	BankrollKindTradingFee BankrollKind = "trading_fee"
	BankrollKindExit       BankrollKind = "exit"
)

// BankrollCategory classifies a bankroll entry by the kind of market it came
// from. It replaces substring-matching the description for "weather" or
// "temperature" — the daily weather-loss breaker and reporting both filter
// on this column directly.
type BankrollCategory string

const (
	CategoryGeneral BankrollCategory = "general"
	CategoryWeather BankrollCategory = "weather_trade"
)

// BankrollEntry is one append-only row in the bankroll ledger.
type BankrollEntry struct {
	ID            int64
	Kind          BankrollKind
	Category      BankrollCategory
	Amount        float64
	BalanceAfter  float64
	Description   string
	CycleNumber   int64
	CreatedAt     time.Time
}
