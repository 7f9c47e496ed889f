// Package ports declares the interfaces every component depends on but
// does not implement: the Ledger's storage contract and the external HTTP
// collaborators (catalog, quote, order placement, LLM, weather).
package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
)

// Ledger is the single source of truth for all mutable agent state.
// It is single-writer: the Cycle Controller's goroutine is the only caller
// that mutates it, though reads may happen concurrently (e.g. the status
// server).
type Ledger interface {
	// EnsureSeeded appends a seed bankroll entry of amount if the bankroll
	// table is empty. Idempotent.
	EnsureSeeded(ctx context.Context, amount float64) error

	UpsertMarket(ctx context.Context, m domain.Market) error
	InsertTrade(ctx context.Context, t domain.Trade) error

	// UpsertPosition aggregates onto an existing open (conditionID, side)
	// row using size-weighted entry price, or inserts a new open row.
	// estimatedProbability may be nil.
	UpsertPosition(ctx context.Context, conditionID, tokenID, question string, side domain.TradeSide, entryPrice, size float64, estimatedProbability *float64) error

	UpdatePositionPrice(ctx context.Context, conditionID string, side domain.TradeSide, currentPrice float64) error
	UpdatePositionEstimate(ctx context.Context, conditionID string, side domain.TradeSide, estimatedProbability float64) error

	// ClosePosition reads the open row, computes realized P&L, marks it
	// closed, and returns the realized P&L. Returns ErrNoOpenPosition if
	// none exists.
	ClosePosition(ctx context.Context, conditionID string, side domain.TradeSide, exitPrice float64) (float64, error)

	GetOpenPositions(ctx context.Context) ([]domain.Position, error)
	HasOpenPosition(ctx context.Context, conditionID string) (bool, error)

	// LogBankrollEntry appends a row. The caller must compute BalanceAfter.
	LogBankrollEntry(ctx context.Context, e domain.BankrollEntry) error
	GetCurrentBankroll(ctx context.Context) (float64, error)
	GetTotalExposure(ctx context.Context) (float64, error)
	GetBankrollEntriesSince(ctx context.Context, category domain.BankrollCategory, since time.Time) ([]domain.BankrollEntry, error)

	LogAPICost(ctx context.Context, r domain.APICostRecord) error
	GetCycleAPICost(ctx context.Context, cycle int64) (float64, error)
	GetAPICostSince(ctx context.Context, hours float64) (float64, error)

	// UpdatePeakBankroll appends a new peak row if current exceeds the
	// stored peak, and returns the (possibly unchanged) peak.
	UpdatePeakBankroll(ctx context.Context, current float64) (float64, error)

	LogPositionAlert(ctx context.Context, a domain.PositionAlert) error
	InsertWeatherSnapshot(ctx context.Context, s domain.WeatherSnapshot) error
	InsertOpportunity(ctx context.Context, o domain.Opportunity) (int64, error)
	UpdateOpportunityStatus(ctx context.Context, id int64, status domain.OpportunityStatus, rejectReason string) error

	RecordWeatherActual(ctx context.Context, a domain.WeatherActual) error
	GetWeatherActualsSince(ctx context.Context, days int) ([]domain.WeatherActual, error)
	UpsertWeatherCalibration(ctx context.Context, c domain.WeatherCalibration) error
	GetWeatherCalibration(ctx context.Context, city string) (domain.WeatherCalibration, bool, error)
	GetPendingWeatherActuals(ctx context.Context, asOf time.Time) ([]domain.WeatherMarketInfo, error)

	InsertCycleSummary(ctx context.Context, s domain.CycleSummary) error
	NextCycleNumber(ctx context.Context) (int64, error)

	GetRecentTrades(ctx context.Context, limit int) ([]domain.Trade, error)
	GetRecentOpportunities(ctx context.Context, limit int) ([]domain.Opportunity, error)
	CountTrades(ctx context.Context) (int64, error)
	CountCompletedCycles(ctx context.Context) (int64, error)
	GetInitialSeed(ctx context.Context) (float64, error)

	Close() error
}
