package controller

import (
	"context"
	"testing"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/positionmanager"
	"github.com/alejandrodnm/polyagent/internal/sizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededController(t *testing.T, executor *Executor, posManager *positionmanager.Manager, cfg Config) *Controller {
	db := openLedger(t)
	require.NoError(t, db.EnsureSeeded(context.Background(), 1000.0))
	return New(db, nil, nil, nil, nil, nil, nil, posManager, executor, cfg)
}

func opp(conditionID string, side domain.TradeSide, question string) domain.EdgeOpportunity {
	return domain.EdgeOpportunity{
		ConditionID:          conditionID,
		Question:             question,
		Side:                 side,
		EstimatedProbability: 0.70,
		MarketPrice:          0.40,
		Edge:                 0.30,
		NetEdge:              0.26,
		Confidence:           0.80,
		DataQuality:          "high",
	}
}

func TestExecuteOpportunitiesPlacesTradeAndDebitsBankroll(t *testing.T) {
	executor := NewExecutor(domain.ModePaper, nil, 0.02)
	c := seededController(t, executor, nil, Config{TradingFeeRate: 0.02})
	require.NoError(t, c.ledger.UpsertMarket(context.Background(), baseMarket("m1")))

	market := baseMarket("m1")
	opportunities := []domain.EdgeOpportunity{opp("m1", domain.SideYes, market.Question)}
	marketsQuoted := []QuotedMarket{{Market: market}}

	cycleSizer := sizer.New(0.5, 0.10, 0.60)
	trades, err := c.executeOpportunities(context.Background(), opportunities, nil, marketsQuoted, false, cycleSizer)
	require.NoError(t, err)
	assert.Equal(t, 1, trades)

	bal, err := c.ledger.GetCurrentBankroll(context.Background())
	require.NoError(t, err)
	assert.Less(t, bal, 1000.0)

	positions, err := c.ledger.GetOpenPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "m1-yes", positions[0].TokenID)
}

func TestExecuteOpportunitiesSkipsUnknownMarket(t *testing.T) {
	executor := NewExecutor(domain.ModePaper, nil, 0.02)
	c := seededController(t, executor, nil, Config{TradingFeeRate: 0.02})

	opportunities := []domain.EdgeOpportunity{opp("ghost", domain.SideYes, "will it happen ghost")}
	cycleSizer := sizer.New(0.5, 0.10, 0.60)
	trades, err := c.executeOpportunities(context.Background(), opportunities, nil, nil, false, cycleSizer)
	require.NoError(t, err)
	assert.Equal(t, 0, trades)
}

func TestExecuteOpportunitiesRejectsWeatherWhenDailyLossBreakerActive(t *testing.T) {
	executor := NewExecutor(domain.ModePaper, nil, 0.02)
	c := seededController(t, executor, nil, Config{TradingFeeRate: 0.02})

	weatherQuestion := "Will the high temperature in New York City on February 20, 2026 be between 74°F and 76°F?"
	market := baseMarket("wx")
	market.Question = weatherQuestion
	require.NoError(t, c.ledger.UpsertMarket(context.Background(), market))

	opportunities := []domain.EdgeOpportunity{opp("wx", domain.SideYes, weatherQuestion)}
	cycleSizer := sizer.New(0.5, 0.10, 0.60)
	trades, err := c.executeOpportunities(context.Background(), opportunities, nil, []QuotedMarket{{Market: market}}, true, cycleSizer)
	require.NoError(t, err)
	assert.Equal(t, 0, trades)
}

func TestExecuteOpportunitiesSkipsAlreadyPositionedWeatherMarket(t *testing.T) {
	executor := NewExecutor(domain.ModePaper, nil, 0.02)
	c := seededController(t, executor, nil, Config{TradingFeeRate: 0.02})

	weatherQuestion := "Will the high temperature in Chicago on 2026-03-05 be 60-62°F?"
	market := baseMarket("wx2")
	market.Question = weatherQuestion
	require.NoError(t, c.ledger.UpsertMarket(context.Background(), market))
	require.NoError(t, c.ledger.UpsertPosition(context.Background(), "wx2", market.YesTokenID, weatherQuestion, domain.SideYes, 0.4, 10, nil))

	opportunities := []domain.EdgeOpportunity{opp("wx2", domain.SideYes, weatherQuestion)}
	cycleSizer := sizer.New(0.5, 0.10, 0.60)
	trades, err := c.executeOpportunities(context.Background(), opportunities, nil, []QuotedMarket{{Market: market}}, false, cycleSizer)
	require.NoError(t, err)
	assert.Equal(t, 0, trades)
}

func TestExecuteOpportunitiesRecordsRejectReasonOnTrackedOpportunity(t *testing.T) {
	executor := NewExecutor(domain.ModePaper, nil, 0.02)
	c := seededController(t, executor, nil, Config{TradingFeeRate: 0.02})
	market := baseMarket("tiny")
	require.NoError(t, c.ledger.UpsertMarket(context.Background(), market))

	// No edge at all: estimated probability equals the market price, so
	// raw Kelly comes out at zero and the sizer rejects it outright.
	tiny := opp("tiny", domain.SideYes, market.Question)
	tiny.EstimatedProbability = 0.40
	tiny.MarketPrice = 0.40

	id, err := c.ledger.InsertOpportunity(context.Background(), domain.Opportunity{
		ConditionID: "tiny", Question: market.Question, Side: domain.SideYes,
		EstimatedProbability: tiny.EstimatedProbability, MarketPrice: tiny.MarketPrice,
		Status: domain.OpportunityPending,
	})
	require.NoError(t, err)
	ids := map[string]int64{opportunityKey("tiny", domain.SideYes): id}

	cycleSizer := sizer.New(0.5, 0.10, 0.60)
	trades, err := c.executeOpportunities(context.Background(), []domain.EdgeOpportunity{tiny}, ids, []QuotedMarket{{Market: market}}, false, cycleSizer)
	require.NoError(t, err)
	assert.Equal(t, 0, trades)

	recent, err := c.ledger.GetRecentOpportunities(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, domain.OpportunityRejected, recent[0].Status)
	assert.NotEmpty(t, recent[0].RejectReason)
}

func TestWeatherDailyLossBreakerActiveSumsRecentLossesOnly(t *testing.T) {
	db := openLedger(t)
	require.NoError(t, db.EnsureSeeded(context.Background(), 1000.0))
	c := New(db, nil, nil, nil, nil, nil, nil, nil, nil, Config{WeatherDailyLossLimit: 20.0})

	now := time.Now().UTC()
	require.NoError(t, db.LogBankrollEntry(context.Background(), domain.BankrollEntry{
		Kind: domain.BankrollKindExit, Category: domain.CategoryWeather,
		Amount: -50.0, BalanceAfter: 950.0, CreatedAt: now.Add(-48 * time.Hour),
	}))
	active, err := c.weatherDailyLossBreakerActive(context.Background())
	require.NoError(t, err)
	assert.False(t, active, "loss outside the 24h window must not count")

	require.NoError(t, db.LogBankrollEntry(context.Background(), domain.BankrollEntry{
		Kind: domain.BankrollKindExit, Category: domain.CategoryWeather,
		Amount: -25.0, BalanceAfter: 925.0, CreatedAt: now.Add(-1 * time.Hour),
	}))
	active, err = c.weatherDailyLossBreakerActive(context.Background())
	require.NoError(t, err)
	assert.True(t, active)
}

func TestExitTriggeredPositionsClosesFlaggedPositions(t *testing.T) {
	db := openLedger(t)
	require.NoError(t, db.EnsureSeeded(context.Background(), 1000.0))
	require.NoError(t, db.UpsertMarket(context.Background(), baseMarket("m1")))
	require.NoError(t, db.UpsertPosition(context.Background(), "m1", "m1-yes", "will it happen m1", domain.SideYes, 0.50, 10, nil))
	require.NoError(t, db.UpdatePositionPrice(context.Background(), "m1", domain.SideYes, 0.40)) // 20% down, trips stop-loss

	posManager := positionmanager.New(0.15, 0.90, 0.02, 3.0, 5000.0, 0.10, 0.25)
	executor := NewExecutor(domain.ModePaper, nil, 0.02)
	c := New(db, nil, nil, nil, nil, nil, nil, posManager, executor, Config{})

	positions, err := db.GetOpenPositions(context.Background())
	require.NoError(t, err)
	require.Len(t, positions, 1)
	action := posManager.EvaluatePosition(positions[0], positions[0].CurrentPrice)
	require.Equal(t, positionmanager.Exit, action.Kind)

	require.NoError(t, c.exitTriggeredPositions(context.Background(), positions))

	positions, err = db.GetOpenPositions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, positions)
}
