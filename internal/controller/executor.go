// Executor implements ports.Executor for both paper and live trading
// modes, per spec.md §4.7's execute/exit_position contract.
//
// Grounded on the teacher's internal/application/engine/paper/engine.go
// (simulated fill + ledger bookkeeping) and
// internal/application/engine/live/engine.go (real order placement
// before the same bookkeeping).
package controller

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
)

// Executor places trades in paper or live mode. In paper mode it never
// calls out to the order-placement service; it fills at the limit
// price immediately.
type Executor struct {
	mode    domain.TradingMode
	orders  ports.OrderService // nil in paper mode
	feeRate float64
}

func NewExecutor(mode domain.TradingMode, orders ports.OrderService, feeRate float64) *Executor {
	return &Executor{mode: mode, orders: orders, feeRate: feeRate}
}

// Execute places (or simulates) one order and records the resulting
// trade, position, and bankroll debits.
func (e *Executor) Execute(ctx context.Context, l ports.Ledger, intent domain.TradeIntent) (domain.TradeResult, error) {
	var tradeID string
	var status domain.TradeStatus
	var fillPrice float64
	simulated := e.mode == domain.ModePaper

	if simulated {
		tradeID = uuid.NewString()
		status = domain.TradeStatusFilled
		fillPrice = intent.LimitPrice
	} else {
		orderID, orderStatus, err := e.orders.PlaceOrder(ctx, intent.TokenID, intent.LimitPrice, intent.Shares, intent.Side)
		if err != nil {
			return domain.TradeResult{}, fmt.Errorf("controller: execute order: %w", err)
		}
		tradeID = orderID
		status = orderStatus
		fillPrice = intent.LimitPrice
	}

	fee := intent.PositionUSD * intent.FeeRate

	trade := domain.Trade{
		ID:          tradeID,
		ConditionID: intent.ConditionID,
		TokenID:     intent.TokenID,
		Side:        intent.Side,
		Price:       fillPrice,
		Size:        intent.Shares,
		Status:      status,
		Simulated:   simulated,
		EntryFee:    fee,
	}
	if err := l.InsertTrade(ctx, trade); err != nil {
		return domain.TradeResult{}, fmt.Errorf("controller: insert trade: %w", err)
	}

	if status != domain.TradeStatusFilled {
		return domain.TradeResult{TradeID: tradeID, Status: status}, nil
	}

	var estimated *float64
	if intent.Estimated != 0 {
		v := intent.Estimated
		estimated = &v
	}
	question := intent.Question
	if err := l.UpsertPosition(ctx, intent.ConditionID, intent.TokenID, question, intent.Side, fillPrice, intent.Shares, estimated); err != nil {
		return domain.TradeResult{}, fmt.Errorf("controller: upsert position: %w", err)
	}

	bankroll, err := l.GetCurrentBankroll(ctx)
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("controller: read bankroll: %w", err)
	}
	bankroll -= intent.PositionUSD
	if err := l.LogBankrollEntry(ctx, domain.BankrollEntry{
		Kind:         domain.BankrollKindTrade,
		Category:     categoryForQuestion(question),
		Amount:       -intent.PositionUSD,
		BalanceAfter: bankroll,
		Description:  fmt.Sprintf("Trade %s %s", intent.Side, intent.ConditionID),
	}); err != nil {
		return domain.TradeResult{}, fmt.Errorf("controller: log trade bankroll entry: %w", err)
	}

	if fee > 0 {
		bankroll -= fee
		if err := l.LogBankrollEntry(ctx, domain.BankrollEntry{
			Kind:         domain.BankrollKindTradingFee,
			Category:     categoryForQuestion(question),
			Amount:       -fee,
			BalanceAfter: bankroll,
			Description:  fmt.Sprintf("Entry fee %s", intent.ConditionID),
		}); err != nil {
			return domain.TradeResult{}, fmt.Errorf("controller: log fee bankroll entry: %w", err)
		}
	}

	return domain.TradeResult{TradeID: tradeID, Status: status, Price: fillPrice, Size: intent.Shares, Fee: fee}, nil
}

// ExitPosition closes pos at exitPrice, crediting the bankroll with the
// proceeds and charging an exit fee if one applies.
func (e *Executor) ExitPosition(ctx context.Context, l ports.Ledger, pos domain.Position, exitPrice float64) (domain.TradeResult, error) {
	exitSide := domain.SideSellYes
	if pos.Side == domain.SideNo {
		exitSide = domain.SideSellNo
	}

	var tradeID string
	var status domain.TradeStatus
	if e.mode == domain.ModePaper {
		tradeID = uuid.NewString()
		status = domain.TradeStatusFilled
	} else {
		orderID, orderStatus, err := e.orders.PlaceOrder(ctx, pos.TokenID, exitPrice, pos.Size, exitSide)
		if err != nil {
			return domain.TradeResult{}, fmt.Errorf("controller: exit position: %w", err)
		}
		tradeID = orderID
		status = orderStatus
	}

	trade := domain.Trade{
		ID:          tradeID,
		ConditionID: pos.ConditionID,
		TokenID:     pos.TokenID,
		Side:        exitSide,
		Price:       exitPrice,
		Size:        pos.Size,
		Status:      status,
		Simulated:   e.mode == domain.ModePaper,
	}
	if err := l.InsertTrade(ctx, trade); err != nil {
		return domain.TradeResult{}, fmt.Errorf("controller: insert exit trade: %w", err)
	}
	if status != domain.TradeStatusFilled {
		return domain.TradeResult{TradeID: tradeID, Status: status}, nil
	}

	if _, err := l.ClosePosition(ctx, pos.ConditionID, pos.Side, exitPrice); err != nil {
		return domain.TradeResult{}, fmt.Errorf("controller: close position: %w", err)
	}

	proceeds := exitPrice * pos.Size
	fee := proceeds * e.feeRate
	bankroll, err := l.GetCurrentBankroll(ctx)
	if err != nil {
		return domain.TradeResult{}, fmt.Errorf("controller: read bankroll: %w", err)
	}
	bankroll += proceeds
	if err := l.LogBankrollEntry(ctx, domain.BankrollEntry{
		Kind:         domain.BankrollKindExit,
		Category:     categoryForQuestion(pos.Question),
		Amount:       proceeds,
		BalanceAfter: bankroll,
		Description:  fmt.Sprintf("Exit %s %s", pos.Side, pos.ConditionID),
	}); err != nil {
		return domain.TradeResult{}, fmt.Errorf("controller: log exit bankroll entry: %w", err)
	}

	if fee > 0 {
		bankroll -= fee
		if err := l.LogBankrollEntry(ctx, domain.BankrollEntry{
			Kind:         domain.BankrollKindTradingFee,
			Category:     categoryForQuestion(pos.Question),
			Amount:       -fee,
			BalanceAfter: bankroll,
			Description:  fmt.Sprintf("Exit fee %s", pos.ConditionID),
		}); err != nil {
			return domain.TradeResult{}, fmt.Errorf("controller: log exit fee bankroll entry: %w", err)
		}
	}

	return domain.TradeResult{TradeID: tradeID, Status: status, Price: exitPrice, Size: pos.Size, Fee: fee}, nil
}

