// Package accountant closes out each cycle's API spend against the
// bankroll and produces the death report when the bankroll runs out.
//
// Grounded on original_source/accounting.rs: the Accountant carries only a
// low-bankroll threshold, close_cycle deducts the cycle's logged API cost
// in a single bankroll_log entry, and get_cycle_duration_secs switches
// between a high and low poll interval at that threshold.
package accountant

import (
	"context"
	"fmt"
	"strings"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ports"
)

// Accountant closes cycles and reports on the agent's death.
type Accountant struct {
	lowBankrollThreshold float64
}

func New(lowBankrollThreshold float64) *Accountant {
	return &Accountant{lowBankrollThreshold: lowBankrollThreshold}
}

// CloseCycle deducts the cycle's accumulated API cost from the bankroll in
// a single bankroll_log entry and reports whether the agent is still
// alive (bankroll_after > 0).
//
// Not idempotent: calling this twice for the same cycle number deducts the
// API cost twice, because bankroll_before is re-read from the ledger's
// current balance rather than the balance at the time the cycle started.
// The Cycle Controller must call this exactly once per cycle.
func (a *Accountant) CloseCycle(ctx context.Context, l ports.Ledger, cycleNumber int64) (domain.CycleAccounting, error) {
	bankrollBefore, err := l.GetCurrentBankroll(ctx)
	if err != nil {
		return domain.CycleAccounting{}, fmt.Errorf("accountant: close cycle %d: %w", cycleNumber, err)
	}
	apiCost, err := l.GetCycleAPICost(ctx, cycleNumber)
	if err != nil {
		return domain.CycleAccounting{}, fmt.Errorf("accountant: close cycle %d: %w", cycleNumber, err)
	}

	bankrollAfter := bankrollBefore
	if apiCost > 0 {
		bankrollAfter = bankrollBefore - apiCost
		err := l.LogBankrollEntry(ctx, domain.BankrollEntry{
			Kind:        domain.BankrollKindAPICost,
			Category:    domain.CategoryGeneral,
			Amount:      -apiCost,
			BalanceAfter: bankrollAfter,
			Description: fmt.Sprintf("Cycle %d API cost", cycleNumber),
			CycleNumber: cycleNumber,
		})
		if err != nil {
			return domain.CycleAccounting{}, fmt.Errorf("accountant: close cycle %d: %w", cycleNumber, err)
		}
	}

	return domain.CycleAccounting{
		BankrollBefore: bankrollBefore,
		BankrollAfter:  bankrollAfter,
		APICostUSD:     apiCost,
		IsAlive:        bankrollAfter > 0,
	}, nil
}

// CycleDurationSecs returns the high poll interval while the bankroll sits
// at or above the low-bankroll threshold, and the low interval otherwise
// (the agent polls more slowly once it is running thin, to conserve API
// spend).
func (a *Accountant) CycleDurationSecs(bankroll float64, high, low uint64) uint64 {
	if bankroll >= a.lowBankrollThreshold {
		return high
	}
	return low
}

// GenerateDeathReport assembles a snapshot of the agent's terminal state
// from the ledger: cycles completed, trades placed, realized P&L against
// the initial seed, remaining open positions, and the ten most recent
// trades.
func (a *Accountant) GenerateDeathReport(ctx context.Context, l ports.Ledger) (domain.DeathReport, error) {
	cyclesCompleted, err := l.CountCompletedCycles(ctx)
	if err != nil {
		return domain.DeathReport{}, fmt.Errorf("accountant: generate death report: %w", err)
	}
	totalTrades, err := l.CountTrades(ctx)
	if err != nil {
		return domain.DeathReport{}, fmt.Errorf("accountant: generate death report: %w", err)
	}
	finalBankroll, err := l.GetCurrentBankroll(ctx)
	if err != nil {
		return domain.DeathReport{}, fmt.Errorf("accountant: generate death report: %w", err)
	}
	openPositions, err := l.GetOpenPositions(ctx)
	if err != nil {
		return domain.DeathReport{}, fmt.Errorf("accountant: generate death report: %w", err)
	}
	recentTrades, err := l.GetRecentTrades(ctx, 10)
	if err != nil {
		return domain.DeathReport{}, fmt.Errorf("accountant: generate death report: %w", err)
	}
	initialSeed, err := l.GetInitialSeed(ctx)
	if err != nil {
		return domain.DeathReport{}, fmt.Errorf("accountant: generate death report: %w", err)
	}

	cause := "Unknown"
	if finalBankroll <= 0 {
		cause = "Bankroll depleted to zero"
	}

	return domain.DeathReport{
		CyclesCompleted: cyclesCompleted,
		TotalTrades:     totalTrades,
		TotalPnL:        finalBankroll - initialSeed,
		FinalBankroll:   finalBankroll,
		OpenPositions:   int64(len(openPositions)),
		Cause:           cause,
		RecentTrades:    recentTrades,
	}, nil
}

// String renders the boxed multiline death report the controller prints to
// stdout when the agent dies.
func String(r domain.DeathReport) string {
	var b strings.Builder
	b.WriteString("╔══════════════════════════════════════════╗\n")
	b.WriteString("║           AGENT DEATH REPORT              ║\n")
	b.WriteString("╠══════════════════════════════════════════╣\n")
	fmt.Fprintf(&b, "║ Cause: %-36s║\n", r.Cause)
	fmt.Fprintf(&b, "║ Cycles completed: %-25d║\n", r.CyclesCompleted)
	fmt.Fprintf(&b, "║ Total trades: %-29d║\n", r.TotalTrades)
	fmt.Fprintf(&b, "║ Total P&L: $%-31.2f║\n", r.TotalPnL)
	fmt.Fprintf(&b, "║ Final bankroll: $%-25.2f║\n", r.FinalBankroll)
	fmt.Fprintf(&b, "║ Open positions: %-27d║\n", r.OpenPositions)
	b.WriteString("╠══════════════════════════════════════════╣\n")
	b.WriteString("║ Recent Trades:                            ║\n")
	for _, t := range r.RecentTrades {
		fmt.Fprintf(&b, "║  %s %s @ $%.2f x%.1f [%s]\n", t.Side, t.ConditionID, t.Price, t.Size, t.Status)
	}
	b.WriteString("╚══════════════════════════════════════════╝")
	return b.String()
}
