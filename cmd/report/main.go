// Command report prints a read-only snapshot of an existing agent ledger:
// current bankroll, open positions, and recent trades. It never writes to
// the database.
//
// Grounded on the teacher's cmd/scanner secondary-entrypoint pattern
// (backtest.go/paper.go each a standalone run* function called from
// main.go) and internal/adapters/notify/console.go's tablewriter usage.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ledger"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "data/polymarket-agent.db", "path to the agent's SQLite ledger")
	tradeLimit := flag.Int("trades", 20, "number of recent trades to show")
	flag.Parse()

	db, err := ledger.Open(*dbPath)
	if err != nil {
		slog.Error("report: open ledger", "err", err, "path", *dbPath)
		os.Exit(1)
	}
	defer db.Close()

	ctx := context.Background()

	bankroll, err := db.GetCurrentBankroll(ctx)
	if err != nil {
		slog.Error("report: read bankroll", "err", err)
		os.Exit(1)
	}
	fmt.Printf("Bankroll: $%.2f\n\n", bankroll)

	positions, err := db.GetOpenPositions(ctx)
	if err != nil {
		slog.Error("report: read positions", "err", err)
		os.Exit(1)
	}
	printPositions(positions)

	trades, err := db.GetRecentTrades(ctx, *tradeLimit)
	if err != nil {
		slog.Error("report: read trades", "err", err)
		os.Exit(1)
	}
	printTrades(trades)
}

func printPositions(positions []domain.Position) {
	fmt.Printf("Open positions (%d)\n", len(positions))
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Market", "Side", "Entry", "Current", "Size", "Unrealized PnL")
	for _, p := range positions {
		table.Append(
			p.Question,
			string(p.Side),
			fmt.Sprintf("%.3f", p.EntryPrice),
			fmt.Sprintf("%.3f", p.CurrentPrice),
			fmt.Sprintf("%.2f", p.Size),
			fmt.Sprintf("$%.2f", p.UnrealizedPnL),
		)
	}
	table.Render()
	fmt.Println()
}

func printTrades(trades []domain.Trade) {
	fmt.Printf("Recent trades (%d)\n", len(trades))
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("ID", "Side", "Price", "Size", "Status", "Fee", "When")
	for _, t := range trades {
		table.Append(
			t.ID,
			string(t.Side),
			fmt.Sprintf("%.3f", t.Price),
			fmt.Sprintf("%.2f", t.Size),
			string(t.Status),
			fmt.Sprintf("$%.2f", t.EntryFee),
			t.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	table.Render()
}
