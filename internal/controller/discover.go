package controller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/polyagent/internal/domain"
)

// discover calls the catalog (active markets plus the weather tag's
// events), filters to markets with both tokens and sufficient liquidity
// and volume, and upserts every survivor. Returns the survivors plus the
// total number of markets the catalog returned before filtering.
func (c *Controller) discover(ctx context.Context) ([]domain.Market, int, error) {
	active, err := c.catalog.ScanActive(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("controller: discover active markets: %w", err)
	}
	weatherEvents, err := c.catalog.ScanWeatherEvents(ctx)
	if err != nil {
		slog.Warn("controller: scan weather events failed", "err", err)
		weatherEvents = nil
	}

	scanned := len(active) + len(weatherEvents)
	seen := make(map[string]bool, scanned)
	var survivors []domain.Market

	consider := func(m domain.Market) {
		if seen[m.ConditionID] {
			return
		}
		seen[m.ConditionID] = true
		if m.Closed || !m.Active {
			return
		}
		if !m.HasBothTokens() {
			return
		}
		if m.Liquidity < c.cfg.MinLiquidity || m.Volume24h < c.cfg.MinVolume {
			return
		}
		if err := c.ledger.UpsertMarket(ctx, m); err != nil {
			slog.Warn("controller: upsert market failed", "condition_id", m.ConditionID, "err", err)
			return
		}
		survivors = append(survivors, m)
	}

	for _, m := range active {
		consider(m)
	}
	for _, m := range weatherEvents {
		consider(m)
	}

	return survivors, scanned, nil
}
