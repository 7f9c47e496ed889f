package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/alejandrodnm/polyagent/internal/domain"
)

// QuotedMarket pairs a market with its freshly fetched top-of-book quote.
type QuotedMarket struct {
	Market domain.Market
	Quote  domain.Quote
}

// quoteMarkets fetches a quote for each market's YES token with bounded
// fan-out; markets whose quote fetch fails this cycle are dropped.
//
// Grounded on the teacher's internal/application/scanner/concurrent.go
// worker-pool pattern.
func (c *Controller) quoteMarkets(ctx context.Context, markets []domain.Market) []QuotedMarket {
	workCh := make(chan domain.Market, len(markets))
	resultCh := make(chan QuotedMarket, len(markets))

	var wg sync.WaitGroup
	for i := 0; i < quoteFanOut; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range workCh {
				q, err := c.quotes.GetQuote(ctx, m.ConditionID, m.YesTokenID)
				if err != nil {
					slog.Debug("controller: quote fetch failed", "condition_id", m.ConditionID, "err", err)
					continue
				}
				resultCh <- QuotedMarket{Market: m, Quote: q}
			}
		}()
	}

	for _, m := range markets {
		workCh <- m
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	out := make([]QuotedMarket, 0, len(markets))
	for qm := range resultCh {
		out = append(out, qm)
	}
	return out
}
