// Package quote implements ports.QuoteProvider against the CLOB pricing
// API: midpoint and order-book depth for a token.
//
// Grounded on original_source's CLOB client retry policy (429/5xx
// retried with exponential backoff, other 4xx fatal) and spec.md §6's
// quote wire contract, built on the shared internal/adapters/httpx
// transport.
package quote

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/polyagent/internal/adapters/httpx"
	"github.com/alejandrodnm/polyagent/internal/domain"
	"golang.org/x/time/rate"
)

// Client fetches top-of-book pricing from the CLOB service.
type Client struct {
	http    *httpx.Client
	baseURL string
}

func New(baseURL string, timeout time.Duration, maxRetries int) *Client {
	c := httpx.New(timeout, rate.Limit(10), 20)
	if maxRetries > 0 {
		c.MaxRetries = maxRetries
	}
	return &Client{
		http:    c,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type midpointResponse struct {
	Mid string `json:"mid"`
}

type bookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type bookResponse struct {
	Bids []bookLevel `json:"bids"`
	Asks []bookLevel `json:"asks"`
}

// GetQuote fetches the midpoint and order book for tokenID and returns
// the assembled top-of-book snapshot.
func (c *Client) GetQuote(ctx context.Context, conditionID, tokenID string) (domain.Quote, error) {
	var mr midpointResponse
	midURL := fmt.Sprintf("%s/midpoint?token_id=%s", c.baseURL, tokenID)
	if err := c.http.DoJSON(ctx, httpx.Request{Method: "GET", URL: midURL}, &mr); err != nil {
		return domain.Quote{}, fmt.Errorf("quote: fetch midpoint: %w", err)
	}
	mid, err := strconv.ParseFloat(mr.Mid, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("quote: parse midpoint %q: %w", mr.Mid, err)
	}

	var br bookResponse
	bookURL := fmt.Sprintf("%s/book?token_id=%s", c.baseURL, tokenID)
	if err := c.http.DoJSON(ctx, httpx.Request{Method: "GET", URL: bookURL}, &br); err != nil {
		return domain.Quote{}, fmt.Errorf("quote: fetch book: %w", err)
	}

	var bestBid, bestAsk float64
	if len(br.Bids) > 0 {
		bestBid, _ = strconv.ParseFloat(br.Bids[0].Price, 64)
	}
	if len(br.Asks) > 0 {
		bestAsk, _ = strconv.ParseFloat(br.Asks[0].Price, 64)
	}

	return domain.Quote{
		ConditionID: conditionID,
		YesTokenID:  tokenID,
		Mid:         mid,
		BestBid:     bestBid,
		BestAsk:     bestAsk,
		Spread:      bestAsk - bestBid,
	}, nil
}
