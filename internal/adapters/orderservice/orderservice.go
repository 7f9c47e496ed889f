// Package orderservice implements ports.OrderService against the
// exchange's order-placement API.
//
// Grounded on spec.md §6's order wire contract and the shared
// internal/adapters/httpx transport; a non-2xx response is fatal for
// that order, matching the teacher's order-submission error handling.
package orderservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/polyagent/internal/adapters/httpx"
	"github.com/alejandrodnm/polyagent/internal/domain"
	"golang.org/x/time/rate"
)

// Client places real orders against the exchange.
type Client struct {
	http    *httpx.Client
	baseURL string
}

func New(baseURL string, timeout time.Duration) *Client {
	c := httpx.New(timeout, rate.Limit(5), 5)
	c.MaxRetries = 0 // order placement is never safe to retry blindly
	return &Client{
		http:    c,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type orderRequest struct {
	TokenID string  `json:"token_id"`
	Price   float64 `json:"price"`
	Size    float64 `json:"size"`
	Side    string  `json:"side"`
}

type orderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// wireSide maps a TradeSide to the exchange's BUY/SELL order side.
func wireSide(side domain.TradeSide) string {
	switch side {
	case domain.SideSellYes, domain.SideSellNo:
		return "SELL"
	default:
		return "BUY"
	}
}

// PlaceOrder submits an order for tokenID. Any non-2xx response is
// fatal for this order; it is not retried.
func (c *Client) PlaceOrder(ctx context.Context, tokenID string, price, size float64, side domain.TradeSide) (string, domain.TradeStatus, error) {
	url := fmt.Sprintf("%s/order", c.baseURL)
	req := orderRequest{
		TokenID: tokenID,
		Price:   price,
		Size:    size,
		Side:    wireSide(side),
	}

	var resp orderResponse
	if err := c.http.DoJSON(ctx, httpx.Request{Method: "POST", URL: url, Body: req}, &resp); err != nil {
		return "", "", fmt.Errorf("orderservice: place order: %w", err)
	}

	status := domain.TradeStatus(strings.ToLower(resp.Status))
	if status == "" {
		status = domain.TradeStatusRejected
	}
	return resp.OrderID, status, nil
}
