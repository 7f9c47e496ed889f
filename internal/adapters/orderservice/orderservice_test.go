package orderservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceOrderBuySide(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body orderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "BUY", body.Side)
		assert.Equal(t, "tok-1", body.TokenID)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(orderResponse{OrderID: "order-123", Status: "filled"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	orderID, status, err := c.PlaceOrder(context.Background(), "tok-1", 0.55, 10, domain.SideYes)
	require.NoError(t, err)
	assert.Equal(t, "order-123", orderID)
	assert.Equal(t, domain.TradeStatusFilled, status)
}

func TestPlaceOrderSellSide(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body orderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "SELL", body.Side)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(orderResponse{OrderID: "order-456", Status: "filled"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, _, err := c.PlaceOrder(context.Background(), "tok-1", 0.55, 10, domain.SideSellYes)
	require.NoError(t, err)
}

func TestPlaceOrderFatalOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"insufficient balance"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, _, err := c.PlaceOrder(context.Background(), "tok-1", 0.55, 10, domain.SideYes)
	assert.Error(t, err)
}

func TestPlaceOrderNotRetried(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	_, _, err := c.PlaceOrder(context.Background(), "tok-1", 0.55, 10, domain.SideYes)
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}
