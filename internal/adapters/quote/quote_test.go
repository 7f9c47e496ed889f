package quote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQuoteAssemblesTopOfBook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/midpoint":
			json.NewEncoder(w).Encode(midpointResponse{Mid: "0.55"})
		case r.URL.Path == "/book":
			json.NewEncoder(w).Encode(bookResponse{
				Bids: []bookLevel{{Price: "0.54", Size: "100"}},
				Asks: []bookLevel{{Price: "0.57", Size: "80"}},
			})
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, 2)
	q, err := c.GetQuote(context.Background(), "0xcond", "tok-1")
	require.NoError(t, err)
	assert.Equal(t, 0.55, q.Mid)
	assert.Equal(t, 0.54, q.BestBid)
	assert.Equal(t, 0.57, q.BestAsk)
	assert.InDelta(t, 0.03, q.Spread, 1e-9)
	assert.Equal(t, "0xcond", q.ConditionID)
	assert.Equal(t, "tok-1", q.YesTokenID)
}

func TestGetQuoteEmptyBookYieldsZeroSides(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/midpoint":
			json.NewEncoder(w).Encode(midpointResponse{Mid: "0.5"})
		case "/book":
			json.NewEncoder(w).Encode(bookResponse{})
		}
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, 2)
	q, err := c.GetQuote(context.Background(), "0xcond", "tok-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, q.BestBid)
	assert.Equal(t, 0.0, q.BestAsk)
}

func TestGetQuoteRetriesOn429ThenSucceeds(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/midpoint" {
			attempts++
			if attempts < 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(midpointResponse{Mid: "0.6"})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(bookResponse{})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, 2)
	c.http.BaseRetryWait = time.Millisecond
	q, err := c.GetQuote(context.Background(), "0xcond", "tok-1")
	require.NoError(t, err)
	assert.Equal(t, 0.6, q.Mid)
	assert.GreaterOrEqual(t, attempts, 2)
}

func TestGetQuoteFatalOn404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, 2)
	_, err := c.GetQuote(context.Background(), "0xcond", "tok-1")
	assert.Error(t, err)
}

func TestGetQuoteParseErrorOnMalformedMid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(midpointResponse{Mid: "not-a-number"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, 2)
	_, err := c.GetQuote(context.Background(), "0xcond", "tok-1")
	assert.Error(t, err)
}
