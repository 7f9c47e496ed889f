// Package httpx is the shared rate-limited, retrying HTTP transport used
// by every external adapter (catalog, quote, order service, LLM,
// weather). Generalized from the teacher's
// internal/adapters/polymarket/client.go doWithRetry/sleep pattern: one
// rate.Limiter per client, exponential backoff with jitter on 429/5xx,
// immediate failure on other 4xx.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxRetries    = 3
	defaultBaseRetryWait = 500 * time.Millisecond
)

// Client wraps an *http.Client with a token-bucket limiter and retry
// policy shared across all calls made through it.
type Client struct {
	HTTP          *http.Client
	Limiter       *rate.Limiter
	MaxRetries    int
	BaseRetryWait time.Duration
}

// New builds a Client rate-limited to ratePerSec requests/sec with a
// token bucket of size burst.
func New(timeout time.Duration, ratePerSec rate.Limit, burst int) *Client {
	return &Client{
		HTTP:          &http.Client{Timeout: timeout},
		Limiter:       rate.NewLimiter(ratePerSec, burst),
		MaxRetries:    defaultMaxRetries,
		BaseRetryWait: defaultBaseRetryWait,
	}
}

// Request describes one HTTP call to execute with retry.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    any // marshaled to JSON if non-nil
}

// DoJSON executes req with rate limiting and retry, decoding the
// response body into out. Retries on transport errors, 429, and 5xx;
// returns immediately on any other 4xx.
func (c *Client) DoJSON(ctx context.Context, req Request, out any) error {
	var lastErr error
	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(ctx, attempt)
		}
		if err := c.Limiter.Wait(ctx); err != nil {
			return fmt.Errorf("httpx: rate limiter: %w", err)
		}

		resp, err := c.do(ctx, req)
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			resp.Body.Close()
			slog.Warn("httpx: rate limited by upstream", "url", req.URL, "attempt", attempt+1)
			lastErr = fmt.Errorf("rate limited (429)")
			continue
		case resp.StatusCode >= 500:
			resp.Body.Close()
			slog.Warn("httpx: upstream server error", "url", req.URL, "status", resp.StatusCode, "attempt", attempt+1)
			lastErr = fmt.Errorf("server error %d", resp.StatusCode)
			continue
		case resp.StatusCode >= 400:
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return fmt.Errorf("httpx: client error %d: %s", resp.StatusCode, string(body))
		default:
			defer resp.Body.Close()
			if out == nil {
				io.Copy(io.Discard, resp.Body)
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return fmt.Errorf("httpx: decode response from %s: %w", req.URL, err)
			}
			return nil
		}
	}
	if lastErr != nil {
		return fmt.Errorf("httpx: %s %s failed after %d retries: %w", req.Method, req.URL, c.MaxRetries, lastErr)
	}
	return fmt.Errorf("httpx: %s %s exhausted retries", req.Method, req.URL)
}

func (c *Client) do(ctx context.Context, req Request) (*http.Response, error) {
	var bodyReader io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	return c.HTTP.Do(httpReq)
}

// sleep waits out an exponential backoff with full jitter, respecting
// ctx cancellation.
func (c *Client) sleep(ctx context.Context, attempt int) {
	max := c.BaseRetryWait * time.Duration(1<<uint(attempt-1))
	wait := time.Duration(rand.Int63n(int64(max) + 1))
	select {
	case <-time.After(wait):
	case <-ctx.Done():
	}
}
