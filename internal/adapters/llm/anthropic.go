// Package llm implements ports.LLMClient against the Anthropic Messages
// API, grounded on original_source/estimator.rs's AnthropicRequest/
// AnthropicResponse wire shapes, transported through the shared
// internal/adapters/httpx retry client.
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/alejandrodnm/polyagent/internal/adapters/httpx"
	"golang.org/x/time/rate"
)

const anthropicVersion = "2023-06-01"

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type request struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

type response struct {
	Content []contentBlock `json:"content"`
	Usage   usage          `json:"usage"`
}

// Client is the Anthropic Messages API transport.
type Client struct {
	http   *httpx.Client
	apiURL string
	apiKey string
}

func New(apiURL, apiKey string, requestTimeout time.Duration) *Client {
	return &Client{
		http:   httpx.New(requestTimeout, rate.Limit(2), 2),
		apiURL: apiURL,
		apiKey: apiKey,
	}
}

// Complete sends a single user-role message and returns the model's text
// response plus token usage.
func (c *Client) Complete(ctx context.Context, model string, maxTokens int, prompt string) (string, int64, int64, error) {
	req := httpx.Request{
		Method: "POST",
		URL:    c.apiURL + "/v1/messages",
		Headers: map[string]string{
			"x-api-key":         c.apiKey,
			"anthropic-version": anthropicVersion,
		},
		Body: request{
			Model:     model,
			MaxTokens: maxTokens,
			Messages:  []message{{Role: "user", Content: prompt}},
		},
	}

	var resp response
	if err := c.http.DoJSON(ctx, req, &resp); err != nil {
		return "", 0, 0, fmt.Errorf("llm: complete: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", 0, 0, fmt.Errorf("llm: complete: no content blocks in response")
	}
	return resp.Content[0].Text, resp.Usage.InputTokens, resp.Usage.OutputTokens, nil
}
