// Package catalog implements ports.CatalogProvider against the Gamma
// market-listing API: paginated active-market scans and the weather tag's
// event feed.
//
// Grounded on the teacher's internal/adapters/polymarket/gamma.go (lenient
// json.Number/string decoding for numeric fields) and spec.md §6's market
// catalog wire contract (tokens array OR parallel clobTokenIds/outcomes/
// outcomePrices stringified arrays).
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/polyagent/internal/adapters/httpx"
	"github.com/alejandrodnm/polyagent/internal/domain"
	"golang.org/x/time/rate"
)

const (
	defaultPageSize  = 50
	weatherTagID     = "84"
	weatherEventsMax = 200
)

// Client talks to the Gamma market-listing service.
type Client struct {
	http     *httpx.Client
	baseURL  string
	pageSize int
}

func New(baseURL string, timeout time.Duration, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &Client{
		http:     httpx.New(timeout, rate.Limit(5), 10),
		baseURL:  strings.TrimRight(baseURL, "/"),
		pageSize: pageSize,
	}
}

type rawToken struct {
	TokenID string          `json:"token_id"`
	Outcome string          `json:"outcome"`
	Price   json.RawMessage `json:"price"`
}

type rawTag struct {
	ID string `json:"id"`
}

type rawMarket struct {
	Question      string          `json:"question"`
	Slug          string          `json:"slug"`
	ConditionID   string          `json:"conditionId"`
	Tokens        []rawToken      `json:"tokens"`
	ClobTokenIds  string          `json:"clobTokenIds"`
	Outcomes      string          `json:"outcomes"`
	OutcomePrices string          `json:"outcomePrices"`
	Volume        json.RawMessage `json:"volume"`
	Liquidity     json.RawMessage `json:"liquidity"`
	EndDate       string          `json:"endDate"`
	Closed        bool            `json:"closed"`
	Active        bool            `json:"active"`
	Tags          []rawTag        `json:"tags"`
}

type rawEvent struct {
	Markets []rawMarket `json:"markets"`
}

// ScanActive pages through GET /markets until an empty or short page,
// returning every active, non-closed market.
func (c *Client) ScanActive(ctx context.Context) ([]domain.Market, error) {
	var out []domain.Market
	offset := 0
	for {
		url := fmt.Sprintf("%s/markets?closed=false&limit=%d&offset=%d", c.baseURL, c.pageSize, offset)
		var page []rawMarket
		if err := c.http.DoJSON(ctx, httpx.Request{Method: "GET", URL: url}, &page); err != nil {
			return nil, fmt.Errorf("catalog: scan active: %w", err)
		}

		for _, rm := range page {
			if rm.Closed || !rm.Active {
				continue
			}
			m, err := toMarket(rm)
			if err != nil {
				continue
			}
			out = append(out, m)
		}

		if len(page) < c.pageSize {
			break
		}
		offset += c.pageSize
	}
	return out, nil
}

// ScanWeatherEvents fetches the weather tag's events and returns the
// markets inside them.
func (c *Client) ScanWeatherEvents(ctx context.Context) ([]domain.Market, error) {
	url := fmt.Sprintf("%s/events?tag_id=%s&closed=false&limit=%d", c.baseURL, weatherTagID, weatherEventsMax)
	var events []rawEvent
	if err := c.http.DoJSON(ctx, httpx.Request{Method: "GET", URL: url}, &events); err != nil {
		return nil, fmt.Errorf("catalog: scan weather events: %w", err)
	}

	var out []domain.Market
	for _, ev := range events {
		for _, rm := range ev.Markets {
			if rm.Closed {
				continue
			}
			m, err := toMarket(rm)
			if err != nil {
				continue
			}
			out = append(out, m)
		}
	}
	return out, nil
}

func toMarket(rm rawMarket) (domain.Market, error) {
	yesTokenID, noTokenID, err := tokenIDs(rm)
	if err != nil {
		return domain.Market{}, err
	}

	endDate, _ := time.Parse(time.RFC3339, rm.EndDate)

	return domain.Market{
		ConditionID: rm.ConditionID,
		Question:    rm.Question,
		Slug:        rm.Slug,
		YesTokenID:  yesTokenID,
		NoTokenID:   noTokenID,
		Volume24h:   parseLooseFloat(rm.Volume),
		Liquidity:   parseLooseFloat(rm.Liquidity),
		EndDate:     endDate,
		Active:      rm.Active,
		Closed:      rm.Closed,
	}, nil
}

// tokenIDs resolves the YES/NO token ids either from the tokens array or
// from the three parallel stringified JSON arrays, zipped elementwise.
func tokenIDs(rm rawMarket) (yes, no string, err error) {
	if len(rm.Tokens) > 0 {
		for _, tok := range rm.Tokens {
			switch strings.ToUpper(tok.Outcome) {
			case "YES":
				yes = tok.TokenID
			case "NO":
				no = tok.TokenID
			}
		}
		if yes != "" || no != "" {
			return yes, no, nil
		}
	}

	if rm.ClobTokenIds == "" || rm.Outcomes == "" {
		return "", "", fmt.Errorf("catalog: market %s has no token data", rm.ConditionID)
	}

	var tokenIDs, outcomes []string
	if err := json.Unmarshal([]byte(rm.ClobTokenIds), &tokenIDs); err != nil {
		return "", "", fmt.Errorf("catalog: parse clobTokenIds: %w", err)
	}
	if err := json.Unmarshal([]byte(rm.Outcomes), &outcomes); err != nil {
		return "", "", fmt.Errorf("catalog: parse outcomes: %w", err)
	}
	if len(tokenIDs) != len(outcomes) {
		return "", "", fmt.Errorf("catalog: market %s has mismatched token/outcome arrays", rm.ConditionID)
	}

	for i, outcome := range outcomes {
		switch strings.ToUpper(outcome) {
		case "YES":
			yes = tokenIDs[i]
		case "NO":
			no = tokenIDs[i]
		}
	}
	return yes, no, nil
}

// parseLooseFloat handles a field that may arrive as a JSON number, a
// quoted string, or null.
func parseLooseFloat(raw json.RawMessage) float64 {
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}
