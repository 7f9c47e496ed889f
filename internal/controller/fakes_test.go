package controller

import (
	"context"
	"errors"
	"strings"

	"github.com/alejandrodnm/polyagent/internal/domain"
)

// fakeCatalog implements ports.CatalogProvider with canned responses.
type fakeCatalog struct {
	active        []domain.Market
	weatherEvents []domain.Market
	activeErr     error
	weatherErr    error
}

func (f *fakeCatalog) ScanActive(ctx context.Context) ([]domain.Market, error) {
	return f.active, f.activeErr
}

func (f *fakeCatalog) ScanWeatherEvents(ctx context.Context) ([]domain.Market, error) {
	return f.weatherEvents, f.weatherErr
}

// fakeQuotes implements ports.QuoteProvider keyed by token id.
type fakeQuotes struct {
	byToken map[string]domain.Quote
	failFor map[string]bool
}

func (f *fakeQuotes) GetQuote(ctx context.Context, conditionID, tokenID string) (domain.Quote, error) {
	if f.failFor[tokenID] {
		return domain.Quote{}, errors.New("fake: quote fetch failed")
	}
	q, ok := f.byToken[tokenID]
	if !ok {
		return domain.Quote{}, errors.New("fake: no quote configured")
	}
	return q, nil
}

// fakeWeather implements ports.WeatherClient.
type fakeWeather struct {
	probs   map[string]domain.WeatherProbabilities
	probErr error
}

func (f *fakeWeather) GetProbabilities(ctx context.Context, city, date string) (domain.WeatherProbabilities, error) {
	if f.probErr != nil {
		return domain.WeatherProbabilities{}, f.probErr
	}
	p, ok := f.probs[city+"|"+date]
	if !ok {
		return domain.WeatherProbabilities{}, errors.New("fake: no probabilities configured")
	}
	return p, nil
}

func (f *fakeWeather) CollectActual(ctx context.Context, city, date string) (float64, error) {
	return 0, nil
}
func (f *fakeWeather) Calibrate(ctx context.Context) error                       { return nil }

// fakeLLM implements ports.LLMClient, answering triage/analyze calls by
// model name.
type fakeLLM struct {
	triageYes    bool
	analyzeJSON  string
	completeErr  error
	callsByModel map[string]int
}

func (f *fakeLLM) Complete(ctx context.Context, model string, maxTokens int, prompt string) (string, int64, int64, error) {
	if f.callsByModel == nil {
		f.callsByModel = map[string]int{}
	}
	f.callsByModel[model]++
	if f.completeErr != nil {
		return "", 0, 0, f.completeErr
	}
	if strings.Contains(prompt, "Answer ONLY") {
		if f.triageYes {
			return "YES, plausible mispricing", 50, 10, nil
		}
		return "NO, fairly priced", 50, 10, nil
	}
	return f.analyzeJSON, 400, 120, nil
}

// fakeOrders implements ports.OrderService.
type fakeOrders struct {
	orderID string
	status  domain.TradeStatus
	err     error
}

func (f *fakeOrders) PlaceOrder(ctx context.Context, tokenID string, price, size float64, side domain.TradeSide) (string, domain.TradeStatus, error) {
	if f.err != nil {
		return "", "", f.err
	}
	return f.orderID, f.status, nil
}
