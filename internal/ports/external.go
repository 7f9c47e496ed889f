package ports

import (
	"context"

	"github.com/alejandrodnm/polyagent/internal/domain"
)

// CatalogProvider discovers candidate markets from the market-listing
// service.
type CatalogProvider interface {
	// ScanActive pages through GET /markets until an empty or short page,
	// returning every active, non-closed market.
	ScanActive(ctx context.Context) ([]domain.Market, error)
	// ScanWeatherEvents fetches the weather tag's events and returns the
	// markets inside them.
	ScanWeatherEvents(ctx context.Context) ([]domain.Market, error)
}

// QuoteProvider fetches top-of-book pricing for a token.
type QuoteProvider interface {
	GetQuote(ctx context.Context, conditionID, tokenID string) (domain.Quote, error)
}

// OrderService places and fills real orders against the exchange.
type OrderService interface {
	PlaceOrder(ctx context.Context, tokenID string, price, size float64, side domain.TradeSide) (orderID string, status domain.TradeStatus, err error)
}

// LLMClient is the estimator's transport to the analysis model service.
type LLMClient interface {
	Complete(ctx context.Context, model string, maxTokens int, prompt string) (text string, inputTokens, outputTokens int64, err error)
}

// WeatherClient is the estimator/position-manager's transport to the
// auxiliary weather process.
type WeatherClient interface {
	GetProbabilities(ctx context.Context, city, date string) (domain.WeatherProbabilities, error)
	CollectActual(ctx context.Context, city, date string) (actualHigh float64, err error)
	Calibrate(ctx context.Context) error
}

// Executor places trades (paper-simulated or live) and exits positions.
type Executor interface {
	Execute(ctx context.Context, ledger Ledger, intent domain.TradeIntent) (domain.TradeResult, error)
	ExitPosition(ctx context.Context, ledger Ledger, pos domain.Position, exitPrice float64) (domain.TradeResult, error)
}
