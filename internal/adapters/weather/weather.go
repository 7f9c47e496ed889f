// Package weather implements ports.WeatherClient against the auxiliary
// weather sidecar process: ensemble-forecast probabilities, actual-high
// collection, and daily bias recalibration.
//
// Grounded on original_source/weather_client.rs's WeatherClient
// (get_probabilities retry loop: 1000ms * 2^(attempt-1) backoff on 5xx,
// immediate failure on other 4xx), built on the shared
// internal/adapters/httpx transport with its own retry knobs since the
// sidecar's backoff schedule differs from the exchange APIs'.
package weather

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alejandrodnm/polyagent/internal/adapters/httpx"
	"github.com/alejandrodnm/polyagent/internal/domain"
	"golang.org/x/time/rate"
)

// Client talks to the local weather sidecar over HTTP.
type Client struct {
	http    *httpx.Client
	baseURL string
}

func New(baseURL string, timeout time.Duration, maxRetries int) *Client {
	c := httpx.New(timeout, rate.Limit(20), 20)
	c.MaxRetries = maxRetries
	c.BaseRetryWait = time.Second
	return &Client{
		http:    c,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

type bucketDTO struct {
	BucketLabel string  `json:"bucket_label"`
	Lower       float64 `json:"lower"`
	Upper       float64 `json:"upper"`
	Probability float64 `json:"probability"`
}

type probabilitiesDTO struct {
	City           string      `json:"city"`
	StationICAO    string      `json:"station_icao"`
	ForecastDate   string      `json:"forecast_date"`
	Buckets        []bucketDTO `json:"buckets"`
	EnsembleMean   float64     `json:"ensemble_mean"`
	EnsembleStd    float64     `json:"ensemble_std"`
	GEFSCount      int         `json:"gefs_count"`
	ECMWFCount     int         `json:"ecmwf_count"`
	ForecastHigh   *float64    `json:"forecast_high,omitempty"`
	BiasCorrection *float64    `json:"bias_correction,omitempty"`
}

// GetProbabilities fetches the ensemble forecast distribution for city
// on date.
func (c *Client) GetProbabilities(ctx context.Context, city, date string) (domain.WeatherProbabilities, error) {
	url := fmt.Sprintf("%s/weather/probabilities?city=%s&date=%s", c.baseURL, city, date)
	var dto probabilitiesDTO
	if err := c.http.DoJSON(ctx, httpx.Request{Method: "GET", URL: url}, &dto); err != nil {
		return domain.WeatherProbabilities{}, fmt.Errorf("weather: get probabilities: %w", err)
	}

	buckets := make([]domain.BucketProbability, len(dto.Buckets))
	for i, b := range dto.Buckets {
		buckets[i] = domain.BucketProbability{
			BucketLabel: b.BucketLabel,
			Lower:       b.Lower,
			Upper:       b.Upper,
			Probability: b.Probability,
		}
	}

	return domain.WeatherProbabilities{
		City:           dto.City,
		StationICAO:    dto.StationICAO,
		ForecastDate:   dto.ForecastDate,
		Buckets:        buckets,
		EnsembleMean:   dto.EnsembleMean,
		EnsembleStd:    dto.EnsembleStd,
		GEFSCount:      dto.GEFSCount,
		ECMWFCount:     dto.ECMWFCount,
		ForecastHigh:   dto.ForecastHigh,
		BiasCorrection: dto.BiasCorrection,
	}, nil
}

// CollectActual tells the sidecar to fetch and persist the observed high
// temperature for a resolved (city, date) market, returning the value so
// the caller can mirror it into its own ledger.
func (c *Client) CollectActual(ctx context.Context, city, date string) (float64, error) {
	url := fmt.Sprintf("%s/weather/collect_actual", c.baseURL)
	body := map[string]string{"city": city, "date": date}
	var resp struct {
		ActualHigh float64 `json:"actual_high"`
	}
	if err := c.http.DoJSON(ctx, httpx.Request{Method: "POST", URL: url, Body: body}, &resp); err != nil {
		return 0, fmt.Errorf("weather: collect actual: %w", err)
	}
	return resp.ActualHigh, nil
}

// Calibrate triggers the sidecar's daily per-city bias recalibration
// job against all outstanding actuals.
func (c *Client) Calibrate(ctx context.Context) error {
	url := fmt.Sprintf("%s/weather/calibrate", c.baseURL)
	if err := c.http.DoJSON(ctx, httpx.Request{Method: "POST", URL: url}, nil); err != nil {
		return fmt.Errorf("weather: calibrate: %w", err)
	}
	return nil
}
