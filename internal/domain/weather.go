package domain

import "time"

// BucketProbability is the model's probability mass for one temperature
// bucket.
type BucketProbability struct {
	BucketLabel string
	Lower       float64
	Upper       float64
	Probability float64
}

// WeatherProbabilities is the full response from the weather sidecar for a
// single (city, date) pair.
type WeatherProbabilities struct {
	City          string
	StationICAO   string
	ForecastDate  string
	Buckets       []BucketProbability
	EnsembleMean  float64
	EnsembleStd   float64
	GEFSCount     int
	ECMWFCount    int
	ForecastHigh  *float64 // optional NWS point forecast anchor
	BiasCorrection *float64
}

// WeatherSnapshot is an append-only informational row recorded once per
// (cycle, city, date) the enrichment step touches.
type WeatherSnapshot struct {
	ID           int64
	CycleNumber  int64
	City         string
	ForecastDate string
	EnsembleMean float64
	EnsembleStd  float64
	GEFSCount    int
	ECMWFCount   int
	BucketsJSON  string
	CreatedAt    time.Time
}

// WeatherMarketInfo is the result of parsing a Polymarket weather question.
type WeatherMarketInfo struct {
	City        string
	Date        string
	BucketLabel string
	BucketLower float64
	BucketUpper float64
}

// WeatherActual is one observed high temperature for a (city, date),
// collected the day after resolution to feed the daily calibration job.
type WeatherActual struct {
	ID           int64
	City         string
	ForecastDate string
	ActualHigh   float64
	CreatedAt    time.Time
}

// WeatherCalibration is the running per-city bias correction learned from
// WeatherActual history.
type WeatherCalibration struct {
	City        string
	Bias        float64
	SampleCount int64
	UpdatedAt   time.Time
}
