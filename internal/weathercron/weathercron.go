// Package weathercron drives the daily weather recalibration job: collect
// the observed high for every resolved (city, date) pair the enrichment
// step snapshotted, then ask the sidecar to recompute its per-city bias.
//
// Grounded on original_source/weather_client.rs's collect_actual/calibrate
// endpoints (internal/adapters/weather wraps the HTTP calls); the schedule
// itself follows aristath-sentinel's robfig/cron/v3 scheduler idiom.
package weathercron

import (
	"context"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/robfig/cron/v3"
)

// Ledger is the subset of ports.Ledger the job needs.
type Ledger interface {
	GetPendingWeatherActuals(ctx context.Context, asOf time.Time) ([]domain.WeatherMarketInfo, error)
	RecordWeatherActual(ctx context.Context, a domain.WeatherActual) error
}

// WeatherClient is the subset of ports.WeatherClient the job needs.
type WeatherClient interface {
	CollectActual(ctx context.Context, city, date string) (float64, error)
	Calibrate(ctx context.Context) error
}

// Job runs one round of actual collection followed by calibration.
type Job struct {
	ledger  Ledger
	weather WeatherClient
}

func NewJob(ledger Ledger, weather WeatherClient) *Job {
	return &Job{ledger: ledger, weather: weather}
}

// Run collects actuals for every pending (city, date) pair and then
// triggers calibration. A failure to collect one pair is logged and
// skipped rather than aborting the whole round, since later pairs are
// independent and calibration still benefits from whatever actuals did
// land.
func (j *Job) Run(ctx context.Context) error {
	pending, err := j.ledger.GetPendingWeatherActuals(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		slog.Debug("weathercron: no pending actuals")
		return nil
	}

	collected := 0
	for _, info := range pending {
		actualHigh, err := j.weather.CollectActual(ctx, info.City, info.Date)
		if err != nil {
			slog.Warn("weathercron: collect actual failed", "city", info.City, "date", info.Date, "err", err)
			continue
		}
		if err := j.ledger.RecordWeatherActual(ctx, domain.WeatherActual{
			City: info.City, ForecastDate: info.Date, ActualHigh: actualHigh,
		}); err != nil {
			slog.Warn("weathercron: record actual failed", "city", info.City, "date", info.Date, "err", err)
			continue
		}
		collected++
	}
	slog.Info("weathercron: collected actuals", "pending", len(pending), "collected", collected)

	if err := j.weather.Calibrate(ctx); err != nil {
		return err
	}
	slog.Info("weathercron: calibration triggered")
	return nil
}

// Scheduler wraps a cron.Cron running the calibration Job on a configured
// schedule. Start/Stop mirror cron.Cron's own lifecycle.
type Scheduler struct {
	cron *cron.Cron
	job  *Job
}

func NewScheduler(job *Job) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		job:  job,
	}
}

// Register adds the calibration job under the given schedule expression
// (six-field, seconds-first, e.g. "0 0 7 * * *" for daily at 07:00).
func (s *Scheduler) Register(schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := s.job.Run(ctx); err != nil {
			slog.Error("weathercron: run failed", "err", err)
		}
	})
	return err
}

func (s *Scheduler) Start() { s.cron.Start() }

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
