package weathercron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLedger(t *testing.T) *ledger.SQLite {
	t.Helper()
	db, err := ledger.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

type fakeWeather struct {
	actuals      map[string]float64
	collectErr   error
	calibrated   bool
	calibrateErr error
}

func (f *fakeWeather) CollectActual(ctx context.Context, city, date string) (float64, error) {
	if f.collectErr != nil {
		return 0, f.collectErr
	}
	return f.actuals[city+"|"+date], nil
}

func (f *fakeWeather) Calibrate(ctx context.Context) error {
	f.calibrated = true
	return f.calibrateErr
}

func TestRunCollectsPendingActualsAndCalibrates(t *testing.T) {
	db := openLedger(t)
	ctx := context.Background()
	require.NoError(t, db.EnsureSeeded(ctx, 100.0))

	require.NoError(t, db.InsertWeatherSnapshot(ctx, domain.WeatherSnapshot{
		CycleNumber: 1, City: "NYC", ForecastDate: "2026-07-01",
		EnsembleMean: 85.0, EnsembleStd: 2.0,
	}))

	weather := &fakeWeather{actuals: map[string]float64{"NYC|2026-07-01": 87.5}}
	job := NewJob(db, weather)
	require.NoError(t, job.Run(ctx))

	assert.True(t, weather.calibrated)
	actuals, err := db.GetWeatherActualsSince(ctx, 30)
	require.NoError(t, err)
	require.Len(t, actuals, 1)
	assert.Equal(t, "NYC", actuals[0].City)
	assert.Equal(t, 87.5, actuals[0].ActualHigh)
}

func TestRunSkipsAlreadyCollectedActuals(t *testing.T) {
	db := openLedger(t)
	ctx := context.Background()
	require.NoError(t, db.EnsureSeeded(ctx, 100.0))

	require.NoError(t, db.InsertWeatherSnapshot(ctx, domain.WeatherSnapshot{
		CycleNumber: 1, City: "NYC", ForecastDate: "2026-07-01",
	}))
	require.NoError(t, db.RecordWeatherActual(ctx, domain.WeatherActual{
		City: "NYC", ForecastDate: "2026-07-01", ActualHigh: 90.0,
	}))

	weather := &fakeWeather{actuals: map[string]float64{"NYC|2026-07-01": 999.0}}
	job := NewJob(db, weather)
	require.NoError(t, job.Run(ctx))

	actuals, err := db.GetWeatherActualsSince(ctx, 30)
	require.NoError(t, err)
	require.Len(t, actuals, 1)
	assert.Equal(t, 90.0, actuals[0].ActualHigh, "already-collected actual must not be overwritten")
}

func TestRunContinuesPastOneFailedCollection(t *testing.T) {
	db := openLedger(t)
	ctx := context.Background()
	require.NoError(t, db.EnsureSeeded(ctx, 100.0))

	require.NoError(t, db.InsertWeatherSnapshot(ctx, domain.WeatherSnapshot{
		CycleNumber: 1, City: "NYC", ForecastDate: "2026-07-01",
	}))

	weather := &fakeWeather{collectErr: errors.New("fake: sidecar unreachable")}
	job := NewJob(db, weather)
	require.NoError(t, job.Run(ctx), "a failed collection must not abort the round")
	assert.True(t, weather.calibrated, "calibration still runs even if nothing was collected")
}

func TestRunSkipsUnresolvedSnapshots(t *testing.T) {
	db := openLedger(t)
	ctx := context.Background()
	require.NoError(t, db.EnsureSeeded(ctx, 100.0))

	future := time.Now().UTC().AddDate(0, 0, 30).Format("2006-01-02")
	require.NoError(t, db.InsertWeatherSnapshot(ctx, domain.WeatherSnapshot{
		CycleNumber: 1, City: "NYC", ForecastDate: future,
	}))

	weather := &fakeWeather{}
	job := NewJob(db, weather)
	require.NoError(t, job.Run(ctx))

	actuals, err := db.GetWeatherActualsSince(ctx, 60)
	require.NoError(t, err)
	assert.Empty(t, actuals, "a market that has not resolved yet must not be collected")
}

func TestRunPropagatesCalibrateError(t *testing.T) {
	db := openLedger(t)
	ctx := context.Background()
	require.NoError(t, db.EnsureSeeded(ctx, 100.0))

	require.NoError(t, db.InsertWeatherSnapshot(ctx, domain.WeatherSnapshot{
		CycleNumber: 1, City: "NYC", ForecastDate: "2026-07-01",
	}))

	weather := &fakeWeather{
		actuals:      map[string]float64{"NYC|2026-07-01": 80.0},
		calibrateErr: errors.New("fake: calibrate endpoint down"),
	}
	job := NewJob(db, weather)
	assert.Error(t, job.Run(ctx))
}

func TestSchedulerRegisterRunsJobOnSchedule(t *testing.T) {
	db := openLedger(t)
	ctx := context.Background()
	require.NoError(t, db.EnsureSeeded(ctx, 100.0))
	require.NoError(t, db.InsertWeatherSnapshot(ctx, domain.WeatherSnapshot{
		CycleNumber: 1, City: "NYC", ForecastDate: "2026-07-01",
	}))

	weather := &fakeWeather{actuals: map[string]float64{"NYC|2026-07-01": 80.0}}
	job := NewJob(db, weather)
	s := NewScheduler(job)
	require.NoError(t, s.Register("@every 50ms"))

	s.Start()
	time.Sleep(150 * time.Millisecond)
	s.Stop()

	assert.True(t, weather.calibrated)
}
