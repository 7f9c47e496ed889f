// Command agent runs the autonomous trading loop: load config, open the
// ledger, wire every adapter and domain component, then drive the
// controller's cycle loop until it dies, is cancelled, or hits its
// configured cycle cap.
//
// Grounded on the teacher's cmd/scanner/main.go wiring shape.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/polyagent/internal/accountant"
	"github.com/alejandrodnm/polyagent/internal/adapters/catalog"
	"github.com/alejandrodnm/polyagent/internal/adapters/llm"
	"github.com/alejandrodnm/polyagent/internal/adapters/orderservice"
	"github.com/alejandrodnm/polyagent/internal/adapters/quote"
	"github.com/alejandrodnm/polyagent/internal/adapters/weather"
	"github.com/alejandrodnm/polyagent/internal/config"
	"github.com/alejandrodnm/polyagent/internal/controller"
	"github.com/alejandrodnm/polyagent/internal/domain"
	"github.com/alejandrodnm/polyagent/internal/edgedetector"
	"github.com/alejandrodnm/polyagent/internal/estimator"
	"github.com/alejandrodnm/polyagent/internal/ledger"
	"github.com/alejandrodnm/polyagent/internal/logging"
	"github.com/alejandrodnm/polyagent/internal/positionmanager"
	"github.com/alejandrodnm/polyagent/internal/weathercron"
)

func main() {
	statusPort := flag.Int("status-port", 8090, "port for the read-only status/metrics server (0 disables it)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("agent: load config", "err", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := config.LoadCityPatterns(); err != nil {
		slog.Error("agent: load city patterns", "err", err)
		os.Exit(1)
	}

	slog.Info("agent starting",
		"trading_mode", cfg.TradingMode,
		"database", cfg.DatabasePath,
		"max_cycles", cfg.MaxCycles,
	)

	db, err := ledger.Open(cfg.DatabasePath)
	if err != nil {
		slog.Error("agent: open ledger", "err", err, "path", cfg.DatabasePath)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := db.EnsureSeeded(ctx, cfg.InitialBankroll); err != nil {
		slog.Error("agent: seed bankroll", "err", err)
		os.Exit(1)
	}

	var sidecar *controller.Sidecar
	var weatherClient *weather.Client
	if cfg.SidecarEnabled {
		sidecar, err = controller.SpawnSidecar(ctx, cfg.SidecarCommand, cfg.SidecarArgs, cfg.SidecarPort,
			string(cfg.TradingMode), time.Duration(cfg.SidecarStartupTimeoutSecs)*time.Second, cfg.SidecarHealthInterval())
		if err != nil {
			slog.Error("agent: spawn weather sidecar", "err", err)
			os.Exit(1)
		}
		defer sidecar.Shutdown()
		weatherClient = weather.New(cfg.SidecarURL(), time.Duration(cfg.EstimatorRequestTimeoutSecs)*time.Second, cfg.EstimatorMaxRetries)

		cronJob := weathercron.NewJob(db, weatherClient)
		scheduler := weathercron.NewScheduler(cronJob)
		if err := scheduler.Register(cfg.WeatherCalibrationCron); err != nil {
			slog.Error("agent: register weather calibration cron", "err", err)
			os.Exit(1)
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	catalogClient := catalog.New(cfg.GammaAPIURL, time.Duration(cfg.ScannerRequestTimeoutSecs)*time.Second, cfg.ScannerPageSize)
	quoteClient := quote.New(cfg.ClobAPIURL, time.Duration(cfg.ScannerRequestTimeoutSecs)*time.Second, cfg.EstimatorMaxRetries)
	llmClient := llm.New(cfg.AnthropicAPIURL, cfg.AnthropicAPIKey, time.Duration(cfg.EstimatorRequestTimeoutSecs)*time.Second)

	var orderSvc *orderservice.Client
	if cfg.TradingMode == config.ModeLive {
		orderSvc = orderservice.New(cfg.ClobAPIURL, time.Duration(cfg.ScannerRequestTimeoutSecs)*time.Second)
	}

	est := estimator.New(llmClient, cfg.HaikuModel, cfg.SonnetModel)
	detector := edgedetector.New(cfg.MinEdgeThreshold, cfg.TradingFeeRate)
	acc := accountant.New(cfg.LowBankrollThreshold)
	posManager := positionmanager.New(cfg.StopLossPct, cfg.TakeProfitPct, cfg.MinExitEdge,
		cfg.VolumeSpikeFactor, cfg.WhaleMoveThreshold, cfg.MaxCorrelatedExposurePct, cfg.MaxTotalWeatherExposurePct)

	executorMode := domain.ModePaper
	if cfg.TradingMode == config.ModeLive {
		executorMode = domain.ModeLive
	}
	executor := controller.NewExecutor(executorMode, orderSvc, cfg.TradingFeeRate)

	ctrl := controller.New(db, catalogClient, quoteClient, weatherClient, est, detector, acc, posManager, executor, controller.Config{
		MinLiquidity: cfg.ScannerMinLiquidity, MinVolume: cfg.ScannerMinVolume,
		MaxAPICostPerCycle: cfg.MaxAPICostPerCycle,
		KellyFraction:      cfg.KellyFraction, MaxPositionPct: cfg.MaxPositionPct,
		MaxTotalExposurePct: cfg.MaxTotalExposurePct, TradingFeeRate: cfg.TradingFeeRate,
		MaxCorrelatedExposurePct: cfg.MaxCorrelatedExposurePct, MaxTotalWeatherExposurePct: cfg.MaxTotalWeatherExposurePct,
		WeatherDailyLossLimit:     cfg.WeatherDailyLossLimit,
		DrawdownCircuitBreakerPct: cfg.DrawdownCircuitBreakerPct, DrawdownSizingReduction: cfg.DrawdownSizingReduction,
		CycleFrequencyHighSecs: cfg.CycleFrequencyHighSecs, CycleFrequencyLowSecs: cfg.CycleFrequencyLowSecs,
		LowBankrollThreshold: cfg.LowBankrollThreshold,
		MaxCycles:            cfg.MaxCycles, DeathExitCode: cfg.DeathExitCode,
	})

	if *statusPort != 0 {
		status := newStatusServer(db, *statusPort)
		go status.Run(ctx)
	}

	if err := ctrl.Run(ctx); err != nil {
		// os.Exit below skips deferred calls, so stop the sidecar here.
		if sidecar != nil {
			sidecar.Shutdown()
		}
		var death *controller.DeathError
		if errors.As(err, &death) {
			slog.Error("agent: bankroll depleted, stopping", "exit_code", death.ExitCode)
			os.Exit(death.ExitCode)
		}
		slog.Error("agent: cycle loop failed", "err", err)
		os.Exit(1)
	}

	slog.Info("agent stopped cleanly")
}
