// Package config loads the agent's configuration purely from environment
// variables (optionally seeded from a .env file), per spec.md §6's table.
//
// Grounded on original_source/config.rs's Config::from_env per-field
// parse-with-default pattern, translated to the teacher's
// applyEnvOverrides/setDefaults idiom in config/config.go.
package config

import (
	"embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/polyagent/internal/weatherparse"
)

//go:embed citymap.yaml
var embeddedCityMap embed.FS

// TradingMode selects whether the executor simulates fills or places real
// orders.
type TradingMode string

const (
	ModePaper TradingMode = "paper"
	ModeLive  TradingMode = "live"
)

func parseTradingMode(s string) (TradingMode, error) {
	switch s {
	case "paper", "Paper", "PAPER":
		return ModePaper, nil
	case "live", "Live", "LIVE":
		return ModeLive, nil
	default:
		return "", fmt.Errorf("invalid trading mode %q: must be 'paper' or 'live'", s)
	}
}

// Config is every tunable the agent reads at startup. Field grouping
// mirrors spec.md §6's table.
type Config struct {
	TradingMode TradingMode

	// External service URLs.
	GammaAPIURL string
	ClobAPIURL  string
	DataAPIURL  string

	// Weather sidecar.
	SidecarEnabled             bool
	SidecarCommand             string
	SidecarArgs                []string
	SidecarHost                string
	SidecarPort                int
	SidecarStartupTimeoutSecs  int
	SidecarHealthIntervalMs    int
	WeatherCalibrationCron     string

	// Scanner.
	ScannerPageSize           int
	ScannerMaxMarkets         int
	ScannerMinLiquidity       float64
	ScannerMinVolume          float64
	ScannerRequestTimeoutSecs int

	// Storage.
	DatabasePath string

	// LLM / estimator.
	AnthropicAPIKey           string
	AnthropicAPIURL           string
	HaikuModel                string
	SonnetModel               string
	MaxAPICostPerCycle        float64
	EstimatorRequestTimeoutSecs int
	EstimatorMaxRetries       int

	InitialBankroll float64

	// Edge detector.
	MinEdgeThreshold float64
	MinConfidence    float64

	// Sizer.
	KellyFraction       float64
	MaxPositionPct      float64
	MaxTotalExposurePct float64
	TradingFeeRate      float64

	// Position manager.
	StopLossPct                 float64
	TakeProfitPct                float64
	MinExitEdge                  float64
	VolumeSpikeFactor            float64
	WhaleMoveThreshold           float64
	MaxCorrelatedExposurePct     float64
	MaxTotalWeatherExposurePct   float64
	WeatherDailyLossLimit        float64

	// Drawdown circuit breaker.
	DrawdownCircuitBreakerPct float64
	DrawdownSizingReduction   float64

	// Adaptive cycle pacing.
	CycleFrequencyHighSecs uint64
	CycleFrequencyLowSecs  uint64
	LowBankrollThreshold   float64
	MaxCycles              int64

	DeathExitCode int

	// Logging.
	LogLevel  string
	LogFormat string
}

// Load reads .env (ignored if missing, matching dotenvy's behavior) then
// every recognized env var, applying spec.md §6's defaults and failing
// fast on a malformed numeric value.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var errs []error
	cfg := &Config{
		GammaAPIURL: envOr("GAMMA_API_URL", "https://gamma-api.polymarket.com"),
		ClobAPIURL:  envOr("CLOB_API_URL", "https://clob.polymarket.com"),
		DataAPIURL:  envOr("DATA_API_URL", "https://data-api.polymarket.com"),

		SidecarCommand:         envOr("SIDECAR_COMMAND", "python3"),
		SidecarHost:            envOr("SIDECAR_HOST", "127.0.0.1"),
		WeatherCalibrationCron: envOr("WEATHER_CALIBRATION_CRON", "0 0 7 * * *"),

		DatabasePath: envOr("DATABASE_PATH", "data/polymarket-agent.db"),

		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicAPIURL: envOr("ANTHROPIC_API_URL", "https://api.anthropic.com"),
		HaikuModel:      envOr("HAIKU_MODEL", "claude-haiku-4-5-20251001"),
		SonnetModel:     envOr("SONNET_MODEL", "claude-sonnet-4-5-20250929"),

		LogLevel:  envOr("LOG_LEVEL", "info"),
		LogFormat: envOr("LOG_FORMAT", "text"),
	}

	mode, err := parseTradingMode(envOr("TRADING_MODE", "paper"))
	errs = append(errs, wrapErr("TRADING_MODE", err))
	cfg.TradingMode = mode

	cfg.SidecarEnabled = parseBoolDefault(&errs, "WEATHER_SIDECAR_ENABLED", false)
	cfg.SidecarArgs = strings.Fields(envOr("SIDECAR_ARGS", "sidecar/server.py"))
	cfg.SidecarPort = parseIntDefault(&errs, "SIDECAR_PORT", 9090)
	cfg.SidecarStartupTimeoutSecs = parseIntDefault(&errs, "SIDECAR_STARTUP_TIMEOUT_SECS", 30)
	cfg.SidecarHealthIntervalMs = parseIntDefault(&errs, "SIDECAR_HEALTH_INTERVAL_MS", 500)

	cfg.ScannerPageSize = parseIntDefault(&errs, "SCANNER_PAGE_SIZE", 50)
	cfg.ScannerMaxMarkets = parseIntDefault(&errs, "SCANNER_MAX_MARKETS", 500)
	cfg.ScannerMinLiquidity = parseFloatDefault(&errs, "SCANNER_MIN_LIQUIDITY", 500.0)
	cfg.ScannerMinVolume = parseFloatDefault(&errs, "SCANNER_MIN_VOLUME", 1000.0)
	cfg.ScannerRequestTimeoutSecs = parseIntDefault(&errs, "SCANNER_REQUEST_TIMEOUT_SECS", 15)

	cfg.MaxAPICostPerCycle = parseFloatDefault(&errs, "MAX_API_COST_PER_CYCLE", 0.50)
	cfg.EstimatorRequestTimeoutSecs = parseIntDefault(&errs, "ESTIMATOR_REQUEST_TIMEOUT_SECS", 30)
	cfg.EstimatorMaxRetries = parseIntDefault(&errs, "ESTIMATOR_MAX_RETRIES", 2)

	cfg.InitialBankroll = parseFloatDefault(&errs, "INITIAL_BANKROLL", 100.0)

	cfg.MinEdgeThreshold = parseFloatDefault(&errs, "MIN_EDGE_THRESHOLD", 0.08)
	cfg.MinConfidence = parseFloatDefault(&errs, "MIN_CONFIDENCE", 0.50)

	cfg.KellyFraction = parseFloatDefault(&errs, "KELLY_FRACTION", 0.5)
	cfg.MaxPositionPct = parseFloatDefault(&errs, "MAX_POSITION_PCT", 0.10)
	cfg.MaxTotalExposurePct = parseFloatDefault(&errs, "MAX_TOTAL_EXPOSURE_PCT", 0.60)
	cfg.TradingFeeRate = parseFloatDefault(&errs, "TRADING_FEE_RATE", 0.02)

	cfg.StopLossPct = parseFloatDefault(&errs, "STOP_LOSS_PCT", 0.15)
	cfg.TakeProfitPct = parseFloatDefault(&errs, "TAKE_PROFIT_PCT", 0.90)
	cfg.MinExitEdge = parseFloatDefault(&errs, "MIN_EXIT_EDGE", 0.02)
	cfg.VolumeSpikeFactor = parseFloatDefault(&errs, "VOLUME_SPIKE_FACTOR", 3.0)
	cfg.WhaleMoveThreshold = parseFloatDefault(&errs, "WHALE_MOVE_THRESHOLD", 5000.0)
	cfg.MaxCorrelatedExposurePct = parseFloatDefault(&errs, "MAX_CORRELATED_EXPOSURE_PCT", 0.10)
	cfg.MaxTotalWeatherExposurePct = parseFloatDefault(&errs, "MAX_TOTAL_WEATHER_EXPOSURE_PCT", 0.25)
	cfg.WeatherDailyLossLimit = parseFloatDefault(&errs, "WEATHER_DAILY_LOSS_LIMIT", 10.0)

	cfg.DrawdownCircuitBreakerPct = parseFloatDefault(&errs, "DRAWDOWN_CIRCUIT_BREAKER_PCT", 0.30)
	cfg.DrawdownSizingReduction = parseFloatDefault(&errs, "DRAWDOWN_SIZING_REDUCTION", 0.50)

	cfg.CycleFrequencyHighSecs = uint64(parseIntDefault(&errs, "CYCLE_FREQUENCY_HIGH_SECS", 600))
	cfg.CycleFrequencyLowSecs = uint64(parseIntDefault(&errs, "CYCLE_FREQUENCY_LOW_SECS", 1800))
	cfg.LowBankrollThreshold = parseFloatDefault(&errs, "LOW_BANKROLL_THRESHOLD", 200.0)
	cfg.MaxCycles = int64(parseIntDefault(&errs, "MAX_CYCLES", 0))

	cfg.DeathExitCode = parseIntDefault(&errs, "DEATH_EXIT_CODE", 1)

	for _, e := range errs {
		if e != nil {
			return nil, e
		}
	}

	return cfg, nil
}

// SidecarURL is the base URL of the auxiliary weather process.
func (c *Config) SidecarURL() string {
	return fmt.Sprintf("http://%s:%d", c.SidecarHost, c.SidecarPort)
}

func (c *Config) SidecarHealthInterval() time.Duration {
	return time.Duration(c.SidecarHealthIntervalMs) * time.Millisecond
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseIntDefault(errs *[]error, key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("parse %s: %w", key, err))
		return fallback
	}
	return n
}

func parseBoolDefault(errs *[]error, key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("parse %s: %w", key, err))
		return fallback
	}
	return b
}

func parseFloatDefault(errs *[]error, key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("parse %s: %w", key, err))
		return fallback
	}
	return f
}

func wrapErr(key string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("parse %s: %w", key, err)
}

// LoadCityPatterns parses the embedded citymap.yaml and installs it as
// weatherparse's city lookup table, so an operator can extend city
// coverage by editing the YAML asset without touching Go code (the file
// is embedded at build time; a rebuild is still required to pick up
// edits, but no code review is).
func LoadCityPatterns() error {
	data, err := embeddedCityMap.ReadFile("citymap.yaml")
	if err != nil {
		return fmt.Errorf("config: read embedded citymap.yaml: %w", err)
	}
	var patterns []weatherparse.CityPattern
	if err := yaml.Unmarshal(data, &patterns); err != nil {
		return fmt.Errorf("config: parse citymap.yaml: %w", err)
	}
	weatherparse.SetCityPatterns(patterns)
	return nil
}
