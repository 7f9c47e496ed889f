package ledger

// schema.go — the twelve-table persistent store. Migrations are idempotent
// (CREATE TABLE IF NOT EXISTS only; there are no ADD COLUMN migrations),
// matching the teacher's own CREATE TABLE IF NOT EXISTS migration style in
// internal/adapters/storage/sqlite.go, generalized to the agent's schema.

const schema = `
CREATE TABLE IF NOT EXISTS markets (
	condition_id TEXT PRIMARY KEY,
	question     TEXT NOT NULL,
	slug         TEXT,
	yes_token_id TEXT,
	no_token_id  TEXT,
	volume_24h   REAL NOT NULL DEFAULT 0,
	liquidity    REAL NOT NULL DEFAULT 0,
	end_date     DATETIME,
	active       INTEGER NOT NULL DEFAULT 1,
	closed       INTEGER NOT NULL DEFAULT 0,
	updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
	id           TEXT PRIMARY KEY,
	condition_id TEXT NOT NULL REFERENCES markets(condition_id),
	token_id     TEXT NOT NULL,
	side         TEXT NOT NULL,
	price        REAL NOT NULL,
	size         REAL NOT NULL,
	status       TEXT NOT NULL,
	simulated    INTEGER NOT NULL,
	entry_fee    REAL NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_condition ON trades(condition_id);

CREATE TABLE IF NOT EXISTS positions (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	condition_id          TEXT NOT NULL REFERENCES markets(condition_id),
	token_id              TEXT NOT NULL,
	question              TEXT,
	side                  TEXT NOT NULL,
	entry_price           REAL NOT NULL,
	size                  REAL NOT NULL,
	status                TEXT NOT NULL,
	current_price         REAL NOT NULL DEFAULT 0,
	unrealized_pnl        REAL NOT NULL DEFAULT 0,
	realized_pnl          REAL NOT NULL DEFAULT 0,
	estimated_probability REAL,
	created_at            DATETIME NOT NULL,
	updated_at            DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_positions_open_unique
	ON positions(condition_id, side) WHERE status = 'open';

CREATE TABLE IF NOT EXISTS bankroll_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	kind          TEXT NOT NULL,
	category      TEXT NOT NULL DEFAULT 'general',
	amount        REAL NOT NULL,
	balance_after REAL NOT NULL,
	description   TEXT,
	cycle_number  INTEGER,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS cycle_log (
	cycle_number     INTEGER PRIMARY KEY,
	markets_scanned  INTEGER NOT NULL DEFAULT 0,
	markets_filtered INTEGER NOT NULL DEFAULT 0,
	trades_placed    INTEGER NOT NULL DEFAULT 0,
	api_cost_usd     REAL NOT NULL DEFAULT 0,
	bankroll_before  REAL NOT NULL,
	bankroll_after   REAL NOT NULL,
	created_at       DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS api_cost_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_number  INTEGER NOT NULL,
	condition_id  TEXT,
	model         TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL,
	output_tokens INTEGER NOT NULL,
	cost_usd      REAL NOT NULL,
	kind          TEXT NOT NULL,
	created_at    DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_api_cost_cycle ON api_cost_log(cycle_number);

CREATE TABLE IF NOT EXISTS peak_bankroll (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	balance    REAL NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS position_alerts (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	condition_id TEXT NOT NULL,
	kind         TEXT NOT NULL,
	details      TEXT,
	action_taken TEXT,
	cycle_number INTEGER NOT NULL,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS cycle_opportunities (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_number          INTEGER NOT NULL,
	condition_id          TEXT NOT NULL,
	question              TEXT,
	side                  TEXT NOT NULL,
	estimated_probability REAL NOT NULL,
	market_price          REAL NOT NULL,
	edge                  REAL NOT NULL,
	net_edge              REAL NOT NULL,
	confidence            REAL NOT NULL,
	data_quality          TEXT,
	reasoning             TEXT,
	analysis_cost_usd     REAL NOT NULL DEFAULT 0,
	status                TEXT NOT NULL,
	reject_reason         TEXT,
	created_at            DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_opps_cycle ON cycle_opportunities(cycle_number);

CREATE TABLE IF NOT EXISTS weather_snapshots (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	cycle_number  INTEGER NOT NULL,
	city          TEXT NOT NULL,
	forecast_date TEXT NOT NULL,
	ensemble_mean REAL NOT NULL,
	ensemble_std  REAL NOT NULL,
	gefs_count    INTEGER NOT NULL DEFAULT 0,
	ecmwf_count   INTEGER NOT NULL DEFAULT 0,
	buckets_json  TEXT,
	created_at    DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS weather_actuals (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	city          TEXT NOT NULL,
	forecast_date TEXT NOT NULL,
	actual_high   REAL NOT NULL,
	created_at    DATETIME NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_weather_actuals_unique
	ON weather_actuals(city, forecast_date);

CREATE TABLE IF NOT EXISTS weather_calibration (
	city         TEXT PRIMARY KEY,
	bias         REAL NOT NULL DEFAULT 0,
	sample_count INTEGER NOT NULL DEFAULT 0,
	updated_at   DATETIME NOT NULL
);
`
