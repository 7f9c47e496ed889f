// Package ledger implements the agent's single source of truth: an
// append-only bankroll log plus materialized tables for markets, trades,
// positions, cycle summaries, API costs, peak bankroll, alerts, detected
// opportunities, and weather snapshots/actuals/calibration.
//
// Grounded on the teacher's internal/adapters/storage/sqlite.go
// (modernc.org/sqlite, single-writer discipline, ON CONFLICT DO UPDATE
// upserts) and original_source/db.rs (WAL pragma, idempotent CREATE TABLE
// IF NOT EXISTS migrations), expanded from the original's five tables to
// twelve. Every write is a single statement; no SQL transactions are used.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/alejandrodnm/polyagent/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLite implements ports.Ledger over a pure-Go SQLite connection.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (or reuses) the database at path, applying the schema and
// enabling WAL journaling so a crash mid-cycle cannot corrupt the ledger.
// Pass ":memory:" for an in-memory store (tests).
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &Error{"Open", fmt.Errorf("open %q: %w", path, err)}
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if path != ":memory:" {
		if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
			db.Close()
			return nil, &Error{"Open", fmt.Errorf("enable WAL: %w", err)}
		}
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		db.Close()
		return nil, &Error{"Open", fmt.Errorf("enable foreign keys: %w", err)}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &Error{"Open", fmt.Errorf("apply schema: %w", err)}
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// EnsureSeeded appends a seed entry of amount if the bankroll table is
// empty. Idempotent: a second call with any amount is a no-op.
func (s *SQLite) EnsureSeeded(ctx context.Context, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bankroll_log`).Scan(&count); err != nil {
		return &Error{"EnsureSeeded", err}
	}
	if count > 0 {
		return nil
	}
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bankroll_log (kind, category, amount, balance_after, description, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		domain.BankrollKindSeed, domain.CategoryGeneral, amount, amount, "Initial seed", now,
	)
	if err != nil {
		return &Error{"EnsureSeeded", err}
	}
	return nil
}

func (s *SQLite) UpsertMarket(ctx context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var endDate *time.Time
	if !m.EndDate.IsZero() {
		t := m.EndDate.UTC()
		endDate = &t
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO markets (condition_id, question, slug, yes_token_id, no_token_id,
			volume_24h, liquidity, end_date, active, closed, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(condition_id) DO UPDATE SET
			question   = excluded.question,
			volume_24h = excluded.volume_24h,
			liquidity  = excluded.liquidity,
			active     = excluded.active,
			closed     = excluded.closed,
			updated_at = excluded.updated_at
	`, m.ConditionID, m.Question, m.Slug, m.YesTokenID, m.NoTokenID,
		m.Volume24h, m.Liquidity, endDate, boolToInt(m.Active), boolToInt(m.Closed), time.Now().UTC())
	if err != nil {
		return &Error{"UpsertMarket", err}
	}
	return nil
}

func (s *SQLite) InsertTrade(ctx context.Context, t domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := t.CreatedAt.UTC()
	if t.CreatedAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trades (id, condition_id, token_id, side, price, size, status, simulated, entry_fee, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.ConditionID, t.TokenID, t.Side, t.Price, t.Size, t.Status, boolToInt(t.Simulated), t.EntryFee, createdAt)
	if err != nil {
		return &Error{"InsertTrade", err}
	}
	return nil
}

func (s *SQLite) UpsertPosition(ctx context.Context, conditionID, tokenID, question string, side domain.TradeSide, entryPrice, size float64, estimatedProbability *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()

	var oldEntry, oldSize float64
	err := s.db.QueryRowContext(ctx, `
		SELECT entry_price, size FROM positions
		WHERE condition_id = ? AND side = ? AND status = 'open'
	`, conditionID, side).Scan(&oldEntry, &oldSize)

	switch {
	case err == sql.ErrNoRows:
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO positions (condition_id, token_id, question, side, entry_price, size,
				status, current_price, unrealized_pnl, realized_pnl, estimated_probability, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 'open', ?, 0, 0, ?, ?, ?)
		`, conditionID, tokenID, question, side, entryPrice, size, entryPrice, estimatedProbability, now, now)
		if err != nil {
			return &Error{"UpsertPosition", err}
		}
		return nil
	case err != nil:
		return &Error{"UpsertPosition", err}
	}

	newSize := oldSize + size
	newEntry := (oldEntry*oldSize + entryPrice*size) / newSize

	_, err = s.db.ExecContext(ctx, `
		UPDATE positions SET entry_price = ?, size = ?,
			estimated_probability = COALESCE(?, estimated_probability), updated_at = ?
		WHERE condition_id = ? AND side = ? AND status = 'open'
	`, newEntry, newSize, estimatedProbability, now, conditionID, side)
	if err != nil {
		return &Error{"UpsertPosition", err}
	}
	return nil
}

func (s *SQLite) UpdatePositionPrice(ctx context.Context, conditionID string, side domain.TradeSide, currentPrice float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE positions
		SET current_price = ?,
		    unrealized_pnl = (? - entry_price) * size,
		    updated_at = ?
		WHERE condition_id = ? AND side = ? AND status = 'open'
	`, currentPrice, currentPrice, time.Now().UTC(), conditionID, side)
	if err != nil {
		return &Error{"UpdatePositionPrice", err}
	}
	return nil
}

func (s *SQLite) UpdatePositionEstimate(ctx context.Context, conditionID string, side domain.TradeSide, estimatedProbability float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE positions SET estimated_probability = ?, updated_at = ?
		WHERE condition_id = ? AND side = ? AND status = 'open'
	`, estimatedProbability, time.Now().UTC(), conditionID, side)
	if err != nil {
		return &Error{"UpdatePositionEstimate", err}
	}
	return nil
}

func (s *SQLite) ClosePosition(ctx context.Context, conditionID string, side domain.TradeSide, exitPrice float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entryPrice, size float64
	err := s.db.QueryRowContext(ctx, `
		SELECT entry_price, size FROM positions
		WHERE condition_id = ? AND side = ? AND status = 'open'
	`, conditionID, side).Scan(&entryPrice, &size)
	if err == sql.ErrNoRows {
		return 0, &Error{"ClosePosition", ErrNoOpenPosition}
	}
	if err != nil {
		return 0, &Error{"ClosePosition", err}
	}

	realized := (exitPrice - entryPrice) * size
	_, err = s.db.ExecContext(ctx, `
		UPDATE positions SET status = 'closed', realized_pnl = ?, unrealized_pnl = 0, updated_at = ?
		WHERE condition_id = ? AND side = ? AND status = 'open'
	`, realized, time.Now().UTC(), conditionID, side)
	if err != nil {
		return 0, &Error{"ClosePosition", err}
	}
	return realized, nil
}

func (s *SQLite) GetOpenPositions(ctx context.Context) ([]domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, condition_id, token_id, question, side, entry_price, size, status,
		       current_price, unrealized_pnl, realized_pnl, estimated_probability, created_at, updated_at
		FROM positions WHERE status = 'open'
	`)
	if err != nil {
		return nil, &Error{"GetOpenPositions", err}
	}
	defer rows.Close()

	var out []domain.Position
	for rows.Next() {
		var p domain.Position
		var question sql.NullString
		var est sql.NullFloat64
		if err := rows.Scan(&p.ID, &p.ConditionID, &p.TokenID, &question, &p.Side, &p.EntryPrice, &p.Size,
			&p.Status, &p.CurrentPrice, &p.UnrealizedPnL, &p.RealizedPnL, &est, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, &Error{"GetOpenPositions", err}
		}
		p.Question = question.String
		if est.Valid {
			v := est.Float64
			p.EstimatedProbability = &v
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *SQLite) HasOpenPosition(ctx context.Context, conditionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM positions WHERE condition_id = ? AND status = 'open'
	`, conditionID).Scan(&count)
	if err != nil {
		return false, &Error{"HasOpenPosition", err}
	}
	return count > 0, nil
}

func (s *SQLite) LogBankrollEntry(ctx context.Context, e domain.BankrollEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := e.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var cycle *int64
	if e.CycleNumber != 0 {
		cycle = &e.CycleNumber
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bankroll_log (kind, category, amount, balance_after, description, cycle_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.Kind, e.Category, e.Amount, e.BalanceAfter, e.Description, cycle, createdAt)
	if err != nil {
		return &Error{"LogBankrollEntry", err}
	}
	return nil
}

func (s *SQLite) GetCurrentBankroll(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var bal float64
	err := s.db.QueryRowContext(ctx, `
		SELECT balance_after FROM bankroll_log ORDER BY id DESC LIMIT 1
	`).Scan(&bal)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, &Error{"GetCurrentBankroll", err}
	}
	return bal, nil
}

func (s *SQLite) GetTotalExposure(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(entry_price * size) FROM positions WHERE status = 'open'
	`).Scan(&total)
	if err != nil {
		return 0, &Error{"GetTotalExposure", err}
	}
	return total.Float64, nil
}

func (s *SQLite) GetBankrollEntriesSince(ctx context.Context, category domain.BankrollCategory, since time.Time) ([]domain.BankrollEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, category, amount, balance_after, description, COALESCE(cycle_number, 0), created_at
		FROM bankroll_log WHERE category = ? AND created_at >= ? ORDER BY id ASC
	`, category, since)
	if err != nil {
		return nil, &Error{"GetBankrollEntriesSince", err}
	}
	defer rows.Close()

	var out []domain.BankrollEntry
	for rows.Next() {
		var e domain.BankrollEntry
		if err := rows.Scan(&e.ID, &e.Kind, &e.Category, &e.Amount, &e.BalanceAfter, &e.Description, &e.CycleNumber, &e.CreatedAt); err != nil {
			return nil, &Error{"GetBankrollEntriesSince", err}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) LogAPICost(ctx context.Context, r domain.APICostRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var conditionID *string
	if r.ConditionID != "" {
		conditionID = &r.ConditionID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO api_cost_log (cycle_number, condition_id, model, input_tokens, output_tokens, cost_usd, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, r.CycleNumber, conditionID, r.Model, r.InputTokens, r.OutputTokens, r.CostUSD, r.Kind, createdAt)
	if err != nil {
		return &Error{"LogAPICost", err}
	}
	return nil
}

func (s *SQLite) GetCycleAPICost(ctx context.Context, cycle int64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(cost_usd) FROM api_cost_log WHERE cycle_number = ?
	`, cycle).Scan(&total)
	if err != nil {
		return 0, &Error{"GetCycleAPICost", err}
	}
	return total.Float64, nil
}

func (s *SQLite) GetAPICostSince(ctx context.Context, hours float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-time.Duration(hours * float64(time.Hour)))
	var total sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT SUM(cost_usd) FROM api_cost_log WHERE created_at >= ?
	`, cutoff).Scan(&total)
	if err != nil {
		return 0, &Error{"GetAPICostSince", err}
	}
	return total.Float64, nil
}

func (s *SQLite) UpdatePeakBankroll(ctx context.Context, current float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var peak sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(balance) FROM peak_bankroll`).Scan(&peak)
	if err != nil {
		return 0, &Error{"UpdatePeakBankroll", err}
	}
	if !peak.Valid || current > peak.Float64 {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO peak_bankroll (balance, created_at) VALUES (?, ?)
		`, current, time.Now().UTC())
		if err != nil {
			return 0, &Error{"UpdatePeakBankroll", err}
		}
		return current, nil
	}
	return peak.Float64, nil
}

func (s *SQLite) LogPositionAlert(ctx context.Context, a domain.PositionAlert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO position_alerts (condition_id, kind, details, action_taken, cycle_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ConditionID, a.Kind, a.Details, a.ActionTaken, a.CycleNumber, time.Now().UTC())
	if err != nil {
		return &Error{"LogPositionAlert", err}
	}
	return nil
}

func (s *SQLite) InsertWeatherSnapshot(ctx context.Context, w domain.WeatherSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weather_snapshots (cycle_number, city, forecast_date, ensemble_mean, ensemble_std,
			gefs_count, ecmwf_count, buckets_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, w.CycleNumber, w.City, w.ForecastDate, w.EnsembleMean, w.EnsembleStd, w.GEFSCount, w.ECMWFCount, w.BucketsJSON, time.Now().UTC())
	if err != nil {
		return &Error{"InsertWeatherSnapshot", err}
	}
	return nil
}

// GetPendingWeatherActuals returns the distinct (city, forecast_date) pairs
// that were snapshotted during enrichment, have a forecast_date on or
// before asOf (so the market has resolved), and have no actual high
// recorded yet.
func (s *SQLite) GetPendingWeatherActuals(ctx context.Context, asOf time.Time) ([]domain.WeatherMarketInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT ws.city, ws.forecast_date
		FROM weather_snapshots ws
		LEFT JOIN weather_actuals wa ON wa.city = ws.city AND wa.forecast_date = ws.forecast_date
		WHERE wa.id IS NULL AND ws.forecast_date <= ?
		ORDER BY ws.forecast_date ASC
	`, asOf.Format("2006-01-02"))
	if err != nil {
		return nil, &Error{"GetPendingWeatherActuals", err}
	}
	defer rows.Close()

	var out []domain.WeatherMarketInfo
	for rows.Next() {
		var info domain.WeatherMarketInfo
		if err := rows.Scan(&info.City, &info.Date); err != nil {
			return nil, &Error{"GetPendingWeatherActuals", err}
		}
		out = append(out, info)
	}
	return out, rows.Err()
}

func (s *SQLite) InsertOpportunity(ctx context.Context, o domain.Opportunity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO cycle_opportunities (cycle_number, condition_id, question, side,
			estimated_probability, market_price, edge, net_edge, confidence, data_quality,
			reasoning, analysis_cost_usd, status, reject_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, o.CycleNumber, o.ConditionID, o.Question, o.Side, o.EstimatedProbability, o.MarketPrice,
		o.Edge, o.NetEdge, o.Confidence, o.DataQuality, o.Reasoning, o.AnalysisCostUSD,
		domain.OpportunityPending, nil, time.Now().UTC())
	if err != nil {
		return 0, &Error{"InsertOpportunity", err}
	}
	return res.LastInsertId()
}

func (s *SQLite) UpdateOpportunityStatus(ctx context.Context, id int64, status domain.OpportunityStatus, rejectReason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var reason *string
	if rejectReason != "" {
		reason = &rejectReason
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE cycle_opportunities SET status = ?, reject_reason = ? WHERE id = ?
	`, status, reason, id)
	if err != nil {
		return &Error{"UpdateOpportunityStatus", err}
	}
	return nil
}

func (s *SQLite) RecordWeatherActual(ctx context.Context, a domain.WeatherActual) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weather_actuals (city, forecast_date, actual_high, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(city, forecast_date) DO UPDATE SET actual_high = excluded.actual_high
	`, a.City, a.ForecastDate, a.ActualHigh, time.Now().UTC())
	if err != nil {
		return &Error{"RecordWeatherActual", err}
	}
	return nil
}

func (s *SQLite) GetWeatherActualsSince(ctx context.Context, days int) ([]domain.WeatherActual, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, city, forecast_date, actual_high, created_at FROM weather_actuals WHERE created_at >= ?
	`, cutoff)
	if err != nil {
		return nil, &Error{"GetWeatherActualsSince", err}
	}
	defer rows.Close()

	var out []domain.WeatherActual
	for rows.Next() {
		var a domain.WeatherActual
		if err := rows.Scan(&a.ID, &a.City, &a.ForecastDate, &a.ActualHigh, &a.CreatedAt); err != nil {
			return nil, &Error{"GetWeatherActualsSince", err}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLite) UpsertWeatherCalibration(ctx context.Context, c domain.WeatherCalibration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO weather_calibration (city, bias, sample_count, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(city) DO UPDATE SET bias = excluded.bias, sample_count = excluded.sample_count, updated_at = excluded.updated_at
	`, c.City, c.Bias, c.SampleCount, time.Now().UTC())
	if err != nil {
		return &Error{"UpsertWeatherCalibration", err}
	}
	return nil
}

func (s *SQLite) GetWeatherCalibration(ctx context.Context, city string) (domain.WeatherCalibration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var c domain.WeatherCalibration
	err := s.db.QueryRowContext(ctx, `
		SELECT city, bias, sample_count, updated_at FROM weather_calibration WHERE city = ?
	`, city).Scan(&c.City, &c.Bias, &c.SampleCount, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return domain.WeatherCalibration{}, false, nil
	}
	if err != nil {
		return domain.WeatherCalibration{}, false, &Error{"GetWeatherCalibration", err}
	}
	return c, true, nil
}

func (s *SQLite) InsertCycleSummary(ctx context.Context, c domain.CycleSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycle_log (cycle_number, markets_scanned, markets_filtered, trades_placed,
			api_cost_usd, bankroll_before, bankroll_after, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, c.CycleNumber, c.MarketsScanned, c.MarketsFiltered, c.TradesPlaced, c.APICostUSD,
		c.BankrollBefore, c.BankrollAfter, time.Now().UTC())
	if err != nil {
		return &Error{"InsertCycleSummary", err}
	}
	return nil
}

func (s *SQLite) NextCycleNumber(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var max sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(cycle_number) FROM cycle_log`).Scan(&max)
	if err != nil {
		return 0, &Error{"NextCycleNumber", err}
	}
	if !max.Valid {
		return 1, nil
	}
	return max.Int64 + 1, nil
}

func (s *SQLite) GetRecentTrades(ctx context.Context, limit int) ([]domain.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, condition_id, token_id, side, price, size, status, simulated, entry_fee, created_at
		FROM trades ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, &Error{"GetRecentTrades", err}
	}
	defer rows.Close()

	var out []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var sim int
		if err := rows.Scan(&t.ID, &t.ConditionID, &t.TokenID, &t.Side, &t.Price, &t.Size, &t.Status, &sim, &t.EntryFee, &t.CreatedAt); err != nil {
			return nil, &Error{"GetRecentTrades", err}
		}
		t.Simulated = sim == 1
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *SQLite) GetRecentOpportunities(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, cycle_number, condition_id, question, side, estimated_probability, market_price,
		       edge, net_edge, confidence, COALESCE(data_quality,''), COALESCE(reasoning,''),
		       analysis_cost_usd, status, COALESCE(reject_reason,''), created_at
		FROM cycle_opportunities ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, &Error{"GetRecentOpportunities", err}
	}
	defer rows.Close()

	var out []domain.Opportunity
	for rows.Next() {
		var o domain.Opportunity
		if err := rows.Scan(&o.ID, &o.CycleNumber, &o.ConditionID, &o.Question, &o.Side,
			&o.EstimatedProbability, &o.MarketPrice, &o.Edge, &o.NetEdge, &o.Confidence,
			&o.DataQuality, &o.Reasoning, &o.AnalysisCostUSD, &o.Status, &o.RejectReason, &o.CreatedAt); err != nil {
			return nil, &Error{"GetRecentOpportunities", err}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLite) CountTrades(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&n); err != nil {
		return 0, &Error{"CountTrades", err}
	}
	return n, nil
}

func (s *SQLite) CountCompletedCycles(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(cycle_number) FROM cycle_log`).Scan(&n); err != nil {
		return 0, &Error{"CountCompletedCycles", err}
	}
	return n.Int64, nil
}

func (s *SQLite) GetInitialSeed(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var amount float64
	err := s.db.QueryRowContext(ctx, `
		SELECT amount FROM bankroll_log WHERE kind = ? ORDER BY id ASC LIMIT 1
	`, domain.BankrollKindSeed).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, &Error{"GetInitialSeed", err}
	}
	return amount, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
