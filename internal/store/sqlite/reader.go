package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"bollinger-backtest/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// Reader provides read-only access to SQLite for candle loading and the run
// journal.
type Reader struct {
	db *sql.DB
}

// NewReader opens a SQLite connection for reading.
func NewReader(dbPath string) (*Reader, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open reader: %w", err)
	}
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(2)

	log.Printf("[sqlite-reader] opened %s", dbPath)
	return &Reader{db: db}, nil
}

// ReadTicker loads the candles of exchange:symbol strictly after after, ordered
// by timestamp ascending. Timestamps round-trip at millisecond resolution. The series is validated before it is returned, so a
// stored zero or negative close surfaces as model.ErrInvalidCandle here.
func (r *Reader) ReadTicker(ctx context.Context, exchange, symbol string, after time.Time) (model.Ticker, error) {
	ticker := model.Ticker{Symbol: symbol, Exchange: exchange}

	afterTS := int64(math.MinInt64)
	if !after.IsZero() {
		afterTS = after.UnixMilli()
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT ts_ms, open, high, low, close, volume
		FROM candles
		WHERE exchange = ? AND symbol = ? AND ts_ms > ?
		ORDER BY ts_ms ASC
	`, exchange, symbol, afterTS)
	if err != nil {
		return ticker, fmt.Errorf("sqlite query candles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c model.Candle
		var tsMillis int64
		var volume sql.NullFloat64
		if err := rows.Scan(&tsMillis, &c.Open, &c.High, &c.Low, &c.Close, &volume); err != nil {
			return ticker, fmt.Errorf("sqlite scan candles: %w", err)
		}
		c.TS = time.UnixMilli(tsMillis).UTC()
		c.Volume = volume.Float64
		ticker.Candles = append(ticker.Candles, c)
	}
	if err := rows.Err(); err != nil {
		return ticker, err
	}

	if len(ticker.Candles) == 0 {
		return ticker, fmt.Errorf("candles for %s: %w", ticker.Key(), model.ErrNotFound)
	}
	if err := ticker.Validate(); err != nil {
		return ticker, err
	}
	return ticker, nil
}

// ListRuns returns the last limit journaled runs, newest first.
func (r *Reader) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	return listRuns(ctx, r.db, limit)
}

// RunTrades returns the trades of a journaled run in closing order. A run
// that does not exist is reported as model.ErrNotFound.
func (r *Reader) RunTrades(ctx context.Context, id int64) ([]model.ClosedTrade, error) {
	return runTrades(ctx, r.db, id)
}

// Close closes the reader.
func (r *Reader) Close() error {
	return r.db.Close()
}

func listRuns(ctx context.Context, db *sql.DB, limit int) ([]model.RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `
		SELECT id, run_id, symbol, exchange, period, multiplier, sl, tp, usd_balance, candles, trades, total_profit, created_at
		FROM backtest_runs
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite query runs: %w", err)
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		var rec model.RunRecord
		var created int64
		if err := rows.Scan(&rec.ID, &rec.RunID, &rec.Symbol, &rec.Exchange,
			&rec.Params.Period, &rec.Params.Multiplier, &rec.Params.StopLoss, &rec.Params.TakeProfit, &rec.Params.USDBalance,
			&rec.Candles, &rec.Trades, &rec.TotalProfit, &created); err != nil {
			return nil, fmt.Errorf("sqlite scan runs: %w", err)
		}
		rec.CreatedAt = time.Unix(created, 0).UTC()
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

func runTrades(ctx context.Context, db *sql.DB, id int64) ([]model.ClosedTrade, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT side, open_price, close_price, amount, reason
		FROM backtest_trades
		WHERE run_id = ?
		ORDER BY seq ASC
	`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite query trades: %w", err)
	}
	defer rows.Close()

	var trades []model.ClosedTrade
	for rows.Next() {
		var t model.ClosedTrade
		var side string
		var reason sql.NullString
		if err := rows.Scan(&side, &t.OpenPrice, &t.ClosePrice, &t.Amount, &reason); err != nil {
			return nil, fmt.Errorf("sqlite scan trades: %w", err)
		}
		if t.Side, err = model.ParseSide(side); err != nil {
			return nil, err
		}
		t.Reason = model.ExitReason(reason.String)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(trades) == 0 {
		var one int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM backtest_runs WHERE id = ?`, id).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("run %d: %w", id, model.ErrNotFound)
		}
		if err != nil {
			return nil, fmt.Errorf("sqlite query run: %w", err)
		}
		return []model.ClosedTrade{}, nil
	}
	return trades, nil
}
